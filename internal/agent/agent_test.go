package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClient replays scripted responses and records every request.
type fakeClient struct {
	mu        sync.Mutex
	responses []openai.ChatCompletionMessage
	err       error
	requests  []openai.ChatCompletionRequest
}

func (f *fakeClient) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	if len(f.responses) == 0 {
		return openai.ChatCompletionResponse{}, nil
	}
	msg := f.responses[0]
	f.responses = f.responses[1:]
	return openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{{Message: msg}}}, nil
}

type fakeExecutor struct {
	calls []string
}

func (f *fakeExecutor) ExecuteJSON(_ context.Context, name, args string) string {
	f.calls = append(f.calls, name+" "+args)
	return fmt.Sprintf(`{"tool":%q}`, name)
}

func toolCall(id, name, args string) openai.ToolCall {
	return openai.ToolCall{ID: id, Type: openai.ToolTypeFunction, Function: openai.FunctionCall{Name: name, Arguments: args}}
}

func assistant(content string, calls ...openai.ToolCall) openai.ChatCompletionMessage {
	return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content, ToolCalls: calls}
}

var testTools = []openai.Tool{{Type: openai.ToolTypeFunction, Function: &openai.FunctionDefinition{Name: "search_restaurants"}}}

func TestChat_PlainReply(t *testing.T) {
	client := &fakeClient{responses: []openai.ChatCompletionMessage{assistant("Hello! How can I help?")}}
	a := New(client, &fakeExecutor{}, testTools, Config{Model: "gpt-4o-mini", MaxToolRounds: 4}, nil)

	turn := a.Chat(context.Background(), "", "hi")
	assert.Equal(t, "Hello! How can I help?", turn.Reply)
	_, err := uuid.Parse(turn.SessionID)
	require.NoError(t, err)

	require.Len(t, client.requests, 1)
	req := client.requests[0]
	assert.Equal(t, "gpt-4o-mini", req.Model)
	assert.Equal(t, "auto", req.ToolChoice)
	assert.Len(t, req.Tools, 1)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, req.Messages[0].Role)
	assert.Equal(t, SystemPrompt, req.Messages[0].Content)
	assert.Equal(t, "hi", req.Messages[1].Content)

	assert.Len(t, a.History(turn.SessionID), 2)
}

func TestChat_ExecutesToolCalls(t *testing.T) {
	client := &fakeClient{responses: []openai.ChatCompletionMessage{
		assistant("", toolCall("call_1", "search_restaurants", `{"cuisine":"Italian"}`), toolCall("call_2", "check_availability", `{}`)),
		assistant("Bella Notte has a table."),
	}}
	exec := &fakeExecutor{}
	a := New(client, exec, testTools, Config{MaxToolRounds: 4}, nil)

	turn := a.Chat(context.Background(), "s1", "italian tonight?")
	assert.Equal(t, "Bella Notte has a table.", turn.Reply)
	assert.Equal(t, []string{"search_restaurants", "check_availability"}, turn.ToolCalls)
	assert.Equal(t, []string{`search_restaurants {"cuisine":"Italian"}`, "check_availability {}"}, exec.calls)

	require.Len(t, client.requests, 2)
	second := client.requests[1].Messages
	// system, user, assistant(tool calls), tool, tool
	require.Len(t, second, 5)
	assert.Equal(t, openai.ChatMessageRoleTool, second[3].Role)
	assert.Equal(t, "call_1", second[3].ToolCallID)
	assert.Equal(t, `{"tool":"search_restaurants"}`, second[3].Content)
	assert.Equal(t, "call_2", second[4].ToolCallID)
}

func TestChat_ToolRoundsAreBounded(t *testing.T) {
	loop := assistant("", toolCall("c", "search_restaurants", `{}`))
	client := &fakeClient{responses: []openai.ChatCompletionMessage{loop, loop, assistant("done")}}
	exec := &fakeExecutor{}
	a := New(client, exec, testTools, Config{MaxToolRounds: 2}, nil)

	turn := a.Chat(context.Background(), "s1", "go")
	assert.Equal(t, "done", turn.Reply)
	require.Len(t, client.requests, 3)
	assert.NotEmpty(t, client.requests[1].Tools)
	assert.Empty(t, client.requests[2].Tools, "final completion is forced without tools")
	assert.Nil(t, client.requests[2].ToolChoice)
	assert.Len(t, exec.calls, 2)
}

func TestChat_FinalRoundToolCallsAreDropped(t *testing.T) {
	loop := assistant("", toolCall("c", "search_restaurants", `{}`))
	client := &fakeClient{responses: []openai.ChatCompletionMessage{
		loop,
		assistant("here is what I found", toolCall("late", "search_restaurants", `{}`)),
		assistant("next"),
	}}
	exec := &fakeExecutor{}
	a := New(client, exec, testTools, Config{MaxToolRounds: 1}, nil)

	turn := a.Chat(context.Background(), "s1", "go")
	assert.Equal(t, "here is what I found", turn.Reply)
	assert.Len(t, exec.calls, 1)

	// Every assistant tool call in history must be answered by a tool message.
	h := a.History("s1")
	answered := map[string]bool{}
	for _, m := range h {
		if m.Role == openai.ChatMessageRoleTool {
			answered[m.ToolCallID] = true
		}
	}
	for _, m := range h {
		for _, call := range m.ToolCalls {
			assert.True(t, answered[call.ID], "tool call %s has no reply", call.ID)
		}
	}
	last := h[len(h)-1]
	assert.Equal(t, openai.ChatMessageRoleAssistant, last.Role)
	assert.Empty(t, last.ToolCalls)

	a.Chat(context.Background(), "s1", "again")
	sent := client.requests[len(client.requests)-1].Messages
	for _, m := range sent {
		if m.Role == openai.ChatMessageRoleAssistant {
			for _, call := range m.ToolCalls {
				assert.NotEqual(t, "late", call.ID)
			}
		}
	}
}

func TestChat_UpstreamErrorBecomesApology(t *testing.T) {
	client := &fakeClient{err: errors.New("rate limited")}
	a := New(client, &fakeExecutor{}, testTools, Config{}, nil)

	turn := a.Chat(context.Background(), "s1", "hello")
	assert.Equal(t, "I apologize, but I encountered an error: rate limited", turn.Reply)

	h := a.History("s1")
	require.Len(t, h, 2)
	assert.Equal(t, openai.ChatMessageRoleAssistant, h[1].Role)
	assert.Equal(t, turn.Reply, h[1].Content)
}

func TestChat_EmptyChoices(t *testing.T) {
	a := New(&fakeClient{}, &fakeExecutor{}, testTools, Config{}, nil)
	turn := a.Chat(context.Background(), "s1", "hello")
	assert.Contains(t, turn.Reply, "no choices")
}

func TestChat_SessionsAreIsolated(t *testing.T) {
	client := &fakeClient{responses: []openai.ChatCompletionMessage{assistant("one"), assistant("two"), assistant("three")}}
	a := New(client, &fakeExecutor{}, testTools, Config{}, nil)

	a.Chat(context.Background(), "a", "first")
	a.Chat(context.Background(), "b", "second")
	a.Chat(context.Background(), "a", "third")

	assert.Len(t, a.History("a"), 4)
	assert.Len(t, a.History("b"), 2)
	assert.Len(t, client.requests[2].Messages, 4, "system + a's three prior messages + new user message")

	a.Reset("a")
	assert.Empty(t, a.History("a"))
}

func TestTrimHistory(t *testing.T) {
	user := func(s string) openai.ChatCompletionMessage {
		return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: s}
	}
	tool := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleTool, ToolCallID: "c"}
	h := []openai.ChatCompletionMessage{
		user("1"), assistant("", toolCall("c", "x", "{}")), tool, assistant("a1"),
		user("2"), assistant("a2"),
	}

	assert.Equal(t, h, trimHistory(h, 0))
	assert.Equal(t, h, trimHistory(h, 10))

	got := trimHistory(h, 4)
	require.Len(t, got, 2)
	assert.Equal(t, "2", got[0].Content)
}
