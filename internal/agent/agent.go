// Package agent runs the reservation assistant conversation: it keeps a
// history per session, sends it to a chat-completion model together with
// the reservation tools, executes the tool calls the model asks for, and
// returns the model's final reply.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// SystemPrompt defines the assistant's behaviour.
const SystemPrompt = `You are an AI reservation assistant for FoodieSpot restaurants.
You help customers make reservations, provide recommendations, modify or cancel bookings.
Always be polite, professional, and helpful. When making recommendations, consider the customer's
preferences and suggest suitable restaurants.
If information is missing to complete a task, ask for it politely.
When dealing with reservations, always confirm the details with the customer.
Don't share information about reservations without verifying customer identity by email.`

// ChatCompleter is the subset of *openai.Client the agent uses.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// ToolExecutor runs a tool call and returns its JSON result.
// *tools.Dispatcher satisfies it.
type ToolExecutor interface {
	ExecuteJSON(ctx context.Context, name, args string) string
}

// Config tunes the conversation loop.
type Config struct {
	Model string
	// MaxToolRounds bounds how many consecutive completions may request
	// tools before a final completion is forced without them.
	MaxToolRounds int
	// MaxHistory caps the stored messages per session; older turns are
	// dropped whole.  Zero keeps everything.
	MaxHistory int
}

// Turn is the outcome of one user message.
type Turn struct {
	SessionID string   `json:"session_id"`
	Reply     string   `json:"reply"`
	ToolCalls []string `json:"tool_calls,omitempty"`
}

type session struct {
	mu      sync.Mutex
	history []openai.ChatCompletionMessage
}

// Agent holds every live session.  Messages for one session are handled one
// at a time; different sessions proceed concurrently.
type Agent struct {
	client ChatCompleter
	exec   ToolExecutor
	tools  []openai.Tool
	cfg    Config
	logger *slog.Logger
	tracer trace.Tracer

	mu       sync.Mutex
	sessions map[string]*session
}

// New builds an agent that offers defs to the model and runs calls with exec.
func New(client ChatCompleter, exec ToolExecutor, defs []openai.Tool, cfg Config, logger *slog.Logger) *Agent {
	if cfg.MaxToolRounds <= 0 {
		cfg.MaxToolRounds = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{
		client:   client,
		exec:     exec,
		tools:    defs,
		cfg:      cfg,
		logger:   logger.With("component", "agent"),
		tracer:   otel.Tracer("github.com/iliyamo/restaurant-reservation/internal/agent"),
		sessions: make(map[string]*session),
	}
}

// NewSessionID returns a fresh random session identifier.
func NewSessionID() string { return uuid.NewString() }

func (a *Agent) session(id string) *session {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.sessions[id]
	if !ok {
		s = &session{}
		a.sessions[id] = s
	}
	return s
}

// Reset forgets a session's history.
func (a *Agent) Reset(sessionID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.sessions, sessionID)
}

// History returns a copy of a session's stored messages.
func (a *Agent) History(sessionID string) []openai.ChatCompletionMessage {
	s := a.session(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]openai.ChatCompletionMessage, len(s.history))
	copy(out, s.history)
	return out
}

// Chat handles one user message.  An empty sessionID starts a new session.
// Failures of the model API never escape: they become an apology reply
// that is also recorded in the history.
func (a *Agent) Chat(ctx context.Context, sessionID, message string) Turn {
	if sessionID == "" {
		sessionID = NewSessionID()
	}
	ctx, span := a.tracer.Start(ctx, "agent.chat", trace.WithAttributes(attribute.String("session_id", sessionID)))
	defer span.End()

	s := a.session(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append(s.history, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: message})
	turn := Turn{SessionID: sessionID}

	reply, err := a.run(ctx, s, &turn)
	if err != nil {
		a.logger.Error("chat completion failed", "session_id", sessionID, "error", err)
		span.RecordError(err)
		reply = fmt.Sprintf("I apologize, but I encountered an error: %v", err)
		s.history = append(s.history, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: reply})
	}
	s.history = trimHistory(s.history, a.cfg.MaxHistory)
	turn.Reply = reply
	span.SetAttributes(attribute.Int("tool_calls", len(turn.ToolCalls)))
	return turn
}

func (a *Agent) run(ctx context.Context, s *session, turn *Turn) (string, error) {
	for round := 0; ; round++ {
		final := round >= a.cfg.MaxToolRounds
		req := openai.ChatCompletionRequest{
			Model:    a.cfg.Model,
			Messages: append([]openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt}}, s.history...),
		}
		if !final && len(a.tools) > 0 {
			req.Tools = a.tools
			req.ToolChoice = "auto"
		}

		resp, err := a.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", errors.New("model returned no choices")
		}
		msg := resp.Choices[0].Message
		if msg.Role == "" {
			msg.Role = openai.ChatMessageRoleAssistant
		}
		if final {
			// No tool replies follow the last round.
			msg.ToolCalls = nil
		}
		s.history = append(s.history, msg)

		if len(msg.ToolCalls) == 0 {
			return msg.Content, nil
		}
		for _, call := range msg.ToolCalls {
			a.logger.Debug("tool call", "tool", call.Function.Name, "call_id", call.ID)
			turn.ToolCalls = append(turn.ToolCalls, call.Function.Name)
			s.history = append(s.history, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    a.exec.ExecuteJSON(ctx, call.Function.Name, call.Function.Arguments),
				ToolCallID: call.ID,
			})
		}
	}
}

// trimHistory drops the oldest turns until at most max messages remain.  A
// turn starts at a user message, so an assistant tool call is never
// separated from its tool results.
func trimHistory(h []openai.ChatCompletionMessage, max int) []openai.ChatCompletionMessage {
	if max <= 0 || len(h) <= max {
		return h
	}
	for start := len(h) - max; start < len(h); start++ {
		if h[start].Role == openai.ChatMessageRoleUser {
			return append([]openai.ChatCompletionMessage(nil), h[start:]...)
		}
	}
	return h[len(h)-1:]
}

// NewClient returns an OpenAI-compatible chat client.  baseURL selects a
// different endpoint, such as GitHub Models; empty keeps the default.
func NewClient(apiKey, baseURL string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(cfg)
}
