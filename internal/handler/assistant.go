package handler

import (
	"io"
	"net/http"
	"slices"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-reservation/internal/tools"
)

// maxToolArgsBytes bounds the argument object accepted by POST /v1/tools/:name.
const maxToolArgsBytes = 64 << 10

// AssistantHandler exposes the tool adapter and the chat agent.
type AssistantHandler struct {
	Tools ToolRunner
	Agent Chatter // nil when no model credentials are configured
}

// ListTools handles GET /v1/tools and returns the function-calling
// definitions exactly as they are sent to the model.
func (h *AssistantHandler) ListTools(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"tools": tools.Definitions()})
}

// CallTool handles POST /v1/tools/:name.  The request body is the JSON
// argument object; the response is the tool's result.  Tool-level failures
// (bad arguments, unavailable slot) are part of the result and still 200.
func (h *AssistantHandler) CallTool(c echo.Context) error {
	name := c.Param("name")
	if !slices.Contains(tools.Names(), name) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Unknown function: " + name})
	}
	args, err := io.ReadAll(io.LimitReader(c.Request().Body, maxToolArgsBytes+1))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if len(args) > maxToolArgsBytes {
		return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{"error": "arguments too large"})
	}
	return c.JSON(http.StatusOK, h.Tools.Execute(c.Request().Context(), name, string(args)))
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message" validate:"required"`
}

// Chat handles POST /v1/chat.  An empty session_id starts a new
// conversation; the response carries the ID to continue it.
func (h *AssistantHandler) Chat(c echo.Context) error {
	if h.Agent == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "chat is not configured"})
	}
	var body chatRequest
	if err := bindValid(c, &body); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, h.Agent.Chat(c.Request().Context(), body.SessionID, body.Message))
}

// ResetChat handles DELETE /v1/chat/:session_id.
func (h *AssistantHandler) ResetChat(c echo.Context) error {
	if h.Agent == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "chat is not configured"})
	}
	h.Agent.Reset(c.Param("session_id"))
	return c.NoContent(http.StatusNoContent)
}
