// Package chatchannel is the concrete transport behind the HITL
// interceptor's chat bindings: a per-connection WebSocket carrying the
// structured emit(event_name, payload) events the interceptor sends out
// (approval_request, tool_denied, approval_resolved) and relaying the
// operator's resolve_approval replies back into the interceptor.
package chatchannel

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/sentineltrace/guardctl/internal/domain/approval"
)

// Resolver is the subset of approval.Interceptor a Channel drives.
type Resolver interface {
	BindTurn(b approval.Bindings)
	UnbindTurn()
	ResolveApproval(toolCallID string, approved bool) bool
}

// inboundMessage is the wire shape of an operator reply.
type inboundMessage struct {
	Type       string `json:"type"`
	ToolCallID string `json:"toolCallId"`
	Approved   bool   `json:"approved"`
}

// outboundMessage is the wire shape of an emitted event.
type outboundMessage struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

func newUpgrader(allowAllOrigins bool) websocket.Upgrader {
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if allowAllOrigins {
				return true
			}
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			return strings.Contains(origin, r.Host)
		},
	}
}

// Channel upgrades a single HTTP request into a WebSocket-backed chat
// turn, binding it to the interceptor for the connection's lifetime and
// unbinding on disconnect.
type Channel struct {
	resolver Resolver
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// New builds a Channel. allowAllOrigins mirrors the teacher's
// same-origin-by-default WebSocket upgrade policy.
func New(resolver Resolver, allowAllOrigins bool, logger *slog.Logger) *Channel {
	return &Channel{resolver: resolver, upgrader: newUpgrader(allowAllOrigins), logger: logger}
}

// ServeHTTP upgrades the connection, binds it as the turn's chat channel,
// and blocks reading operator replies until the connection closes.
func (c *Channel) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.Error("chatchannel: upgrade failed", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	var writeMu sync.Mutex
	emit := func(eventName string, payload map[string]any) {
		writeMu.Lock()
		defer writeMu.Unlock()
		msg, err := json.Marshal(outboundMessage{Type: eventName, Payload: payload})
		if err != nil {
			c.logger.Error("chatchannel: marshal event", "event", eventName, "error", err)
			return
		}
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			c.logger.Debug("chatchannel: write failed", "error", err)
		}
	}

	c.resolver.BindTurn(approval.Bindings{Emit: emit})
	defer c.resolver.UnbindTurn()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.logger.Debug("chatchannel: connection closed", "error", err)
			return
		}
		c.handleInbound(data)
	}
}

func (c *Channel) handleInbound(data []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.logger.Warn("chatchannel: malformed inbound message", "error", err)
		return
	}
	if msg.Type != "resolve_approval" {
		return
	}
	if !c.resolver.ResolveApproval(msg.ToolCallID, msg.Approved) {
		c.logger.Debug("chatchannel: resolve_approval had no matching pending request", "tool_call_id", msg.ToolCallID)
	}
}
