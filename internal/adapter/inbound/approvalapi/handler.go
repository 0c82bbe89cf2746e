// Package approvalapi is the admin-facing HTTP surface over the HITL
// interceptor's external callable surface (spec §4.6.7): resolving a
// pending chat approval, resolving the single outstanding bot reply, and
// checking whether any approval is currently pending. It is a thin,
// credentialed transport -- all approval semantics live in
// internal/domain/approval.
package approvalapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Resolver is the subset of approval.Interceptor this surface drives.
type Resolver interface {
	ResolveApproval(toolCallID string, approved bool) bool
	ResolveBotReply(text string) bool
	HasPendingApproval() bool
}

// Handler serves the approval-resolution HTTP surface.
type Handler struct {
	resolver Resolver
	logger   *slog.Logger
}

// New builds a Handler over resolver.
func New(resolver Resolver, logger *slog.Logger) *Handler {
	return &Handler{resolver: resolver, logger: logger}
}

// Routes registers this surface's endpoints on mux, gated by RequireBearer,
// following the teacher's net/http.ServeMux method-pattern convention
// ("POST /path", Go 1.22+).
func (h *Handler) Routes(mux *http.ServeMux, keys KeySource) {
	protected := http.NewServeMux()
	protected.HandleFunc("POST /approvals/{toolCallID}/resolve", h.handleResolveApproval)
	protected.HandleFunc("POST /bot-reply", h.handleResolveBotReply)
	protected.HandleFunc("GET /approvals/pending", h.handlePendingStatus)

	mux.Handle("/approvals/", RequireBearer(keys, protected))
	mux.Handle("/bot-reply", RequireBearer(keys, protected))
}

type resolveApprovalRequest struct {
	Approved bool `json:"approved"`
}

type resolveResponse struct {
	Resolved bool `json:"resolved"`
}

func (h *Handler) handleResolveApproval(w http.ResponseWriter, r *http.Request) {
	toolCallID := r.PathValue("toolCallID")
	var req resolveApprovalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	resolved := h.resolver.ResolveApproval(toolCallID, req.Approved)
	h.logger.Debug("approvalapi: resolve_approval", "tool_call_id", toolCallID, "approved", req.Approved, "resolved", resolved)
	writeJSON(w, http.StatusOK, resolveResponse{Resolved: resolved})
}

type resolveBotReplyRequest struct {
	Text string `json:"text"`
}

func (h *Handler) handleResolveBotReply(w http.ResponseWriter, r *http.Request) {
	var req resolveBotReplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	resolved := h.resolver.ResolveBotReply(req.Text)
	h.logger.Debug("approvalapi: resolve_bot_reply", "resolved", resolved)
	writeJSON(w, http.StatusOK, resolveResponse{Resolved: resolved})
}

type pendingStatusResponse struct {
	HasPendingApproval bool `json:"has_pending_approval"`
}

func (h *Handler) handlePendingStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, pendingStatusResponse{HasPendingApproval: h.resolver.HasPendingApproval()})
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
