package approvalapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sentineltrace/guardctl/internal/domain/auth"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fakeResolver struct {
	resolveApprovalArg  string
	resolveApprovalBool bool
	resolveApprovalRet  bool
	resolveBotReplyArg  string
	resolveBotReplyRet  bool
	pending             bool
}

func (f *fakeResolver) ResolveApproval(toolCallID string, approved bool) bool {
	f.resolveApprovalArg, f.resolveApprovalBool = toolCallID, approved
	return f.resolveApprovalRet
}
func (f *fakeResolver) ResolveBotReply(text string) bool {
	f.resolveBotReplyArg = text
	return f.resolveBotReplyRet
}
func (f *fakeResolver) HasPendingApproval() bool { return f.pending }

func newTestServer(t *testing.T, resolver Resolver, rawKey string) *httptest.Server {
	t.Helper()
	hash, err := auth.HashKeyArgon2id(rawKey)
	if err != nil {
		t.Fatalf("HashKeyArgon2id: %v", err)
	}
	mux := http.NewServeMux()
	New(resolver, testLogger()).Routes(mux, StaticKeys{hash})
	return httptest.NewServer(mux)
}

func TestResolveApprovalRequiresBearerToken(t *testing.T) {
	resolver := &fakeResolver{resolveApprovalRet: true}
	server := newTestServer(t, resolver, "secret-key")
	defer server.Close()

	resp, err := http.Post(server.URL+"/approvals/call-1/resolve", "application/json", bytes.NewBufferString(`{"approved":true}`))
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 with no bearer token, got %d", resp.StatusCode)
	}
}

func TestResolveApprovalWithValidTokenCallsResolver(t *testing.T) {
	resolver := &fakeResolver{resolveApprovalRet: true}
	server := newTestServer(t, resolver, "secret-key")
	defer server.Close()

	req, _ := http.NewRequest(http.MethodPost, server.URL+"/approvals/call-1/resolve", bytes.NewBufferString(`{"approved":true}`))
	req.Header.Set("Authorization", "Bearer secret-key")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var got resolveResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.Resolved {
		t.Error("expected resolved=true")
	}
	if resolver.resolveApprovalArg != "call-1" || !resolver.resolveApprovalBool {
		t.Errorf("resolver not called with expected args: %+v", resolver)
	}
}

func TestResolveApprovalRejectsWrongToken(t *testing.T) {
	resolver := &fakeResolver{resolveApprovalRet: true}
	server := newTestServer(t, resolver, "secret-key")
	defer server.Close()

	req, _ := http.NewRequest(http.MethodPost, server.URL+"/approvals/call-1/resolve", bytes.NewBufferString(`{"approved":true}`))
	req.Header.Set("Authorization", "Bearer wrong-key")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 with wrong token, got %d", resp.StatusCode)
	}
}

func TestPendingStatusReflectsResolver(t *testing.T) {
	resolver := &fakeResolver{pending: true}
	server := newTestServer(t, resolver, "secret-key")
	defer server.Close()

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/approvals/pending", nil)
	req.Header.Set("Authorization", "Bearer secret-key")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var got pendingStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.HasPendingApproval {
		t.Error("expected has_pending_approval=true")
	}
}

func TestResolveBotReplyRoutesTextToResolver(t *testing.T) {
	resolver := &fakeResolver{resolveBotReplyRet: true}
	server := newTestServer(t, resolver, "secret-key")
	defer server.Close()

	req, _ := http.NewRequest(http.MethodPost, server.URL+"/bot-reply", bytes.NewBufferString(`{"text":"yes"}`))
	req.Header.Set("Authorization", "Bearer secret-key")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resolver.resolveBotReplyArg != "yes" {
		t.Errorf("expected resolver to receive %q, got %q", "yes", resolver.resolveBotReplyArg)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}
