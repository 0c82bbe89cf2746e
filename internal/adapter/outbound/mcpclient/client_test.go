package mcpclient

import (
	"context"
	"testing"
)

func TestCallToolUnknownServerFailsWithoutDialing(t *testing.T) {
	m := NewManager(map[string]string{"github-mcp-server": "https://example.invalid/mcp"})

	_, err := m.CallTool(context.Background(), "not-configured", "create_issue", nil)
	if err == nil {
		t.Fatal("expected an error for an unconfigured server")
	}
}

func TestListToolsUnknownServerFailsWithoutDialing(t *testing.T) {
	m := NewManager(map[string]string{"github-mcp-server": "https://example.invalid/mcp"})

	_, err := m.ListTools(context.Background(), "not-configured")
	if err == nil {
		t.Fatal("expected an error for an unconfigured server")
	}
}

func TestCloseWithNoOpenSessionsIsANoOp(t *testing.T) {
	m := NewManager(map[string]string{"github-mcp-server": "https://example.invalid/mcp"})

	if err := m.Close(); err != nil {
		t.Fatalf("expected Close on an idle manager to succeed, got %v", err)
	}
}
