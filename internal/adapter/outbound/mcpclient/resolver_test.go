package mcpclient

import "testing"

func TestParseToolID(t *testing.T) {
	cases := []struct {
		id         string
		wantServer string
		wantTool   string
		wantOK     bool
	}{
		{"mcp:github-mcp-server:create_issue", "github-mcp-server", "create_issue", true},
		{"mcp:fs:read:nested", "fs", "read:nested", true},
		{"run", "", "", false},
		{"skill:web-search", "", "", false},
		{"mcp:", "", "", false},
		{"mcp::tool", "", "", false},
		{"mcp:server:", "", "", false},
	}
	for _, c := range cases {
		server, tool, ok := ParseToolID(c.id)
		if ok != c.wantOK || server != c.wantServer || tool != c.wantTool {
			t.Errorf("ParseToolID(%q) = (%q, %q, %v), want (%q, %q, %v)",
				c.id, server, tool, ok, c.wantServer, c.wantTool, c.wantOK)
		}
	}
}
