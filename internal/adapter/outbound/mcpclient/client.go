package mcpclient

import (
	"context"
	"fmt"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const clientName = "guardctl"

// Manager maintains one lazily-established connection per configured
// upstream MCP server and executes tool calls against them once the policy
// gate has approved a request. It never participates in the allow/deny
// decision itself -- that stays the domain engine's job.
type Manager struct {
	client *mcp.Client

	mu       sync.Mutex
	endpoint map[string]string
	sessions map[string]*mcp.ClientSession
}

// NewManager builds a Manager over the given server name -> HTTP endpoint
// map (config.GuardctlConfig.MCPServers).
func NewManager(servers map[string]string) *Manager {
	endpoint := make(map[string]string, len(servers))
	for name, addr := range servers {
		endpoint[name] = addr
	}
	return &Manager{
		client:   mcp.NewClient(&mcp.Implementation{Name: clientName, Version: "1.0"}, nil),
		endpoint: endpoint,
		sessions: make(map[string]*mcp.ClientSession),
	}
}

// session returns the cached session for server, connecting on first use.
func (m *Manager) session(ctx context.Context, server string) (*mcp.ClientSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cs, ok := m.sessions[server]; ok {
		return cs, nil
	}
	endpoint, ok := m.endpoint[server]
	if !ok {
		return nil, fmt.Errorf("mcpclient: unknown upstream server %q", server)
	}
	cs, err := m.client.Connect(ctx, &mcp.StreamableClientTransport{Endpoint: endpoint}, nil)
	if err != nil {
		return nil, fmt.Errorf("mcpclient: connecting to %q: %w", server, err)
	}
	m.sessions[server] = cs
	return cs, nil
}

// ListTools lists the tools exposed by the named upstream server.
func (m *Manager) ListTools(ctx context.Context, server string) ([]*mcp.Tool, error) {
	cs, err := m.session(ctx, server)
	if err != nil {
		return nil, err
	}
	res, err := cs.ListTools(ctx, &mcp.ListToolsParams{})
	if err != nil {
		return nil, fmt.Errorf("mcpclient: listing tools on %q: %w", server, err)
	}
	return res.Tools, nil
}

// CallTool executes tool on the named upstream server. Callers are
// responsible for having already obtained an allow/approve decision from
// the policy gate -- CallTool performs no policy evaluation of its own.
func (m *Manager) CallTool(ctx context.Context, server, tool string, arguments map[string]any) (*mcp.CallToolResult, error) {
	cs, err := m.session(ctx, server)
	if err != nil {
		return nil, err
	}
	res, err := cs.CallTool(ctx, &mcp.CallToolParams{Name: tool, Arguments: arguments})
	if err != nil {
		return nil, fmt.Errorf("mcpclient: calling %s on %q: %w", tool, server, err)
	}
	return res, nil
}

// Close tears down every open upstream session.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for server, cs := range m.sessions {
		if err := cs.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("mcpclient: closing %q: %w", server, err)
		}
	}
	m.sessions = make(map[string]*mcp.ClientSession)
	return firstErr
}
