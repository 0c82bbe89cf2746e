// Package mcpclient resolves mcp:-prefixed tool ids against configured
// upstream MCP servers and executes approved tool calls against them. It is
// an enrichment layer on top of the policy gate: spec's request descriptor
// already carries an explicit mcp_server field for the common case, so this
// package only needs to cover the id-string shorthand and post-approval
// execution.
package mcpclient

import "strings"

// toolIDPrefix marks a tool id as an MCP-routed call: "mcp:<server>:<tool>".
const toolIDPrefix = "mcp:"

// ParseToolID splits an "mcp:<server>:<tool>" tool id into its server and
// tool components. ok is false for any id that isn't mcp:-prefixed or that
// doesn't carry both parts, in which case server and tool are both empty.
func ParseToolID(id string) (server, tool string, ok bool) {
	if !strings.HasPrefix(id, toolIDPrefix) {
		return "", "", false
	}
	rest := strings.TrimPrefix(id, toolIDPrefix)
	server, tool, found := strings.Cut(rest, ":")
	if !found || server == "" || tool == "" {
		return "", "", false
	}
	return server, tool, true
}
