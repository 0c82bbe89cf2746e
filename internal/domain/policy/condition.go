package policy

// Condition is a conjunction of up to four optional match lists. A missing
// (nil or empty) list matches unconditionally; every non-empty list present
// must match for the condition to fire.
type Condition struct {
	// Modes restricts the condition to specific execution contexts.
	Modes []Context
	// Tools restricts the condition to specific tool identifiers (bare
	// names, or literal "mcp:<x>"/"skill:<x>" forms as stored by the
	// compiler or authored directly in YAML).
	Tools []string
	// Models restricts the condition to specific model identifiers.
	Models []string
	// MCPServers restricts the condition to specific MCP server names,
	// matched against EvaluationContext.MCPServer.
	MCPServers []string
	// MatchExpression is an optional CEL boolean expression evaluated
	// over tool_name/mode/model/mcp_server/arguments, in addition to the
	// list conjunction above. Left empty, it plays no role: the plain
	// list conditions are the primary and only required matching
	// mechanism. Evaluating it is the engine's job (via an
	// ExpressionMatcher), not Matches's -- this package stays free of
	// any expression-language dependency.
	MatchExpression string
}

// Matches reports whether ctx satisfies c, given the document's context
// fallback map. A Modes list also matches when the fallback target of
// ctx.Mode is present in the list (so a background-scoped policy fires for
// every background-agent context that falls back to it).
func (c Condition) Matches(ctx EvaluationContext, fallbacks map[Context]Context) bool {
	mode := ctx.normalizedMode()

	if len(c.Modes) > 0 {
		if !containsContext(c.Modes, mode) {
			fallback, ok := fallbacks[mode]
			if !ok || !containsContext(c.Modes, fallback) {
				return false
			}
		}
	}
	if len(c.Tools) > 0 {
		if ctx.Tool == "" || !containsString(c.Tools, ctx.Tool) {
			return false
		}
	}
	if len(c.Models) > 0 {
		if ctx.Model == "" || !containsString(c.Models, ctx.Model) {
			return false
		}
	}
	if len(c.MCPServers) > 0 {
		if ctx.MCPServer == "" || !containsString(c.MCPServers, ctx.MCPServer) {
			return false
		}
	}
	return true
}

func containsContext(list []Context, want Context) bool {
	for _, c := range list {
		if c == want {
			return true
		}
	}
	return false
}

func containsString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
