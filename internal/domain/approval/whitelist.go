package approval

// alwaysApproved is the small set of observability-only tools (reporting
// agent intent, emitting structured logs) that bypass the engine entirely.
var alwaysApproved = map[string]bool{
	"report_intent":       true,
	"log_structured_event": true,
	"emit_progress":       true,
}

// IsAlwaysApproved reports whether tool is in the always-approved
// whitelist.
func IsAlwaysApproved(tool string) bool {
	return alwaysApproved[tool]
}
