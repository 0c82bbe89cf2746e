package policy

// BackgroundAgent describes one of the first-class background-agent
// contexts: which driver owns it, whether it has tool access at all, the
// policy recommended for it out of the box, and an admin-facing note about
// the blast radius of changing that policy.
type BackgroundAgent struct {
	ID             Context
	Name           string
	Description    string
	HasTools       bool
	DefaultPolicy  Strategy
	RiskNote       string
}

// BackgroundAgents is the registry of background-agent metadata, in
// declaration order. It supplements the bare context-id list in
// BackgroundAgentContexts with the human-facing detail the admin surface
// and CLI need to describe each driver.
var BackgroundAgents = []BackgroundAgent{
	{
		ID:          ContextScheduler,
		Name:        "Scheduler",
		Description: "Runs scheduled tasks on a cron schedule. Has full tool access including file operations, terminal, and MCP servers.",
		HasTools:    true,
		// background is a Context id, not a Strategy; the scheduler's
		// recommended policy is "use the background context's own
		// resolved strategy", represented here by falling through to
		// StrategyHITL as a conservative placeholder until a direct
		// policy or fallback resolves it.
		DefaultPolicy: StrategyHITL,
		RiskNote:      "Changing the policy for the scheduler may cause scheduled tasks to hang waiting for approval or fail silently.",
	},
	{
		ID:            ContextBotProcessor,
		Name:          "Bot Message Processor",
		Description:   "Processes messages from chat and bot channels. Shares the full tool set with the interactive agent.",
		HasTools:      true,
		DefaultPolicy: StrategyHITL,
		RiskNote:      "Changing the policy for the bot processor may cause channel messages to hang or tools to be blocked for bot users.",
	},
	{
		ID:            ContextProactiveLoop,
		Name:          "Proactive Loop",
		Description:   "Generates proactive messages and notifications. Text-only -- has no tool access.",
		HasTools:      false,
		DefaultPolicy: StrategyAllow,
		RiskNote:      "This agent has no tool access. Guardrail changes have no effect.",
	},
	{
		ID:            ContextMemoryFormation,
		Name:          "Memory Formation",
		Description:   "Post-processes conversations to extract and store memories. Text-only -- has no tool access.",
		HasTools:      false,
		DefaultPolicy: StrategyAllow,
		RiskNote:      "This agent has no tool access. Guardrail changes have no effect.",
	},
	{
		ID:            ContextAITLReviewer,
		Name:          "AITL Reviewer",
		Description:   "AI reviewer that evaluates tool calls for safety. Uses one internal decision tool (submit_decision).",
		HasTools:      true,
		DefaultPolicy: StrategyAllow,
		RiskNote:      "The AITL reviewer IS the guardrail. Restricting it will prevent it from functioning and break AITL-based approvals.",
	},
	{
		ID:            ContextRealtime,
		Name:          "Realtime Voice Agent",
		Description:   "Bridges a realtime voice model into the agent. Spawns one-shot sessions to execute tool-based tasks requested via voice calls.",
		HasTools:      true,
		DefaultPolicy: StrategyHITL,
		RiskNote:      "Changing the policy for the realtime agent may cause voice call tool invocations to hang or be blocked.",
	},
}

// ListBackgroundAgents returns a copy of the background-agent registry.
func ListBackgroundAgents() []BackgroundAgent {
	out := make([]BackgroundAgent, len(BackgroundAgents))
	copy(out, BackgroundAgents)
	return out
}
