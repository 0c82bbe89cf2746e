package policy

import "testing"

func TestListBackgroundAgentsIsACopy(t *testing.T) {
	got := ListBackgroundAgents()
	if len(got) != len(BackgroundAgentContexts) {
		t.Fatalf("got %d agents, want %d", len(got), len(BackgroundAgentContexts))
	}
	got[0].Name = "mutated"
	if BackgroundAgents[0].Name == "mutated" {
		t.Fatalf("ListBackgroundAgents should return a defensive copy")
	}
}

func TestBackgroundAgentsMatchContextList(t *testing.T) {
	for i, agent := range BackgroundAgents {
		if agent.ID != BackgroundAgentContexts[i] {
			t.Errorf("position %d: agent id %s != context list %s", i, agent.ID, BackgroundAgentContexts[i])
		}
	}
}

func TestTextOnlyAgentsHaveNoTools(t *testing.T) {
	textOnly := map[Context]bool{
		ContextProactiveLoop:   true,
		ContextMemoryFormation: true,
	}
	for _, agent := range BackgroundAgents {
		if textOnly[agent.ID] && agent.HasTools {
			t.Errorf("%s is documented as text-only but HasTools is true", agent.ID)
		}
	}
}
