package store

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/sentineltrace/guardctl/internal/domain/policy"
)

// ParsePolicySetYAML parses the spec §6.1 PolicySet wire format -- the same
// shape writeYAMLCompanion emits -- into a policy.PolicyDocument. This is
// yaml_to_config's first stage, the inverse of writeYAMLCompanion; the
// second stage is Decompile, which classifies the resulting document back
// into GuardrailsConfig. Every policy parsed this way is enabled: the wire
// format carries no disabled entries, matching what writeYAMLCompanion
// emits (NewDocument already dropped disabled policies before compiling).
func ParsePolicySetYAML(data []byte) (policy.PolicyDocument, error) {
	var doc yamlDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return policy.PolicyDocument{}, fmt.Errorf("parse policy set yaml: %w", err)
	}

	effectDefault, err := policy.ParseStrategy(doc.Defaults.Effect)
	if err != nil {
		return policy.PolicyDocument{}, fmt.Errorf("defaults.effect: %w", err)
	}
	channelDefault, err := policy.ParseChannel(doc.Defaults.Channel)
	if err != nil {
		return policy.PolicyDocument{}, fmt.Errorf("defaults.channel: %w", err)
	}

	policies := make([]policy.Policy, 0, len(doc.Policies))
	seen := make(map[string]struct{}, len(doc.Policies))
	for idx, p := range doc.Policies {
		if p.ID == "" {
			return policy.PolicyDocument{}, fmt.Errorf("policies[%d]: id is required", idx)
		}
		if _, dup := seen[p.ID]; dup {
			return policy.PolicyDocument{}, fmt.Errorf("policies[%d]: duplicate id %q", idx, p.ID)
		}
		seen[p.ID] = struct{}{}

		effect, err := policy.ParseStrategy(p.Effect)
		if err != nil {
			return policy.PolicyDocument{}, fmt.Errorf("policies[%d] (%s): effect: %w", idx, p.ID, err)
		}

		var channel policy.Channel
		if p.Channel != "" {
			channel, err = policy.ParseChannel(p.Channel)
			if err != nil {
				return policy.PolicyDocument{}, fmt.Errorf("policies[%d] (%s): channel: %w", idx, p.ID, err)
			}
		}

		policies = append(policies, policy.Policy{
			ID:       p.ID,
			Name:     p.Name,
			Priority: p.Priority,
			Condition: policy.Condition{
				Modes:      toContexts(p.Condition.Modes),
				Tools:      p.Condition.Tools,
				Models:     p.Condition.Models,
				MCPServers: p.Condition.MCPServers,
			},
			Effect:  effect,
			Channel: channel,
			Enabled: true,
		})
	}

	return policy.NewDocument(effectDefault, channelDefault, policy.DefaultContextFallbacks(), policies), nil
}
