package config

import "testing"

func validConfig() GuardctlConfig {
	var cfg GuardctlConfig
	cfg.SetDefaults()
	cfg.Guardrails.DefaultAction = "hitl"
	return cfg
}

func TestValidateAcceptsDefaults(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected a default config to validate, got %v", err)
	}
}

func TestValidateRejectsUnknownStrategy(t *testing.T) {
	cfg := validConfig()
	cfg.Guardrails.DefaultAction = "bogus"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for an unknown default_action")
	}
}

func TestValidateAcceptsLegacyAskStrategy(t *testing.T) {
	cfg := validConfig()
	cfg.Guardrails.DefaultAction = "ask"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("legacy 'ask' should pass strategy validation, got %v", err)
	}
}

func TestValidateRejectsInvalidE164(t *testing.T) {
	cfg := validConfig()
	cfg.Guardrails.PhoneNumber = "555-1234"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for a non-E.164 phone number")
	}
}

func TestValidateAcceptsEmptyPhoneNumber(t *testing.T) {
	cfg := validConfig()
	cfg.Guardrails.PhoneNumber = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty phone_number should be valid, got %v", err)
	}
}

func TestValidateAcceptsValidE164(t *testing.T) {
	cfg := validConfig()
	cfg.Guardrails.PhoneNumber = "+14155552671"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid E.164 number should pass, got %v", err)
	}
}

func TestValidateRejectsModelPoliciesNotInModelColumns(t *testing.T) {
	cfg := validConfig()
	cfg.Guardrails.ModelPolicies = map[string]map[string]map[string]string{
		"gpt-4.1": {"interactive": {"run": "hitl"}},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for a model_policies entry missing from model_columns")
	}
}

func TestValidateAcceptsModelPoliciesListedInModelColumns(t *testing.T) {
	cfg := validConfig()
	cfg.Guardrails.ModelColumns = []string{"gpt-4.1"}
	cfg.Guardrails.ModelPolicies = map[string]map[string]map[string]string{
		"gpt-4.1": {"interactive": {"run": "hitl"}},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidateRejectsBadToolPolicyStrategy(t *testing.T) {
	cfg := validConfig()
	cfg.Guardrails.ToolPolicies = map[string]map[string]string{
		"interactive": {"run": "not-a-strategy"},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for an invalid tool_policies strategy")
	}
}
