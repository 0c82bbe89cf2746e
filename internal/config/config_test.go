package config

import "testing"

func TestSetDefaults(t *testing.T) {
	var cfg GuardctlConfig
	cfg.SetDefaults()

	if cfg.Server.HTTPAddr != "127.0.0.1:8090" {
		t.Errorf("HTTPAddr = %q, want 127.0.0.1:8090", cfg.Server.HTTPAddr)
	}
	if cfg.Server.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.Server.LogLevel)
	}
	if cfg.Guardrails.DefaultAction != "hitl" {
		t.Errorf("DefaultAction = %q, want hitl", cfg.Guardrails.DefaultAction)
	}
	if cfg.Guardrails.DefaultChannel != "chat" {
		t.Errorf("DefaultChannel = %q, want chat", cfg.Guardrails.DefaultChannel)
	}
	if cfg.Guardrails.FilterMode != "prompt_shields" {
		t.Errorf("FilterMode = %q, want prompt_shields", cfg.Guardrails.FilterMode)
	}
	if cfg.EvalLog.Path == "" {
		t.Error("EvalLog.Path should have a default")
	}
	if cfg.EvalLog.RetentionDays != 30 {
		t.Errorf("RetentionDays = %d, want 30", cfg.EvalLog.RetentionDays)
	}
}

func TestSetDevDefaultsNoopWhenDevModeOff(t *testing.T) {
	var cfg GuardctlConfig
	cfg.SetDevDefaults()

	if cfg.Guardrails.HITLEnabled {
		t.Error("SetDevDefaults should not touch HITLEnabled when DevMode is false")
	}
	if len(cfg.Auth.APIKeys) != 0 {
		t.Error("SetDevDefaults should not add API keys when DevMode is false")
	}
}

func TestSetDevDefaultsAppliesPermissiveDefaults(t *testing.T) {
	cfg := GuardctlConfig{DevMode: true}
	cfg.SetDevDefaults()

	if !cfg.Guardrails.HITLEnabled {
		t.Error("dev mode should enable guardrails so the dev config is exercisable")
	}
	if len(cfg.Auth.APIKeys) != 1 {
		t.Errorf("dev mode should seed one API key, got %d", len(cfg.Auth.APIKeys))
	}
}
