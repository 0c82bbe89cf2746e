// Package config provides the configuration schema for guardctl.
//
// Configuration is file-based (YAML) with environment-variable overrides,
// following the same viper + go-playground/validator pattern used
// throughout this codebase's lineage. guardctl's Non-goals exclude a
// database-backed configuration store and an admin web interface; config is
// loaded once at startup and the guardrails section is subsequently
// mutated through the policy store, not by re-reading this file.
package config

// GuardctlConfig is the top-level configuration.
type GuardctlConfig struct {
	// Server configures the admin/approval HTTP listener.
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	// Guardrails is the Policy Store's user-facing configuration (spec
	// §3.5): every mutation here regenerates the compiled policy document.
	Guardrails GuardrailsConfig `yaml:"guardrails" mapstructure:"guardrails"`

	// Auth configures bearer-token authentication for the approval
	// resolution HTTP surface.
	Auth AuthConfig `yaml:"auth" mapstructure:"auth"`

	// EvalLog configures the durable decision log.
	EvalLog EvalLogConfig `yaml:"eval_log" mapstructure:"eval_log"`

	// DevMode enables verbose logging and permissive defaults for local
	// development.
	DevMode bool `yaml:"dev_mode" mapstructure:"dev_mode"`

	// MCPServers maps an mcp_server name (as referenced by mcp:-prefixed
	// tool ids and by Condition.MCPServers) to the HTTP endpoint of the
	// upstream MCP server guardctl dials once a call is approved.
	MCPServers map[string]string `yaml:"mcp_servers" mapstructure:"mcp_servers" validate:"omitempty,dive,url"`
}

// ServerConfig configures the HTTP listener serving the approval-resolution
// API and Prometheus metrics.
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr" mapstructure:"http_addr" validate:"omitempty,hostname_port"`
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn warning error"`
}

// GuardrailsConfig is the Policy Store's configuration object (spec §3.5).
type GuardrailsConfig struct {
	// HITLEnabled is the master switch. false collapses the compiled
	// document to effect_default=allow with no policies.
	HITLEnabled bool `yaml:"hitl_enabled" mapstructure:"hitl_enabled"`

	// DefaultAction is the global fallback strategy.
	DefaultAction string `yaml:"default_action" mapstructure:"default_action" validate:"required,strategy"`

	// DefaultChannel selects which HITL channel resolves an approval when
	// a strategy fires without naming one.
	DefaultChannel string `yaml:"default_channel" mapstructure:"default_channel" validate:"omitempty,oneof=chat phone"`

	// PhoneNumber is where PITL calls go. Empty or E.164.
	PhoneNumber string `yaml:"phone_number" mapstructure:"phone_number" validate:"omitempty,e164"`

	// AITLModel is the model used by the reviewer.
	AITLModel string `yaml:"aitl_model" mapstructure:"aitl_model"`

	// AITLSpotlighting controls whether reviewer input is data-marked
	// before being sent to the reviewer session.
	AITLSpotlighting bool `yaml:"aitl_spotlighting" mapstructure:"aitl_spotlighting"`

	// FilterMode is always "prompt_shields"; present for forward
	// compatibility with alternative filter backends.
	FilterMode string `yaml:"filter_mode" mapstructure:"filter_mode" validate:"omitempty,oneof=prompt_shields"`

	// ContentSafetyEndpoint is the shield service URL.
	ContentSafetyEndpoint string `yaml:"content_safety_endpoint" mapstructure:"content_safety_endpoint" validate:"omitempty,url"`

	// ContentSafetyKey is an optional static API key for the shield
	// endpoint, used when no ambient managed identity is available. This
	// supplements spec §4.5's bearer-token-only authentication story for
	// environments without an identity provider; never logged.
	ContentSafetyKey string `yaml:"content_safety_key" mapstructure:"content_safety_key"`

	// ContextDefaults maps context -> strategy.
	ContextDefaults map[string]string `yaml:"context_defaults" mapstructure:"context_defaults" validate:"omitempty,dive,strategy"`

	// ToolPolicies maps context -> (tool_id -> strategy).
	ToolPolicies map[string]map[string]string `yaml:"tool_policies" mapstructure:"tool_policies"`

	// ModelColumns is the ordered list of models with per-model overrides.
	ModelColumns []string `yaml:"model_columns" mapstructure:"model_columns"`

	// ModelPolicies maps model -> (context -> (tool_id -> strategy)).
	// Every key here must also appear in ModelColumns (see Validate).
	ModelPolicies map[string]map[string]map[string]string `yaml:"model_policies" mapstructure:"model_policies"`

	// Rules is the ordered list of legacy rule objects.
	Rules []RuleConfig `yaml:"rules" mapstructure:"rules" validate:"omitempty,dive"`
}

// RuleConfig is a single legacy rule (spec §3.5).
type RuleConfig struct {
	ID          string   `yaml:"id" mapstructure:"id" validate:"required"`
	Name        string   `yaml:"name" mapstructure:"name"`
	Pattern     string   `yaml:"pattern" mapstructure:"pattern" validate:"required"`
	Scope       string   `yaml:"scope" mapstructure:"scope" validate:"required,oneof=tool mcp"`
	Action      string   `yaml:"action" mapstructure:"action" validate:"required,strategy"`
	Enabled     bool     `yaml:"enabled" mapstructure:"enabled"`
	Contexts    []string `yaml:"contexts" mapstructure:"contexts"`
	Models      []string `yaml:"models" mapstructure:"models"`
	HITLChannel string   `yaml:"hitl_channel" mapstructure:"hitl_channel" validate:"omitempty,oneof=chat phone"`
	// MatchExpression is an optional CEL boolean expression evaluated in
	// addition to Pattern/Scope/Contexts/Models, for conditions those
	// plain fields can't express (e.g. inspecting tool arguments).
	// Neither this package nor the store checks its syntax when it is
	// written: internal/adapter/outbound/celmatch compiles it on first
	// evaluation, and an expression that fails to compile or evaluate
	// makes the rule not match.
	MatchExpression string `yaml:"match_expression" mapstructure:"match_expression"`
}

// AuthConfig configures bearer-token authentication for the approval
// resolution HTTP surface.
type AuthConfig struct {
	// APIKeys authenticate operators who resolve pending approvals over
	// HTTP. Hashes use argon2id (see internal/domain/auth).
	APIKeys []APIKeyConfig `yaml:"api_keys" mapstructure:"api_keys" validate:"omitempty,dive"`
}

// APIKeyConfig is a single approval-surface API key.
type APIKeyConfig struct {
	KeyHash string `yaml:"key_hash" mapstructure:"key_hash" validate:"required"`
	Name    string `yaml:"name" mapstructure:"name" validate:"required"`
}

// EvalLogConfig configures the durable sqlite-backed decision log.
type EvalLogConfig struct {
	Path          string `yaml:"path" mapstructure:"path"`
	RetentionDays int    `yaml:"retention_days" mapstructure:"retention_days" validate:"omitempty,min=1"`
}

// SetDefaults applies sensible defaults, mirroring the OSS config's
// viper.IsSet pattern so an explicitly-false boolean is never silently
// overwritten.
func (c *GuardctlConfig) SetDefaults() {
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = "127.0.0.1:8090"
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}

	if c.Guardrails.DefaultAction == "" {
		c.Guardrails.DefaultAction = "hitl"
	}
	if c.Guardrails.DefaultChannel == "" {
		c.Guardrails.DefaultChannel = "chat"
	}
	if c.Guardrails.FilterMode == "" {
		c.Guardrails.FilterMode = "prompt_shields"
	}
	if c.Guardrails.AITLModel == "" {
		c.Guardrails.AITLModel = "claude-sonnet-4.6"
	}

	if c.EvalLog.Path == "" {
		c.EvalLog.Path = "guardctl-evallog.db"
	}
	if c.EvalLog.RetentionDays == 0 {
		c.EvalLog.RetentionDays = 30
	}
}

// SetDevDefaults applies permissive defaults for development mode, mirroring
// the teacher's dev-allow-all bootstrap so guardctl runs with minimal
// configuration.
func (c *GuardctlConfig) SetDevDefaults() {
	if !c.DevMode {
		return
	}
	if !c.Guardrails.HITLEnabled {
		c.Guardrails.HITLEnabled = true
	}
	if len(c.Auth.APIKeys) == 0 {
		c.Auth.APIKeys = []APIKeyConfig{
			{Name: "dev", KeyHash: "argon2id:$argon2id$v=19$m=48128,t=1,p=1$ZGV2LXNhbHQ$ZGV2LWhhc2g"},
		}
	}
}
