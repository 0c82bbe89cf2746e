package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"github.com/sentineltrace/guardctl/internal/config"
	"github.com/sentineltrace/guardctl/internal/domain/policy"
)

// yamlDocument is the companion-file shape written alongside the JSON
// config, a human-readable view of the compiled policy document (spec
// §4.3 step 5). It is never read back by ConfigStore -- JSON is the
// source of truth -- but operators can inspect or diff it.
type yamlDocument struct {
	APIVersion string            `yaml:"apiVersion"`
	Kind       string            `yaml:"kind"`
	Metadata   yamlMetadata      `yaml:"metadata"`
	Defaults   yamlDefaults      `yaml:"defaults"`
	Fallbacks  map[string]string `yaml:"context_fallbacks,omitempty"`
	Policies   []yamlPolicy      `yaml:"policies"`
}

type yamlMetadata struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

type yamlDefaults struct {
	Effect  string `yaml:"effect"`
	Channel string `yaml:"channel"`
}

type yamlPolicy struct {
	ID        string        `yaml:"id"`
	Name      string        `yaml:"name,omitempty"`
	Priority  int           `yaml:"priority"`
	Condition yamlCondition `yaml:"condition"`
	Effect    string        `yaml:"effect"`
	Channel   string        `yaml:"channel,omitempty"`
}

type yamlCondition struct {
	Modes      []string `yaml:"modes,omitempty"`
	Tools      []string `yaml:"tools,omitempty"`
	Models     []string `yaml:"models,omitempty"`
	MCPServers []string `yaml:"mcp_servers,omitempty"`
}

// ConfigStore owns the GuardrailsConfig, the JSON file it persists to, and
// the compiled policy.Engine readers consult. Every mutation follows the
// five-step sequence from spec §4.3: mutate config, write JSON, recompile
// the document, rebuild the engine, write the YAML companion file.
//
// Readers call Engine() and get a lock-free, wait-free snapshot: the
// compiled engine is published through an atomic.Value swap, the same
// pattern the teacher's policy service uses to let concurrent tool calls
// resolve against a consistent document while a mutation is in flight.
type ConfigStore struct {
	mu       sync.Mutex // serializes writers; readers never block
	jsonPath string
	yamlPath string
	logger   *slog.Logger
	cfg      config.GuardrailsConfig
	engine   atomic.Value // holds policy.Engine
	expr     policy.ExpressionMatcher
}

// SetExpressionMatcher wires an optional CEL match_expression evaluator
// into every engine this store compiles from here on (internal/adapter/
// outbound/celmatch.Evaluator satisfies this). Passing nil reverts to the
// plain list-based Condition.Matches behavior. Either way, the current
// engine is immediately recompiled so the change takes effect without
// waiting for the next config mutation.
func (s *ConfigStore) SetExpressionMatcher(m policy.ExpressionMatcher) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expr = m
	return s.recompileAndPersistLocked()
}

// NewConfigStore loads jsonPath (or starts from cfg if the file does not
// exist yet) and compiles the initial engine.
func NewConfigStore(jsonPath, yamlPath string, cfg config.GuardrailsConfig, logger *slog.Logger) (*ConfigStore, error) {
	s := &ConfigStore{
		jsonPath: jsonPath,
		yamlPath: yamlPath,
		logger:   logger,
		cfg:      cfg,
	}

	if data, err := os.ReadFile(jsonPath); err == nil {
		var loaded config.GuardrailsConfig
		if err := json.Unmarshal(data, &loaded); err != nil {
			return nil, fmt.Errorf("parse guardrails config: %w", err)
		}
		s.cfg = loaded
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read guardrails config: %w", err)
	}

	doc := Compile(s.cfg)
	s.engine.Store(policy.Engine(policy.NewEngine(doc)))

	if err := s.persist(); err != nil {
		return nil, err
	}
	return s, nil
}

// Engine returns the currently published Engine. Safe for concurrent use
// without holding any lock.
func (s *ConfigStore) Engine() policy.Engine {
	return s.engine.Load().(policy.Engine)
}

// Config returns a copy of the current GuardrailsConfig.
func (s *ConfigStore) Config() config.GuardrailsConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// SetConfig replaces the GuardrailsConfig wholesale, recompiles, and
// republishes the engine.
func (s *ConfigStore) SetConfig(cfg config.GuardrailsConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	return s.recompileAndPersistLocked()
}

// ApplyPreset merges a preset's context defaults and per-context tool
// policies into the current config, keeping whichever strategy is more
// restrictive on any overlap (policy.MergeStrategy). Every model listed in
// ModelColumns then has its column rewritten from the tool policies of
// policy.EffectivePresetFor(preset, model). Finally it recompiles.
func (s *ConfigStore) ApplyPreset(preset policy.Preset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	built := policy.BuildPresetPolicies(preset)

	if s.cfg.ContextDefaults == nil {
		s.cfg.ContextDefaults = map[string]string{}
	}
	for ctx, strategy := range built.ContextDefaults {
		s.cfg.ContextDefaults[string(ctx)] = s.mergeLocked(s.cfg.ContextDefaults[string(ctx)], strategy)
	}

	if s.cfg.ToolPolicies == nil {
		s.cfg.ToolPolicies = map[string]map[string]string{}
	}
	for ctx, tools := range built.ToolPolicies {
		existing, ok := s.cfg.ToolPolicies[string(ctx)]
		if !ok {
			existing = map[string]string{}
			s.cfg.ToolPolicies[string(ctx)] = existing
		}
		for tool, strategy := range tools {
			existing[tool] = s.mergeLocked(existing[tool], strategy)
		}
	}

	for _, model := range s.cfg.ModelColumns {
		modelBuilt := policy.BuildPresetPolicies(policy.EffectivePresetFor(preset, model))
		column := make(map[string]map[string]string, len(modelBuilt.ToolPolicies))
		for ctx, tools := range modelBuilt.ToolPolicies {
			row := make(map[string]string, len(tools))
			for tool, strategy := range tools {
				row[tool] = string(strategy)
			}
			column[string(ctx)] = row
		}
		if s.cfg.ModelPolicies == nil {
			s.cfg.ModelPolicies = map[string]map[string]map[string]string{}
		}
		s.cfg.ModelPolicies[model] = column
	}
	return s.recompileAndPersistLocked()
}

// mergeLocked returns whichever of the current stored strategy string and
// candidate is more restrictive. An unparsable current value is replaced
// outright.
func (s *ConfigStore) mergeLocked(current string, candidate policy.Strategy) string {
	if current == "" {
		return string(candidate)
	}
	currentStrategy, err := policy.ParseStrategy(current)
	if err != nil {
		return string(candidate)
	}
	return string(policy.MergeStrategy(currentStrategy, candidate))
}

// SetPolicyDocument overwrites the compiled document directly, classifying
// it back into GuardrailsConfig (Decompile) before persisting -- used when
// an operator edits the YAML companion file by hand and resubmits it.
func (s *ConfigStore) SetPolicyDocument(doc policy.PolicyDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	reversed := Decompile(doc)
	reversed.HITLEnabled = s.cfg.HITLEnabled
	reversed.PhoneNumber = s.cfg.PhoneNumber
	reversed.AITLModel = s.cfg.AITLModel
	reversed.AITLSpotlighting = s.cfg.AITLSpotlighting
	reversed.FilterMode = s.cfg.FilterMode
	reversed.ContentSafetyEndpoint = s.cfg.ContentSafetyEndpoint
	reversed.ContentSafetyKey = s.cfg.ContentSafetyKey
	s.cfg = reversed
	return s.recompileAndPersistLocked()
}

// SetPolicyYAML implements set_policy_yaml (spec §4.3): parse raw YAML text
// in the §6.1 PolicySet wire format, reverse-compile it to GuardrailsConfig
// fields, persist, and rebuild the engine -- the full yaml_to_config path,
// completing the round trip that writeYAMLCompanion's config_to_yaml starts.
func (s *ConfigStore) SetPolicyYAML(data []byte) error {
	doc, err := ParsePolicySetYAML(data)
	if err != nil {
		return fmt.Errorf("set policy yaml: %w", err)
	}
	return s.SetPolicyDocument(doc)
}

// ResolveChannel mirrors resolve_channel: scan enabled legacy rules for the
// first whose pattern matches tool (bare match, no condition semantics),
// returning its hitl_channel if set, otherwise the configured default.
// When guardrails are disabled the channel is forced to "chat".
func (s *ConfigStore) ResolveChannel(tool string) policy.Channel {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.cfg.HITLEnabled {
		return policy.ChannelChat
	}
	for _, rule := range s.cfg.Rules {
		if !rule.Enabled || rule.Pattern != tool {
			continue
		}
		if rule.HITLChannel == "phone" {
			return policy.ChannelPhone
		}
		if rule.HITLChannel != "" {
			return policy.ChannelChat
		}
		break
	}
	channel, err := policy.ParseChannel(s.cfg.DefaultChannel)
	if err != nil {
		return policy.ChannelChat
	}
	return channel
}

func (s *ConfigStore) recompileAndPersistLocked() error {
	doc := Compile(s.cfg)
	if err := s.persist(); err != nil {
		return err
	}
	engine := policy.NewEngine(doc)
	if s.expr != nil {
		s.engine.Store(policy.Engine(engine.WithExpressions(s.expr)))
	} else {
		s.engine.Store(policy.Engine(engine))
	}
	return nil
}

// persist writes the JSON config file atomically (flock, backup,
// write-tmp-then-fsync-then-rename) and the YAML companion document.
func (s *ConfigStore) persist() error {
	lockPath := s.jsonPath + ".lock"
	lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}
	defer func() { _ = lockFile.Close() }()

	if err := flockLock(lockFile.Fd()); err != nil {
		return fmt.Errorf("acquire file lock: %w", err)
	}
	defer flockUnlock(lockFile.Fd()) //nolint:errcheck

	if current, readErr := os.ReadFile(s.jsonPath); readErr == nil {
		if writeErr := os.WriteFile(s.jsonPath+".bak", current, 0o600); writeErr != nil {
			s.logger.Warn("failed to back up guardrails config", "error", writeErr)
		}
	}

	data, err := json.MarshalIndent(s.cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal guardrails config: %w", err)
	}
	data = append(data, '\n')

	if err := writeAtomic(s.jsonPath, data); err != nil {
		return err
	}
	if err := os.Chmod(s.jsonPath, 0o600); err != nil {
		s.logger.Warn("failed to set permissions on guardrails config", "error", err)
	}

	if s.yamlPath != "" {
		if err := s.writeYAMLCompanion(); err != nil {
			s.logger.Warn("failed to write yaml companion file", "error", err)
		}
	}

	s.logger.Debug("guardrails config saved", "path", s.jsonPath)
	return nil
}

func (s *ConfigStore) writeYAMLCompanion() error {
	doc := Compile(s.cfg)
	out := yamlDocument{
		APIVersion: "guardctl/v1",
		Kind:       "PolicySet",
		Metadata: yamlMetadata{
			Name:        "guardctl-guardrails",
			Description: "Auto-generated from the guardctl policy store.",
		},
		Defaults: yamlDefaults{
			Effect:  string(doc.EffectDefault),
			Channel: string(doc.ChannelDefault),
		},
	}
	if len(doc.ContextFallbacks) > 0 {
		out.Fallbacks = make(map[string]string, len(doc.ContextFallbacks))
		for from, to := range doc.ContextFallbacks {
			out.Fallbacks[string(from)] = string(to)
		}
	}
	for _, p := range doc.Policies {
		out.Policies = append(out.Policies, yamlPolicy{
			ID:       p.ID,
			Name:     p.Name,
			Priority: p.Priority,
			Effect:   string(p.Effect),
			Channel:  string(p.Channel),
			Condition: yamlCondition{
				Modes:      contextsToStrings(p.Condition.Modes),
				Tools:      p.Condition.Tools,
				Models:     p.Condition.Models,
				MCPServers: p.Condition.MCPServers,
			},
		})
	}

	data, err := yaml.Marshal(out)
	if err != nil {
		return fmt.Errorf("marshal yaml companion: %w", err)
	}
	return writeAtomic(s.yamlPath, data)
}

func contextsToStrings(modes []policy.Context) []string {
	if len(modes) == 0 {
		return nil
	}
	out := make([]string, len(modes))
	for i, m := range modes {
		out[i] = string(m)
	}
	return out
}

// writeAtomic writes data to path via a temp file: write, fsync, rename.
func writeAtomic(path string, data []byte) error {
	tmpPath := path + ".tmp"

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	cleanup := func() {
		_ = f.Close()
		_ = os.Remove(tmpPath)
	}

	if _, err := f.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("fsync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
