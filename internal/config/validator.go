package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sentineltrace/guardctl/internal/domain/policy"
)

var e164Pattern = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)

// RegisterCustomValidators registers guardctl-specific validation rules.
// Must be called before validating GuardctlConfig.
func RegisterCustomValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("strategy", validateStrategy); err != nil {
		return fmt.Errorf("failed to register strategy validator: %w", err)
	}
	if err := v.RegisterValidation("e164", validateE164); err != nil {
		return fmt.Errorf("failed to register e164 validator: %w", err)
	}
	return nil
}

// validateStrategy checks a field against the closed strategy set (spec
// §3.1), accepting the legacy "ask" synonym.
func validateStrategy(fl validator.FieldLevel) bool {
	_, err := policy.ParseStrategy(fl.Field().String())
	return err == nil
}

// validateE164 checks a field is either empty or a valid E.164 string.
func validateE164(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}
	return e164Pattern.MatchString(s)
}

// Validate validates GuardctlConfig using struct tags and custom
// cross-field rules.
func (c *GuardctlConfig) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())

	if err := RegisterCustomValidators(v); err != nil {
		return err
	}

	if err := v.Struct(c); err != nil {
		return formatValidationErrors(err)
	}

	if err := c.validateModelColumnsComplete(); err != nil {
		return err
	}
	if err := c.validateToolPolicyStrategies(); err != nil {
		return err
	}

	return nil
}

// validateModelColumnsComplete ensures every model with an entry in
// ModelPolicies is also listed in ModelColumns (spec §3.5 invariant).
func (c *GuardctlConfig) validateModelColumnsComplete() error {
	known := make(map[string]struct{}, len(c.Guardrails.ModelColumns))
	for _, m := range c.Guardrails.ModelColumns {
		known[m] = struct{}{}
	}
	for model := range c.Guardrails.ModelPolicies {
		if _, ok := known[model]; !ok {
			return fmt.Errorf("guardrails.model_policies: %q is not listed in model_columns", model)
		}
	}
	return nil
}

// validateToolPolicyStrategies checks every strategy value reachable
// through tool_policies/model_policies, since those are plain maps and
// cannot carry a "dive,strategy" struct tag.
func (c *GuardctlConfig) validateToolPolicyStrategies() error {
	for ctx, tools := range c.Guardrails.ToolPolicies {
		for toolID, strategy := range tools {
			if _, err := policy.ParseStrategy(strategy); err != nil {
				return fmt.Errorf("guardrails.tool_policies[%s][%s]: %w", ctx, toolID, err)
			}
		}
	}
	for model, contexts := range c.Guardrails.ModelPolicies {
		for ctx, tools := range contexts {
			for toolID, strategy := range tools {
				if _, err := policy.ParseStrategy(strategy); err != nil {
					return fmt.Errorf("guardrails.model_policies[%s][%s][%s]: %w", model, ctx, toolID, err)
				}
			}
		}
	}
	return nil
}

// formatValidationErrors converts validator.ValidationErrors to
// user-friendly messages.
func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		var messages []string
		for _, e := range validationErrors {
			messages = append(messages, formatSingleValidationError(e))
		}
		return errors.New(strings.Join(messages, "; "))
	}
	return err
}

func formatSingleValidationError(e validator.FieldError) string {
	field := e.Namespace()
	tag := e.Tag()

	switch tag {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must have at least %s items", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "hostname_port":
		return fmt.Sprintf("%s must be a valid host:port", field)
	case "strategy":
		return fmt.Sprintf("%s must be a known strategy", field)
	case "e164":
		return fmt.Sprintf("%s must be a valid E.164 phone number", field)
	default:
		return fmt.Sprintf("%s failed validation: %s", field, tag)
	}
}
