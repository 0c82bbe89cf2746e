// Package celmatch implements policy.ExpressionMatcher with CEL, letting a
// Policy's Condition.MatchExpression reference tool_name/mode/model/
// mcp_server/arguments for conditions richer than the plain list
// conjunction in Condition.Matches.
package celmatch

import (
	"path/filepath"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/ext"
)

// newMatchEnvironment builds the CEL environment every match_expression
// compiles against: the scalar fields of an EvaluationContext plus its
// free-form arguments map, and the string/glob helpers policy authors need
// for tool-name matching.
func newMatchEnvironment() (*cel.Env, error) {
	return cel.NewEnv(
		ext.Strings(),

		cel.Variable("tool_name", cel.StringType),
		cel.Variable("mode", cel.StringType),
		cel.Variable("model", cel.StringType),
		cel.Variable("mcp_server", cel.StringType),
		cel.Variable("arguments", cel.MapType(cel.StringType, cel.DynType)),

		// glob: shell-style pattern matching, chiefly useful against
		// tool_name ("bash_*") and mcp_server.
		cel.Function("glob",
			cel.Overload("glob_string_string",
				[]*cel.Type{cel.StringType, cel.StringType},
				cel.BoolType,
				cel.BinaryBinding(func(pattern, value ref.Val) ref.Val {
					matched, _ := filepath.Match(pattern.Value().(string), value.Value().(string))
					return types.Bool(matched)
				}),
			),
		),
	)
}
