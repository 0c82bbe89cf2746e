package policy

// ExpressionMatcher evaluates a policy's optional Condition.MatchExpression
// against ctx. Implementations live in an adapter package (CEL-backed); the
// domain layer only depends on this narrow interface.
type ExpressionMatcher interface {
	Matches(expression string, ctx EvaluationContext) (bool, error)
}

// Engine evaluates an EvaluationContext against a PolicyDocument. It is a
// pure function of its inputs: two calls with equal inputs and an equal
// document always return the same Decision, and it performs no I/O.
type Engine interface {
	Resolve(ctx EvaluationContext) Decision
}

// DocumentEngine is the reference Engine implementation: a closure over an
// immutable PolicyDocument snapshot.
type DocumentEngine struct {
	doc         PolicyDocument
	expressions ExpressionMatcher
}

// NewEngine builds an Engine bound to doc. doc is never mutated by Resolve.
func NewEngine(doc PolicyDocument) DocumentEngine {
	return DocumentEngine{doc: doc}
}

// WithExpressions returns a copy of e that additionally consults m for any
// policy carrying a non-empty Condition.MatchExpression. A nil matcher (the
// zero value) makes Resolve ignore MatchExpression entirely, so a document
// built without any expressions behaves exactly as before.
func (e DocumentEngine) WithExpressions(m ExpressionMatcher) DocumentEngine {
	e.expressions = m
	return e
}

// Document returns the snapshot this engine resolves against.
func (e DocumentEngine) Document() PolicyDocument {
	return e.doc
}

// Resolve implements Engine.
//
// Algorithm (spec-mandated, not an implementation choice):
//  1. Collect every enabled policy whose condition matches ctx.
//  2. Among matches, return the effect of the policy with the lowest
//     priority number; ties are broken by policy id (lexicographic).
//  3. If nothing matches, return the document's effect_default.
//
// The document's Policies slice is pre-sorted into exactly this order by
// NewDocument/SortPolicies, so resolution is a single linear scan for the
// first match -- no sort happens per call.
func (e DocumentEngine) Resolve(ctx EvaluationContext) Decision {
	for _, p := range e.doc.Policies {
		if !p.Condition.Matches(ctx, e.doc.ContextFallbacks) {
			continue
		}
		if expr := p.Condition.MatchExpression; expr != "" && e.expressions != nil {
			ok, err := e.expressions.Matches(expr, ctx)
			if err != nil || !ok {
				continue
			}
		}
		channel := p.Channel
		if channel == ChannelNone {
			channel = e.doc.ChannelDefault
		}
		return Decision{
			Strategy: p.Effect,
			Channel:  channel,
			PolicyID: p.ID,
			Reason:   "matched policy " + p.ID,
		}
	}
	return Decision{
		Strategy: e.doc.EffectDefault,
		Channel:  e.doc.ChannelDefault,
		Reason:   "no matching policy (default)",
	}
}
