// Package review holds the two external-model helpers consulted by the
// HITL interceptor -- the AITL reviewer and the Prompt Shield filter -- and
// the spotlighting transforms used to neutralize untrusted content before
// either one sees it.
package review

import "context"

// ReviewRequest is what the HITL interceptor hands the AITL reviewer for a
// single verdict.
type ReviewRequest struct {
	ToolName  string
	Arguments string
	Context   string
}

// ReviewResult is the reviewer's verdict.
type ReviewResult struct {
	Approved bool
	Reason   string
}

// Reviewer is an AI-in-the-loop verdict source: a detached model
// invocation bounded by a timeout that the caller (not Reviewer) enforces.
// Implementations carry no state between calls; multiple reviews may run
// concurrently.
type Reviewer interface {
	Review(ctx context.Context, req ReviewRequest) ReviewResult
}

// ShieldResult is the outcome of a Prompt Shield check. Failed distinguishes
// "the shield ran and found nothing" from "the shield could not be
// consulted" -- the two report the same AttackDetected=false but callers
// that are fail-closed for this strategy (the filter strategy) must deny on
// Failed rather than treat it as a clean check.
type ShieldResult struct {
	AttackDetected bool
	Failed         bool
	Detail         string
}

// Shield is a thin client of an external prompt-injection classifier. Check
// never returns an error: a network or auth failure is reported as
// ShieldResult{Failed: true, Detail: "..."} so callers can apply
// fail-open/fail-closed semantics themselves (see the HITL interceptor).
type Shield interface {
	Check(ctx context.Context, text string) ShieldResult
	DryRun(ctx context.Context) ShieldResult
	Configured() bool
}
