// Package approval implements the HITL interceptor: the pre-tool-use
// coordinator that turns a policy.Decision into a concrete allow/deny
// permission by racing chat, bot, and phone-verification approval sources
// under strict latency and cancellation bounds.
package approval

import (
	"sync"
	"time"

	"github.com/sentineltrace/guardctl/internal/domain/policy"
)

// ChannelRaceTimeout bounds the hitl channel race: chat and bot futures
// race for at most this long before the pipeline denies by default.
const ChannelRaceTimeout = 300 * time.Second

// ReviewTimeout bounds an AITL reviewer call (spec: 30s).
const ReviewTimeout = 30 * time.Second

// Request is the pre-tool-use hook's input: a description of the tool call
// about to run, produced by the session runtime.
type Request struct {
	ToolCallID string
	ToolName   string
	ToolArgs   string
	MCPServer  string
}

// Decision is the pre-tool-use hook's output.
type Decision struct {
	Permission   Permission
	ModifiedArgs string
	Reason       string
	Channel      policy.Channel
	// Strategy is the resolved policy.Strategy that produced this
	// decision, carried through so ambient collaborators (metrics,
	// evaluation logging) can label by it instead of re-deriving a
	// coarse allow/deny split from Permission.
	Strategy policy.Strategy
	// TimedOut reports whether this decision resulted from an AITL
	// review exceeding ReviewTimeout, so EvaluationService can record
	// guardctl_reviewer_timeouts_total without the domain layer knowing
	// about metrics.
	TimedOut bool
}

// Permission is the closed allow/deny outcome returned to the session
// runtime.
type Permission string

const (
	PermissionAllow Permission = "allow"
	PermissionDeny  Permission = "deny"
)

func allow(reason string, strategy policy.Strategy) Decision {
	return Decision{Permission: PermissionAllow, Reason: reason, Strategy: strategy}
}

func deny(reason string, channel policy.Channel, strategy policy.Strategy) Decision {
	return Decision{Permission: PermissionDeny, Reason: reason, Channel: channel, Strategy: strategy}
}

// ChatApproval is the payload resolve_approval hands back for a pending
// chat-channel request.
type ChatApproval struct {
	Approved bool
}

// pendingWait is a one-shot future: exactly one of approved/timeout/cancel
// ever completes it, and the first write wins (buffered channel of size 1).
// done is closed once the dispatcher stops waiting on result (the race was
// won elsewhere, or the whole call timed out or was cancelled), so the
// goroutine forwarding this wait into the race's resultCh never blocks
// forever on a result that will never arrive.
type pendingWait struct {
	result   chan waitResult
	done     chan struct{}
	closeDone sync.Once
}

type waitResult struct {
	approved bool
	reason   string
}

func newPendingWait() *pendingWait {
	return &pendingWait{result: make(chan waitResult, 1), done: make(chan struct{})}
}

func (p *pendingWait) resolve(approved bool, reason string) bool {
	select {
	case p.result <- waitResult{approved: approved, reason: reason}:
		return true
	default:
		return false
	}
}

// cancel signals this wait's forwarding goroutine to give up on result. Safe
// to call more than once.
func (p *pendingWait) cancel() {
	p.closeDone.Do(func() { close(p.done) })
}
