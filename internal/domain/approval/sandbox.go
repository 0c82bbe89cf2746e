package approval

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SandboxIdleTimeout is how long a provisioned sandbox session may sit idle
// before SandboxInterceptor tears it down (spec §4.6.8).
const SandboxIdleTimeout = 60 * time.Second

// SandboxResult is what a remote sandbox session returns for one command.
type SandboxResult struct {
	Success bool
	Stdout  string
	Stderr  string
}

// SandboxExecutor is the remote-session collaborator a SandboxInterceptor
// drives: provision an isolated session, run a command inside it, and tear
// it down. Concrete backends (a container runtime, a cloud dynamic-sessions
// API) are an external collaborator -- "sandboxing of tool execution" is one
// of the out-of-scope concerns spec.md §1 names explicitly -- so this
// interface has no adapter in this tree, matching PhoneVerifier's treatment
// of outbound telephony.
type SandboxExecutor interface {
	ProvisionSession(ctx context.Context, sessionID string) error
	RunInSession(ctx context.Context, sessionID, command string, timeout time.Duration) (SandboxResult, error)
	DestroySession(ctx context.Context, sessionID string) error
}

// shellToolPatterns identifies shell-class tools: any tool whose name
// contains one of these substrings is subject to sandbox replay.
var shellToolPatterns = []string{"terminal", "shell", "bash", "command"}

func isShellTool(name string) bool {
	lower := strings.ToLower(name)
	for _, p := range shellToolPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// extractCommand pulls the command string out of a tool call's arguments,
// trying the same key fallback order as the original implementation.
func extractCommand(args string) string {
	var parsed map[string]any
	if err := json.Unmarshal([]byte(args), &parsed); err != nil {
		return ""
	}
	for _, key := range []string{"command", "cmd", "input", "script"} {
		if v, ok := parsed[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// rewriteCommand replaces args' "command" field with replay, and its
// "input" field too if present, leaving every other key untouched.
func rewriteCommand(args, replay string) string {
	var parsed map[string]any
	if err := json.Unmarshal([]byte(args), &parsed); err != nil {
		parsed = map[string]any{}
	}
	parsed["command"] = replay
	if _, ok := parsed["input"]; ok {
		parsed["input"] = replay
	}
	out, err := json.Marshal(parsed)
	if err != nil {
		return args
	}
	return string(out)
}

// buildReplayCommand turns a captured sandbox result into a local shell
// command that reproduces its stdout/stderr/exit status without actually
// running anything on the local host.
func buildReplayCommand(stdout, stderr string, success bool) string {
	var parts []string
	if stdout != "" {
		parts = append(parts, "printf %s "+shellQuote(stdout))
	}
	if stderr != "" {
		parts = append(parts, "printf %s "+shellQuote(stderr)+" >&2")
	}
	if !success {
		parts = append(parts, "exit 1")
	}
	if len(parts) == 0 {
		return "true"
	}
	return strings.Join(parts, " ; ")
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// SandboxInterceptor is the optional peer interceptor described in spec
// §4.6.8: it sits in front of the HITL interceptor for shell-class tools
// when a SandboxExecutor is wired in. It never makes an allow/deny
// decision -- both it and the HITL interceptor always run -- it only
// relocates *where* the command runs: the real command executes inside a
// lazily-provisioned remote session, and the local tool call is rewritten
// to a no-op that replays the captured stdout/stderr/exit status.
type SandboxInterceptor struct {
	executor SandboxExecutor
	idleWait time.Duration

	mu            sync.Mutex
	sessionID     string
	sessionReady  bool
	lastActivity  time.Time
	idleTimer     *time.Timer
	pendingResult *SandboxResult
}

// NewSandboxInterceptor wires a SandboxInterceptor to executor.
func NewSandboxInterceptor(executor SandboxExecutor) *SandboxInterceptor {
	return &SandboxInterceptor{executor: executor, idleWait: SandboxIdleTimeout}
}

// OnPreToolUse intercepts a shell-class tool call, runs its command inside a
// remote session, and returns req rewritten to replay the captured output
// locally. Non-shell tools and calls with no extractable command pass
// through unchanged. execTimeout bounds the remote command itself.
func (s *SandboxInterceptor) OnPreToolUse(ctx context.Context, req Request, execTimeout time.Duration) Request {
	if s.executor == nil || !isShellTool(req.ToolName) {
		return req
	}
	command := extractCommand(req.ToolArgs)
	if command == "" {
		return req
	}

	sessionID, err := s.ensureSession(ctx)
	var result SandboxResult
	if err != nil {
		result = SandboxResult{Success: false, Stderr: err.Error()}
	} else {
		result, err = s.executor.RunInSession(ctx, sessionID, command, execTimeout)
		if err != nil {
			result = SandboxResult{Success: false, Stderr: err.Error()}
		}
		s.touch()
	}

	s.mu.Lock()
	r := result
	s.pendingResult = &r
	s.mu.Unlock()

	replay := buildReplayCommand(result.Stdout, result.Stderr, result.Success)
	req.ToolArgs = rewriteCommand(req.ToolArgs, replay)
	return req
}

// OnPostToolUse consumes the result captured by the most recent OnPreToolUse
// call and returns the text that should replace the tool's local output.
// Returns ok=false when no sandboxed call is pending.
func (s *SandboxInterceptor) OnPostToolUse() (output string, ok bool) {
	s.mu.Lock()
	result := s.pendingResult
	s.pendingResult = nil
	s.mu.Unlock()
	if result == nil {
		return "", false
	}

	var parts []string
	if result.Stdout != "" {
		parts = append(parts, result.Stdout)
	}
	if result.Stderr != "" {
		parts = append(parts, "STDERR:\n"+result.Stderr)
	}
	output = "(no output)"
	if len(parts) > 0 {
		output = strings.Join(parts, "\n")
	}
	if !result.Success {
		output = "Command failed in sandbox.\n" + output
	}
	return output, true
}

func (s *SandboxInterceptor) ensureSession(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.sessionID != "" && s.sessionReady {
		id := s.sessionID
		s.lastActivity = time.Now()
		s.mu.Unlock()
		return id, nil
	}
	id := uuid.NewString()
	s.sessionID = id
	s.sessionReady = false
	s.lastActivity = time.Now()
	s.mu.Unlock()

	if err := s.executor.ProvisionSession(ctx, id); err != nil {
		s.mu.Lock()
		if s.sessionID == id {
			s.sessionID = ""
		}
		s.mu.Unlock()
		return "", err
	}

	s.mu.Lock()
	ready := s.sessionID == id
	if ready {
		s.sessionReady = true
	}
	s.mu.Unlock()
	if !ready {
		// A concurrent teardown already reclaimed this session id; the
		// caller's command still runs, just without idle tracking.
		return id, nil
	}
	s.startIdleTimer()
	return id, nil
}

func (s *SandboxInterceptor) touch() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

func (s *SandboxInterceptor) startIdleTimer() {
	s.mu.Lock()
	if s.idleTimer != nil {
		s.idleTimer.Stop()
	}
	s.idleTimer = time.AfterFunc(s.idleWait, s.reapIfIdle)
	s.mu.Unlock()
}

// reapIfIdle runs on the idle timer. It re-arms itself if activity landed
// since it was scheduled, mirroring the original's poll-and-check reaper
// loop without the busy-wait.
func (s *SandboxInterceptor) reapIfIdle() {
	s.mu.Lock()
	if s.sessionID == "" {
		s.mu.Unlock()
		return
	}
	idleFor := time.Since(s.lastActivity)
	if idleFor < s.idleWait {
		s.idleTimer = time.AfterFunc(s.idleWait-idleFor, s.reapIfIdle)
		s.mu.Unlock()
		return
	}
	id := s.sessionID
	s.sessionID = ""
	s.sessionReady = false
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = s.executor.DestroySession(ctx, id)
}

// Teardown destroys any active session unconditionally. Intended for use at
// server shutdown.
func (s *SandboxInterceptor) Teardown(ctx context.Context) {
	s.mu.Lock()
	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}
	id := s.sessionID
	s.sessionID = ""
	s.sessionReady = false
	s.mu.Unlock()
	if id == "" {
		return
	}
	_ = s.executor.DestroySession(ctx, id)
}
