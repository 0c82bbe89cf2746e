package approval

import (
	"strings"
	"sync"
)

// pendingTable holds the chat-channel one-shot futures, keyed by
// toolCallId, plus the single outstanding bot-channel future (only one bot
// prompt is ever in flight at a time). Writes are short; lock-free readers
// are not supported, per the concurrency model.
type pendingTable struct {
	mu  sync.Mutex
	chat map[string]*pendingWait
	bot  *pendingWait
}

func newPendingTable() *pendingTable {
	return &pendingTable{chat: make(map[string]*pendingWait)}
}

// registerChat registers a one-shot future for toolCallId and returns it.
func (t *pendingTable) registerChat(toolCallID string) *pendingWait {
	t.mu.Lock()
	defer t.mu.Unlock()
	w := newPendingWait()
	t.chat[toolCallID] = w
	return w
}

func (t *pendingTable) removeChat(toolCallID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.chat, toolCallID)
}

// registerBot registers the single outstanding bot-channel future,
// replacing (and losing) any prior one.
func (t *pendingTable) registerBot() *pendingWait {
	t.mu.Lock()
	defer t.mu.Unlock()
	w := newPendingWait()
	t.bot = w
	return w
}

func (t *pendingTable) removeBot(w *pendingWait) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.bot == w {
		t.bot = nil
	}
}

// ResolveApproval completes the chat future for toolCallID. It returns true
// iff an entry was pending.
func (t *pendingTable) ResolveApproval(toolCallID string, approved bool) bool {
	t.mu.Lock()
	w, ok := t.chat[toolCallID]
	t.mu.Unlock()
	if !ok {
		return false
	}
	return w.resolve(approved, "")
}

// ResolveBotReply completes the single bot future. Approved iff the
// lower-cased trimmed first token of text is "y" or "yes"; any other text,
// including unrelated chatter, denies. Returns true iff one was pending.
func (t *pendingTable) ResolveBotReply(text string) bool {
	t.mu.Lock()
	w := t.bot
	t.mu.Unlock()
	if w == nil {
		return false
	}
	approved := firstTokenIsYes(text)
	reason := ""
	if !approved {
		reason = "bot reply did not affirm"
	}
	return w.resolve(approved, reason)
}

// HasPendingApproval reports whether any chat or bot approval is currently
// outstanding, used by message dispatchers to decide whether inbound text
// is an approval response or a new request.
func (t *pendingTable) HasPendingApproval() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.chat) > 0 || t.bot != nil
}

func firstTokenIsYes(text string) bool {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return false
	}
	token := strings.ToLower(fields[0])
	return token == "y" || token == "yes"
}
