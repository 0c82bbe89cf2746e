package evallog

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "evallog.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRecordAndRecentEvaluations(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	if err := s.RecordEvaluation(ctx, EvaluationRecord{
		ToolCallID: "call-1", ToolName: "run", Mode: "interactive",
		Strategy: "hitl", PolicyID: "ctx-interactive-run", Channel: "chat",
		Reason: "matched policy ctx-interactive-run", CreatedAt: now,
	}); err != nil {
		t.Fatalf("RecordEvaluation: %v", err)
	}

	recent, err := s.RecentEvaluations(ctx, 10)
	if err != nil {
		t.Fatalf("RecentEvaluations: %v", err)
	}
	if len(recent) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recent))
	}
	if recent[0].ToolCallID != "call-1" || recent[0].Strategy != "hitl" {
		t.Errorf("unexpected record: %+v", recent[0])
	}
}

func TestRecordApprovalAfterEvaluation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.RecordEvaluation(ctx, EvaluationRecord{
		ToolCallID: "call-2", ToolName: "bash", Mode: "interactive", Strategy: "hitl", CreatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("RecordEvaluation: %v", err)
	}
	if err := s.RecordApproval(ctx, ApprovalRecord{
		ToolCallID: "call-2", Permission: "allow", Reason: "approved in chat", Channel: "chat", ResolvedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("RecordApproval: %v", err)
	}
}

func TestPruneOlderThanRemovesOldRecordsOnly(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	old := time.Now().UTC().AddDate(0, 0, -40)
	recent := time.Now().UTC()
	if err := s.RecordEvaluation(ctx, EvaluationRecord{ToolCallID: "old", ToolName: "run", Mode: "interactive", Strategy: "allow", CreatedAt: old}); err != nil {
		t.Fatalf("RecordEvaluation old: %v", err)
	}
	if err := s.RecordEvaluation(ctx, EvaluationRecord{ToolCallID: "new", ToolName: "run", Mode: "interactive", Strategy: "allow", CreatedAt: recent}); err != nil {
		t.Fatalf("RecordEvaluation new: %v", err)
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -30)
	deleted, err := s.PruneOlderThan(ctx, cutoff)
	if err != nil {
		t.Fatalf("PruneOlderThan: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 deleted record, got %d", deleted)
	}

	remaining, err := s.RecentEvaluations(ctx, 10)
	if err != nil {
		t.Fatalf("RecentEvaluations: %v", err)
	}
	if len(remaining) != 1 || remaining[0].ToolCallID != "new" {
		t.Errorf("expected only the recent record to remain, got %+v", remaining)
	}
}

func TestRecordEvaluationUpsertOnConflict(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.RecordEvaluation(ctx, EvaluationRecord{ToolCallID: "call-3", ToolName: "run", Mode: "interactive", Strategy: "hitl", CreatedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("RecordEvaluation: %v", err)
	}
	if err := s.RecordEvaluation(ctx, EvaluationRecord{ToolCallID: "call-3", ToolName: "run", Mode: "interactive", Strategy: "deny", CreatedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("RecordEvaluation update: %v", err)
	}

	recent, err := s.RecentEvaluations(ctx, 10)
	if err != nil {
		t.Fatalf("RecentEvaluations: %v", err)
	}
	if len(recent) != 1 || recent[0].Strategy != "deny" {
		t.Errorf("expected upsert to update strategy, got %+v", recent)
	}
}
