// Package evallog provides a durable, queryable decision log backing the
// in-memory evaluation/approval tracking the teacher keeps for status
// polling. It supplements, rather than replaces, that in-memory view: the
// service layer still answers "what's pending right now" from memory and
// only persists here for audit/query after the fact.
package evallog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store is a sqlite-backed append-mostly log of policy evaluations and the
// approval outcomes that resolved them.
type Store struct {
	db *sql.DB
}

// EvaluationRecord is one resolved policy decision for a single tool call.
type EvaluationRecord struct {
	ToolCallID string
	ToolName   string
	MCPServer  string
	Mode       string
	Model      string
	Strategy   string
	PolicyID   string
	Channel    string
	Reason     string
	CreatedAt  time.Time
}

// ApprovalRecord is the terminal allow/deny outcome for a tool call that
// went through the HITL/AITL/PITL race, keyed by the same ToolCallID as its
// EvaluationRecord.
type ApprovalRecord struct {
	ToolCallID   string
	Permission   string
	ModifiedArgs string
	Reason       string
	Channel      string
	ResolvedAt   time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS evaluations (
	tool_call_id TEXT PRIMARY KEY,
	tool_name    TEXT NOT NULL,
	mcp_server   TEXT,
	mode         TEXT NOT NULL,
	model        TEXT,
	strategy     TEXT NOT NULL,
	policy_id    TEXT,
	channel      TEXT,
	reason       TEXT,
	created_at   DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS approvals (
	tool_call_id  TEXT PRIMARY KEY REFERENCES evaluations(tool_call_id),
	permission    TEXT NOT NULL,
	modified_args TEXT,
	reason        TEXT,
	channel       TEXT,
	resolved_at   DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_evaluations_created_at ON evaluations(created_at);
CREATE INDEX IF NOT EXISTS idx_evaluations_tool_name ON evaluations(tool_name);
CREATE INDEX IF NOT EXISTS idx_approvals_resolved_at ON approvals(resolved_at);
`

// Open opens (creating if needed) the sqlite database at path and ensures
// its schema exists. WAL mode keeps concurrent Record* calls from blocking
// the approval-resolution HTTP handlers.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("evallog: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("evallog: init schema: %w", err)
	}
	return &Store{db: db}, nil
}

// RecordEvaluation persists a resolved policy decision.
func (s *Store) RecordEvaluation(ctx context.Context, rec EvaluationRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO evaluations (tool_call_id, tool_name, mcp_server, mode, model, strategy, policy_id, channel, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tool_call_id) DO UPDATE SET
			strategy = excluded.strategy, policy_id = excluded.policy_id,
			channel = excluded.channel, reason = excluded.reason`,
		rec.ToolCallID, rec.ToolName, nullStr(rec.MCPServer), rec.Mode, nullStr(rec.Model),
		rec.Strategy, nullStr(rec.PolicyID), nullStr(rec.Channel), nullStr(rec.Reason), rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("evallog: record evaluation %s: %w", rec.ToolCallID, err)
	}
	return nil
}

// RecordApproval persists the terminal outcome of a tool call's approval
// race. ToolCallID must name an already-recorded evaluation.
func (s *Store) RecordApproval(ctx context.Context, rec ApprovalRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO approvals (tool_call_id, permission, modified_args, reason, channel, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(tool_call_id) DO UPDATE SET
			permission = excluded.permission, modified_args = excluded.modified_args,
			reason = excluded.reason, channel = excluded.channel, resolved_at = excluded.resolved_at`,
		rec.ToolCallID, rec.Permission, nullStr(rec.ModifiedArgs), nullStr(rec.Reason), nullStr(rec.Channel), rec.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("evallog: record approval %s: %w", rec.ToolCallID, err)
	}
	return nil
}

// RecentEvaluations returns the most recent n evaluations, newest first.
func (s *Store) RecentEvaluations(ctx context.Context, n int) ([]EvaluationRecord, error) {
	if n <= 0 {
		n = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT tool_call_id, tool_name, mcp_server, mode, model, strategy, policy_id, channel, reason, created_at
		FROM evaluations ORDER BY created_at DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("evallog: recent evaluations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []EvaluationRecord
	for rows.Next() {
		var rec EvaluationRecord
		var mcpServer, model, policyID, channel, reason sql.NullString
		if err := rows.Scan(&rec.ToolCallID, &rec.ToolName, &mcpServer, &rec.Mode, &model,
			&rec.Strategy, &policyID, &channel, &reason, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("evallog: scan evaluation: %w", err)
		}
		rec.MCPServer = mcpServer.String
		rec.Model = model.String
		rec.PolicyID = policyID.String
		rec.Channel = channel.String
		rec.Reason = reason.String
		out = append(out, rec)
	}
	return out, rows.Err()
}

// PruneOlderThan deletes evaluations (and their approvals, via cascade-free
// manual delete) older than cutoff, returning the number of evaluations
// removed. Mirrors EvalLogConfig.RetentionDays.
func (s *Store) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM approvals WHERE tool_call_id IN (SELECT tool_call_id FROM evaluations WHERE created_at < ?)`, cutoff); err != nil {
		return 0, fmt.Errorf("evallog: prune approvals: %w", err)
	}
	result, err := s.db.ExecContext(ctx, `DELETE FROM evaluations WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("evallog: prune evaluations: %w", err)
	}
	return result.RowsAffected()
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func nullStr(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
