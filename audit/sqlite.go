package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLiteSink persists audit records to a local SQLite file, append-only.
// Each Write opens and closes its own connection, matching a low-volume,
// durability-over-throughput audit trail rather than a pooled hot path.
type SQLiteSink struct {
	dbPath string
}

// NewSQLiteSink constructs a SQLiteSink backed by dbPath, creating the
// audit_log table if it does not already exist.
func NewSQLiteSink(ctx context.Context, dbPath string) (*SQLiteSink, error) {
	s := &SQLiteSink{dbPath: dbPath}
	db, err := s.openDB()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	_, err = db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS audit_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		actor TEXT NOT NULL,
		tool TEXT NOT NULL,
		action TEXT NOT NULL,
		resource TEXT NOT NULL,
		outcome TEXT NOT NULL,
		duration_ms INTEGER NOT NULL,
		request_id TEXT,
		ip TEXT,
		user_agent TEXT,
		scopes TEXT,
		effect_cells INTEGER,
		effect_rows INTEGER,
		effect_columns INTEGER,
		details TEXT,
		created_at INTEGER NOT NULL
	)`)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteSink) openDB() (*sql.DB, error) {
	return sql.Open("sqlite", s.dbPath)
}

func (s *SQLiteSink) Write(ctx context.Context, rec Record) error {
	db, err := s.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	detailsJSON, err := json.Marshal(redact(rec.Details))
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `INSERT INTO audit_log
		(actor, tool, action, resource, outcome, duration_ms, request_id, ip,
		 user_agent, scopes, effect_cells, effect_rows, effect_columns,
		 details, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Actor, rec.Tool, rec.Action, rec.Resource, rec.Outcome,
		rec.Duration.Milliseconds(), rec.RequestID, rec.IP, rec.UserAgent,
		strings.Join(rec.Scopes, ","),
		rec.Effect.Cells, rec.Effect.Rows, rec.Effect.Columns,
		string(detailsJSON), rec.Timestamp.Unix(),
	)
	return err
}

var _ Sink = (*SQLiteSink)(nil)
