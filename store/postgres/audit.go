package postgres

import (
	"context"
	"fmt"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/internal/dbx"
)

// AuditSink appends login attempts to login_audit and lists them back.
type AuditSink struct {
	db dbx.DBTX
}

var (
	_ authcore.AuditSink   = (*AuditSink)(nil)
	_ authcore.AuditReader = (*AuditSink)(nil)
	_ authcore.AuditCounter = (*AuditSink)(nil)
)

func NewAuditSink(db dbx.DBTX) *AuditSink {
	return &AuditSink{db: db}
}

func (s *AuditSink) Append(ctx context.Context, e authcore.AuditEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO login_audit (id, identifier, user_id, success, method, reason, ip, user_agent, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, e.Identifier, e.UserID, e.Success, e.Method, e.Reason, e.IP, e.UserAgent, e.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Recent returns up to limit entries for identifier, newest first.
func (s *AuditSink) Recent(ctx context.Context, identifier string, limit int) ([]authcore.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, identifier, user_id, success, method, reason, ip, user_agent, occurred_at
		 FROM login_audit
		 WHERE identifier = $1
		 ORDER BY occurred_at DESC, id DESC
		 LIMIT $2`, identifier, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []authcore.AuditEntry
	for rows.Next() {
		var e authcore.AuditEntry
		if err := rows.Scan(&e.ID, &e.Identifier, &e.UserID, &e.Success, &e.Method, &e.Reason,
			&e.IP, &e.UserAgent, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Count totals every stored attempt for identifier.
func (s *AuditSink) Count(ctx context.Context, identifier string) (authcore.AuditCounts, error) {
	var c authcore.AuditCounts
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*), count(*) FILTER (WHERE success)
		 FROM login_audit
		 WHERE identifier = $1`, identifier).Scan(&c.Total, &c.Successful)
	if err != nil {
		return authcore.AuditCounts{}, fmt.Errorf("db error: %w", err)
	}
	c.Failed = c.Total - c.Successful
	return c, nil
}
