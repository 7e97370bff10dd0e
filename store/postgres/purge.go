package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/MrEthical07/authcore/internal/dbx"
)

// DefaultAuditRetention is how long login_audit rows are kept by default.
const DefaultAuditRetention = 90 * 24 * time.Hour

// PurgeResult counts the rows removed by Purge.
type PurgeResult struct {
	AuditEntries int64
	KVEntries    int64
}

// Purge deletes login audit rows older than now-retention and every
// expired kv_entries row in one transaction. Nothing calls it
// automatically.
func Purge(ctx context.Context, db *sql.DB, now time.Time, retention time.Duration) (PurgeResult, error) {
	res, err := dbx.InTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) (PurgeResult, error) {
		var res PurgeResult
		audit, err := tx.ExecContext(ctx, `DELETE FROM login_audit WHERE occurred_at < $1`, now.Add(-retention).UTC())
		if err != nil {
			return res, err
		}
		if res.AuditEntries, err = audit.RowsAffected(); err != nil {
			return res, err
		}

		kv, err := tx.ExecContext(ctx, `DELETE FROM kv_entries WHERE expires_at <= $1`, now.UTC())
		if err != nil {
			return res, err
		}
		res.KVEntries, err = kv.RowsAffected()
		return res, err
	})
	if err != nil {
		return PurgeResult{}, fmt.Errorf("purge: %w", err)
	}
	return res, nil
}
