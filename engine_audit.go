package authcore

import (
	"context"
	"errors"

	"github.com/MrEthical07/authcore/internal/audit"
)

const maxHistoryLimit = 100

// Failure reasons stored in AuditEntry.Reason. They are never returned to
// callers.
const (
	reasonEmptyCredentials   = "empty_credentials"
	reasonAccountNotFound    = "account_not_found"
	reasonPasswordMismatch   = "password_mismatch"
	reasonMFAInvalid         = "mfa_invalid"
	reasonDeliveryFailed     = "mfa_delivery_failed"
	reasonStorageUnavailable = "storage_unavailable"
	reasonTokenIssueFailed   = "token_issue_failed"
)

// recordLogin appends one audit entry for a finished login attempt. It runs
// after the decision and never changes it.
func (e *Engine) recordLogin(ctx context.Context, entry AuditEntry) {
	entry.IP = clientIPFromContext(ctx)
	entry.UserAgent = userAgentFromContext(ctx)
	e.recorder.Record(ctx, entry)
}

func (e *Engine) auditFailed(entry audit.Entry, err error) {
	e.metrics.Inc(MetricAuditWriteFailure)
	event := e.logger.Warn().Err(err).Str("identifier", entry.Identifier)
	if errors.Is(err, audit.ErrDropped) {
		event.Msg("audit entry dropped")
		return
	}
	event.Msg("audit write failed")
}

// LoginSummary is a caller's login history: totals over every stored
// attempt plus the most recent entries, newest first.
type LoginSummary struct {
	TotalAttempts      int          `json:"total_attempts"`
	SuccessfulAttempts int          `json:"successful_attempts"`
	FailedAttempts     int          `json:"failed_attempts"`
	Recent             []AuditEntry `json:"recent_attempts"`
}

// LoginHistory returns the login attempts recorded for the account behind
// accessToken. The audit sink must implement AuditReader. Totals cover every
// stored attempt when the sink also implements AuditCounter, otherwise only
// the returned window.
func (e *Engine) LoginHistory(ctx context.Context, accessToken string, limit int) (*LoginSummary, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	user, err := e.currentUser(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	reader, ok := e.history.(AuditReader)
	if !ok {
		return nil, ErrHistoryUnsupported
	}
	if limit <= 0 || limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	entries, err := reader.Recent(ctx, user.Email, limit)
	if err != nil {
		return nil, storageError(err)
	}

	counts := audit.Tally(entries)
	if counter, ok := e.history.(AuditCounter); ok {
		if counts, err = counter.Count(ctx, user.Email); err != nil {
			return nil, storageError(err)
		}
	}
	return &LoginSummary{
		TotalAttempts:      counts.Total,
		SuccessfulAttempts: counts.Successful,
		FailedAttempts:     counts.Failed,
		Recent:             entries,
	}, nil
}
