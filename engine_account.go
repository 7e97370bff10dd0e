package authcore

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

// Register validates req, checks that email, username and unique id are
// free, and creates the account with a hashed password. MFA starts
// disabled.
//
// Failures are structured: *RegistrationError for malformed fields,
// *PolicyError for weak passwords and *DuplicateError for taken
// identifiers.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := e.allow(ctx, LimitRegister, normalizeEmail(req.Email), MetricRegistrationRateLimited); err != nil {
		return nil, err
	}

	if err := e.normalizeRegistration(&req); err != nil {
		e.metrics.Inc(MetricRegistrationInvalid)
		return nil, err
	}
	if err := e.policy.Check(req.Password); err != nil {
		e.metrics.Inc(MetricRegistrationPolicyRejected)
		return nil, err
	}

	if err := e.checkUnique(ctx, req); err != nil {
		if errors.Is(err, ErrDuplicateRegistration) {
			e.metrics.Inc(MetricRegistrationDuplicate)
		}
		return nil, err
	}

	hash, err := e.hasher.Hash(req.Password)
	if err != nil {
		// Policy already guarantees a non-empty password within the hasher cap.
		return nil, err
	}

	id, err := e.users.Create(ctx, NewUser{
		Email:        req.Email,
		Username:     req.Username,
		Name:         req.Name,
		UniqueID:     req.UniqueID,
		Function:     req.Function,
		Role:         req.Role,
		PasswordHash: hash,
		CreatedBy:    req.CreatedBy,
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateRegistration) {
			e.metrics.Inc(MetricRegistrationDuplicate)
			return nil, err
		}
		return nil, storageError(err)
	}

	e.metrics.Inc(MetricRegistrationSuccess)
	e.logger.Info().Str("identifier", req.Email).Str("user_id", id).Msg("account registered")
	return &RegisterResult{UserID: id, Email: req.Email}, nil
}

// checkUnique runs the existence probes concurrently and reports the first
// taken field in email, username, unique id order.
func (e *Engine) checkUnique(ctx context.Context, req RegisterRequest) error {
	probes := []struct {
		field string
		value string
		check func(context.Context, string) (bool, error)
	}{
		{"email", req.Email, e.users.ExistsByEmail},
		{"username", req.Username, e.users.ExistsByUsername},
		{"unique_id", req.UniqueID, e.users.ExistsByUniqueID},
	}

	taken := make([]bool, len(probes))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range probes {
		if p.value == "" {
			continue
		}
		g.Go(func() error {
			exists, err := p.check(gctx, p.value)
			if err != nil {
				return err
			}
			taken[i] = exists
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return storageError(err)
	}

	for i, p := range probes {
		if taken[i] {
			return &DuplicateError{Field: p.field}
		}
	}
	return nil
}
