package authcore

import "time"

// SecurityReport summarises the effective security settings of an Engine,
// for startup logs and health endpoints. It contains no key material.
type SecurityReport struct {
	SigningAlgorithm   string
	AccessTTL          time.Duration
	RefreshTTL         time.Duration
	RefreshRevocation  bool
	Argon2             PasswordConfigReport
	UpgradeOnLogin     bool
	MFASetupTTL        time.Duration
	MFALoginTTL        time.Duration
	MFASetupCodeReturn bool
	PasswordResetTTL   time.Duration
	StoreBackend       string
	AuditMode          string
	AuditHistory       bool
	RateLimitingActive bool
	UniqueIDValidated  bool
}

type PasswordConfigReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	auditMode := "sync"
	if e.dispatcher != nil {
		auditMode = "async"
		if e.config.Audit.DropIfFull {
			auditMode = "async-drop"
		}
	}
	_, history := e.history.(AuditReader)

	return SecurityReport{
		SigningAlgorithm: e.tokens.Algorithm(),
		AccessTTL:        e.config.JWT.AccessTTL,
		RefreshTTL:       e.config.JWT.RefreshTTL,
		Argon2: PasswordConfigReport{
			Memory:      e.config.Password.Memory,
			Time:        e.config.Password.Time,
			Parallelism: e.config.Password.Parallelism,
			SaltLength:  e.config.Password.SaltLength,
			KeyLength:   e.config.Password.KeyLength,
		},
		UpgradeOnLogin:     e.config.Password.UpgradeOnLogin,
		MFASetupTTL:        e.config.MFA.SetupTTL,
		MFALoginTTL:        e.config.MFA.LoginTTL,
		MFASetupCodeReturn: e.config.MFA.ReturnSetupCode,
		PasswordResetTTL:   e.config.PasswordReset.TTL,
		StoreBackend:       e.storeBackend,
		AuditMode:          auditMode,
		AuditHistory:       history,
		RateLimitingActive: e.limiter != nil,
		UniqueIDValidated:  e.config.Account.ValidateUniqueID,
	}
}
