package authcore

import (
	"context"
	"time"

	"github.com/MrEthical07/authcore/internal/audit"
)

// User is the credential record owned by the UserRepository.
// PasswordHash may hold a legacy plaintext value until the next successful login.
type User struct {
	ID           string
	Email        string
	Username     string
	Name         string
	UniqueID     string
	Function     string
	Role         string
	PasswordHash string
	MFAEnabled   bool
	CreatedBy    string
	CreatedAt    time.Time
}

// PublicUser is the user view returned to callers. It never carries the credential.
type PublicUser struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Username   string `json:"username"`
	Name       string `json:"name"`
	Function   string `json:"function,omitempty"`
	Role       string `json:"role"`
	MFAEnabled bool   `json:"mfa_enabled"`
}

// Public strips the credential from u.
func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:         u.ID,
		Email:      u.Email,
		Username:   u.Username,
		Name:       u.Name,
		Function:   u.Function,
		Role:       u.Role,
		MFAEnabled: u.MFAEnabled,
	}
}

// NewUser is the input to UserRepository.Create.
type NewUser struct {
	Email        string
	Username     string
	Name         string
	UniqueID     string
	Function     string
	Role         string
	PasswordHash string
	CreatedBy    string
}

// UserRepository is the persistent user directory. Lookups that match
// nothing return ErrAccountNotFound; any other error is treated as a
// storage failure. Each method must be atomic at the row level.
type UserRepository interface {
	FindByEmailOrUsername(ctx context.Context, identifier string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByUniqueID(ctx context.Context, uniqueID string) (bool, error)
	// Create returns the new user id. A unique-constraint race may be
	// reported as *DuplicateError.
	Create(ctx context.Context, user NewUser) (string, error)
	UpdatePasswordHash(ctx context.Context, email, hash string) error
	SetMFAEnabled(ctx context.Context, userID string, enabled bool) error
}

// RegisterRequest carries the registration form.
type RegisterRequest struct {
	Email     string
	Username  string
	Name      string
	UniqueID  string
	Function  string
	Role      string
	Password  string
	CreatedBy string
}

// RegisterResult identifies the created account.
type RegisterResult struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// TokenPair is a freshly minted access and refresh token.
type TokenPair struct {
	AccessToken      string        `json:"access_token"`
	RefreshToken     string        `json:"refresh_token"`
	TokenType        string        `json:"token_type"`
	AccessExpiresIn  time.Duration `json:"access_expires_in"`
	RefreshExpiresIn time.Duration `json:"refresh_expires_in"`
}

// LoginResult is returned by Authenticate and SubmitMFALogin. When
// MFARequired is set no tokens are present and the caller must submit the
// delivered code with MFAEmail.
type LoginResult struct {
	MFARequired bool        `json:"mfa_required"`
	MFAEmail    string      `json:"mfa_email,omitempty"`
	Tokens      *TokenPair  `json:"tokens,omitempty"`
	User        *PublicUser `json:"user,omitempty"`
}

// MFASetupResult describes a started MFA enrolment. Code is filled only when
// MFAConfig.ReturnSetupCode is enabled.
type MFASetupResult struct {
	ExpiresIn time.Duration `json:"expires_in"`
	Code      string        `json:"code,omitempty"`
}

// MFACodeMessage is handed to the Notifier for out-of-band delivery.
type MFACodeMessage struct {
	Scope     string
	UserID    string
	Email     string
	Code      string
	ExpiresIn time.Duration
}

// PasswordResetMessage is handed to the Notifier for out-of-band delivery.
type PasswordResetMessage struct {
	Email     string
	Token     string
	ExpiresIn time.Duration
}

// Notifier delivers one-time codes and reset tokens (email, SMS, ...).
type Notifier interface {
	SendMFACode(ctx context.Context, msg MFACodeMessage) error
	SendPasswordReset(ctx context.Context, msg PasswordResetMessage) error
}

// LimitAction names the entry point a Limiter is consulted for.
type LimitAction string

const (
	LimitLogin         LimitAction = "login"
	LimitRegister      LimitAction = "register"
	LimitPasswordReset LimitAction = "password_reset"
)

// Limiter throttles entry points. Allow reports false when the call must be
// rejected; an error means the limiter itself failed.
type Limiter interface {
	Allow(ctx context.Context, action LimitAction, key string) (bool, error)
}

// AuditEntry is one recorded login attempt.
type AuditEntry = audit.Entry

// AuditSink receives login audit entries.
type AuditSink = audit.Sink

// AuditReader is implemented by sinks that can list stored entries.
type AuditReader = audit.Reader

// AuditCounter is implemented by sinks that can total stored entries.
type AuditCounter = audit.Counter

// AuditCounts totals the attempts recorded for one identifier.
type AuditCounts = audit.Counts

// MemoryAuditSink keeps entries in memory.
type MemoryAuditSink = audit.MemorySink

// JSONAuditSink writes entries as JSON lines.
type JSONAuditSink = audit.JSONWriterSink

// ChannelAuditSink hands entries to a channel.
type ChannelAuditSink = audit.ChannelSink

// NewMemoryAuditSink returns an empty in-memory sink.
func NewMemoryAuditSink() *MemoryAuditSink { return audit.NewMemorySink() }

// NewJSONAuditSink returns a sink writing JSON lines to w.
var NewJSONAuditSink = audit.NewJSONWriterSink

// NewChannelAuditSink returns a sink backed by a buffered channel.
var NewChannelAuditSink = audit.NewChannelSink

// Login methods recorded in AuditEntry.Method.
const (
	AuditMethodPassword = audit.MethodPassword
	AuditMethodMFA      = audit.MethodMFA
)
