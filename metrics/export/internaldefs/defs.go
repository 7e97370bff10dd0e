package internaldefs

import (
	"strconv"

	"github.com/MrEthical07/authcore"
)

type CounterDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

type HistogramDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

// AuditDroppedName is exported by every exporter next to the counters.
const AuditDroppedName = "authcore_audit_dropped_total"

const AuditDroppedHelp = "Audit entries dropped by the async dispatcher."

var CounterDefs = []CounterDef{
	{ID: authcore.MetricLoginSuccess, Name: "authcore_login_success_total", Help: "Logins that issued tokens."},
	{ID: authcore.MetricLoginFailure, Name: "authcore_login_failure_total", Help: "Failed password logins."},
	{ID: authcore.MetricLoginRateLimited, Name: "authcore_login_rate_limited_total", Help: "Logins rejected by the limiter."},
	{ID: authcore.MetricMFALoginRequired, Name: "authcore_mfa_login_required_total", Help: "Logins that stopped for an MFA code."},
	{ID: authcore.MetricMFALoginSuccess, Name: "authcore_mfa_login_success_total", Help: "Accepted MFA login codes."},
	{ID: authcore.MetricMFALoginFailure, Name: "authcore_mfa_login_failure_total", Help: "Rejected MFA login codes."},
	{ID: authcore.MetricMFASetupStarted, Name: "authcore_mfa_setup_started_total", Help: "MFA setup codes sent."},
	{ID: authcore.MetricMFASetupConfirmed, Name: "authcore_mfa_setup_confirmed_total", Help: "MFA setups confirmed."},
	{ID: authcore.MetricMFASetupFailure, Name: "authcore_mfa_setup_failure_total", Help: "Rejected MFA setup codes."},
	{ID: authcore.MetricRefreshSuccess, Name: "authcore_refresh_success_total", Help: "Successful refreshes."},
	{ID: authcore.MetricRefreshFailure, Name: "authcore_refresh_failure_total", Help: "Rejected refresh tokens."},
	{ID: authcore.MetricRegistrationSuccess, Name: "authcore_registration_success_total", Help: "Accounts created."},
	{ID: authcore.MetricRegistrationDuplicate, Name: "authcore_registration_duplicate_total", Help: "Registrations rejected as duplicates."},
	{ID: authcore.MetricRegistrationPolicyRejected, Name: "authcore_registration_policy_rejected_total", Help: "Registrations rejected by the password policy."},
	{ID: authcore.MetricRegistrationInvalid, Name: "authcore_registration_invalid_total", Help: "Registrations with malformed fields."},
	{ID: authcore.MetricRegistrationRateLimited, Name: "authcore_registration_rate_limited_total", Help: "Registrations rejected by the limiter."},
	{ID: authcore.MetricPasswordResetRequest, Name: "authcore_password_reset_request_total", Help: "Reset tokens issued and delivered."},
	{ID: authcore.MetricPasswordResetRateLimited, Name: "authcore_password_reset_rate_limited_total", Help: "Reset requests rejected by the limiter."},
	{ID: authcore.MetricPasswordResetConfirmSuccess, Name: "authcore_password_reset_confirm_success_total", Help: "Completed password resets."},
	{ID: authcore.MetricPasswordResetConfirmFailure, Name: "authcore_password_reset_confirm_failure_total", Help: "Failed reset confirmations."},
	{ID: authcore.MetricLegacyPasswordMigrated, Name: "authcore_legacy_password_migrated_total", Help: "Legacy credentials rehashed on login."},
	{ID: authcore.MetricPasswordHashUpgraded, Name: "authcore_password_hash_upgraded_total", Help: "Argon2id hashes upgraded to current parameters."},
	{ID: authcore.MetricAuditWriteFailure, Name: "authcore_audit_write_failure_total", Help: "Audit entries the sink did not accept."},
	{ID: authcore.MetricDeliveryFailure, Name: "authcore_delivery_failure_total", Help: "Codes or reset tokens the notifier failed to send."},
}

var HistogramDefs = []HistogramDef{
	{ID: authcore.MetricAuthenticateLatency, Name: "authcore_authenticate_latency_seconds", Help: "Authenticate latency."},
}

// HistogramBounds are the bucket upper bounds in seconds, excluding +Inf.
var HistogramBounds = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}

// BucketLabels returns the le label of every bucket, +Inf last.
func BucketLabels() []string {
	out := make([]string, 0, len(HistogramBounds)+1)
	for _, b := range HistogramBounds {
		out = append(out, strconv.FormatFloat(b, 'g', -1, 64))
	}
	return append(out, "+Inf")
}

// NormalizeBuckets pads or truncates raw to the fixed bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into le-style running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
