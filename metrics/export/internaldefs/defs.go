package internaldefs

import (
	"github.com/MrEthical07/authd"
)

// CounterDef binds an engine counter to its exported name.
type CounterDef struct {
	ID   authd.MetricID
	Name string
	Help string
}

// HistogramDef binds an engine latency histogram to its exported name.
type HistogramDef struct {
	ID   authd.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: authd.MetricRegisterSuccess, Name: "authd_register_success_total", Help: "Accounts created."},
	{ID: authd.MetricRegisterDuplicate, Name: "authd_register_duplicate_total", Help: "Registrations rejected because the email exists."},
	{ID: authd.MetricRegisterFailure, Name: "authd_register_failure_total", Help: "Registrations that failed for other reasons."},
	{ID: authd.MetricVerificationEmailFailed, Name: "authd_verification_email_failed_total", Help: "Verification emails that could not be dispatched after registration."},
	{ID: authd.MetricLoginSuccess, Name: "authd_login_success_total", Help: "Successful logins."},
	{ID: authd.MetricLoginFailure, Name: "authd_login_failure_total", Help: "Failed logins."},
	{ID: authd.MetricLoginUnverified, Name: "authd_login_unverified_total", Help: "Logins rejected because the email is not verified."},
	{ID: authd.MetricLogout, Name: "authd_logout_total", Help: "Logouts."},
	{ID: authd.MetricRefreshSuccess, Name: "authd_refresh_success_total", Help: "Successful refreshes."},
	{ID: authd.MetricRefreshRolled, Name: "authd_refresh_rolled_total", Help: "Refreshes that also issued a new refresh token."},
	{ID: authd.MetricRefreshFailure, Name: "authd_refresh_failure_total", Help: "Failed refreshes."},
	{ID: authd.MetricAuthenticateSuccess, Name: "authd_authenticate_success_total", Help: "Accepted access tokens."},
	{ID: authd.MetricAuthenticateFailure, Name: "authd_authenticate_failure_total", Help: "Rejected access tokens."},
	{ID: authd.MetricSessionCreated, Name: "authd_session_created_total", Help: "Sessions created."},
	{ID: authd.MetricSessionRevoked, Name: "authd_session_revoked_total", Help: "Sessions revoked by logout, reset or explicit revocation."},
	{ID: authd.MetricEmailVerificationSuccess, Name: "authd_email_verification_success_total", Help: "Redeemed verification codes."},
	{ID: authd.MetricEmailVerificationFailure, Name: "authd_email_verification_failure_total", Help: "Rejected verification codes."},
	{ID: authd.MetricPasswordResetRequest, Name: "authd_password_reset_request_total", Help: "Password reset emails sent."},
	{ID: authd.MetricPasswordResetThrottled, Name: "authd_password_reset_throttled_total", Help: "Password reset requests rejected by the throttle."},
	{ID: authd.MetricPasswordResetConfirmSuccess, Name: "authd_password_reset_confirm_success_total", Help: "Completed password resets."},
	{ID: authd.MetricPasswordResetConfirmFailure, Name: "authd_password_reset_confirm_failure_total", Help: "Rejected password reset confirmations."},
	{ID: authd.MetricIPTracked, Name: "authd_ip_tracked_total", Help: "IP history updates."},
	{ID: authd.MetricIPCleanupRun, Name: "authd_ip_cleanup_runs_total", Help: "IP history cleanup runs."},
	{ID: authd.MetricIPCleanupUsersUpdated, Name: "authd_ip_cleanup_users_updated_total", Help: "Users whose IP history was trimmed."},
	{ID: authd.MetricIPCleanupEntriesRemoved, Name: "authd_ip_cleanup_entries_removed_total", Help: "IP history entries removed by cleanup."},
}

var HistogramDefs = []HistogramDef{
	{ID: authd.MetricLoginLatency, Name: "authd_login_latency_seconds", Help: "Login latency."},
	{ID: authd.MetricAuthenticateLatency, Name: "authd_authenticate_latency_seconds", Help: "Access token authentication latency."},
}

// AuditDroppedName is the counter for audit events lost to a full buffer.
const AuditDroppedName = "authd_audit_dropped_total"

// HistogramBounds are the finite upper bounds in seconds. The engine keeps
// one extra overflow bucket past the last bound.
var HistogramBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// BucketCount is len(HistogramBounds) plus the overflow bucket.
const BucketCount = 8

// NormalizeBuckets copies raw into a fixed array, padding or truncating.
func NormalizeBuckets(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	copy(out[:], raw)
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals; the last
// element is the sample count.
func CumulativeBuckets(raw [BucketCount]uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i, v := range raw {
		running += v
		out[i] = running
	}
	return out
}
