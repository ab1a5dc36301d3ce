package internaldefs

import (
	goSession "github.com/MrEthical07/goSession"
)

// CounterDef names one exported counter.
type CounterDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// HistogramDef names one exported latency histogram.
type HistogramDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: goSession.MetricVerifyCacheHit, Name: "gosession_verify_cache_hit_total", Help: "Verifications answered by a fresh cached record."},
	{ID: goSession.MetricVerifySuccess, Name: "gosession_verify_success_total", Help: "Verifications confirmed by the API."},
	{ID: goSession.MetricVerifyDegraded, Name: "gosession_verify_degraded_total", Help: "Verifications answered by an expired record while the API was unreachable."},
	{ID: goSession.MetricVerifyRejected, Name: "gosession_verify_rejected_total", Help: "Tokens rejected by the API."},
	{ID: goSession.MetricVerifyMalformed, Name: "gosession_verify_malformed_total", Help: "Verification responses without a user."},
	{ID: goSession.MetricVerifyUnreachable, Name: "gosession_verify_unreachable_total", Help: "Verifications that failed to reach the API with no record to fall back on."},
	{ID: goSession.MetricInitialize, Name: "gosession_initialize_total", Help: "Startup resolutions."},
	{ID: goSession.MetricInitializeTrusted, Name: "gosession_initialize_trusted_total", Help: "Startups that trusted a fresh initialization marker."},
	{ID: goSession.MetricInitializeCleared, Name: "gosession_initialize_cleared_total", Help: "Startups that discarded the stored session."},
	{ID: goSession.MetricLoginSuccess, Name: "gosession_login_success_total", Help: "Successful logins."},
	{ID: goSession.MetricLoginFailure, Name: "gosession_login_failure_total", Help: "Failed logins."},
	{ID: goSession.MetricLogout, Name: "gosession_logout_total", Help: "Logouts."},
	{ID: goSession.MetricLogoutServerFailure, Name: "gosession_logout_server_failure_total", Help: "Logouts whose API call failed."},
	{ID: goSession.MetricRefreshSuccess, Name: "gosession_refresh_success_total", Help: "Successful token refreshes."},
	{ID: goSession.MetricRefreshFailure, Name: "gosession_refresh_failure_total", Help: "Failed token refreshes."},
	{ID: goSession.MetricPropertiesHit, Name: "gosession_properties_hit_total", Help: "Property lists served from cache."},
	{ID: goSession.MetricPropertiesFetch, Name: "gosession_properties_fetch_total", Help: "Property lists fetched from the API."},
	{ID: goSession.MetricPropertiesStale, Name: "gosession_properties_stale_total", Help: "Property fetches that failed and served the last known list."},
	{ID: goSession.MetricSyncAdopt, Name: "gosession_sync_adopt_total", Help: "Sessions adopted from other instances."},
	{ID: goSession.MetricSyncLogout, Name: "gosession_sync_logout_total", Help: "Logouts forced by other instances."},
	{ID: goSession.MetricSyncProperties, Name: "gosession_sync_properties_total", Help: "Property lists adopted or cleared from other instances."},
	{ID: goSession.MetricStorageError, Name: "gosession_storage_error_total", Help: "Failed cache writes."},
}

var HistogramDefs = []HistogramDef{
	{ID: goSession.MetricVerifyLatency, Name: "gosession_verify_latency_seconds", Help: "Verify-token round trip latency."},
}

// AuditDroppedName is the counter of audit events lost to backpressure.
const AuditDroppedName = "gosession_audit_dropped_total"

// HistogramUpperBounds are the finite bucket bounds in seconds; a final +Inf
// bucket follows.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// NormalizeBuckets pads or truncates raw to the eight snapshot buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
