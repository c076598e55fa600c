package internaldefs

import (
	"github.com/MrEthical07/spellauth"
	"github.com/MrEthical07/spellauth/permission"
)

// BucketCount is the number of latency buckets, +Inf included.
const BucketCount = 8

// Series is one labelled sample of a Family.
type Series struct {
	ID    spellauth.MetricID
	Value string
}

// Family groups engine counters under one exported name. Each series is
// told apart by a single label.
type Family struct {
	Name   string
	Help   string
	Label  string
	Series []Series
}

// Histogram maps an engine latency histogram to its exported name.
type Histogram struct {
	ID   spellauth.MetricID
	Name string
	Help string
}

const (
	AuditDroppedName = "spellauth_audit_dropped_total"
	AuditDroppedHelp = "Audit events dropped under dispatcher backpressure."

	RolePermissionsName  = "spellauth_role_permissions"
	RolePermissionsHelp  = "Canonical permission mask of each role."
	RolePermissionsLabel = "role"
)

// CounterFamilies lists every exported counter family in a stable order.
// Every engine counter belongs to exactly one family.
var CounterFamilies = []Family{
	{
		Name: "spellauth_users_total", Help: "User account lifecycle events.", Label: "event",
		Series: []Series{
			{spellauth.MetricUserCreated, "created"},
			{spellauth.MetricUserCreateDuplicate, "duplicate"},
			{spellauth.MetricUserCreateInvalid, "invalid"},
			{spellauth.MetricUserDeleted, "deleted"},
			{spellauth.MetricPing, "seen"},
		},
	},
	{
		Name: "spellauth_password_operations_total", Help: "Password credential operations.", Label: "op",
		Series: []Series{
			{spellauth.MetricPasswordSet, "set"},
			{spellauth.MetricPasswordFormatRejected, "format_rejected"},
			{spellauth.MetricPasswordVerifySuccess, "verify_success"},
			{spellauth.MetricPasswordVerifyFailure, "verify_failure"},
			{spellauth.MetricPasswordUpgraded, "upgraded"},
		},
	},
	{
		Name: "spellauth_logins_total", Help: "Authentication attempts by result.", Label: "result",
		Series: []Series{
			{spellauth.MetricLoginSuccess, "success"},
			{spellauth.MetricLoginFailure, "failure"},
		},
	},
	{
		Name: "spellauth_token_operations_total", Help: "Signed token issue and verification outcomes.", Label: "op",
		Series: []Series{
			{spellauth.MetricTokenIssued, "issued"},
			{spellauth.MetricTokenIssueRejected, "issue_rejected"},
			{spellauth.MetricTokenVerifySuccess, "verify_success"},
			{spellauth.MetricTokenVerifyFailure, "verify_failure"},
			{spellauth.MetricTokenExpired, "expired"},
		},
	},
	{
		Name: "spellauth_token_redemptions_total", Help: "Account changes completed with a token, by purpose.", Label: "purpose",
		Series: []Series{
			{spellauth.MetricAccountConfirmed, "confirm"},
			{spellauth.MetricPasswordReset, "reset"},
			{spellauth.MetricEmailChanged, "change_email"},
		},
	},
	{
		Name: "spellauth_role_operations_total", Help: "Role reconciliation and assignment writes.", Label: "op",
		Series: []Series{
			{spellauth.MetricRoleCreated, "created"},
			{spellauth.MetricRoleUpdated, "updated"},
			{spellauth.MetricRoleAssigned, "assigned"},
		},
	},
	{
		Name: "spellauth_follow_operations_total", Help: "Follow graph edge changes.", Label: "op",
		Series: []Series{
			{spellauth.MetricFollow, "follow"},
			{spellauth.MetricUnfollow, "unfollow"},
		},
	},
	{
		Name: "spellauth_principal_lookups_total", Help: "LoadUser outcomes.", Label: "result",
		Series: []Series{
			{spellauth.MetricPrincipalCacheHit, "cache_hit"},
			{spellauth.MetricPrincipalCacheMiss, "cache_miss"},
			{spellauth.MetricPrincipalCacheError, "cache_error"},
			{spellauth.MetricPrincipalNotFound, "not_found"},
		},
	},
}

// Histograms lists every exported latency histogram.
var Histograms = []Histogram{
	{ID: spellauth.MetricLoadUserLatency, Name: "spellauth_load_user_latency_seconds", Help: "LoadUser latency."},
}

// HistogramBounds are the upper bucket bounds in seconds.
var HistogramBounds = [BucketCount]string{"0.005", "0.01", "0.025", "0.05", "0.1", "0.25", "0.5", "+Inf"}

// Cumulative turns raw per-bucket counts into running totals. Missing
// buckets count as zero; extra ones are ignored.
func Cumulative(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i := range out {
		if i < len(raw) {
			running += raw[i]
		}
		out[i] = running
	}
	return out
}

// RoleMasks returns the canonical role table in registration order.
func RoleMasks(roles *permission.RoleManager) []permission.Definition {
	if roles == nil {
		return nil
	}
	return roles.Definitions()
}
