// Package prometheus renders spellauth engine metrics in Prometheus text
// exposition format.
//
// Engine counters are grouped into labelled families such as
// spellauth_logins_total{result="failure"} and
// spellauth_token_redemptions_total{purpose="reset"}. The canonical role
// table is exported as the spellauth_role_permissions gauge, one series per
// role.
//
// Nothing is registered in a global registry; callers mount the Handler.
package prometheus
