package spellauth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/spellauth/token"
)

// GenerateToken issues a purpose-bound token for u. A non-positive ttl uses
// Token.DefaultTTL. An unknown purpose, a nil user or an unavailable secret
// yields ("", false).
func (e *Engine) GenerateToken(u *User, purpose token.Purpose, ttl time.Duration) (string, bool) {
	if e == nil || e.signer == nil || u == nil || u.ID == "" {
		return "", false
	}
	tok, ok := e.signer.Issue(purpose, u.ID, ttl)
	if !ok {
		e.metricInc(MetricTokenIssueRejected)
		return "", false
	}
	e.metricInc(MetricTokenIssued)
	return tok, true
}

// VerifyToken reports whether tok is a valid, unexpired token issued to u for
// purpose. Every failure collapses to false; the reason is audited.
func (e *Engine) VerifyToken(ctx context.Context, u *User, purpose token.Purpose, tok string) bool {
	if e == nil || e.signer == nil || u == nil || u.ID == "" {
		return false
	}

	err := e.signer.Inspect(purpose, tok, u.ID)
	if err == nil {
		e.metricInc(MetricTokenVerifySuccess)
		return true
	}

	e.metricInc(MetricTokenVerifyFailure)
	if errors.Is(err, token.ErrExpired) {
		e.metricInc(MetricTokenExpired)
	}
	e.emitAudit(ctx, auditEventTokenRejected, false, u.ID, err, func() map[string]string {
		return map[string]string{"purpose": purpose.String()}
	})
	return false
}

// Confirm marks u's email as confirmed when tok is a valid confirm token for
// u. An already confirmed user reports true without a write.
func (e *Engine) Confirm(ctx context.Context, u *User, tok string) (bool, error) {
	if u == nil {
		return false, ErrInvalidUser
	}
	if u.Confirmed {
		return true, nil
	}
	if !e.VerifyToken(ctx, u, token.PurposeConfirm, tok) {
		return false, nil
	}

	next := u.record()
	next.Confirmed = true
	if err := e.users.UpdateUser(ctx, next); err != nil {
		return false, fmt.Errorf("confirm: %w", err)
	}

	u.Confirmed = true
	e.evictPrincipal(ctx, u.ID)
	e.metricInc(MetricAccountConfirmed)
	e.emitAudit(ctx, auditEventAccountConfirmed, true, u.ID, nil, nil)
	return true, nil
}

// ResetPassword replaces u's password when tok is a valid reset token for u.
// An invalid token reports false; a policy violation reports
// ErrInvalidCredentialFormat.
func (e *Engine) ResetPassword(ctx context.Context, u *User, tok, newPassword string) (bool, error) {
	if u == nil {
		return false, ErrInvalidUser
	}
	if !e.VerifyToken(ctx, u, token.PurposeReset, tok) {
		return false, nil
	}
	if err := e.SavePassword(ctx, u, newPassword); err != nil {
		return false, err
	}

	e.metricInc(MetricPasswordReset)
	e.emitAudit(ctx, auditEventPasswordReset, true, u.ID, nil, nil)
	return true, nil
}

// ChangeEmail moves u to newEmail when tok is a valid change_email token for
// u. A taken address reports ErrConstraintViolation and leaves u unchanged.
func (e *Engine) ChangeEmail(ctx context.Context, u *User, tok, newEmail string) (bool, error) {
	if u == nil {
		return false, ErrInvalidUser
	}
	if !e.VerifyToken(ctx, u, token.PurposeChangeEmail, tok) {
		return false, nil
	}

	newEmail = strings.TrimSpace(newEmail)
	if err := e.validate.VarCtx(ctx, newEmail, "required,email,max=64"); err != nil {
		return false, validationError(err)
	}

	next := u.record()
	next.Email = newEmail
	if err := e.users.UpdateUser(ctx, next); err != nil {
		return false, fmt.Errorf("change email: %w", err)
	}

	previous := u.Email
	u.Email = newEmail
	e.evictPrincipal(ctx, u.ID)
	e.metricInc(MetricEmailChanged)
	e.emitAudit(ctx, auditEventEmailChanged, true, u.ID, nil, func() map[string]string {
		return map[string]string{"previous_domain": emailDomain(previous)}
	})
	return true, nil
}

func emailDomain(email string) string {
	if i := strings.LastIndexByte(email, '@'); i >= 0 {
		return email[i+1:]
	}
	return ""
}
