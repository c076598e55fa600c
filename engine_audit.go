package spellauth

import (
	"context"
	"errors"

	"github.com/MrEthical07/spellauth/internal/audit"
	"github.com/MrEthical07/spellauth/token"
)

const (
	auditEventUserCreated       = "user_created"
	auditEventUserCreateFailure = "user_create_failure"
	auditEventUserDeleted       = "user_deleted"
	auditEventProfileUpdated    = "profile_updated"
	auditEventPasswordSet       = "password_set"
	auditEventPasswordRejected  = "password_rejected"
	auditEventPasswordUpgraded  = "password_upgraded"
	auditEventLoginSuccess      = "login_success"
	auditEventLoginFailure      = "login_failure"
	auditEventTokenRejected     = "token_rejected"
	auditEventAccountConfirmed  = "account_confirmed"
	auditEventPasswordReset     = "password_reset"
	auditEventEmailChanged      = "email_changed"
	auditEventRoleReconciled    = "role_reconciled"
	auditEventRoleAssigned      = "role_assigned"
)

// AuditErrorCode is the stable error label attached to failed audit events.
type AuditErrorCode string

const (
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrPasswordFormat     AuditErrorCode = "password_format"
	auditErrInvalidUser        AuditErrorCode = "invalid_user"
	auditErrUnknownRole        AuditErrorCode = "unknown_role"
	auditErrDuplicate          AuditErrorCode = "duplicate"
	auditErrUserNotFound       AuditErrorCode = "user_not_found"
	auditErrTokenExpired       AuditErrorCode = "token_expired"
	auditErrTokenMalformed     AuditErrorCode = "token_malformed"
	auditErrTokenPurpose       AuditErrorCode = "token_purpose"
	auditErrTokenSubject       AuditErrorCode = "token_subject"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := audit.Event{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		UserID:    userID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrInvalidCredentialFormat):
		return auditErrPasswordFormat
	case errors.Is(err, ErrInvalidUser),
		errors.Is(err, ErrSelfFollow):
		return auditErrInvalidUser
	case errors.Is(err, ErrUnknownRole),
		errors.Is(err, ErrRoleNotFound):
		return auditErrUnknownRole
	case errors.Is(err, ErrConstraintViolation):
		return auditErrDuplicate
	case errors.Is(err, ErrUserNotFound):
		return auditErrUserNotFound
	case errors.Is(err, token.ErrExpired):
		return auditErrTokenExpired
	case errors.Is(err, token.ErrMalformed),
		errors.Is(err, token.ErrUnknownPurpose):
		return auditErrTokenMalformed
	case errors.Is(err, token.ErrPurposeMissing):
		return auditErrTokenPurpose
	case errors.Is(err, token.ErrSubjectMismatch):
		return auditErrTokenSubject
	case errors.Is(err, ErrRoleBackendUnavailable),
		errors.Is(err, ErrFollowBackendMissing),
		errors.Is(err, ErrEngineNotReady),
		errors.Is(err, token.ErrSecretUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
