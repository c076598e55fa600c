package spellauth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/spellauth/token"
)

func newAuditEnv(t *testing.T, enabled bool) (*testEnv, *ChannelSink) {
	t.Helper()
	cfg := testConfig()
	cfg.Audit.Enabled = enabled
	cfg.Audit.BufferSize = 64
	cfg.Audit.DropIfFull = false

	sink := NewChannelSink(64)
	env := newTestEnv(t, cfg, func(b *Builder) { b.WithAuditSink(sink) })
	return env, sink
}

func collectEvents(sink *ChannelSink, wait time.Duration) []AuditEvent {
	var events []AuditEvent
	timeout := time.After(wait)
	for {
		select {
		case ev := <-sink.Events():
			events = append(events, ev)
		case <-timeout:
			return events
		}
	}
}

func findEvent(events []AuditEvent, eventType string) (AuditEvent, bool) {
	for _, ev := range events {
		if ev.EventType == eventType {
			return ev, true
		}
	}
	return AuditEvent{}, false
}

func TestAuditDisabledNoSinkCalls(t *testing.T) {
	env, sink := newAuditEnv(t, false)
	env.createUser(t, "alice")
	_, _ = env.engine.Authenticate(context.Background(), "alice", "wrong.pass")

	if events := collectEvents(sink, 50*time.Millisecond); len(events) != 0 {
		t.Fatalf("expected no audit events when disabled, got %d", len(events))
	}
}

func TestAuditLoginFailureFields(t *testing.T) {
	env, sink := newAuditEnv(t, true)
	env.createUser(t, "alice")

	ctx := WithClientIP(context.Background(), "198.51.100.33")
	_, _ = env.engine.Authenticate(ctx, "alice", "wrong.pass")

	ev, ok := findEvent(collectEvents(sink, 200*time.Millisecond), auditEventLoginFailure)
	if !ok {
		t.Fatal("expected login_failure event")
	}
	if ev.IP != "198.51.100.33" {
		t.Fatalf("expected IP 198.51.100.33, got %q", ev.IP)
	}
	if ev.Success || ev.Error != string(auditErrInvalidCredentials) {
		t.Fatalf("unexpected outcome success=%v error=%q", ev.Success, ev.Error)
	}
	if ev.Metadata["reason"] != "password_mismatch" {
		t.Fatalf("unexpected reason %q", ev.Metadata["reason"])
	}
	if !ev.Timestamp.Equal(env.clock.Now()) {
		t.Fatalf("expected event stamped by the engine clock, got %v", ev.Timestamp)
	}
}

func TestAuditTokenRejectionReason(t *testing.T) {
	env, sink := newAuditEnv(t, true)
	u := env.createUser(t, "alice")

	tok, _ := env.engine.GenerateToken(u, token.PurposeConfirm, time.Minute)
	env.clock.Advance(time.Hour)
	env.engine.VerifyToken(context.Background(), u, token.PurposeConfirm, tok)

	ev, ok := findEvent(collectEvents(sink, 200*time.Millisecond), auditEventTokenRejected)
	if !ok {
		t.Fatal("expected token_rejected event")
	}
	if ev.Error != string(auditErrTokenExpired) || ev.Metadata["purpose"] != "confirm" {
		t.Fatalf("unexpected token rejection event %+v", ev)
	}
}

func TestAuditNoSecretsInEvents(t *testing.T) {
	env, sink := newAuditEnv(t, true)
	u := env.createUser(t, "alice")
	ctx := context.Background()

	resetTok, _ := env.engine.GenerateToken(u, token.PurposeReset, time.Hour)
	if _, err := env.engine.ResetPassword(ctx, u, resetTok, "n3w.pass"); err != nil {
		t.Fatal(err)
	}
	_, _ = env.engine.Authenticate(ctx, "alice", "n3w.pass")
	_, _ = env.engine.Authenticate(ctx, "alice", testPassword)

	events := collectEvents(sink, 200*time.Millisecond)
	if len(events) == 0 {
		t.Fatal("expected audit events")
	}

	needles := []string{testPassword, "n3w.pass", resetTok, u.passwordHash, "test-secret"}
	for _, ev := range events {
		for _, needle := range needles {
			if strings.Contains(ev.Error, needle) {
				t.Fatalf("sensitive value leaked in %s error field", ev.EventType)
			}
			for k, v := range ev.Metadata {
				if strings.Contains(k, needle) || strings.Contains(v, needle) {
					t.Fatalf("sensitive value leaked in %s metadata", ev.EventType)
				}
			}
		}
	}
}

func TestAuditErrorCodeMapping(t *testing.T) {
	tests := []struct {
		err  error
		want AuditErrorCode
	}{
		{nil, ""},
		{ErrInvalidCredentials, auditErrInvalidCredentials},
		{ErrInvalidCredentialFormat, auditErrPasswordFormat},
		{ErrSelfFollow, auditErrInvalidUser},
		{ErrUnknownRole, auditErrUnknownRole},
		{ErrConstraintViolation, auditErrDuplicate},
		{token.ErrExpired, auditErrTokenExpired},
		{token.ErrSubjectMismatch, auditErrTokenSubject},
		{token.ErrSecretUnavailable, auditErrUnavailable},
		{context.Canceled, auditErrInternal},
	}
	for _, tt := range tests {
		if got := auditErrorCode(tt.err); got != tt.want {
			t.Fatalf("auditErrorCode(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestAuditEventFilter(t *testing.T) {
	cfg := testConfig()
	cfg.Audit.Enabled = true
	cfg.Audit.Events = []string{auditEventLoginFailure}
	sink := NewChannelSink(64)
	env := newTestEnv(t, cfg, func(b *Builder) { b.WithAuditSink(sink) })

	env.createUser(t, "alice")
	_, _ = env.engine.Authenticate(context.Background(), "alice", testPassword)
	_, _ = env.engine.Authenticate(context.Background(), "alice", "wrong.pass")

	events := collectEvents(sink, 200*time.Millisecond)
	if len(events) != 1 || events[0].EventType != auditEventLoginFailure {
		t.Fatalf("expected only login_failure, got %+v", events)
	}
}
