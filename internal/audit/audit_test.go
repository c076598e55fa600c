package audit

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

type countingSink struct {
	mu     sync.Mutex
	events []Event
	block  chan struct{}
}

func (s *countingSink) Emit(_ context.Context, event Event) {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	s.events = append(s.events, event)
	s.mu.Unlock()
}

func (s *countingSink) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func TestDispatcherDisabledReturnsNil(t *testing.T) {
	if d := NewDispatcher(Config{Enabled: false}, NoOpSink{}); d != nil {
		t.Fatal("expected nil dispatcher when disabled")
	}

	var d *Dispatcher
	d.Emit(context.Background(), Event{EventType: "x"})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher should report zero drops")
	}
}

func TestDispatcherFlushesOnClose(t *testing.T) {
	sink := &countingSink{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 16}, sink)

	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), Event{EventType: "user_created"})
	}
	d.Close()

	if got := sink.len(); got != 10 {
		t.Fatalf("expected 10 delivered events, got %d", got)
	}

	d.Emit(context.Background(), Event{EventType: "late"})
	if got := sink.len(); got != 10 {
		t.Fatalf("emit after close must be ignored, got %d", got)
	}
}

func TestDispatcherDropIfFullCountsDrops(t *testing.T) {
	sink := &countingSink{block: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	for i := 0; i < 50; i++ {
		d.Emit(context.Background(), Event{EventType: "token_rejected"})
	}
	if d.Dropped() == 0 {
		t.Fatal("expected dropped events under backpressure")
	}

	close(sink.block)
	d.Close()
}

func TestDispatcherBlockingRespectsContext(t *testing.T) {
	sink := &countingSink{block: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1}, sink)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		for _, name := range []string{"first", "second", "third"} {
			d.Emit(ctx, Event{EventType: name})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("blocking emit did not honor context cancellation")
	}

	close(sink.block)
	d.Close()
}

func TestJSONWriterSinkWritesLines(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), Event{EventType: "password_set", UserID: "u1", Success: true})
	sink.Emit(context.Background(), Event{EventType: "token_rejected", Error: "expired"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}

	var first Event
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if first.EventType != "password_set" || first.UserID != "u1" || !first.Success {
		t.Fatalf("unexpected event: %+v", first)
	}
}

func TestSlogSinkLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	sink := NewSlogSink(logger)

	sink.Emit(context.Background(), Event{EventType: "user_created", Success: true})
	if buf.Len() != 0 {
		t.Fatalf("success events should log at info, got %q", buf.String())
	}

	sink.Emit(context.Background(), Event{
		EventType: "token_rejected",
		Error:     "expired",
		Metadata:  map[string]string{"purpose": "confirm"},
	})
	out := buf.String()
	if !strings.Contains(out, `"event_type":"token_rejected"`) || !strings.Contains(out, `"meta.purpose":"confirm"`) {
		t.Fatalf("unexpected log output %q", out)
	}
}

func TestChannelSinkDelivers(t *testing.T) {
	sink := NewChannelSink(0)
	sink.Emit(context.Background(), Event{EventType: "role_created"})

	select {
	case ev := <-sink.Events():
		if ev.EventType != "role_created" {
			t.Fatalf("unexpected event %q", ev.EventType)
		}
	default:
		t.Fatal("expected buffered event")
	}
}

func TestDispatcherFiltersEventTypes(t *testing.T) {
	sink := &countingSink{}
	d := NewDispatcher(Config{
		Enabled:    true,
		BufferSize: 8,
		Events:     []string{"login_failure", " token_rejected "},
	}, sink)

	d.Emit(context.Background(), Event{EventType: "login_failure"})
	d.Emit(context.Background(), Event{EventType: "login_success"})
	d.Emit(context.Background(), Event{EventType: "token_rejected"})
	d.Emit(context.Background(), Event{EventType: "user_created"})
	d.Close()

	if got := sink.len(); got != 2 {
		t.Fatalf("expected 2 delivered events, got %d", got)
	}
	if got := d.Filtered(); got != 2 {
		t.Fatalf("expected 2 filtered events, got %d", got)
	}
	if !d.Accepts("token_rejected") || d.Accepts("password_set") {
		t.Fatal("unexpected filter decision")
	}
}

func TestDispatcherRedactsCredentialMetadata(t *testing.T) {
	sink := &countingSink{}
	d := NewDispatcher(Config{
		Enabled:    true,
		BufferSize: 8,
		RedactKeys: []string{"Previous_Domain"},
	}, sink)

	meta := map[string]string{
		"reason":          "password_mismatch",
		"reset_token":     "eyJhbGciOi",
		"password_hash":   "$argon2id$v=19$",
		"Client_Secret":   "k",
		"previous_domain": "example.com",
	}
	d.Emit(context.Background(), Event{EventType: "password_reset", Metadata: meta})
	d.Close()

	if sink.len() != 1 {
		t.Fatalf("expected 1 event, got %d", sink.len())
	}
	got := sink.events[0].Metadata
	if got["reason"] != "password_mismatch" {
		t.Fatalf("non-sensitive value changed: %q", got["reason"])
	}
	for _, k := range []string{"reset_token", "password_hash", "Client_Secret", "previous_domain"} {
		if got[k] != Redacted {
			t.Fatalf("expected %s redacted, got %q", k, got[k])
		}
	}
	if meta["reset_token"] != "eyJhbGciOi" {
		t.Fatal("caller metadata must not be modified")
	}
}
