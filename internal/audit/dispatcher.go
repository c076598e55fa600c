package audit

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
)

// Redacted replaces the value of every redacted metadata key.
const Redacted = "[redacted]"

// credentialKeys are masked regardless of Config.RedactKeys. A metadata key
// is masked when it contains any of these fragments.
var credentialKeys = []string{"password", "hash", "token", "secret"}

// Config controls buffering and the policy applied to each event before it
// reaches the sink.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool

	// Events restricts delivery to the listed event types. Empty delivers
	// every type.
	Events []string
	// RedactKeys lists extra metadata keys whose values are masked.
	RedactKeys []string
}

// Dispatcher filters, scrubs and asynchronously forwards audit events to a
// sink. A nil Dispatcher discards everything.
type Dispatcher struct {
	sink       Sink
	dropIfFull bool
	allow      map[string]struct{}
	redact     map[string]struct{}

	queue    chan Event
	quit     chan struct{}
	stopped  sync.WaitGroup
	stopOnce sync.Once
	closed   atomic.Bool

	dropped  atomic.Uint64
	filtered atomic.Uint64
}

// NewDispatcher returns nil when cfg is disabled.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	size := cfg.BufferSize
	if size <= 0 {
		size = 1
	}

	d := &Dispatcher{
		sink:       sink,
		dropIfFull: cfg.DropIfFull,
		redact:     make(map[string]struct{}, len(cfg.RedactKeys)),
		queue:      make(chan Event, size),
		quit:       make(chan struct{}),
	}
	if len(cfg.Events) > 0 {
		d.allow = make(map[string]struct{}, len(cfg.Events))
		for _, name := range cfg.Events {
			if name = strings.TrimSpace(name); name != "" {
				d.allow[name] = struct{}{}
			}
		}
	}
	for _, key := range cfg.RedactKeys {
		d.redact[strings.ToLower(key)] = struct{}{}
	}

	d.stopped.Add(1)
	go d.loop()
	return d
}

func (d *Dispatcher) loop() {
	defer d.stopped.Done()
	for {
		select {
		case ev := <-d.queue:
			d.sink.Emit(context.Background(), ev)
		case <-d.quit:
			d.drain()
			return
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case ev := <-d.queue:
			d.sink.Emit(context.Background(), ev)
		default:
			return
		}
	}
}

// Accepts reports whether events of eventType pass the delivery filter.
func (d *Dispatcher) Accepts(eventType string) bool {
	if d == nil {
		return false
	}
	if d.allow == nil {
		return true
	}
	_, ok := d.allow[eventType]
	return ok
}

// Emit queues event after filtering and scrubbing it. With DropIfFull a full
// queue drops the event; otherwise Emit waits until ctx is done.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil || d.closed.Load() {
		return
	}
	if !d.Accepts(event.EventType) {
		d.filtered.Add(1)
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	event.Metadata = d.scrub(event.Metadata)

	if d.dropIfFull {
		select {
		case d.queue <- event:
		case <-d.quit:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.queue <- event:
	case <-ctx.Done():
		d.dropped.Add(1)
	case <-d.quit:
	}
}

// scrub returns a copy of metadata with sensitive values masked. The
// caller's map is never modified.
func (d *Dispatcher) scrub(metadata map[string]string) map[string]string {
	if len(metadata) == 0 {
		return metadata
	}
	out := make(map[string]string, len(metadata))
	for k, v := range metadata {
		if d.sensitive(k) {
			v = Redacted
		}
		out[k] = v
	}
	return out
}

func (d *Dispatcher) sensitive(key string) bool {
	key = strings.ToLower(key)
	if _, ok := d.redact[key]; ok {
		return true
	}
	for _, fragment := range credentialKeys {
		if strings.Contains(key, fragment) {
			return true
		}
	}
	return false
}

// Close stops accepting events and flushes the queue into the sink.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.stopOnce.Do(func() {
		d.closed.Store(true)
		close(d.quit)
		d.stopped.Wait()
	})
}

// Dropped counts events lost to backpressure or a cancelled context.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// Filtered counts events withheld by the event-type filter.
func (d *Dispatcher) Filtered() uint64 {
	if d == nil {
		return 0
	}
	return d.filtered.Load()
}
