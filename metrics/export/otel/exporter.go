package otel

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/MrEthical07/spellauth"
	"github.com/MrEthical07/spellauth/metrics/export/internaldefs"
	"github.com/MrEthical07/spellauth/permission"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

// Source is what the exporter reads on every collection. *spellauth.Engine
// satisfies it.
type Source interface {
	MetricsSnapshot() spellauth.MetricsSnapshot
	AuditDropped() uint64
	Roles() *permission.RoleManager
}

type labelledSeries struct {
	id   spellauth.MetricID
	attr metric.ObserveOption
}

type family struct {
	instrument metric.Int64ObservableCounter
	series     []labelledSeries
}

type latency struct {
	id      spellauth.MetricID
	buckets metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
	bounds  [internaldefs.BucketCount]metric.ObserveOption
}

// OTelExporter publishes engine metrics as observable instruments on a
// caller-supplied meter. Each counter family becomes one instrument whose
// series carry the family label as an attribute.
type OTelExporter struct {
	source       Source
	registration metric.Registration
	families     []family
	latencies    []latency
	roles        metric.Int64ObservableGauge
	auditDropped metric.Int64ObservableCounter
}

// NewOTelExporter registers instruments reading from engine.
func NewOTelExporter(meter metric.Meter, engine *spellauth.Engine) (*OTelExporter, error) {
	return NewOTelExporterFromSource(meter, engine)
}

func NewOTelExporterFromSource(meter metric.Meter, source Source) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &OTelExporter{source: source}
	var observables []metric.Observable

	for _, def := range internaldefs.CounterFamilies {
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("create counter %s: %w", def.Name, err)
		}
		f := family{instrument: ins, series: make([]labelledSeries, 0, len(def.Series))}
		for _, s := range def.Series {
			f.series = append(f.series, labelledSeries{
				id:   s.ID,
				attr: metric.WithAttributes(attribute.String(def.Label, s.Value)),
			})
		}
		e.families = append(e.families, f)
		observables = append(observables, ins)
	}

	for _, def := range internaldefs.Histograms {
		buckets, err := meter.Int64ObservableGauge(def.Name+"_bucket", metric.WithDescription(def.Help+" Cumulative bucket counts."))
		if err != nil {
			return nil, fmt.Errorf("create bucket gauge %s: %w", def.Name, err)
		}
		count, err := meter.Int64ObservableGauge(def.Name+"_count", metric.WithDescription(def.Help+" Sample count."))
		if err != nil {
			return nil, fmt.Errorf("create count gauge %s: %w", def.Name, err)
		}
		l := latency{id: def.ID, buckets: buckets, count: count}
		for i, le := range internaldefs.HistogramBounds {
			l.bounds[i] = metric.WithAttributes(attribute.String("le", le))
		}
		e.latencies = append(e.latencies, l)
		observables = append(observables, buckets, count)
	}

	roles, err := meter.Int64ObservableGauge(internaldefs.RolePermissionsName, metric.WithDescription(internaldefs.RolePermissionsHelp))
	if err != nil {
		return nil, fmt.Errorf("create role gauge: %w", err)
	}
	e.roles = roles

	dropped, err := meter.Int64ObservableCounter(internaldefs.AuditDroppedName, metric.WithDescription(internaldefs.AuditDroppedHelp))
	if err != nil {
		return nil, fmt.Errorf("create audit dropped counter: %w", err)
	}
	e.auditDropped = dropped
	observables = append(observables, roles, dropped)

	registration, err := meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	e.registration = registration
	return e, nil
}

func (e *OTelExporter) observe(_ context.Context, o metric.Observer) error {
	snapshot := e.source.MetricsSnapshot()

	for _, f := range e.families {
		for _, s := range f.series {
			o.ObserveInt64(f.instrument, int64(snapshot.Counters[s.id]), s.attr)
		}
	}

	for _, l := range e.latencies {
		raw, ok := snapshot.Histograms[l.id]
		if !ok {
			continue
		}
		cumulative := internaldefs.Cumulative(raw)
		for i, v := range cumulative {
			o.ObserveInt64(l.buckets, int64(v), l.bounds[i])
		}
		o.ObserveInt64(l.count, int64(cumulative[internaldefs.BucketCount-1]))
	}

	for _, def := range internaldefs.RoleMasks(e.source.Roles()) {
		o.ObserveInt64(e.roles, int64(def.Permissions),
			metric.WithAttributes(attribute.String(internaldefs.RolePermissionsLabel, def.Name)))
	}

	o.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))
	return nil
}

// Close unregisters the collection callback.
func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
