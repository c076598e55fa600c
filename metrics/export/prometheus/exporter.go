package prometheus

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/MrEthical07/spellauth"
	"github.com/MrEthical07/spellauth/metrics/export/internaldefs"
	"github.com/MrEthical07/spellauth/permission"
)

// Source is what the exporter reads on every scrape. *spellauth.Engine
// satisfies it.
type Source interface {
	MetricsSnapshot() spellauth.MetricsSnapshot
	AuditDropped() uint64
	Roles() *permission.RoleManager
}

// PrometheusExporter renders engine metrics in Prometheus text exposition format.
type PrometheusExporter struct {
	source Source
}

// NewPrometheusExporter creates a Prometheus exporter that reads from engine.
func NewPrometheusExporter(engine *spellauth.Engine) *PrometheusExporter {
	return &PrometheusExporter{source: engine}
}

func NewPrometheusExporterFromSource(source Source) *PrometheusExporter {
	return &PrometheusExporter{source: source}
}

// Handler serves Render on every request.
func (p *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(p.Render()))
	})
}

// Render returns the current metrics, or "" when the engine collects none.
func (p *PrometheusExporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}

	snapshot := p.source.MetricsSnapshot()
	dropped := p.source.AuditDropped()
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 && dropped == 0 {
		return ""
	}

	var b strings.Builder
	b.Grow(4096)

	for _, fam := range internaldefs.CounterFamilies {
		writeHeader(&b, fam.Name, fam.Help, "counter")
		for _, s := range fam.Series {
			writeSample(&b, fam.Name, fam.Label, s.Value, snapshot.Counters[s.ID])
		}
	}

	for _, h := range internaldefs.Histograms {
		buckets, ok := snapshot.Histograms[h.ID]
		if !ok {
			continue
		}
		cumulative := internaldefs.Cumulative(buckets)
		writeHeader(&b, h.Name, h.Help, "histogram")
		for i, le := range internaldefs.HistogramBounds {
			writeSample(&b, h.Name+"_bucket", "le", le, cumulative[i])
		}
		writeSample(&b, h.Name+"_count", "", "", cumulative[internaldefs.BucketCount-1])
		// Only bucket counts are tracked.
		writeSample(&b, h.Name+"_sum", "", "", 0)
	}

	if roles := internaldefs.RoleMasks(p.source.Roles()); len(roles) > 0 {
		writeHeader(&b, internaldefs.RolePermissionsName, internaldefs.RolePermissionsHelp, "gauge")
		for _, def := range roles {
			writeSample(&b, internaldefs.RolePermissionsName, internaldefs.RolePermissionsLabel, def.Name, uint64(def.Permissions))
		}
	}

	writeHeader(&b, internaldefs.AuditDroppedName, internaldefs.AuditDroppedHelp, "counter")
	writeSample(&b, internaldefs.AuditDroppedName, "", "", dropped)

	return b.String()
}

func writeHeader(b *strings.Builder, name, help, kind string) {
	b.WriteString("# HELP ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(escapeHelp(help))
	b.WriteString("\n# TYPE ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(kind)
	b.WriteByte('\n')
}

func writeSample(b *strings.Builder, name, label, value string, v uint64) {
	b.WriteString(name)
	if label != "" {
		b.WriteByte('{')
		b.WriteString(label)
		b.WriteString("=\"")
		b.WriteString(escapeLabel(value))
		b.WriteString("\"}")
	}
	b.WriteByte(' ')
	b.WriteString(strconv.FormatUint(v, 10))
	b.WriteByte('\n')
}

func escapeHelp(help string) string {
	help = strings.ReplaceAll(help, "\\", "\\\\")
	return strings.ReplaceAll(help, "\n", "\\n")
}

func escapeLabel(v string) string {
	v = strings.ReplaceAll(v, "\\", "\\\\")
	v = strings.ReplaceAll(v, "\"", "\\\"")
	return strings.ReplaceAll(v, "\n", "\\n")
}
