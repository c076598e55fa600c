// Package internaldefs holds the metric families, label names and bucket
// bounds shared by the Prometheus and OpenTelemetry exporters, so both
// expose identical spellauth_* series.
//
// # What this package must NOT do
//
//   - Import an exporter package.
//   - Perform I/O.
package internaldefs
