// Package metrics exposes prometheus instruments for the sequence and
// import subsystems.
package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Config labels every metric with the service identity.
type Config struct {
	ServiceName string
	Environment string
}

// SequenceMetrics instruments snapshot writes, restores and imports.
type SequenceMetrics struct {
	snapshotWrites *prometheus.CounterVec
	restores       *prometheus.CounterVec
	importRuns     *prometheus.CounterVec
	importRows     *prometheus.CounterVec
}

var (
	sequenceMetricsOnce sync.Once
	sequenceMetrics     *SequenceMetrics
)

// Sequence returns the process-wide sequence metrics.
func Sequence() *SequenceMetrics {
	return SequenceWithConfig(Config{})
}

func SequenceWithConfig(cfg Config) *SequenceMetrics {
	sequenceMetricsOnce.Do(func() {
		sequenceMetrics = newSequenceMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return sequenceMetrics
}

func ResetSequenceMetricsForTest() {
	sequenceMetricsOnce = sync.Once{}
	sequenceMetrics = nil
}

func newSequenceMetrics(registerer prometheus.Registerer, cfg Config) *SequenceMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "fabline"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}

	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	snapshotWrites := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "fabline_sequence_snapshot_writes_total",
			Help:        "Build-sequence history rows written, by change type and result.",
			ConstLabels: constLabels,
		},
		[]string{"change_type", "result"}, // result: success | failed
	)

	restores := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "fabline_sequence_restores_total",
			Help:        "Snapshot restore attempts.",
			ConstLabels: constLabels,
		},
		[]string{"result"}, // success | not_found | failed
	)

	importRuns := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "fabline_import_runs_total",
			Help:        "Module import operations, by mode and outcome.",
			ConstLabels: constLabels,
		},
		[]string{"action", "mode", "result"}, // action: analyze | execute
	)

	importRows := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "fabline_import_rows_total",
			Help:        "Import rows by classification after reconciliation.",
			ConstLabels: constLabels,
		},
		[]string{"classification"}, // new | unchanged | changed | skipped | error
	)

	registerer.MustRegister(
		snapshotWrites,
		restores,
		importRuns,
		importRows,
	)

	return &SequenceMetrics{
		snapshotWrites: snapshotWrites,
		restores:       restores,
		importRuns:     importRuns,
		importRows:     importRows,
	}
}

func (m *SequenceMetrics) IncSnapshotWrite(changeType, result string) {
	if m == nil {
		return
	}
	m.snapshotWrites.WithLabelValues(changeType, result).Inc()
}

func (m *SequenceMetrics) IncRestore(result string) {
	if m == nil {
		return
	}
	m.restores.WithLabelValues(result).Inc()
}

func (m *SequenceMetrics) IncImportRun(action, mode, result string) {
	if m == nil {
		return
	}
	m.importRuns.WithLabelValues(action, mode, result).Inc()
}

func (m *SequenceMetrics) AddImportRows(classification string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.importRows.WithLabelValues(classification).Add(float64(count))
}
