package metrics

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"flowlens/internal/model"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

const DefaultNamespace = "flowlens"

type Metrics struct {
	// Dataset metrics
	Records     *prometheus.GaugeVec
	RowsDropped *prometheus.CounterVec

	// Detection metrics
	Anomalies         *prometheus.GaugeVec
	RuleMatches       *prometheus.CounterVec
	DetectionRuns     *prometheus.CounterVec
	DetectionDuration *prometheus.HistogramVec

	// Generator metrics
	GeneratedRecords prometheus.Counter

	AlertCounter *prometheus.CounterVec
}

// New registers the metric set on reg
func New(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	factory := promauto.With(reg)

	return &Metrics{
		Records: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "dataset_records",
				Help:      "Number of records in a loaded dataset after cleaning",
			},
			[]string{"dataset"},
		),

		RowsDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dataset_rows_dropped_total",
				Help:      "Rows dropped by the cleaner",
			},
			[]string{"dataset"},
		),

		Anomalies: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "anomalies",
				Help:      "Anomalous records found by the last detection run",
			},
			[]string{"dataset", "type"},
		),

		RuleMatches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rule_matches_total",
				Help:      "Records matched by a rule, counted before later rules overwrite the label",
			},
			[]string{"rule"},
		),

		DetectionRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "detection_runs_total",
				Help:      "Completed rule engine passes",
			},
			[]string{"dataset"},
		),

		DetectionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "detection_duration_seconds",
				Help:      "Time spent labeling a dataset",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"dataset"},
		),

		GeneratedRecords: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "generated_records_total",
				Help:      "Synthetic flow records generated",
			},
		),

		AlertCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "alerts_total",
				Help:      "Alerts emitted after detection runs",
			},
			[]string{"severity", "type"},
		),
	}
}

// RecordDataset sets the record gauge and adds the cleaner's dropped rows
func (m *Metrics) RecordDataset(dataset string, kept, dropped int) {
	m.Records.WithLabelValues(dataset).Set(float64(kept))
	if dropped > 0 {
		m.RowsDropped.WithLabelValues(dataset).Add(float64(dropped))
	}
}

// RecordDetection publishes one engine pass. Anomaly gauges of types absent
// from the result are reset to zero so a rerun never shows stale counts.
func (m *Metrics) RecordDetection(result *model.DetectionResult) {
	if result == nil {
		return
	}
	for _, typ := range model.AnomalyTypes {
		m.Anomalies.WithLabelValues(result.Dataset, string(typ)).Set(float64(result.ByType[typ]))
	}
	for rule, n := range result.RuleMatches {
		m.RuleMatches.WithLabelValues(rule).Add(float64(n))
	}
	m.DetectionRuns.WithLabelValues(result.Dataset).Inc()
	m.DetectionDuration.WithLabelValues(result.Dataset).Observe(result.Duration.Seconds())
}

func (m *Metrics) RecordGenerated(n int) {
	m.GeneratedRecords.Add(float64(n))
}

func (m *Metrics) RecordAlert(severity, alertType string) {
	m.AlertCounter.WithLabelValues(severity, alertType).Inc()
}

// WriteText encodes every family gathered from g in the text exposition format
func WriteText(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("failed to encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// WriteTextfile writes the metrics for a node_exporter textfile collector,
// through a temp file renamed into place.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteText(tmp, g); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to rename metrics file: %w", err)
	}
	return nil
}
