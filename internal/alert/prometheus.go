package alert

import (
	"flowlens/internal/metrics"
	"flowlens/internal/model"
)

// PrometheusNotifier counts alerts into the alerts_total metric
type PrometheusNotifier struct {
	metrics *metrics.Metrics
}

func NewPrometheusNotifier(m *metrics.Metrics) *PrometheusNotifier {
	return &PrometheusNotifier{metrics: m}
}

func (pn *PrometheusNotifier) SendAlert(alert model.Alert) error {
	pn.metrics.RecordAlert(alert.Severity, string(alert.Type))
	return nil
}
