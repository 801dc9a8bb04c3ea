package builtin

import (
	"flowlens/internal/model"

	"github.com/sirupsen/logrus"
)

// WindowSizeRule flags TCP window sizes pinned to either end of the 16-bit range
type WindowSizeRule struct {
	name     string
	enabled  bool
	severity string
	low      int
	high     int
	logger   *logrus.Logger
}

func NewWindowSizeRule(enabled bool, severity string, low, high int, logger *logrus.Logger) *WindowSizeRule {
	if low <= 0 {
		low = 3
	}
	if high <= 0 {
		high = 65534
	}
	return &WindowSizeRule{
		name:     "window_size",
		enabled:  enabled,
		severity: severity,
		low:      low,
		high:     high,
		logger:   logger,
	}
}

func (r *WindowSizeRule) Name() string {
	return r.name
}

func (r *WindowSizeRule) IsEnabled() bool {
	return r.enabled
}

func (r *WindowSizeRule) Severity() string {
	return r.severity
}

func (r *WindowSizeRule) Type() model.AnomalyType {
	return model.AnomalyWindowSize
}

func (r *WindowSizeRule) RequiredColumns() []string {
	return []string{model.ColSwin, model.ColDwin}
}

func (r *WindowSizeRule) Match(rec *model.FlowRecord) bool {
	return rec.Swin <= r.low || rec.Swin >= r.high ||
		rec.Dwin <= r.low || rec.Dwin >= r.high
}
