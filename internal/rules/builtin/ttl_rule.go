package builtin

import (
	"flowlens/internal/model"

	"github.com/sirupsen/logrus"
)

// WrongTTLRule flags records whose source or destination TTL sits at the edge of the range
type WrongTTLRule struct {
	name     string
	enabled  bool
	severity string
	low      int // flagged when ttl <= low
	high     int // flagged when ttl >= high
	logger   *logrus.Logger
}

func NewWrongTTLRule(enabled bool, severity string, low, high int, logger *logrus.Logger) *WrongTTLRule {
	if low <= 0 {
		low = 2
	}
	if high <= 0 {
		high = 254
	}
	return &WrongTTLRule{
		name:     "wrong_ttl",
		enabled:  enabled,
		severity: severity,
		low:      low,
		high:     high,
		logger:   logger,
	}
}

func (r *WrongTTLRule) Name() string {
	return r.name
}

func (r *WrongTTLRule) IsEnabled() bool {
	return r.enabled
}

func (r *WrongTTLRule) Severity() string {
	return r.severity
}

func (r *WrongTTLRule) Type() model.AnomalyType {
	return model.AnomalyWrongTTL
}

func (r *WrongTTLRule) RequiredColumns() []string {
	return []string{model.ColSttl, model.ColDttl}
}

func (r *WrongTTLRule) Match(rec *model.FlowRecord) bool {
	return rec.Sttl <= r.low || rec.Sttl >= r.high ||
		rec.Dttl <= r.low || rec.Dttl >= r.high
}
