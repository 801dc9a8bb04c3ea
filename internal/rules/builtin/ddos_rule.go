package builtin

import (
	"math"

	"flowlens/internal/model"

	"github.com/sirupsen/logrus"
)

const (
	defaultDDoSPacketRate  = 1000.0
	defaultDDoSMaxDuration = 0.1
)

// DDoSRule flags short connections with an extreme source packet rate
type DDoSRule struct {
	name        string
	enabled     bool
	severity    string
	packetRate  float64 // packets per second above which a record is flagged
	maxDuration float64 // seconds; only records shorter than this are considered
	logger      *logrus.Logger
}

func NewDDoSRule(enabled bool, severity string, packetRate, maxDuration float64, logger *logrus.Logger) *DDoSRule {
	if packetRate <= 0 {
		packetRate = defaultDDoSPacketRate
	}
	if maxDuration <= 0 {
		maxDuration = defaultDDoSMaxDuration
	}
	return &DDoSRule{
		name:        "ddos",
		enabled:     enabled,
		severity:    severity,
		packetRate:  packetRate,
		maxDuration: maxDuration,
		logger:      logger,
	}
}

func (r *DDoSRule) Name() string {
	return r.name
}

func (r *DDoSRule) IsEnabled() bool {
	return r.enabled
}

func (r *DDoSRule) Severity() string {
	return r.severity
}

func (r *DDoSRule) Type() model.AnomalyType {
	return model.AnomalyDDoS
}

func (r *DDoSRule) RequiredColumns() []string {
	return []string{model.ColSpkts, model.ColDur}
}

func (r *DDoSRule) Match(rec *model.FlowRecord) bool {
	return PacketRate(rec) > r.packetRate && rec.Dur < r.maxDuration
}

// PacketRate returns spkts/dur. A zero duration with packets sent is an
// infinite rate; a record with no packets has rate 0. A negative duration
// yields a negative rate, which never passes the threshold.
func PacketRate(rec *model.FlowRecord) float64 {
	if rec.Spkts <= 0 {
		return 0
	}
	if rec.Dur == 0 {
		return math.Inf(1)
	}
	return float64(rec.Spkts) / rec.Dur
}
