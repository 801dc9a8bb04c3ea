package builtin

import (
	"flowlens/internal/model"

	"github.com/sirupsen/logrus"
)

// PacketSizeRule flags busy flows carrying implausibly few bytes per packet
type PacketSizeRule struct {
	name           string
	enabled        bool
	severity       string
	minPackets     int64
	bytesPerPacket float64
	logger         *logrus.Logger
}

func NewPacketSizeRule(enabled bool, severity string, minPackets int64, bytesPerPacket float64, logger *logrus.Logger) *PacketSizeRule {
	if minPackets <= 0 {
		minPackets = 100
	}
	if bytesPerPacket <= 0 {
		bytesPerPacket = 10
	}
	return &PacketSizeRule{
		name:           "packet_size",
		enabled:        enabled,
		severity:       severity,
		minPackets:     minPackets,
		bytesPerPacket: bytesPerPacket,
		logger:         logger,
	}
}

func (r *PacketSizeRule) Name() string {
	return r.name
}

func (r *PacketSizeRule) IsEnabled() bool {
	return r.enabled
}

func (r *PacketSizeRule) Severity() string {
	return r.severity
}

func (r *PacketSizeRule) Type() model.AnomalyType {
	return model.AnomalyPacketSize
}

func (r *PacketSizeRule) RequiredColumns() []string {
	return []string{model.ColSpkts, model.ColSbytes}
}

// Match is only reached with spkts > minPackets >= 1, so the division is safe.
func (r *PacketSizeRule) Match(rec *model.FlowRecord) bool {
	if rec.Spkts <= r.minPackets {
		return false
	}
	return float64(rec.Sbytes)/float64(rec.Spkts) < r.bytesPerPacket
}
