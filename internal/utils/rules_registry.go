package utils

import (
	"flowlens/internal/rules"
	"flowlens/internal/rules/builtin"

	"github.com/sirupsen/logrus"
)

// Built-in rule names as they appear in the rules section
const (
	RuleDDoS            = "ddos"
	RuleWrongTTL        = "wrong_ttl"
	RuleWindowSize      = "window_size"
	RulePacketSize      = "packet_size"
	RuleNonstandardPort = "nonstandard_port"
)

// RuleOrder is the evaluation order. A record matched by several rules keeps the
// label of the last one, so the order is fixed here and not taken from the file.
var RuleOrder = []string{RuleDDoS, RuleWrongTTL, RuleWindowSize, RulePacketSize, RuleNonstandardPort}

// RegisterBuiltinRules registers the configured rules in RuleOrder. A rule missing
// from the config runs with its defaults; a disabled one is skipped.
func RegisterBuiltinRules(engine *rules.Engine, config *Config, logger *logrus.Logger) {
	known := make(map[string]bool, len(RuleOrder))
	for _, name := range RuleOrder {
		known[name] = true
	}
	for _, ruleConfig := range config.Rules {
		if !known[ruleConfig.Name] {
			logger.Warnf("Unknown rule type: %s", ruleConfig.Name)
		}
	}

	defaults := DefaultRules()
	for i, name := range RuleOrder {
		ruleConfig := defaults[i]
		if configured, ok := config.GetRuleConfigByName(name); ok {
			ruleConfig = *configured
		}
		if !ruleConfig.Enabled {
			logger.Debugf("Rule %s is disabled", name)
			continue
		}

		switch name {
		case RuleDDoS:
			rate := ruleConfig.Threshold("packet_rate", 1000)
			maxDur := ruleConfig.Threshold("max_duration", 0.1)
			engine.RegisterRule(builtin.NewDDoSRule(true, ruleConfig.Severity, rate, maxDur, logger))
			logger.Debugf("Rule %s: rate > %.0f pkt/s and dur < %.3fs", name, rate, maxDur)

		case RuleWrongTTL:
			low := int(ruleConfig.Threshold("low", 2))
			high := int(ruleConfig.Threshold("high", 254))
			engine.RegisterRule(builtin.NewWrongTTLRule(true, ruleConfig.Severity, low, high, logger))
			logger.Debugf("Rule %s: ttl <= %d or >= %d", name, low, high)

		case RuleWindowSize:
			low := int(ruleConfig.Threshold("low", 3))
			high := int(ruleConfig.Threshold("high", 65534))
			engine.RegisterRule(builtin.NewWindowSizeRule(true, ruleConfig.Severity, low, high, logger))
			logger.Debugf("Rule %s: window <= %d or >= %d", name, low, high)

		case RulePacketSize:
			minPackets := int64(ruleConfig.Threshold("min_packets", 100))
			perPacket := ruleConfig.Threshold("bytes_per_packet", 10)
			engine.RegisterRule(builtin.NewPacketSizeRule(true, ruleConfig.Severity, minPackets, perPacket, logger))
			logger.Debugf("Rule %s: spkts > %d and sbytes/spkts < %.1f", name, minPackets, perPacket)

		case RuleNonstandardPort:
			engine.RegisterRule(builtin.NewNonstandardPortRule(true, ruleConfig.Severity, logger))
		}
	}
}
