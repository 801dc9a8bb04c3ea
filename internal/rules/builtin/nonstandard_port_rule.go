package builtin

import (
	"flowlens/internal/model"

	"github.com/sirupsen/logrus"
)

// ServicePort pairs a service name with its conventional destination port
type ServicePort struct {
	Service string
	Port    int
}

// DefaultServicePorts is the service table checked by NonstandardPortRule, in check order.
// dhcp and vnc are deliberately absent.
var DefaultServicePorts = []ServicePort{
	{"http", 80},
	{"https", 443},
	{"dns", 53},
	{"ftp", 21},
	{"ssh", 22},
	{"smtp", 25},
	{"pop3", 110},
	{"imap", 143},
	{"telnet", 23},
	{"ntp", 123},
	{"rdp", 3389},
}

// NonstandardPortRule flags records whose destination port differs from the service's standard port
type NonstandardPortRule struct {
	name     string
	enabled  bool
	severity string
	ports    []ServicePort
	logger   *logrus.Logger
}

func NewNonstandardPortRule(enabled bool, severity string, logger *logrus.Logger) *NonstandardPortRule {
	ports := make([]ServicePort, len(DefaultServicePorts))
	copy(ports, DefaultServicePorts)
	return &NonstandardPortRule{
		name:     "nonstandard_port",
		enabled:  enabled,
		severity: severity,
		ports:    ports,
		logger:   logger,
	}
}

func (r *NonstandardPortRule) Name() string {
	return r.name
}

func (r *NonstandardPortRule) IsEnabled() bool {
	return r.enabled
}

func (r *NonstandardPortRule) Severity() string {
	return r.severity
}

func (r *NonstandardPortRule) Type() model.AnomalyType {
	return model.AnomalyNonstandardPort
}

func (r *NonstandardPortRule) RequiredColumns() []string {
	return []string{model.ColService, model.ColDstPort}
}

// Match walks the service table in order. Every entry is checked even after a
// hit; since service is single-valued at most one entry can match.
func (r *NonstandardPortRule) Match(rec *model.FlowRecord) bool {
	matched := false
	for _, sp := range r.ports {
		if rec.Service == sp.Service && rec.DstPort != sp.Port {
			matched = true
		}
	}
	return matched
}

// Ports returns the service table in check order
func (r *NonstandardPortRule) Ports() []ServicePort {
	return r.ports
}
