package generator

import (
	"fmt"
	"math/rand/v2"

	"flowlens/internal/model"
)

// rateSentinel stands in for spkts/dur when the sampled duration is zero
const rateSentinel = 9999999

// Misconfiguration sub-kinds
const (
	MisconfigTTL        = "wrong_ttl"
	MisconfigWindowSize = "window_size"
	MisconfigPacketSize = "packet_size"
)

var misconfigKinds = []string{MisconfigTTL, MisconfigWindowSize, MisconfigPacketSize}

var (
	boundaryTTLs    = []int{1, 2, 255, 254}
	boundaryWindows = []int{1, 2, 3, 65535, 65534}
)

// NonstandardPorts holds the alternative ports used when a service is moved off its standard port
var NonstandardPorts = map[string][]int{
	"http":   {8080, 8888, 8008, 8081, 8000},
	"https":  {8443, 9443, 4443, 8444, 9444},
	"dns":    {5353, 9053, 8053},
	"ftp":    {2121, 3721, 4559},
	"ssh":    {2222, 2022, 922},
	"smtp":   {2525, 1025, 26, 366},
	"pop3":   {1110, 2110, 1109},
	"imap":   {1143, 2143, 993},
	"telnet": {2323, 992},
	"ntp":    {1123, 1337},
	"rdp":    {3388, 13389},
	"vnc":    {5901, 5902, 5800},
}

// InjectionPlan records which row indices (0-based) were chosen for each
// anomaly category. It is never serialized with the table.
type InjectionPlan struct {
	Selected        []int          `json:"selected"`
	DDoS            []int          `json:"ddos"`
	Misconfig       []int          `json:"misconfig"`
	MisconfigKinds  map[int]string `json:"misconfig_kinds"`
	NonstandardPort []int          `json:"nonstandard_port"`
	// RepeatedConn indices are reserved for the repeated-connection category and left unperturbed.
	RepeatedConn []int `json:"repeated_conn"`
	// Unassigned counts selected rows left over by integer truncation of the sub-ratios.
	Unassigned int `json:"unassigned"`
}

// Perturbed returns the number of rows actually mutated
func (p *InjectionPlan) Perturbed() int {
	return len(p.DDoS) + len(p.Misconfig) + len(p.NonstandardPort)
}

func (g *Generator) injectAnomalies(records []model.FlowRecord) (*InjectionPlan, error) {
	cfg := g.cfg.Anomalies
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	count := truncCount(len(records), cfg.AnomalyRatio)
	selected := sampleWithoutReplacement(g.num, len(records), count)

	ddosN := truncCount(count, cfg.DDoSRatio)
	misconfigN := truncCount(count, cfg.MisconfigRatio)
	portN := truncCount(count, cfg.NonstandardPortRatio)
	repeatN := truncCount(count, cfg.RepeatedConnRatio)
	if ddosN+misconfigN+portN+repeatN > count {
		return nil, fmt.Errorf("%w: anomaly partitions exceed %d selected rows", ErrInvalidConfig, count)
	}

	plan := &InjectionPlan{
		Selected:       selected,
		MisconfigKinds: make(map[int]string, misconfigN),
	}
	off := 0
	plan.DDoS = selected[off : off+ddosN]
	off += ddosN
	plan.Misconfig = selected[off : off+misconfigN]
	off += misconfigN
	plan.NonstandardPort = selected[off : off+portN]
	off += portN
	plan.RepeatedConn = selected[off : off+repeatN]
	off += repeatN
	plan.Unassigned = count - off

	for _, idx := range plan.DDoS {
		perturbDDoS(g.choice, &records[idx])
	}
	for _, idx := range plan.Misconfig {
		plan.MisconfigKinds[idx] = perturbMisconfig(g.choice, &records[idx])
	}
	for _, idx := range plan.NonstandardPort {
		perturbPort(g.choice, &records[idx])
	}

	g.logger.Debugf("Anomaly injection: ddos=%d misconfig=%d nonstandard_port=%d repeated_conn(reserved)=%d unassigned=%d",
		len(plan.DDoS), len(plan.Misconfig), len(plan.NonstandardPort), len(plan.RepeatedConn), plan.Unassigned)
	return plan, nil
}

// perturbDDoS turns a record into a short burst of many small packets
func perturbDDoS(r *rand.Rand, rec *model.FlowRecord) {
	rec.Spkts = uniformIntIncl(r, 3000, 10000)
	rec.Dur = uniformFloat(r, 0.0001, 0.01)
	rec.Sbytes = rec.Spkts * uniformIntIncl(r, 1, 5)
	if round6(rec.Dur) > 0 {
		rec.Rate = float64(rec.Spkts) / rec.Dur
	} else {
		rec.Rate = rateSentinel
	}
}

func perturbMisconfig(r *rand.Rand, rec *model.FlowRecord) string {
	kind := pick(r, misconfigKinds)
	switch kind {
	case MisconfigTTL:
		rec.Sttl = pick(r, boundaryTTLs)
		rec.Dttl = pick(r, boundaryTTLs)
	case MisconfigWindowSize:
		rec.Swin = pick(r, boundaryWindows)
		rec.Dwin = pick(r, boundaryWindows)
	case MisconfigPacketSize:
		rec.Spkts = uniformIntIncl(r, 500, 1000)
		rec.Sbytes = uniformIntIncl(r, 500, 1000)
	}
	return kind
}

func perturbPort(r *rand.Rand, rec *model.FlowRecord) {
	if pool := NonstandardPorts[rec.Service]; len(pool) > 0 {
		rec.DstPort = pick(r, pool)
		return
	}
	rec.DstPort = int(uniformIntIncl(r, 10000, 65535))
}
