package generator

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"flowlens/internal/model"

	"github.com/sirupsen/logrus"
)

// streamSalt decorrelates the two PCG words derived from one seed
const streamSalt = 0x9e3779b97f4a7c15

// Generator produces synthetic flow records. It owns two random sources:
// num for numeric sampling and choice for discrete choices, so equal seeds give
// identical tables.
type Generator struct {
	cfg    Config
	num    *rand.Rand
	choice *rand.Rand
	logger *logrus.Logger

	protocols    *categorical
	services     *categorical
	states       *categorical
	srcCountries *categorical
	dstCountries *categorical
}

// Result is a generated table plus the record of which rows were perturbed
type Result struct {
	Table *model.Table
	Plan  *InjectionPlan
}

func New(cfg Config, logger *logrus.Logger) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.BaseTime.IsZero() {
		cfg.BaseTime = DefaultBaseTime
	}

	return &Generator{
		cfg:          cfg,
		num:          rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^streamSalt)),
		choice:       rand.New(rand.NewPCG(cfg.ChoiceSeed, cfg.ChoiceSeed^streamSalt)),
		logger:       logger,
		protocols:    newCategorical(cfg.Protocols),
		services:     newCategorical(cfg.Services),
		states:       newCategorical(cfg.States),
		srcCountries: newCategorical(cfg.SrcCountries),
		dstCountries: newCategorical(cfg.DstCountries),
	}, nil
}

// Config returns the resolved configuration, including the effective base time
func (g *Generator) Config() Config {
	return g.cfg
}

// Generate builds cfg.Rows records, applies geographic shaping and injects
// anomalies. The table carries no labels.
func (g *Generator) Generate() (*Result, error) {
	n := g.cfg.Rows
	records := make([]model.FlowRecord, n)

	for i := range records {
		g.fillRecord(&records[i], int64(i+1))
	}

	g.correlateCountries(records)
	g.scaleBytes(records)

	plan := &InjectionPlan{}
	if g.cfg.Anomalies.Enabled {
		var err error
		plan, err = g.injectAnomalies(records)
		if err != nil {
			return nil, err
		}
	}

	for i := range records {
		finalize(&records[i])
	}

	g.logger.Infof("Generated %d records (%d selected for perturbation)", n, len(plan.Selected))
	return &Result{
		Table: model.NewTable(records),
		Plan:  plan,
	}, nil
}

func (g *Generator) fillRecord(r *model.FlowRecord, id int64) {
	window := int64(g.cfg.WindowDays) * 24 * 60 * 60

	r.ID = id
	r.Proto = g.protocols.sample(g.num)
	r.Service = g.services.sample(g.num)
	r.State = g.states.sample(g.num)

	r.Dur = exponential(g.num, 10)
	r.Spkts = uniformInt(g.num, 1, 1000)
	r.Dpkts = uniformInt(g.num, 1, 1000)
	r.Sbytes = uniformInt(g.num, 100, 10000000)
	r.Dbytes = uniformInt(g.num, 100, 10000000)
	r.Rate = exponential(g.num, 1000)
	r.Sttl = int(uniformInt(g.num, 30, 255))
	r.Dttl = int(uniformInt(g.num, 30, 255))
	r.Sload = exponential(g.num, 5)
	r.Dload = exponential(g.num, 5)
	r.Sloss = uniformInt(g.num, 0, 100)
	r.Dloss = uniformInt(g.num, 0, 100)
	r.Sinpkt = exponential(g.num, 0.01)
	r.Dinpkt = exponential(g.num, 0.01)
	r.Sjit = exponential(g.num, 0.005)
	r.Djit = exponential(g.num, 0.005)
	r.Swin = int(uniformInt(g.num, 1000, 65535))
	r.Dwin = int(uniformInt(g.num, 1000, 65535))
	r.Stcpb = uniformInt(g.num, 100000, 1000000000)
	r.Dtcpb = uniformInt(g.num, 100000, 1000000000)
	r.Tcprtt = exponential(g.num, 0.1)
	r.Synack = exponential(g.num, 0.05)
	r.Ackdat = exponential(g.num, 0.05)

	r.SrcIP = randomIP(g.choice)
	r.DstIP = randomIP(g.choice)
	r.SrcCountry = g.srcCountries.sample(g.num)
	r.DstCountry = g.dstCountries.sample(g.num)

	r.SrcPort = int(uniformInt(g.num, 1024, 65535))
	if port, ok := model.StandardPorts[r.Service]; ok {
		r.DstPort = port
	} else {
		r.DstPort = int(uniformIntIncl(g.choice, 1, 1023))
	}

	r.StartTime = g.cfg.BaseTime.Add(time.Duration(uniformIntIncl(g.choice, 0, window)) * time.Second)
}

// correlateCountries redirects AnchorShare of the anchor country's traffic to the partner
func (g *Generator) correlateCountries(records []model.FlowRecord) {
	if g.cfg.AnchorCountry == "" || g.cfg.PartnerCountry == "" {
		return
	}
	var anchored []int
	for i := range records {
		if records[i].SrcCountry == g.cfg.AnchorCountry {
			anchored = append(anchored, i)
		}
	}
	k := int(float64(len(anchored)) * g.cfg.AnchorShare)
	for _, j := range sampleWithoutReplacement(g.num, len(anchored), k) {
		records[anchored[j]].DstCountry = g.cfg.PartnerCountry
	}
}

func (g *Generator) scaleBytes(records []model.FlowRecord) {
	for i := range records {
		m, ok := g.cfg.ByteMultipliers[records[i].SrcCountry]
		if !ok {
			continue
		}
		records[i].Sbytes = int64(math.Round(float64(records[i].Sbytes) * m))
	}
}

// finalize rounds float columns to serialization precision and derives end_time
// from the rounded duration.
func finalize(r *model.FlowRecord) {
	r.Dur = round6(r.Dur)
	r.Rate = round6(r.Rate)
	r.Sload = round6(r.Sload)
	r.Dload = round6(r.Dload)
	r.Sinpkt = round6(r.Sinpkt)
	r.Dinpkt = round6(r.Dinpkt)
	r.Sjit = round6(r.Sjit)
	r.Djit = round6(r.Djit)
	r.Tcprtt = round6(r.Tcprtt)
	r.Synack = round6(r.Synack)
	r.Ackdat = round6(r.Ackdat)
	r.EndTime = r.StartTime.Add(DurationOf(r.Dur))
}

// DurationOf converts float seconds to a time.Duration at microsecond precision
func DurationOf(seconds float64) time.Duration {
	return time.Duration(math.Round(seconds*1e6)) * time.Microsecond
}

func (g *Generator) String() string {
	return fmt.Sprintf("generator(rows=%d seed=%d choice_seed=%d)", g.cfg.Rows, g.cfg.Seed, g.cfg.ChoiceSeed)
}
