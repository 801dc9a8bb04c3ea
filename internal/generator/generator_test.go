package generator

import (
	"io"
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"flowlens/internal/model"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testConfig(rows int) Config {
	cfg := DefaultConfig()
	cfg.Rows = rows
	cfg.BaseTime = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	return cfg
}

func generate(t *testing.T, cfg Config) *Result {
	t.Helper()
	g, err := New(cfg, testLogger())
	require.NoError(t, err)
	res, err := g.Generate()
	require.NoError(t, err)
	return res
}

func TestGenerate_RowCountAndIDs(t *testing.T) {
	res := generate(t, testConfig(2000))

	require.Equal(t, 2000, res.Table.Len())
	seen := make(map[int64]bool, 2000)
	for _, rec := range res.Table.Records {
		assert.False(t, seen[rec.ID], "duplicate id %d", rec.ID)
		seen[rec.ID] = true
		assert.GreaterOrEqual(t, rec.ID, int64(1))
		assert.LessOrEqual(t, rec.ID, int64(2000))
	}
	assert.Len(t, seen, 2000)
}

func TestGenerate_EndTimeMatchesDuration(t *testing.T) {
	res := generate(t, testConfig(3000))

	for _, rec := range res.Table.Records {
		got := rec.EndTime.Sub(rec.StartTime).Seconds()
		assert.InDelta(t, rec.Dur, got, 1e-6, "record %d", rec.ID)
		assert.False(t, rec.EndTime.Before(rec.StartTime))
	}
}

func TestGenerate_NonNegativeCounts(t *testing.T) {
	res := generate(t, testConfig(3000))

	for _, rec := range res.Table.Records {
		assert.GreaterOrEqual(t, rec.Dur, 0.0)
		assert.GreaterOrEqual(t, rec.Spkts, int64(0))
		assert.GreaterOrEqual(t, rec.Dpkts, int64(0))
		assert.GreaterOrEqual(t, rec.Sbytes, int64(0))
		assert.GreaterOrEqual(t, rec.Dbytes, int64(0))
		assert.GreaterOrEqual(t, rec.Sloss, int64(0))
		assert.GreaterOrEqual(t, rec.Rate, 0.0)
		assert.True(t, rec.SrcPort >= 1024 && rec.SrcPort <= 65534)
		assert.True(t, rec.DstPort >= 1 && rec.DstPort <= 65535)
	}
}

func TestGenerate_NoLabels(t *testing.T) {
	res := generate(t, testConfig(500))

	assert.False(t, res.Table.Labeled)
	assert.False(t, res.Table.HasColumn(model.ColAnomaly))
	for _, rec := range res.Table.Records {
		assert.False(t, rec.Anomaly)
		assert.Equal(t, model.AnomalyNone, rec.AnomalyType)
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	a := generate(t, testConfig(1500))
	b := generate(t, testConfig(1500))

	require.Equal(t, a.Table.Records, b.Table.Records)
	assert.Equal(t, a.Plan, b.Plan)
}

func TestNew_ZeroBaseTimeUsesDefault(t *testing.T) {
	cfg := testConfig(100)
	cfg.BaseTime = time.Time{}
	g, err := New(cfg, testLogger())
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseTime, g.Config().BaseTime)

	a := generate(t, cfg)
	b := generate(t, cfg)
	assert.Equal(t, a.Table.Records, b.Table.Records)
}

func TestGenerate_SeedsMatter(t *testing.T) {
	cfg := testConfig(200)
	cfg.Anomalies.Enabled = false
	a := generate(t, cfg)

	cfg.ChoiceSeed++
	b := generate(t, cfg)

	// numeric stream unchanged, discrete stream moved
	assert.Equal(t, a.Table.Records[0].Dur, b.Table.Records[0].Dur)
	assert.NotEqual(t, a.Table.Records[0].SrcIP+a.Table.Records[1].SrcIP, b.Table.Records[0].SrcIP+b.Table.Records[1].SrcIP)
}

func TestGenerate_StandardPortsUnlessPerturbed(t *testing.T) {
	res := generate(t, testConfig(3000))

	perturbed := make(map[int]bool)
	for _, idx := range res.Plan.NonstandardPort {
		perturbed[idx] = true
	}
	for i, rec := range res.Table.Records {
		port, ok := model.StandardPorts[rec.Service]
		if !ok {
			if !perturbed[i] {
				assert.True(t, rec.DstPort >= 1 && rec.DstPort < 1024, "service %s port %d", rec.Service, rec.DstPort)
			}
			continue
		}
		if perturbed[i] {
			assert.NotEqual(t, port, rec.DstPort)
		} else {
			assert.Equal(t, port, rec.DstPort)
		}
	}
}

func TestGenerate_InjectionPartitions(t *testing.T) {
	res := generate(t, testConfig(1000))
	plan := res.Plan

	require.Len(t, plan.Selected, 150)
	assert.Len(t, plan.DDoS, 60)
	assert.Len(t, plan.Misconfig, 30)
	assert.Len(t, plan.NonstandardPort, 30)
	assert.Len(t, plan.RepeatedConn, 30)
	assert.Equal(t, 0, plan.Unassigned)
	assert.Equal(t, 120, plan.Perturbed())

	seen := make(map[int]bool)
	for _, group := range [][]int{plan.DDoS, plan.Misconfig, plan.NonstandardPort, plan.RepeatedConn} {
		for _, idx := range group {
			assert.False(t, seen[idx], "index %d in two partitions", idx)
			seen[idx] = true
		}
	}
}

func TestGenerate_TruncationRemainder(t *testing.T) {
	cfg := testConfig(1000)
	cfg.Anomalies.AnomalyRatio = 0.157 // 157 selected
	cfg.Anomalies.DDoSRatio = 0.3      // 47
	cfg.Anomalies.MisconfigRatio = 0.3 // 47
	cfg.Anomalies.NonstandardPortRatio = 0.3
	cfg.Anomalies.RepeatedConnRatio = 0

	res := generate(t, cfg)
	plan := res.Plan

	require.Len(t, plan.Selected, 157)
	assert.Len(t, plan.DDoS, 47)
	assert.Len(t, plan.Misconfig, 47)
	assert.Len(t, plan.NonstandardPort, 47)
	assert.Equal(t, 16, plan.Unassigned)
}

func TestGenerate_DDoSPerturbation(t *testing.T) {
	res := generate(t, testConfig(1000))

	for _, idx := range res.Plan.DDoS {
		rec := res.Table.Records[idx]
		assert.True(t, rec.Spkts >= 3000 && rec.Spkts <= 10000)
		assert.True(t, rec.Dur >= 0.0001 && rec.Dur <= 0.01, "dur %f", rec.Dur)
		ratio := rec.Sbytes / rec.Spkts
		assert.True(t, ratio >= 1 && ratio <= 5)
		assert.Zero(t, rec.Sbytes%rec.Spkts)
		// rate was computed before dur was rounded to 6 decimals
		assert.InEpsilon(t, float64(rec.Spkts)/rec.Dur, rec.Rate, 1e-2)
	}
}

func TestGenerate_MisconfigPerturbation(t *testing.T) {
	res := generate(t, testConfig(2000))

	for _, idx := range res.Plan.Misconfig {
		rec := res.Table.Records[idx]
		switch res.Plan.MisconfigKinds[idx] {
		case MisconfigTTL:
			assert.Contains(t, boundaryTTLs, rec.Sttl)
			assert.Contains(t, boundaryTTLs, rec.Dttl)
		case MisconfigWindowSize:
			assert.Contains(t, boundaryWindows, rec.Swin)
			assert.Contains(t, boundaryWindows, rec.Dwin)
		case MisconfigPacketSize:
			assert.True(t, rec.Spkts >= 500 && rec.Spkts <= 1000)
			assert.True(t, rec.Sbytes >= 500 && rec.Sbytes <= 1000)
		default:
			t.Fatalf("unknown misconfig kind %q", res.Plan.MisconfigKinds[idx])
		}
	}
}

func TestGenerate_AnomaliesDisabled(t *testing.T) {
	cfg := testConfig(500)
	cfg.Anomalies.Enabled = false

	res := generate(t, cfg)
	assert.Empty(t, res.Plan.Selected)
	assert.Zero(t, res.Plan.Perturbed())
}

func TestGenerate_CountryCorrelation(t *testing.T) {
	cfg := testConfig(5000)
	cfg.Anomalies.Enabled = false
	res := generate(t, cfg)

	anchor, partner := 0, 0
	for _, rec := range res.Table.Records {
		if rec.SrcCountry == "Ukraine" {
			anchor++
			if rec.DstCountry == "Poland" {
				partner++
			}
		}
	}
	require.NotZero(t, anchor)
	// At least the forced 40%, plus what the base distribution sends there anyway.
	assert.GreaterOrEqual(t, float64(partner), math.Floor(float64(anchor)*0.4))
}

func TestValidate_RejectsBadConfigs(t *testing.T) {
	cases := map[string]func(c *Config){
		"zero rows":          func(c *Config) { c.Rows = 0 },
		"sub-ratios over 1":  func(c *Config) { c.Anomalies.DDoSRatio = 0.5; c.Anomalies.MisconfigRatio = 0.5; c.Anomalies.NonstandardPortRatio = 0.1 },
		"negative ratio":     func(c *Config) { c.Anomalies.AnomalyRatio = -0.1 },
		"ratio above one":    func(c *Config) { c.Anomalies.AnomalyRatio = 1.5 },
		"empty protocols":    func(c *Config) { c.Protocols = nil },
		"zero weights":       func(c *Config) { c.States = []WeightedValue{{Value: "FIN", Weight: 0}} },
		"negative weight":    func(c *Config) { c.Services[0].Weight = -1 },
		"anchor share above": func(c *Config) { c.AnchorShare = 2 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := testConfig(100)
			mutate(&cfg)
			_, err := New(cfg, testLogger())
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestValidate_SubRatiosExactlyOne(t *testing.T) {
	cfg := testConfig(100)
	cfg.Anomalies.DDoSRatio = 0.7
	cfg.Anomalies.MisconfigRatio = 0.1
	cfg.Anomalies.NonstandardPortRatio = 0.1
	cfg.Anomalies.RepeatedConnRatio = 0.1
	assert.NoError(t, cfg.Validate())
}

func TestCategorical_ZeroWeightNeverSampled(t *testing.T) {
	c := newCategorical([]WeightedValue{{"a", 0}, {"b", 1}, {"c", 0}})
	r := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 1000; i++ {
		assert.Equal(t, "b", c.sample(r))
	}
}
