package analytics

import (
	"math"
	"testing"
	"time"

	"flowlens/internal/model"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Monday 2025-03-03
var monday = time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

func fixture() *model.Table {
	at := func(day, hour, min int) time.Time {
		return monday.AddDate(0, 0, day).Add(time.Duration(hour)*time.Hour + time.Duration(min)*time.Minute)
	}
	records := []model.FlowRecord{
		{ID: 1, Proto: "TCP", Service: "http", State: "FIN", StartTime: at(0, 9, 1), Dur: 1, Spkts: 10, Sbytes: 1000, SrcCountry: "Ukraine", DstCountry: "Poland"},
		{ID: 2, Proto: "TCP", Service: "https", State: "CON", StartTime: at(0, 9, 3), Dur: 3, Spkts: 20, Sbytes: 3000, SrcCountry: "Ukraine", DstCountry: "USA"},
		{ID: 3, Proto: "UDP", Service: "dns", State: "INT", StartTime: at(1, 14, 0), Dur: 0.001, Spkts: 5000, Sbytes: 5000, SrcCountry: "USA", DstCountry: "Poland"},
		{ID: 4, Proto: "TCP", Service: "ssh", State: "FIN", StartTime: at(6, 23, 59), Dur: 40, Spkts: 30, Sbytes: 200, SrcCountry: "Atlantis", DstCountry: "USA"},
	}
	records[2].SetLabel(model.AnomalyDDoS)
	records[3].SetLabel(model.AnomalyNonstandardPort)
	table := model.NewTable(records)
	table.Columns = append(table.Columns, model.LabelColumns...)
	table.Labeled = true
	return table
}

func ids(v View) []int64 {
	out := make([]int64, 0, v.Len())
	for _, rec := range v.Records {
		out = append(out, rec.ID)
	}
	return out
}

func TestFilter_Apply(t *testing.T) {
	table := fixture()

	cases := []struct {
		name   string
		filter Filter
		want   []int64
	}{
		{"empty", Filter{}, []int64{1, 2, 3, 4}},
		{"proto", Filter{Proto: "TCP"}, []int64{1, 2, 4}},
		{"service", Filter{Service: "dns"}, []int64{3}},
		{"state", Filter{State: "FIN"}, []int64{1, 4}},
		{"from", Filter{From: monday.AddDate(0, 0, 1)}, []int64{3, 4}},
		{"to is inclusive", Filter{To: monday.Add(5 * time.Hour)}, []int64{1, 2}},
		{"normal", Filter{Anomaly: AnomalyNormal}, []int64{1, 2}},
		{"anomalous", Filter{Anomaly: AnomalyAnomalous}, []int64{3, 4}},
		{"combined", Filter{Proto: "TCP", Anomaly: AnomalyAnomalous}, []int64{4}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ids(tc.filter.Apply(table)))
		})
	}
}

func TestFilter_UnlabeledIgnoresAnomalyFilter(t *testing.T) {
	table := fixture()
	table.Labeled = false
	assert.Len(t, Filter{Anomaly: AnomalyAnomalous}.Apply(table).Records, 4)
}

func TestFilter_DoesNotCopyRecords(t *testing.T) {
	table := fixture()
	v := Filter{Service: "dns"}.Apply(table)
	require.Len(t, v.Records, 1)
	assert.Same(t, &table.Records[2], v.Records[0])
}

func TestParseAnomalyFilter(t *testing.T) {
	f, err := ParseAnomalyFilter("")
	require.NoError(t, err)
	assert.Equal(t, AnomalyAll, f)
	f, err = ParseAnomalyFilter("Anomalous")
	require.NoError(t, err)
	assert.Equal(t, AnomalyAnomalous, f)
	_, err = ParseAnomalyFilter("weird")
	assert.Error(t, err)
}

func TestSummarize(t *testing.T) {
	s := Summarize(All(fixture()))
	assert.Equal(t, 4, s.Sessions)
	assert.InDelta(t, (1+3+0.001+40)/4.0, s.MeanDuration, 1e-9)
	assert.Equal(t, int64(9200), s.TotalSbytes)
	assert.Equal(t, "TCP", s.TopProtocol)
	assert.Equal(t, 2, s.Anomalies)

	assert.Equal(t, Summary{}, Summarize(View{}))
}

func TestHistogram(t *testing.T) {
	d, err := Histogram(All(fixture()), model.ColSpkts, 10)
	require.NoError(t, err)
	require.Len(t, d.Bins, 10)

	normal, anomalous := 0, 0
	for _, b := range d.Bins {
		normal += b.Normal
		anomalous += b.Anomalous
	}
	assert.Equal(t, 2, normal)
	assert.Equal(t, 2, anomalous)
	// the maximum lands in the last bin
	assert.Equal(t, 1, d.Bins[9].Anomalous)
	assert.Equal(t, 10.0, d.Stats.Min)
	assert.Equal(t, 5000.0, d.Stats.Max)
	assert.Equal(t, 25.0, d.Stats.Median)

	_, err = Histogram(All(fixture()), model.ColService, 10)
	assert.Error(t, err)
}

func TestHistogram_ConstantColumn(t *testing.T) {
	d, err := Histogram(All(fixture()), model.ColSttl, 0)
	require.NoError(t, err)
	require.Len(t, d.Bins, 1)
	assert.Equal(t, 2, d.Bins[0].Normal)
	assert.Equal(t, 2, d.Bins[0].Anomalous)
}

func TestCorrelation(t *testing.T) {
	m, err := Correlation(All(fixture()), []string{model.ColSpkts, model.ColSbytes, model.ColSttl})
	require.NoError(t, err)

	assert.InDelta(t, 1.0, float64(m.Values[0][0]), 1e-12)
	assert.Equal(t, m.Values[0][1], m.Values[1][0])
	assert.InDelta(t, 0.836, float64(m.Values[0][1]), 1e-3)
	assert.True(t, math.IsNaN(float64(m.Values[2][2])), "constant column")

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Contains(t, string(data), "null")

	full, err := Correlation(All(fixture()), nil)
	require.NoError(t, err)
	assert.Len(t, full.Columns, len(model.NumericColumns))
}

func TestBreakdowns(t *testing.T) {
	v := All(fixture())
	assert.Equal(t, []Count{{"TCP", 3}, {"UDP", 1}}, ProtocolBreakdown(v))
	assert.Equal(t, []Count{{"dns", 1}, {"http", 1}}, TopServices(v, 2))
}

func TestTimeOfDay(t *testing.T) {
	v := All(fixture())

	hourly := HourlyTraffic(v)
	require.Len(t, hourly, 24)
	assert.Equal(t, int64(4000), hourly[9].Sbytes)
	assert.Equal(t, int64(5000), hourly[14].Sbytes)

	heat := DayHourHeatmap(v)
	assert.Equal(t, "Monday", heat.Days[0])
	assert.Equal(t, int64(4000), heat.Sbytes[0][9])
	assert.Equal(t, int64(5000), heat.Sbytes[1][14])
	assert.Equal(t, int64(200), heat.Sbytes[6][23], "Sunday is the last row")

	peaks := PeakHours(v, 3)
	assert.Equal(t, []HourBytes{{14, 5000}, {9, 4000}, {23, 200}}, peaks)
}

func TestCountryTraffic(t *testing.T) {
	src := CountryTraffic(All(fixture()), DirectionSource)
	require.Len(t, src, 3)
	assert.Equal(t, CountryBytes{Country: "USA", ISO: "USA", TotalBytes: 5000, TotalMB: 5000.0 / (1024 * 1024), Connections: 1}, src[0])
	assert.Equal(t, "Ukraine", src[1].Country)
	assert.Equal(t, "UKR", src[1].ISO)
	assert.Equal(t, 2, src[1].Connections)
	assert.Empty(t, src[2].ISO, "unknown country has no code")

	dst := CountryTraffic(All(fixture()), DirectionDestination)
	assert.Equal(t, "Poland", dst[0].Country)
	assert.Equal(t, int64(6000), dst[0].TotalBytes)
}

func TestCountryMetricMean(t *testing.T) {
	means, err := CountryMetricMean(All(fixture()), DirectionSource, model.ColDur)
	require.NoError(t, err)
	assert.Equal(t, "Atlantis", means[0].Country)
	assert.InDelta(t, 2.0, means[1].Mean, 1e-9)

	_, err = CountryMetricMean(All(fixture()), DirectionSource, "colour")
	assert.Error(t, err)
}

func TestAnomalyOverview(t *testing.T) {
	o, err := AnomalyOverview(fixture())
	require.NoError(t, err)
	assert.Equal(t, 4, o.Total)
	assert.Equal(t, 2, o.Anomalous)
	assert.Equal(t, 50.0, o.AnomalousPercent)
	assert.Equal(t, []TypeCount{
		{Type: model.AnomalyDDoS, Count: 1, Percent: 50},
		{Type: model.AnomalyNonstandardPort, Count: 1, Percent: 50},
	}, o.ByType)

	unlabeled := fixture()
	unlabeled.Labeled = false
	_, err = AnomalyOverview(unlabeled)
	assert.ErrorIs(t, err, ErrUnlabeled)
}

func TestAnomalySamples(t *testing.T) {
	d, err := AnomalySamples(fixture(), model.AnomalyNone, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, d.Count)
	require.Len(t, d.Samples, 1)
	assert.Equal(t, int64(3), d.Samples[0].ID)
	assert.InDelta(t, 2600.0, d.MeanSbytes, 1e-9)

	d, err = AnomalySamples(fixture(), model.AnomalyNonstandardPort, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, d.Count)
	assert.Equal(t, int64(4), d.Samples[0].ID)
}

func TestConnectionRate(t *testing.T) {
	points, err := ConnectionRate(fixture(), 0)
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, monday.Add(9*time.Hour), points[0].Time)
	assert.Equal(t, 2, points[0].Normal)
	assert.Equal(t, 0, points[0].Anomalous)
	assert.Equal(t, 1, points[1].Anomalous)
	assert.Equal(t, monday.AddDate(0, 0, 6).Add(23*time.Hour+55*time.Minute), points[2].Time)
}

func TestCompareMetric(t *testing.T) {
	c, err := CompareMetric(fixture(), model.AnomalyNone, MetricDuration)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Normal.Count)
	assert.Equal(t, 2.0, c.Normal.Mean)
	assert.Equal(t, 20.0, c.Anomalous.Max, "duration is capped")

	c, err = CompareMetric(fixture(), model.AnomalyDDoS, MetricPacketByteRatio)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Anomalous.Count)
	assert.Equal(t, 0.1, c.Anomalous.Max)

	c, err = CompareMetric(fixture(), model.AnomalyDDoS, model.ColSbytes)
	require.NoError(t, err)
	assert.Equal(t, 5000.0, c.Anomalous.Median)
	assert.Equal(t, 2000.0, c.Normal.Median)

	_, err = CompareMetric(fixture(), model.AnomalyDDoS, "bogus")
	assert.Error(t, err)
}

func TestHistogram_SkipsNonFinite(t *testing.T) {
	table := fixture()
	table.Records[0].Dur = math.NaN()
	table.Records[1].Rate = math.Inf(1)

	d, err := Histogram(All(table), model.ColDur, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, d.Skipped)
	assert.Equal(t, 3, d.Stats.Count)
	total := 0
	for _, b := range d.Bins {
		total += b.Normal + b.Anomalous
	}
	assert.Equal(t, 3, total)

	d, err = Histogram(All(table), model.ColRate, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, d.Skipped)

	_, err = json.Marshal(d)
	assert.NoError(t, err)
}

func TestHistogram_BinLimit(t *testing.T) {
	d, err := Histogram(All(fixture()), model.ColSpkts, MaxBins)
	require.NoError(t, err)
	assert.Len(t, d.Bins, MaxBins)

	_, err = Histogram(All(fixture()), model.ColSpkts, MaxBins+1)
	assert.Error(t, err)
}
