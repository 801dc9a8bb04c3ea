package analytics

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"flowlens/internal/model"
)

// DefaultBins is the histogram resolution used by the distribution view
const DefaultBins = 50

// MaxBins bounds the histogram resolution a caller may ask for
const MaxBins = 500

// Summary holds the headline numbers of a view
type Summary struct {
	Sessions     int     `json:"sessions"`
	MeanDuration float64 `json:"mean_duration"`
	TotalSbytes  int64   `json:"total_sbytes"`
	TopProtocol  string  `json:"top_protocol"`
	Anomalies    int     `json:"anomalies"`
}

func Summarize(v View) Summary {
	s := Summary{Sessions: v.Len()}
	if s.Sessions == 0 {
		return s
	}
	dur := 0.0
	for _, rec := range v.Records {
		dur += rec.Dur
		s.TotalSbytes += rec.Sbytes
		if rec.Anomaly {
			s.Anomalies++
		}
	}
	s.MeanDuration = dur / float64(s.Sessions)
	if top := ProtocolBreakdown(v); len(top) > 0 {
		s.TopProtocol = top[0].Value
	}
	return s
}

// Stats describes one numeric sample, quartiles by linear interpolation
type Stats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Min    float64 `json:"min"`
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
	Max    float64 `json:"max"`
}

func describe(values []float64) Stats {
	s := Stats{Count: len(values)}
	if s.Count == 0 {
		return s
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	sum := 0.0
	for _, x := range sorted {
		sum += x
	}
	s.Mean = sum / float64(s.Count)
	s.Min = sorted[0]
	s.Max = sorted[len(sorted)-1]
	s.Q1 = quantile(sorted, 0.25)
	s.Median = quantile(sorted, 0.5)
	s.Q3 = quantile(sorted, 0.75)
	return s
}

// quantile expects sorted input
func quantile(sorted []float64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// Bin is one equal-width histogram bucket, [Low, High); the last bin includes High
type Bin struct {
	Low       float64 `json:"low"`
	High      float64 `json:"high"`
	Normal    int     `json:"normal"`
	Anomalous int     `json:"anomalous"`
}

// Distribution is the histogram and box statistics of one column
type Distribution struct {
	Column  string `json:"column"`
	Bins    []Bin  `json:"bins"`
	Stats   Stats  `json:"stats"`
	Skipped int    `json:"skipped,omitempty"`
}

// Histogram buckets a numeric column into bins equal-width ranges, counting
// normal and anomalous records separately. Non-finite values are left out of
// the bins and the stats and counted in Skipped.
func Histogram(v View, column string, bins int) (*Distribution, error) {
	if !model.IsNumericColumn(column) {
		return nil, fmt.Errorf("column %s is not numeric", column)
	}
	if bins <= 0 {
		bins = DefaultBins
	}
	if bins > MaxBins {
		return nil, fmt.Errorf("bins must be at most %d, got %d", MaxBins, bins)
	}

	values := make([]float64, 0, len(v.Records))
	anomalous := make([]bool, 0, len(v.Records))
	d := &Distribution{Column: column}
	for _, rec := range v.Records {
		x, _ := rec.NumericValue(column)
		if math.IsNaN(x) || math.IsInf(x, 0) {
			d.Skipped++
			continue
		}
		values = append(values, x)
		anomalous = append(anomalous, rec.Anomaly)
	}
	d.Stats = describe(values)
	if len(values) == 0 {
		return d, nil
	}

	lo, hi := d.Stats.Min, d.Stats.Max
	if lo == hi {
		// a constant column collapses into one bin
		bins = 1
		hi = lo + 1
	}
	width := (hi - lo) / float64(bins)
	d.Bins = make([]Bin, bins)
	for i := range d.Bins {
		d.Bins[i].Low = lo + float64(i)*width
		d.Bins[i].High = lo + float64(i+1)*width
	}
	for i, x := range values {
		idx := int((x - lo) / width)
		if idx >= bins {
			idx = bins - 1
		}
		if anomalous[i] {
			d.Bins[idx].Anomalous++
		} else {
			d.Bins[idx].Normal++
		}
	}
	return d, nil
}

// Float is a float64 that encodes NaN and infinities as JSON null
type Float float64

func (f Float) MarshalJSON() ([]byte, error) {
	x := float64(f)
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, x, 'g', -1, 64), nil
}

// CorrelationMatrix holds pairwise Pearson coefficients in Columns order
type CorrelationMatrix struct {
	Columns []string  `json:"columns"`
	Values  [][]Float `json:"values"`
}

// Correlation computes Pearson coefficients between numeric columns. A column
// with zero variance correlates as NaN with everything, itself included.
func Correlation(v View, columns []string) (*CorrelationMatrix, error) {
	if len(columns) == 0 {
		columns = model.NumericColumns
	}
	series := make([][]float64, len(columns))
	for i, c := range columns {
		if !model.IsNumericColumn(c) {
			return nil, fmt.Errorf("column %s is not numeric", c)
		}
		series[i] = columnValues(v.Records, c)
	}

	m := &CorrelationMatrix{Columns: columns, Values: make([][]Float, len(columns))}
	for i := range columns {
		m.Values[i] = make([]Float, len(columns))
	}
	for i := range columns {
		for j := i; j < len(columns); j++ {
			r := Float(pearson(series[i], series[j]))
			m.Values[i][j] = r
			m.Values[j][i] = r
		}
	}
	return m, nil
}

func pearson(x, y []float64) float64 {
	n := float64(len(x))
	if len(x) < 2 {
		return math.NaN()
	}
	var mx, my float64
	for i := range x {
		mx += x[i]
		my += y[i]
	}
	mx /= n
	my /= n

	var sxy, sxx, syy float64
	for i := range x {
		dx := x[i] - mx
		dy := y[i] - my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return math.NaN()
	}
	r := sxy / math.Sqrt(sxx*syy)
	// clamp rounding drift
	return math.Max(-1, math.Min(1, r))
}

func columnValues(records []*model.FlowRecord, column string) []float64 {
	out := make([]float64, len(records))
	for i, rec := range records {
		out[i], _ = rec.NumericValue(column)
	}
	return out
}
