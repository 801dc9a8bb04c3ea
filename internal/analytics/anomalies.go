package analytics

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"flowlens/internal/model"
)

// ErrUnlabeled is returned by anomaly views over a table the rule engine has not labeled
var ErrUnlabeled = errors.New("table has no anomaly labels")

// DefaultRateWindow is the bucket width of ConnectionRate
const DefaultRateWindow = 5 * time.Minute

// Derived comparison metrics on top of the numeric columns
const (
	MetricPacketByteRatio = "pkt_to_byte_ratio"
	MetricDuration        = "duration"
)

// TypeCount is the share of one anomaly type
type TypeCount struct {
	Type    model.AnomalyType `json:"type"`
	Count   int               `json:"count"`
	Percent float64           `json:"percent"`
}

type Overview struct {
	Total            int         `json:"total"`
	Normal           int         `json:"normal"`
	Anomalous        int         `json:"anomalous"`
	NormalPercent    float64     `json:"normal_percent"`
	AnomalousPercent float64     `json:"anomalous_percent"`
	ByType           []TypeCount `json:"by_type"`
}

// AnomalyOverview counts labeled records. ByType percentages are relative to
// the anomalous records, most frequent type first.
func AnomalyOverview(table *model.Table) (*Overview, error) {
	if !table.Labeled {
		return nil, ErrUnlabeled
	}
	o := &Overview{Total: table.Len()}
	counts := make(map[model.AnomalyType]int)
	for i := range table.Records {
		if rec := &table.Records[i]; rec.Anomaly {
			o.Anomalous++
			counts[rec.AnomalyType]++
		}
	}
	o.Normal = o.Total - o.Anomalous
	o.NormalPercent = percent(o.Normal, o.Total)
	o.AnomalousPercent = percent(o.Anomalous, o.Total)

	for t, n := range counts {
		o.ByType = append(o.ByType, TypeCount{Type: t, Count: n, Percent: percent(n, o.Anomalous)})
	}
	sort.Slice(o.ByType, func(i, j int) bool {
		if o.ByType[i].Count != o.ByType[j].Count {
			return o.ByType[i].Count > o.ByType[j].Count
		}
		return o.ByType[i].Type < o.ByType[j].Type
	})
	return o, nil
}

// AnomalyDetail describes the anomalous records of one type, or of all types when Type is empty
type AnomalyDetail struct {
	Type         model.AnomalyType  `json:"type,omitempty"`
	Count        int                `json:"count"`
	MeanDuration float64            `json:"mean_duration"`
	MeanSbytes   float64            `json:"mean_sbytes"`
	Samples      []model.FlowRecord `json:"samples"`
}

// AnomalySamples returns statistics and up to n example records in table order
func AnomalySamples(table *model.Table, typ model.AnomalyType, n int) (*AnomalyDetail, error) {
	if !table.Labeled {
		return nil, ErrUnlabeled
	}
	d := &AnomalyDetail{Type: typ}
	var dur, sbytes float64
	for i := range table.Records {
		rec := &table.Records[i]
		if !rec.Anomaly || (typ != model.AnomalyNone && rec.AnomalyType != typ) {
			continue
		}
		d.Count++
		dur += rec.Dur
		sbytes += float64(rec.Sbytes)
		if len(d.Samples) < n {
			d.Samples = append(d.Samples, *rec)
		}
	}
	if d.Count > 0 {
		d.MeanDuration = dur / float64(d.Count)
		d.MeanSbytes = sbytes / float64(d.Count)
	}
	return d, nil
}

// RatePoint is the number of connections started in one window
type RatePoint struct {
	Time      time.Time `json:"time"`
	Normal    int       `json:"normal"`
	Anomalous int       `json:"anomalous"`
}

// ConnectionRate counts normal and anomalous connections per window of start
// time. Windows without any connection are omitted.
func ConnectionRate(table *model.Table, window time.Duration) ([]RatePoint, error) {
	if !table.Labeled {
		return nil, ErrUnlabeled
	}
	if window <= 0 {
		window = DefaultRateWindow
	}
	buckets := make(map[time.Time]*RatePoint)
	for i := range table.Records {
		rec := &table.Records[i]
		key := rec.StartTime.Truncate(window)
		p, ok := buckets[key]
		if !ok {
			p = &RatePoint{Time: key}
			buckets[key] = p
		}
		if rec.Anomaly {
			p.Anomalous++
		} else {
			p.Normal++
		}
	}
	out := make([]RatePoint, 0, len(buckets))
	for _, p := range buckets {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out, nil
}

// MetricComparison contrasts normal traffic with anomalies of one type (or all)
type MetricComparison struct {
	Metric    string            `json:"metric"`
	Type      model.AnomalyType `json:"type,omitempty"`
	Normal    Stats             `json:"normal"`
	Anomalous Stats             `json:"anomalous"`
}

// CompareMetric describes metric for normal records and for anomalies of typ.
// pkt_to_byte_ratio is spkts/(sbytes+1) capped at 0.1; duration is dur capped at 20s.
func CompareMetric(table *model.Table, typ model.AnomalyType, metric string) (*MetricComparison, error) {
	if !table.Labeled {
		return nil, ErrUnlabeled
	}
	value, err := metricFunc(metric)
	if err != nil {
		return nil, err
	}
	var normal, anomalous []float64
	for i := range table.Records {
		rec := &table.Records[i]
		switch {
		case !rec.Anomaly:
			normal = append(normal, value(rec))
		case typ == model.AnomalyNone || rec.AnomalyType == typ:
			anomalous = append(anomalous, value(rec))
		}
	}
	return &MetricComparison{
		Metric:    metric,
		Type:      typ,
		Normal:    describe(normal),
		Anomalous: describe(anomalous),
	}, nil
}

func metricFunc(metric string) (func(*model.FlowRecord) float64, error) {
	switch metric {
	case MetricPacketByteRatio:
		return func(r *model.FlowRecord) float64 {
			return math.Min(float64(r.Spkts)/float64(r.Sbytes+1), 0.1)
		}, nil
	case MetricDuration:
		return func(r *model.FlowRecord) float64 { return math.Min(r.Dur, 20) }, nil
	}
	if !model.IsNumericColumn(metric) {
		return nil, fmt.Errorf("unknown metric %s", metric)
	}
	return func(r *model.FlowRecord) float64 {
		x, _ := r.NumericValue(metric)
		return x
	}, nil
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}
