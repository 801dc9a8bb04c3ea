package analytics

import (
	"fmt"
	"sort"
	"strings"

	"flowlens/internal/model"
)

// Direction picks which country column geographic views group by
type Direction string

const (
	DirectionSource      Direction = "src"
	DirectionDestination Direction = "dst"
)

func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(s) {
	case "", "src", "source":
		return DirectionSource, nil
	case "dst", "destination":
		return DirectionDestination, nil
	}
	return "", fmt.Errorf("unknown direction %q", s)
}

func (d Direction) country(rec *model.FlowRecord) string {
	if d == DirectionDestination {
		return rec.DstCountry
	}
	return rec.SrcCountry
}

// CountryMetrics are the metrics offered for per-country comparison
var CountryMetrics = []string{
	model.ColSbytes, model.ColDbytes, model.ColSpkts, model.ColDpkts, model.ColDur,
	model.ColSloss, model.ColDloss, model.ColSjit, model.ColDjit,
}

// CountryBytes is the traffic of one country. ISO is empty for names outside the known set.
type CountryBytes struct {
	Country     string  `json:"country"`
	ISO         string  `json:"iso_alpha"`
	TotalBytes  int64   `json:"total_bytes"`
	TotalMB     float64 `json:"total_mb"`
	Connections int     `json:"connections"`
}

// CountryTraffic sums sbytes and counts connections per country, largest volume first
func CountryTraffic(v View, dir Direction) []CountryBytes {
	idx := make(map[string]int)
	var out []CountryBytes
	for _, rec := range v.Records {
		c := dir.country(rec)
		i, ok := idx[c]
		if !ok {
			i = len(out)
			idx[c] = i
			out = append(out, CountryBytes{Country: c, ISO: model.CountryISO[c]})
		}
		out[i].TotalBytes += rec.Sbytes
		out[i].Connections++
	}
	for i := range out {
		out[i].TotalMB = float64(out[i].TotalBytes) / (1024 * 1024)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalBytes != out[j].TotalBytes {
			return out[i].TotalBytes > out[j].TotalBytes
		}
		return out[i].Country < out[j].Country
	})
	return out
}

// CountryMean is the mean of one metric for a country
type CountryMean struct {
	Country string  `json:"country"`
	Mean    float64 `json:"mean"`
}

// CountryMetricMean averages metric per country, highest first
func CountryMetricMean(v View, dir Direction, metric string) ([]CountryMean, error) {
	if !model.IsNumericColumn(metric) {
		return nil, fmt.Errorf("column %s is not numeric", metric)
	}
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, rec := range v.Records {
		c := dir.country(rec)
		x, _ := rec.NumericValue(metric)
		sums[c] += x
		counts[c]++
	}
	out := make([]CountryMean, 0, len(sums))
	for c, sum := range sums {
		out = append(out, CountryMean{Country: c, Mean: sum / float64(counts[c])})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Mean != out[j].Mean {
			return out[i].Mean > out[j].Mean
		}
		return out[i].Country < out[j].Country
	})
	return out, nil
}
