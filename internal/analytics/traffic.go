package analytics

import (
	"sort"
	"time"

	"flowlens/internal/model"
)

// Count is how often a categorical value occurs
type Count struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// ProtocolBreakdown counts records per protocol, most frequent first
func ProtocolBreakdown(v View) []Count {
	return countBy(v.Records, func(r *model.FlowRecord) string { return r.Proto }, 0)
}

// TopServices returns the n most frequent services; n <= 0 returns all
func TopServices(v View, n int) []Count {
	return countBy(v.Records, func(r *model.FlowRecord) string { return r.Service }, n)
}

// countBy sorts by count descending, then value ascending for a stable order
func countBy(records []*model.FlowRecord, key func(*model.FlowRecord) string, limit int) []Count {
	counts := make(map[string]int)
	for _, rec := range records {
		counts[key(rec)]++
	}
	out := make([]Count, 0, len(counts))
	for value, n := range counts {
		out = append(out, Count{Value: value, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// HourBytes is the source byte volume started in one hour of the day
type HourBytes struct {
	Hour   int   `json:"hour"`
	Sbytes int64 `json:"sbytes"`
}

// HourlyTraffic sums sbytes by start hour. All 24 hours are present.
func HourlyTraffic(v View) []HourBytes {
	out := make([]HourBytes, 24)
	for h := range out {
		out[h].Hour = h
	}
	for _, rec := range v.Records {
		out[rec.StartTime.Hour()].Sbytes += rec.Sbytes
	}
	return out
}

// Heatmap is sbytes per weekday and hour. Row 0 is Monday.
type Heatmap struct {
	Days   []string  `json:"days"`
	Sbytes [][]int64 `json:"sbytes"`
}

var weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// DayHourHeatmap sums sbytes into a 7x24 grid, Monday first
func DayHourHeatmap(v View) Heatmap {
	h := Heatmap{Days: weekdays, Sbytes: make([][]int64, 7)}
	for d := range h.Sbytes {
		h.Sbytes[d] = make([]int64, 24)
	}
	for _, rec := range v.Records {
		h.Sbytes[mondayIndex(rec.StartTime.Weekday())][rec.StartTime.Hour()] += rec.Sbytes
	}
	return h
}

func mondayIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
}

// PeakHours returns the n hours with the most source bytes, busiest first
func PeakHours(v View, n int) []HourBytes {
	hours := HourlyTraffic(v)
	sort.SliceStable(hours, func(i, j int) bool { return hours[i].Sbytes > hours[j].Sbytes })
	if n > 0 && len(hours) > n {
		hours = hours[:n]
	}
	return hours
}

// TimeOfDay bundles the time-of-day views
type TimeOfDay struct {
	Hourly  []HourBytes `json:"hourly"`
	Heatmap Heatmap     `json:"heatmap"`
	Peaks   []HourBytes `json:"peaks"`
}

func TimeOfDayTraffic(v View) TimeOfDay {
	return TimeOfDay{
		Hourly:  HourlyTraffic(v),
		Heatmap: DayHourHeatmap(v),
		Peaks:   PeakHours(v, 3),
	}
}
