// Package analytics computes the aggregates behind the dashboard views. Every
// function reads a table or a filtered View and never mutates records.
package analytics

import (
	"fmt"
	"strings"
	"time"

	"flowlens/internal/model"
)

// AnomalyFilter restricts a view by label
type AnomalyFilter string

const (
	AnomalyAll       AnomalyFilter = "all"
	AnomalyNormal    AnomalyFilter = "normal"
	AnomalyAnomalous AnomalyFilter = "anomalous"
)

func ParseAnomalyFilter(s string) (AnomalyFilter, error) {
	switch AnomalyFilter(strings.ToLower(s)) {
	case "", AnomalyAll:
		return AnomalyAll, nil
	case AnomalyNormal:
		return AnomalyNormal, nil
	case AnomalyAnomalous:
		return AnomalyAnomalous, nil
	}
	return "", fmt.Errorf("unknown anomaly filter %q", s)
}

// Filter selects records by categorical value, start date and label.
// Empty fields match everything. From and To compare calendar dates, both inclusive.
type Filter struct {
	Proto   string        `json:"proto,omitempty"`
	Service string        `json:"service,omitempty"`
	State   string        `json:"state,omitempty"`
	From    time.Time     `json:"from,omitempty"`
	To      time.Time     `json:"to,omitempty"`
	Anomaly AnomalyFilter `json:"anomaly,omitempty"`
}

// View is a filtered selection of records. It shares the records of its table.
type View struct {
	Records []*model.FlowRecord
	Labeled bool
}

// All returns a view over every record of table
func All(table *model.Table) View {
	v := View{Records: make([]*model.FlowRecord, len(table.Records)), Labeled: table.Labeled}
	for i := range table.Records {
		v.Records[i] = &table.Records[i]
	}
	return v
}

func (v View) Len() int {
	return len(v.Records)
}

// Apply returns the records of table that pass the filter. The label filter is
// ignored for tables that carry no labels.
func (f Filter) Apply(table *model.Table) View {
	v := View{Labeled: table.Labeled}
	for i := range table.Records {
		rec := &table.Records[i]
		if f.match(rec, table.Labeled) {
			v.Records = append(v.Records, rec)
		}
	}
	return v
}

func (f Filter) match(rec *model.FlowRecord, labeled bool) bool {
	if f.Proto != "" && rec.Proto != f.Proto {
		return false
	}
	if f.Service != "" && rec.Service != f.Service {
		return false
	}
	if f.State != "" && rec.State != f.State {
		return false
	}
	day := dateOf(rec.StartTime)
	if !f.From.IsZero() && day.Before(dateOf(f.From)) {
		return false
	}
	if !f.To.IsZero() && day.After(dateOf(f.To)) {
		return false
	}
	if labeled {
		switch f.Anomaly {
		case AnomalyNormal:
			return !rec.Anomaly
		case AnomalyAnomalous:
			return rec.Anomaly
		}
	}
	return true
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// split partitions a view by label
func (v View) split() (normal, anomalous []*model.FlowRecord) {
	for _, rec := range v.Records {
		if rec.Anomaly {
			anomalous = append(anomalous, rec)
		} else {
			normal = append(normal, rec)
		}
	}
	return normal, anomalous
}
