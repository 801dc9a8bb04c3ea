package dataset

import (
	"fmt"
	"strings"

	"flowlens/internal/model"

	"github.com/sirupsen/logrus"
)

// CleanReport describes what Clean kept and discarded
type CleanReport struct {
	Source  string   `json:"source"`
	Rows    int      `json:"rows"`
	Kept    int      `json:"kept"`
	Dropped int      `json:"dropped"`
	Ignored []string `json:"ignored,omitempty"`
}

// Cleaner turns a RawTable into a typed table
type Cleaner struct {
	logger *logrus.Logger
}

func NewCleaner(logger *logrus.Logger) *Cleaner {
	return &Cleaner{logger: logger}
}

// Clean keeps the known columns of raw and converts each row to a FlowRecord.
// A row is dropped when a cell of a known column is missing (empty or an NA
// marker) or fails coercion, non-finite floats included;
// anomaly_type is exempt from the empty check since normal rows carry "".
// Columns outside the schema are skipped and listed in Table.Ignored.
func (c *Cleaner) Clean(raw *RawTable) (*model.Table, *CleanReport, error) {
	if raw == nil || len(raw.Header) == 0 {
		return nil, nil, fmt.Errorf("no header to clean")
	}

	type column struct {
		index int
		name  string
		field field
	}

	var (
		cols    []column
		ignored []string
		present = make(map[string]bool)
	)
	for i, name := range raw.Header {
		if !IsKnownColumn(name) {
			ignored = append(ignored, name)
			continue
		}
		if present[name] {
			return nil, nil, fmt.Errorf("%s: column %s appears twice", raw.Source, name)
		}
		present[name] = true
		cols = append(cols, column{index: i, name: name, field: fields[name]})
	}
	// a flag without its type cannot be turned into a label
	if present[model.ColAnomaly] && !present[model.ColAnomalyType] {
		for i := range cols {
			if cols[i].name == model.ColAnomaly {
				cols = append(cols[:i], cols[i+1:]...)
				break
			}
		}
		delete(present, model.ColAnomaly)
		ignored = append(ignored, model.ColAnomaly)
	}
	if len(ignored) > 0 {
		c.logger.Warnf("Ignoring %d columns in %s: %s", len(ignored), raw.Source, strings.Join(ignored, ", "))
	}

	labeled := present[model.ColAnomalyType]

	report := &CleanReport{Source: raw.Source, Rows: len(raw.Rows), Ignored: ignored}
	records := make([]model.FlowRecord, 0, len(raw.Rows))

rows:
	for n, row := range raw.Rows {
		var rec model.FlowRecord
		for _, col := range cols {
			cell := row[col.index]
			if col.name != model.ColAnomalyType && IsMissing(cell) {
				report.Dropped++
				continue rows
			}
			if err := col.field.set(&rec, cell); err != nil {
				c.logger.Debugf("%s row %d: column %s: %v", raw.Source, n+1, col.name, err)
				report.Dropped++
				continue rows
			}
		}
		if labeled && !consistentLabel(&rec, present) {
			c.logger.Debugf("%s row %d: anomaly flag disagrees with anomaly_type", raw.Source, n+1)
			report.Dropped++
			continue
		}
		records = append(records, rec)
	}
	report.Kept = len(records)

	if report.Dropped > 0 {
		c.logger.Warnf("Dropped %d of %d rows from %s", report.Dropped, report.Rows, raw.Source)
	}

	table := &model.Table{
		Records: records,
		Ignored: ignored,
		Labeled: labeled,
	}
	for _, name := range model.Columns {
		if present[name] {
			table.Columns = append(table.Columns, name)
		}
	}
	if labeled {
		table.Columns = append(table.Columns, model.LabelColumns...)
	}
	return table, report, nil
}

// consistentLabel derives the flag from anomaly_type when the flag column is
// absent and rejects rows where both are present and disagree.
func consistentLabel(rec *model.FlowRecord, present map[string]bool) bool {
	if present[model.ColAnomaly] {
		return rec.Anomaly == (rec.AnomalyType != model.AnomalyNone)
	}
	rec.SetLabel(rec.AnomalyType)
	return true
}
