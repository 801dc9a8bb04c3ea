package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"flowlens/internal/dataset"
	"flowlens/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func labeledTable() *model.Table {
	records := []model.FlowRecord{
		{ID: 1, Proto: "TCP", Service: "http", Sbytes: 1000, SrcCountry: "Ukraine"},
		{ID: 2, Proto: "TCP", Service: "https", Sbytes: 2000, SrcCountry: "USA"},
		{ID: 3, Proto: "UDP", Service: "dns", Sbytes: 3000, SrcCountry: "USA"},
		{ID: 4, Proto: "TCP", Service: "ssh", Sbytes: 4000, SrcCountry: "China"},
	}
	records[2].SetLabel(model.AnomalyDDoS)
	table := model.NewTable(records)
	table.Columns = append(table.Columns, model.LabelColumns...)
	table.Labeled = true
	return table
}

func TestRender(t *testing.T) {
	out := Render(Input{
		Table: labeledTable(),
		Clean: &dataset.CleanReport{Rows: 5, Kept: 4, Dropped: 1, Ignored: []string{"is_attack"}},
		Result: &model.DetectionResult{
			RunID:    "run-1",
			Dataset:  "synthetic",
			Duration: 3 * time.Millisecond,
		},
		Alerts: []model.Alert{{Severity: "CRITICAL", Type: model.AnomalyDDoS, Message: "1 ddos records in dataset synthetic (25.00% of 4)"}},
	})

	for _, want := range []string{
		"flowlens detection report: synthetic",
		"5 rows read, 4 kept, 1 dropped, ignored columns: is_attack",
		"run run-1 took 3ms",
		"Anomaly Overview",
		"1 anomalous (25.00%)",
		"ddos",
		"[CRITICAL] 1 ddos records in dataset synthetic",
		"Protocols",
		"Source Countries",
		"USA",
	} {
		assert.Contains(t, out, want)
	}
}

func TestRender_Unlabeled(t *testing.T) {
	table := labeledTable()
	table.Labeled = false

	out := Render(Input{Table: table})
	assert.NotContains(t, out, "Anomaly Overview")
	assert.Contains(t, out, "Services")
}

func TestRender_Clean(t *testing.T) {
	table := model.NewTable([]model.FlowRecord{{ID: 1, Proto: "TCP", Service: "http"}})
	table.Columns = append(table.Columns, model.LabelColumns...)
	table.Labeled = true

	assert.Contains(t, Render(Input{Table: table}), "no anomalies")
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, Input{}))
	assert.True(t, strings.HasSuffix(buf.String(), "\n"))
	assert.Contains(t, buf.String(), "flowlens detection report: dataset")
}

func TestBar(t *testing.T) {
	assert.Equal(t, "["+strings.Repeat("█", 10)+strings.Repeat("░", 10)+"]", bar(0.5))
	assert.Equal(t, "["+strings.Repeat("█", 20)+"]", bar(1.5))
	assert.Equal(t, "["+strings.Repeat("░", 20)+"]", bar(-1))
}
