package dataset

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"flowlens/internal/generator"
	"flowlens/internal/model"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func generated(t *testing.T, rows int) *model.Table {
	t.Helper()
	cfg := generator.DefaultConfig()
	cfg.Rows = rows
	cfg.BaseTime = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	g, err := generator.New(cfg, quietLogger())
	require.NoError(t, err)
	res, err := g.Generate()
	require.NoError(t, err)
	return res.Table
}

func roundTrip(t *testing.T, table *model.Table) (*model.Table, *CleanReport) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, table))
	raw, err := ReadCSV(&buf, "memory")
	require.NoError(t, err)
	out, report, err := NewCleaner(quietLogger()).Clean(raw)
	require.NoError(t, err)
	return out, report
}

func TestWriteCSV_Header(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, generated(t, 3)))

	header := strings.SplitN(buf.String(), "\n", 2)[0]
	assert.Equal(t, strings.Join(model.Columns, ","), header)
}

func TestRoundTrip_Generated(t *testing.T) {
	table := generated(t, 500)
	out, report := roundTrip(t, table)

	assert.Equal(t, 500, report.Kept)
	assert.Zero(t, report.Dropped)
	assert.Empty(t, out.Ignored)
	assert.False(t, out.Labeled)
	assert.Equal(t, model.Columns, out.Columns)
	require.Len(t, out.Records, 500)

	for i := range table.Records {
		want, got := table.Records[i], out.Records[i]
		assert.Equal(t, want.ID, got.ID)
		assert.Equal(t, want.SrcIP, got.SrcIP)
		assert.Equal(t, want.DstPort, got.DstPort)
		assert.Equal(t, want.Service, got.Service)
		assert.Equal(t, want.Sbytes, got.Sbytes)
		assert.Equal(t, want.Dur, got.Dur)
		assert.Equal(t, want.Rate, got.Rate)
		assert.True(t, want.StartTime.Equal(got.StartTime), "start_time row %d", i)
		assert.InDelta(t, got.Dur, got.EndTime.Sub(got.StartTime).Seconds(), 1e-6)
	}
}

func TestRoundTrip_Labeled(t *testing.T) {
	table := generated(t, 10)
	table.Records[3].SetLabel(model.AnomalyDDoS)
	table.Columns = append(table.Columns, model.LabelColumns...)
	table.Labeled = true

	out, report := roundTrip(t, table)
	assert.Equal(t, 10, report.Kept, "normal rows with an empty anomaly_type survive")
	assert.True(t, out.Labeled)
	assert.True(t, out.Records[3].Anomaly)
	assert.Equal(t, model.AnomalyDDoS, out.Records[3].AnomalyType)
	assert.False(t, out.Records[4].Anomaly)
}

func TestClean_DropsIncompleteRows(t *testing.T) {
	input := "id,service,dst_port,spkts,dur\n" +
		"1,http,80,10,0.5\n" +
		"2,ssh,,10,0.5\n" +
		"3,dns,53,abc,0.5\n" +
		"4,ftp,21.0,12.0,1\n" +
		"5,ftp,21,12.5,1\n"

	raw, err := ReadCSV(strings.NewReader(input), "inline")
	require.NoError(t, err)
	table, report, err := NewCleaner(quietLogger()).Clean(raw)
	require.NoError(t, err)

	assert.Equal(t, 5, report.Rows)
	assert.Equal(t, 2, report.Kept)
	assert.Equal(t, 3, report.Dropped)
	require.Len(t, table.Records, 2)
	assert.Equal(t, int64(1), table.Records[0].ID)
	assert.Equal(t, int64(4), table.Records[1].ID)
	assert.Equal(t, 21, table.Records[1].DstPort)
	assert.Equal(t, int64(12), table.Records[1].Spkts)

	assert.Equal(t, []string{model.ColID, model.ColDstPort, model.ColService, model.ColDur, model.ColSpkts}, table.Columns)
	assert.Equal(t, []string{model.ColSttl, model.ColDttl}, table.MissingColumns([]string{model.ColSttl, model.ColDttl}))
}

func TestClean_IgnoresUnknownColumns(t *testing.T) {
	input := "id,is_attack,service,anomaly\n1,0,http,0\n"

	raw, err := ReadCSV(strings.NewReader(input), "inline")
	require.NoError(t, err)
	table, _, err := NewCleaner(quietLogger()).Clean(raw)
	require.NoError(t, err)

	assert.Equal(t, []string{"is_attack", model.ColAnomaly}, table.Ignored)
	assert.False(t, table.Labeled)
	assert.Equal(t, []string{model.ColID, model.ColService}, table.Columns)
}

func TestClean_RejectsInconsistentLabels(t *testing.T) {
	input := "id,anomaly,anomaly_type\n1,1,ddos\n2,1,\n3,0,nonstandard_port\n4,0,\n"

	raw, err := ReadCSV(strings.NewReader(input), "inline")
	require.NoError(t, err)
	table, report, err := NewCleaner(quietLogger()).Clean(raw)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Dropped)
	require.Len(t, table.Records, 2)
	assert.Equal(t, int64(1), table.Records[0].ID)
	assert.Equal(t, int64(4), table.Records[1].ID)
}

func TestClean_DuplicateColumn(t *testing.T) {
	raw, err := ReadCSV(strings.NewReader("id,id\n1,2\n"), "inline")
	require.NoError(t, err)
	_, _, err = NewCleaner(quietLogger()).Clean(raw)
	assert.Error(t, err)
}

func TestReadCSV_Empty(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""), "empty.csv")
	assert.ErrorContains(t, err, "empty file")
}

func TestLoader_Paths(t *testing.T) {
	l := NewLoader("data", "dataset.csv", "dataset1.csv", quietLogger())

	assert.Equal(t, filepath.Join("data", "dataset.csv"), l.Path("real"))
	assert.Equal(t, filepath.Join("data", "dataset.csv"), l.Path("Real"))
	assert.Equal(t, filepath.Join("data", "dataset1.csv"), l.Path("synthetic"))
	assert.Equal(t, filepath.Join("data", "dataset1.csv"), l.Path("anything"))
}

func TestLoader_NotFound(t *testing.T) {
	dir := t.TempDir()
	l := NewLoader(dir, "dataset.csv", "dataset1.csv", quietLogger())

	_, err := l.Load("real")
	require.ErrorIs(t, err, ErrNotFound)

	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, filepath.Join(dir, "dataset.csv"), nf.Path)
	assert.Equal(t, "dataset file not found: "+filepath.Join(dir, "dataset.csv"), err.Error())

	assert.Equal(t, map[string]bool{KindReal: false, KindSynthetic: false}, l.Available())
}

func TestLoader_LoadWrittenFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "dataset1.csv")
	require.NoError(t, WriteFile(path, generated(t, 25)))

	l := NewLoader(filepath.Join(dir, "nested"), "dataset.csv", "dataset1.csv", quietLogger())
	raw, err := l.Load("synthetic")
	require.NoError(t, err)
	assert.Len(t, raw.Rows, 25)
	assert.Equal(t, model.Columns, raw.Header)
	assert.True(t, l.Available()[KindSynthetic])

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestClean_DropsNonFiniteAndNAValues(t *testing.T) {
	input := "id,dur,spkts,rate,service\n" +
		"1,1.5,10,5.0,http\n" +
		"2,NaN,10,5.0,http\n" +
		"3,2.0,10,inf,http\n" +
		"4,2.0,10,+Inf,http\n" +
		"5,2.0,NA,5.0,http\n" +
		"6,2.0,10,5.0,N/A\n" +
		"7,2.0,10,null,http\n" +
		"8,2.0,10,-inf,dns\n" +
		"9,0.25,4,16,dns\n"

	raw, err := ReadCSV(strings.NewReader(input), "inline")
	require.NoError(t, err)
	table, report, err := NewCleaner(quietLogger()).Clean(raw)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Kept)
	assert.Equal(t, 7, report.Dropped)
	require.Len(t, table.Records, 2)
	assert.Equal(t, int64(1), table.Records[0].ID)
	assert.Equal(t, int64(9), table.Records[1].ID)
}

func TestClean_NALabelMeansNormal(t *testing.T) {
	input := "id,anomaly_type\n1,nan\n2,ddos\n"
	raw, err := ReadCSV(strings.NewReader(input), "inline")
	require.NoError(t, err)
	table, _, err := NewCleaner(quietLogger()).Clean(raw)
	require.NoError(t, err)

	require.Len(t, table.Records, 2)
	assert.False(t, table.Records[0].Anomaly)
	assert.Equal(t, model.AnomalyNone, table.Records[0].AnomalyType)
	assert.True(t, table.Records[1].Anomaly)
}

func TestParseInt(t *testing.T) {
	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"12", 12, true},
		{" 12.0 ", 12, true},
		{"-3", -3, true},
		{"12.5", 0, false},
		{"1e30", 0, false},
		{"-1e30", 0, false},
		{"9223372036854775808", 0, false},
		{"NaN", 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := parseInt(tc.in)
			if !tc.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestWriteCSV_DefaultBaseTimeIsReproducible(t *testing.T) {
	write := func() string {
		cfg := generator.DefaultConfig()
		cfg.Rows = 300
		g, err := generator.New(cfg, quietLogger())
		require.NoError(t, err)
		res, err := g.Generate()
		require.NoError(t, err)
		var buf bytes.Buffer
		require.NoError(t, WriteCSV(&buf, res.Table))
		return buf.String()
	}

	first := write()
	assert.Equal(t, first, write())
	assert.Contains(t, first, generator.DefaultBaseTime.Format("2006-01"))
}
