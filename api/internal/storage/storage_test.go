package storage

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

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

func TestDatasets(t *testing.T) {
	s := NewStorage(0, quietLogger())
	_, ok := s.GetDataset("synthetic")
	assert.False(t, ok)

	table := model.NewTable([]model.FlowRecord{{ID: 1}})
	s.SetDataset("synthetic", table, nil)
	s.SetDataset("real", model.NewTable(nil), nil)

	ds, ok := s.GetDataset("synthetic")
	require.True(t, ok)
	assert.Same(t, table, ds.Table)
	assert.False(t, ds.LoadedAt.IsZero())
	assert.Equal(t, []string{"real", "synthetic"}, s.DatasetNames())
}

func TestDetections_BoundedLatestFirst(t *testing.T) {
	s := NewStorage(3, quietLogger())
	for i := 0; i < 5; i++ {
		s.AddDetection(model.DetectionResult{RunID: fmt.Sprintf("run-%d", i), Dataset: "synthetic"})
	}
	s.AddDetection(model.DetectionResult{Dataset: "real"})

	all := s.GetDetections(0, "")
	require.Len(t, all, 3)
	assert.Equal(t, "real", all[0].Dataset)
	assert.NotEmpty(t, all[0].RunID, "missing ids are generated")
	assert.Equal(t, "run-4", all[1].RunID)

	synthetic := s.GetDetections(1, "synthetic")
	require.Len(t, synthetic, 1)
	assert.Equal(t, "run-4", synthetic[0].RunID)

	assert.Nil(t, s.GetDetectionByID("run-0"), "evicted")
	d := s.GetDetectionByID("run-3")
	require.NotNil(t, d)
	d.Dataset = "changed"
	assert.Equal(t, "synthetic", s.GetDetectionByID("run-3").Dataset, "returns a copy")
}

func TestNewStorage_DefaultLimit(t *testing.T) {
	s := NewStorage(-1, quietLogger())
	assert.Equal(t, DefaultMaxDetections, s.maxDetections)
}

func TestAlerts(t *testing.T) {
	s := NewStorage(0, quietLogger())
	s.AddAlert(model.Alert{Severity: "CRITICAL", Dataset: "synthetic", Type: model.AnomalyDDoS})
	s.AddAlert(model.Alert{Severity: "MEDIUM", Dataset: "real", Type: model.AnomalyWrongTTL})

	all := s.GetAlerts(0, "", "")
	require.Len(t, all, 2)
	assert.Equal(t, model.AnomalyWrongTTL, all[0].Type)
	assert.NotEmpty(t, all[0].ID)
	assert.False(t, all[0].Timestamp.IsZero())

	assert.Len(t, s.GetAlerts(0, "CRITICAL", ""), 1)
	assert.Len(t, s.GetAlerts(0, "", "real"), 1)
	assert.Len(t, s.GetAlerts(1, "", ""), 1)
}

func TestConsumeAlerts(t *testing.T) {
	s := NewStorage(0, quietLogger())
	ch := make(chan model.Alert, 2)
	ch <- model.Alert{ID: "a"}
	ch <- model.Alert{ID: "b"}
	close(ch)

	s.ConsumeAlerts(context.Background(), ch)
	assert.Len(t, s.GetAlerts(0, "", ""), 2)

	ctx, cancel := context.WithCancel(context.Background())
	finished := make(chan struct{})
	go func() {
		s.ConsumeAlerts(ctx, make(chan model.Alert))
		close(finished)
	}()
	cancel()
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("ConsumeAlerts did not stop on cancel")
	}
}
