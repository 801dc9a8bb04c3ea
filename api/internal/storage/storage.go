package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"flowlens/internal/dataset"
	"flowlens/internal/model"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	DefaultMaxDetections = 1000
	DefaultMaxAlerts     = 1000
)

// Dataset is a cleaned table held in memory. Stored tables are never mutated;
// a detection run replaces the entry with a relabeled copy.
type Dataset struct {
	Name     string               `json:"name"`
	Table    *model.Table         `json:"-"`
	Report   *dataset.CleanReport `json:"report,omitempty"`
	LoadedAt time.Time            `json:"loaded_at"`
}

type Storage struct {
	mu            sync.RWMutex
	datasets      map[string]*Dataset
	detections    []model.DetectionResult
	alerts        []model.Alert
	maxDetections int
	maxAlerts     int
	logger        *logrus.Logger
}

func NewStorage(maxDetections int, logger *logrus.Logger) *Storage {
	if maxDetections <= 0 {
		maxDetections = DefaultMaxDetections
	}
	return &Storage{
		datasets:      make(map[string]*Dataset),
		detections:    make([]model.DetectionResult, 0),
		alerts:        make([]model.Alert, 0),
		maxDetections: maxDetections,
		maxAlerts:     DefaultMaxAlerts,
		logger:        logger,
	}
}

// Dataset methods
func (s *Storage) SetDataset(name string, table *model.Table, report *dataset.CleanReport) *Dataset {
	ds := &Dataset{
		Name:     name,
		Table:    table,
		Report:   report,
		LoadedAt: time.Now(),
	}

	s.mu.Lock()
	s.datasets[name] = ds
	s.mu.Unlock()

	s.logger.Debugf("Stored dataset %s (%d records, labeled=%v)", name, table.Len(), table.Labeled)
	return ds
}

func (s *Storage) GetDataset(name string) (*Dataset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ds, ok := s.datasets[name]
	return ds, ok
}

// DatasetNames returns the stored dataset names in order
func (s *Storage) DatasetNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.datasets))
	for name := range s.datasets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Detection methods
func (s *Storage) AddDetection(result model.DetectionResult) model.DetectionResult {
	if result.RunID == "" {
		result.RunID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.detections = append(s.detections, result)

	// Keep only last maxDetections
	if len(s.detections) > s.maxDetections {
		s.detections = s.detections[len(s.detections)-s.maxDetections:]
	}
	return result
}

// GetDetections returns up to limit runs, latest first. dataset filters when set.
func (s *Storage) GetDetections(limit int, datasetName string) []model.DetectionResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]model.DetectionResult, 0)
	for i := len(s.detections) - 1; i >= 0; i-- {
		if limit > 0 && len(result) >= limit {
			break
		}
		if datasetName != "" && s.detections[i].Dataset != datasetName {
			continue
		}
		result = append(result, s.detections[i])
	}
	return result
}

func (s *Storage) GetDetectionByID(id string) *model.DetectionResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.detections {
		if s.detections[i].RunID == id {
			d := s.detections[i]
			return &d
		}
	}
	return nil
}

// Alert methods
func (s *Storage) AddAlert(alert model.Alert) {
	if alert.ID == "" {
		alert.ID = uuid.NewString()
	}
	if alert.Timestamp.IsZero() {
		alert.Timestamp = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.alerts = append(s.alerts, alert)

	// Keep only last maxAlerts
	if len(s.alerts) > s.maxAlerts {
		s.alerts = s.alerts[len(s.alerts)-s.maxAlerts:]
	}
}

// GetAlerts returns up to limit alerts, latest first
func (s *Storage) GetAlerts(limit int, severity, datasetName string) []model.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]model.Alert, 0)
	for i := len(s.alerts) - 1; i >= 0; i-- {
		if limit > 0 && len(result) >= limit {
			break
		}
		alert := s.alerts[i]
		if severity != "" && alert.Severity != severity {
			continue
		}
		if datasetName != "" && alert.Dataset != datasetName {
			continue
		}
		result = append(result, alert)
	}
	return result
}

// ConsumeAlerts stores every alert read from ch until ctx ends or ch closes
func (s *Storage) ConsumeAlerts(ctx context.Context, ch <-chan model.Alert) {
	for {
		select {
		case alert, ok := <-ch:
			if !ok {
				return
			}
			s.AddAlert(alert)
		case <-ctx.Done():
			return
		}
	}
}
