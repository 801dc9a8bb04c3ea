package pipeline

import (
	"context"
	"fmt"

	"flowlens/internal/dataset"
	"flowlens/internal/metrics"
	"flowlens/internal/model"
	"flowlens/internal/rules"

	"github.com/sirupsen/logrus"
)

// Run is the outcome of one load, clean and label pass
type Run struct {
	Dataset string
	Table   *model.Table
	Report  *dataset.CleanReport
	Result  *model.DetectionResult
	Alerts  []model.Alert
}

// Processor loads a dataset, cleans it, evaluates rules, and emits alerts
type Processor struct {
	loader  *dataset.Loader
	cleaner *dataset.Cleaner
	engine  *rules.Engine
	metrics *metrics.Metrics
	logger  *logrus.Logger
}

// NewProcessor creates a new processor instance. m may be nil.
func NewProcessor(loader *dataset.Loader, engine *rules.Engine, m *metrics.Metrics, logger *logrus.Logger) *Processor {
	return &Processor{
		loader:  loader,
		cleaner: dataset.NewCleaner(logger),
		engine:  engine,
		metrics: m,
		logger:  logger,
	}
}

// Load reads and cleans the dataset of kind
func (p *Processor) Load(kind string) (*model.Table, *dataset.CleanReport, error) {
	raw, err := p.loader.Load(kind)
	if err != nil {
		return nil, nil, err
	}
	return p.clean(dataset.Kind(kind), raw)
}

// LoadFile reads and cleans an explicit file, recorded under name
func (p *Processor) LoadFile(name, path string) (*model.Table, *dataset.CleanReport, error) {
	raw, err := p.loader.LoadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return p.clean(name, raw)
}

func (p *Processor) clean(name string, raw *dataset.RawTable) (*model.Table, *dataset.CleanReport, error) {
	table, report, err := p.cleaner.Clean(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to clean %s: %w", name, err)
	}
	if p.metrics != nil {
		p.metrics.RecordDataset(name, report.Kept, report.Dropped)
	}
	p.logger.Infof("Loaded %s dataset: %d records, %d dropped", name, report.Kept, report.Dropped)
	return table, report, nil
}

// Detect labels table in place and sends one alert per anomaly type found
func (p *Processor) Detect(ctx context.Context, name string, table *model.Table) (*model.DetectionResult, []model.Alert, error) {
	result, err := p.engine.Apply(ctx, name, table)
	if err != nil {
		return nil, nil, fmt.Errorf("detection on %s failed: %w", name, err)
	}
	if p.metrics != nil {
		p.metrics.RecordDetection(result)
	}
	return result, p.engine.Notify(result), nil
}

// Process loads the dataset of kind and labels it
func (p *Processor) Process(ctx context.Context, kind string) (*Run, error) {
	name := dataset.Kind(kind)
	table, report, err := p.Load(kind)
	if err != nil {
		return nil, err
	}
	return p.finish(ctx, name, table, report)
}

// ProcessFile is Process for an explicit path
func (p *Processor) ProcessFile(ctx context.Context, name, path string) (*Run, error) {
	table, report, err := p.LoadFile(name, path)
	if err != nil {
		return nil, err
	}
	return p.finish(ctx, name, table, report)
}

func (p *Processor) finish(ctx context.Context, name string, table *model.Table, report *dataset.CleanReport) (*Run, error) {
	result, alerts, err := p.Detect(ctx, name, table)
	if err != nil {
		return nil, err
	}
	return &Run{
		Dataset: name,
		Table:   table,
		Report:  report,
		Result:  result,
		Alerts:  alerts,
	}, nil
}

func (p *Processor) Engine() *rules.Engine {
	return p.engine
}
