package rules

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"flowlens/internal/model"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ErrMissingColumn is returned when a table lacks a column an enabled rule reads
var ErrMissingColumn = errors.New("required column missing")

// chunkSize is the number of rows labeled by one worker at a time
const chunkSize = 4096

type Engine struct {
	rules          []RuleInterface
	alertNotifiers []NotifierInterface
	logger         *logrus.Logger
	mu             sync.RWMutex
	alertChannel   chan model.Alert
	workers        int
}

type NotifierInterface interface {
	SendAlert(alert model.Alert) error
}

func NewEngine(logger *logrus.Logger) *Engine {
	return &Engine{
		rules:          make([]RuleInterface, 0),
		alertNotifiers: make([]NotifierInterface, 0),
		logger:         logger,
		alertChannel:   make(chan model.Alert, 100),
		workers:        runtime.NumCPU(),
	}
}

// SetWorkers bounds how many row ranges are labeled concurrently
func (e *Engine) SetWorkers(n int) {
	if n < 1 {
		n = 1
	}
	e.mu.Lock()
	e.workers = n
	e.mu.Unlock()
}

// RegisterRule appends a rule. Registration order is evaluation order.
func (e *Engine) RegisterRule(rule RuleInterface) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = append(e.rules, rule)
	e.logger.Infof("Registered rule: %s", rule.Name())
}

func (e *Engine) RegisterNotifier(notifier NotifierInterface) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.alertNotifiers = append(e.alertNotifiers, notifier)
}

// Rules returns the enabled rules in evaluation order
func (e *Engine) Rules() []RuleInterface {
	e.mu.RLock()
	defer e.mu.RUnlock()

	enabled := make([]RuleInterface, 0, len(e.rules))
	for _, rule := range e.rules {
		if rule.IsEnabled() {
			enabled = append(enabled, rule)
		}
	}
	return enabled
}

// RequiredColumns returns the union of the columns read by enabled rules
func (e *Engine) RequiredColumns() []string {
	seen := make(map[string]bool)
	var cols []string
	for _, rule := range e.Rules() {
		for _, c := range rule.RequiredColumns() {
			if !seen[c] {
				seen[c] = true
				cols = append(cols, c)
			}
		}
	}
	return cols
}

// Label evaluates every enabled rule against rec and returns the tag of the last
// rule that matched, or model.AnomalyNone. It reads no label fields.
func (e *Engine) Label(rec *model.FlowRecord) model.AnomalyType {
	return label(e.Rules(), rec, nil)
}

func label(rules []RuleInterface, rec *model.FlowRecord, matches []int) model.AnomalyType {
	result := model.AnomalyNone
	for i, rule := range rules {
		if rule.Match(rec) {
			result = rule.Type()
			if matches != nil {
				matches[i]++
			}
		}
	}
	return result
}

// Validate checks that the table carries every column the enabled rules read
func (e *Engine) Validate(table *model.Table) error {
	if table == nil {
		return fmt.Errorf("nil table")
	}
	if missing := table.MissingColumns(e.RequiredColumns()); len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return nil
}

// Apply labels every record of table. Labels are computed for the whole table
// first and written only once every range succeeded, so a failed call leaves the
// table untouched.
func (e *Engine) Apply(ctx context.Context, dataset string, table *model.Table) (*model.DetectionResult, error) {
	if err := e.Validate(table); err != nil {
		return nil, err
	}

	rules := e.Rules()
	e.mu.RLock()
	workers := e.workers
	e.mu.RUnlock()

	started := time.Now()
	labels := make([]model.AnomalyType, len(table.Records))
	totals := make([]int, len(rules))
	var totalsMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for lo := 0; lo < len(table.Records); lo += chunkSize {
		hi := lo + chunkSize
		if hi > len(table.Records) {
			hi = len(table.Records)
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			matches := make([]int, len(rules))
			for i := lo; i < hi; i++ {
				labels[i] = label(rules, &table.Records[i], matches)
			}
			totalsMu.Lock()
			for i, n := range matches {
				totals[i] += n
			}
			totalsMu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("rule evaluation aborted: %w", err)
	}

	result := &model.DetectionResult{
		RunID:       uuid.New().String(),
		Dataset:     dataset,
		Rows:        len(table.Records),
		ByType:      make(map[model.AnomalyType]int),
		RuleMatches: make(map[string]int, len(rules)),
		StartedAt:   started,
	}

	for i := range table.Records {
		table.Records[i].SetLabel(labels[i])
		if labels[i] != model.AnomalyNone {
			result.Anomalies++
			result.ByType[labels[i]]++
		}
	}
	if !table.Labeled {
		table.Columns = append(table.Columns, model.LabelColumns...)
		table.Labeled = true
	}

	for i, rule := range rules {
		result.RuleMatches[rule.Name()] = totals[i]
		e.logger.Debugf("[%s] matched %d of %d records", rule.Name(), totals[i], result.Rows)
	}
	result.Duration = time.Since(started)

	e.logger.Infof("Labeled %d records in %s: %d anomalies", result.Rows, result.Duration, result.Anomalies)
	return result, nil
}

// Alerts builds one alert per anomaly type found in result
func (e *Engine) Alerts(result *model.DetectionResult) []model.Alert {
	severities := make(map[model.AnomalyType]string)
	for _, rule := range e.Rules() {
		severities[rule.Type()] = rule.Severity()
	}

	types := make([]model.AnomalyType, 0, len(result.ByType))
	for t := range result.ByType {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	alerts := make([]model.Alert, 0, len(types))
	for _, t := range types {
		count := result.ByType[t]
		if count == 0 {
			continue
		}
		pct := 0.0
		if result.Rows > 0 {
			pct = float64(count) / float64(result.Rows) * 100
		}
		alerts = append(alerts, model.Alert{
			ID:        uuid.New().String(),
			Type:      t,
			Severity:  severities[t],
			Dataset:   result.Dataset,
			Count:     count,
			Message:   fmt.Sprintf("%d %s records in dataset %s (%.2f%% of %d)", count, t, result.Dataset, pct, result.Rows),
			Timestamp: time.Now(),
		})
	}
	return alerts
}

// Notify emits the alerts derived from result to every registered notifier
func (e *Engine) Notify(result *model.DetectionResult) []model.Alert {
	alerts := e.Alerts(result)
	for _, alert := range alerts {
		e.EmitAlert(alert)
	}
	return alerts
}

func (e *Engine) EmitAlert(alert model.Alert) {
	select {
	case e.alertChannel <- alert:
	default:
		e.logger.Error("Alert channel is full, dropping alert")
	}

	e.mu.RLock()
	notifiers := make([]NotifierInterface, len(e.alertNotifiers))
	copy(notifiers, e.alertNotifiers)
	e.mu.RUnlock()

	for _, notifier := range notifiers {
		if err := notifier.SendAlert(alert); err != nil {
			e.logger.Errorf("Failed to send alert: %v", err)
		}
	}
}

func (e *Engine) GetAlertChannel() <-chan model.Alert {
	return e.alertChannel
}

type RuleInterface interface {
	Name() string
	IsEnabled() bool
	Severity() string
	Type() model.AnomalyType
	RequiredColumns() []string
	Match(rec *model.FlowRecord) bool
}
