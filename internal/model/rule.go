package model

import "time"

type Rule struct {
	Name        string                 `yaml:"name" json:"name"`
	Enabled     bool                   `yaml:"enabled" json:"enabled"`
	Severity    string                 `yaml:"severity" json:"severity"`
	Description string                 `yaml:"description" json:"description"`
	Thresholds  map[string]interface{} `yaml:"thresholds,omitempty" json:"thresholds,omitempty"`
}

// Threshold reads a numeric threshold, accepting both int and float YAML scalars
func (r Rule) Threshold(key string, fallback float64) float64 {
	switch v := r.Thresholds[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return fallback
}

type Alert struct {
	ID        string      `json:"id"`
	Type      AnomalyType `json:"type"`
	Severity  string      `json:"severity"`
	Dataset   string      `json:"dataset"`
	Count     int         `json:"count"`
	Message   string      `json:"message"`
	Timestamp time.Time   `json:"timestamp"`
}

// DetectionResult summarizes one rule engine pass over a table
type DetectionResult struct {
	RunID       string              `json:"run_id"`
	Dataset     string              `json:"dataset"`
	Rows        int                 `json:"rows"`
	Anomalies   int                 `json:"anomalies"`
	ByType      map[AnomalyType]int `json:"by_type"`
	RuleMatches map[string]int      `json:"rule_matches"`
	StartedAt   time.Time           `json:"started_at"`
	Duration    time.Duration       `json:"duration"`
}
