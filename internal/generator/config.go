package generator

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidConfig is returned for a generator configuration that cannot produce a table
var ErrInvalidConfig = errors.New("invalid generator config")

const (
	DefaultRows = 23000
	// DefaultSeed drives numeric sampling, DefaultChoiceSeed drives discrete choices.
	DefaultSeed       = 42
	DefaultChoiceSeed = 82

	// ratioTolerance absorbs float noise when sub-ratios are summed
	ratioTolerance = 1e-9
)

// DefaultBaseTime starts the time window when none is configured, so two runs
// with the same seeds write identical files.
var DefaultBaseTime = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// WeightedValue is one categorical value with its sampling weight
type WeightedValue struct {
	Value  string  `yaml:"value" json:"value"`
	Weight float64 `yaml:"weight" json:"weight"`
}

// AnomalyConfig controls how many generated records are perturbed and into which categories
type AnomalyConfig struct {
	Enabled              bool    `yaml:"enabled" json:"enabled"`
	AnomalyRatio         float64 `yaml:"anomaly_ratio" json:"anomaly_ratio"`
	DDoSRatio            float64 `yaml:"ddos_ratio" json:"ddos_ratio"`
	MisconfigRatio       float64 `yaml:"misconfig_ratio" json:"misconfig_ratio"`
	NonstandardPortRatio float64 `yaml:"nonstandard_port_ratio" json:"nonstandard_port_ratio"`
	// RepeatedConnRatio reserves a share of the anomaly subset; no perturbation is applied to it.
	RepeatedConnRatio float64 `yaml:"repeated_conn_ratio" json:"repeated_conn_ratio"`
}

// Config is the full generator configuration
type Config struct {
	Rows       int       `yaml:"rows" json:"rows"`
	Seed       uint64    `yaml:"seed" json:"seed"`
	ChoiceSeed uint64    `yaml:"choice_seed" json:"choice_seed"`
	BaseTime   time.Time `yaml:"base_time" json:"base_time"`
	WindowDays int       `yaml:"window_days" json:"window_days"`

	Protocols    []WeightedValue `yaml:"protocols" json:"protocols"`
	Services     []WeightedValue `yaml:"services" json:"services"`
	States       []WeightedValue `yaml:"states" json:"states"`
	SrcCountries []WeightedValue `yaml:"src_countries" json:"src_countries"`
	DstCountries []WeightedValue `yaml:"dst_countries" json:"dst_countries"`

	// AnchorCountry traffic is partly redirected to PartnerCountry (AnchorShare of it)
	AnchorCountry  string  `yaml:"anchor_country" json:"anchor_country"`
	PartnerCountry string  `yaml:"partner_country" json:"partner_country"`
	AnchorShare    float64 `yaml:"anchor_share" json:"anchor_share"`

	// ByteMultipliers scale sbytes per source country; unlisted countries use 1.0
	ByteMultipliers map[string]float64 `yaml:"byte_multipliers" json:"byte_multipliers"`

	Anomalies AnomalyConfig `yaml:"anomalies" json:"anomalies"`
}

func DefaultAnomalyConfig() AnomalyConfig {
	return AnomalyConfig{
		Enabled:              true,
		AnomalyRatio:         0.15,
		DDoSRatio:            0.4,
		MisconfigRatio:       0.2,
		NonstandardPortRatio: 0.2,
		RepeatedConnRatio:    0.2,
	}
}

// DefaultConfig returns the stock distributions. BaseTime is left zero and
// resolves to DefaultBaseTime unless the caller pins it.
func DefaultConfig() Config {
	return Config{
		Rows:       DefaultRows,
		Seed:       DefaultSeed,
		ChoiceSeed: DefaultChoiceSeed,
		WindowDays: 30,
		Protocols: weighted(
			[]string{"TCP", "UDP", "ICMP", "HTTP", "HTTPS", "DNS", "FTP", "SMTP", "SSH"},
			[]float64{0.4, 0.3, 0.1, 0.05, 0.05, 0.04, 0.02, 0.02, 0.02},
		),
		Services: weighted(
			[]string{"http", "https", "dns", "ftp", "ssh", "smtp", "pop3", "imap", "telnet",
				"ntp", "dhcp", "rdp", "vnc", "-", "other"},
			[]float64{0.25, 0.2, 0.15, 0.1, 0.1, 0.05, 0.05, 0.03, 0.02, 0.01, 0.01, 0.01, 0.01, 0.005, 0.005},
		),
		States: weighted(
			[]string{"FIN", "CON", "INT", "RST", "ACC", "REQ", "CLO", "EST", "-"},
			nil,
		),
		SrcCountries: weighted(countries, []float64{
			0.3, 0.1, 0.05, 0.08, 0.05, 0.05, 0.03, 0.02,
			0.04, 0.03, 0.03, 0.03, 0.03, 0.03, 0.03,
			0.02, 0.02, 0.02, 0.02, 0.02,
		}),
		DstCountries: weighted(countries, []float64{
			0.15, 0.15, 0.1, 0.08, 0.08, 0.05, 0.04, 0.05,
			0.04, 0.03, 0.03, 0.03, 0.03, 0.03, 0.03,
			0.02, 0.02, 0.02, 0.01, 0.01,
		}),
		AnchorCountry:  "Ukraine",
		PartnerCountry: "Poland",
		AnchorShare:    0.4,
		ByteMultipliers: map[string]float64{
			"Ukraine":        1.0,
			"USA":            1.5,
			"Germany":        1.2,
			"Poland":         0.8,
			"France":         0.9,
			"China":          1.7,
			"United Kingdom": 1.3,
			"Canada":         0.7,
		},
		Anomalies: DefaultAnomalyConfig(),
	}
}

var countries = []string{
	"Ukraine", "USA", "Germany", "Poland", "France", "China", "United Kingdom", "Canada",
	"India", "Japan", "Australia", "Brazil", "South Korea", "Italy", "Spain",
	"Netherlands", "Sweden", "Singapore", "Israel", "UAE",
}

// weighted zips values with weights; nil weights mean a uniform distribution
func weighted(values []string, weights []float64) []WeightedValue {
	out := make([]WeightedValue, len(values))
	for i, v := range values {
		w := 1.0
		if weights != nil {
			w = weights[i]
		}
		out[i] = WeightedValue{Value: v, Weight: w}
	}
	return out
}

// Validate rejects configurations that would produce a malformed table or
// negative-size anomaly partitions.
func (c *Config) Validate() error {
	if c.Rows <= 0 {
		return fmt.Errorf("%w: rows must be positive, got %d", ErrInvalidConfig, c.Rows)
	}
	if c.WindowDays < 0 {
		return fmt.Errorf("%w: window_days must not be negative", ErrInvalidConfig)
	}

	lists := []struct {
		name   string
		values []WeightedValue
	}{
		{"protocols", c.Protocols},
		{"services", c.Services},
		{"states", c.States},
		{"src_countries", c.SrcCountries},
		{"dst_countries", c.DstCountries},
	}
	for _, l := range lists {
		if err := validateWeights(l.name, l.values); err != nil {
			return err
		}
	}

	if c.AnchorShare < 0 || c.AnchorShare > 1 {
		return fmt.Errorf("%w: anchor_share %.3f outside [0,1]", ErrInvalidConfig, c.AnchorShare)
	}
	for country, m := range c.ByteMultipliers {
		if m < 0 || math.IsNaN(m) {
			return fmt.Errorf("%w: byte multiplier for %s must be non-negative", ErrInvalidConfig, country)
		}
	}

	return c.Anomalies.Validate()
}

func (a *AnomalyConfig) Validate() error {
	ratios := []struct {
		name  string
		value float64
	}{
		{"anomaly_ratio", a.AnomalyRatio},
		{"ddos_ratio", a.DDoSRatio},
		{"misconfig_ratio", a.MisconfigRatio},
		{"nonstandard_port_ratio", a.NonstandardPortRatio},
		{"repeated_conn_ratio", a.RepeatedConnRatio},
	}
	for _, r := range ratios {
		if r.value < 0 || r.value > 1 || math.IsNaN(r.value) {
			return fmt.Errorf("%w: %s %.3f outside [0,1]", ErrInvalidConfig, r.name, r.value)
		}
	}

	sum := a.DDoSRatio + a.MisconfigRatio + a.NonstandardPortRatio + a.RepeatedConnRatio
	if sum > 1+ratioTolerance {
		return fmt.Errorf("%w: anomaly sub-ratios sum to %.3f, must not exceed 1.0", ErrInvalidConfig, sum)
	}
	return nil
}

func validateWeights(name string, values []WeightedValue) error {
	if len(values) == 0 {
		return fmt.Errorf("%w: %s must not be empty", ErrInvalidConfig, name)
	}
	total := 0.0
	for _, v := range values {
		if v.Weight < 0 || math.IsNaN(v.Weight) {
			return fmt.Errorf("%w: %s weight for %q must be non-negative", ErrInvalidConfig, name, v.Value)
		}
		total += v.Weight
	}
	if total <= 0 {
		return fmt.Errorf("%w: %s weights sum to zero", ErrInvalidConfig, name)
	}
	return nil
}
