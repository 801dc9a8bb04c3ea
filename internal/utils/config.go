package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"flowlens/internal/generator"
	"flowlens/internal/model"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned when the YAML configuration fails validation
var ErrInvalidConfig = errors.New("invalid config")

const DefaultConfigPath = "configs/flowlens.yaml"

type Config struct {
	Application ApplicationConfig `yaml:"application"`
	Generator   GeneratorConfig   `yaml:"generator"`
	Rules       []model.Rule      `yaml:"rules"`
	Alerting    AlertingConfig    `yaml:"alerting"`
	Logging     LoggingConfig     `yaml:"logging"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

type ApplicationConfig struct {
	DataDir        string   `yaml:"data_dir"`
	RealFile       string   `yaml:"real_file"`
	SyntheticFile  string   `yaml:"synthetic_file"`
	APIPort        string   `yaml:"api_port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	MaxDetections  int      `yaml:"max_detections"`
	Workers        int      `yaml:"workers"`
}

// GeneratorConfig wraps the generator settings with the output location
type GeneratorConfig struct {
	Output           string `yaml:"output"`
	generator.Config `yaml:",inline"`
}

type AlertingConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Channels AlertChannels  `yaml:"channels"`
	Telegram TelegramConfig `yaml:"telegram"`
}

type AlertChannels struct {
	Log      bool `yaml:"log"`
	Telegram bool `yaml:"telegram"`
}

type TelegramConfig struct {
	BotToken        string `yaml:"bot_token"`
	ChatID          string `yaml:"chat_id"`
	ParseMode       string `yaml:"parse_mode"`
	Enabled         bool   `yaml:"enabled"`
	APIURL          string `yaml:"api_url,omitempty"`
	MessageTemplate string `yaml:"message_template,omitempty"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type MetricsConfig struct {
	Namespace string `yaml:"namespace"`
	// Textfile is where the detector CLI writes its metrics after a run; empty disables it.
	Textfile string `yaml:"textfile"`
}

// LoadConfig reads a YAML file on top of DefaultConfig, so any section the file
// leaves out keeps its default.
func LoadConfig(filename string) (*Config, error) {
	if filename == "" {
		filename = DefaultConfigPath
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config file %s: %w", filename, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// LoadConfigOrDefault falls back to DefaultConfig when the file does not exist
func LoadConfigOrDefault(filename string) (*Config, bool, error) {
	config, err := LoadConfig(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultConfig(), false, nil
		}
		return nil, false, err
	}
	return config, true, nil
}

// Validate fills defaults and rejects settings no component can run with
func (c *Config) Validate() error {
	if c.Application.DataDir == "" {
		c.Application.DataDir = "data"
	}
	if c.Application.RealFile == "" {
		c.Application.RealFile = "dataset.csv"
	}
	if c.Application.SyntheticFile == "" {
		c.Application.SyntheticFile = "dataset1.csv"
	}
	if c.Application.APIPort == "" {
		c.Application.APIPort = "8080"
	}
	if len(c.Application.AllowedOrigins) == 0 {
		c.Application.AllowedOrigins = []string{"*"}
	}
	if c.Application.MaxDetections <= 0 {
		c.Application.MaxDetections = 1000
	}
	if c.Application.Workers < 0 {
		return fmt.Errorf("%w: application.workers must not be negative", ErrInvalidConfig)
	}

	if c.Generator.Output == "" {
		c.Generator.Output = filepath.Join(c.Application.DataDir, c.Application.SyntheticFile)
	}
	if err := c.Generator.Validate(); err != nil {
		return fmt.Errorf("%w: generator: %w", ErrInvalidConfig, err)
	}

	seen := make(map[string]bool, len(c.Rules))
	for i := range c.Rules {
		rule := &c.Rules[i]
		if rule.Name == "" {
			return fmt.Errorf("%w: rule %d has no name", ErrInvalidConfig, i)
		}
		if seen[rule.Name] {
			return fmt.Errorf("%w: rule %s configured twice", ErrInvalidConfig, rule.Name)
		}
		seen[rule.Name] = true
		if rule.Severity == "" {
			rule.Severity = "MEDIUM"
		}
		rule.Severity = strings.ToUpper(rule.Severity)
	}

	if c.Alerting.Telegram.ParseMode == "" {
		c.Alerting.Telegram.ParseMode = "Markdown"
	}
	if c.Alerting.Channels.Telegram && c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" || c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("%w: telegram enabled without bot_token and chat_id", ErrInvalidConfig)
		}
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "INFO"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("%w: logging.format must be json or text, got %q", ErrInvalidConfig, c.Logging.Format)
	}

	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "flowlens"
	}

	return nil
}

// DatasetPath resolves a dataset kind to its file: "real" selects the real
// capture, anything else the synthetic file.
func (c *Config) DatasetPath(kind string) string {
	if strings.EqualFold(kind, "real") {
		return filepath.Join(c.Application.DataDir, c.Application.RealFile)
	}
	return filepath.Join(c.Application.DataDir, c.Application.SyntheticFile)
}

func (c *Config) GetRuleConfigByName(name string) (*model.Rule, bool) {
	for i := range c.Rules {
		if c.Rules[i].Name == name {
			return &c.Rules[i], true
		}
	}
	return nil, false
}

func (c *Config) IsRuleEnabled(name string) bool {
	rule, exists := c.GetRuleConfigByName(name)
	return exists && rule.Enabled
}

// DefaultConfig returns a configuration that runs every rule with its stock thresholds
func DefaultConfig() *Config {
	return &Config{
		Application: ApplicationConfig{
			DataDir:        "data",
			RealFile:       "dataset.csv",
			SyntheticFile:  "dataset1.csv",
			APIPort:        "8080",
			AllowedOrigins: []string{"*"},
			MaxDetections:  1000,
		},
		Generator: GeneratorConfig{
			Config: generator.DefaultConfig(),
		},
		Rules: DefaultRules(),
		Alerting: AlertingConfig{
			Enabled: true,
			Channels: AlertChannels{
				Log:      true,
				Telegram: false,
			},
			Telegram: TelegramConfig{
				ParseMode: "Markdown",
			},
		},
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Namespace: "flowlens",
		},
	}
}

func DefaultRules() []model.Rule {
	return []model.Rule{
		{
			Name:        RuleDDoS,
			Enabled:     true,
			Severity:    "CRITICAL",
			Description: "Short flows with an extreme source packet rate",
			Thresholds:  map[string]interface{}{"packet_rate": 1000.0, "max_duration": 0.1},
		},
		{
			Name:        RuleWrongTTL,
			Enabled:     true,
			Severity:    "MEDIUM",
			Description: "TTL pinned to the edge of the valid range",
			Thresholds:  map[string]interface{}{"low": 2, "high": 254},
		},
		{
			Name:        RuleWindowSize,
			Enabled:     true,
			Severity:    "MEDIUM",
			Description: "TCP window at either end of the 16-bit range",
			Thresholds:  map[string]interface{}{"low": 3, "high": 65534},
		},
		{
			Name:        RulePacketSize,
			Enabled:     true,
			Severity:    "MEDIUM",
			Description: "Busy flows with implausibly small packets",
			Thresholds:  map[string]interface{}{"min_packets": 100, "bytes_per_packet": 10.0},
		},
		{
			Name:        RuleNonstandardPort,
			Enabled:     true,
			Severity:    "HIGH",
			Description: "Known service on a port other than its standard one",
		},
	}
}
