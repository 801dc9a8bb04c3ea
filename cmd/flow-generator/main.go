package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"flowlens/internal/dataset"
	"flowlens/internal/generator"
	"flowlens/internal/metrics"
	"flowlens/internal/utils"

	"github.com/prometheus/client_golang/prometheus"
)

// overrides are the generator settings taken from the command line
type overrides struct {
	rows        int
	seed        uint64
	choiceSeed  uint64
	baseTime    string
	noAnomalies bool
}

// setFlags returns the names of the flags given on the command line
func setFlags(fs *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

// apply copies each explicitly set flag onto cfg; unset flags keep the configured value
func (o overrides) apply(cfg generator.Config, set map[string]bool) (generator.Config, error) {
	if set["rows"] {
		cfg.Rows = o.rows
	}
	if set["seed"] {
		cfg.Seed = o.seed
	}
	if set["choice-seed"] {
		cfg.ChoiceSeed = o.choiceSeed
	}
	if set["base-time"] {
		t, err := time.Parse(time.RFC3339, o.baseTime)
		if err != nil {
			return cfg, fmt.Errorf("invalid -base-time %q: %w", o.baseTime, err)
		}
		cfg.BaseTime = t.UTC()
	}
	if set["no-anomalies"] && o.noAnomalies {
		cfg.Anomalies.Enabled = false
	}
	return cfg, nil
}

func main() {
	var (
		configFile  = flag.String("config", utils.DefaultConfigPath, "Configuration file path (YAML)")
		outFile     = flag.String("out", "", "Output CSV path (defaults to generator.output)")
		rows        = flag.Int("rows", 0, "Number of records to generate")
		seed        = flag.Uint64("seed", 0, "Seed for numeric sampling")
		choiceSeed  = flag.Uint64("choice-seed", 0, "Seed for categorical choices")
		baseTime    = flag.String("base-time", "", "Start of the time window (RFC3339)")
		noAnomalies = flag.Bool("no-anomalies", false, "Skip anomaly injection")
		metricsFile = flag.String("metrics-file", "", "Write Prometheus textfile metrics to this path")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println("flowlens flow-generator v1.0.0")
		return
	}

	config, found, err := utils.LoadConfigOrDefault(*configFile)
	if err != nil {
		fmt.Printf("Failed to load YAML config %s: %v\n", *configFile, err)
		os.Exit(1)
	}
	if !found {
		fmt.Printf("Config %s not found, using default configuration\n", *configFile)
	}

	logger := utils.NewLogger(config.Logging.Level, config.Logging.Format)

	cfg, err := overrides{
		rows:        *rows,
		seed:        *seed,
		choiceSeed:  *choiceSeed,
		baseTime:    *baseTime,
		noAnomalies: *noAnomalies,
	}.apply(config.Generator.Config, setFlags(flag.CommandLine))
	if err != nil {
		logger.Fatalf("Invalid flags: %v", err)
	}

	output := config.Generator.Output
	if *outFile != "" {
		output = *outFile
	}

	gen, err := generator.New(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to create generator: %v", err)
	}
	logger.Infof("Generator: %s", gen)

	result, err := gen.Generate()
	if err != nil {
		logger.Fatalf("Failed to generate records: %v", err)
	}

	if err := dataset.WriteFile(output, result.Table); err != nil {
		logger.Fatalf("Failed to write dataset: %v", err)
	}

	plan := result.Plan
	logger.WithField("path", output).Infof("Wrote %d records", result.Table.Len())
	logger.Infof("Injection plan: %d ddos, %d misconfig, %d nonstandard_port, %d repeated_conn reserved, %d unassigned",
		len(plan.DDoS), len(plan.Misconfig), len(plan.NonstandardPort), len(plan.RepeatedConn), plan.Unassigned)

	if *metricsFile != "" {
		reg := prometheus.NewRegistry()
		m := metrics.New(config.Metrics.Namespace, reg)
		m.RecordGenerated(result.Table.Len())
		if err := metrics.WriteTextfile(*metricsFile, reg); err != nil {
			logger.Errorf("Failed to write metrics: %v", err)
			os.Exit(1)
		}
	}
}
