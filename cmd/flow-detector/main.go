package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"flowlens/internal/alert"
	"flowlens/internal/dataset"
	"flowlens/internal/metrics"
	"flowlens/internal/model"
	"flowlens/internal/pipeline"
	"flowlens/internal/report"
	"flowlens/internal/rules"
	"flowlens/internal/utils"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

func main() {
	var (
		configFile   = flag.String("config", utils.DefaultConfigPath, "Configuration file path (YAML)")
		datasetKind  = flag.String("dataset", dataset.KindSynthetic, "Dataset to label: real or synthetic")
		inFile       = flag.String("in", "", "Label this CSV instead of a configured dataset")
		outFile      = flag.String("out", "", "Write the labeled dataset to this CSV path")
		rulesFile    = flag.String("rules", "", "Rule definitions (YAML or JSON) replacing the configured rules")
		metricsFile  = flag.String("metrics-file", "", "Write Prometheus textfile metrics to this path")
		workers      = flag.Int("workers", 0, "Parallel rule workers (0 uses the config or CPU count)")
		quiet        = flag.Bool("quiet", false, "Skip the terminal report")
		showVersion  = flag.Bool("version", false, "Show version information")
		testTelegram = flag.Bool("test-telegram", false, "Send test message to Telegram")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println("flowlens flow-detector v1.0.0")
		return
	}

	config, found, err := utils.LoadConfigOrDefault(*configFile)
	if err != nil {
		fmt.Printf("Failed to load YAML config %s: %v\n", *configFile, err)
		os.Exit(1)
	}

	logger := utils.NewLogger(config.Logging.Level, config.Logging.Format)
	if found {
		logger.Infof("Loaded configuration from %s", *configFile)
	} else {
		logger.Warnf("Config %s not found, using default configuration", *configFile)
	}

	if *testTelegram {
		testTelegramNotification(config, logger)
		return
	}

	if *rulesFile != "" {
		ruleSet, err := rules.LoadRules(*rulesFile)
		if err != nil {
			logger.Fatalf("Failed to load rules: %v", err)
		}
		config.Rules = ruleSet
		if err := config.Validate(); err != nil {
			logger.Fatalf("Invalid rules in %s: %v", *rulesFile, err)
		}
		logger.Infof("Loaded %d rules from %s", len(ruleSet), *rulesFile)
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(config.Metrics.Namespace, reg)

	engine := rules.NewEngine(logger)
	if *workers > 0 {
		engine.SetWorkers(*workers)
	} else if config.Application.Workers > 0 {
		engine.SetWorkers(config.Application.Workers)
	}
	utils.RegisterBuiltinRules(engine, config, logger)
	utils.RegisterNotifiers(engine, config, m, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var drained sync.WaitGroup
	drained.Add(1)
	alerts := make(chan struct{})
	go func() {
		defer drained.Done()
		printAlerts(engine.GetAlertChannel(), alerts)
	}()

	loader := dataset.NewLoader(config.Application.DataDir, config.Application.RealFile, config.Application.SyntheticFile, logger)
	processor := pipeline.NewProcessor(loader, engine, m, logger)

	var run *pipeline.Run
	if *inFile != "" {
		run, err = processor.ProcessFile(ctx, *inFile, *inFile)
	} else {
		run, err = processor.Process(ctx, *datasetKind)
	}
	close(alerts)
	drained.Wait()
	if err != nil {
		logger.Errorf("Detection failed: %v", err)
		os.Exit(1)
	}

	if *outFile != "" {
		if err := dataset.WriteFile(*outFile, run.Table); err != nil {
			logger.Errorf("Failed to write labeled dataset: %v", err)
			os.Exit(1)
		}
		logger.WithField("path", *outFile).Info("Wrote labeled dataset")
	}

	if !*quiet {
		if err := report.Write(os.Stdout, report.Input{
			Table:  run.Table,
			Clean:  run.Report,
			Result: run.Result,
			Alerts: run.Alerts,
		}); err != nil {
			logger.Errorf("Failed to print report: %v", err)
		}
	}

	textfile := config.Metrics.Textfile
	if *metricsFile != "" {
		textfile = *metricsFile
	}
	if textfile != "" {
		if err := metrics.WriteTextfile(textfile, reg); err != nil {
			logger.Errorf("Failed to write metrics: %v", err)
			os.Exit(1)
		}
		logger.WithField("path", textfile).Info("Wrote metrics textfile")
	}
}

// printAlerts drains the engine alert channel until done is closed, then
// flushes whatever is still buffered.
func printAlerts(ch <-chan model.Alert, done <-chan struct{}) {
	for {
		select {
		case a := <-ch:
			printAlert(a)
		case <-done:
			for {
				select {
				case a := <-ch:
					printAlert(a)
				default:
					return
				}
			}
		}
	}
}

func printAlert(a model.Alert) {
	marker := "⚠️"
	switch a.Severity {
	case "CRITICAL", "HIGH":
		marker = "🔴"
	case "MEDIUM":
		marker = "🟡"
	case "LOW":
		marker = "🟢"
	}
	fmt.Printf("%s [%s] %s - %s\n", marker, a.Timestamp.Format("2006-01-02 15:04:05"), a.Severity, a.Message)
}

func testTelegramNotification(config *utils.Config, logger *logrus.Logger) {
	tg := config.Alerting.Telegram
	if !tg.Enabled {
		fmt.Println("Telegram is disabled in config")
		os.Exit(1)
	}
	notifier := alert.NewTelegramNotifierWithOptions(alert.TelegramOptions{
		BotToken:  tg.BotToken,
		ChatID:    tg.ChatID,
		ParseMode: tg.ParseMode,
		Enabled:   tg.Enabled,
		APIURL:    tg.APIURL,
	}, logger)
	if err := notifier.SendTestMessage(); err != nil {
		fmt.Printf("Failed to send test message: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Test message sent to Telegram")
}
