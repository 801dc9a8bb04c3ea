package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"flowlens/api/internal/handlers"
	"flowlens/api/internal/storage"
	"flowlens/internal/dataset"
	"flowlens/internal/metrics"
	"flowlens/internal/pipeline"
	"flowlens/internal/rules"
	"flowlens/internal/utils"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
)

func main() {
	var (
		configFile = flag.String("config", utils.DefaultConfigPath, "Configuration file path (YAML)")
		port       = flag.String("port", "", "API server port (overrides application.api_port)")
		detect     = flag.Bool("detect", true, "Label every available dataset at startup")
	)
	flag.Parse()

	config, found, err := utils.LoadConfigOrDefault(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != "" {
		config.Application.APIPort = *port
	}

	logger := utils.NewLogger(config.Logging.Level, config.Logging.Format)
	if !found {
		logger.Warnf("Config %s not found, using default configuration", *configFile)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(config.Metrics.Namespace, registry)

	engine := rules.NewEngine(logger)
	if config.Application.Workers > 0 {
		engine.SetWorkers(config.Application.Workers)
	}
	utils.RegisterBuiltinRules(engine, config, logger)
	utils.RegisterNotifiers(engine, config, m, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Create in-memory storage; it also drains the engine alert channel
	store := storage.NewStorage(config.Application.MaxDetections, logger)
	go store.ConsumeAlerts(ctx, engine.GetAlertChannel())

	loader := dataset.NewLoader(config.Application.DataDir, config.Application.RealFile, config.Application.SyntheticFile, logger)
	processor := pipeline.NewProcessor(loader, engine, m, logger)

	preload(ctx, store, processor, loader, *detect, logger)

	h := handlers.NewHandlers(store, processor, loader, config, logger)
	router := handlers.NewRouter(h, registry)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", config.Application.APIPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
	}

	logger.Infof("API server starting on port %s", config.Application.APIPort)

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		logger.Info("Shutting down API server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("Server shutdown error: %v", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("Server failed: %v", err)
	}
}

// preload loads every dataset present on disk and optionally labels it.
// Missing files are skipped; the handlers retry the load on request.
func preload(ctx context.Context, store *storage.Storage, processor *pipeline.Processor, loader *dataset.Loader, detect bool, logger *logrus.Logger) {
	for kind, ok := range loader.Available() {
		if !ok {
			logger.Warnf("Dataset %s not available at %s", kind, loader.Path(kind))
			continue
		}
		table, report, err := processor.Load(kind)
		if err != nil {
			logger.Errorf("Failed to load %s dataset: %v", kind, err)
			continue
		}
		if detect {
			result, _, err := processor.Detect(ctx, kind, table)
			if err != nil {
				// a failed pass leaves the table unlabeled
				logger.Warnf("Startup detection on %s failed: %v", kind, err)
			} else {
				store.AddDetection(*result)
			}
		}
		store.SetDataset(kind, table, report)
	}
}
