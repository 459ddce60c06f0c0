package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brettbedarf/docfs"
	"github.com/brettbedarf/docfs/config"
	"github.com/brettbedarf/docfs/internal/util"
	"github.com/brettbedarf/docfs/metrics"
	"github.com/brettbedarf/docfs/requests"
	"github.com/brettbedarf/docfs/store"
	"github.com/brettbedarf/docfs/validators"
)

func main() {
	// Parse command line arguments
	var (
		configPath     string
		basePath       string
		opsPath        string
		validatorsPath string
		metricsAddr    string
		verbose        int
		list           bool
	)
	flag.StringVar(&configPath, "config", "", "Path to a YAML or JSON config override file")
	flag.StringVar(&configPath, "c", "", "--config (shorthand)")
	flag.StringVar(&basePath, "base", "", "Base directory of the store (overrides config)")
	flag.StringVar(&basePath, "b", "", "--base (shorthand)")
	flag.StringVar(&opsPath, "ops", "", "Path to a YAML or JSON batch file to run")
	flag.StringVar(&opsPath, "o", "", "--ops (shorthand)")
	flag.StringVar(&validatorsPath, "validators", "", "Path to a YAML or JSON file of per-collection validators")
	flag.StringVar(&metricsAddr, "metrics", "",
		"Serve Prometheus metrics on this address and keep running until interrupted, i.e. :9090")
	flag.BoolVar(&list, "list", false, "Print the store's collections")
	flag.IntVar(&verbose, "verbose", 3, "Log verbosity level between 1 (error) and 5 (trace). Default is 3 (info).")
	flag.IntVar(&verbose, "v", 3, "--verbose (shorthand)")
	flag.Parse()

	// Initialize logger
	logLvl := config.VerboseToLogLevel(verbose)
	util.InitializeLogger(logLvl)
	logger := util.GetLogger("main")

	// Load config
	cfg := config.NewDefaultConfig()
	if configPath != "" {
		override, err := config.LoadConfigOverrideFile(configPath)
		if err != nil {
			logger.Fatal().Err(err).Str("config", configPath).Msg("Failed to load config file")
		}
		cfg.Merge(override)
	}
	cfg.Merge(&config.ConfigOverride{LogLvl: &verbose})
	if basePath != "" {
		cfg.BasePath = basePath
	}
	logger.Info().Int("verbose", verbose).Str("base", cfg.BasePath).Str("ops", opsPath).Msg("docfs initializing")

	opts := []store.Option{}

	// Validators
	validators.RegisterBuiltins()
	if validatorsPath != "" {
		reg, err := validators.LoadFile(validatorsPath)
		if err != nil {
			logger.Fatal().Err(err).Str("validators", validatorsPath).Msg("Failed to load validators")
		}
		logger.Debug().Strs("collections", reg.Collections()).Msg("Validators loaded")
		opts = append(opts, store.WithValidators(reg))
	}

	// Metrics
	var srv *http.Server
	if metricsAddr != "" {
		opts = append(opts, store.WithMetrics(metrics.New(prometheus.DefaultRegisterer)))
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv = &http.Server{Addr: metricsAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Fatal().Err(err).Str("addr", metricsAddr).Msg("Metrics server failed")
			}
		}()
		logger.Info().Str("addr", metricsAddr).Msg("Serving metrics")
	}

	s, err := docfs.New(cfg, opts...)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open store")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	failed := 0
	if opsPath != "" {
		batch, err := requests.LoadFile(opsPath)
		if err != nil {
			logger.Fatal().Err(err).Str("ops", opsPath).Msg("Failed to load batch file")
		}
		results := batch.Run(ctx, s)
		for _, r := range results {
			if !r.Success {
				failed++
				logger.Warn().Int("index", r.Index).Str("type", r.Type).Str("error", r.Error).Msg("Operation failed")
			}
		}
		logger.Info().Int("ops", len(results)).Int("failed", failed).Msg("Batch complete")
		printJSON(results)
	} else if !list {
		logger.Warn().Msg("No batch file provided")
	}

	if list {
		names, err := s.ListCollections(ctx)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to list collections")
		}
		printJSON(names)
	}

	if srv != nil {
		// Wait for termination signal
		<-ctx.Done()
		logger.Info().Msg("Received signal, shutting down metrics server")
		if err := srv.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("Failed to shut down metrics server")
		}
	}

	if failed > 0 {
		os.Exit(1)
	}
}

func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		logger := util.GetLogger("main")
		logger.Fatal().Err(err).Msg("Failed to encode output")
	}
	os.Stdout.Write(append(out, '\n')) // nolint:errcheck
}
