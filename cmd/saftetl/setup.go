package main

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"

	"go.uber.org/zap"

	"saftetl/internal/config"
	"saftetl/internal/logging"
	"saftetl/internal/metrics"
	"saftetl/internal/metrics/datadog"
	"saftetl/internal/metrics/prompush"
)

var errInvalidConfig = errors.New("configuration is invalid")

// loadConfig reads the config file named by --config and applies the
// command-line overrides. A non-empty input replaces source.path.
func loadConfig(g *globalFlags, input string) (config.Pipeline, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return config.Pipeline{}, err
	}
	if input != "" {
		cfg.Source.Path = input
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	return cfg, nil
}

// validate prints every issue to w and fails when any of them is an error.
func validate(cfg config.Pipeline, w io.Writer) error {
	issues := config.ValidatePipeline(cfg)
	for _, iss := range issues {
		fmt.Fprintf(w, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		return errInvalidConfig
	}
	return nil
}

func newLogger(cfg config.Pipeline) (*zap.Logger, error) {
	return logging.New(logging.Config{
		Level:    cfg.Log.Level,
		Encoding: cfg.Log.Encoding,
	})
}

// setupMetrics installs the configured metrics backend. The returned func
// flushes it and must run once the pipeline is done.
func setupMetrics(cfg config.Pipeline, log *zap.Logger) (func(), error) {
	var b metrics.Backend
	switch cfg.Metrics.Backend {
	case "":
		return func() {}, nil
	case "prometheus":
		pb, err := prompush.NewBackend(cfg.Job, cfg.Metrics.PushgatewayURL)
		if err != nil {
			return nil, fmt.Errorf("init pushgateway backend: %w", err)
		}
		b = pb
	case "datadog":
		db, err := datadog.NewBackend(datadog.Config{
			Addr:       datadogAddr(cfg.Metrics.DatadogAddr),
			Namespace:  cfg.Metrics.Namespace,
			GlobalTags: cfg.Metrics.Tags,
		})
		if err != nil {
			return nil, fmt.Errorf("init datadog backend: %w", err)
		}
		b = db
	default:
		return nil, fmt.Errorf("unknown metrics backend %q", cfg.Metrics.Backend)
	}
	metrics.SetBackend(b)
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Warn("metrics flush failed", zap.Error(err))
		}
	}, nil
}

// datadogAddr falls back to DD_AGENT_HOST on the default DogStatsD port.
func datadogAddr(addr string) string {
	if addr != "" {
		return addr
	}
	host := os.Getenv("DD_AGENT_HOST")
	if host == "" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, "8125")
}
