package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/vk/gridcomp/internal/config"
	"github.com/vk/gridcomp/internal/ctxlog"
	"github.com/vk/gridcomp/internal/metrics"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW       io.Writer
	logger     *slog.Logger
	config     *Config
	model      *config.Model
	converter  config.Converter
	registry   *prometheus.Registry
	metrics    *metrics.Metrics
	httpServer *http.Server
}

// NewApp is the constructor for the main application. It loads the node tree
// through loader and returns a fully initialized App with its own logger and
// metrics registry. A node tree that cannot be loaded is a fatal startup
// error and panics.
func NewApp(outW io.Writer, cfg *Config, loader config.Loader) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	model, converter, err := loader.Load(ctx, cfg.TreePath)
	if err != nil {
		panic(fmt.Errorf("failed to load node tree: %w", err))
	}
	logger.Debug("Node tree loaded and translated into unified model.", "tree", model.Name, "nodes", len(model.Nodes))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	return &App{
		outW:      outW,
		logger:    logger,
		config:    cfg,
		model:     model,
		converter: converter,
		registry:  reg,
		metrics:   metrics.New(reg),
	}
}

// Model returns the loaded node tree. This is primarily for testing.
func (a *App) Model() *config.Model {
	return a.model
}

// Metrics returns the application's metrics. This is primarily for testing.
func (a *App) Metrics() *metrics.Metrics {
	return a.metrics
}
