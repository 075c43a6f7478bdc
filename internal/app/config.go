package app

import (
	"errors"
	"fmt"

	"github.com/vk/gridcomp/internal/config"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	TreePath string // hcl file or directory

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
	WorkerCount     int
	ProgressURL     string

	// Overrides for the compositor context. Zero values keep what the node
	// tree or the defaults specify.
	ChunkSize       int
	Quality         string
	SchedulingMode  string
	FastCalculation bool
	Rendering       bool
}

// NewConfig validates cfg and returns a copy.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.TreePath == "" {
		return nil, errors.New("TreePath is a required configuration field and cannot be empty")
	}
	if cfg.WorkerCount < 0 {
		return nil, fmt.Errorf("workers must not be negative, got %d", cfg.WorkerCount)
	}
	if cfg.ChunkSize < 0 {
		return nil, fmt.Errorf("chunk-size must not be negative, got %d", cfg.ChunkSize)
	}
	if cfg.Quality != "" {
		if _, err := config.ParseQuality(cfg.Quality); err != nil {
			return nil, err
		}
	}
	if cfg.SchedulingMode != "" {
		if _, err := config.ParseSchedulingMode(cfg.SchedulingMode); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

// compositorContext layers the node tree settings and then the command line
// overrides on top of the defaults.
func (c *Config) compositorContext(settings *config.Settings) (config.Context, error) {
	ctx := config.DefaultContext()
	if err := settings.Apply(&ctx); err != nil {
		return ctx, fmt.Errorf("invalid compositor settings: %w", err)
	}
	if c.ChunkSize > 0 {
		ctx.ChunkSize = c.ChunkSize
	}
	if c.Quality != "" {
		q, err := config.ParseQuality(c.Quality)
		if err != nil {
			return ctx, err
		}
		ctx.Quality = q
	}
	if c.SchedulingMode != "" {
		m, err := config.ParseSchedulingMode(c.SchedulingMode)
		if err != nil {
			return ctx, err
		}
		ctx.SchedulingMode = m
	}
	if c.FastCalculation {
		ctx.FastCalculation = true
	}
	if c.Rendering {
		ctx.Rendering = true
	}
	return ctx, nil
}
