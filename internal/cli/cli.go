package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/gridcomp/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("gridcomp", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
gridcomp - A tile-based compositor that evaluates node trees concurrently.

Usage:
  gridcomp [options] [TREE_PATH]

Arguments:
  TREE_PATH
    Path to a single .hcl file or a directory containing .hcl files.

Options:
`)
		flagSet.PrintDefaults()
	}

	treeFlag := flagSet.String("tree", "", "Path to the node tree file or directory.")
	tFlag := flagSet.String("t", "", "Path to the node tree file or directory (shorthand).")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check and metrics server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "json", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	workersFlag := flagSet.Int("workers", 0, "Number of CPU workers. 0 uses one per CPU.")
	chunkSizeFlag := flagSet.Int("chunk-size", 0, "Tile edge length in pixels. 0 keeps the tree's or the default value.")
	fastFlag := flagSet.Bool("fast", false, "Fast calculation: only evaluate high priority outputs.")
	renderingFlag := flagSet.Bool("rendering", false, "Evaluate as a final render, honouring the render border.")
	modeFlag := flagSet.String("scheduling-mode", "", "Scheduling mode. Options: 'input-to-output' or 'output-to-input'.")
	qualityFlag := flagSet.String("quality", "", "Evaluation quality. Options: 'high', 'medium', 'low'.")
	progressFlag := flagSet.String("progress-url", "", "socket.io endpoint that receives tile progress events.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := ""
	if *treeFlag != "" {
		path = *treeFlag
	} else if *tFlag != "" {
		path = *tFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	slog.Debug("Tree path determined.", "path", path)

	if path == "" {
		slog.Debug("No tree path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		TreePath:        path,
		HealthcheckPort: *healthPortFlag,
		LogFormat:       logFormat,
		LogLevel:        logLevel,
		WorkerCount:     *workersFlag,
		ProgressURL:     *progressFlag,
		ChunkSize:       *chunkSizeFlag,
		Quality:         strings.ToLower(*qualityFlag),
		SchedulingMode:  strings.ToLower(*modeFlag),
		FastCalculation: *fastFlag,
		Rendering:       *renderingFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
