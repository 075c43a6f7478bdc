package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		args     []string
		wantExit bool
		wantCode int
		check    func(t *testing.T, out string)
	}{
		{name: "help", args: []string{"-h"}, wantExit: true, check: func(t *testing.T, out string) {
			assert.Contains(t, out, "Usage:")
		}},
		{name: "no path", args: nil, wantExit: true},
		{name: "unknown flag", args: []string{"-nope"}, wantCode: 2},
		{name: "bad log format", args: []string{"-log-format", "xml", "tree.hcl"}, wantCode: 2},
		{name: "bad log level", args: []string{"-log-level", "loud", "tree.hcl"}, wantCode: 2},
		{name: "bad mode", args: []string{"-scheduling-mode", "random", "tree.hcl"}, wantCode: 2},
		{name: "negative chunk", args: []string{"-chunk-size", "-1", "tree.hcl"}, wantCode: 2},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var out bytes.Buffer
			cfg, exit, err := Parse(tc.args, &out)

			if tc.wantCode != 0 {
				var exitErr *ExitError
				require.ErrorAs(t, err, &exitErr)
				assert.Equal(t, tc.wantCode, exitErr.Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantExit, exit)
			assert.Nil(t, cfg)
			if tc.check != nil {
				tc.check(t, out.String())
			}
		})
	}
}

func TestParseFullConfig(t *testing.T) {
	t.Parallel()

	cfg, exit, err := Parse([]string{
		"-t", "trees/main.hcl",
		"-log-format", "TEXT",
		"-log-level", "debug",
		"-workers", "3",
		"-chunk-size", "64",
		"-fast",
		"-rendering",
		"-scheduling-mode", "output-to-input",
		"-quality", "Low",
		"-healthcheck-port", "9090",
		"-progress-url", "http://localhost:3000",
	}, &bytes.Buffer{})
	require.NoError(t, err)
	require.False(t, exit)

	assert.Equal(t, "trees/main.hcl", cfg.TreePath)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 3, cfg.WorkerCount)
	assert.Equal(t, 64, cfg.ChunkSize)
	assert.True(t, cfg.FastCalculation)
	assert.True(t, cfg.Rendering)
	assert.Equal(t, "output-to-input", cfg.SchedulingMode)
	assert.Equal(t, "low", cfg.Quality)
	assert.Equal(t, 9090, cfg.HealthcheckPort)
	assert.Equal(t, "http://localhost:3000", cfg.ProgressURL)
}

func TestParsePositionalPath(t *testing.T) {
	t.Parallel()

	cfg, _, err := Parse([]string{"-tree", "a.hcl", "b.hcl"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "a.hcl", cfg.TreePath, "-tree wins over the positional argument")

	cfg, _, err = Parse([]string{"b.hcl"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "b.hcl", cfg.TreePath)
}
