package integrationtests

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/gridcomp/internal/app"
	"github.com/vk/gridcomp/internal/hcl_adapter"
	"github.com/vk/gridcomp/internal/testutil"
)

// harnessResult holds the outcome of one app run.
type harnessResult struct {
	LogOutput string
	Err       error
	App       *app.App
}

// runApp writes files into a temporary tree directory and runs the app on it.
// Startup panics are returned as errors.
func runApp(t *testing.T, files map[string]string, cfg app.Config) *harnessResult {
	t.Helper()

	cfg.TreePath = testutil.WriteFiles(t, files)
	cfg.LogLevel = "debug"
	cfg.LogFormat = "text"
	if cfg.WorkerCount == 0 {
		cfg.WorkerCount = 4
	}
	validated, err := app.NewConfig(cfg)
	require.NoError(t, err)

	logs := &testutil.SafeBuffer{}
	var a *app.App
	var panicErr any
	func() {
		defer func() { panicErr = recover() }()
		a = app.NewApp(logs, validated, hcl_adapter.NewLoader())
	}()
	if panicErr != nil {
		return &harnessResult{LogOutput: logs.String(), Err: fmt.Errorf("application startup panicked | %v", panicErr)}
	}

	runErr := a.Run(context.Background())
	t.Cleanup(func() {
		if testing.Verbose() {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String())
		}
	})
	return &harnessResult{LogOutput: logs.String(), Err: runErr, App: a}
}
