// Package testutil holds helpers shared by the package tests: log capture,
// temporary node trees, a harness that runs the whole app, and recording
// operations.
package testutil
