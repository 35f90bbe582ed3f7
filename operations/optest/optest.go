// Package optest provides utilities for operations testing.
package optest

import (
	"testing"

	"github.com/leftasexercise/ethdeploy/operations"
	"github.com/leftasexercise/ethdeploy/pkg/logger"
)

// NewBundle creates a new operations bundle for testing with a test logger and a memory reporter.
// The reporter is returned so that tests can inspect the recorded reports.
func NewBundle(t *testing.T) (operations.Bundle, *operations.MemoryReporter) {
	t.Helper()

	reporter := operations.NewMemoryReporter()

	return operations.NewBundle(t.Context, logger.Test(t), reporter), reporter
}
