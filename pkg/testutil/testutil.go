// Package testutil provides shared helpers for datamatrix tests.
package testutil

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/robbertmijn/datamatrix/pkg/config"
	"github.com/robbertmijn/datamatrix/pkg/paging"
)

// Logger creates a test logger that writes to the test output.
// It is cleaned up when the test completes.
func Logger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t)
}

// StaticProber reports the same memory readings on every probe.
func StaticProber(available, total uint64) paging.Prober {
	return func() (paging.MemStats, error) {
		return paging.MemStats{Available: available, Total: total}, nil
	}
}

// PlentyPager builds a pager that never sees memory pressure.
func PlentyPager() *paging.Pager {
	return paging.New(config.New().Paging,
		paging.WithProber(StaticProber(1<<40, 1<<41)),
		paging.WithLogger(zap.NewNop()))
}

// TightPager builds a pager that never finds memory sufficient.
func TightPager() *paging.Pager {
	return paging.New(config.New().Paging,
		paging.WithProber(StaticProber(0, 1<<41)),
		paging.WithLogger(zap.NewNop()))
}

// Config returns defaults with page files redirected to the test's
// temp directory.
func Config(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.New()
	cfg.Paging.TempDir = t.TempDir()
	return cfg
}
