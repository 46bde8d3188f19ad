package services

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

type countingReloader struct {
	calls int32
	err   error
}

func (r *countingReloader) Reload() error {
	atomic.AddInt32(&r.calls, 1)
	return r.err
}

func (r *countingReloader) Len() int { return 2 }

type countingCleaner struct {
	calls int32
	err   error
}

func (c *countingCleaner) CleanupExpired(_ context.Context) (int64, error) {
	atomic.AddInt32(&c.calls, 1)
	return 4, c.err
}

func TestCronService(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	t.Run("Rejects invalid schedule", func(t *testing.T) {
		svc := NewCronService(&countingReloader{}, nil, logger)
		assert.Error(t, svc.Start(CronSchedules{CatalogReload: "every tuesday"}))
	})

	t.Run("Rejects invalid cleanup schedule", func(t *testing.T) {
		svc := NewCronService(&countingReloader{}, &countingCleaner{}, logger)
		assert.Error(t, svc.Start(CronSchedules{RateLimitCleanup: "soon"}))
	})

	t.Run("Manual reload", func(t *testing.T) {
		reloader := &countingReloader{}
		svc := NewCronService(reloader, nil, logger)

		svc.ReloadCatalogNow()
		reloader.err = errors.New("bad file")
		svc.ReloadCatalogNow()

		assert.Equal(t, int32(2), atomic.LoadInt32(&reloader.calls))
	})

	t.Run("Cleanup job", func(t *testing.T) {
		cleaner := &countingCleaner{}
		svc := NewCronService(&countingReloader{}, cleaner, logger)

		svc.cleanupRateLimitsJob()
		cleaner.err = errors.New("connection reset")
		svc.cleanupRateLimitsJob()

		assert.Equal(t, int32(2), atomic.LoadInt32(&cleaner.calls))
	})

	t.Run("Start and stop", func(t *testing.T) {
		svc := NewCronService(&countingReloader{}, &countingCleaner{}, logger)
		assert.NoError(t, svc.Start(CronSchedules{
			CatalogReload:    "0 0 3 * * *",
			RateLimitCleanup: "0 */30 * * * *",
		}))
		svc.Stop()
	})

	t.Run("Nothing scheduled", func(t *testing.T) {
		svc := NewCronService(&countingReloader{}, nil, logger)
		assert.NoError(t, svc.Start(CronSchedules{RateLimitCleanup: "0 */30 * * * *"}))
		svc.Stop()
	})
}
