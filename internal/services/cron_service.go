package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// CatalogReloader re-reads the tour dataset
type CatalogReloader interface {
	Reload() error
	Len() int
}

// RateLimitCleaner drops expired rate limit records
type RateLimitCleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// CronSchedules holds the job schedules. Format: second minute hour day month weekday,
// e.g. "0 */15 * * * *". An empty schedule leaves that job unscheduled.
type CronSchedules struct {
	CatalogReload    string
	RateLimitCleanup string
}

// CronService manages scheduled background jobs
type CronService struct {
	cron    *cron.Cron
	catalog CatalogReloader
	limits  RateLimitCleaner
	logger  *logrus.Logger
	started bool
}

// NewCronService creates a new CronService. limits may be nil.
func NewCronService(catalog CatalogReloader, limits RateLimitCleaner, logger *logrus.Logger) *CronService {
	return &CronService{
		cron:    cron.New(cron.WithSeconds()),
		catalog: catalog,
		limits:  limits,
		logger:  logger,
	}
}

// Start schedules the configured jobs and starts the scheduler
func (s *CronService) Start(schedules CronSchedules) error {
	jobs := 0

	if schedules.CatalogReload != "" {
		if _, err := s.cron.AddFunc(schedules.CatalogReload, s.reloadCatalogJob); err != nil {
			return fmt.Errorf("failed to schedule catalog reload: %w", err)
		}
		jobs++
	}

	if schedules.RateLimitCleanup != "" && s.limits != nil {
		if _, err := s.cron.AddFunc(schedules.RateLimitCleanup, s.cleanupRateLimitsJob); err != nil {
			return fmt.Errorf("failed to schedule rate limit cleanup: %w", err)
		}
		jobs++
	}

	if jobs == 0 {
		s.logger.Info("Cron service has no jobs scheduled")
		return nil
	}

	s.cron.Start()
	s.started = true
	s.logger.WithFields(logrus.Fields{
		"catalog_reload":     schedules.CatalogReload,
		"rate_limit_cleanup": schedules.RateLimitCleanup,
	}).Info("Cron service started")
	return nil
}

// Stop stops the scheduler and waits for a running job to finish
func (s *CronService) Stop() {
	if !s.started {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.started = false
	s.logger.Info("Cron service stopped")
}

// ReloadCatalogNow runs the catalog reload job immediately
func (s *CronService) ReloadCatalogNow() {
	s.reloadCatalogJob()
}

func (s *CronService) reloadCatalogJob() {
	startTime := time.Now()

	if err := s.catalog.Reload(); err != nil {
		s.logger.WithError(err).Error("[CRON] Catalog reload failed, keeping previous dataset")
		return
	}

	s.logger.WithFields(logrus.Fields{
		"tours":    s.catalog.Len(),
		"duration": time.Since(startTime).String(),
	}).Info("[CRON] Tour catalog reloaded")
}

func (s *CronService) cleanupRateLimitsJob() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	deleted, err := s.limits.CleanupExpired(ctx)
	if err != nil {
		s.logger.WithError(err).Error("[CRON] Rate limit cleanup failed")
		return
	}

	if deleted > 0 {
		s.logger.WithField("deleted", deleted).Info("[CRON] Expired rate limit records removed")
	}
}
