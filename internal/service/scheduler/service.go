// Package scheduler runs the engine's recurring jobs: the monthly points
// reset and the monthly engagement digest.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/intinc/interact-engine/internal/config"
	prommetrics "github.com/intinc/interact-engine/internal/metrics"
	"github.com/intinc/interact-engine/internal/models"
	"github.com/intinc/interact-engine/internal/notifier"
	"github.com/intinc/interact-engine/internal/repository"
	"github.com/intinc/interact-engine/pkg/logger"
)

// PointsRepository interface for points operations.
type PointsRepository interface {
	ResetMonthlyPoints() (int64, error)
	TopByMonthPoints(limit int) ([]models.UserPoints, error)
}

// Notifier is the slice of the Teams client the scheduler uses.
type Notifier interface {
	SendMonthlyDigest(ctx context.Context, month string, entries []notifier.DigestEntry) error
}

const digestSize = 5

// Service handles recurring job scheduling.
type Service struct {
	config     *config.SchedulerConfig
	pointsRepo PointsRepository
	notifier   Notifier
	log        *logger.Logger
	cron       *cron.Cron
}

// NewService creates a new scheduler service.
func NewService(
	cfg *config.SchedulerConfig,
	pointsRepo *repository.PointsRepository,
	n *notifier.Client,
	log *logger.Logger,
) *Service {
	return NewServiceWithInterfaces(cfg, pointsRepo, n, log)
}

// NewServiceWithInterfaces creates a new scheduler service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(
	cfg *config.SchedulerConfig,
	pointsRepo PointsRepository,
	n Notifier,
	log *logger.Logger,
) *Service {
	return &Service{
		config:     cfg,
		pointsRepo: pointsRepo,
		notifier:   n,
		log:        log,
	}
}

// Start registers the jobs and starts the cron scheduler.
func (s *Service) Start() error {
	if !s.config.Enabled {
		s.log.Info().Msg("Scheduler is disabled in configuration")
		return nil
	}

	location, err := s.config.GetLocation()
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", s.config.Timezone, err)
	}

	s.cron = cron.New(cron.WithLocation(location))

	// The digest reads month-to-date points, so it must run before the reset
	// zeroes them. Both default to the first of the month; registration order
	// does not order same-minute jobs, so the default digest spec fires later
	// in the morning instead.
	if s.config.DigestEnabled && s.notifier != nil {
		if _, err := s.cron.AddFunc(s.config.DigestSpec, func() {
			s.RunMonthlyDigest(context.Background())
		}); err != nil {
			return fmt.Errorf("failed to register digest job: %w", err)
		}
		s.log.Info().Str("schedule", s.config.DigestSpec).Msg("Monthly digest job registered")
	}

	if _, err := s.cron.AddFunc(s.config.MonthlyResetSpec, func() {
		s.RunMonthlyReset()
	}); err != nil {
		return fmt.Errorf("failed to register monthly reset job: %w", err)
	}

	s.cron.Start()

	entries := s.cron.Entries()
	nextRun := ""
	if len(entries) > 0 {
		nextRun = entries[0].Next.Format(time.RFC3339)
	}
	s.log.Info().
		Str("reset_schedule", s.config.MonthlyResetSpec).
		Str("timezone", s.config.Timezone).
		Str("next_run", nextRun).
		Msg("Scheduler started successfully")

	return nil
}

// Stop halts the scheduler, waiting for running jobs to finish.
func (s *Service) Stop() {
	if s.cron == nil {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopped")
}

// RunMonthlyReset zeroes every user's month-to-date points.
func (s *Service) RunMonthlyReset() {
	count, err := s.pointsRepo.ResetMonthlyPoints()
	if err != nil {
		prommetrics.RecordSchedulerJobRun("monthly_reset", "error")
		s.log.Error().Err(err).Msg("Monthly points reset failed")
		return
	}

	prommetrics.RecordSchedulerJobRun("monthly_reset", "success")
	prommetrics.SetMonthlyPointsResetUsers(count)
	s.log.Info().Int64("users_reset", count).Msg("Monthly points reset complete")
}

// RunMonthlyDigest posts the month's top earners to Teams. Runs before the
// reset wipes the month counters.
func (s *Service) RunMonthlyDigest(ctx context.Context) {
	rows, err := s.pointsRepo.TopByMonthPoints(digestSize)
	if err != nil {
		prommetrics.RecordSchedulerJobRun("monthly_digest", "error")
		s.log.Error().Err(err).Msg("Failed to load digest entries")
		return
	}

	entries := make([]notifier.DigestEntry, 0, len(rows))
	for i := range rows {
		if rows[i].PointsThisMonth <= 0 {
			continue
		}
		entries = append(entries, notifier.DigestEntry{
			UserEmail: rows[i].UserEmail,
			Points:    rows[i].PointsThisMonth,
		})
	}

	month := time.Now().UTC().Format("January 2006")
	if err := s.notifier.SendMonthlyDigest(ctx, month, entries); err != nil {
		prommetrics.RecordSchedulerJobRun("monthly_digest", "error")
		s.log.Error().Err(err).Msg("Failed to send monthly digest")
		return
	}

	prommetrics.RecordSchedulerJobRun("monthly_digest", "success")
	s.log.Info().Int("entries", len(entries)).Msg("Monthly digest sent")
}
