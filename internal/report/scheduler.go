package report

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Scheduler runs the daily report on a cron schedule.
type Scheduler struct {
	assembler *Assembler
	cron      *cron.Cron
	schedule  string
	logger    *logrus.Logger
}

// NewScheduler creates a scheduler for the assembler with a standard
// five-field cron expression.
func NewScheduler(assembler *Assembler, schedule string, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		assembler: assembler,
		cron:      cron.New(),
		schedule:  schedule,
		logger:    logger,
	}
}

// Start registers the job and begins the cron loop.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.schedule, s.run)
	if err != nil {
		return err
	}
	s.cron.Start()
	s.logger.WithField("schedule", s.schedule).Info("Report scheduler started")
	return nil
}

// Stop halts the cron loop, waiting for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Report scheduler stopped")
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if _, err := s.assembler.Generate(ctx); err != nil {
		s.logger.WithError(err).Error("Daily report generation failed")
	}
}
