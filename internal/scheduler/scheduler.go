// Package scheduler wires cron triggers to the rollup engine. Each tier
// rolls up its previous completed period on its own schedule; the engine's
// guard makes redelivered or overlapping triggers safe.
package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/SIMPLICITY-FINANCE/SIMPLICITY-FINANCE-sub003/internal/config"
	"github.com/SIMPLICITY-FINANCE/SIMPLICITY-FINANCE-sub003/internal/database"
	"github.com/SIMPLICITY-FINANCE/SIMPLICITY-FINANCE-sub003/internal/period"
	"github.com/SIMPLICITY-FINANCE/SIMPLICITY-FINANCE-sub003/internal/rollup"
)

// Service runs the cron-triggered rollup schedule.
type Service struct {
	engine   *rollup.Engine
	schedule config.Schedule
	cron     *cron.Cron
}

// NewService creates a scheduler for the engine with the configured cron
// expressions.
func NewService(engine *rollup.Engine, schedule config.Schedule) *Service {
	return &Service{
		engine:   engine,
		schedule: schedule,
		cron:     cron.New(cron.WithLocation(time.UTC)),
	}
}

// Start registers all tier triggers and starts the cron loop.
func (s *Service) Start() error {
	triggers := []struct {
		expr   string
		tier   period.Tier
		target func(time.Time) period.Period
	}{
		{s.schedule.Daily, period.Daily, period.PreviousDay},
		{s.schedule.Weekly, period.Weekly, period.PreviousWeek},
		{s.schedule.Monthly, period.Monthly, period.PreviousMonth},
		{s.schedule.Quarterly, period.Quarterly, period.PreviousQuarter},
	}

	for _, t := range triggers {
		t := t
		if t.expr == "" {
			continue
		}
		if _, err := s.cron.AddFunc(t.expr, func() {
			s.runTier(t.tier, t.target(time.Now()))
		}); err != nil {
			return err
		}
	}

	s.cron.Start()
	log.Println("scheduler started")
	return nil
}

// Stop stops the cron loop and waits for in-flight runs.
func (s *Service) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
		log.Println("scheduler stopped")
	}
}

func (s *Service) runTier(tier period.Tier, p period.Period) {
	log.Printf("scheduled %s rollup for %s", tier, p.DateKey)
	outcome, err := s.engine.Run(context.Background(), p, database.GenerationAuto, "system")
	if err != nil {
		log.Printf("scheduled %s rollup for %s failed: %v", tier, p.DateKey, err)
		return
	}
	if outcome.Status != rollup.OutcomeGenerated {
		log.Printf("scheduled %s rollup for %s: %s", tier, p.DateKey, outcome.Message)
	}
}
