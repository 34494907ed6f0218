// Package scheduler runs the kingdom's daily jobs: interest on debt, the
// prison sweep, and the royal tax.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"royal-market-bot/internal/model"
	"royal-market-bot/internal/service"
)

// Ledger is the part of the ledger the daily jobs drive.
type Ledger interface {
	AccrueInterest(ctx context.Context) (int, error)
	SweepPrison(ctx context.Context, now time.Time) ([]*model.Account, error)
	CollectTax(ctx context.Context, amount int64, collectors []int64) (*service.TaxReport, error)
}

// Announcer publishes the outcome of a cycle.
type Announcer interface {
	TaxCollected(ctx context.Context, report *service.TaxReport)
}

// Config holds scheduling parameters.
type Config struct {
	Interval      time.Duration
	RunOnStart    bool
	TaxAmount     int64
	TaxCollectors []int64
}

// Report summarizes one cycle.
type Report struct {
	Accrued int
	Jailed  []*model.Account
	Tax     *service.TaxReport
}

// Scheduler runs the daily jobs on a fixed interval.
type Scheduler struct {
	ledger    Ledger
	announcer Announcer
	cfg       Config
	now       func() time.Time
}

// New creates a new Scheduler instance.
func New(ledger Ledger, cfg Config) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = 24 * time.Hour
	}
	return &Scheduler{ledger: ledger, cfg: cfg, now: time.Now}
}

// SetAnnouncer installs the receiver of tax reports.
func (s *Scheduler) SetAnnouncer(a Announcer) {
	s.announcer = a
}

// Run blocks, running a cycle every interval until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	log.Info().Dur("interval", s.cfg.Interval).Msg("Scheduler started")

	if s.cfg.RunOnStart {
		s.cycle(ctx)
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Scheduler stopped")
			return nil
		case <-ticker.C:
			s.cycle(ctx)
		}
	}
}

func (s *Scheduler) cycle(ctx context.Context) {
	report, err := s.RunOnce(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Daily jobs finished with errors")
	}
	log.Info().
		Int("accrued", report.Accrued).
		Int("jailed", len(report.Jailed)).
		Msg("Daily jobs finished")
}

// RunOnce runs one cycle: interest on every debt, then the prison sweep,
// then the royal tax. A failing job does not stop the ones after it.
func (s *Scheduler) RunOnce(ctx context.Context) (*Report, error) {
	report := &Report{}
	var errs []error

	accrued, err := s.ledger.AccrueInterest(ctx)
	report.Accrued = accrued
	if err != nil {
		errs = append(errs, err)
	}

	jailed, err := s.ledger.SweepPrison(ctx, s.now())
	report.Jailed = jailed
	if err != nil {
		errs = append(errs, err)
	}

	if s.cfg.TaxAmount > 0 && len(s.cfg.TaxCollectors) > 0 {
		tax, err := s.ledger.CollectTax(ctx, s.cfg.TaxAmount, s.cfg.TaxCollectors)
		report.Tax = tax
		if err != nil {
			errs = append(errs, err)
		}
		if tax != nil && s.announcer != nil {
			s.announcer.TaxCollected(ctx, tax)
		}
	}

	return report, errors.Join(errs...)
}
