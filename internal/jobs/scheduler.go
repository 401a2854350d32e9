// Package jobs runs background maintenance on a cron schedule.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// StalePaymentReconciler force-reconciles payments left pending.
type StalePaymentReconciler interface {
	ReconcileStale(ctx context.Context, minAge time.Duration, limit int) (int, error)
}

// SweepConfig controls the stale payment sweep.
type SweepConfig struct {
	Spec    string // six-field cron spec, seconds first
	MinAge  time.Duration
	Limit   int
	Timeout time.Duration
}

// Scheduler manages cron job scheduling.
type Scheduler struct {
	cron     *cron.Cron
	payments StalePaymentReconciler
	sweep    SweepConfig
	nrApp    *newrelic.Application
	log      logrus.FieldLogger
}

// NewScheduler creates a scheduler and registers its jobs. nrApp may be nil.
func NewScheduler(payments StalePaymentReconciler, sweep SweepConfig, nrApp *newrelic.Application, log logrus.FieldLogger) (*Scheduler, error) {
	log = log.WithField("component", "scheduler")
	cronLog := cron.PrintfLogger(log)

	// Create cron with UTC timezone and seconds precision.
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)

	if sweep.Timeout <= 0 {
		sweep.Timeout = 2 * time.Minute
	}

	s := &Scheduler{
		cron:     c,
		payments: payments,
		sweep:    sweep,
		nrApp:    nrApp,
		log:      log,
	}

	if err := s.registerJobs(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) registerJobs() error {
	if _, err := s.cron.AddFunc(s.sweep.Spec, s.SweepStalePayments); err != nil {
		return fmt.Errorf("register stale payment sweep %q: %w", s.sweep.Spec, err)
	}
	s.log.WithField("spec", s.sweep.Spec).Info("cron jobs registered")
	return nil
}

// SweepStalePayments reconciles payments that stayed pending longer than
// the configured age, so lost notifications still converge.
func (s *Scheduler) SweepStalePayments() {
	ctx, cancel := context.WithTimeout(context.Background(), s.sweep.Timeout)
	defer cancel()

	if s.nrApp != nil {
		txn := s.nrApp.StartTransaction("job/sweep-stale-payments")
		defer txn.End()
		ctx = newrelic.NewContext(ctx, txn)
	}

	start := time.Now()
	resolved, err := s.payments.ReconcileStale(ctx, s.sweep.MinAge, s.sweep.Limit)
	log := s.log.WithFields(logrus.Fields{
		"resolved":    resolved,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	if err != nil {
		if txn := newrelic.FromContext(ctx); txn != nil {
			txn.NoticeError(err)
		}
		log.WithError(err).Error("stale payment sweep failed")
		return
	}
	log.Info("stale payment sweep finished")
}

// Start begins the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("cron scheduler started")
}

// Stop stops the scheduler and waits for running jobs or ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.log.Info("cron scheduler stopped")
	case <-ctx.Done():
		s.log.Warn("cron scheduler stop timed out")
	}
}

// IsRunning returns true if the scheduler has registered jobs.
func (s *Scheduler) IsRunning() bool {
	return len(s.cron.Entries()) > 0
}
