package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"vehiclerental/internal/domain"
)

// StatusBackend is the canonical payment status source polled by the Reconciler.
type StatusBackend interface {
	FetchPaymentStatus(ctx context.Context, rentalID string) (*PaymentView, error)
	ForceReconcile(ctx context.Context, rentalID string) (*PaymentView, error)
}

var _ StatusBackend = (*PaymentService)(nil)

// ReconcilerConfig bounds confirmation polling.
type ReconcilerConfig struct {
	Attempts    int
	Interval    time.Duration
	CallTimeout time.Duration
}

// DefaultReconcilerConfig polls five times, two seconds apart.
func DefaultReconcilerConfig() ReconcilerConfig {
	return ReconcilerConfig{
		Attempts:    5,
		Interval:    2 * time.Second,
		CallTimeout: 10 * time.Second,
	}
}

// PollResult is the final state of a confirmation task.
type PollResult struct {
	Outcome    domain.PaymentOutcome
	Navigation Navigation
	Attempts   int
	View       *PaymentView
	Err        error
	Cancelled  bool
}

// Task is a confirmation poll owned by one rental.
type Task struct {
	RentalID string

	cancel context.CancelFunc
	done   chan struct{}
	result PollResult
}

func finishedTask(rentalID string, result PollResult) *Task {
	t := &Task{RentalID: rentalID, cancel: func() {}, done: make(chan struct{}), result: result}
	close(t.done)
	return t
}

// Cancel stops the task before its next attempt. An in-flight call completes.
func (t *Task) Cancel() { t.cancel() }

// Done is closed when the task has finished.
func (t *Task) Done() <-chan struct{} { return t.done }

// Wait blocks until the task finishes or ctx ends. Leaving early does not
// cancel the task.
func (t *Task) Wait(ctx context.Context) (PollResult, error) {
	select {
	case <-t.done:
		return t.result, nil
	case <-ctx.Done():
		return PollResult{}, ctx.Err()
	}
}

// Reconciler turns checkout signals into backend reconciliation and bounded
// confirmation polling. At most one task runs per rental.
type Reconciler struct {
	backend StatusBackend
	cfg     ReconcilerConfig
	log     logrus.FieldLogger

	mu    sync.Mutex
	tasks map[string]*Task
	wg    sync.WaitGroup
}

// NewReconciler creates a new Reconciler.
func NewReconciler(backend StatusBackend, cfg ReconcilerConfig, log logrus.FieldLogger) *Reconciler {
	if cfg.Attempts <= 0 {
		cfg.Attempts = DefaultReconcilerConfig().Attempts
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultReconcilerConfig().Interval
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultReconcilerConfig().CallTimeout
	}
	return &Reconciler{
		backend: backend,
		cfg:     cfg,
		log:     log.WithField("component", "reconciler"),
		tasks:   make(map[string]*Task),
	}
}

// OnGatewaySignal reacts to a checkout signal. Success starts a confirmation
// task bound to ctx; pending and error return an already finished task.
func (r *Reconciler) OnGatewaySignal(ctx context.Context, rentalID string, sig Signal) *Task {
	log := r.log.WithFields(logrus.Fields{"rental_id": rentalID, "signal": sig})

	switch sig {
	case SignalSuccess:
		log.Info("checkout reported success, confirming")
		return r.Start(ctx, rentalID)

	case SignalPending:
		return finishedTask(rentalID, PollResult{
			Outcome:    domain.PaymentOutcomePending,
			Navigation: NavigatePending,
		})

	case SignalError:
		// Record the failure if the gateway already knows about it.
		result := PollResult{Outcome: domain.PaymentOutcomePending, Navigation: NavigateError, Attempts: 1}
		callCtx, cancel := context.WithTimeout(ctx, r.cfg.CallTimeout)
		defer cancel()
		if view, err := r.backend.ForceReconcile(callCtx, rentalID); err != nil {
			log.WithError(err).Warn("reconcile after checkout error failed")
			result.Err = err
		} else {
			result.View = view
			result.Outcome = view.Outcome()
		}
		return finishedTask(rentalID, result)
	}

	return finishedTask(rentalID, PollResult{Outcome: domain.PaymentOutcomePending})
}

// Start launches a confirmation task for the rental, replacing any task
// already running for it. The task stops when ctx ends.
func (r *Reconciler) Start(ctx context.Context, rentalID string) *Task {
	taskCtx, cancel := context.WithCancel(ctx)
	task := &Task{
		RentalID: rentalID,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	r.mu.Lock()
	if prev, ok := r.tasks[rentalID]; ok {
		prev.Cancel()
	}
	r.tasks[rentalID] = task
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer cancel()

		task.result = r.run(taskCtx, rentalID)
		close(task.done)

		r.mu.Lock()
		if r.tasks[rentalID] == task {
			delete(r.tasks, rentalID)
		}
		r.mu.Unlock()
	}()

	return task
}

// Cancel stops the running task of a rental. It reports whether one existed.
func (r *Reconciler) Cancel(rentalID string) bool {
	r.mu.Lock()
	task, ok := r.tasks[rentalID]
	r.mu.Unlock()
	if ok {
		task.Cancel()
	}
	return ok
}

// Running returns the task currently polling for a rental, if any.
func (r *Reconciler) Running(rentalID string) (*Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[rentalID]
	return task, ok
}

// Shutdown cancels every task and waits for them to exit or ctx to end.
func (r *Reconciler) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	for _, task := range r.tasks {
		task.Cancel()
	}
	r.mu.Unlock()

	stopped := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(stopped)
	}()

	select {
	case <-stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run reconciles once, then polls up to cfg.Attempts times. Calls run on a
// context detached from cancellation so a cancel only skips later attempts.
func (r *Reconciler) run(ctx context.Context, rentalID string) PollResult {
	log := r.log.WithField("rental_id", rentalID)
	result := PollResult{Outcome: domain.PaymentOutcomePending}

	view, err := r.call(ctx, rentalID, r.backend.ForceReconcile)
	if done := r.settle(&result, view, err, log); done {
		return result
	}

	timer := time.NewTimer(r.cfg.Interval)
	defer timer.Stop()

	for attempt := 1; attempt <= r.cfg.Attempts; attempt++ {
		select {
		case <-ctx.Done():
			return cancelled(result, attempt, log)
		case <-timer.C:
		}
		result.Attempts = attempt

		view, err = r.call(ctx, rentalID, r.backend.FetchPaymentStatus)
		if done := r.settle(&result, view, err, log); done {
			return result
		}

		// A cancel that landed during the fetch stops before the next call.
		if ctx.Err() != nil {
			return cancelled(result, attempt, log)
		}

		view, err = r.call(ctx, rentalID, r.backend.ForceReconcile)
		if done := r.settle(&result, view, err, log); done {
			return result
		}

		timer.Reset(r.cfg.Interval)
	}

	// The checkout already said success; navigation trusts it while the
	// rental keeps its real status.
	log.WithField("attempts", r.cfg.Attempts).Warn("payment still pending after confirmation polling")
	result.Navigation = NavigateSuccess
	return result
}

func cancelled(result PollResult, attempt int, log logrus.FieldLogger) PollResult {
	log.WithField("attempt", attempt).Info("confirmation polling cancelled")
	result.Cancelled = true
	result.Navigation = NavigateNone
	return result
}

func (r *Reconciler) call(ctx context.Context, rentalID string, fn func(context.Context, string) (*PaymentView, error)) (*PaymentView, error) {
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.CallTimeout)
	defer cancel()
	return fn(callCtx, rentalID)
}

// settle folds one backend answer into result and reports whether polling
// should stop.
func (r *Reconciler) settle(result *PollResult, view *PaymentView, err error, log logrus.FieldLogger) bool {
	if err != nil {
		if errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrNotFound) {
			log.WithError(err).Error("confirmation polling aborted")
			result.Err = err
			result.Navigation = NavigateError
			return true
		}
		log.WithError(err).WithField("attempt", result.Attempts).Warn("confirmation attempt failed, will retry")
		result.Err = err
		return false
	}

	result.Err = nil
	result.View = view
	result.Outcome = view.Outcome()

	switch result.Outcome {
	case domain.PaymentOutcomePaid:
		result.Navigation = NavigateSuccess
		return true
	case domain.PaymentOutcomeFailed:
		result.Navigation = NavigateError
		return true
	}

	if view.RentalStatus != domain.RentalStatusPending {
		// The rental moved on without us, e.g. cancelled by the renter.
		result.Navigation = NavigateSuccess
		if view.RentalStatus == domain.RentalStatusCancelled {
			result.Navigation = NavigateError
		}
		return true
	}
	return false
}
