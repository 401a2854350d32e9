package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"vehiclerental/internal/domain"
)

// fakeBackend answers every call with the next scripted step, repeating the
// last one once the script runs out.
type fakeBackend struct {
	mu     sync.Mutex
	steps  []backendStep
	calls  []string
	block  chan struct{}
	called chan struct{}
}

type backendStep struct {
	status domain.PaymentStatus
	rental domain.RentalStatus
	err    error
}

func newFakeBackend(steps ...backendStep) *fakeBackend {
	return &fakeBackend{steps: steps, called: make(chan struct{}, 64)}
}

func (b *fakeBackend) FetchPaymentStatus(ctx context.Context, rentalID string) (*PaymentView, error) {
	return b.next("fetch")
}

func (b *fakeBackend) ForceReconcile(ctx context.Context, rentalID string) (*PaymentView, error) {
	return b.next("force")
}

func (b *fakeBackend) next(kind string) (*PaymentView, error) {
	b.mu.Lock()
	b.calls = append(b.calls, kind)
	step := b.steps[0]
	if len(b.steps) > 1 {
		b.steps = b.steps[1:]
	}
	block := b.block
	b.mu.Unlock()

	b.called <- struct{}{}
	if block != nil {
		<-block
	}

	if step.err != nil {
		return nil, step.err
	}
	rental := step.rental
	if rental == "" {
		rental = domain.RentalStatusPending
	}
	return &PaymentView{
		Payment:      &domain.Payment{RentalID: "r-1", Status: step.status},
		RentalStatus: rental,
	}, nil
}

func (b *fakeBackend) callLog() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

func pending() backendStep { return backendStep{status: domain.PaymentStatusPending} }

func newTestReconciler(b StatusBackend, attempts int) *Reconciler {
	return NewReconciler(b, ReconcilerConfig{
		Attempts:    attempts,
		Interval:    time.Millisecond,
		CallTimeout: time.Second,
	}, nullLogger())
}

func waitTask(t *testing.T, task *Task) PollResult {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := task.Wait(ctx)
	if err != nil {
		t.Fatalf("task did not finish: %v", err)
	}
	return res
}

func TestReconciler_ImmediateSuccess(t *testing.T) {
	t.Parallel()

	b := newFakeBackend(backendStep{status: domain.PaymentStatusSettlement, rental: domain.RentalStatusConfirmed})
	r := newTestReconciler(b, 5)

	res := waitTask(t, r.OnGatewaySignal(context.Background(), "r-1", SignalSuccess))
	if res.Outcome != domain.PaymentOutcomePaid || res.Navigation != NavigateSuccess {
		t.Errorf("result = %+v", res)
	}
	if res.Attempts != 0 {
		t.Errorf("attempts = %d, want 0", res.Attempts)
	}
	if calls := b.callLog(); len(calls) != 1 || calls[0] != "force" {
		t.Errorf("calls = %v, want [force]", calls)
	}
}

func TestReconciler_SuccessAfterPolling(t *testing.T) {
	t.Parallel()

	// force; fetch, force; fetch fails, force; fetch settles.
	b := newFakeBackend(
		pending(),
		pending(), pending(),
		backendStep{err: ErrNetwork}, pending(),
		backendStep{status: domain.PaymentStatusSettlement, rental: domain.RentalStatusConfirmed},
	)
	r := newTestReconciler(b, 5)

	res := waitTask(t, r.Start(context.Background(), "r-1"))
	if res.Outcome != domain.PaymentOutcomePaid || res.Navigation != NavigateSuccess {
		t.Errorf("result = %+v", res)
	}
	if res.Attempts != 3 {
		t.Errorf("attempts = %d, want 3", res.Attempts)
	}
	if res.Err != nil {
		t.Errorf("err = %v, want nil after recovery", res.Err)
	}

	want := []string{"force", "fetch", "force", "fetch", "force", "fetch"}
	if got := b.callLog(); !equalStrings(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
}

func TestReconciler_ExhaustedNavigatesOptimistically(t *testing.T) {
	t.Parallel()

	b := newFakeBackend(pending())
	r := newTestReconciler(b, 3)

	res := waitTask(t, r.Start(context.Background(), "r-1"))
	if res.Navigation != NavigateSuccess {
		t.Errorf("navigation = %s, want success", res.Navigation)
	}
	if res.Outcome != domain.PaymentOutcomePending {
		t.Errorf("outcome = %s, want pending", res.Outcome)
	}
	if res.Attempts != 3 {
		t.Errorf("attempts = %d, want 3", res.Attempts)
	}
	// One initial reconcile, then a fetch and a reconcile per attempt.
	if got := len(b.callLog()); got != 7 {
		t.Errorf("calls = %d, want 7", got)
	}
}

func TestReconciler_FailedOutcome(t *testing.T) {
	t.Parallel()

	b := newFakeBackend(pending(), backendStep{status: domain.PaymentStatusExpire, rental: domain.RentalStatusCancelled})
	r := newTestReconciler(b, 5)

	res := waitTask(t, r.Start(context.Background(), "r-1"))
	if res.Outcome != domain.PaymentOutcomeFailed || res.Navigation != NavigateError {
		t.Errorf("result = %+v", res)
	}
}

func TestReconciler_AbortsOnFatalErrors(t *testing.T) {
	t.Parallel()

	for _, fatal := range []error{ErrUnauthorized, ErrNotFound} {
		b := newFakeBackend(pending(), backendStep{err: fatal})
		r := newTestReconciler(b, 5)

		res := waitTask(t, r.Start(context.Background(), "r-1"))
		if !errors.Is(res.Err, fatal) || res.Navigation != NavigateError {
			t.Errorf("%v: result = %+v", fatal, res)
		}
		if got := len(b.callLog()); got != 2 {
			t.Errorf("%v: calls = %d, want 2", fatal, got)
		}
	}
}

func TestReconciler_RentalMovedOn(t *testing.T) {
	t.Parallel()

	b := newFakeBackend(backendStep{status: domain.PaymentStatusPending, rental: domain.RentalStatusCancelled})
	r := newTestReconciler(b, 5)

	res := waitTask(t, r.Start(context.Background(), "r-1"))
	if res.Navigation != NavigateError {
		t.Errorf("navigation = %s, want error", res.Navigation)
	}
}

func TestReconciler_CancelLetsInFlightCallFinish(t *testing.T) {
	t.Parallel()

	b := newFakeBackend(pending())
	b.block = make(chan struct{})
	r := NewReconciler(b, ReconcilerConfig{Attempts: 5, Interval: time.Hour, CallTimeout: time.Second}, nullLogger())

	task := r.Start(context.Background(), "r-1")
	<-b.called

	if _, ok := r.Running("r-1"); !ok {
		t.Fatal("expected a running task")
	}
	if !r.Cancel("r-1") {
		t.Fatal("Cancel reported no task")
	}
	close(b.block)

	res := waitTask(t, task)
	if !res.Cancelled || res.Navigation != NavigateNone {
		t.Errorf("result = %+v", res)
	}
	if got := len(b.callLog()); got != 1 {
		t.Errorf("calls = %d, want only the in-flight call", got)
	}
	if _, ok := r.Running("r-1"); ok {
		t.Error("finished task still registered")
	}
	if r.Cancel("r-1") {
		t.Error("Cancel after finish reported a task")
	}
}

func TestReconciler_CancelDuringFetchSkipsReconcile(t *testing.T) {
	t.Parallel()

	b := newFakeBackend(pending())
	b.block = make(chan struct{})
	r := newTestReconciler(b, 5)

	task := r.Start(context.Background(), "r-1")
	<-b.called
	b.block <- struct{}{} // initial force

	<-b.called // first poll fetch is in flight
	r.Cancel("r-1")
	close(b.block)

	res := waitTask(t, task)
	if !res.Cancelled {
		t.Errorf("result = %+v, want cancelled", res)
	}
	if calls := b.callLog(); !equalStrings(calls, []string{"force", "fetch"}) {
		t.Errorf("calls = %v, want [force fetch]", calls)
	}
}

func TestReconciler_ContextEndStopsPolling(t *testing.T) {
	t.Parallel()

	b := newFakeBackend(pending())
	r := NewReconciler(b, ReconcilerConfig{Attempts: 5, Interval: time.Hour, CallTimeout: time.Second}, nullLogger())

	ctx, cancel := context.WithCancel(context.Background())
	task := r.OnGatewaySignal(ctx, "r-1", SignalSuccess)
	<-b.called
	cancel()

	res := waitTask(t, task)
	if !res.Cancelled {
		t.Errorf("result = %+v, want cancelled", res)
	}
}

func TestReconciler_NewSignalReplacesTask(t *testing.T) {
	t.Parallel()

	b := newFakeBackend(pending())
	r := NewReconciler(b, ReconcilerConfig{Attempts: 5, Interval: time.Hour, CallTimeout: time.Second}, nullLogger())

	first := r.Start(context.Background(), "r-1")
	<-b.called
	second := r.Start(context.Background(), "r-1")
	<-b.called

	if res := waitTask(t, first); !res.Cancelled {
		t.Errorf("first task result = %+v, want cancelled", res)
	}
	if running, ok := r.Running("r-1"); !ok || running != second {
		t.Error("second task is not the running one")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if res := waitTask(t, second); !res.Cancelled {
		t.Errorf("second task result = %+v, want cancelled", res)
	}
}

func TestReconciler_PendingAndErrorSignals(t *testing.T) {
	t.Parallel()

	b := newFakeBackend(backendStep{status: domain.PaymentStatusFailure, rental: domain.RentalStatusCancelled})
	r := newTestReconciler(b, 5)
	ctx := context.Background()

	res := waitTask(t, r.OnGatewaySignal(ctx, "r-1", SignalPending))
	if res.Navigation != NavigatePending || res.Outcome != domain.PaymentOutcomePending {
		t.Errorf("pending signal: %+v", res)
	}
	if got := len(b.callLog()); got != 0 {
		t.Errorf("pending signal made %d backend calls", got)
	}

	res = waitTask(t, r.OnGatewaySignal(ctx, "r-1", SignalError))
	if res.Navigation != NavigateError || res.Outcome != domain.PaymentOutcomeFailed {
		t.Errorf("error signal: %+v", res)
	}
	if got := b.callLog(); len(got) != 1 || got[0] != "force" {
		t.Errorf("error signal calls = %v, want [force]", got)
	}
}

func TestReconciler_WithPaymentService(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	res := f.book(t, testUnit, day(10), day(13))
	f.gateway.FailNext(res.Payment.OrderID, ErrNetwork)
	f.gateway.SetStatus(res.Payment.OrderID, "settlement")

	r := newTestReconciler(f.payments, 5)
	result := waitTask(t, r.OnGatewaySignal(context.Background(), res.Rental.ID, SignalSuccess))

	if result.Outcome != domain.PaymentOutcomePaid || result.Navigation != NavigateSuccess {
		t.Errorf("result = %+v", result)
	}
	if got := f.rental(t, res.Rental.ID); got.Status != domain.RentalStatusConfirmed {
		t.Errorf("rental = %s, want confirmed", got.Status)
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
