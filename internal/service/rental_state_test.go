package service

import (
	"errors"
	"testing"
	"time"

	"vehiclerental/internal/domain"
)

func TestTransitionRental_Guards(t *testing.T) {
	t.Parallel()

	states := []rentalState{
		{domain.RentalStatusPending, domain.ApprovalStatusNone},
		{domain.RentalStatusConfirmed, domain.ApprovalStatusPending},
		{domain.RentalStatusActive, domain.ApprovalStatusApproved},
		{domain.RentalStatusCompleted, domain.ApprovalStatusApproved},
		{domain.RentalStatusCancelled, domain.ApprovalStatusNone},
		{domain.RentalStatusCancelled, domain.ApprovalStatusRejected},
		{domain.RentalStatusCancelled, domain.ApprovalStatusPending},
	}
	actions := []RentalAction{ActionConfirm, ActionApprove, ActionReject, ActionComplete, ActionCancel, ActionExpire}

	allowed := map[rentalState][]RentalAction{
		{domain.RentalStatusPending, domain.ApprovalStatusNone}:      {ActionConfirm, ActionCancel, ActionExpire},
		{domain.RentalStatusConfirmed, domain.ApprovalStatusPending}: {ActionApprove, ActionReject, ActionCancel},
		{domain.RentalStatusActive, domain.ApprovalStatusApproved}:   {ActionComplete},
	}

	for _, st := range states {
		for _, action := range actions {
			want := false
			for _, a := range allowed[st] {
				if a == action {
					want = true
				}
			}

			r := &domain.Rental{ID: "r-1", Status: st.status, AdminApprovalStatus: st.approval}
			before := *r

			if got := CanTransition(r, action); got != want {
				t.Errorf("CanTransition(%s/%s, %s) = %v, want %v", st.status, st.approval, action, got, want)
			}

			err := TransitionRental(r, action, "reason", time.Now())
			if want {
				if err != nil {
					t.Errorf("%s/%s %s: unexpected error %v", st.status, st.approval, action, err)
				}
				continue
			}

			var terr *TransitionError
			if !errors.As(err, &terr) || !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("%s/%s %s: expected TransitionError, got %v", st.status, st.approval, action, err)
			}
			if *r != before {
				t.Errorf("%s/%s %s: rental mutated on refused transition", st.status, st.approval, action)
			}
		}
	}
}

func TestTransitionRental_ApprovalImpliesStatus(t *testing.T) {
	t.Parallel()

	for from, actions := range rentalTransitions {
		for action, to := range actions {
			switch to.approval {
			case domain.ApprovalStatusApproved:
				if to.status != domain.RentalStatusActive && to.status != domain.RentalStatusCompleted {
					t.Errorf("%v --%s--> approved with status %s", from, action, to.status)
				}
			case domain.ApprovalStatusRejected:
				if to.status != domain.RentalStatusCancelled {
					t.Errorf("%v --%s--> rejected with status %s", from, action, to.status)
				}
			}
		}
	}
}

func TestTransitionRental_RecordsTimestampsAndReasons(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 11, 1, 10, 0, 0, 0, time.UTC)
	r := &domain.Rental{ID: "r-1", Status: domain.RentalStatusPending}

	if err := TransitionRental(r, ActionConfirm, "", now); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if r.Status != domain.RentalStatusConfirmed || r.AdminApprovalStatus != domain.ApprovalStatusPending {
		t.Fatalf("confirm led to %s/%s", r.Status, r.AdminApprovalStatus)
	}
	if !r.ConfirmedAt.Equal(now) {
		t.Errorf("ConfirmedAt = %v, want %v", r.ConfirmedAt, now)
	}

	later := now.Add(time.Hour)
	if err := TransitionRental(r, ActionReject, "  blurry licence photo ", later); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if r.Status != domain.RentalStatusCancelled || r.AdminApprovalStatus != domain.ApprovalStatusRejected {
		t.Fatalf("reject led to %s/%s", r.Status, r.AdminApprovalStatus)
	}
	if r.RejectionReason != "blurry licence photo" {
		t.Errorf("RejectionReason = %q", r.RejectionReason)
	}
	if !r.CancelledAt.Equal(later) {
		t.Errorf("CancelledAt = %v, want %v", r.CancelledAt, later)
	}
}
