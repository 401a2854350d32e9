package service

import (
	"strings"
	"time"

	"vehiclerental/internal/domain"
)

// RentalAction names an operation on the rental state machine.
type RentalAction string

const (
	ActionConfirm  RentalAction = "confirm"
	ActionApprove  RentalAction = "approve"
	ActionReject   RentalAction = "reject"
	ActionComplete RentalAction = "complete"
	ActionCancel   RentalAction = "cancel"
	ActionExpire   RentalAction = "expire"
)

// rentalState is the pair the guards look at.
type rentalState struct {
	status   domain.RentalStatus
	approval domain.ApprovalStatus
}

// rentalTransitions lists the permitted actions per state and where they lead.
var rentalTransitions = map[rentalState]map[RentalAction]rentalState{
	{domain.RentalStatusPending, domain.ApprovalStatusNone}: {
		ActionConfirm: {domain.RentalStatusConfirmed, domain.ApprovalStatusPending},
		ActionCancel:  {domain.RentalStatusCancelled, domain.ApprovalStatusNone},
		ActionExpire:  {domain.RentalStatusCancelled, domain.ApprovalStatusNone},
	},
	{domain.RentalStatusConfirmed, domain.ApprovalStatusPending}: {
		ActionApprove: {domain.RentalStatusActive, domain.ApprovalStatusApproved},
		ActionReject:  {domain.RentalStatusCancelled, domain.ApprovalStatusRejected},
		ActionCancel:  {domain.RentalStatusCancelled, domain.ApprovalStatusPending},
	},
	{domain.RentalStatusActive, domain.ApprovalStatusApproved}: {
		ActionComplete: {domain.RentalStatusCompleted, domain.ApprovalStatusApproved},
	},
}

// CanTransition reports whether action is permitted on the rental.
func CanTransition(r *domain.Rental, action RentalAction) bool {
	actions, ok := rentalTransitions[rentalState{r.Status, r.AdminApprovalStatus}]
	if !ok {
		return false
	}
	_, ok = actions[action]
	return ok
}

// TransitionRental applies action to r in place. On failure r is untouched
// and the error is a *TransitionError.
func TransitionRental(r *domain.Rental, action RentalAction, reason string, now time.Time) error {
	actions := rentalTransitions[rentalState{r.Status, r.AdminApprovalStatus}]
	next, ok := actions[action]
	if !ok {
		return &TransitionError{
			RentalID: r.ID,
			From:     r.Status,
			Approval: r.AdminApprovalStatus,
			Action:   string(action),
		}
	}

	r.Status = next.status
	r.AdminApprovalStatus = next.approval
	r.UpdatedAt = now

	switch action {
	case ActionConfirm:
		r.ConfirmedAt = now
	case ActionApprove:
		r.ApprovedAt = now
	case ActionReject:
		r.RejectionReason = strings.TrimSpace(reason)
		r.CancelledAt = now
	case ActionComplete:
		r.CompletedAt = now
	case ActionCancel, ActionExpire:
		r.CancelReason = reason
		r.CancelledAt = now
	}

	return nil
}
