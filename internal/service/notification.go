package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"vehiclerental/internal/domain"
)

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationRentalCreated   NotificationType = "RENTAL_CREATED"
	NotificationPaymentSuccess  NotificationType = "PAYMENT_SUCCESS"
	NotificationPaymentFailed   NotificationType = "PAYMENT_FAILED"
	NotificationRentalApproved  NotificationType = "RENTAL_APPROVED"
	NotificationRentalRejected  NotificationType = "RENTAL_REJECTED"
	NotificationRentalCompleted NotificationType = "RENTAL_COMPLETED"
	NotificationRentalCancelled NotificationType = "RENTAL_CANCELLED"
	NotificationUserVerified    NotificationType = "USER_VERIFIED"
	NotificationUserRejected    NotificationType = "USER_REJECTED"
)

// Notification represents a notification to be sent.
type Notification struct {
	Type        NotificationType
	RecipientID string
	Title       string
	Message     string
	Data        map[string]interface{}
	CreatedAt   time.Time
}

// NotificationService delivers user-facing notifications. Delivery is a
// structured log line; push and email channels plug in behind send.
type NotificationService struct {
	log logrus.FieldLogger
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(log logrus.FieldLogger) *NotificationService {
	return &NotificationService{log: log.WithField("component", "notification")}
}

// NotifyRentalCreated tells the renter payment is awaited.
func (s *NotificationService) NotifyRentalCreated(ctx context.Context, rental *domain.Rental) {
	s.send(ctx, Notification{
		Type:        NotificationRentalCreated,
		RecipientID: rental.UserID,
		Title:       "Booking Created",
		Message:     fmt.Sprintf("Complete payment of %.0f to secure your booking", rental.TotalAmount),
		Data:        map[string]interface{}{"rental_id": rental.ID, "amount": rental.TotalAmount},
	})
}

// NotifyPaymentResult tells the renter how the payment ended.
func (s *NotificationService) NotifyPaymentResult(ctx context.Context, rental *domain.Rental, payment *domain.Payment) {
	n := Notification{
		RecipientID: rental.UserID,
		Data: map[string]interface{}{
			"rental_id":  rental.ID,
			"payment_id": payment.ID,
			"status":     payment.Status,
		},
	}

	switch Outcome(payment.Status) {
	case domain.PaymentOutcomePaid:
		n.Type = NotificationPaymentSuccess
		n.Title = "Payment Received"
		n.Message = "Your payment was received. Your booking is waiting for admin approval."
	case domain.PaymentOutcomeFailed:
		n.Type = NotificationPaymentFailed
		n.Title = "Payment Failed"
		n.Message = fmt.Sprintf("Your payment ended as %s and the booking was cancelled.", payment.Status)
	default:
		return
	}
	s.send(ctx, n)
}

// NotifyRentalDecision tells the renter about an admin action.
func (s *NotificationService) NotifyRentalDecision(ctx context.Context, rental *domain.Rental, action RentalAction) {
	n := Notification{
		RecipientID: rental.UserID,
		Data:        map[string]interface{}{"rental_id": rental.ID},
	}

	switch action {
	case ActionApprove:
		n.Type = NotificationRentalApproved
		n.Title = "Booking Approved"
		n.Message = "Your booking was approved. The vehicle is ready for pickup."
	case ActionReject:
		n.Type = NotificationRentalRejected
		n.Title = "Booking Rejected"
		n.Message = "Your booking was rejected: " + rental.RejectionReason
		n.Data["reason"] = rental.RejectionReason
	case ActionComplete:
		n.Type = NotificationRentalCompleted
		n.Title = "Rental Completed"
		n.Message = "Thanks for returning the vehicle."
	case ActionCancel:
		n.Type = NotificationRentalCancelled
		n.Title = "Booking Cancelled"
		n.Message = "Your booking was cancelled."
	default:
		return
	}
	s.send(ctx, n)
}

// NotifyVerification tells a user the outcome of identity verification.
func (s *NotificationService) NotifyVerification(ctx context.Context, user *domain.UserDetails) {
	n := Notification{
		RecipientID: user.UserID,
		Data:        map[string]interface{}{"notes": user.VerificationNotes},
	}

	switch user.VerificationStatus {
	case domain.VerificationVerified:
		n.Type = NotificationUserVerified
		n.Title = "Account Verified"
		n.Message = "Your identity was verified. You can now book vehicles."
	case domain.VerificationRejected:
		n.Type = NotificationUserRejected
		n.Title = "Verification Rejected"
		n.Message = "Your identity verification was rejected: " + user.VerificationNotes
	default:
		return
	}
	s.send(ctx, n)
}

func (s *NotificationService) send(ctx context.Context, n Notification) {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	s.log.WithFields(logrus.Fields{
		"type":      n.Type,
		"recipient": n.RecipientID,
		"title":     n.Title,
	}).WithFields(n.Data).Info(n.Message)
}
