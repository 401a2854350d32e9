package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"vehiclerental/internal/domain"
	"vehiclerental/internal/repository"
)

// bulkVerifyConcurrency caps parallel user updates in BulkVerify.
const bulkVerifyConcurrency = 8

// BulkAction is the decision applied by BulkVerify.
type BulkAction string

const (
	BulkApprove BulkAction = "approve"
	BulkReject  BulkAction = "reject"
)

// BulkResult reports the per-user outcome of BulkVerify.
type BulkResult struct {
	Updated []string
	Failed  map[string]string
}

// VerificationService records identity document and user verification,
// which gates who may book.
type VerificationService struct {
	store    repository.Store
	locker   Locker
	notifier *NotificationService
	log      logrus.FieldLogger
	now      func() time.Time
}

// NewVerificationService creates a new VerificationService. Decisions on one
// user are serialized through locker.
func NewVerificationService(store repository.Store, locker Locker, notifier *NotificationService, log logrus.FieldLogger) *VerificationService {
	return &VerificationService{
		store:    store,
		locker:   locker,
		notifier: notifier,
		log:      log.WithField("component", "verification"),
		now:      time.Now,
	}
}

// GetUser retrieves the verification details of a user.
func (s *VerificationService) GetUser(ctx context.Context, userID string) (*domain.UserDetails, error) {
	if userID == "" {
		return nil, invalid("user_id", "is required")
	}
	return s.store.Users().GetByID(ctx, userID)
}

// VerifyDocument approves or rejects one identity document. Rejecting a
// document of a verified user sends the user back to pending.
func (s *VerificationService) VerifyDocument(ctx context.Context, userID string, doc domain.DocumentType, approved bool, notes string) (*domain.UserDetails, error) {
	if userID == "" {
		return nil, invalid("user_id", "is required")
	}
	if doc != domain.DocumentKTP && doc != domain.DocumentSIM {
		return nil, invalid("doc_type", "must be ktp or sim")
	}
	notes = strings.TrimSpace(notes)
	if !approved && notes == "" {
		return nil, invalid("notes", "is required when rejecting")
	}

	unlock, err := s.locker.Lock(ctx, userLockKey(userID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	status := domain.VerificationRejected
	if approved {
		status = domain.VerificationVerified
	}
	switch doc {
	case domain.DocumentKTP:
		user.KTPStatus = status
	case domain.DocumentSIM:
		user.SIMStatus = status
	}

	if !approved && user.VerificationStatus == domain.VerificationVerified {
		user.VerificationStatus = domain.VerificationPending
		user.VerifiedAt = time.Time{}
	}
	if notes != "" {
		user.VerificationNotes = notes
	}
	user.UpdatedAt = s.now()

	if err := s.store.Users().Update(ctx, user); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"user_id": userID, "doc": doc, "status": status}).Info("document verified")
	return user, nil
}

// VerifyUser approves or rejects a user. Approval requires both documents
// to be verified.
func (s *VerificationService) VerifyUser(ctx context.Context, userID string, approved bool, notes string) (*domain.UserDetails, error) {
	if userID == "" {
		return nil, invalid("user_id", "is required")
	}
	notes = strings.TrimSpace(notes)
	if !approved && notes == "" {
		return nil, invalid("notes", "is required when rejecting")
	}

	unlock, err := s.locker.Lock(ctx, userLockKey(userID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if approved {
		if user.KTPStatus != domain.VerificationVerified || user.SIMStatus != domain.VerificationVerified {
			return nil, invalid("documents", "ktp and sim must be verified first")
		}
		user.VerificationStatus = domain.VerificationVerified
		user.VerifiedAt = now
	} else {
		user.VerificationStatus = domain.VerificationRejected
		user.VerifiedAt = time.Time{}
	}
	user.VerificationNotes = notes
	user.UpdatedAt = now

	if err := s.store.Users().Update(ctx, user); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"user_id": userID, "status": user.VerificationStatus}).Info("user verification updated")
	if s.notifier != nil {
		s.notifier.NotifyVerification(ctx, user)
	}
	return user, nil
}

// BulkVerify applies one decision to many users. Failures are reported per
// user and do not stop the batch.
func (s *VerificationService) BulkVerify(ctx context.Context, userIDs []string, action BulkAction, notes string) (*BulkResult, error) {
	if len(userIDs) == 0 {
		return nil, invalid("user_ids", "must not be empty")
	}
	if action != BulkApprove && action != BulkReject {
		return nil, invalid("action", "must be approve or reject")
	}
	if action == BulkReject && strings.TrimSpace(notes) == "" {
		return nil, invalid("notes", "is required when rejecting")
	}

	result := &BulkResult{Failed: make(map[string]string)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bulkVerifyConcurrency)

	seen := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true

		id := id
		g.Go(func() error {
			_, err := s.VerifyUser(gctx, id, action == BulkApprove, notes)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed[id] = err.Error()
				return nil
			}
			result.Updated = append(result.Updated, id)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"action":  action,
		"updated": len(result.Updated),
		"failed":  len(result.Failed),
	}).Info("bulk verification finished")
	return result, nil
}
