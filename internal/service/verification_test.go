package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"vehiclerental/internal/domain"
)

func TestVerifyDocument(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	u, err := f.verification.VerifyDocument(ctx, testUnverified, domain.DocumentKTP, true, "")
	if err != nil {
		t.Fatalf("VerifyDocument: %v", err)
	}
	if u.KTPStatus != domain.VerificationVerified || u.SIMStatus != domain.VerificationPending {
		t.Errorf("documents = ktp:%s sim:%s", u.KTPStatus, u.SIMStatus)
	}
	if u.VerificationStatus != domain.VerificationPending {
		t.Errorf("user status = %s, want pending", u.VerificationStatus)
	}

	if _, err := f.verification.VerifyDocument(ctx, testUnverified, domain.DocumentSIM, false, ""); !errors.Is(err, ErrValidation) {
		t.Errorf("reject without notes: expected ErrValidation, got %v", err)
	}
	if _, err := f.verification.VerifyDocument(ctx, testUnverified, "passport", true, ""); !errors.Is(err, ErrValidation) {
		t.Errorf("unknown document: expected ErrValidation, got %v", err)
	}
	if _, err := f.verification.VerifyDocument(ctx, "missing", domain.DocumentKTP, true, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown user: expected ErrNotFound, got %v", err)
	}
}

func TestVerifyDocument_RejectRevokesVerifiedUser(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	u, err := f.verification.VerifyDocument(ctx, testUser, domain.DocumentSIM, false, "licence expired")
	if err != nil {
		t.Fatalf("VerifyDocument: %v", err)
	}
	if u.SIMStatus != domain.VerificationRejected || u.VerificationStatus != domain.VerificationPending {
		t.Errorf("user = sim:%s status:%s", u.SIMStatus, u.VerificationStatus)
	}
	if !u.VerifiedAt.IsZero() {
		t.Error("VerifiedAt not cleared")
	}

	_, err = f.rentals.CreateRental(ctx, CreateRentalRequest{
		UserID:    testUser,
		UnitID:    testUnit,
		StartDate: day(1),
		EndDate:   day(2),
	})
	if !errors.Is(err, ErrUserNotVerified) {
		t.Errorf("booking after revocation: expected ErrUserNotVerified, got %v", err)
	}
}

func TestVerifyUser(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.verification.VerifyUser(ctx, testUnverified, true, ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("approve with pending documents: expected ErrValidation, got %v", err)
	}

	for _, doc := range []domain.DocumentType{domain.DocumentKTP, domain.DocumentSIM} {
		if _, err := f.verification.VerifyDocument(ctx, testUnverified, doc, true, ""); err != nil {
			t.Fatalf("VerifyDocument(%s): %v", doc, err)
		}
	}

	u, err := f.verification.VerifyUser(ctx, testUnverified, true, "ok")
	if err != nil {
		t.Fatalf("VerifyUser: %v", err)
	}
	if !u.CanRent() || u.VerifiedAt.IsZero() {
		t.Errorf("user = %s verified_at=%v", u.VerificationStatus, u.VerifiedAt)
	}

	_, err = f.rentals.CreateRental(ctx, CreateRentalRequest{
		UserID:    testUnverified,
		UnitID:    testUnit,
		StartDate: day(1),
		EndDate:   day(2),
	})
	if err != nil {
		t.Errorf("booking after verification: %v", err)
	}

	u, err = f.verification.VerifyUser(ctx, testUnverified, false, "fraud suspected")
	if err != nil {
		t.Fatalf("VerifyUser reject: %v", err)
	}
	if u.VerificationStatus != domain.VerificationRejected || u.VerificationNotes != "fraud suspected" {
		t.Errorf("user = %s (%q)", u.VerificationStatus, u.VerificationNotes)
	}
}

func TestBulkVerify(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	res, err := f.verification.BulkVerify(ctx, []string{testUser, testUnverified, "missing", testUser, ""}, BulkApprove, "")
	if err != nil {
		t.Fatalf("BulkVerify: %v", err)
	}

	if len(res.Updated) != 1 || res.Updated[0] != testUser {
		t.Errorf("updated = %v, want [%s]", res.Updated, testUser)
	}
	failed := make([]string, 0, len(res.Failed))
	for id := range res.Failed {
		failed = append(failed, id)
	}
	sort.Strings(failed)
	if len(failed) != 2 || failed[0] != "missing" || failed[1] != testUnverified {
		t.Errorf("failed = %v", res.Failed)
	}

	res, err = f.verification.BulkVerify(ctx, []string{testUser, testUnverified}, BulkReject, "batch audit")
	if err != nil {
		t.Fatalf("BulkVerify reject: %v", err)
	}
	if len(res.Updated) != 2 || len(res.Failed) != 0 {
		t.Errorf("reject result = %+v", res)
	}
}

func TestBulkVerify_Validation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		ids    []string
		action BulkAction
		notes  string
	}{
		{"no users", nil, BulkApprove, ""},
		{"unknown action", []string{testUser}, "suspend", ""},
		{"reject without notes", []string{testUser}, BulkReject, " "},
	}
	for _, tt := range tests {
		if _, err := f.verification.BulkVerify(ctx, tt.ids, tt.action, tt.notes); !errors.Is(err, ErrValidation) {
			t.Errorf("%s: expected ErrValidation, got %v", tt.name, err)
		}
	}
}

func TestVerifyDocument_ConcurrentDecisionsKeepBothDocuments(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	for round := 0; round < 20; round++ {
		u, err := f.store.Users().GetByID(ctx, testUnverified)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		u.KTPStatus = domain.VerificationPending
		u.SIMStatus = domain.VerificationPending
		if err := f.store.Users().Update(ctx, u); err != nil {
			t.Fatalf("reset user: %v", err)
		}

		var wg sync.WaitGroup
		for _, doc := range []domain.DocumentType{domain.DocumentKTP, domain.DocumentSIM} {
			wg.Add(1)
			go func(doc domain.DocumentType) {
				defer wg.Done()
				if _, err := f.verification.VerifyDocument(ctx, testUnverified, doc, true, ""); err != nil {
					t.Errorf("VerifyDocument %s: %v", doc, err)
				}
			}(doc)
		}
		wg.Wait()

		got, err := f.verification.GetUser(ctx, testUnverified)
		if err != nil {
			t.Fatalf("GetUser: %v", err)
		}
		if got.KTPStatus != domain.VerificationVerified || got.SIMStatus != domain.VerificationVerified {
			t.Fatalf("round %d: documents = ktp:%s sim:%s, want both verified", round, got.KTPStatus, got.SIMStatus)
		}
	}
}
