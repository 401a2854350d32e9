package domain

import "time"

// VerificationStatus is shared by identity documents and the user as a whole.
type VerificationStatus string

const (
	VerificationUnverified VerificationStatus = "unverified"
	VerificationPending    VerificationStatus = "pending"
	VerificationVerified   VerificationStatus = "verified"
	VerificationRejected   VerificationStatus = "rejected"
)

// DocumentType identifies an identity document.
type DocumentType string

const (
	DocumentKTP DocumentType = "ktp" // national identity card
	DocumentSIM DocumentType = "sim" // driving licence
)

// UserDetails holds the identity verification state of a renter.
type UserDetails struct {
	UserID             string
	Name               string
	Email              string
	Phone              string
	KTPNumber          string
	KTPURL             string
	KTPStatus          VerificationStatus
	SIMNumber          string
	SIMURL             string
	SIMStatus          VerificationStatus
	VerificationStatus VerificationStatus
	VerificationNotes  string
	VerifiedAt         time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// CanRent reports whether the user passed identity verification.
func (u *UserDetails) CanRent() bool {
	return u.VerificationStatus == VerificationVerified
}
