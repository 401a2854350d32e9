package postgres

import (
	"context"
	"database/sql"
	"time"

	"vehiclerental/internal/domain"
	"vehiclerental/internal/repository"
)

// PaymentRepository is a PostgreSQL implementation of repository.PaymentRepository.
type PaymentRepository struct {
	q Querier
}

var _ repository.PaymentRepository = (*PaymentRepository)(nil)

const paymentColumns = `id, rental_id, amount, status, provider, order_id, transaction_id, payment_type,
	session_token, redirect_url, paid_at, created_at, updated_at`

func scanPayment(row rowScanner) (*domain.Payment, error) {
	var payment domain.Payment
	var transactionID, paymentType, token, redirectURL sql.NullString
	var paidAt sql.NullTime

	if err := row.Scan(
		&payment.ID,
		&payment.RentalID,
		&payment.Amount,
		&payment.Status,
		&payment.Provider,
		&payment.OrderID,
		&transactionID,
		&paymentType,
		&token,
		&redirectURL,
		&paidAt,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	); err != nil {
		return nil, mapError(err)
	}

	payment.TransactionID = transactionID.String
	payment.PaymentType = paymentType.String
	payment.SessionToken = token.String
	payment.RedirectURL = redirectURL.String
	payment.PaidAt = paidAt.Time

	return &payment, nil
}

// Create persists a new payment.
func (r *PaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.q.ExecContext(ctx, query,
		payment.ID,
		payment.RentalID,
		payment.Amount,
		payment.Status,
		payment.Provider,
		payment.OrderID,
		nullString(payment.TransactionID),
		nullString(payment.PaymentType),
		nullString(payment.SessionToken),
		nullString(payment.RedirectURL),
		nullTime(payment.PaidAt),
		payment.CreatedAt,
		payment.UpdatedAt,
	)

	return mapError(err)
}

// GetByID retrieves a payment by ID.
func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	return scanPayment(r.q.QueryRowContext(ctx, query, id))
}

// GetByRentalID retrieves the payment attached to a rental.
func (r *PaymentRepository) GetByRentalID(ctx context.Context, rentalID string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE rental_id = $1`
	return scanPayment(r.q.QueryRowContext(ctx, query, rentalID))
}

// GetByOrderID retrieves a payment by its gateway order ID.
func (r *PaymentRepository) GetByOrderID(ctx context.Context, orderID string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE order_id = $1`
	return scanPayment(r.q.QueryRowContext(ctx, query, orderID))
}

// ListPendingBefore retrieves pending payments created before the cutoff
// whose rental is still pending, oldest first.
func (r *PaymentRepository) ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + ` FROM payments
		WHERE status = $1 AND created_at < $2
			AND EXISTS (SELECT 1 FROM rentals r WHERE r.id = payments.rental_id AND r.status = $3)
		ORDER BY created_at ASC LIMIT $4
	`

	rows, err := r.q.QueryContext(ctx, query, domain.PaymentStatusPending, cutoff, domain.RentalStatusPending, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []*domain.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}
	return payments, rows.Err()
}

// Update updates an existing payment.
func (r *PaymentRepository) Update(ctx context.Context, payment *domain.Payment) error {
	query := `
		UPDATE payments
		SET status = $1, transaction_id = $2, payment_type = $3, session_token = $4, redirect_url = $5,
			paid_at = $6, updated_at = $7
		WHERE id = $8
	`

	result, err := r.q.ExecContext(ctx, query,
		payment.Status,
		nullString(payment.TransactionID),
		nullString(payment.PaymentType),
		nullString(payment.SessionToken),
		nullString(payment.RedirectURL),
		nullTime(payment.PaidAt),
		payment.UpdatedAt,
		payment.ID,
	)
	if err != nil {
		return mapError(err)
	}

	return checkAffected(result)
}
