// Package memory provides map-backed repositories for local runs and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"vehiclerental/internal/domain"
	"vehiclerental/internal/repository"
)

var _ repository.Store = (*Store)(nil)

// Store keeps every entity in process memory. All repositories share one
// mutex, so WithTx gives no isolation beyond single-call atomicity.
type Store struct {
	mu       sync.RWMutex
	units    map[string]*domain.VehicleUnit
	vehicles map[string]*domain.Vehicle
	rentals  map[string]*domain.Rental
	payments map[string]*domain.Payment
	users    map[string]*domain.UserDetails
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		units:    make(map[string]*domain.VehicleUnit),
		vehicles: make(map[string]*domain.Vehicle),
		rentals:  make(map[string]*domain.Rental),
		payments: make(map[string]*domain.Payment),
		users:    make(map[string]*domain.UserDetails),
	}
}

func (s *Store) Units() repository.UnitRepository       { return unitRepo{s} }
func (s *Store) Vehicles() repository.VehicleRepository { return vehicleRepo{s} }
func (s *Store) Rentals() repository.RentalRepository   { return rentalRepo{s} }
func (s *Store) Payments() repository.PaymentRepository { return paymentRepo{s} }
func (s *Store) Users() repository.UserRepository       { return userRepo{s} }

// WithTx runs fn against the same store.
func (s *Store) WithTx(ctx context.Context, fn func(tx repository.Store) error) error {
	return fn(s)
}

// AddVehicle seeds a catalog entry.
func (s *Store) AddVehicle(v *domain.Vehicle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *v
	s.vehicles[v.ID] = &cp
}

// AddUnit seeds a vehicle unit.
func (s *Store) AddUnit(u *domain.VehicleUnit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.units[u.ID] = &cp
}

// AddUser seeds user details.
func (s *Store) AddUser(u *domain.UserDetails) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.users[u.UserID] = &cp
}

// ──────────────────────────────────────────────
// UNITS
// ──────────────────────────────────────────────

type unitRepo struct{ s *Store }

func (r unitRepo) GetByID(ctx context.Context, id string) (*domain.VehicleUnit, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	unit, ok := r.s.units[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *unit
	return &cp, nil
}

func (r unitRepo) GetByIDForUpdate(ctx context.Context, id string) (*domain.VehicleUnit, error) {
	return r.GetByID(ctx, id)
}

func (r unitRepo) ListByVehicle(ctx context.Context, vehicleID string) ([]*domain.VehicleUnit, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var units []*domain.VehicleUnit
	for _, u := range r.s.units {
		if u.VehicleID == vehicleID {
			cp := *u
			units = append(units, &cp)
		}
	}
	sort.Slice(units, func(i, j int) bool { return units[i].ID < units[j].ID })
	return units, nil
}

func (r unitRepo) UpdateStatus(ctx context.Context, id string, status domain.UnitStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	unit, ok := r.s.units[id]
	if !ok {
		return repository.ErrNotFound
	}
	unit.Status = status
	unit.UpdatedAt = time.Now()
	return nil
}

type vehicleRepo struct{ s *Store }

func (r vehicleRepo) GetByID(ctx context.Context, id string) (*domain.Vehicle, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	v, ok := r.s.vehicles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

// ──────────────────────────────────────────────
// RENTALS
// ──────────────────────────────────────────────

type rentalRepo struct{ s *Store }

func (r rentalRepo) Create(ctx context.Context, rental *domain.Rental) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.rentals[rental.ID]; ok {
		return repository.ErrConflict
	}
	cp := *rental
	r.s.rentals[rental.ID] = &cp
	return nil
}

func (r rentalRepo) GetByID(ctx context.Context, id string) (*domain.Rental, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rental, ok := r.s.rentals[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *rental
	return &cp, nil
}

func (r rentalRepo) List(ctx context.Context, filter repository.RentalFilter) ([]*domain.Rental, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var rentals []*domain.Rental
	for _, rental := range r.s.rentals {
		if filter.UserID != "" && rental.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && rental.Status != filter.Status {
			continue
		}
		if filter.Approval != "" && rental.AdminApprovalStatus != filter.Approval {
			continue
		}
		cp := *rental
		rentals = append(rentals, &cp)
	}
	sort.Slice(rentals, func(i, j int) bool { return rentals[i].CreatedAt.After(rentals[j].CreatedAt) })
	if filter.Limit > 0 && len(rentals) > filter.Limit {
		rentals = rentals[:filter.Limit]
	}
	return rentals, nil
}

func (r rentalRepo) ListOverlapping(ctx context.Context, unitID string, rng domain.DateRange, statuses []domain.RentalStatus) ([]*domain.Rental, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var rentals []*domain.Rental
	for _, rental := range r.s.rentals {
		if rental.UnitID != unitID || !hasStatus(statuses, rental.Status) {
			continue
		}
		if !rental.Range().Overlaps(rng) {
			continue
		}
		cp := *rental
		rentals = append(rentals, &cp)
	}
	return rentals, nil
}

func (r rentalRepo) Update(ctx context.Context, rental *domain.Rental) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.rentals[rental.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *rental
	r.s.rentals[rental.ID] = &cp
	return nil
}

func hasStatus(statuses []domain.RentalStatus, s domain.RentalStatus) bool {
	for _, candidate := range statuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ──────────────────────────────────────────────
// PAYMENTS
// ──────────────────────────────────────────────

type paymentRepo struct{ s *Store }

func (r paymentRepo) Create(ctx context.Context, payment *domain.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.payments {
		if p.RentalID == payment.RentalID || p.OrderID == payment.OrderID {
			return repository.ErrConflict
		}
	}
	cp := *payment
	r.s.payments[payment.ID] = &cp
	return nil
}

func (r paymentRepo) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.payments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r paymentRepo) GetByRentalID(ctx context.Context, rentalID string) (*domain.Payment, error) {
	return r.find(func(p *domain.Payment) bool { return p.RentalID == rentalID })
}

func (r paymentRepo) GetByOrderID(ctx context.Context, orderID string) (*domain.Payment, error) {
	return r.find(func(p *domain.Payment) bool { return p.OrderID == orderID })
}

func (r paymentRepo) find(match func(*domain.Payment) bool) (*domain.Payment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, p := range r.s.payments {
		if match(p) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r paymentRepo) ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Payment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var payments []*domain.Payment
	for _, p := range r.s.payments {
		if p.Status != domain.PaymentStatusPending || !p.CreatedAt.Before(cutoff) {
			continue
		}
		if rental, ok := r.s.rentals[p.RentalID]; ok && rental.Status == domain.RentalStatusPending {
			cp := *p
			payments = append(payments, &cp)
		}
	}
	sort.Slice(payments, func(i, j int) bool { return payments[i].CreatedAt.Before(payments[j].CreatedAt) })
	if limit > 0 && len(payments) > limit {
		payments = payments[:limit]
	}
	return payments, nil
}

func (r paymentRepo) Update(ctx context.Context, payment *domain.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.payments[payment.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *payment
	r.s.payments[payment.ID] = &cp
	return nil
}

// ──────────────────────────────────────────────
// USERS
// ──────────────────────────────────────────────

type userRepo struct{ s *Store }

func (r userRepo) GetByID(ctx context.Context, userID string) (*domain.UserDetails, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r userRepo) Update(ctx context.Context, user *domain.UserDetails) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[user.UserID]; !ok {
		return repository.ErrNotFound
	}
	cp := *user
	r.s.users[user.UserID] = &cp
	return nil
}
