package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/sanosuguru/go-citizen-card-booking/internal/domain/booking"
)

type BookingRepository struct {
	mu       sync.RWMutex
	bookings map[string]*booking.Booking
}

func NewBookingRepository() *BookingRepository {
	return &BookingRepository{bookings: make(map[string]*booking.Booking)}
}

func (r *BookingRepository) Create(ctx context.Context, b *booking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bookings[b.ID]; ok {
		return booking.ErrBookingExists
	}
	r.bookings[b.ID] = b.Clone()
	return nil
}

func (r *BookingRepository) GetByID(ctx context.Context, id string) (*booking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, booking.ErrBookingNotFound
	}
	return b.Clone(), nil
}

func (r *BookingRepository) Update(ctx context.Context, b *booking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bookings[b.ID]; !ok {
		return booking.ErrBookingNotFound
	}
	r.bookings[b.ID] = b.Clone()
	return nil
}

func (r *BookingRepository) ListByMember(ctx context.Context, memberID string, limit, offset int) ([]*booking.Booking, error) {
	out := r.filter(func(b *booking.Booking) bool { return b.MemberID == memberID })
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, limit, offset), nil
}

func (r *BookingRepository) ListActiveByMember(ctx context.Context, memberID string) ([]*booking.Booking, error) {
	return r.filter(func(b *booking.Booking) bool {
		return b.MemberID == memberID &&
			(b.Status == booking.StatusPendingPayment || b.Status == booking.StatusConfirmed)
	}), nil
}

func (r *BookingRepository) ListPendingPayment(ctx context.Context, limit int) ([]*booking.Booking, error) {
	out := r.filter(func(b *booking.Booking) bool { return b.Status == booking.StatusPendingPayment })
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return paginate(out, limit, 0), nil
}

func (r *BookingRepository) filter(keep func(b *booking.Booking) bool) []*booking.Booking {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*booking.Booking
	for _, b := range r.bookings {
		if keep(b) {
			out = append(out, b.Clone())
		}
	}
	return out
}

var _ booking.Repository = (*BookingRepository)(nil)
