package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sanosuguru/go-citizen-card-booking/internal/domain/seat"
)

type SeatRepository struct {
	mu    sync.RWMutex
	seats map[string]map[string]*seat.Seat
}

func NewSeatRepository() *SeatRepository {
	return &SeatRepository{seats: make(map[string]map[string]*seat.Seat)}
}

func (r *SeatRepository) CreateBulk(ctx context.Context, seats []*seat.Seat) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range seats {
		if _, ok := r.seats[s.ShowtimeID][s.Label]; ok {
			return seat.ErrSeatExists
		}
	}
	for _, s := range seats {
		byLabel, ok := r.seats[s.ShowtimeID]
		if !ok {
			byLabel = make(map[string]*seat.Seat)
			r.seats[s.ShowtimeID] = byLabel
		}
		byLabel[s.Label] = s.Clone()
	}
	return nil
}

func (r *SeatRepository) GetMany(ctx context.Context, showtimeID string, labels []string) ([]*seat.Seat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*seat.Seat, 0, len(labels))
	for _, l := range labels {
		s, ok := r.seats[showtimeID][l]
		if !ok {
			return nil, seat.ErrSeatNotFound.WithMessage("座席 %s が見つかりません", l)
		}
		out = append(out, s.Clone())
	}
	return out, nil
}

func (r *SeatRepository) ListByShowtime(ctx context.Context, showtimeID string) ([]*seat.Seat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*seat.Seat, 0, len(r.seats[showtimeID]))
	for _, s := range r.seats[showtimeID] {
		out = append(out, s.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out, nil
}

func (r *SeatRepository) ListExpiredHolds(ctx context.Context, now time.Time, limit int) ([]*seat.Seat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*seat.Seat
	for _, byLabel := range r.seats {
		for _, s := range byLabel {
			if s.Status == seat.StatusHeld && s.EffectiveStatus(now) == seat.StatusFree {
				out = append(out, s.Clone())
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ShowtimeID != out[j].ShowtimeID {
			return out[i].ShowtimeID < out[j].ShowtimeID
		}
		return out[i].Label < out[j].Label
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *SeatRepository) UpdateAll(ctx context.Context, seats []*seat.Seat) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range seats {
		cur, ok := r.seats[s.ShowtimeID][s.Label]
		if !ok {
			return seat.ErrSeatNotFound
		}
		if cur.Version != s.Version {
			return seat.ErrOptimisticLockConflict
		}
	}
	for _, s := range seats {
		s.Version++
		r.seats[s.ShowtimeID][s.Label] = s.Clone()
	}
	return nil
}

var _ seat.Repository = (*SeatRepository)(nil)
