package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/sanosuguru/go-citizen-card-booking/internal/domain/showtime"
)

type ShowtimeRepository struct {
	mu        sync.RWMutex
	showtimes map[string]*showtime.Showtime
}

func NewShowtimeRepository() *ShowtimeRepository {
	return &ShowtimeRepository{showtimes: make(map[string]*showtime.Showtime)}
}

func (r *ShowtimeRepository) Create(ctx context.Context, s *showtime.Showtime) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *s
	r.showtimes[s.ID] = &c
	return nil
}

func (r *ShowtimeRepository) GetByID(ctx context.Context, id string) (*showtime.Showtime, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.showtimes[id]
	if !ok {
		return nil, showtime.ErrShowtimeNotFound
	}
	c := *s
	return &c, nil
}

func (r *ShowtimeRepository) List(ctx context.Context, limit, offset int) ([]*showtime.Showtime, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*showtime.Showtime, 0, len(r.showtimes))
	for _, s := range r.showtimes {
		c := *s
		all = append(all, &c)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].StartsAt.Before(all[j].StartsAt) })
	return paginate(all, limit, offset), nil
}

func (r *ShowtimeRepository) Update(ctx context.Context, s *showtime.Showtime) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.showtimes[s.ID]; !ok {
		return showtime.ErrShowtimeNotFound
	}
	c := *s
	r.showtimes[s.ID] = &c
	return nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

var _ showtime.Repository = (*ShowtimeRepository)(nil)
