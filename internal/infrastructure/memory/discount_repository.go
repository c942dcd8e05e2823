package memory

import (
	"context"
	"sync"

	"github.com/sanosuguru/go-citizen-card-booking/internal/domain/discount"
)

type DiscountRepository struct {
	mu          sync.RWMutex
	discounts   map[string]*discount.Discount
	redemptions map[string]*discount.Redemption
}

func NewDiscountRepository() *DiscountRepository {
	return &DiscountRepository{
		discounts:   make(map[string]*discount.Discount),
		redemptions: make(map[string]*discount.Redemption),
	}
}

func (r *DiscountRepository) Create(ctx context.Context, d *discount.Discount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	code := discount.NormalizeCode(d.Code)
	if _, ok := r.discounts[code]; ok {
		return discount.ErrDiscountExists
	}
	c := *d
	c.Code = code
	r.discounts[code] = &c
	return nil
}

func (r *DiscountRepository) Get(ctx context.Context, code string) (*discount.Discount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.discounts[discount.NormalizeCode(code)]
	if !ok {
		return nil, discount.ErrDiscountNotFound
	}
	c := *d
	return &c, nil
}

func (r *DiscountRepository) CreateRedemption(ctx context.Context, red *discount.Redemption) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *red
	r.redemptions[red.ID] = &c
	return nil
}

func (r *DiscountRepository) GetRedemption(ctx context.Context, id string) (*discount.Redemption, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	red, ok := r.redemptions[id]
	if !ok {
		return nil, discount.ErrRedemptionNotFound
	}
	c := *red
	return &c, nil
}

func (r *DiscountRepository) UpdateRedemption(ctx context.Context, red *discount.Redemption) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.redemptions[red.ID]; !ok {
		return discount.ErrRedemptionNotFound
	}
	c := *red
	r.redemptions[red.ID] = &c
	return nil
}

func (r *DiscountRepository) FindActiveByOrder(ctx context.Context, code, orderID string) (*discount.Redemption, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	code = discount.NormalizeCode(code)
	for _, red := range r.redemptions {
		if red.Code == code && red.OrderID == orderID && red.IsActive() {
			c := *red
			return &c, nil
		}
	}
	return nil, discount.ErrRedemptionNotFound
}

func (r *DiscountRepository) CountActive(ctx context.Context, code string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	code = discount.NormalizeCode(code)
	n := 0
	for _, red := range r.redemptions {
		if red.Code == code && red.IsActive() {
			n++
		}
	}
	return n, nil
}

func (r *DiscountRepository) HasActiveForMember(ctx context.Context, code, memberID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	code = discount.NormalizeCode(code)
	for _, red := range r.redemptions {
		if red.Code == code && red.MemberID == memberID && red.IsActive() {
			return true, nil
		}
	}
	return false, nil
}

var _ discount.Repository = (*DiscountRepository)(nil)
