package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sanosuguru/go-citizen-card-booking/internal/domain/discount"
	"github.com/sanosuguru/go-citizen-card-booking/internal/pkg/apperror"
	"github.com/sanosuguru/go-citizen-card-booking/internal/pkg/clock"
)

// DiscountTracker は割引コードの有効性と利用回数を管理する
// 1つのコードに対する変更は discount:<code> のロックで直列化する
type DiscountTracker struct {
	repo   discount.Repository
	locker Locker
	clock  clock.Clock
}

func NewDiscountTracker(repo discount.Repository, locker Locker, c clock.Clock) *DiscountTracker {
	return &DiscountTracker{repo: repo, locker: locker, clock: c}
}

type CreateDiscountInput struct {
	Code      string
	Name      string
	Type      discount.Type
	Value     decimal.Decimal
	StartsAt  time.Time
	EndsAt    time.Time
	SingleUse bool
	Quantity  int
}

// CreateDiscount は割引コードを登録する
func (t *DiscountTracker) CreateDiscount(ctx context.Context, input CreateDiscountInput) (*discount.Discount, error) {
	d := &discount.Discount{
		Code:      discount.NormalizeCode(input.Code),
		Name:      input.Name,
		Type:      input.Type,
		Value:     input.Value,
		StartsAt:  input.StartsAt,
		EndsAt:    input.EndsAt,
		SingleUse: input.SingleUse,
		Quantity:  input.Quantity,
		CreatedAt: t.clock.Now(),
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if err := t.repo.Create(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// Get は割引コードを取得する
func (t *DiscountTracker) Get(ctx context.Context, code string) (*discount.Discount, error) {
	return t.repo.Get(ctx, code)
}

// Reserve は注文に対して割引コードの利用枠を確保する
// 同じ注文で再度呼ばれた場合は既存の確保を返す
func (t *DiscountTracker) Reserve(ctx context.Context, code, memberID, orderID string) (*discount.Redemption, *discount.Discount, error) {
	code = discount.NormalizeCode(code)
	if code == "" {
		return nil, nil, discount.ErrCodeRequired
	}

	unlock, err := t.locker.Lock(ctx, discount.Key(code))
	if err != nil {
		return nil, nil, apperror.System(fmt.Errorf("割引ロック取得に失敗: %w", err))
	}
	defer unlock()

	d, err := t.repo.Get(ctx, code)
	if err != nil {
		return nil, nil, err
	}

	existing, err := t.repo.FindActiveByOrder(ctx, code, orderID)
	switch {
	case err == nil:
		return existing, d, nil
	case !errors.Is(err, discount.ErrRedemptionNotFound):
		return nil, nil, err
	}

	now := t.clock.Now()
	if !d.IsActive(now) {
		return nil, nil, discount.ErrDiscountExpired
	}
	if d.SingleUse {
		used, err := t.repo.HasActiveForMember(ctx, code, memberID)
		if err != nil {
			return nil, nil, err
		}
		if used {
			return nil, nil, discount.ErrDiscountAlreadyUsed
		}
	}
	if d.Limited() {
		n, err := t.repo.CountActive(ctx, code)
		if err != nil {
			return nil, nil, err
		}
		if n >= d.Quantity {
			return nil, nil, discount.ErrDiscountExhausted
		}
	}

	r := &discount.Redemption{
		ID:         uuid.NewString(),
		Code:       code,
		MemberID:   memberID,
		OrderID:    orderID,
		Status:     discount.RedemptionReserved,
		ReservedAt: now,
	}
	if err := t.repo.CreateRedemption(ctx, r); err != nil {
		return nil, nil, err
	}
	return r, d, nil
}

// Commit は確保した利用を確定する。確定済みなら何もしない
func (t *DiscountTracker) Commit(ctx context.Context, redemptionID string) error {
	return t.transition(ctx, redemptionID, func(r *discount.Redemption) (bool, error) {
		return r.Commit(t.clock.Now())
	})
}

// Release は確保中の利用を取り消す。確定済み・取消済みなら何もしない
func (t *DiscountTracker) Release(ctx context.Context, redemptionID string) error {
	return t.transition(ctx, redemptionID, func(r *discount.Redemption) (bool, error) {
		return r.Release(t.clock.Now()), nil
	})
}

// Refund は確定済みの利用を取り消し、再び利用できるようにする
func (t *DiscountTracker) Refund(ctx context.Context, redemptionID string) error {
	return t.transition(ctx, redemptionID, func(r *discount.Redemption) (bool, error) {
		return r.Refund(t.clock.Now()), nil
	})
}

// Void は状態にかかわらず利用を取り消す（確定前に失敗した予約の補償用）
func (t *DiscountTracker) Void(ctx context.Context, redemptionID string) error {
	return t.transition(ctx, redemptionID, func(r *discount.Redemption) (bool, error) {
		now := t.clock.Now()
		return r.Release(now) || r.Refund(now), nil
	})
}

// Quote は定価に対する割引額を返す
func (t *DiscountTracker) Quote(d *discount.Discount, list decimal.Decimal) decimal.Decimal {
	return d.Quote(list)
}

func (t *DiscountTracker) transition(ctx context.Context, redemptionID string, fn func(r *discount.Redemption) (bool, error)) error {
	r, err := t.repo.GetRedemption(ctx, redemptionID)
	if err != nil {
		return err
	}

	unlock, err := t.locker.Lock(ctx, discount.Key(r.Code))
	if err != nil {
		return apperror.System(fmt.Errorf("割引ロック取得に失敗: %w", err))
	}
	defer unlock()

	r, err = t.repo.GetRedemption(ctx, redemptionID)
	if err != nil {
		return err
	}
	changed, err := fn(r)
	if err != nil || !changed {
		return err
	}
	return t.repo.UpdateRedemption(ctx, r)
}
