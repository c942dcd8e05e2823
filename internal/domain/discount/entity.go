package discount

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Type は割引の種類を表す
type Type string

const (
	TypeFixed   Type = "FIXED"
	TypePercent Type = "PERCENT"
)

// RedemptionStatus は割引利用の状態を表す
type RedemptionStatus string

const (
	RedemptionReserved  RedemptionStatus = "RESERVED"
	RedemptionCommitted RedemptionStatus = "COMMITTED"
	RedemptionReleased  RedemptionStatus = "RELEASED"
)

var hundred = decimal.NewFromInt(100)

// Discount は割引コードエンティティを表す
// Quantity が0なら発行枚数の上限なし
type Discount struct {
	Code      string
	Name      string
	Type      Type
	Value     decimal.Decimal
	StartsAt  time.Time
	EndsAt    time.Time
	SingleUse bool
	Quantity  int
	CreatedAt time.Time
}

// Redemption は割引コードの1回分の利用を表す
type Redemption struct {
	ID         string
	Code       string
	MemberID   string
	OrderID    string
	Status     RedemptionStatus
	ReservedAt time.Time
	RedeemedAt *time.Time
	ReleasedAt *time.Time
}

// NormalizeCode は割引コードを比較用の形に揃える
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Key はロックキーを返す
func Key(code string) string {
	return "discount:" + NormalizeCode(code)
}

// Validate は割引コードの検証を行う
func (d *Discount) Validate() error {
	if d.Code == "" {
		return ErrCodeRequired
	}
	switch d.Type {
	case TypeFixed:
		if !d.Value.IsPositive() {
			return ErrInvalidValue
		}
	case TypePercent:
		if !d.Value.IsPositive() || d.Value.GreaterThan(hundred) {
			return ErrInvalidValue
		}
	default:
		return ErrInvalidType
	}
	if !d.EndsAt.After(d.StartsAt) {
		return ErrInvalidPeriod
	}
	if d.Quantity < 0 {
		return ErrInvalidQuantity
	}
	return nil
}

// IsActive は now が有効期間内かを返す
func (d *Discount) IsActive(now time.Time) bool {
	return !now.Before(d.StartsAt) && now.Before(d.EndsAt)
}

// Limited は発行枚数に上限があるかを返す
func (d *Discount) Limited() bool {
	return d.Quantity > 0
}

// Quote は定価に対する割引額を返す。割引額は定価を超えない
func (d *Discount) Quote(list decimal.Decimal) decimal.Decimal {
	var off decimal.Decimal
	switch d.Type {
	case TypeFixed:
		off = d.Value
	case TypePercent:
		off = list.Mul(d.Value).Div(hundred).Round(2)
	}
	if off.GreaterThan(list) {
		return list
	}
	return off
}

// IsActive は利用が有効（確保中または確定済み）かを返す
func (r *Redemption) IsActive() bool {
	return r.Status == RedemptionReserved || r.Status == RedemptionCommitted
}

// Commit は確保中の利用を確定する
func (r *Redemption) Commit(now time.Time) (changed bool, err error) {
	switch r.Status {
	case RedemptionCommitted:
		return false, nil
	case RedemptionReserved:
		r.Status = RedemptionCommitted
		r.RedeemedAt = &now
		return true, nil
	default:
		return false, ErrRedemptionReleased
	}
}

// Release は確保中の利用を取り消す
func (r *Redemption) Release(now time.Time) bool {
	if r.Status != RedemptionReserved {
		return false
	}
	r.Status = RedemptionReleased
	r.ReleasedAt = &now
	return true
}

// Refund は確定済みの利用を取り消す（返金ポリシー有効時）
func (r *Redemption) Refund(now time.Time) bool {
	if r.Status != RedemptionCommitted {
		return false
	}
	r.Status = RedemptionReleased
	r.ReleasedAt = &now
	return true
}
