package seat

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status は座席の状態を表す
type Status string

const (
	StatusFree        Status = "FREE"
	StatusHeld        Status = "HELD"
	StatusBooked      Status = "BOOKED"
	StatusMaintenance Status = "MAINTENANCE"
)

// Seat は上映回ごとの座席エンティティを表す
// HoldToken は確保時に発行され、確定後は予約の照合に使われる
type Seat struct {
	ShowtimeID    string
	Label         string
	Status        Status
	Price         decimal.Decimal
	HolderID      string
	HoldToken     string
	HoldExpiresAt *time.Time
	UpdatedAt     time.Time
	Version       int // 楽観的ロック用
}

// Hold は一括確保の結果
type Hold struct {
	Token      string
	ShowtimeID string
	Labels     []string
	HolderID   string
	ExpiresAt  time.Time
	Amount     decimal.Decimal
}

// NewSeat は空席を作成する
func NewSeat(showtimeID, label string, price decimal.Decimal, now time.Time) *Seat {
	return &Seat{
		ShowtimeID: showtimeID,
		Label:      label,
		Status:     StatusFree,
		Price:      price,
		UpdatedAt:  now,
	}
}

// Key はロックキーを返す
func Key(showtimeID, label string) string {
	return "seat:" + showtimeID + ":" + label
}

// EffectiveStatus は now 時点の状態を返す
// 期限切れの確保は FREE とみなす
func (s *Seat) EffectiveStatus(now time.Time) Status {
	if s.Status == StatusHeld && s.holdLapsed(now) {
		return StatusFree
	}
	return s.Status
}

// IsFree は now 時点で確保可能かを返す
func (s *Seat) IsFree(now time.Time) bool {
	return s.EffectiveStatus(now) == StatusFree
}

// IsHeldBy は now 時点で holderID が有効な確保を持っているかを返す
func (s *Seat) IsHeldBy(holderID string, now time.Time) bool {
	return s.EffectiveStatus(now) == StatusHeld && s.HolderID == holderID
}

// Hold は座席を確保する
// 同じ会員が有効に確保中の座席は新しいトークンと期限で確保し直す
func (s *Seat) Hold(holderID, token string, expiresAt, now time.Time) error {
	switch s.EffectiveStatus(now) {
	case StatusFree:
	case StatusHeld:
		if s.HolderID != holderID {
			return ErrSeatAlreadyHeld
		}
	case StatusBooked:
		return ErrSeatBooked
	case StatusMaintenance:
		return ErrSeatInMaintenance
	}
	exp := expiresAt
	s.Status = StatusHeld
	s.HolderID = holderID
	s.HoldToken = token
	s.HoldExpiresAt = &exp
	s.UpdatedAt = now
	return nil
}

// Confirm は確保を確定する
// 同じトークンで確定済みなら何もしない（changed=false）
func (s *Seat) Confirm(token string, now time.Time) (changed bool, err error) {
	if s.Status == StatusBooked && s.HoldToken == token {
		return false, nil
	}
	if s.Status != StatusHeld || s.HoldToken != token || s.holdLapsed(now) {
		return false, ErrHoldExpired
	}
	s.Status = StatusBooked
	s.HoldExpiresAt = nil
	s.UpdatedAt = now
	return true, nil
}

// Release はトークンが一致する確保を解放する
func (s *Seat) Release(token string, now time.Time) bool {
	if s.Status != StatusHeld || s.HoldToken != token {
		return false
	}
	s.clear(now)
	return true
}

// ReleaseBooked は確定済みの座席を解放する（予約取消用）
func (s *Seat) ReleaseBooked(token string, now time.Time) bool {
	if s.Status != StatusBooked || s.HoldToken != token {
		return false
	}
	s.clear(now)
	return true
}

// ExpireHold は期限切れの確保を FREE に戻す
func (s *Seat) ExpireHold(now time.Time) bool {
	if s.Status != StatusHeld || !s.holdLapsed(now) {
		return false
	}
	s.clear(now)
	return true
}

// SetMaintenance はメンテナンス状態を切り替える
// メンテナンスに入れるのは空席のみ
func (s *Seat) SetMaintenance(on bool, now time.Time) error {
	if on {
		if s.Status == StatusMaintenance {
			return nil
		}
		if !s.IsFree(now) {
			return ErrSeatNotFree
		}
		s.clear(now)
		s.Status = StatusMaintenance
		return nil
	}
	if s.Status == StatusMaintenance {
		s.clear(now)
	}
	return nil
}

// Validate は座席の検証を行う
func (s *Seat) Validate() error {
	if s.ShowtimeID == "" {
		return ErrShowtimeIDRequired
	}
	if s.Label == "" {
		return ErrLabelRequired
	}
	if s.Price.IsNegative() {
		return ErrInvalidPrice
	}
	return nil
}

// Clone はコピーを返す
func (s *Seat) Clone() *Seat {
	c := *s
	if s.HoldExpiresAt != nil {
		exp := *s.HoldExpiresAt
		c.HoldExpiresAt = &exp
	}
	return &c
}

func (s *Seat) holdLapsed(now time.Time) bool {
	return s.HoldExpiresAt != nil && !now.Before(*s.HoldExpiresAt)
}

func (s *Seat) clear(now time.Time) {
	s.Status = StatusFree
	s.HolderID = ""
	s.HoldToken = ""
	s.HoldExpiresAt = nil
	s.UpdatedAt = now
}
