package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-citizen-card-booking/internal/domain/seat"
	"github.com/sanosuguru/go-citizen-card-booking/internal/pkg/apperror"
	"github.com/sanosuguru/go-citizen-card-booking/internal/pkg/clock"
	"github.com/sanosuguru/go-citizen-card-booking/internal/pkg/keylock"
	"github.com/sanosuguru/go-citizen-card-booking/internal/pkg/logger"
	"github.com/sanosuguru/go-citizen-card-booking/internal/pkg/metrics"
)

const reapBatchSize = 500

// SeatLockManager は座席の確保・確定・解放を管理する
// 座席の変更はすべて seat:<上映回>:<ラベル> のロック下で行う
type SeatLockManager struct {
	repo    seat.Repository
	locker  Locker
	clock   clock.Clock
	cache   SeatCountCache
	metrics *metrics.Metrics
}

func NewSeatLockManager(repo seat.Repository, locker Locker, c clock.Clock, cache SeatCountCache, m *metrics.Metrics) *SeatLockManager {
	return &SeatLockManager{repo: repo, locker: locker, clock: c, cache: cache, metrics: orNoop(m)}
}

// SeatAvailability は座席ごとの現在の状態
type SeatAvailability struct {
	Label  string
	Status seat.Status
	Price  decimal.Decimal
}

// AvailabilityReport は空席確認の結果
type AvailabilityReport struct {
	ShowtimeID string
	AllFree    bool
	Seats      []SeatAvailability
}

// Hold は座席をまとめて確保する。1席でも確保できなければ何も変更しない
// 同じ会員が同じ座席の組を有効に確保済みならその確保を返す
// 一部の座席だけ確保済みならそれらも新しい確保に含める
func (m *SeatLockManager) Hold(ctx context.Context, showtimeID string, labels []string, holderID string, ttl time.Duration) (*seat.Hold, error) {
	if holderID == "" {
		return nil, apperror.Invalid("確保する会員IDは必須です")
	}
	if ttl <= 0 {
		return nil, apperror.Invalid("確保期間は正の値である必要があります")
	}
	sorted, err := normalizeLabels(labels)
	if err != nil {
		return nil, err
	}

	unlock, err := m.locker.Lock(ctx, seatKeys(showtimeID, sorted)...)
	if err != nil {
		return nil, apperror.System(fmt.Errorf("座席ロック取得に失敗: %w", err))
	}
	defer unlock()

	seats, err := m.repo.GetMany(ctx, showtimeID, sorted)
	if err != nil {
		m.metrics.SeatHoldsTotal.WithLabelValues("not_found").Inc()
		return nil, err
	}

	now := m.clock.Now()
	if existing := existingHold(seats, holderID, now); existing != nil {
		m.metrics.SeatHoldsTotal.WithLabelValues("reentrant").Inc()
		return existing, nil
	}

	token := uuid.NewString()
	expiresAt := now.Add(ttl)
	amount := decimal.Zero
	for _, s := range seats {
		if err := s.Hold(holderID, token, expiresAt, now); err != nil {
			m.metrics.SeatHoldsTotal.WithLabelValues("conflict").Inc()
			return nil, wrapSeatErr(err, s.Label)
		}
		amount = amount.Add(s.Price)
	}
	if err := m.repo.UpdateAll(ctx, seats); err != nil {
		m.metrics.SeatHoldsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	m.metrics.SeatHoldsTotal.WithLabelValues("held").Inc()
	m.invalidate(ctx, showtimeID)

	return &seat.Hold{
		Token:      token,
		ShowtimeID: showtimeID,
		Labels:     sorted,
		HolderID:   holderID,
		ExpiresAt:  expiresAt,
		Amount:     amount,
	}, nil
}

// Release は確保を解放する。既に解放・失効・再確保された座席は変更しない
func (m *SeatLockManager) Release(ctx context.Context, hold *seat.Hold) error {
	return m.mutate(ctx, hold.ShowtimeID, hold.Labels, func(s *seat.Seat, now time.Time) (bool, error) {
		return s.Release(hold.Token, now), nil
	})
}

// Confirm は確保を予約済みにする。期限切れなら ErrHoldExpired
func (m *SeatLockManager) Confirm(ctx context.Context, hold *seat.Hold) error {
	return m.mutate(ctx, hold.ShowtimeID, hold.Labels, func(s *seat.Seat, now time.Time) (bool, error) {
		changed, err := s.Confirm(hold.Token, now)
		if err != nil {
			return false, wrapSeatErr(err, s.Label)
		}
		return changed, nil
	})
}

// ReleaseBooked は取り消された予約の座席を空席に戻す
func (m *SeatLockManager) ReleaseBooked(ctx context.Context, showtimeID string, labels []string, token string) error {
	return m.mutate(ctx, showtimeID, labels, func(s *seat.Seat, now time.Time) (bool, error) {
		return s.ReleaseBooked(token, now), nil
	})
}

// SetMaintenance は座席のメンテナンス状態を切り替える
func (m *SeatLockManager) SetMaintenance(ctx context.Context, showtimeID, label string, on bool) error {
	return m.mutate(ctx, showtimeID, []string{label}, func(s *seat.Seat, now time.Time) (bool, error) {
		before := s.Status
		if err := s.SetMaintenance(on, now); err != nil {
			return false, wrapSeatErr(err, s.Label)
		}
		return before != s.Status, nil
	})
}

// CheckAvailability は指定座席がすべて空席かを返す
func (m *SeatLockManager) CheckAvailability(ctx context.Context, showtimeID string, labels []string) (bool, error) {
	report, err := m.Availability(ctx, showtimeID, labels)
	if err != nil {
		return false, err
	}
	return report.AllFree, nil
}

// Availability は指定座席の現在の状態を返す
func (m *SeatLockManager) Availability(ctx context.Context, showtimeID string, labels []string) (*AvailabilityReport, error) {
	sorted, err := normalizeLabels(labels)
	if err != nil {
		return nil, err
	}
	seats, err := m.repo.GetMany(ctx, showtimeID, sorted)
	if err != nil {
		return nil, err
	}

	now := m.clock.Now()
	report := &AvailabilityReport{ShowtimeID: showtimeID, AllFree: true, Seats: make([]SeatAvailability, 0, len(seats))}
	for _, s := range seats {
		st := s.EffectiveStatus(now)
		if st != seat.StatusFree {
			report.AllFree = false
		}
		report.Seats = append(report.Seats, SeatAvailability{Label: s.Label, Status: st, Price: s.Price})
	}
	return report, nil
}

// ReapExpired は期限切れの確保を空席に戻す
// 解放と同じ座席ロックを取り、確保が更新されていないことを確認してから戻す
func (m *SeatLockManager) ReapExpired(ctx context.Context) (int, error) {
	expired, err := m.repo.ListExpiredHolds(ctx, m.clock.Now(), reapBatchSize)
	if err != nil {
		return 0, fmt.Errorf("期限切れ座席の取得に失敗: %w", err)
	}

	reaped := 0
	for _, s := range expired {
		if err := ctx.Err(); err != nil {
			return reaped, err
		}
		var changed bool
		err := m.mutate(ctx, s.ShowtimeID, []string{s.Label}, func(cur *seat.Seat, now time.Time) (bool, error) {
			changed = cur.ExpireHold(now)
			return changed, nil
		})
		if err != nil {
			logger.Warn("期限切れ座席の解放に失敗",
				zap.String("showtime_id", s.ShowtimeID),
				zap.String("label", s.Label),
				zap.Error(err),
			)
			continue
		}
		if changed {
			reaped++
		}
	}
	if reaped > 0 {
		m.metrics.ExpiredTotal.WithLabelValues("hold").Add(float64(reaped))
	}
	return reaped, nil
}

// mutate は座席ロック下で座席を読み込み、fn が変更した座席だけを保存する
func (m *SeatLockManager) mutate(ctx context.Context, showtimeID string, labels []string, fn func(s *seat.Seat, now time.Time) (bool, error)) error {
	sorted, err := normalizeLabels(labels)
	if err != nil {
		return err
	}
	unlock, err := m.locker.Lock(ctx, seatKeys(showtimeID, sorted)...)
	if err != nil {
		return apperror.System(fmt.Errorf("座席ロック取得に失敗: %w", err))
	}
	defer unlock()

	seats, err := m.repo.GetMany(ctx, showtimeID, sorted)
	if err != nil {
		return err
	}

	now := m.clock.Now()
	changed := make([]*seat.Seat, 0, len(seats))
	for _, s := range seats {
		ok, err := fn(s, now)
		if err != nil {
			return err
		}
		if ok {
			changed = append(changed, s)
		}
	}
	if len(changed) == 0 {
		return nil
	}
	if err := m.repo.UpdateAll(ctx, changed); err != nil {
		return err
	}
	m.invalidate(ctx, showtimeID)
	return nil
}

func (m *SeatLockManager) invalidate(ctx context.Context, showtimeID string) {
	if m.cache == nil {
		return
	}
	if err := m.cache.Invalidate(ctx, showtimeID); err != nil {
		logger.Warn("空席数キャッシュの無効化に失敗", zap.String("showtime_id", showtimeID), zap.Error(err))
	}
}

// existingHold は全座席が同じ会員の同じ有効な確保に属していればそれを返す
func existingHold(seats []*seat.Seat, holderID string, now time.Time) *seat.Hold {
	if len(seats) == 0 || !seats[0].IsHeldBy(holderID, now) {
		return nil
	}
	token := seats[0].HoldToken
	expiresAt := *seats[0].HoldExpiresAt
	amount := decimal.Zero
	labels := make([]string, 0, len(seats))
	for _, s := range seats {
		if !s.IsHeldBy(holderID, now) || s.HoldToken != token {
			return nil
		}
		if s.HoldExpiresAt.Before(expiresAt) {
			expiresAt = *s.HoldExpiresAt
		}
		amount = amount.Add(s.Price)
		labels = append(labels, s.Label)
	}
	return &seat.Hold{
		Token:      token,
		ShowtimeID: seats[0].ShowtimeID,
		Labels:     labels,
		HolderID:   holderID,
		ExpiresAt:  expiresAt,
		Amount:     amount,
	}
}

func normalizeLabels(labels []string) ([]string, error) {
	if len(labels) == 0 {
		return nil, apperror.Invalid("座席を1つ以上指定してください")
	}
	for _, l := range labels {
		if l == "" {
			return nil, apperror.Invalid("座席ラベルは必須です")
		}
	}
	sorted := keylock.Normalize(labels)
	if len(sorted) != len(labels) {
		return nil, apperror.Invalid("同じ座席が重複しています")
	}
	return sorted, nil
}

func seatKeys(showtimeID string, labels []string) []string {
	keys := make([]string, len(labels))
	for i, l := range labels {
		keys[i] = seat.Key(showtimeID, l)
	}
	return keys
}

func wrapSeatErr(err error, label string) error {
	if ae, ok := apperror.From(err); ok {
		return ae.WithMessage("%s（座席 %s）", ae.Message, label)
	}
	return err
}
