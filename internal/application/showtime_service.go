package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sanosuguru/go-citizen-card-booking/internal/domain/seat"
	"github.com/sanosuguru/go-citizen-card-booking/internal/domain/showtime"
	"github.com/sanosuguru/go-citizen-card-booking/internal/pkg/apperror"
	"github.com/sanosuguru/go-citizen-card-booking/internal/pkg/clock"
	"github.com/sanosuguru/go-citizen-card-booking/internal/pkg/logger"
)

const (
	seatCacheTTL   = 30 * time.Second
	maxRows        = 26
	maxSeatsPerRow = 60
)

type ShowtimeService struct {
	showtimes showtime.Repository
	seats     seat.Repository
	cache     SeatCountCache
	clock     clock.Clock
	group     singleflight.Group
}

func NewShowtimeService(sr showtime.Repository, seats seat.Repository, cache SeatCountCache, c clock.Clock) *ShowtimeService {
	return &ShowtimeService{showtimes: sr, seats: seats, cache: cache, clock: c}
}

// CreateShowtimeInput は上映回作成の入力
// 座席は Rows 行 × SeatsPerRow 席で、ラベルは A1, A2, ..., B1 のように振る
type CreateShowtimeInput struct {
	MovieTitle  string
	Hall        string
	StartsAt    time.Time
	EndsAt      time.Time
	Rows        int
	SeatsPerRow int
	Price       decimal.Decimal
}

func (s *ShowtimeService) CreateShowtime(ctx context.Context, input CreateShowtimeInput) (*showtime.Showtime, []*seat.Seat, error) {
	if input.Rows <= 0 || input.Rows > maxRows {
		return nil, nil, apperror.Invalid("行数は1から%dの範囲で指定してください", maxRows)
	}
	if input.SeatsPerRow <= 0 || input.SeatsPerRow > maxSeatsPerRow {
		return nil, nil, apperror.Invalid("1行の席数は1から%dの範囲で指定してください", maxSeatsPerRow)
	}

	now := s.clock.Now()
	st := showtime.NewShowtime(uuid.NewString(), input.MovieTitle, input.Hall, input.StartsAt, input.EndsAt, now)
	if err := st.Validate(); err != nil {
		return nil, nil, err
	}

	seats := make([]*seat.Seat, 0, input.Rows*input.SeatsPerRow)
	for r := 0; r < input.Rows; r++ {
		row := string(rune('A' + r))
		for n := 1; n <= input.SeatsPerRow; n++ {
			se := seat.NewSeat(st.ID, fmt.Sprintf("%s%d", row, n), input.Price, now)
			if err := se.Validate(); err != nil {
				return nil, nil, err
			}
			seats = append(seats, se)
		}
	}

	if err := s.showtimes.Create(ctx, st); err != nil {
		return nil, nil, fmt.Errorf("上映回作成に失敗しました: %w", err)
	}
	if err := s.seats.CreateBulk(ctx, seats); err != nil {
		return nil, nil, fmt.Errorf("座席作成に失敗しました: %w", err)
	}
	logger.Info("上映回を作成しました",
		zap.String("showtime_id", st.ID),
		zap.String("movie", st.MovieTitle),
		zap.Int("seats", len(seats)),
	)
	return st, seats, nil
}

func (s *ShowtimeService) GetShowtime(ctx context.Context, id string) (*showtime.Showtime, error) {
	return s.showtimes.GetByID(ctx, id)
}

func (s *ShowtimeService) ListShowtimes(ctx context.Context, limit, offset int) ([]*showtime.Showtime, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.showtimes.List(ctx, limit, offset)
}

// CloseShowtime は上映回の販売を終了する。確定済みの予約には影響しない
func (s *ShowtimeService) CloseShowtime(ctx context.Context, id string) (*showtime.Showtime, error) {
	st, err := s.showtimes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if st.Status == showtime.StatusClosed {
		return st, nil
	}
	st.Close(s.clock.Now())
	if err := s.showtimes.Update(ctx, st); err != nil {
		return nil, err
	}
	s.InvalidateCache(ctx, id)
	return st, nil
}

// GetSeats は上映回の座席を現在の有効な状態で返す
func (s *ShowtimeService) GetSeats(ctx context.Context, showtimeID string) ([]SeatAvailability, error) {
	if _, err := s.showtimes.GetByID(ctx, showtimeID); err != nil {
		return nil, err
	}
	seats, err := s.seats.ListByShowtime(ctx, showtimeID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	out := make([]SeatAvailability, 0, len(seats))
	for _, se := range seats {
		out = append(out, SeatAvailability{Label: se.Label, Status: se.EffectiveStatus(now), Price: se.Price})
	}
	return out, nil
}

// CountAvailable は上映回の空席数を返す
// キャッシュがなければ同時リクエストを1回の集計にまとめる
func (s *ShowtimeService) CountAvailable(ctx context.Context, showtimeID string) (int, error) {
	if s.cache != nil {
		count, ok, err := s.cache.GetAvailableCount(ctx, showtimeID)
		if err != nil {
			logger.Warn("キャッシュ取得エラー", zap.Error(err))
		}
		if ok {
			logger.Debug("キャッシュヒット", zap.String("showtime_id", showtimeID), zap.Int("count", count))
			return count, nil
		}
	}

	v, err, _ := s.group.Do(showtimeID, func() (any, error) {
		return s.countFromStore(ctx, showtimeID)
	})
	if err != nil {
		return 0, err
	}
	count := v.(int)

	if s.cache != nil {
		if cacheErr := s.cache.SetAvailableCount(ctx, showtimeID, count, seatCacheTTL); cacheErr != nil {
			logger.Warn("キャッシュ保存エラー", zap.Error(cacheErr))
		}
	}
	return count, nil
}

func (s *ShowtimeService) countFromStore(ctx context.Context, showtimeID string) (int, error) {
	seats, err := s.seats.ListByShowtime(ctx, showtimeID)
	if err != nil {
		return 0, err
	}
	now := s.clock.Now()
	n := 0
	for _, se := range seats {
		if se.IsFree(now) {
			n++
		}
	}
	return n, nil
}

// InvalidateCache は上映回のキャッシュを無効化する
func (s *ShowtimeService) InvalidateCache(ctx context.Context, showtimeID string) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, showtimeID); err != nil {
			logger.Warn("キャッシュ無効化エラー", zap.Error(err))
		}
	}
}
