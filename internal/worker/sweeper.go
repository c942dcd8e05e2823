package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-citizen-card-booking/internal/pkg/logger"
)

// BookingExpirer は支払い期限を過ぎた予約を失効させる
type BookingExpirer interface {
	ExpireStale(ctx context.Context) (int, error)
}

// HoldReaper は期限切れの座席確保を解放する
type HoldReaper interface {
	ReapExpired(ctx context.Context) (int, error)
}

// Sweeper は期限切れの予約と座席確保を定期的に片付けるワーカー
type Sweeper struct {
	bookings BookingExpirer
	holds    HoldReaper
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewSweeper は新しいスイーパーを作成
func NewSweeper(bookings BookingExpirer, holds HoldReaper, interval time.Duration) *Sweeper {
	return &Sweeper{
		bookings: bookings,
		holds:    holds,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start はスイーパーを開始
func (s *Sweeper) Start(ctx context.Context) {
	logger.Info("期限切れスイーパー開始", zap.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	defer close(s.doneCh)

	for {
		select {
		case <-ctx.Done():
			logger.Info("期限切れスイーパー停止（コンテキストキャンセル）")
			return
		case <-s.stopCh:
			logger.Info("期限切れスイーパー停止（シグナル受信）")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// Stop はスイーパーを停止
func (s *Sweeper) Stop() {
	close(s.stopCh)
	<-s.doneCh
}

// sweep は予約を先に失効させ、残った座席確保を解放する
func (s *Sweeper) sweep(ctx context.Context) {
	log := logger.Named("sweeper")
	log.Debug("期限切れのクリーンアップ開始")

	expired, err := s.bookings.ExpireStale(ctx)
	if err != nil {
		log.Error("予約の失効処理に失敗", zap.Error(err))
	} else if expired > 0 {
		log.Info("支払い期限切れの予約を失効", zap.Int("count", expired))
	}

	reaped, err := s.holds.ReapExpired(ctx)
	if err != nil {
		log.Error("座席確保の解放に失敗", zap.Error(err))
		return
	}
	if reaped > 0 {
		log.Info("期限切れの座席確保を解放", zap.Int("count", reaped))
	} else if expired == 0 {
		log.Debug("期限切れなし")
	}
}
