package application

import (
	"context"
	"strings"
	"time"

	"github.com/sanosuguru/go-citizen-card-booking/internal/pkg/metrics"
)

// Locker はキー単位の排他制御
// 複数キーを渡した場合は辞書順に取得し、返された関数で全て解放する
type Locker interface {
	Lock(ctx context.Context, keys ...string) (func(), error)
}

// SeatCountCache は上映回の空席数キャッシュ
// GetAvailableCount はキャッシュがなければ ok=false を返す
type SeatCountCache interface {
	GetAvailableCount(ctx context.Context, showtimeID string) (count int, ok bool, err error)
	SetAvailableCount(ctx context.Context, showtimeID string, count int, ttl time.Duration) error
	Invalidate(ctx context.Context, showtimeID string) error
}

type meteredLocker struct {
	next    Locker
	metrics *metrics.Metrics
}

// WithLockMetrics はロック待ち時間を記録する Locker を返す
func WithLockMetrics(l Locker, m *metrics.Metrics) Locker {
	if m == nil {
		return l
	}
	return &meteredLocker{next: l, metrics: m}
}

func (l *meteredLocker) Lock(ctx context.Context, keys ...string) (func(), error) {
	start := time.Now()
	unlock, err := l.next.Lock(ctx, keys...)
	l.metrics.LockWaitDuration.WithLabelValues(lockScope(keys)).Observe(time.Since(start).Seconds())
	return unlock, err
}

// lockScope はキーの接頭辞（seat, wallet など）を返す
func lockScope(keys []string) string {
	if len(keys) == 0 {
		return "none"
	}
	scope, _, _ := strings.Cut(keys[0], ":")
	return scope
}

func orNoop(m *metrics.Metrics) *metrics.Metrics {
	if m == nil {
		return metrics.NewNoop()
	}
	return m
}
