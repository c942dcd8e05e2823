package redis

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-citizen-card-booking/internal/pkg/apperror"
	"github.com/sanosuguru/go-citizen-card-booking/internal/pkg/keylock"
	"github.com/sanosuguru/go-citizen-card-booking/internal/pkg/logger"
)

const (
	lockPrefix        = "lock:"
	defaultRetryDelay = 20 * time.Millisecond
	releaseTimeout    = 2 * time.Second
)

// ErrLockNotAcquired は待機時間内にロックを取得できなかったことを表す
var ErrLockNotAcquired = &apperror.Error{
	Kind:      apperror.KindSystem,
	Code:      "LOCK_TIMEOUT",
	Status:    http.StatusServiceUnavailable,
	Message:   "処理が混み合っています",
	Retryable: true,
}

// 所有者確認と削除をアトミックに実行する
var releaseScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

// LockManager は Redis を使用した分散ロック
// 複数インスタンス間で application.Locker と同じ契約を提供する
type LockManager struct {
	client     *redis.Client
	ttl        time.Duration
	maxWait    time.Duration
	retryDelay time.Duration
}

// NewLockManager は新しい LockManager を作成する
// ttl はロックの自動失効時間で、取得の待機上限も ttl とする
func NewLockManager(client *redis.Client, ttl time.Duration) *LockManager {
	return &LockManager{
		client:     client,
		ttl:        ttl,
		maxWait:    ttl,
		retryDelay: defaultRetryDelay,
	}
}

// Lock はキーを辞書順に取得する。途中で失敗すれば取得済みのキーを解放する
func (m *LockManager) Lock(ctx context.Context, keys ...string) (func(), error) {
	sorted := keylock.Normalize(keys)
	token := uuid.New().String()
	deadline := time.Now().Add(m.maxWait)

	held := make([]string, 0, len(sorted))
	for _, k := range sorted {
		if err := m.acquire(ctx, lockPrefix+k, token, deadline); err != nil {
			m.release(held, token)
			return nil, err
		}
		held = append(held, lockPrefix+k)
	}

	var once sync.Once
	return func() { once.Do(func() { m.release(held, token) }) }, nil
}

// acquire は SetNX を deadline まで繰り返す
func (m *LockManager) acquire(ctx context.Context, key, token string, deadline time.Time) error {
	for {
		ok, err := m.client.SetNX(ctx, key, token, m.ttl).Result()
		if err != nil {
			return fmt.Errorf("ロック取得に失敗: %w", err)
		}
		if ok {
			return nil
		}
		if !time.Now().Before(deadline) {
			return ErrLockNotAcquired.WithMessage("ロック %s を取得できませんでした", key)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.retryDelay):
		}
	}
}

func (m *LockManager) release(keys []string, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()

	for i := len(keys) - 1; i >= 0; i-- {
		n, err := releaseScript.Run(ctx, m.client, []string{keys[i]}, token).Int()
		if err != nil && !errors.Is(err, redis.Nil) {
			logger.Warn("ロック解放に失敗しました", zap.String("key", keys[i]), zap.Error(err))
			continue
		}
		if n == 0 {
			logger.Warn("ロックは既に失効していました", zap.String("key", keys[i]))
		}
	}
}
