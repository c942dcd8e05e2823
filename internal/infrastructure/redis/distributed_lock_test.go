//go:build integration

package redis

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockManager_Lock(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()

	t.Run("ロックを取得して解放できる", func(t *testing.T) {
		manager := NewLockManager(client, 5*time.Second)

		unlock, err := manager.Lock(ctx, "seat:st-1:A1", "member:m-1")
		require.NoError(t, err)

		n, err := client.Exists(ctx, lockPrefix+"seat:st-1:A1", lockPrefix+"member:m-1").Result()
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		unlock()
		unlock()

		n, err = client.Exists(ctx, lockPrefix+"seat:st-1:A1", lockPrefix+"member:m-1").Result()
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("保持中のキーは待機上限を過ぎるとエラー", func(t *testing.T) {
		holder := NewLockManager(client, 5*time.Second)
		waiter := NewLockManager(client, 200*time.Millisecond)

		unlock, err := holder.Lock(ctx, "wallet:m-2")
		require.NoError(t, err)
		defer unlock()

		_, err = waiter.Lock(ctx, "discount:SAVE10", "wallet:m-2")
		assert.ErrorIs(t, err, ErrLockNotAcquired)

		// 途中まで取得したキーは解放されている
		n, _ := client.Exists(ctx, lockPrefix+"discount:SAVE10").Result()
		assert.Zero(t, n)
	})

	t.Run("解放されれば待機中の取得が成功する", func(t *testing.T) {
		manager := NewLockManager(client, 5*time.Second)

		unlock, err := manager.Lock(ctx, "member:m-3")
		require.NoError(t, err)

		go func() {
			time.Sleep(100 * time.Millisecond)
			unlock()
		}()

		unlock2, err := manager.Lock(ctx, "member:m-3")
		require.NoError(t, err)
		unlock2()
	})

	t.Run("他の所有者のロックは解放しない", func(t *testing.T) {
		short := NewLockManager(client, 100*time.Millisecond)

		unlock, err := short.Lock(ctx, "member:m-4")
		require.NoError(t, err)
		time.Sleep(150 * time.Millisecond)

		// 失効後に別の所有者が取得
		other, err := NewLockManager(client, 5*time.Second).Lock(ctx, "member:m-4")
		require.NoError(t, err)
		defer other()

		unlock()
		n, _ := client.Exists(ctx, lockPrefix+"member:m-4").Result()
		assert.Equal(t, int64(1), n)
	})

	t.Run("同時に取得しても排他される", func(t *testing.T) {
		manager := NewLockManager(client, 5*time.Second)
		var inside, maxInside int32
		var wg sync.WaitGroup

		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				unlock, err := manager.Lock(ctx, "seat:st-1:B1")
				if err != nil {
					return
				}
				cur := atomic.AddInt32(&inside, 1)
				for {
					prev := atomic.LoadInt32(&maxInside)
					if cur <= prev || atomic.CompareAndSwapInt32(&maxInside, prev, cur) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt32(&inside, -1)
				unlock()
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), maxInside)
	})
}
