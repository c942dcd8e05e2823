package keylock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedMutex_Lock(t *testing.T) {
	t.Run("同じキーは直列化される", func(t *testing.T) {
		m := New()
		var counter, maxConcurrent int32
		var wg sync.WaitGroup

		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				unlock, err := m.Lock(context.Background(), "seat:s1:A1")
				if !assert.NoError(t, err) {
					return
				}
				defer unlock()

				n := atomic.AddInt32(&counter, 1)
				for {
					cur := atomic.LoadInt32(&maxConcurrent)
					if n <= cur || atomic.CompareAndSwapInt32(&maxConcurrent, cur, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&counter, -1)
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), maxConcurrent)
		assert.Equal(t, 0, m.Len(), "使用後のキーは解放される")
	})

	t.Run("異なるキーは並行して取得できる", func(t *testing.T) {
		m := New()
		unlockA, err := m.Lock(context.Background(), "a")
		require.NoError(t, err)
		defer unlockA()

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		unlockB, err := m.Lock(ctx, "b")
		require.NoError(t, err)
		unlockB()
	})

	t.Run("逆順に要求してもデッドロックしない", func(t *testing.T) {
		m := New()
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				unlock, err := m.Lock(context.Background(), "x", "y")
				if assert.NoError(t, err) {
					unlock()
				}
			}()
			go func() {
				defer wg.Done()
				unlock, err := m.Lock(context.Background(), "y", "x")
				if assert.NoError(t, err) {
					unlock()
				}
			}()
		}

		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("deadlock")
		}
	})

	t.Run("コンテキストキャンセルで取得を諦める", func(t *testing.T) {
		m := New()
		unlock, err := m.Lock(context.Background(), "b")
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err = m.Lock(ctx, "a", "b")
		assert.ErrorIs(t, err, context.DeadlineExceeded)

		unlock()
		assert.Equal(t, 0, m.Len(), "途中まで取得したキーも解放される")
	})

	t.Run("unlockは複数回呼んでも安全", func(t *testing.T) {
		m := New()
		unlock, err := m.Lock(context.Background(), "k", "k")
		require.NoError(t, err)
		unlock()
		unlock()

		unlock2, err := m.Lock(context.Background(), "k")
		require.NoError(t, err)
		unlock2()
	})
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, Normalize([]string{"c", "a", "b", "a"}))
	assert.Empty(t, Normalize(nil))
}
