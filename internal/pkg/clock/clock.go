package clock

import (
	"sync"
	"time"
)

// Clock は現在時刻の取得を抽象化する
type Clock interface {
	Now() time.Time
}

// Real はシステム時刻を返す
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

// Fake はテスト用の手動で進める時計
type Fake struct {
	mu  sync.Mutex
	now time.Time
}

// NewFake は指定時刻で止まった時計を作成する
func NewFake(t time.Time) *Fake {
	return &Fake{now: t}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance は時計を d だけ進める
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

// Set は時計を t に合わせる
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	f.now = t
	f.mu.Unlock()
}
