// Package keylock はキー単位の排他制御をプロセス内で提供する。
package keylock

import (
	"context"
	"sort"
	"sync"
)

type entry struct {
	ch   chan struct{}
	refs int
}

// KeyedMutex はキーごとに独立したロックを持つミューテックス
// 使われなくなったキーのエントリは解放される
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// New は新しい KeyedMutex を作成する
func New() *KeyedMutex {
	return &KeyedMutex{entries: make(map[string]*entry)}
}

// Lock は指定されたキーをすべて取得する
// キーは重複を除いて辞書順に取得するため、複数キーを同時に要求してもデッドロックしない
// ctx がキャンセルされた場合は取得済みのキーを解放してエラーを返す
func (m *KeyedMutex) Lock(ctx context.Context, keys ...string) (func(), error) {
	sorted := Normalize(keys)
	held := make([]*entry, 0, len(sorted))

	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			<-held[i].ch
			m.unref(sorted[i])
		}
	}

	for _, k := range sorted {
		e := m.ref(k)
		select {
		case e.ch <- struct{}{}:
			held = append(held, e)
		case <-ctx.Done():
			m.unref(k)
			release()
			return nil, ctx.Err()
		}
	}

	var once sync.Once
	return func() { once.Do(release) }, nil
}

// Len は現在管理しているキーの数を返す
func (m *KeyedMutex) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *KeyedMutex) ref(key string) *entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		m.entries[key] = e
	}
	e.refs++
	return e
}

func (m *KeyedMutex) unref(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return
	}
	e.refs--
	if e.refs == 0 {
		delete(m.entries, key)
	}
}

// Normalize はキーの重複を除き辞書順に並べ替えたコピーを返す
func Normalize(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
