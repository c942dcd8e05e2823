package memory

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sanosuguru/go-citizen-card-booking/internal/domain/wallet"
)

type WalletRepository struct {
	mu       sync.RWMutex
	accounts map[string]*wallet.Account
	entries  []*wallet.Entry
	byTx     map[string][]int
}

func NewWalletRepository() *WalletRepository {
	return &WalletRepository{
		accounts: make(map[string]*wallet.Account),
		byTx:     make(map[string][]int),
	}
}

func (r *WalletRepository) GetAccount(ctx context.Context, id string) (*wallet.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, wallet.ErrAccountNotFound
	}
	c := *a
	return &c, nil
}

func (r *WalletRepository) SaveAccount(ctx context.Context, a *wallet.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *a
	r.accounts[a.ID] = &c
	return nil
}

func (r *WalletRepository) AppendEntries(ctx context.Context, entries []*wallet.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkDuplicates(entries); err != nil {
		return err
	}
	r.append(entries)
	return nil
}

func (r *WalletRepository) ReverseTx(ctx context.Context, txID string, compensating []*wallet.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx, ok := r.byTx[txID]
	if !ok {
		return wallet.ErrTransactionNotFound
	}
	if err := r.checkDuplicates(compensating); err != nil {
		return err
	}
	for _, i := range idx {
		r.entries[i].Status = wallet.EntryReversed
	}
	r.append(compensating)
	return nil
}

func (r *WalletRepository) EntriesByTx(ctx context.Context, txID string) ([]*wallet.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*wallet.Entry, 0, len(r.byTx[txID]))
	for _, i := range r.byTx[txID] {
		out = append(out, r.entries[i].Clone())
	}
	return out, nil
}

func (r *WalletRepository) ListEntries(ctx context.Context, accountID string, limit, offset int) ([]*wallet.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*wallet.Entry
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].AccountID == accountID {
			out = append(out, r.entries[i].Clone())
		}
	}
	return paginate(out, limit, offset), nil
}

func (r *WalletRepository) SumApplied(ctx context.Context, accountID string) (decimal.Decimal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sum := decimal.Zero
	for _, e := range r.entries {
		if e.AccountID == accountID && e.IsApplied() {
			sum = sum.Add(e.Amount)
		}
	}
	return sum, nil
}

func (r *WalletRepository) SumSpendSince(ctx context.Context, accountID string, since time.Time) (decimal.Decimal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sum := decimal.Zero
	for _, e := range r.entries {
		if e.AccountID == accountID && e.IsSpend() && !e.CreatedAt.Before(since) {
			sum = sum.Sub(e.Amount)
		}
	}
	return sum, nil
}

func (r *WalletRepository) checkDuplicates(entries []*wallet.Entry) error {
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		k := e.TxID + "\x00" + e.AccountID
		if _, ok := seen[k]; ok {
			return wallet.ErrDuplicateTransaction
		}
		seen[k] = struct{}{}
		for _, i := range r.byTx[e.TxID] {
			if r.entries[i].AccountID == e.AccountID {
				return wallet.ErrDuplicateTransaction
			}
		}
	}
	return nil
}

func (r *WalletRepository) append(entries []*wallet.Entry) {
	for _, e := range entries {
		r.entries = append(r.entries, e.Clone())
		r.byTx[e.TxID] = append(r.byTx[e.TxID], len(r.entries)-1)
	}
}

var _ wallet.Repository = (*WalletRepository)(nil)
