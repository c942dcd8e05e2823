package wallet

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Repository はウォレット口座と仕訳のリポジトリ
// 仕訳は追記のみで削除しない
type Repository interface {
	// GetAccount は口座を取得する。存在しなければ ErrAccountNotFound
	GetAccount(ctx context.Context, id string) (*Account, error)

	// SaveAccount は口座を作成または更新する
	SaveAccount(ctx context.Context, a *Account) error

	// AppendEntries は仕訳をまとめて追記する（全件成功か全件失敗）
	// 同じ (txId, 口座) の仕訳が既にあれば ErrDuplicateTransaction
	AppendEntries(ctx context.Context, entries []*Entry) error

	// ReverseTx は txId の仕訳を REVERSED にし、取消仕訳を追記する（アトミック）
	ReverseTx(ctx context.Context, txID string, compensating []*Entry) error

	// EntriesByTx は txId の仕訳を取得する。存在しなければ空
	EntriesByTx(ctx context.Context, txID string) ([]*Entry, error)

	// ListEntries は口座の仕訳を新しい順に取得する
	ListEntries(ctx context.Context, accountID string, limit, offset int) ([]*Entry, error)

	// SumApplied は口座の残高（反映済み仕訳の合計）を返す
	SumApplied(ctx context.Context, accountID string) (decimal.Decimal, error)

	// SumSpendSince は since 以降に確定した出金額の合計（正の値）を返す
	SumSpendSince(ctx context.Context, accountID string, since time.Time) (decimal.Decimal, error)
}
