package booking

import "context"

// Repository は予約リポジトリのインターフェース
type Repository interface {
	// Create は新しい予約を作成する。同じIDが存在すれば ErrBookingExists
	Create(ctx context.Context, b *Booking) error

	// GetByID はIDから予約を取得する
	GetByID(ctx context.Context, id string) (*Booking, error)

	// Update は予約を更新する
	Update(ctx context.Context, b *Booking) error

	// ListByMember は会員の予約一覧を新しい順に取得する
	ListByMember(ctx context.Context, memberID string, limit, offset int) ([]*Booking, error)

	// ListActiveByMember は会員の支払い待ち・確定済みの予約を取得する
	ListActiveByMember(ctx context.Context, memberID string) ([]*Booking, error)

	// ListPendingPayment は支払い待ちの予約を古い順に取得する
	ListPendingPayment(ctx context.Context, limit int) ([]*Booking, error)
}
