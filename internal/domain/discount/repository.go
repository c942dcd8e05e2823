package discount

import "context"

// Repository は割引コードと利用記録のリポジトリ
type Repository interface {
	// Create は割引コードを登録する。既存なら ErrDiscountExists
	Create(ctx context.Context, d *Discount) error

	// Get はコードから割引を取得する
	Get(ctx context.Context, code string) (*Discount, error)

	// CreateRedemption は利用記録を作成する
	CreateRedemption(ctx context.Context, r *Redemption) error

	// GetRedemption はIDから利用記録を取得する
	GetRedemption(ctx context.Context, id string) (*Redemption, error)

	// UpdateRedemption は利用記録の状態を更新する
	UpdateRedemption(ctx context.Context, r *Redemption) error

	// FindActiveByOrder は注文に紐づく有効な利用記録を取得する
	FindActiveByOrder(ctx context.Context, code, orderID string) (*Redemption, error)

	// CountActive は有効な利用記録の件数を返す
	CountActive(ctx context.Context, code string) (int, error)

	// HasActiveForMember は会員が有効な利用記録を持っているかを返す
	HasActiveForMember(ctx context.Context, code, memberID string) (bool, error)
}
