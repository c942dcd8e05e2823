package seat

import (
	"context"
	"time"
)

// Repository は座席リポジトリのインターフェース
type Repository interface {
	// CreateBulk は複数の座席を一括作成する
	CreateBulk(ctx context.Context, seats []*Seat) error

	// GetMany は指定ラベルの座席を要求順に取得する。1つでも存在しなければ ErrSeatNotFound
	GetMany(ctx context.Context, showtimeID string, labels []string) ([]*Seat, error)

	// ListByShowtime は上映回の全座席をラベル順に取得する
	ListByShowtime(ctx context.Context, showtimeID string) ([]*Seat, error)

	// ListExpiredHolds は now 時点で期限切れの確保を持つ座席を取得する
	ListExpiredHolds(ctx context.Context, now time.Time, limit int) ([]*Seat, error)

	// UpdateAll は座席をまとめて更新する（楽観的ロック、全件成功か全件失敗）
	UpdateAll(ctx context.Context, seats []*Seat) error
}
