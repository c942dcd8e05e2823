package showtime

import "context"

// Repository は上映回リポジトリのインターフェース
type Repository interface {
	// Create は新しい上映回を作成する
	Create(ctx context.Context, s *Showtime) error

	// GetByID はIDから上映回を取得する
	GetByID(ctx context.Context, id string) (*Showtime, error)

	// List は開始時刻順に上映回一覧を取得する
	List(ctx context.Context, limit, offset int) ([]*Showtime, error)

	// Update は上映回を更新する
	Update(ctx context.Context, s *Showtime) error
}
