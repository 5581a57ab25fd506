package domain

import "context"

// PositionRepository 持仓快照仓储。
// Get 未找到时返回 (nil, nil)，由上层决定是否建仓。
type PositionRepository interface {
	Save(ctx context.Context, position *Position) error
	Get(ctx context.Context, instrumentID string) (*Position, error)
	List(ctx context.Context, limit, offset int) ([]*Position, int64, error)
}
