package application

import (
	"context"
)

// PositionService 持仓账本门面，整合命令和查询服务
type PositionService struct {
	Command *PositionCommandService
	Query   *PositionQueryService
}

// NewPositionService 构造函数
func NewPositionService(command *PositionCommandService, query *PositionQueryService) *PositionService {
	return &PositionService{
		Command: command,
		Query:   query,
	}
}

// --- Command (Writes) ---

// ApplyTrade 一笔成交入账
func (s *PositionService) ApplyTrade(ctx context.Context, cmd ApplyTradeCommand) error {
	return s.Command.ApplyTrade(ctx, cmd)
}

// Settle 日终结算
func (s *PositionService) Settle(ctx context.Context, cmd SettleCommand) error {
	return s.Command.Settle(ctx, cmd)
}

// --- Query (Reads) ---

// GetPosition 查询单个合约持仓
func (s *PositionService) GetPosition(ctx context.Context, instrumentID string) (*PositionDTO, error) {
	return s.Query.GetPosition(ctx, instrumentID)
}

// ListPositions 分页查询持仓
func (s *PositionService) ListPositions(ctx context.Context, limit, offset int) ([]*PositionDTO, int64, error) {
	return s.Query.ListPositions(ctx, limit, offset)
}
