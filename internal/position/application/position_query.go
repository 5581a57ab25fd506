package application

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/futuresledger/internal/position/domain"
	"github.com/wyfcoding/futuresledger/pkg/logger"
)

// PositionQueryService 持仓读取与估值。
// 派生值（盈亏、保证金、可平量）每次读取时用最新行情现算，不落地。
type PositionQueryService struct {
	repo             domain.PositionRepository
	marginTable      domain.MarginTable
	marketData       domain.MarketData
	orderBook        domain.OpenOrderBook
	marginMultiplier float64
	calc             *domain.PnLCalculator
}

// NewPositionQueryService 创建查询服务
func NewPositionQueryService(
	repo domain.PositionRepository,
	marginTable domain.MarginTable,
	marketData domain.MarketData,
	orderBook domain.OpenOrderBook,
	marginMultiplier float64,
) *PositionQueryService {
	return &PositionQueryService{
		repo:             repo,
		marginTable:      marginTable,
		marketData:       marketData,
		orderBook:        orderBook,
		marginMultiplier: marginMultiplier,
		calc:             domain.NewPnLCalculator(),
	}
}

// GetPosition 查询单个合约的持仓视图；未建仓返回 (nil, nil)
func (q *PositionQueryService) GetPosition(ctx context.Context, instrumentID string) (*PositionDTO, error) {
	position, err := q.repo.Get(ctx, instrumentID)
	if err != nil {
		return nil, fmt.Errorf("load position %s: %w", instrumentID, err)
	}
	if position == nil {
		return nil, nil
	}
	return q.toDTO(ctx, position), nil
}

// ListPositions 分页查询持仓视图
func (q *PositionQueryService) ListPositions(ctx context.Context, limit, offset int) ([]*PositionDTO, int64, error) {
	positions, total, err := q.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list positions: %w", err)
	}

	dtos := make([]*PositionDTO, 0, len(positions))
	for _, position := range positions {
		dtos = append(dtos, q.toDTO(ctx, position))
	}
	return dtos, total, nil
}

// toDTO 组装持仓视图。行情、保证金率或挂单不可得时相应字段置零并记日志，
// 不让读路径因外部依赖失败而整体报错。
func (q *PositionQueryService) toDTO(ctx context.Context, position *domain.Position) *PositionDTO {
	instrumentID := position.InstrumentID()

	lastPrice, err := q.marketData.LastPrice(ctx, instrumentID)
	if err != nil {
		logger.Warn(ctx, "last price unavailable", "instrument_id", instrumentID, "error", err)
		lastPrice = 0
	}

	marginRate, err := q.marginTable.Rate(ctx, instrumentID)
	if err != nil {
		logger.Warn(ctx, "margin rate unavailable", "instrument_id", instrumentID, "error", err)
		marginRate = 0
	}

	openOrders, err := q.orderBook.Query(ctx, instrumentID)
	if err != nil {
		logger.Warn(ctx, "open orders unavailable", "instrument_id", instrumentID, "error", err)
		openOrders = nil
	}

	in := domain.ValuationInput{
		LastPrice:        lastPrice,
		MarginRate:       marginRate,
		MarginMultiplier: q.marginMultiplier,
	}

	dto := &PositionDTO{
		InstrumentID:       instrumentID,
		ContractMultiplier: position.ContractMultiplier(),

		BuyQuantity:       position.BuyQuantity(),
		BuyOldQuantity:    position.BuyOldQuantity(),
		BuyTodayQuantity:  position.BuyTodayQuantity(),
		SellQuantity:      position.SellQuantity(),
		SellOldQuantity:   position.SellOldQuantity(),
		SellTodayQuantity: position.SellTodayQuantity(),

		BuyAvgOpenPrice:     formatAmount(position.BuyAvgOpenPrice()),
		SellAvgOpenPrice:    formatAmount(position.SellAvgOpenPrice()),
		BuyAvgHoldingPrice:  formatAmount(q.calc.BuyAvgHoldingPrice(position)),
		SellAvgHoldingPrice: formatAmount(q.calc.SellAvgHoldingPrice(position)),

		BuyHoldingPnL:   formatAmount(q.calc.BuyHoldingPnL(position, lastPrice)),
		SellHoldingPnL:  formatAmount(q.calc.SellHoldingPnL(position, lastPrice)),
		HoldingPnL:      formatAmount(q.calc.HoldingPnL(position, lastPrice)),
		BuyRealizedPnL:  formatAmount(position.BuyRealizedPnL()),
		SellRealizedPnL: formatAmount(position.SellRealizedPnL()),
		RealizedPnL:     formatAmount(q.calc.RealizedPnL(position)),
		DailyPnL:        formatAmount(q.calc.DailyPnL(position, lastPrice)),
		PnL:             formatAmount(q.calc.PnL(position, lastPrice)),
		TransactionCost: formatAmount(q.calc.TransactionCost(position)),

		BuyMargin:  formatAmount(q.calc.BuyMargin(position, in)),
		SellMargin: formatAmount(q.calc.SellMargin(position, in)),
		Margin:     formatAmount(q.calc.Margin(position, in)),

		ClosableBuyQuantity:  q.calc.ClosableBuyQuantity(position, openOrders),
		ClosableSellQuantity: q.calc.ClosableSellQuantity(position, openOrders),
	}
	if lastPrice > 0 {
		dto.LastPrice = formatAmount(lastPrice)
	}
	return dto
}

func formatAmount(v float64) string {
	return decimal.NewFromFloat(v).String()
}
