package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wyfcoding/futuresledger/internal/position/domain"
	"github.com/wyfcoding/futuresledger/pkg/logger"
)

// LedgerMetrics 命令侧需要的业务指标
type LedgerMetrics interface {
	RecordTradeApplied()
	RecordTradeRejection(reason string)
	RecordSettlement()
	UpdateOpenPositions(count int64)
}

// noopMetrics 指标的空实现，测试与降级场景使用
type noopMetrics struct{}

func (noopMetrics) RecordTradeApplied()         {}
func (noopMetrics) RecordTradeRejection(string) {}
func (noopMetrics) RecordSettlement()           {}
func (noopMetrics) UpdateOpenPositions(int64)   {}

// PositionCommandService 处理持仓账本的命令操作。
// 同一合约的成交必须按序入账，这里用单把互斥锁串行化全部写入。
type PositionCommandService struct {
	mu        sync.Mutex
	positions map[string]*domain.Position

	repo        domain.PositionRepository
	instruments domain.InstrumentRepository
	marketData  domain.MarketData
	calendar    domain.TradingCalendar
	publisher   domain.EventPublisher
	metrics     LedgerMetrics
}

// NewPositionCommandService 创建命令服务
func NewPositionCommandService(
	repo domain.PositionRepository,
	instruments domain.InstrumentRepository,
	marketData domain.MarketData,
	calendar domain.TradingCalendar,
	publisher domain.EventPublisher,
	metrics LedgerMetrics,
) *PositionCommandService {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &PositionCommandService{
		positions:   make(map[string]*domain.Position),
		repo:        repo,
		instruments: instruments,
		marketData:  marketData,
		calendar:    calendar,
		publisher:   publisher,
		metrics:     metrics,
	}
}

// ApplyTrade 一笔成交入账。首笔成交会自动建仓并发布 PositionOpened 事件。
func (c *PositionCommandService) ApplyTrade(ctx context.Context, cmd ApplyTradeCommand) error {
	if cmd.InstrumentID == "" {
		return errors.New("instrument_id is required")
	}

	trade := toTrade(cmd)
	if !trade.Side.Valid() || !trade.Effect.Valid() {
		c.metrics.RecordTradeRejection("invalid_effect")
		return fmt.Errorf("trade %s: %w", cmd.TradeID, domain.ErrInvalidTradeEffect)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	position, created, err := c.getOrCreateLocked(ctx, cmd.InstrumentID)
	if err != nil {
		return err
	}

	realizedBefore := position.BuyRealizedPnL() + position.SellRealizedPnL()

	if err := position.ApplyTrade(trade); err != nil {
		c.metrics.RecordTradeRejection(rejectionReason(err))
		return fmt.Errorf("trade %s: %w", cmd.TradeID, err)
	}

	if err := c.repo.Save(ctx, position); err != nil {
		return fmt.Errorf("save position %s: %w", cmd.InstrumentID, err)
	}

	if created && c.publisher != nil {
		opened := domain.PositionOpenedEvent{
			InstrumentID:       position.InstrumentID(),
			ContractMultiplier: position.ContractMultiplier(),
			OccurredOn:         time.Now(),
		}
		if err := c.publisher.Publish(ctx, domain.PositionOpenedEventType, position.InstrumentID(), opened); err != nil {
			return fmt.Errorf("publish %s: %w", domain.PositionOpenedEventType, err)
		}
	}

	if c.publisher != nil {
		applied := domain.TradeAppliedEvent{
			InstrumentID:     position.InstrumentID(),
			TradeID:          trade.TradeID,
			Side:             string(trade.Side),
			Effect:           string(trade.Effect),
			Price:            trade.Price,
			Quantity:         trade.Quantity,
			Commission:       trade.Commission,
			BuyQuantity:      position.BuyQuantity(),
			SellQuantity:     position.SellQuantity(),
			BuyAvgOpenPrice:  position.BuyAvgOpenPrice(),
			SellAvgOpenPrice: position.SellAvgOpenPrice(),
			RealizedPnLDelta: position.BuyRealizedPnL() + position.SellRealizedPnL() - realizedBefore,
			OccurredOn:       time.Now(),
		}
		if err := c.publisher.Publish(ctx, domain.TradeAppliedEventType, position.InstrumentID(), applied); err != nil {
			return fmt.Errorf("publish %s: %w", domain.TradeAppliedEventType, err)
		}
	}

	c.metrics.RecordTradeApplied()
	c.metrics.UpdateOpenPositions(c.openPositionCountLocked())

	logger.Debug(ctx, "trade applied",
		"instrument_id", position.InstrumentID(),
		"trade_id", trade.TradeID,
		"side", trade.Side,
		"effect", trade.Effect,
		"quantity", trade.Quantity,
	)
	return nil
}

// Settle 对指定合约（或全部持仓）执行日终结算。
// 单个合约失败不中断其余合约，所有错误聚合后一并返回。
func (c *PositionCommandService) Settle(ctx context.Context, cmd SettleCommand) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tradingDate := c.calendar.CurrentTradingDate(ctx)

	var targets []*domain.Position
	if cmd.InstrumentID != "" {
		// 结算只作用于已入账的持仓，未知合约直接拒绝而不是建一个空仓
		position, err := c.loadLocked(ctx, cmd.InstrumentID)
		if err != nil {
			return err
		}
		if position == nil {
			return fmt.Errorf("settle %s: %w", cmd.InstrumentID, domain.ErrPositionNotFound)
		}
		targets = append(targets, position)
	} else {
		all, _, err := c.repo.List(ctx, 0, 0)
		if err != nil {
			return fmt.Errorf("list positions: %w", err)
		}
		for _, position := range all {
			cached, ok := c.positions[position.InstrumentID()]
			if !ok {
				cached = position
				c.positions[position.InstrumentID()] = position
			}
			targets = append(targets, cached)
		}
	}

	var errs []error
	for _, position := range targets {
		if err := c.settleOneLocked(ctx, position, tradingDate); err != nil {
			errs = append(errs, err)
		}
	}

	c.metrics.UpdateOpenPositions(c.openPositionCountLocked())
	return errors.Join(errs...)
}

func (c *PositionCommandService) settleOneLocked(ctx context.Context, position *domain.Position, tradingDate time.Time) error {
	instrumentID := position.InstrumentID()

	settlementPrice, err := c.marketData.SettlementPrice(ctx, instrumentID, tradingDate)
	if err != nil {
		return fmt.Errorf("settle %s: %w", instrumentID, err)
	}

	if err := position.ApplySettlement(settlementPrice); err != nil {
		return fmt.Errorf("settle %s: %w", instrumentID, err)
	}

	if err := c.repo.Save(ctx, position); err != nil {
		return fmt.Errorf("settle %s: save: %w", instrumentID, err)
	}

	if c.publisher != nil {
		settled := domain.PositionSettledEvent{
			InstrumentID:    instrumentID,
			TradingDate:     tradingDate.Format("2006-01-02"),
			SettlementPrice: settlementPrice,
			BuyQuantity:     position.BuyQuantity(),
			SellQuantity:    position.SellQuantity(),
			OccurredOn:      time.Now(),
		}
		if err := c.publisher.Publish(ctx, domain.PositionSettledEventType, instrumentID, settled); err != nil {
			return fmt.Errorf("settle %s: publish: %w", instrumentID, err)
		}
	}

	c.metrics.RecordSettlement()
	logger.Info(ctx, "position settled",
		"instrument_id", instrumentID,
		"trading_date", tradingDate.Format("2006-01-02"),
		"settlement_price", settlementPrice,
	)
	return nil
}

// loadLocked 读缓存、仓储；不存在时返回 (nil, nil)。调用方需持有 c.mu。
func (c *PositionCommandService) loadLocked(ctx context.Context, instrumentID string) (*domain.Position, error) {
	if position, ok := c.positions[instrumentID]; ok {
		return position, nil
	}

	position, err := c.repo.Get(ctx, instrumentID)
	if err != nil {
		return nil, fmt.Errorf("load position %s: %w", instrumentID, err)
	}
	if position != nil {
		c.positions[instrumentID] = position
	}
	return position, nil
}

// getOrCreateLocked 在 loadLocked 之上补建新仓：不存在时用合约乘数建仓。调用方需持有 c.mu。
func (c *PositionCommandService) getOrCreateLocked(ctx context.Context, instrumentID string) (*domain.Position, bool, error) {
	position, err := c.loadLocked(ctx, instrumentID)
	if err != nil {
		return nil, false, err
	}
	if position != nil {
		return position, false, nil
	}

	multiplier, err := c.instruments.ContractMultiplier(ctx, instrumentID)
	if err != nil {
		return nil, false, fmt.Errorf("contract multiplier %s: %w", instrumentID, err)
	}

	position = domain.NewPosition(instrumentID, multiplier)
	c.positions[instrumentID] = position
	return position, true, nil
}

func (c *PositionCommandService) openPositionCountLocked() int64 {
	var count int64
	for _, position := range c.positions {
		if position.BuyQuantity() > 0 || position.SellQuantity() > 0 {
			count++
		}
	}
	return count
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInsufficientPosition):
		return "insufficient_position"
	case errors.Is(err, domain.ErrInvalidTradeEffect):
		return "invalid_effect"
	case errors.Is(err, domain.ErrInvalidTradeQuantity):
		return "invalid_quantity"
	default:
		return "other"
	}
}
