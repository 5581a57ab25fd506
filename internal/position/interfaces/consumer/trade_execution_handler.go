package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/wyfcoding/futuresledger/internal/position/application"
	"github.com/wyfcoding/futuresledger/internal/position/domain"
)

// TradeApplier 成交入账的命令入口
type TradeApplier interface {
	ApplyTrade(ctx context.Context, cmd application.ApplyTradeCommand) error
}

// TradeExecutionHandler 消费执行服务的成交回报并写入账本。
// 账本拒绝（仓位不足、非法标志）属于永久性失败：记日志后吞掉，
// 避免毒消息卡死分区；其余错误原样返回交给上层重试。
type TradeExecutionHandler struct {
	cmd    TradeApplier
	logger *slog.Logger
}

// NewTradeExecutionHandler 创建处理器
func NewTradeExecutionHandler(cmd TradeApplier, logger *slog.Logger) *TradeExecutionHandler {
	return &TradeExecutionHandler{cmd: cmd, logger: logger}
}

// Handle 处理一条成交回报消息
func (h *TradeExecutionHandler) Handle(ctx context.Context, msg kafka.Message) error {
	var payload struct {
		TradeID      string `json:"trade_id"`
		InstrumentID string `json:"instrument_id"`
		Side         string `json:"side"`
		Effect       string `json:"effect"`
		Price        string `json:"price"`
		Quantity     int64  `json:"quantity"`
		Commission   string `json:"commission"`
	}

	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		h.logger.ErrorContext(ctx, "failed to unmarshal trade execution event", "error", err)
		return nil
	}
	if payload.TradeID == "" || payload.InstrumentID == "" {
		return nil
	}

	price, err := decimal.NewFromString(payload.Price)
	if err != nil {
		h.logger.ErrorContext(ctx, "invalid trade price", "trade_id", payload.TradeID, "price", payload.Price, "error", err)
		return nil
	}

	commission := decimal.Zero
	if payload.Commission != "" {
		commission, err = decimal.NewFromString(payload.Commission)
		if err != nil {
			h.logger.ErrorContext(ctx, "invalid trade commission", "trade_id", payload.TradeID, "commission", payload.Commission, "error", err)
			return nil
		}
	}

	err = h.cmd.ApplyTrade(ctx, application.ApplyTradeCommand{
		TradeID:      payload.TradeID,
		InstrumentID: payload.InstrumentID,
		Side:         payload.Side,
		Effect:       payload.Effect,
		Price:        price.InexactFloat64(),
		Quantity:     payload.Quantity,
		Commission:   commission.InexactFloat64(),
	})
	if err != nil {
		if isPermanentRejection(err) {
			h.logger.ErrorContext(ctx, "trade rejected by ledger", "trade_id", payload.TradeID, "error", err)
			return nil
		}
		h.logger.ErrorContext(ctx, "failed to apply trade from event", "trade_id", payload.TradeID, "error", err)
		return err
	}
	return nil
}

func isPermanentRejection(err error) bool {
	return errors.Is(err, domain.ErrInsufficientPosition) ||
		errors.Is(err, domain.ErrInvalidTradeEffect) ||
		errors.Is(err, domain.ErrInvalidTradeQuantity)
}
