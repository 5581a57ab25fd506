package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/wyfcoding/futuresledger/internal/position/application"
	"github.com/wyfcoding/futuresledger/internal/position/domain"
)

// Settler 日终结算的命令入口
type Settler interface {
	Settle(ctx context.Context, cmd application.SettleCommand) error
}

// SettlementTriggerHandler 消费清算服务的结算触发事件。
// 结算价缺失等失败必须返回错误重试，跳过会让今仓错误地滚入下一日。
type SettlementTriggerHandler struct {
	cmd    Settler
	logger *slog.Logger
}

// NewSettlementTriggerHandler 创建处理器
func NewSettlementTriggerHandler(cmd Settler, logger *slog.Logger) *SettlementTriggerHandler {
	return &SettlementTriggerHandler{cmd: cmd, logger: logger}
}

// Handle 处理一条结算触发消息
func (h *SettlementTriggerHandler) Handle(ctx context.Context, msg kafka.Message) error {
	var payload struct {
		InstrumentID string `json:"instrument_id"`
		TradingDate  string `json:"trading_date"`
	}

	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		h.logger.ErrorContext(ctx, "failed to unmarshal settlement trigger event", "error", err)
		return nil
	}

	err := h.cmd.Settle(ctx, application.SettleCommand{InstrumentID: payload.InstrumentID})
	if err != nil {
		// 未入账的合约重试也不会出现，丢弃消息即可
		if errors.Is(err, domain.ErrPositionNotFound) {
			h.logger.WarnContext(ctx, "settlement trigger for untracked instrument",
				"instrument_id", payload.InstrumentID,
				"trading_date", payload.TradingDate,
			)
			return nil
		}
		h.logger.ErrorContext(ctx, "failed to settle from event",
			"instrument_id", payload.InstrumentID,
			"trading_date", payload.TradingDate,
			"error", err,
		)
		return err
	}
	return nil
}
