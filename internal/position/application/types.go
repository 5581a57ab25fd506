package application

import (
	"github.com/wyfcoding/futuresledger/internal/position/domain"
)

// ApplyTradeCommand 一笔成交入账命令
type ApplyTradeCommand struct {
	TradeID      string
	InstrumentID string
	Side         string
	Effect       string
	Price        float64
	Quantity     int64
	Commission   float64
}

// SettleCommand 日终结算命令；InstrumentID 为空时结算全部持仓
type SettleCommand struct {
	InstrumentID string
}

// PositionDTO 持仓视图
type PositionDTO struct {
	InstrumentID       string  `json:"instrument_id"`
	ContractMultiplier float64 `json:"contract_multiplier"`

	BuyQuantity       int64 `json:"buy_quantity"`
	BuyOldQuantity    int64 `json:"buy_old_quantity"`
	BuyTodayQuantity  int64 `json:"buy_today_quantity"`
	SellQuantity      int64 `json:"sell_quantity"`
	SellOldQuantity   int64 `json:"sell_old_quantity"`
	SellTodayQuantity int64 `json:"sell_today_quantity"`

	BuyAvgOpenPrice     string `json:"buy_avg_open_price"`
	SellAvgOpenPrice    string `json:"sell_avg_open_price"`
	BuyAvgHoldingPrice  string `json:"buy_avg_holding_price"`
	SellAvgHoldingPrice string `json:"sell_avg_holding_price"`

	LastPrice       string `json:"last_price,omitempty"`
	BuyHoldingPnL   string `json:"buy_holding_pnl"`
	SellHoldingPnL  string `json:"sell_holding_pnl"`
	HoldingPnL      string `json:"holding_pnl"`
	BuyRealizedPnL  string `json:"buy_realized_pnl"`
	SellRealizedPnL string `json:"sell_realized_pnl"`
	RealizedPnL     string `json:"realized_pnl"`
	DailyPnL        string `json:"daily_pnl"`
	PnL             string `json:"pnl"`
	TransactionCost string `json:"transaction_cost"`

	BuyMargin  string `json:"buy_margin"`
	SellMargin string `json:"sell_margin"`
	Margin     string `json:"margin"`

	ClosableBuyQuantity  int64 `json:"closable_buy_quantity"`
	ClosableSellQuantity int64 `json:"closable_sell_quantity"`
}

func toTrade(cmd ApplyTradeCommand) domain.Trade {
	return domain.Trade{
		TradeID:      cmd.TradeID,
		InstrumentID: cmd.InstrumentID,
		Side:         domain.Side(cmd.Side),
		Effect:       domain.PositionEffect(cmd.Effect),
		Price:        cmd.Price,
		Quantity:     cmd.Quantity,
		Commission:   cmd.Commission,
	}
}
