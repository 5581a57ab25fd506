package domain

import "time"

const (
	PositionOpenedEventType  = "PositionOpened"
	TradeAppliedEventType    = "PositionTradeApplied"
	PositionSettledEventType = "PositionSettled"
)

// PositionOpenedEvent 首笔成交触发建仓
type PositionOpenedEvent struct {
	InstrumentID       string    `json:"instrument_id"`
	ContractMultiplier float64   `json:"contract_multiplier"`
	OccurredOn         time.Time `json:"occurred_on"`
}

// TradeAppliedEvent 一笔成交已入账
type TradeAppliedEvent struct {
	InstrumentID     string    `json:"instrument_id"`
	TradeID          string    `json:"trade_id"`
	Side             string    `json:"side"`
	Effect           string    `json:"effect"`
	Price            float64   `json:"price"`
	Quantity         int64     `json:"quantity"`
	Commission       float64   `json:"commission"`
	BuyQuantity      int64     `json:"buy_quantity"`
	SellQuantity     int64     `json:"sell_quantity"`
	BuyAvgOpenPrice  float64   `json:"buy_avg_open_price"`
	SellAvgOpenPrice float64   `json:"sell_avg_open_price"`
	RealizedPnLDelta float64   `json:"realized_pnl_delta"`
	OccurredOn       time.Time `json:"occurred_on"`
}

// PositionSettledEvent 日终结算已完成
type PositionSettledEvent struct {
	InstrumentID    string    `json:"instrument_id"`
	TradingDate     string    `json:"trading_date"`
	SettlementPrice float64   `json:"settlement_price"`
	BuyQuantity     int64     `json:"buy_quantity"`
	SellQuantity    int64     `json:"sell_quantity"`
	OccurredOn      time.Time `json:"occurred_on"`
}
