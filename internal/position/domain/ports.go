package domain

import (
	"context"
	"time"
)

// InstrumentRepository 合约基础信息（由行情/基础数据服务维护，这里只读）
type InstrumentRepository interface {
	// ContractMultiplier 合约乘数
	ContractMultiplier(ctx context.Context, instrumentID string) (float64, error)
}

// MarginTable 保证金率表
type MarginTable interface {
	// Rate 合约当前保证金率
	Rate(ctx context.Context, instrumentID string) (float64, error)
}

// MarketData 行情快照
type MarketData interface {
	// LastPrice 最新价
	LastPrice(ctx context.Context, instrumentID string) (float64, error)
	// SettlementPrice 指定交易日的结算价；不可得时返回包装过的
	// ErrSettlementPriceUnavailable
	SettlementPrice(ctx context.Context, instrumentID string, tradingDate time.Time) (float64, error)
}

// OpenOrderBook 指定合约当前未成交挂单
type OpenOrderBook interface {
	Query(ctx context.Context, instrumentID string) ([]OpenOrder, error)
}

// TradingCalendar 交易日历
type TradingCalendar interface {
	// CurrentTradingDate 当前交易日（零点对齐）
	CurrentTradingDate(ctx context.Context) time.Time
}
