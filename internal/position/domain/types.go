package domain

import "errors"

// Side 成交/挂单方向
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Valid 是否为合法方向
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// Opposite 相反方向
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// PositionEffect 开平标志
type PositionEffect string

const (
	EffectOpen       PositionEffect = "OPEN"
	EffectClose      PositionEffect = "CLOSE"
	EffectCloseToday PositionEffect = "CLOSE_TODAY"
)

// Valid 是否为合法开平标志
func (e PositionEffect) Valid() bool {
	return e == EffectOpen || e == EffectClose || e == EffectCloseToday
}

// IsClose 是否为平仓类标志
func (e PositionEffect) IsClose() bool {
	return e == EffectClose || e == EffectCloseToday
}

// Trade 一笔已确认的成交回报
type Trade struct {
	TradeID      string
	InstrumentID string
	Side         Side
	Effect       PositionEffect
	Price        float64
	Quantity     int64
	Commission   float64
}

// OpenOrder 未成交挂单的账本视角摘要
type OpenOrder struct {
	Side             Side
	Effect           PositionEffect
	UnfilledQuantity int64
}

var (
	// ErrInsufficientPosition 平仓数量超过可平持仓，整笔拒绝
	ErrInsufficientPosition = errors.New("position: insufficient position to close")
	// ErrInvalidTradeEffect 成交的方向/开平标志组合不合法
	ErrInvalidTradeEffect = errors.New("position: invalid trade effect")
	// ErrInvalidTradeQuantity 成交数量必须为正
	ErrInvalidTradeQuantity = errors.New("position: trade quantity must be positive")
	// ErrSettlementPriceUnavailable 结算价缺失或非正
	ErrSettlementPriceUnavailable = errors.New("position: settlement price unavailable")
	// ErrPositionNotFound 账本中不存在该合约的持仓
	ErrPositionNotFound = errors.New("position: position not found")
)
