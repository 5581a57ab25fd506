package domain

// Position 单一合约的期货持仓账本聚合根。
// 买卖两个方向各自独立持仓（同一合约可同时有多头与空头敞口），
// 每个方向再按昨仓/今仓分桶。所有变更都由 ApplyTrade 与 ApplySettlement 驱动，
// 同一合约的成交必须严格按成交顺序应用。
type Position struct {
	instrumentID       string
	contractMultiplier float64

	buyOld    LotQueue
	buyToday  LotQueue
	sellOld   LotQueue
	sellToday LotQueue

	buyAvgOpenPrice  float64
	sellAvgOpenPrice float64

	// 平仓佣金与平仓盈亏记入被减仓方向的累加器（SELL 平多记入 buy 侧），
	// 与交易所结算单的口径保持一致。
	buyTransactionCost  float64
	sellTransactionCost float64
	buyRealizedPnL      float64
	sellRealizedPnL     float64
}

// NewPosition 创建某一合约的空持仓
func NewPosition(instrumentID string, contractMultiplier float64) *Position {
	return &Position{
		instrumentID:       instrumentID,
		contractMultiplier: contractMultiplier,
	}
}

// InstrumentID 合约代码
func (p *Position) InstrumentID() string {
	return p.instrumentID
}

// ContractMultiplier 合约乘数
func (p *Position) ContractMultiplier() float64 {
	return p.contractMultiplier
}

// ApplyTrade 将一笔成交应用到账本。
// 开仓更新加权开仓均价并把新 Lot 压入今仓队首；
// 平仓先整体校验数量（要么全部成交，要么拒绝），再按昨仓优先、桶内先开先平
// 的顺序消耗对手方向的 Lot。失败时账本保持原状。
func (p *Position) ApplyTrade(trade Trade) error {
	if trade.Quantity <= 0 {
		return ErrInvalidTradeQuantity
	}

	switch {
	case trade.Side == SideBuy && trade.Effect == EffectOpen:
		p.buyAvgOpenPrice = nextAvgOpenPrice(p.buyAvgOpenPrice, p.BuyQuantity(), trade.Price, trade.Quantity)
		p.buyTransactionCost += trade.Commission
		p.buyToday.PushFront(trade.Price, trade.Quantity)

	case trade.Side == SideSell && trade.Effect == EffectOpen:
		p.sellAvgOpenPrice = nextAvgOpenPrice(p.sellAvgOpenPrice, p.SellQuantity(), trade.Price, trade.Quantity)
		p.sellTransactionCost += trade.Commission
		p.sellToday.PushFront(trade.Price, trade.Quantity)

	case trade.Side == SideBuy && trade.Effect.IsClose():
		// 买平消耗空头持仓，盈亏与佣金记入 sell 侧累加器
		if trade.Quantity > p.SellQuantity() {
			return ErrInsufficientPosition
		}
		p.sellTransactionCost += trade.Commission
		p.sellRealizedPnL += p.closeHolding(&p.sellOld, &p.sellToday, SideSell, trade.Price, trade.Quantity)

	case trade.Side == SideSell && trade.Effect.IsClose():
		// 卖平消耗多头持仓，盈亏与佣金记入 buy 侧累加器
		if trade.Quantity > p.BuyQuantity() {
			return ErrInsufficientPosition
		}
		p.buyTransactionCost += trade.Commission
		p.buyRealizedPnL += p.closeHolding(&p.buyOld, &p.buyToday, SideBuy, trade.Price, trade.Quantity)

	default:
		return ErrInvalidTradeEffect
	}
	return nil
}

// closeHolding 先平昨仓再平今仓，返回本笔成交的平仓盈亏。
// 逐笔明细用 Lot 自身的开仓价与成交价比较，两个方向公式对称。
func (p *Position) closeHolding(old, today *LotQueue, holdingSide Side, tradePrice float64, quantity int64) float64 {
	consumed := old.Consume(quantity)
	left := quantity
	for _, chunk := range consumed {
		left -= chunk.Quantity
	}
	consumed = append(consumed, today.Consume(left)...)

	var delta float64
	for _, chunk := range consumed {
		if holdingSide == SideSell {
			delta += (chunk.Price - tradePrice) * float64(chunk.Quantity) * p.contractMultiplier
		} else {
			delta += (tradePrice - chunk.Price) * float64(chunk.Quantity) * p.contractMultiplier
		}
	}
	return delta
}

// ApplySettlement 日终结算：把每个方向的昨仓+今仓坍缩为结算价上的单一昨仓，
// 并清零当日佣金与平仓盈亏累加器。开仓均价保留，跨结算仍可读取。
// 每个交易日最后一笔成交之后、下一交易日第一笔成交之前调用一次。
func (p *Position) ApplySettlement(settlementPrice float64) error {
	if settlementPrice <= 0 {
		return ErrSettlementPriceUnavailable
	}

	buyQuantity := p.BuyQuantity()
	sellQuantity := p.SellQuantity()

	p.buyOld.Reset()
	p.buyToday.Reset()
	p.sellOld.Reset()
	p.sellToday.Reset()
	if buyQuantity > 0 {
		p.buyOld.PushFront(settlementPrice, buyQuantity)
	}
	if sellQuantity > 0 {
		p.sellOld.PushFront(settlementPrice, sellQuantity)
	}

	p.buyTransactionCost = 0
	p.sellTransactionCost = 0
	p.buyRealizedPnL = 0
	p.sellRealizedPnL = 0
	return nil
}

// CloseTodayQuantity 一笔平仓中必须按平今计费的数量：超出对手方向昨仓的部分
func (p *Position) CloseTodayQuantity(side Side, quantity int64) int64 {
	var closeToday int64
	if side == SideSell {
		closeToday = quantity - p.BuyOldQuantity()
	} else {
		closeToday = quantity - p.SellOldQuantity()
	}
	if closeToday < 0 {
		return 0
	}
	return closeToday
}

// BuyQuantity 买方向持仓
func (p *Position) BuyQuantity() int64 {
	return p.buyOld.Quantity() + p.buyToday.Quantity()
}

// SellQuantity 卖方向持仓
func (p *Position) SellQuantity() int64 {
	return p.sellOld.Quantity() + p.sellToday.Quantity()
}

// BuyOldQuantity 买方向昨仓
func (p *Position) BuyOldQuantity() int64 {
	return p.buyOld.Quantity()
}

// SellOldQuantity 卖方向昨仓
func (p *Position) SellOldQuantity() int64 {
	return p.sellOld.Quantity()
}

// BuyTodayQuantity 买方向今仓
func (p *Position) BuyTodayQuantity() int64 {
	return p.buyToday.Quantity()
}

// SellTodayQuantity 卖方向今仓
func (p *Position) SellTodayQuantity() int64 {
	return p.sellToday.Quantity()
}

// BuyAvgOpenPrice 买方向加权开仓均价，持仓为 0 时读作 0
func (p *Position) BuyAvgOpenPrice() float64 {
	if p.BuyQuantity() == 0 {
		return 0
	}
	return p.buyAvgOpenPrice
}

// SellAvgOpenPrice 卖方向加权开仓均价，持仓为 0 时读作 0
func (p *Position) SellAvgOpenPrice() float64 {
	if p.SellQuantity() == 0 {
		return 0
	}
	return p.sellAvgOpenPrice
}

// BuyTransactionCost 买侧当日累计佣金
func (p *Position) BuyTransactionCost() float64 {
	return p.buyTransactionCost
}

// SellTransactionCost 卖侧当日累计佣金
func (p *Position) SellTransactionCost() float64 {
	return p.sellTransactionCost
}

// BuyRealizedPnL 买侧当日平仓盈亏
func (p *Position) BuyRealizedPnL() float64 {
	return p.buyRealizedPnL
}

// SellRealizedPnL 卖侧当日平仓盈亏
func (p *Position) SellRealizedPnL() float64 {
	return p.sellRealizedPnL
}

// BuyHoldingLots 买方向全部 Lot（昨仓在前）
func (p *Position) BuyHoldingLots() []Lot {
	return append(p.buyOld.Lots(), p.buyToday.Lots()...)
}

// SellHoldingLots 卖方向全部 Lot（昨仓在前）
func (p *Position) SellHoldingLots() []Lot {
	return append(p.sellOld.Lots(), p.sellToday.Lots()...)
}

// PositionState Position 的可持久化快照
type PositionState struct {
	InstrumentID        string
	ContractMultiplier  float64
	BuyOld              []Lot
	BuyToday            []Lot
	SellOld             []Lot
	SellToday           []Lot
	BuyAvgOpenPrice     float64
	SellAvgOpenPrice    float64
	BuyTransactionCost  float64
	SellTransactionCost float64
	BuyRealizedPnL      float64
	SellRealizedPnL     float64
}

// State 导出当前快照，供仓储持久化
func (p *Position) State() PositionState {
	return PositionState{
		InstrumentID:        p.instrumentID,
		ContractMultiplier:  p.contractMultiplier,
		BuyOld:              p.buyOld.Lots(),
		BuyToday:            p.buyToday.Lots(),
		SellOld:             p.sellOld.Lots(),
		SellToday:           p.sellToday.Lots(),
		BuyAvgOpenPrice:     p.buyAvgOpenPrice,
		SellAvgOpenPrice:    p.sellAvgOpenPrice,
		BuyTransactionCost:  p.buyTransactionCost,
		SellTransactionCost: p.sellTransactionCost,
		BuyRealizedPnL:      p.buyRealizedPnL,
		SellRealizedPnL:     p.sellRealizedPnL,
	}
}

// RestorePosition 从快照重建持仓
func RestorePosition(state PositionState) *Position {
	p := NewPosition(state.InstrumentID, state.ContractMultiplier)
	p.buyOld.Reset(state.BuyOld...)
	p.buyToday.Reset(state.BuyToday...)
	p.sellOld.Reset(state.SellOld...)
	p.sellToday.Reset(state.SellToday...)
	p.buyAvgOpenPrice = state.BuyAvgOpenPrice
	p.sellAvgOpenPrice = state.SellAvgOpenPrice
	p.buyTransactionCost = state.BuyTransactionCost
	p.sellTransactionCost = state.SellTransactionCost
	p.buyRealizedPnL = state.BuyRealizedPnL
	p.sellRealizedPnL = state.SellRealizedPnL
	return p
}

// nextAvgOpenPrice 开仓后的加权均价；quantity > 0 保证分母不为 0
func nextAvgOpenPrice(avg float64, held int64, price float64, quantity int64) float64 {
	return (avg*float64(held) + price*float64(quantity)) / float64(held+quantity)
}
