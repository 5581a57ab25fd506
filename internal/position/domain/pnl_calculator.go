package domain

// ValuationInput 估值所需的外部输入，由调用方在读取时提供，账本自身不缓存
type ValuationInput struct {
	LastPrice        float64
	MarginRate       float64
	MarginMultiplier float64
}

// PnLCalculator 盈亏与保证金计算器。
// 全部为账本当前状态加外部输入的纯函数，任何派生值都不落地，避免过期读。
type PnLCalculator struct{}

// NewPnLCalculator 创建计算器实例
func NewPnLCalculator() *PnLCalculator {
	return &PnLCalculator{}
}

// BuyHoldingCost 买方向持仓成本：Σ 开仓价 * 数量 * 合约乘数
func (c *PnLCalculator) BuyHoldingCost(p *Position) float64 {
	return holdingCost(p.BuyHoldingLots(), p.ContractMultiplier())
}

// SellHoldingCost 卖方向持仓成本
func (c *PnLCalculator) SellHoldingCost(p *Position) float64 {
	return holdingCost(p.SellHoldingLots(), p.ContractMultiplier())
}

// BuyHoldingPnL 买方向当日持仓盈亏
func (c *PnLCalculator) BuyHoldingPnL(p *Position, lastPrice float64) float64 {
	return (lastPrice - p.BuyAvgOpenPrice()) * float64(p.BuyQuantity()) * p.ContractMultiplier()
}

// SellHoldingPnL 卖方向当日持仓盈亏
func (c *PnLCalculator) SellHoldingPnL(p *Position, lastPrice float64) float64 {
	return (p.SellAvgOpenPrice() - lastPrice) * float64(p.SellQuantity()) * p.ContractMultiplier()
}

// HoldingPnL 当日持仓盈亏
func (c *PnLCalculator) HoldingPnL(p *Position, lastPrice float64) float64 {
	return c.BuyHoldingPnL(p, lastPrice) + c.SellHoldingPnL(p, lastPrice)
}

// RealizedPnL 当日平仓盈亏
func (c *PnLCalculator) RealizedPnL(p *Position) float64 {
	return p.BuyRealizedPnL() + p.SellRealizedPnL()
}

// DailyPnL 当日盈亏 = 持仓盈亏 + 平仓盈亏
func (c *PnLCalculator) DailyPnL(p *Position, lastPrice float64) float64 {
	return c.HoldingPnL(p, lastPrice) + c.RealizedPnL(p)
}

// BuyPnL 买方向累计盈亏（相对开仓均价）
func (c *PnLCalculator) BuyPnL(p *Position, lastPrice float64) float64 {
	return c.BuyHoldingPnL(p, lastPrice)
}

// SellPnL 卖方向累计盈亏
func (c *PnLCalculator) SellPnL(p *Position, lastPrice float64) float64 {
	return c.SellHoldingPnL(p, lastPrice)
}

// PnL 累计盈亏
func (c *PnLCalculator) PnL(p *Position, lastPrice float64) float64 {
	return c.BuyPnL(p, lastPrice) + c.SellPnL(p, lastPrice)
}

// BuyMargin 买方向持仓保证金 = 持仓成本 * 保证金率 * 保证金系数
func (c *PnLCalculator) BuyMargin(p *Position, in ValuationInput) float64 {
	return c.BuyHoldingCost(p) * in.MarginRate * in.MarginMultiplier
}

// SellMargin 卖方向持仓保证金
func (c *PnLCalculator) SellMargin(p *Position, in ValuationInput) float64 {
	return c.SellHoldingCost(p) * in.MarginRate * in.MarginMultiplier
}

// Margin 占用保证金
// TODO 单向大边收取需要交易所规则表支持，目前按双边全额收取
func (c *PnLCalculator) Margin(p *Position, in ValuationInput) float64 {
	return c.BuyMargin(p, in) + c.SellMargin(p, in)
}

// BuyAvgHoldingPrice 买方向持仓均价，持仓为 0 时读作 0
func (c *PnLCalculator) BuyAvgHoldingPrice(p *Position) float64 {
	quantity := p.BuyQuantity()
	if quantity == 0 {
		return 0
	}
	return c.BuyHoldingCost(p) / float64(quantity) / p.ContractMultiplier()
}

// SellAvgHoldingPrice 卖方向持仓均价，持仓为 0 时读作 0
func (c *PnLCalculator) SellAvgHoldingPrice(p *Position) float64 {
	quantity := p.SellQuantity()
	if quantity == 0 {
		return 0
	}
	return c.SellHoldingCost(p) / float64(quantity) / p.ContractMultiplier()
}

// TransactionCost 当日累计佣金
func (c *PnLCalculator) TransactionCost(p *Position) float64 {
	return p.BuyTransactionCost() + p.SellTransactionCost()
}

// ClosableBuyQuantity 可平买方向持仓 = 买持仓 - 卖方向平仓挂单量
func (c *PnLCalculator) ClosableBuyQuantity(p *Position, openOrders []OpenOrder) int64 {
	return p.BuyQuantity() - SellCloseOrderQuantity(openOrders)
}

// ClosableSellQuantity 可平卖方向持仓 = 卖持仓 - 买方向平仓挂单量
func (c *PnLCalculator) ClosableSellQuantity(p *Position, openOrders []OpenOrder) int64 {
	return p.SellQuantity() - BuyCloseOrderQuantity(openOrders)
}

// BuyOpenOrderQuantity 买方向开仓挂单量
func BuyOpenOrderQuantity(openOrders []OpenOrder) int64 {
	return sumOrderQuantity(openOrders, SideBuy, false)
}

// SellOpenOrderQuantity 卖方向开仓挂单量
func SellOpenOrderQuantity(openOrders []OpenOrder) int64 {
	return sumOrderQuantity(openOrders, SideSell, false)
}

// BuyCloseOrderQuantity 买方向平仓挂单量
func BuyCloseOrderQuantity(openOrders []OpenOrder) int64 {
	return sumOrderQuantity(openOrders, SideBuy, true)
}

// SellCloseOrderQuantity 卖方向平仓挂单量
func SellCloseOrderQuantity(openOrders []OpenOrder) int64 {
	return sumOrderQuantity(openOrders, SideSell, true)
}

func sumOrderQuantity(openOrders []OpenOrder, side Side, closing bool) int64 {
	var total int64
	for _, order := range openOrders {
		if order.Side != side {
			continue
		}
		if order.Effect.IsClose() != closing {
			continue
		}
		total += order.UnfilledQuantity
	}
	return total
}

func holdingCost(lots []Lot, multiplier float64) float64 {
	var cost float64
	for _, lot := range lots {
		cost += lot.Price * float64(lot.Quantity) * multiplier
	}
	return cost
}
