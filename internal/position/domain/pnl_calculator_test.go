package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHoldingCostAndMargin(t *testing.T) {
	t.Parallel()

	calc := NewPnLCalculator()
	p := NewPosition("IF2609", 10)
	require.NoError(t, p.ApplyTrade(buyOpen(100, 5)))

	in := ValuationInput{MarginRate: 0.1, MarginMultiplier: 1}

	assert.InDelta(t, 5*100.0*10, calc.BuyHoldingCost(p), 1e-9)
	assert.InDelta(t, 5000*0.1*1, calc.BuyMargin(p, in), 1e-9)
	assert.InDelta(t, 0, calc.SellMargin(p, in), 1e-9)
	assert.InDelta(t, 500, calc.Margin(p, in), 1e-9)
}

func TestMarginMultiplierScales(t *testing.T) {
	t.Parallel()

	calc := NewPnLCalculator()
	p := NewPosition("IF2609", 10)
	require.NoError(t, p.ApplyTrade(buyOpen(100, 5)))

	in := ValuationInput{MarginRate: 0.1, MarginMultiplier: 1.5}
	assert.InDelta(t, 5000*0.1*1.5, calc.BuyMargin(p, in), 1e-9)
}

func TestHoldingPnL(t *testing.T) {
	t.Parallel()

	calc := NewPnLCalculator()
	p := NewPosition("IF2609", 1)
	require.NoError(t, p.ApplyTrade(buyOpen(100, 10)))
	require.NoError(t, p.ApplyTrade(sellOpen(120, 6)))

	// 多头随价格上涨赚钱，空头相反
	assert.InDelta(t, (105-100.0)*10, calc.BuyHoldingPnL(p, 105), 1e-9)
	assert.InDelta(t, (120-105.0)*6, calc.SellHoldingPnL(p, 105), 1e-9)
	assert.InDelta(t, 50+90, calc.HoldingPnL(p, 105), 1e-9)
}

func TestDailyPnL(t *testing.T) {
	t.Parallel()

	calc := NewPnLCalculator()
	p := NewPosition("IF2609", 1)
	require.NoError(t, p.ApplyTrade(buyOpen(100, 10)))
	require.NoError(t, p.ApplyTrade(sellClose(105, 8))) // 实现盈亏 +40

	last := 107.0
	wantHolding := calc.HoldingPnL(p, last)
	assert.InDelta(t, 40, calc.RealizedPnL(p), 1e-9)
	assert.InDelta(t, wantHolding+40, calc.DailyPnL(p, last), 1e-9)
	assert.InDelta(t, wantHolding, calc.PnL(p, last), 1e-9)
}

func TestAvgHoldingPrice(t *testing.T) {
	t.Parallel()

	calc := NewPnLCalculator()
	p := NewPosition("IF2609", 10)
	require.NoError(t, p.ApplyTrade(buyOpen(100, 6)))
	require.NoError(t, p.ApplyTrade(buyOpen(109, 3)))

	assert.InDelta(t, (6*100.0+3*109.0)/9, calc.BuyAvgHoldingPrice(p), 1e-9)

	// 无持仓方向读作 0，不报除零
	assert.InDelta(t, 0, calc.SellAvgHoldingPrice(p), 1e-9)
}

func TestAvgPriceZeroGuards(t *testing.T) {
	t.Parallel()

	calc := NewPnLCalculator()
	p := NewPosition("IF2609", 1)

	assert.InDelta(t, 0, p.BuyAvgOpenPrice(), 1e-9)
	assert.InDelta(t, 0, p.SellAvgOpenPrice(), 1e-9)
	assert.InDelta(t, 0, calc.BuyAvgHoldingPrice(p), 1e-9)
	assert.InDelta(t, 0, calc.SellAvgHoldingPrice(p), 1e-9)
}

func TestTransactionCost(t *testing.T) {
	t.Parallel()

	calc := NewPnLCalculator()
	p := NewPosition("IF2609", 1)

	open := buyOpen(100, 10)
	open.Commission = 2.5
	require.NoError(t, p.ApplyTrade(open))

	closing := sellClose(101, 4)
	closing.Commission = 1.5
	require.NoError(t, p.ApplyTrade(closing))

	assert.InDelta(t, 4, calc.TransactionCost(p), 1e-9)
}

func TestClosableQuantities(t *testing.T) {
	t.Parallel()

	calc := NewPnLCalculator()
	p := NewPosition("IF2609", 1)
	require.NoError(t, p.ApplyTrade(buyOpen(100, 10)))
	require.NoError(t, p.ApplyTrade(sellOpen(110, 6)))

	openOrders := []OpenOrder{
		{Side: SideSell, Effect: EffectClose, UnfilledQuantity: 3},      // 占用可平多
		{Side: SideSell, Effect: EffectCloseToday, UnfilledQuantity: 1}, // 同上
		{Side: SideBuy, Effect: EffectClose, UnfilledQuantity: 2},       // 占用可平空
		{Side: SideBuy, Effect: EffectOpen, UnfilledQuantity: 5},        // 开仓挂单不占用
	}

	assert.Equal(t, int64(10-4), calc.ClosableBuyQuantity(p, openOrders))
	assert.Equal(t, int64(6-2), calc.ClosableSellQuantity(p, openOrders))

	assert.Equal(t, int64(5), BuyOpenOrderQuantity(openOrders))
	assert.Equal(t, int64(0), SellOpenOrderQuantity(openOrders))
	assert.Equal(t, int64(2), BuyCloseOrderQuantity(openOrders))
	assert.Equal(t, int64(4), SellCloseOrderQuantity(openOrders))
}
