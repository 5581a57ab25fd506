package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buyOpen(price float64, quantity int64) Trade {
	return Trade{InstrumentID: "IF2609", Side: SideBuy, Effect: EffectOpen, Price: price, Quantity: quantity}
}

func sellOpen(price float64, quantity int64) Trade {
	return Trade{InstrumentID: "IF2609", Side: SideSell, Effect: EffectOpen, Price: price, Quantity: quantity}
}

func sellClose(price float64, quantity int64) Trade {
	return Trade{InstrumentID: "IF2609", Side: SideSell, Effect: EffectClose, Price: price, Quantity: quantity}
}

func buyClose(price float64, quantity int64) Trade {
	return Trade{InstrumentID: "IF2609", Side: SideBuy, Effect: EffectClose, Price: price, Quantity: quantity}
}

func sellCloseToday(price float64, quantity int64) Trade {
	return Trade{InstrumentID: "IF2609", Side: SideSell, Effect: EffectCloseToday, Price: price, Quantity: quantity}
}

func TestApplyTradeOpenWeightedAverage(t *testing.T) {
	t.Parallel()

	p := NewPosition("IF2609", 1)

	require.NoError(t, p.ApplyTrade(buyOpen(100, 10)))
	require.NoError(t, p.ApplyTrade(buyOpen(110, 5)))

	assert.Equal(t, int64(15), p.BuyQuantity())
	assert.Equal(t, int64(15), p.BuyTodayQuantity())
	assert.Equal(t, int64(0), p.BuyOldQuantity())
	assert.InDelta(t, (10*100.0+5*110.0)/15, p.BuyAvgOpenPrice(), 1e-9)

	// 加权均价不变式：avg' * qty' == avg*qty + price*qty_trade
	assert.InDelta(t, 10*100.0+5*110.0, p.BuyAvgOpenPrice()*float64(p.BuyQuantity()), 1e-9)
}

func TestApplyTradeCloseFIFO(t *testing.T) {
	t.Parallel()

	p := NewPosition("IF2609", 1)
	require.NoError(t, p.ApplyTrade(buyOpen(100, 10)))
	require.NoError(t, p.ApplyTrade(buyOpen(110, 5)))

	// 卖平 8 手，先吃最早开仓的 100 价 Lot
	require.NoError(t, p.ApplyTrade(sellClose(105, 8)))

	assert.Equal(t, int64(7), p.BuyQuantity())
	assert.Equal(t, []Lot{{110, 5}, {100, 2}}, p.BuyHoldingLots())
	assert.InDelta(t, (105-100.0)*8, p.BuyRealizedPnL(), 1e-9)
	assert.InDelta(t, 0, p.SellRealizedPnL(), 1e-9)
}

func TestApplyTradeCloseOldBeforeToday(t *testing.T) {
	t.Parallel()

	p := NewPosition("IF2609", 1)
	require.NoError(t, p.ApplyTrade(buyOpen(100, 6)))
	require.NoError(t, p.ApplySettlement(102)) // 6 手转为 102 价昨仓
	require.NoError(t, p.ApplyTrade(buyOpen(104, 4)))

	require.Equal(t, int64(6), p.BuyOldQuantity())
	require.Equal(t, int64(4), p.BuyTodayQuantity())

	// 平 8 手：昨仓 6 手全部吃掉后才轮到今仓 2 手
	require.NoError(t, p.ApplyTrade(sellClose(106, 8)))

	assert.Equal(t, int64(0), p.BuyOldQuantity())
	assert.Equal(t, int64(2), p.BuyTodayQuantity())
	assert.InDelta(t, (106-102.0)*6+(106-104.0)*2, p.BuyRealizedPnL(), 1e-9)
}

func TestApplyTradeCloseTodayMatchesClose(t *testing.T) {
	t.Parallel()

	p := NewPosition("IF2609", 1)
	require.NoError(t, p.ApplyTrade(buyOpen(100, 6)))
	require.NoError(t, p.ApplySettlement(102)) // 6 手转为 102 价昨仓
	require.NoError(t, p.ApplyTrade(buyOpen(104, 4)))

	// 平今标志走同一套撮合：昨仓 6 手吃完才轮到今仓 2 手
	closing := sellCloseToday(106, 8)
	closing.Commission = 3
	require.NoError(t, p.ApplyTrade(closing))

	assert.Equal(t, int64(0), p.BuyOldQuantity())
	assert.Equal(t, int64(2), p.BuyTodayQuantity())
	assert.InDelta(t, (106-102.0)*6+(106-104.0)*2, p.BuyRealizedPnL(), 1e-9)

	// 佣金与盈亏仍记入被减仓方向
	assert.InDelta(t, 3, p.BuyTransactionCost(), 1e-9)
	assert.InDelta(t, 0, p.SellTransactionCost(), 1e-9)
	assert.InDelta(t, 0, p.SellRealizedPnL(), 1e-9)
}

func TestApplyTradeCloseTodayInsufficientPosition(t *testing.T) {
	t.Parallel()

	p := NewPosition("IF2609", 1)
	require.NoError(t, p.ApplyTrade(buyOpen(100, 2)))
	before := p.State()

	require.ErrorIs(t, p.ApplyTrade(sellCloseToday(101, 3)), ErrInsufficientPosition)
	assert.Equal(t, before, p.State())
}

func TestApplyTradeCloseShort(t *testing.T) {
	t.Parallel()

	p := NewPosition("IF2609", 1)
	require.NoError(t, p.ApplyTrade(sellOpen(200, 10)))

	require.NoError(t, p.ApplyTrade(buyClose(190, 4)))

	assert.Equal(t, int64(6), p.SellQuantity())
	// 平空：lot 价 - 成交价
	assert.InDelta(t, (200-190.0)*4, p.SellRealizedPnL(), 1e-9)
	assert.InDelta(t, 0, p.BuyRealizedPnL(), 1e-9)
}

func TestApplyTradeContractMultiplierScalesRealizedPnL(t *testing.T) {
	t.Parallel()

	p := NewPosition("IF2609", 10)
	require.NoError(t, p.ApplyTrade(buyOpen(100, 3)))
	require.NoError(t, p.ApplyTrade(sellClose(101, 3)))

	assert.InDelta(t, (101-100.0)*3*10, p.BuyRealizedPnL(), 1e-9)
}

func TestApplyTradeCommissionAttribution(t *testing.T) {
	t.Parallel()

	p := NewPosition("IF2609", 1)

	open := buyOpen(100, 10)
	open.Commission = 5
	require.NoError(t, p.ApplyTrade(open))

	// 开仓佣金记在本方向
	assert.InDelta(t, 5, p.BuyTransactionCost(), 1e-9)

	closing := sellClose(105, 4)
	closing.Commission = 3
	require.NoError(t, p.ApplyTrade(closing))

	// 平仓佣金记在被减仓方向：SELL 平多记入 buy 侧
	assert.InDelta(t, 8, p.BuyTransactionCost(), 1e-9)
	assert.InDelta(t, 0, p.SellTransactionCost(), 1e-9)
}

func TestApplyTradeBothSidesSimultaneously(t *testing.T) {
	t.Parallel()

	p := NewPosition("IF2609", 1)
	require.NoError(t, p.ApplyTrade(buyOpen(100, 10)))
	require.NoError(t, p.ApplyTrade(sellOpen(120, 6)))

	// 双向持仓并存，互不轧差
	assert.Equal(t, int64(10), p.BuyQuantity())
	assert.Equal(t, int64(6), p.SellQuantity())
	assert.InDelta(t, 100, p.BuyAvgOpenPrice(), 1e-9)
	assert.InDelta(t, 120, p.SellAvgOpenPrice(), 1e-9)
}

func TestApplyTradeRoundTrip(t *testing.T) {
	t.Parallel()

	p := NewPosition("IF2609", 1)
	require.NoError(t, p.ApplyTrade(buyOpen(100, 10)))
	require.NoError(t, p.ApplyTrade(buyOpen(103, 7)))
	require.NoError(t, p.ApplyTrade(sellClose(99, 17)))

	assert.Equal(t, int64(0), p.BuyQuantity())
	assert.Empty(t, p.BuyHoldingLots())
	assert.InDelta(t, 0, p.BuyAvgOpenPrice(), 1e-9)
}

func TestApplyTradeErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		prepare []Trade
		trade   Trade
		wantErr error
	}{
		{
			name:    "close more than held",
			prepare: []Trade{buyOpen(100, 5)},
			trade:   sellClose(100, 6),
			wantErr: ErrInsufficientPosition,
		},
		{
			name:    "close with no position",
			trade:   buyClose(100, 1),
			wantErr: ErrInsufficientPosition,
		},
		{
			name:    "zero quantity",
			trade:   Trade{Side: SideBuy, Effect: EffectOpen, Price: 100},
			wantErr: ErrInvalidTradeQuantity,
		},
		{
			name:    "unknown effect",
			trade:   Trade{Side: SideBuy, Effect: PositionEffect("EXERCISE"), Price: 100, Quantity: 1},
			wantErr: ErrInvalidTradeEffect,
		},
		{
			name:    "unknown side",
			trade:   Trade{Side: Side("HOLD"), Effect: EffectOpen, Price: 100, Quantity: 1},
			wantErr: ErrInvalidTradeEffect,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := NewPosition("IF2609", 1)
			for _, trade := range tt.prepare {
				require.NoError(t, p.ApplyTrade(trade))
			}
			before := p.State()

			err := p.ApplyTrade(tt.trade)

			require.ErrorIs(t, err, tt.wantErr)
			// 失败的成交不得部分入账
			assert.Equal(t, before, p.State())
		})
	}
}

func TestApplyTradeOversizedCloseLeavesLedgerUntouched(t *testing.T) {
	t.Parallel()

	p := NewPosition("IF2609", 1)
	require.NoError(t, p.ApplyTrade(buyOpen(100, 6)))
	require.NoError(t, p.ApplySettlement(101))
	require.NoError(t, p.ApplyTrade(buyOpen(102, 2)))

	oversized := sellClose(103, 9)
	oversized.Commission = 7
	require.ErrorIs(t, p.ApplyTrade(oversized), ErrInsufficientPosition)

	assert.Equal(t, int64(6), p.BuyOldQuantity())
	assert.Equal(t, int64(2), p.BuyTodayQuantity())
	assert.InDelta(t, 0, p.BuyRealizedPnL(), 1e-9)
	assert.InDelta(t, 0, p.BuyTransactionCost(), 1e-9)
}

func TestApplySettlement(t *testing.T) {
	t.Parallel()

	p := NewPosition("IF2609", 1)
	buy := buyOpen(100, 10)
	buy.Commission = 4
	require.NoError(t, p.ApplyTrade(buy))
	require.NoError(t, p.ApplyTrade(sellOpen(120, 6)))
	require.NoError(t, p.ApplyTrade(sellClose(105, 3)))

	require.NoError(t, p.ApplySettlement(108))

	// 每个方向坍缩为结算价上的单一昨仓
	assert.Equal(t, []Lot{{108, 7}}, p.BuyHoldingLots())
	assert.Equal(t, []Lot{{108, 6}}, p.SellHoldingLots())
	assert.Equal(t, int64(0), p.BuyTodayQuantity())
	assert.Equal(t, int64(0), p.SellTodayQuantity())

	// 当日累加器清零
	assert.InDelta(t, 0, p.BuyRealizedPnL(), 1e-9)
	assert.InDelta(t, 0, p.SellRealizedPnL(), 1e-9)
	assert.InDelta(t, 0, p.BuyTransactionCost(), 1e-9)
	assert.InDelta(t, 0, p.SellTransactionCost(), 1e-9)

	// 开仓均价跨结算保留
	assert.InDelta(t, 100, p.BuyAvgOpenPrice(), 1e-9)
	assert.InDelta(t, 120, p.SellAvgOpenPrice(), 1e-9)
}

func TestApplySettlementEmptySideLeavesNoZeroLot(t *testing.T) {
	t.Parallel()

	p := NewPosition("IF2609", 1)
	require.NoError(t, p.ApplyTrade(buyOpen(100, 5)))

	require.NoError(t, p.ApplySettlement(101))

	assert.Empty(t, p.SellHoldingLots())
	assert.Equal(t, []Lot{{101, 5}}, p.BuyHoldingLots())
}

func TestApplySettlementTwiceIsReaderNeutral(t *testing.T) {
	t.Parallel()

	p := NewPosition("IF2609", 1)
	require.NoError(t, p.ApplyTrade(buyOpen(100, 7)))
	require.NoError(t, p.ApplyTrade(sellOpen(120, 3)))

	require.NoError(t, p.ApplySettlement(108))
	once := p.State()

	// 同价重复结算只是把单一昨仓重建一遍，所有读数不变
	require.NoError(t, p.ApplySettlement(108))

	assert.Equal(t, once, p.State())
	assert.Equal(t, []Lot{{108, 7}}, p.BuyHoldingLots())
	assert.Equal(t, []Lot{{108, 3}}, p.SellHoldingLots())
	assert.InDelta(t, 100, p.BuyAvgOpenPrice(), 1e-9)
	assert.InDelta(t, 120, p.SellAvgOpenPrice(), 1e-9)
}

func TestApplySettlementRejectsBadPrice(t *testing.T) {
	t.Parallel()

	p := NewPosition("IF2609", 1)
	require.NoError(t, p.ApplyTrade(buyOpen(100, 5)))
	before := p.State()

	require.ErrorIs(t, p.ApplySettlement(0), ErrSettlementPriceUnavailable)
	assert.Equal(t, before, p.State())
}

func TestQuantityConservation(t *testing.T) {
	t.Parallel()

	p := NewPosition("IF2609", 1)
	trades := []Trade{
		buyOpen(100, 10),
		sellOpen(110, 4),
		buyOpen(102, 6),
		sellClose(104, 9),
		buyClose(108, 2),
		buyOpen(103, 5),
		sellClose(101, 3),
	}

	for _, trade := range trades {
		require.NoError(t, p.ApplyTrade(trade))

		var buySum, sellSum int64
		for _, lot := range p.BuyHoldingLots() {
			buySum += lot.Quantity
		}
		for _, lot := range p.SellHoldingLots() {
			sellSum += lot.Quantity
		}
		assert.Equal(t, p.BuyQuantity(), buySum)
		assert.Equal(t, p.SellQuantity(), sellSum)
	}
}

func TestCloseTodayQuantity(t *testing.T) {
	t.Parallel()

	p := NewPosition("IF2609", 1)
	require.NoError(t, p.ApplyTrade(buyOpen(100, 6)))
	require.NoError(t, p.ApplySettlement(101))
	require.NoError(t, p.ApplyTrade(buyOpen(102, 4)))

	tests := []struct {
		name     string
		side     Side
		quantity int64
		want     int64
	}{
		{"within old", SideSell, 5, 0},
		{"exactly old", SideSell, 6, 0},
		{"spills into today", SideSell, 8, 2},
		{"no short held", SideBuy, 3, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, p.CloseTodayQuantity(tt.side, tt.quantity))
		})
	}
}

func TestStateRoundTrip(t *testing.T) {
	t.Parallel()

	p := NewPosition("IF2609", 10)
	require.NoError(t, p.ApplyTrade(buyOpen(100, 6)))
	require.NoError(t, p.ApplySettlement(101))
	require.NoError(t, p.ApplyTrade(buyOpen(102, 4)))
	require.NoError(t, p.ApplyTrade(sellClose(103, 7)))

	restored := RestorePosition(p.State())

	assert.Equal(t, p.State(), restored.State())
	assert.Equal(t, p.BuyQuantity(), restored.BuyQuantity())
	assert.InDelta(t, p.BuyRealizedPnL(), restored.BuyRealizedPnL(), 1e-9)
}
