package mysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/futuresledger/internal/position/domain"
)

func TestPositionModelRoundTrip(t *testing.T) {
	t.Parallel()

	p := domain.NewPosition("cu2609", 5)
	require.NoError(t, p.ApplyTrade(domain.Trade{
		TradeID: "T-1", InstrumentID: "cu2609",
		Side: domain.SideBuy, Effect: domain.EffectOpen,
		Price: 70000, Quantity: 4, Commission: 8,
	}))
	require.NoError(t, p.ApplySettlement(70500))
	require.NoError(t, p.ApplyTrade(domain.Trade{
		TradeID: "T-2", InstrumentID: "cu2609",
		Side: domain.SideBuy, Effect: domain.EffectOpen,
		Price: 70800, Quantity: 2, Commission: 4,
	}))
	require.NoError(t, p.ApplyTrade(domain.Trade{
		TradeID: "T-3", InstrumentID: "cu2609",
		Side: domain.SideSell, Effect: domain.EffectClose,
		Price: 71000, Quantity: 3, Commission: 6,
	}))

	model := toPositionModel(p)
	restored := toPosition(model)

	assert.Equal(t, p.State(), restored.State())
}

func TestPositionModelBucketsPreserveQueueOrder(t *testing.T) {
	t.Parallel()

	p := domain.NewPosition("IF2609", 300)
	require.NoError(t, p.ApplyTrade(domain.Trade{
		TradeID: "T-1", InstrumentID: "IF2609",
		Side: domain.SideBuy, Effect: domain.EffectOpen, Price: 4000, Quantity: 2,
	}))
	require.NoError(t, p.ApplyTrade(domain.Trade{
		TradeID: "T-2", InstrumentID: "IF2609",
		Side: domain.SideBuy, Effect: domain.EffectOpen, Price: 4020, Quantity: 1,
	}))

	model := toPositionModel(p)

	var buyToday []LotModel
	for _, lot := range model.Lots {
		if lot.Bucket == lotBucketBuyToday {
			buyToday = append(buyToday, lot)
		}
	}
	require.Len(t, buyToday, 2)

	// 队首（最新开仓）Seq 为 0，恢复时按 Seq 升序得到原始顺序
	assert.Equal(t, 0, buyToday[0].Seq)
	assert.Equal(t, "4020", buyToday[0].Price.String())
	assert.Equal(t, 1, buyToday[1].Seq)
	assert.Equal(t, "4000", buyToday[1].Price.String())
}

func TestPositionModelEmptyPosition(t *testing.T) {
	t.Parallel()

	p := domain.NewPosition("IF2609", 300)
	model := toPositionModel(p)
	assert.Empty(t, model.Lots)

	restored := toPosition(model)
	assert.Equal(t, int64(0), restored.BuyQuantity())
	assert.Equal(t, int64(0), restored.SellQuantity())
}
