package mysql

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/wyfcoding/futuresledger/internal/position/domain"
)

// PositionModel MySQL 持仓表映射
type PositionModel struct {
	gorm.Model
	InstrumentID        string          `gorm:"column:instrument_id;type:varchar(32);uniqueIndex;not null"`
	ContractMultiplier  decimal.Decimal `gorm:"column:contract_multiplier;type:decimal(32,18);not null"`
	BuyAvgOpenPrice     decimal.Decimal `gorm:"column:buy_avg_open_price;type:decimal(32,18);default:0"`
	SellAvgOpenPrice    decimal.Decimal `gorm:"column:sell_avg_open_price;type:decimal(32,18);default:0"`
	BuyTransactionCost  decimal.Decimal `gorm:"column:buy_transaction_cost;type:decimal(32,18);default:0"`
	SellTransactionCost decimal.Decimal `gorm:"column:sell_transaction_cost;type:decimal(32,18);default:0"`
	BuyRealizedPnL      decimal.Decimal `gorm:"column:buy_realized_pnl;type:decimal(32,18);default:0"`
	SellRealizedPnL     decimal.Decimal `gorm:"column:sell_realized_pnl;type:decimal(32,18);default:0"`
	Lots                []LotModel      `gorm:"foreignKey:PositionID;constraint:OnDelete:CASCADE"`
}

func (PositionModel) TableName() string { return "positions" }

// Lot 桶标识
const (
	lotBucketBuyOld    = "buy_old"
	lotBucketBuyToday  = "buy_today"
	lotBucketSellOld   = "sell_old"
	lotBucketSellToday = "sell_today"
)

// LotModel MySQL 持仓明细表映射。
// Seq 为桶内从队首到队尾的序号，恢复时按 Seq 升序重建队列。
type LotModel struct {
	gorm.Model
	PositionID uint            `gorm:"column:position_id;index;not null"`
	Bucket     string          `gorm:"column:bucket;type:varchar(16);not null"`
	Seq        int             `gorm:"column:seq;not null"`
	Price      decimal.Decimal `gorm:"column:price;type:decimal(32,18);not null"`
	Quantity   int64           `gorm:"column:quantity;not null"`
}

func (LotModel) TableName() string { return "position_lots" }

// mapping helpers

func toPositionModel(p *domain.Position) *PositionModel {
	state := p.State()
	model := &PositionModel{
		InstrumentID:        state.InstrumentID,
		ContractMultiplier:  decimal.NewFromFloat(state.ContractMultiplier),
		BuyAvgOpenPrice:     decimal.NewFromFloat(state.BuyAvgOpenPrice),
		SellAvgOpenPrice:    decimal.NewFromFloat(state.SellAvgOpenPrice),
		BuyTransactionCost:  decimal.NewFromFloat(state.BuyTransactionCost),
		SellTransactionCost: decimal.NewFromFloat(state.SellTransactionCost),
		BuyRealizedPnL:      decimal.NewFromFloat(state.BuyRealizedPnL),
		SellRealizedPnL:     decimal.NewFromFloat(state.SellRealizedPnL),
	}
	model.Lots = append(model.Lots, toLotModels(lotBucketBuyOld, state.BuyOld)...)
	model.Lots = append(model.Lots, toLotModels(lotBucketBuyToday, state.BuyToday)...)
	model.Lots = append(model.Lots, toLotModels(lotBucketSellOld, state.SellOld)...)
	model.Lots = append(model.Lots, toLotModels(lotBucketSellToday, state.SellToday)...)
	return model
}

func toLotModels(bucket string, lots []domain.Lot) []LotModel {
	models := make([]LotModel, 0, len(lots))
	for i, lot := range lots {
		models = append(models, LotModel{
			Bucket:   bucket,
			Seq:      i,
			Price:    decimal.NewFromFloat(lot.Price),
			Quantity: lot.Quantity,
		})
	}
	return models
}

func toPosition(m *PositionModel) *domain.Position {
	if m == nil {
		return nil
	}
	state := domain.PositionState{
		InstrumentID:        m.InstrumentID,
		ContractMultiplier:  m.ContractMultiplier.InexactFloat64(),
		BuyAvgOpenPrice:     m.BuyAvgOpenPrice.InexactFloat64(),
		SellAvgOpenPrice:    m.SellAvgOpenPrice.InexactFloat64(),
		BuyTransactionCost:  m.BuyTransactionCost.InexactFloat64(),
		SellTransactionCost: m.SellTransactionCost.InexactFloat64(),
		BuyRealizedPnL:      m.BuyRealizedPnL.InexactFloat64(),
		SellRealizedPnL:     m.SellRealizedPnL.InexactFloat64(),
	}
	for _, lot := range m.Lots {
		entry := domain.Lot{Price: lot.Price.InexactFloat64(), Quantity: lot.Quantity}
		switch lot.Bucket {
		case lotBucketBuyOld:
			state.BuyOld = append(state.BuyOld, entry)
		case lotBucketBuyToday:
			state.BuyToday = append(state.BuyToday, entry)
		case lotBucketSellOld:
			state.SellOld = append(state.SellOld, entry)
		case lotBucketSellToday:
			state.SellToday = append(state.SellToday, entry)
		}
	}
	return domain.RestorePosition(state)
}
