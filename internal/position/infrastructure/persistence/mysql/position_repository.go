package mysql

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wyfcoding/futuresledger/internal/position/domain"
	"github.com/wyfcoding/futuresledger/pkg/db"
)

// PositionRepository 基于 MySQL 的持仓快照仓储
type PositionRepository struct {
	db *db.DB
}

// NewPositionRepository 创建仓储实例
func NewPositionRepository(database *db.DB) *PositionRepository {
	return &PositionRepository{db: database}
}

// Save 落地持仓快照：upsert 主表，明细整体删除后重建。
// 单个持仓的明细行数很小，重建比逐行 diff 简单且不易出错。
func (r *PositionRepository) Save(ctx context.Context, position *domain.Position) error {
	model := toPositionModel(position)

	return r.db.WithTx(ctx, func(tx *gorm.DB) error {
		lots := model.Lots
		model.Lots = nil

		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "instrument_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"contract_multiplier",
				"buy_avg_open_price",
				"sell_avg_open_price",
				"buy_transaction_cost",
				"sell_transaction_cost",
				"buy_realized_pnl",
				"sell_realized_pnl",
				"updated_at",
			}),
		}).Create(model).Error; err != nil {
			return fmt.Errorf("upsert position: %w", err)
		}

		var stored PositionModel
		if err := tx.Where("instrument_id = ?", model.InstrumentID).First(&stored).Error; err != nil {
			return fmt.Errorf("reload position id: %w", err)
		}

		if err := tx.Unscoped().Where("position_id = ?", stored.ID).Delete(&LotModel{}).Error; err != nil {
			return fmt.Errorf("clear lots: %w", err)
		}

		if len(lots) == 0 {
			return nil
		}
		for i := range lots {
			lots[i].PositionID = stored.ID
		}
		if err := tx.Create(&lots).Error; err != nil {
			return fmt.Errorf("insert lots: %w", err)
		}
		return nil
	})
}

// Get 按合约读取持仓，未找到返回 (nil, nil)
func (r *PositionRepository) Get(ctx context.Context, instrumentID string) (*domain.Position, error) {
	var model PositionModel
	err := r.db.WithContext(ctx).
		Preload("Lots", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("bucket, seq ASC")
		}).
		Where("instrument_id = ?", instrumentID).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query position: %w", err)
	}
	return toPosition(&model), nil
}

// List 按合约代码排序分页读取；limit <= 0 时返回全部
func (r *PositionRepository) List(ctx context.Context, limit, offset int) ([]*domain.Position, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&PositionModel{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count positions: %w", err)
	}

	query := r.db.WithContext(ctx).
		Preload("Lots", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("bucket, seq ASC")
		}).
		Order("instrument_id ASC")
	if limit > 0 {
		query = query.Limit(limit).Offset(offset)
	}

	var models []PositionModel
	if err := query.Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("list positions: %w", err)
	}

	positions := make([]*domain.Position, 0, len(models))
	for i := range models {
		positions = append(positions, toPosition(&models[i]))
	}
	return positions, total, nil
}
