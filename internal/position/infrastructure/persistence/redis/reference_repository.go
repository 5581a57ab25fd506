// Package redis 提供账本依赖的行情、保证金率、挂单等参考数据的 Redis 读取实现。
// 这些数据由行情与订单服务写入，本服务只读。
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/futuresledger/internal/position/domain"
	"github.com/wyfcoding/futuresledger/pkg/cache"
)

// InstrumentRepository 合约基础信息的 Redis 实现
type InstrumentRepository struct {
	cache *cache.RedisCache
}

// NewInstrumentRepository 创建实例
func NewInstrumentRepository(c *cache.RedisCache) *InstrumentRepository {
	return &InstrumentRepository{cache: c}
}

// ContractMultiplier 合约乘数
func (r *InstrumentRepository) ContractMultiplier(ctx context.Context, instrumentID string) (float64, error) {
	key := fmt.Sprintf("instrument:multiplier:%s", instrumentID)
	value, err := r.cache.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	if value == "" {
		return 0, fmt.Errorf("contract multiplier not found for %s", instrumentID)
	}
	return parseDecimal(value)
}

// MarginTable 保证金率表的 Redis 实现
type MarginTable struct {
	cache *cache.RedisCache
}

// NewMarginTable 创建实例
func NewMarginTable(c *cache.RedisCache) *MarginTable {
	return &MarginTable{cache: c}
}

// Rate 合约当前保证金率
func (t *MarginTable) Rate(ctx context.Context, instrumentID string) (float64, error) {
	key := fmt.Sprintf("position:margin_rate:%s", instrumentID)
	value, err := t.cache.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	if value == "" {
		return 0, fmt.Errorf("margin rate not found for %s", instrumentID)
	}
	return parseDecimal(value)
}

// MarketData 行情快照的 Redis 实现
type MarketData struct {
	cache *cache.RedisCache
}

// NewMarketData 创建实例
func NewMarketData(c *cache.RedisCache) *MarketData {
	return &MarketData{cache: c}
}

// LastPrice 最新价
func (m *MarketData) LastPrice(ctx context.Context, instrumentID string) (float64, error) {
	key := fmt.Sprintf("marketdata:last_price:%s", instrumentID)
	value, err := m.cache.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	if value == "" {
		return 0, fmt.Errorf("last price not found for %s", instrumentID)
	}
	return parseDecimal(value)
}

// SettlementPrice 指定交易日的结算价，缺失时返回包装过的
// domain.ErrSettlementPriceUnavailable
func (m *MarketData) SettlementPrice(ctx context.Context, instrumentID string, tradingDate time.Time) (float64, error) {
	key := fmt.Sprintf("marketdata:settlement_price:%s:%s", instrumentID, tradingDate.Format("2006-01-02"))
	value, err := m.cache.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	if value == "" {
		return 0, fmt.Errorf("%s %s: %w", instrumentID, tradingDate.Format("2006-01-02"), domain.ErrSettlementPriceUnavailable)
	}
	price, err := parseDecimal(value)
	if err != nil {
		return 0, err
	}
	if price <= 0 {
		return 0, fmt.Errorf("%s %s: %w", instrumentID, tradingDate.Format("2006-01-02"), domain.ErrSettlementPriceUnavailable)
	}
	return price, nil
}

// openOrderEntry 订单服务写入的挂单摘要
type openOrderEntry struct {
	Side             string `json:"side"`
	Effect           string `json:"effect"`
	UnfilledQuantity int64  `json:"unfilled_quantity"`
}

// OpenOrderBook 未成交挂单的 Redis 实现
type OpenOrderBook struct {
	cache *cache.RedisCache
}

// NewOpenOrderBook 创建实例
func NewOpenOrderBook(c *cache.RedisCache) *OpenOrderBook {
	return &OpenOrderBook{cache: c}
}

// Query 指定合约当前未成交挂单；key 不存在视作无挂单
func (b *OpenOrderBook) Query(ctx context.Context, instrumentID string) ([]domain.OpenOrder, error) {
	key := fmt.Sprintf("orders:open:%s", instrumentID)
	var entries []openOrderEntry
	if err := b.cache.GetJSON(ctx, key, &entries); err != nil {
		return nil, err
	}

	orders := make([]domain.OpenOrder, 0, len(entries))
	for _, entry := range entries {
		orders = append(orders, domain.OpenOrder{
			Side:             domain.Side(entry.Side),
			Effect:           domain.PositionEffect(entry.Effect),
			UnfilledQuantity: entry.UnfilledQuantity,
		})
	}
	return orders, nil
}

// TradingCalendar 交易日历的 Redis 实现，日历服务未写入时退回墙钟日期
type TradingCalendar struct {
	cache *cache.RedisCache
}

// NewTradingCalendar 创建实例
func NewTradingCalendar(c *cache.RedisCache) *TradingCalendar {
	return &TradingCalendar{cache: c}
}

// CurrentTradingDate 当前交易日（零点对齐）
func (t *TradingCalendar) CurrentTradingDate(ctx context.Context) time.Time {
	value, err := t.cache.Get(ctx, "calendar:current_trading_date")
	if err == nil && value != "" {
		if date, parseErr := time.Parse("2006-01-02", value); parseErr == nil {
			return date
		}
	}
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

// parseDecimal 解析上游以十进制字符串写入的数值
func parseDecimal(value string) (float64, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		// 兼容旧 key 里直接写 float 的情况
		f, ferr := strconv.ParseFloat(value, 64)
		if ferr != nil {
			return 0, fmt.Errorf("parse decimal %q: %w", value, err)
		}
		return f, nil
	}
	return d.InexactFloat64(), nil
}
