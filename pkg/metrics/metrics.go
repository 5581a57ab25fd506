// Package metrics 提供 Prometheus helper，包含 HTTP 与账本业务指标模板
package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wyfcoding/futuresledger/pkg/logger"
)

// Metrics 指标集合
type Metrics struct {
	// HTTP 请求计数
	HTTPRequestsTotal *prometheus.CounterVec
	// HTTP 请求耗时
	HTTPRequestDuration *prometheus.HistogramVec

	// 消费的成交回报数
	TradesAppliedTotal prometheus.Counter
	// 被拒绝的成交回报数，按原因分类
	TradeRejectionsTotal *prometheus.CounterVec
	// 已执行的结算次数
	SettlementsTotal prometheus.Counter
	// 当前持仓合约数
	OpenPositions prometheus.Gauge
	// Outbox 已转发消息数
	OutboxRelayedTotal prometheus.Counter
}

// New 创建指标实例
func New(serviceName string) *Metrics {
	return &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trading",
			Subsystem: serviceName,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "trading",
			Subsystem: serviceName,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),

		TradesAppliedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trading",
			Subsystem: serviceName,
			Name:      "trades_applied_total",
			Help:      "Total trades applied to the position ledger",
		}),
		TradeRejectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trading",
			Subsystem: serviceName,
			Name:      "trade_rejections_total",
			Help:      "Total trades rejected by the position ledger",
		}, []string{"reason"}),
		SettlementsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trading",
			Subsystem: serviceName,
			Name:      "settlements_total",
			Help:      "Total daily settlements executed",
		}),
		OpenPositions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "trading",
			Subsystem: serviceName,
			Name:      "open_positions",
			Help:      "Number of instruments with a non-flat position",
		}),
		OutboxRelayedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trading",
			Subsystem: serviceName,
			Name:      "outbox_relayed_total",
			Help:      "Total outbox messages relayed to Kafka",
		}),
	}
}

// Register 注册所有指标
func (m *Metrics) Register() error {
	metrics := []prometheus.Collector{
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.TradesAppliedTotal,
		m.TradeRejectionsTotal,
		m.SettlementsTotal,
		m.OpenPositions,
		m.OutboxRelayedTotal,
	}

	for _, metric := range metrics {
		if err := prometheus.DefaultRegisterer.Register(metric); err != nil {
			logger.Error(context.Background(), "Failed to register metric", "error", err)
			return err
		}
	}

	logger.Info(context.Background(), "Metrics registered successfully")
	return nil
}

// RecordTradeApplied 记录一笔入账成交
func (m *Metrics) RecordTradeApplied() {
	m.TradesAppliedTotal.Inc()
}

// RecordTradeRejection 记录一笔被拒绝的成交
func (m *Metrics) RecordTradeRejection(reason string) {
	m.TradeRejectionsTotal.WithLabelValues(reason).Inc()
}

// RecordSettlement 记录一次日终结算
func (m *Metrics) RecordSettlement() {
	m.SettlementsTotal.Inc()
}

// UpdateOpenPositions 更新当前持仓合约数
func (m *Metrics) UpdateOpenPositions(count int64) {
	m.OpenPositions.Set(float64(count))
}

// RecordOutboxRelayed 记录 outbox 转发条数
func (m *Metrics) RecordOutboxRelayed(count int) {
	m.OutboxRelayedTotal.Add(float64(count))
}

// StartHTTPServer 启动 Prometheus HTTP 服务器
func StartHTTPServer(port int, path string) error {
	if path == "" {
		path = "/metrics"
	}

	http.Handle(path, promhttp.Handler())

	addr := fmt.Sprintf(":%d", port)
	logger.Info(context.Background(), "Starting Prometheus HTTP server", "addr", addr, "path", path)

	go func() {
		if err := http.ListenAndServe(addr, nil); err != nil {
			logger.Error(context.Background(), "Failed to start Prometheus HTTP server", "error", err)
		}
	}()

	return nil
}
