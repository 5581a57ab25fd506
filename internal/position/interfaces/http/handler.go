// Package http 持仓账本服务接口
package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/pkg/logging"
	"github.com/wyfcoding/pkg/response"

	"github.com/wyfcoding/futuresledger/internal/position/application"
	"github.com/wyfcoding/futuresledger/internal/position/domain"
)

// PositionHandler 负责处理持仓账本相关的 HTTP 请求
type PositionHandler struct {
	app *application.PositionService
}

// NewPositionHandler 创建 HTTP 处理器实例
func NewPositionHandler(app *application.PositionService) *PositionHandler {
	return &PositionHandler{app: app}
}

// RegisterRoutes 注册路由
func (h *PositionHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1/positions")
	{
		api.GET("", h.ListPositions)
		api.GET("/:instrument_id", h.GetPosition)
		api.POST("/trades", h.ApplyTrade)
		api.POST("/settlements", h.Settle)
	}
}

// ApplyTradeReq 成交入账请求。价格与佣金沿用事件流的十进制字符串表示。
type ApplyTradeReq struct {
	TradeID      string `json:"trade_id" binding:"required"`
	InstrumentID string `json:"instrument_id" binding:"required"`
	Side         string `json:"side" binding:"required"`
	Effect       string `json:"effect" binding:"required"`
	Price        string `json:"price" binding:"required"`
	Quantity     int64  `json:"quantity" binding:"required"`
	Commission   string `json:"commission"`
}

// ApplyTrade 手工补录一笔成交（正常链路走 Kafka 消费）
func (h *PositionHandler) ApplyTrade(c *gin.Context) {
	var req ApplyTradeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid price", "")
		return
	}

	commission := decimal.Zero
	if req.Commission != "" {
		commission, err = decimal.NewFromString(req.Commission)
		if err != nil {
			response.ErrorWithStatus(c, http.StatusBadRequest, "invalid commission", "")
			return
		}
	}

	cmd := application.ApplyTradeCommand{
		TradeID:      req.TradeID,
		InstrumentID: req.InstrumentID,
		Side:         req.Side,
		Effect:       req.Effect,
		Price:        price.InexactFloat64(),
		Quantity:     req.Quantity,
		Commission:   commission.InexactFloat64(),
	}

	if err := h.app.ApplyTrade(c.Request.Context(), cmd); err != nil {
		logging.Error(c.Request.Context(), "Failed to apply trade", "trade_id", req.TradeID, "error", err)
		response.ErrorWithStatus(c, statusForError(err), err.Error(), "")
		return
	}

	response.Success(c, gin.H{"trade_id": req.TradeID})
}

// SettleReq 结算请求；instrument_id 为空时结算全部持仓
type SettleReq struct {
	InstrumentID string `json:"instrument_id"`
}

// Settle 触发日终结算
func (h *PositionHandler) Settle(c *gin.Context) {
	var req SettleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	if err := h.app.Settle(c.Request.Context(), application.SettleCommand{InstrumentID: req.InstrumentID}); err != nil {
		logging.Error(c.Request.Context(), "Failed to settle", "instrument_id", req.InstrumentID, "error", err)
		response.ErrorWithStatus(c, statusForError(err), err.Error(), "")
		return
	}

	response.Success(c, gin.H{"instrument_id": req.InstrumentID})
}

// GetPosition 查询单个合约持仓
func (h *PositionHandler) GetPosition(c *gin.Context) {
	instrumentID := c.Param("instrument_id")
	if instrumentID == "" {
		response.ErrorWithStatus(c, http.StatusBadRequest, "instrument_id is required", "")
		return
	}

	dto, err := h.app.GetPosition(c.Request.Context(), instrumentID)
	if err != nil {
		logging.Error(c.Request.Context(), "Failed to get position", "instrument_id", instrumentID, "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
		return
	}

	if dto == nil {
		response.ErrorWithStatus(c, http.StatusNotFound, "position not found", "")
		return
	}

	response.Success(c, dto)
}

// ListPositions 分页列出全部持仓
func (h *PositionHandler) ListPositions(c *gin.Context) {
	limitStr := c.DefaultQuery("limit", "20")
	limit, err := strconv.Atoi(limitStr)
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid limit", "")
		return
	}

	offsetStr := c.DefaultQuery("offset", "0")
	offset, err := strconv.Atoi(offsetStr)
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid offset", "")
		return
	}

	positions, total, err := h.app.ListPositions(c.Request.Context(), limit, offset)
	if err != nil {
		logging.Error(c.Request.Context(), "Failed to list positions", "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
		return
	}

	response.Success(c, gin.H{
		"total":     total,
		"positions": positions,
	})
}

// statusForError 把领域错误映射为 HTTP 状态码
func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrInsufficientPosition),
		errors.Is(err, domain.ErrInvalidTradeEffect),
		errors.Is(err, domain.ErrInvalidTradeQuantity):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrPositionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSettlementPriceUnavailable):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
