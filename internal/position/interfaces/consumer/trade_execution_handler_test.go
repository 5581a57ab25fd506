package consumer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/futuresledger/internal/position/application"
	"github.com/wyfcoding/futuresledger/internal/position/domain"
)

type applierStub struct {
	cmds []application.ApplyTradeCommand
	err  error
}

func (s *applierStub) ApplyTrade(_ context.Context, cmd application.ApplyTradeCommand) error {
	s.cmds = append(s.cmds, cmd)
	return s.err
}

type settlerStub struct {
	cmds []application.SettleCommand
	err  error
}

func (s *settlerStub) Settle(_ context.Context, cmd application.SettleCommand) error {
	s.cmds = append(s.cmds, cmd)
	return s.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func tradeMessage(value string) kafka.Message {
	return kafka.Message{Topic: "execution.trade.filled", Value: []byte(value)}
}

func TestTradeExecutionHandlerAppliesTrade(t *testing.T) {
	t.Parallel()

	stub := &applierStub{}
	h := NewTradeExecutionHandler(stub, discardLogger())

	msg := tradeMessage(`{
		"trade_id": "T-1",
		"instrument_id": "IF2609",
		"side": "BUY",
		"effect": "OPEN",
		"price": "4000.5",
		"quantity": 2,
		"commission": "12.5"
	}`)

	require.NoError(t, h.Handle(context.Background(), msg))
	require.Len(t, stub.cmds, 1)

	cmd := stub.cmds[0]
	assert.Equal(t, "T-1", cmd.TradeID)
	assert.Equal(t, "IF2609", cmd.InstrumentID)
	assert.Equal(t, "BUY", cmd.Side)
	assert.Equal(t, "OPEN", cmd.Effect)
	assert.InDelta(t, 4000.5, cmd.Price, 1e-9)
	assert.Equal(t, int64(2), cmd.Quantity)
	assert.InDelta(t, 12.5, cmd.Commission, 1e-9)
}

func TestTradeExecutionHandlerSkipsMalformedPayload(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value string
	}{
		{"broken json", `{not json`},
		{"missing trade id", `{"instrument_id":"IF2609","side":"BUY","effect":"OPEN","price":"4000","quantity":1}`},
		{"missing instrument", `{"trade_id":"T-1","side":"BUY","effect":"OPEN","price":"4000","quantity":1}`},
		{"bad price", `{"trade_id":"T-1","instrument_id":"IF2609","side":"BUY","effect":"OPEN","price":"abc","quantity":1}`},
		{"bad commission", `{"trade_id":"T-1","instrument_id":"IF2609","side":"BUY","effect":"OPEN","price":"4000","quantity":1,"commission":"x"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			stub := &applierStub{}
			h := NewTradeExecutionHandler(stub, discardLogger())

			// 坏消息不能触发重试，也不能到达应用层
			require.NoError(t, h.Handle(context.Background(), tradeMessage(tt.value)))
			assert.Empty(t, stub.cmds)
		})
	}
}

func TestTradeExecutionHandlerSwallowsPermanentRejection(t *testing.T) {
	t.Parallel()

	stub := &applierStub{err: domain.ErrInsufficientPosition}
	h := NewTradeExecutionHandler(stub, discardLogger())

	msg := tradeMessage(`{"trade_id":"T-1","instrument_id":"IF2609","side":"SELL","effect":"CLOSE","price":"4000","quantity":9}`)
	assert.NoError(t, h.Handle(context.Background(), msg))
}

func TestTradeExecutionHandlerReturnsTransientError(t *testing.T) {
	t.Parallel()

	transient := errors.New("db down")
	stub := &applierStub{err: transient}
	h := NewTradeExecutionHandler(stub, discardLogger())

	msg := tradeMessage(`{"trade_id":"T-1","instrument_id":"IF2609","side":"BUY","effect":"OPEN","price":"4000","quantity":1}`)
	assert.ErrorIs(t, h.Handle(context.Background(), msg), transient)
}

func TestSettlementTriggerHandler(t *testing.T) {
	t.Parallel()

	stub := &settlerStub{}
	h := NewSettlementTriggerHandler(stub, discardLogger())

	msg := kafka.Message{
		Topic: "clearing.settlement.triggered",
		Value: []byte(`{"instrument_id":"IF2609","trading_date":"2026-03-16"}`),
	}
	require.NoError(t, h.Handle(context.Background(), msg))
	require.Len(t, stub.cmds, 1)
	assert.Equal(t, "IF2609", stub.cmds[0].InstrumentID)
}

func TestSettlementTriggerHandlerDropsUntrackedInstrument(t *testing.T) {
	t.Parallel()

	stub := &settlerStub{err: domain.ErrPositionNotFound}
	h := NewSettlementTriggerHandler(stub, discardLogger())

	// 未入账合约的触发消息重试也不会成功，直接丢弃
	msg := kafka.Message{Value: []byte(`{"instrument_id":"zz9999"}`)}
	assert.NoError(t, h.Handle(context.Background(), msg))
	require.Len(t, stub.cmds, 1)
}

func TestSettlementTriggerHandlerPropagatesError(t *testing.T) {
	t.Parallel()

	stub := &settlerStub{err: domain.ErrSettlementPriceUnavailable}
	h := NewSettlementTriggerHandler(stub, discardLogger())

	msg := kafka.Message{Value: []byte(`{"instrument_id":"IF2609"}`)}
	assert.ErrorIs(t, h.Handle(context.Background(), msg), domain.ErrSettlementPriceUnavailable)
}
