// Package messaging 实现 Outbox 模式的领域事件发布：事件先随业务落库，
// 再由后台 relay 转发到 Kafka，保证账本状态与事件流不脱节。
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wyfcoding/futuresledger/pkg/db"
	"github.com/wyfcoding/futuresledger/pkg/logger"
	"github.com/wyfcoding/futuresledger/pkg/mq"
)

const (
	statusPending = "pending"
	statusSent    = "sent"
)

// OutboxMessage 待转发的事件记录
type OutboxMessage struct {
	ID         string    `gorm:"type:varchar(36);primary_key"`
	EventID    string    `gorm:"type:varchar(36);index"`
	EventType  string    `gorm:"type:varchar(100);index"`
	MessageKey string    `gorm:"type:varchar(64)"`
	Payload    string    `gorm:"type:text"`
	Status     string    `gorm:"type:varchar(20);index;default:'pending'"`
	CreatedAt  time.Time `gorm:"index"`
	UpdatedAt  time.Time
}

// TableName 指定表名
func (OutboxMessage) TableName() string {
	return "position_outbox_messages"
}

// envelope 发往 Kafka 的事件信封
type envelope struct {
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
}

// OutboxEventPublisher 实现 domain.EventPublisher
type OutboxEventPublisher struct {
	db       *db.DB
	producer *mq.KafkaProducer
	topic    string
}

// NewOutboxEventPublisher 创建发布器
func NewOutboxEventPublisher(database *db.DB, producer *mq.KafkaProducer, topic string) *OutboxEventPublisher {
	return &OutboxEventPublisher{
		db:       database,
		producer: producer,
		topic:    topic,
	}
}

// Publish 把事件写入 outbox 表，等待后台转发
func (p *OutboxEventPublisher) Publish(ctx context.Context, eventType, key string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", eventType, err)
	}

	message := OutboxMessage{
		ID:         uuid.New().String(),
		EventID:    uuid.New().String(),
		EventType:  eventType,
		MessageKey: key,
		Payload:    string(payload),
		Status:     statusPending,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	if err := p.db.WithContext(ctx).Create(&message).Error; err != nil {
		return fmt.Errorf("store outbox message: %w", err)
	}
	return nil
}

// ProcessOutboxMessages 转发一批待处理消息，返回实际转发条数
func (p *OutboxEventPublisher) ProcessOutboxMessages(ctx context.Context, batchSize int) (int, error) {
	var messages []OutboxMessage
	if err := p.db.WithContext(ctx).
		Where("status = ?", statusPending).
		Order("created_at ASC").
		Limit(batchSize).
		Find(&messages).Error; err != nil {
		return 0, fmt.Errorf("load pending outbox messages: %w", err)
	}

	sent := 0
	for _, message := range messages {
		body, err := json.Marshal(envelope{
			EventID:   message.EventID,
			EventType: message.EventType,
			Payload:   json.RawMessage(message.Payload),
		})
		if err != nil {
			return sent, fmt.Errorf("marshal envelope %s: %w", message.EventID, err)
		}

		if err := p.producer.SendRaw(ctx, p.topic, message.MessageKey, body); err != nil {
			// 发送失败保留 pending，下一轮重试
			return sent, fmt.Errorf("relay outbox message %s: %w", message.EventID, err)
		}

		if err := p.db.WithContext(ctx).Model(&OutboxMessage{}).
			Where("id = ?", message.ID).
			Updates(map[string]any{"status": statusSent, "updated_at": time.Now()}).Error; err != nil {
			return sent, fmt.Errorf("mark outbox message sent %s: %w", message.EventID, err)
		}
		sent++
	}
	return sent, nil
}

// RunRelay 周期性转发 outbox 消息，直到 ctx 取消
func (p *OutboxEventPublisher) RunRelay(ctx context.Context, interval time.Duration, batchSize int, onRelayed func(int)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sent, err := p.ProcessOutboxMessages(ctx, batchSize)
			if err != nil {
				logger.Error(ctx, "outbox relay failed", "error", err)
			}
			if sent > 0 && onRelayed != nil {
				onRelayed(sent)
			}
		}
	}
}

// CleanupProcessedMessages 清理已转发的历史消息
func (p *OutboxEventPublisher) CleanupProcessedMessages(ctx context.Context, before time.Time) error {
	return p.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", statusSent, before).
		Delete(&OutboxMessage{}).Error
}
