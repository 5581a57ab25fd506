package domain

import "context"

// EventPublisher 领域事件发布接口，具体实现走 Outbox
type EventPublisher interface {
	Publish(ctx context.Context, eventType, key string, event any) error
}
