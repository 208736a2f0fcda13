package kafka

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type Producer interface {
	SendMessage(ctx context.Context, topic string, key []byte, value []byte) error
	Close() error
}

// ConsoleProducer prints messages instead of shipping them. Used in local
// development when no broker is reachable.
type ConsoleProducer struct {
	logger *zap.Logger
}

func NewConsoleProducer(logger *zap.Logger) Producer {
	logger.Info("initialized console producer")
	return &ConsoleProducer{logger: logger}
}

func (p *ConsoleProducer) SendMessage(ctx context.Context, topic string, key []byte, value []byte) error {
	select {
	case <-time.After(50 * time.Millisecond):
		fmt.Printf("\n--- PRODUCER (CONSOLE) ---\nTopic: %s\nKey: %s\nValue: %s\n--- END ---\n", topic, string(key), string(value))
		return nil
	case <-ctx.Done():
		p.logger.Warn("console produce cancelled", zap.String("topic", topic), zap.ByteString("key", key))
		return ctx.Err()
	}
}

func (p *ConsoleProducer) Close() error {
	p.logger.Info("closing console producer")
	return nil
}
