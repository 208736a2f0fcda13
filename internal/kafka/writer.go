package kafka

import (
	"context"

	segmentio "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// WriterProducer ships messages to a Kafka cluster via kafka-go. Topic is
// taken per message so one writer serves both order events and audit entries.
type WriterProducer struct {
	writer *segmentio.Writer
	logger *zap.Logger
}

func NewWriterProducer(brokers []string, logger *zap.Logger) Producer {
	w := &segmentio.Writer{
		Addr:         segmentio.TCP(brokers...),
		Balancer:     &segmentio.Hash{},
		RequiredAcks: segmentio.RequireAll,
	}
	logger.Info("initialized kafka producer", zap.Strings("brokers", brokers))
	return &WriterProducer{writer: w, logger: logger}
}

func (p *WriterProducer) SendMessage(ctx context.Context, topic string, key []byte, value []byte) error {
	err := p.writer.WriteMessages(ctx, segmentio.Message{
		Topic: topic,
		Key:   key,
		Value: value,
	})
	if err != nil {
		p.logger.Error("kafka write failed", zap.String("topic", topic), zap.Error(err))
		return err
	}
	return nil
}

func (p *WriterProducer) Close() error {
	p.logger.Info("closing kafka producer")
	return p.writer.Close()
}
