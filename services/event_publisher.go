package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/deepaktraders/storefront-backend/models"
	awsclient "github.com/deepaktraders/storefront-backend/pkg/aws"
)

// OrderEventPublisher fans order lifecycle events out to Kafka and SNS.
// Publishing is best-effort: a broker outage never fails the request that
// produced the event.
type OrderEventPublisher struct {
	writer   *kafka.Writer
	sns      awsclient.SNSPublisher
	topicArn string
	log      *zap.Logger
}

func NewOrderEventPublisher(brokers []string, topic string, sns awsclient.SNSPublisher, topicArn string, log *zap.Logger) *OrderEventPublisher {
	p := &OrderEventPublisher{sns: sns, topicArn: topicArn, log: log}
	if len(brokers) > 0 && topic != "" {
		p.writer = &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
			Async:        false,
		}
	}
	return p
}

func (p *OrderEventPublisher) Publish(ctx context.Context, event models.OrderEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		p.log.Warn("Failed to encode order event", zap.Error(err))
		return
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if p.writer != nil {
		msg := kafka.Message{
			Key:   []byte(event.UserID),
			Value: payload,
		}
		if err := p.writer.WriteMessages(pubCtx, msg); err != nil {
			p.log.Warn("Failed to publish order event to kafka",
				zap.String("type", event.Type),
				zap.String("order_id", event.OrderID),
				zap.Error(err),
			)
		}
	}

	if p.sns != nil && p.topicArn != "" {
		if err := p.sns.Publish(pubCtx, p.topicArn, payload); err != nil {
			p.log.Warn("Failed to publish order event to sns",
				zap.String("type", event.Type),
				zap.String("order_id", event.OrderID),
				zap.Error(err),
			)
		}
	}
}

func (p *OrderEventPublisher) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}
