package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Report kinds published to the report exchange
const (
	ReportKindVerdict   = "verdict"
	ReportKindBaseline  = "baseline"
	ReportKindFeedback  = "feedback"
	ReportKindForecast  = "forecast"
	ReportKindAppliance = "appliance"
	ReportKindHistory   = "history"
)

// Report is the envelope for every published report event
type Report struct {
	RequestID   string          `json:"request_id"`
	UserID      string          `json:"user_id"`
	Kind        string          `json:"kind"`
	GeneratedAt time.Time       `json:"generated_at"`
	Body        json.RawMessage `json:"body"`
}

// Publisher publishes report events to RabbitMQ
type Publisher struct {
	channel    *amqp.Channel
	exchange   string
	routingKey string
	logger     *zap.Logger
}

// NewPublisher creates a new RabbitMQ publisher on the report exchange
func NewPublisher(conn *Connection, exchange, routingKey string, logger *zap.Logger) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &Publisher{
		channel:    ch,
		exchange:   exchange,
		routingKey: routingKey,
		logger:     logger,
	}, nil
}

// PublishReport publishes a typed report for a completed command. The body
// is marshalled into the report envelope; the routing key is suffixed with
// the report kind.
func (p *Publisher) PublishReport(ctx context.Context, requestID, userID, kind string, body interface{}) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal report body: %w", err)
	}

	report := Report{
		RequestID:   requestID,
		UserID:      userID,
		Kind:        kind,
		GeneratedAt: time.Now().UTC(),
		Body:        raw,
	}

	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	err = p.channel.PublishWithContext(
		ctx,
		p.exchange,
		fmt.Sprintf("%s.%s", p.routingKey, kind),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         payload,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish report: %w", err)
	}

	p.logger.Debug("published report",
		zap.String("kind", kind),
		zap.String("request_id", requestID),
		zap.String("user_id", userID),
	)

	return nil
}

// Close closes the publisher channel
func (p *Publisher) Close() error {
	if p.channel != nil {
		return p.channel.Close()
	}
	return nil
}
