package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	routingKeyCustomerCreated = "customer.created"
	routingKeyCustomerDeleted = "customer.deleted"
	routingKeyPurchaseAdded   = "purchase.added"
	routingKeyPurchaseRemoved = "purchase.removed"
	routingKeyPaymentRecorded = "payment.recorded"
	routingKeyDebtSettled     = "debt.settled"
	publisherAppID            = "fiado-ledger"
)

type EventPublisher interface {
	PublishCustomerCreated(ctx context.Context, event CustomerCreatedEvent) error
	PublishCustomerDeleted(ctx context.Context, event CustomerDeletedEvent) error
	PublishPurchaseAdded(ctx context.Context, event PurchaseAddedEvent) error
	PublishPurchaseRemoved(ctx context.Context, event PurchaseRemovedEvent) error
	PublishPaymentRecorded(ctx context.Context, event PaymentRecordedEvent) error
	PublishDebtSettled(ctx context.Context, event DebtSettledEvent) error
}

type RabbitMQEventPublisher struct {
	conn         *amqp.Connection
	exchangeName string
	logger       *slog.Logger
}

func NewRabbitMQEventPublisher(conn *amqp.Connection, exchangeName string, logger *slog.Logger) (EventPublisher, error) {
	if conn == nil {
		return nil, fmt.Errorf("RabbitMQ connection cannot be nil")
	}
	if exchangeName == "" {
		return nil, fmt.Errorf("RabbitMQ exchange name cannot be empty")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}

	tempCh, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open temporary channel for exchange declaration: %w", err)
	}
	defer tempCh.Close()

	err = tempCh.ExchangeDeclare(
		exchangeName,
		amqp.ExchangeTopic,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare exchange '%s': %w", exchangeName, err)
	}
	logger.Info("Ensured RabbitMQ exchange exists", "exchange", exchangeName, "type", amqp.ExchangeTopic)

	return &RabbitMQEventPublisher{
		conn:         conn,
		exchangeName: exchangeName,
		logger:       logger.With("component", "RabbitMQEventPublisher", "exchange", exchangeName),
	}, nil
}

func (p *RabbitMQEventPublisher) PublishCustomerCreated(ctx context.Context, event CustomerCreatedEvent) error {
	return p.publish(ctx, routingKeyCustomerCreated, event)
}

func (p *RabbitMQEventPublisher) PublishCustomerDeleted(ctx context.Context, event CustomerDeletedEvent) error {
	return p.publish(ctx, routingKeyCustomerDeleted, event)
}

func (p *RabbitMQEventPublisher) PublishPurchaseAdded(ctx context.Context, event PurchaseAddedEvent) error {
	return p.publish(ctx, routingKeyPurchaseAdded, event)
}

func (p *RabbitMQEventPublisher) PublishPurchaseRemoved(ctx context.Context, event PurchaseRemovedEvent) error {
	return p.publish(ctx, routingKeyPurchaseRemoved, event)
}

func (p *RabbitMQEventPublisher) PublishPaymentRecorded(ctx context.Context, event PaymentRecordedEvent) error {
	return p.publish(ctx, routingKeyPaymentRecorded, event)
}

func (p *RabbitMQEventPublisher) PublishDebtSettled(ctx context.Context, event DebtSettledEvent) error {
	return p.publish(ctx, routingKeyDebtSettled, event)
}

func (p *RabbitMQEventPublisher) publish(ctx context.Context, routingKey string, payload interface{}) error {
	logCtx := p.logger.With(slog.String("routingKey", routingKey))

	channel, err := p.conn.Channel()
	if err != nil {
		logCtx.ErrorContext(ctx, "Failed to open RabbitMQ channel", slog.Any("error", err))
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer channel.Close()

	body, err := json.Marshal(payload)
	if err != nil {
		logCtx.ErrorContext(ctx, "Failed to marshal event payload to JSON", slog.Any("error", err))
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	logCtx.DebugContext(ctx, "Publishing message", "bodySize", len(body))

	err = channel.PublishWithContext(
		ctx,
		p.exchangeName,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
			AppId:        publisherAppID,
		},
	)

	if err != nil {
		logCtx.ErrorContext(ctx, "Failed to publish message to RabbitMQ", slog.Any("error", err))
		return fmt.Errorf("failed to publish message: %w", err)
	}

	logCtx.InfoContext(ctx, "Successfully published message")
	return nil
}

// NopEventPublisher is used when event publishing is disabled in config.
type NopEventPublisher struct{}

func (NopEventPublisher) PublishCustomerCreated(context.Context, CustomerCreatedEvent) error {
	return nil
}
func (NopEventPublisher) PublishCustomerDeleted(context.Context, CustomerDeletedEvent) error {
	return nil
}
func (NopEventPublisher) PublishPurchaseAdded(context.Context, PurchaseAddedEvent) error { return nil }
func (NopEventPublisher) PublishPurchaseRemoved(context.Context, PurchaseRemovedEvent) error {
	return nil
}
func (NopEventPublisher) PublishPaymentRecorded(context.Context, PaymentRecordedEvent) error {
	return nil
}
func (NopEventPublisher) PublishDebtSettled(context.Context, DebtSettledEvent) error { return nil }
