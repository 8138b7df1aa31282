package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/flicky/storefront-api/internal/model"
)

const (
	orderQueueName = "orders"
	dlxExchange    = "orders.dlx"
	dlqQueueName   = "orders.dlq"
	idempotencyTTL = 24 * time.Hour
)

// HistoryInvalidator drops cached order history for a user.
type HistoryInvalidator interface {
	InvalidateHistory(ctx context.Context, userID uuid.UUID) error
}

// OrderWorker consumes order.placed events and refreshes the derived state
// that depends on them.
type OrderWorker struct {
	channel     *amqp.Channel
	history     HistoryInvalidator
	redisClient *redis.Client
	log         *slog.Logger
	done        chan struct{}
}

func NewOrderWorker(
	ch *amqp.Channel,
	history HistoryInvalidator,
	redisClient *redis.Client,
	log *slog.Logger,
) *OrderWorker {
	return &OrderWorker{
		channel:     ch,
		history:     history,
		redisClient: redisClient,
		log:         log,
		done:        make(chan struct{}),
	}
}

// SetupRabbitMQ declares exchanges, queues, and bindings (DLX/DLQ).
func SetupRabbitMQ(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(dlxExchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare DLX: %w", err)
	}
	if _, err := ch.QueueDeclare(dlqQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare DLQ: %w", err)
	}
	if err := ch.QueueBind(dlqQueueName, orderQueueName, dlxExchange, false, nil); err != nil {
		return fmt.Errorf("bind DLQ: %w", err)
	}
	if _, err := ch.QueueDeclare(orderQueueName, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    dlxExchange,
		"x-dead-letter-routing-key": orderQueueName,
	}); err != nil {
		return fmt.Errorf("declare order queue: %w", err)
	}
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set QoS: %w", err)
	}
	return nil
}

func (w *OrderWorker) Start(ctx context.Context) error {
	msgs, err := w.channel.Consume(orderQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	go func() {
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				w.settle(msg, w.handle(ctx, msg.Body))
			case <-w.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	w.log.Info("order worker started")
	return nil
}

func (w *OrderWorker) Stop() { close(w.done) }

type outcome int

const (
	outcomeAck outcome = iota
	outcomeRequeue
	outcomeReject
)

func (w *OrderWorker) settle(msg amqp.Delivery, o outcome) {
	switch o {
	case outcomeAck:
		_ = msg.Ack(false)
	case outcomeRequeue:
		_ = msg.Nack(false, true)
	default:
		_ = msg.Nack(false, false) // dead-lettered
	}
}

func (w *OrderWorker) handle(ctx context.Context, body []byte) outcome {
	var orderMsg model.OrderMessage
	if err := json.Unmarshal(body, &orderMsg); err != nil {
		w.log.Error("unmarshal order message", "error", err)
		return outcomeReject
	}
	if orderMsg.OrderID == uuid.Nil || orderMsg.UserID == uuid.Nil {
		w.log.Error("order message without ids")
		return outcomeReject
	}

	log := w.log.With("order_id", orderMsg.OrderID, "user_id", orderMsg.UserID)

	idempotencyKey := "order_processed:" + orderMsg.OrderID.String()
	if w.redisClient != nil {
		exists, err := w.redisClient.Exists(ctx, idempotencyKey).Result()
		if err != nil {
			log.Error("check idempotency key", "error", err)
			return outcomeRequeue
		}
		if exists > 0 {
			log.Info("order already processed, skipping")
			return outcomeAck
		}
	}

	if err := w.history.InvalidateHistory(ctx, orderMsg.UserID); err != nil {
		log.Error("invalidate order history", "error", err)
		return outcomeReject
	}

	if w.redisClient != nil {
		if err := w.redisClient.Set(ctx, idempotencyKey, "1", idempotencyTTL).Err(); err != nil {
			log.Error("set idempotency key", "error", err)
		}
	}

	log.Info("order processed", "total", orderMsg.Total.String())
	return outcomeAck
}
