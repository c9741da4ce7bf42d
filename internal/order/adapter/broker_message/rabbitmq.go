// Package brokermessage carries order events between service instances over a
// RabbitMQ topic exchange. Every instance publishes to the exchange and relays
// what it consumes into its local hub.
package brokermessage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"dine-order/internal/order/app/core"
	"dine-order/internal/order/domain/models"
	"dine-order/internal/xpkg/config"
	"dine-order/internal/xpkg/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	exchange         = "order_events"
	routingKeyPrefix = "table."
	bindingKey       = "table.*"

	reconnectInterval = 5 * time.Second
	publishTimeout    = 5 * time.Second
)

var ErrNotConnected = errors.New("rabbitmq is not connected")

type RabbitMQ struct {
	ctx          context.Context
	cfg          *config.RabbitMQ
	conn         *amqp.Connection
	ch           *amqp.Channel
	mylog        logger.Logger
	reconnecting bool
	mu           *sync.Mutex
}

// New connects and declares the events exchange.
func New(ctx context.Context, rabbitmqCfg *config.RabbitMQ, mylog logger.Logger) (*RabbitMQ, error) {
	r := &RabbitMQ{
		ctx:   ctx,
		cfg:   rabbitmqCfg,
		mylog: mylog,
		mu:    &sync.Mutex{},
	}
	if err := r.connect(); err != nil {
		return nil, err
	}
	return r, nil
}

var _ core.IRabbitMQ = (*RabbitMQ)(nil)

func RoutingKey(tableNumber int) string {
	return routingKeyPrefix + strconv.Itoa(tableNumber)
}

func (r *RabbitMQ) IsAlive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn == nil || r.conn.IsClosed() {
		return false
	}
	if r.ch == nil || r.ch.IsClosed() {
		return false
	}
	return true
}

func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ch != nil && !r.ch.IsClosed() {
		if err := r.ch.Close(); err != nil {
			return fmt.Errorf("close rabbitmq channel: %v", err)
		}
	}

	if r.conn != nil && !r.conn.IsClosed() {
		if err := r.conn.Close(); err != nil {
			return fmt.Errorf("close rabbitmq connection: %v", err)
		}
	}
	return nil
}

func (r *RabbitMQ) connect() error {
	conn, err := amqp.Dial(fmt.Sprintf("amqp://%s:%s@%s:%s/%s",
		r.cfg.User,
		r.cfg.Password,
		r.cfg.Host,
		r.cfg.Port,
		r.cfg.VHost,
	))
	if err != nil {
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return err
	}

	// publisher confirms
	if err := ch.Confirm(false); err != nil {
		conn.Close()
		return err
	}

	err = ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		conn.Close()
		return err
	}

	r.mu.Lock()
	r.conn = conn
	r.ch = ch
	r.mu.Unlock()
	return nil
}

// reconnect retries until connected or ctx is done.
func (r *RabbitMQ) reconnect(ctx context.Context) {
	r.mu.Lock()
	if r.reconnecting {
		r.mu.Unlock()
		return
	}
	r.reconnecting = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.reconnecting = false
		r.mu.Unlock()
	}()

	t := time.NewTicker(reconnectInterval)
	defer t.Stop()
	log := r.mylog.Action("rabbitmq_reconnecting")

	for {
		select {
		case <-t.C:
			err := r.connect()
			if err == nil {
				log.Info("RabbitMQ reconnected")
				return
			}
			log.Warn("RabbitMQ failed to reconnect", "reason", err.Error())

		case <-ctx.Done():
			return
		}
	}
}

// Publish sends the event to the table's routing key and waits for the broker confirm.
func (r *RabbitMQ) Publish(ctx context.Context, event models.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	r.mu.Lock()
	ch := r.ch
	r.mu.Unlock()
	if ch == nil || ch.IsClosed() {
		go r.reconnect(r.ctx)
		return ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	conf, err := ch.PublishWithDeferredConfirmWithContext(ctx,
		exchange,                            // exchange
		RoutingKey(event.Order.TableNumber), // routing key
		false,                               // mandatory
		false,                               // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Transient,
			Timestamp:    time.Now(),
			Type:         event.Kind.Name(),
			Body:         body,
		})
	if err != nil {
		if errors.Is(err, amqp.ErrClosed) {
			go r.reconnect(r.ctx)
		}
		return err
	}

	acked, err := conf.WaitContext(ctx)
	if err != nil {
		return err
	}
	if !acked {
		return fmt.Errorf("rabbitmq nacked %s for order %s", event.Kind.Name(), event.Order.ID)
	}
	return nil
}

// Relay consumes every table's events from an exclusive queue and hands them
// to sink, typically the local hub. It returns when ctx is done.
func (r *RabbitMQ) Relay(ctx context.Context, sink core.IBroadcaster) error {
	log := r.mylog.Action("rabbitmq_relay")

	for {
		deliveries, ch, err := r.consume(ctx)
		if err != nil {
			log.Error("Failed to start consuming", err)
		} else {
			log.Info("Relaying order events", "exchange", exchange, "binding", bindingKey)
			r.drain(ctx, deliveries, sink, log)
			ch.Close()
		}

		if ctx.Err() != nil {
			return nil
		}
		if !r.IsAlive() {
			r.reconnect(ctx)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Second):
		}
	}
}

func (r *RabbitMQ) consume(ctx context.Context) (<-chan amqp.Delivery, *amqp.Channel, error) {
	r.mu.Lock()
	conn := r.conn
	r.mu.Unlock()
	if conn == nil || conn.IsClosed() {
		return nil, nil, ErrNotConnected
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, nil, err
	}

	q, err := ch.QueueDeclare(
		"",    // server-named
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		return nil, nil, err
	}

	if err := ch.QueueBind(q.Name, bindingKey, exchange, false, nil); err != nil {
		ch.Close()
		return nil, nil, err
	}

	deliveries, err := ch.ConsumeWithContext(ctx, q.Name, "", false, true, false, false, nil)
	if err != nil {
		ch.Close()
		return nil, nil, err
	}
	return deliveries, ch, nil
}

func (r *RabbitMQ) drain(ctx context.Context, deliveries <-chan amqp.Delivery, sink core.IBroadcaster, log logger.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				log.Warn("Delivery channel closed")
				return
			}

			var event models.Event
			if err := json.Unmarshal(d.Body, &event); err != nil {
				log.Error("Failed to decode order event", err, "routing_key", d.RoutingKey)
				_ = d.Nack(false, false)
				continue
			}

			if err := sink.Publish(ctx, event); err != nil {
				log.Error("Failed to relay order event", err, "order_id", event.Order.ID)
				_ = d.Nack(false, true)
				continue
			}
			_ = d.Ack(false)
		}
	}
}
