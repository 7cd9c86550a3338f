// Package queue publishes domain events to RabbitMQ for the notification
// sinks (email, Slack, push). Publishing is fire-and-forget: a failed
// publish is logged by the caller and never blocks the order path.
package queue

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	EventsExchange = "pito.events"

	RoutingKeyPlanUpdated       = "plan.updated"
	RoutingKeyMemberOrderFailed = "member-order.failed"
	RoutingKeyOrderStarted      = "order.started"
	RoutingKeyOrderFinished     = "order.finished"
	RoutingKeyPaymentCreated    = "payment.created"
)

type Client struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func New(url string) (*Client, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &Client{conn: conn, ch: ch}, nil
}

func (c *Client) Close() error {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// EnsureTopology declares the topic exchange the notification consumers bind
// against.
func (c *Client) EnsureTopology() error {
	return c.ch.ExchangeDeclare(
		EventsExchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
}

func (c *Client) PublishJSON(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return c.ch.PublishWithContext(ctx, EventsExchange, routingKey, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
		Timestamp:   time.Now(),
	})
}
