package queue

import (
	"encoding/json"
	"fmt"

	"github.com/streadway/amqp"
)

// RunJob is the wire format for a queued campaign run.
type RunJob struct {
	CampaignID string `json:"campaign_id"`
}

// AmqpQueue publishes run jobs to RabbitMQ. Consumption happens in
// cmd/worker, which talks to the broker directly for ack/nack control, so
// Subscribe is not supported here.
type AmqpQueue struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAmqpQueue(url string) (*AmqpQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	return &AmqpQueue{conn: conn, ch: ch}, nil
}

func (q *AmqpQueue) Publish(topic string, payload any) error {
	campaignID, ok := payload.(string)
	if !ok {
		return fmt.Errorf("expected campaign id string payload, got %T", payload)
	}

	queue, err := q.ch.QueueDeclare(
		topic, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return err
	}

	body, err := json.Marshal(RunJob{CampaignID: campaignID})
	if err != nil {
		return err
	}

	return q.ch.Publish(
		"",
		queue.Name,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}

func (q *AmqpQueue) Subscribe(topic string, handler func(payload any) error) error {
	return fmt.Errorf("amqp queue does not support in-process subscribers; run cmd/worker")
}

func (q *AmqpQueue) Close() {
	q.ch.Close()
	q.conn.Close()
}

var _ Queue = (*AmqpQueue)(nil)
