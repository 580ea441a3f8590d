package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/suPer8Hu/mirror/internal/memory"
)

type Publisher struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

func NewPublisher(url, queue string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := DeclareTopology(ch, queue); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	return &Publisher{conn: conn, ch: ch, queue: queue}, nil
}

// DeclareTopology declares the main queue with its retry and dead-letter
// queues. Publisher and worker must agree on it, so both call this.
func DeclareTopology(ch *amqp.Channel, queue string) error {
	mainQ := queue
	retryQ := RetryQueue(queue)
	dlqQ := DeadLetterQueue(queue)

	if _, err := ch.QueueDeclare(
		dlqQ,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false,
		nil,
	); err != nil {
		return fmt.Errorf("declare %s: %w", dlqQ, err)
	}

	// Retry queue: message TTL -> dead-letter back to main queue
	if _, err := ch.QueueDeclare(
		retryQ,
		true,
		false,
		false,
		false,
		amqp.Table{
			"x-dead-letter-exchange":    "",
			"x-dead-letter-routing-key": mainQ,
		},
	); err != nil {
		return fmt.Errorf("declare %s: %w", retryQ, err)
	}

	// Main queue: dead-letter to DLQ on reject/nack(requeue=false)
	if _, err := ch.QueueDeclare(
		mainQ,
		true,
		false,
		false,
		false,
		amqp.Table{
			"x-dead-letter-exchange":    "",
			"x-dead-letter-routing-key": dlqQ,
		},
	); err != nil {
		return fmt.Errorf("declare %s: %w", mainQ, err)
	}
	return nil
}

func RetryQueue(queue string) string      { return queue + ".retry" }
func DeadLetterQueue(queue string) string { return queue + ".dlq" }

func (p *Publisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// PublishMemoryJob implements memory.JobPublisher.
func (p *Publisher) PublishMemoryJob(ctx context.Context, job memory.Job) error {
	body, err := EncodeJob(job)
	if err != nil {
		return err
	}
	return p.publish(ctx, p.queue, body, nil)
}

// Retry parks a job on the retry queue; it returns to the main queue after delay.
func (p *Publisher) Retry(ctx context.Context, body []byte, attempt int, delay time.Duration) error {
	return p.publish(ctx, RetryQueue(p.queue), body, &retryMeta{attempt: attempt, delay: delay})
}

type retryMeta struct {
	attempt int
	delay   time.Duration
}

func (p *Publisher) publish(ctx context.Context, routingKey string, body []byte, retry *retryMeta) error {
	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
		Timestamp:    time.Now(),
	}
	if retry != nil {
		msg.Expiration = fmt.Sprintf("%d", retry.delay.Milliseconds())
		msg.Headers = amqp.Table{AttemptHeader: int32(retry.attempt)}
	}

	return p.ch.PublishWithContext(cctx,
		"",         // default exchange
		routingKey, // routing key = queue
		false,
		false,
		msg,
	)
}

const AttemptHeader = "x-attempt"

func EncodeJob(job memory.Job) ([]byte, error) {
	return json.Marshal(job)
}

// DecodeJob rejects bodies that do not describe a user turn with content.
func DecodeJob(body []byte) (memory.Job, error) {
	var j memory.Job
	if err := json.Unmarshal(body, &j); err != nil {
		return memory.Job{}, fmt.Errorf("decode memory job: %w", err)
	}
	if j.UserID == 0 || j.Content == "" {
		return memory.Job{}, fmt.Errorf("decode memory job: missing user_id or content")
	}
	return j, nil
}

// Attempt reads the retry counter set by Retry. Fresh deliveries are attempt 0.
func Attempt(headers amqp.Table) int {
	switch v := headers[AttemptHeader].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	}
	return 0
}
