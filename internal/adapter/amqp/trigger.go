// Package amqp implements the workflow trigger on RabbitMQ for deployments
// whose agent workers consume from AMQP instead of NATS.
package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/SKRBLAI/skrblai-live-sub001/internal/logger"
	"github.com/SKRBLAI/skrblai-live-sub001/internal/port/workflow"
)

// ErrNacked is returned when the broker refuses a published request.
var ErrNacked = errors.New("amqp: publish nacked by broker")

// Config describes the broker and exchange used for workflow requests.
type Config struct {
	URL      string
	Exchange string
}

// session is one broker connection with a channel in confirm mode.
type session interface {
	// Publish returns once the broker has confirmed msg.
	Publish(ctx context.Context, exchange, key string, msg amqp.Publishing) error
	Closed() bool
	Close() error
}

// Trigger publishes workflow requests to a topic exchange with routing key
// trigger.{agentId}. A session lost to a broker disconnect is redialled on
// the next request.
type Trigger struct {
	mu       sync.Mutex
	sess     session
	dial     func() (session, error)
	exchange string
}

// Dial connects to RabbitMQ and declares the durable topic exchange.
func Dial(cfg Config) (*Trigger, error) {
	if cfg.URL == "" {
		return nil, errors.New("amqp: url is required")
	}
	if cfg.Exchange == "" {
		cfg.Exchange = "workflows"
	}
	dial := func() (session, error) { return openSession(cfg) }
	sess, err := dial()
	if err != nil {
		return nil, err
	}
	slog.Info("amqp connected", "exchange", cfg.Exchange)
	return &Trigger{sess: sess, dial: dial, exchange: cfg.Exchange}, nil
}

// RoutingKey returns the routing key for agentID.
func RoutingKey(agentID string) string {
	return "trigger." + agentID
}

// TriggerWorkflow implements workflow.Trigger.
func (t *Trigger) TriggerWorkflow(ctx context.Context, agentID string, req workflow.Request) (*workflow.Handle, error) {
	req.TargetAgentID = agentID
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("workflow request: %w", err)
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal workflow request: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		MessageId:     req.ExecutionID,
		CorrelationId: req.HandoffID,
		Timestamp:     time.Now().UTC(),
		Body:          body,
	}
	if reqID := logger.RequestID(ctx); reqID != "" {
		msg.Headers = amqp.Table{"x-request-id": reqID}
	}

	key := RoutingKey(agentID)
	t.mu.Lock()
	defer t.mu.Unlock()
	sess, err := t.session()
	if err != nil {
		return nil, err
	}
	if err := sess.Publish(ctx, t.exchange, key, msg); err != nil {
		return nil, fmt.Errorf("amqp publish %s: %w", key, err)
	}
	return &workflow.Handle{ExecutionID: req.ExecutionID, Backend: "amqp", Reference: t.exchange + "/" + key}, nil
}

// session returns the live session, redialling when the broker dropped it.
// t.mu must be held.
func (t *Trigger) session() (session, error) {
	if t.sess != nil && !t.sess.Closed() {
		return t.sess, nil
	}
	if t.sess != nil {
		_ = t.sess.Close()
		t.sess = nil
	}
	if t.dial == nil {
		return nil, errors.New("amqp: not connected")
	}
	sess, err := t.dial()
	if err != nil {
		return nil, fmt.Errorf("amqp reconnect: %w", err)
	}
	slog.Info("amqp reconnected", "exchange", t.exchange)
	t.sess = sess
	return sess, nil
}

// Close closes the channel and the connection.
func (t *Trigger) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sess == nil {
		return nil
	}
	err := t.sess.Close()
	t.sess = nil
	return err
}

type amqpSession struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func openSession(cfg Config) (session, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp confirm mode: %w", err)
	}
	if err := ch.ExchangeDeclare(cfg.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp exchange declare %s: %w", cfg.Exchange, err)
	}

	closed := ch.NotifyClose(make(chan *amqp.Error, 1))
	go func() {
		if err, ok := <-closed; ok && err != nil {
			slog.Warn("amqp channel closed", "code", err.Code, "reason", err.Reason)
		}
	}()
	return &amqpSession{conn: conn, ch: ch}, nil
}

func (s *amqpSession) Publish(ctx context.Context, exchange, key string, msg amqp.Publishing) error {
	confirm, err := s.ch.PublishWithDeferredConfirmWithContext(ctx, exchange, key, false, false, msg)
	if err != nil {
		return err
	}
	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return err
	}
	if !acked {
		return ErrNacked
	}
	return nil
}

func (s *amqpSession) Closed() bool {
	return s.conn.IsClosed() || s.ch.IsClosed()
}

func (s *amqpSession) Close() error {
	return errors.Join(s.ch.Close(), s.conn.Close())
}
