package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/hotel-reservation/internal/notify"
)

// Consumer drains the notice queue and forwards each notice to a Notifier,
// normally the SMTP mailer.  Failed notices are rejected without requeue:
// notifications are never retried automatically.
type Consumer struct {
	url     string
	queue   string
	target  notify.Notifier
	timeout time.Duration
	log     logrus.FieldLogger
}

func NewConsumer(url, queue string, target notify.Notifier, log logrus.FieldLogger) *Consumer {
	if queue == "" {
		queue = DefaultQueue
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Consumer{url: url, queue: queue, target: target, timeout: 30 * time.Second, log: log}
}

// Run keeps a consumer attached to the broker, reconnecting with
// exponential backoff, until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.WithError(err).Warnf("notice-consumer: dial failed; retrying in %s", backoff)
			if !sleep(ctx, backoff) {
				return
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			c.log.Info("notice-consumer: stopped")
			return
		}
		c.log.WithError(err).Warn("notice-consumer: consume loop ended; reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(20, 0, false); err != nil {
		c.log.WithError(err).Warn("notice-consumer: set QoS failed")
	}
	if _, err := declare(ch, c.queue); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handle(ctx, d.Body); err != nil {
				c.log.WithError(err).Warn("notice-consumer: handle message failed")
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, body []byte) error {
	n, err := decodeEvent(body)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := notify.Dispatch(ctx, c.target, n); err != nil {
		return fmt.Errorf("booking %d: %w", n.BookingID, err)
	}
	c.log.WithFields(logrus.Fields{"booking_id": n.BookingID, "kind": n.Kind}).Info("notice delivered")
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
