package queue

import (
	"context"
	"net"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/hotel-reservation/internal/notify"
)

// Publisher implements notify.Notifier by pushing every notice onto the
// durable queue as a persistent message.  It dials per publish; notices are
// rare compared to requests and a fresh connection survives broker restarts
// without extra bookkeeping.
type Publisher struct {
	url   string
	queue string
}

func NewPublisher(url, queue string) *Publisher {
	if queue == "" {
		queue = DefaultQueue
	}
	return &Publisher{url: url, queue: queue}
}

func (p *Publisher) SendBookingConfirmation(ctx context.Context, n notify.BookingNotice) error {
	return p.publish(ctx, n)
}

func (p *Publisher) SendBookingFailureOrAdminNotice(ctx context.Context, n notify.BookingNotice) error {
	return p.publish(ctx, n)
}

func (p *Publisher) publish(ctx context.Context, n notify.BookingNotice) error {
	body, err := encodeEvent(n)
	if err != nil {
		return err
	}

	dialTimeout := 5 * time.Second
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 && d < dialTimeout {
			dialTimeout = d
		}
	}
	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Dial: func(network, addr string) (net.Conn, error) {
			return net.DialTimeout(network, addr, dialTimeout)
		},
	})
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := declare(ch, p.queue); err != nil {
		return err
	}

	return ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         string(n.Kind),
		Body:         body,
	})
}

func declare(ch *amqp.Channel, queue string) (amqp.Queue, error) {
	return ch.QueueDeclare(queue, true, false, false, false, nil)
}
