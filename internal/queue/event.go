// Package queue carries booking notices over RabbitMQ.  The publisher is a
// notify.Notifier used by the services; the consumer drains the queue and
// hands each notice to the mailer.
package queue

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/iliyamo/hotel-reservation/internal/notify"
)

// DefaultQueue is the durable queue shared by publisher and consumer.
const DefaultQueue = "booking.notifications"

// NoticeEvent is the wire format of a queued notice.  Version lets old
// consumers reject payloads they do not understand.
type NoticeEvent struct {
	Version int                  `json:"version"`
	Notice  notify.BookingNotice `json:"notice"`
}

const eventVersion = 1

func encodeEvent(n notify.BookingNotice) ([]byte, error) {
	return json.Marshal(NoticeEvent{Version: eventVersion, Notice: n})
}

func decodeEvent(body []byte) (notify.BookingNotice, error) {
	var ev NoticeEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return notify.BookingNotice{}, fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Version != eventVersion {
		return notify.BookingNotice{}, fmt.Errorf("unsupported event version %d", ev.Version)
	}
	if ev.Notice.BookingID == 0 {
		return notify.BookingNotice{}, errors.New("event without booking id")
	}
	return ev.Notice, nil
}
