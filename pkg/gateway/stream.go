package gateway

import (
	"context"

	"github.com/dmitrymomot/notifyhub/pkg/delivery"
)

// streamConn adapts one SSE response into a delivery connection. Send is
// non-blocking: events go into a buffered channel the HTTP handler drains,
// and a full buffer drops the event rather than stalling the fan-out loop.
type streamConn struct {
	id     string
	events chan delivery.Event
}

func newStreamConn(id string, buffer int) *streamConn {
	return &streamConn{
		id:     id,
		events: make(chan delivery.Event, buffer),
	}
}

func (c *streamConn) ID() string { return c.id }

func (c *streamConn) Send(ctx context.Context, e delivery.Event) error {
	select {
	case c.events <- e:
		return nil
	default:
		return ErrSlowConsumer
	}
}
