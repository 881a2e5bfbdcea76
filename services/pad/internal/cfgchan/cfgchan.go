// Package cfgchan is the bounded queue carrying configuration updates from
// transport contexts (HTTP, console, boot config) to the applier.
package cfgchan

import (
	"context"
	"sync/atomic"
	"time"

	"gamepad-go/errcode"
)

const (
	// DefaultCapacity is the queue depth.
	DefaultCapacity = 10
	// MaxField is the largest key or value accepted, in bytes.
	MaxField = 63
)

// Message is one configuration update.
type Message struct {
	Key   string `json:"variable_id"`
	Value string `json:"value"`
}

// Validate checks the field limits.
func (m Message) Validate() error {
	if len(m.Key) > MaxField {
		return errcode.Wrap(errcode.FieldTooLong, "cfgchan.validate", "variable_id", nil)
	}
	if len(m.Value) > MaxField {
		return errcode.Wrap(errcode.FieldTooLong, "cfgchan.validate", "value", nil)
	}
	return nil
}

// Channel is a FIFO with fixed capacity. Multiple producers, one consumer.
type Channel struct {
	q       chan Message
	dropped atomic.Uint32
}

// New returns a Channel; capacity <= 0 selects DefaultCapacity.
func New(capacity int) *Channel {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Channel{q: make(chan Message, capacity)}
}

// Send enqueues msg, blocking up to wait when the queue is full. A zero wait
// never blocks. On timeout the message is discarded, the drop counter is
// incremented and errcode.Timeout is returned.
func (c *Channel) Send(ctx context.Context, msg Message, wait time.Duration) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	select {
	case c.q <- msg:
		return nil
	default:
	}
	if wait <= 0 {
		c.dropped.Add(1)
		return errcode.Timeout
	}

	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case c.q <- msg:
		return nil
	case <-t.C:
		c.dropped.Add(1)
		return errcode.Timeout
	case <-ctx.Done():
		c.dropped.Add(1)
		return ctx.Err()
	}
}

// Recv dequeues the oldest message, waiting up to wait. It returns
// errcode.Timeout if nothing arrived in time.
func (c *Channel) Recv(ctx context.Context, wait time.Duration) (Message, error) {
	select {
	case m := <-c.q:
		return m, nil
	default:
	}
	if wait <= 0 {
		return Message{}, errcode.Timeout
	}

	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case m := <-c.q:
		return m, nil
	case <-t.C:
		return Message{}, errcode.Timeout
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

// Len is the number of queued messages.
func (c *Channel) Len() int { return len(c.q) }

// Cap is the queue capacity.
func (c *Channel) Cap() int { return cap(c.q) }

// Dropped counts messages discarded because the queue stayed full.
func (c *Channel) Dropped() uint32 { return c.dropped.Load() }
