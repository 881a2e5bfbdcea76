// bus.go
package bus

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
)

// -----------------------------------------------------------------------------
// Topics
// -----------------------------------------------------------------------------

// Topic is a sequence of tokens. Tokens are strings or ints; the string
// tokens "+" (one level) and "#" (zero or more trailing levels) act as
// wildcards in subscriptions.
type Topic []any

const (
	wildOne  = "+"
	wildRest = "#"
)

// T builds a topic from tokens. It panics on tokens other than string or
// int, which could not be used as trie keys.
func T(tokens ...any) Topic {
	for _, tok := range tokens {
		switch tok.(type) {
		case string, int:
		default:
			panic("bus: topic token must be string or int")
		}
	}
	return Topic(tokens)
}

func (t Topic) Len() int { return len(t) }

// At returns token i, or nil when out of range.
func (t Topic) At(i int) any {
	if i < 0 || i >= len(t) {
		return nil
	}
	return t[i]
}

// String renders the topic as a slash-separated path.
func (t Topic) String() string {
	var b []byte
	for i, tok := range t {
		if i > 0 {
			b = append(b, '/')
		}
		switch v := tok.(type) {
		case string:
			b = append(b, v...)
		case int:
			b = strconv.AppendInt(b, int64(v), 10)
		default:
			b = append(b, '?')
		}
	}
	return string(b)
}

// -----------------------------------------------------------------------------
// Message
// -----------------------------------------------------------------------------

type Message struct {
	Topic    Topic
	Payload  any
	Retained bool
	ReplyTo  Topic
}

// CanReply reports whether the sender asked for a reply.
func (m *Message) CanReply() bool { return m != nil && len(m.ReplyTo) > 0 }

// -----------------------------------------------------------------------------
// Subscription
// -----------------------------------------------------------------------------

type Subscription struct {
	topic  Topic
	ch     chan *Message
	conn   *Connection
	closed bool // guarded by bus.mu
}

func (s *Subscription) Topic() Topic             { return s.topic }
func (s *Subscription) Channel() <-chan *Message { return s.ch }
func (s *Subscription) Unsubscribe()             { s.conn.Unsubscribe(s) }

// -----------------------------------------------------------------------------
// Tries
// -----------------------------------------------------------------------------

// subNode indexes subscriptions by pattern.
type subNode struct {
	children map[any]*subNode
	subs     []*Subscription
}

// retNode indexes retained messages by concrete topic.
type retNode struct {
	children map[any]*retNode
	msg      *Message
}

// -----------------------------------------------------------------------------
// Bus
// -----------------------------------------------------------------------------

type Bus struct {
	mu       sync.Mutex
	subs     *subNode
	retained *retNode
	qLen     int
	replySeq atomic.Uint32
}

// NewBus creates a new bus with the given subscription queue length.
func NewBus(queueLen int) *Bus {
	if queueLen <= 0 {
		queueLen = 8 // safe default
	}
	return &Bus{
		subs:     &subNode{},
		retained: &retNode{},
		qLen:     queueLen,
	}
}

// NewMessage builds a message without publishing it.
func (b *Bus) NewMessage(topic Topic, payload any, retained bool) *Message {
	return &Message{Topic: topic, Payload: payload, Retained: retained}
}

func (b *Bus) addSubscription(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.subs
	for _, tok := range sub.topic {
		if n.children == nil {
			n.children = make(map[any]*subNode)
		}
		child, ok := n.children[tok]
		if !ok {
			child = &subNode{}
			n.children[tok] = child
		}
		n = child
	}
	n.subs = append(n.subs, sub)

	// Deliver matching retained messages.
	var out []*Message
	collectRetained(b.retained, sub.topic, 0, &out)
	for _, m := range out {
		deliver(sub.ch, m)
	}
}

// Publish delivers a message to all subscribers whose pattern matches its topic.
func (b *Bus) Publish(msg *Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if msg.Retained {
		b.storeRetained(msg)
	}

	var out []*Subscription
	matchSubs(b.subs, msg.Topic, 0, &out)
	for _, sub := range out {
		if !sub.closed {
			deliver(sub.ch, msg)
		}
	}
}

func (b *Bus) storeRetained(msg *Message) {
	n := b.retained
	for _, tok := range msg.Topic {
		if n.children == nil {
			if msg.Payload == nil {
				return
			}
			n.children = make(map[any]*retNode)
		}
		child, ok := n.children[tok]
		if !ok {
			if msg.Payload == nil {
				return
			}
			child = &retNode{}
			n.children[tok] = child
		}
		n = child
	}
	if msg.Payload == nil {
		n.msg = nil
	} else {
		n.msg = msg
	}
}

// deliver never blocks: a full queue drops its oldest message.
func deliver(ch chan *Message, m *Message) {
	select {
	case ch <- m:
	default:
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- m:
		default:
		}
	}
}

func matchSubs(n *subNode, topic Topic, i int, out *[]*Subscription) {
	if n.children != nil {
		if rest, ok := n.children[wildRest]; ok {
			*out = append(*out, rest.subs...)
		}
	}
	if i == len(topic) {
		*out = append(*out, n.subs...)
		return
	}
	if n.children == nil {
		return
	}
	if child, ok := n.children[topic[i]]; ok {
		matchSubs(child, topic, i+1, out)
	}
	if child, ok := n.children[wildOne]; ok {
		matchSubs(child, topic, i+1, out)
	}
}

func collectRetained(n *retNode, pattern Topic, i int, out *[]*Message) {
	if i == len(pattern) {
		if n.msg != nil {
			*out = append(*out, n.msg)
		}
		return
	}
	switch pattern[i] {
	case wildRest:
		collectAll(n, out)
	case wildOne:
		for _, child := range n.children {
			collectRetained(child, pattern, i+1, out)
		}
	default:
		if child, ok := n.children[pattern[i]]; ok {
			collectRetained(child, pattern, i+1, out)
		}
	}
}

func collectAll(n *retNode, out *[]*Message) {
	if n.msg != nil {
		*out = append(*out, n.msg)
	}
	for _, child := range n.children {
		collectAll(child, out)
	}
}

// unsubscribe removes a subscription from the trie and closes its channel.
func (b *Bus) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub.closed {
		return
	}
	sub.closed = true
	close(sub.ch)

	n := b.subs
	stack := []*subNode{n}
	for _, t := range sub.topic {
		if n.children == nil {
			return
		}
		child, ok := n.children[t]
		if !ok {
			return
		}
		n = child
		stack = append(stack, n)
	}

	for i, s := range n.subs {
		if s == sub {
			n.subs = append(n.subs[:i], n.subs[i+1:]...)
			break
		}
	}

	// Prune empty nodes.
	for i := len(sub.topic) - 1; i >= 0; i-- {
		parent := stack[i]
		key := sub.topic[i]
		child := parent.children[key]
		if len(child.subs) == 0 && len(child.children) == 0 {
			delete(parent.children, key)
		} else {
			break
		}
	}
}

// -----------------------------------------------------------------------------
// Connection
// -----------------------------------------------------------------------------

type Connection struct {
	bus  *Bus
	subs []*Subscription
	mu   sync.Mutex
	id   string
}

// NewConnection creates a new connection bound to this bus.
func (b *Bus) NewConnection(id string) *Connection {
	return &Connection{
		bus: b,
		id:  id,
	}
}

func (c *Connection) ID() string { return c.id }

// NewMessage builds a message without publishing it.
func (c *Connection) NewMessage(topic Topic, payload any, retained bool) *Message {
	return c.bus.NewMessage(topic, payload, retained)
}

// Publish sends a message via the bus.
func (c *Connection) Publish(msg *Message) {
	c.bus.Publish(msg)
}

// Subscribe registers a subscription owned by this connection.
func (c *Connection) Subscribe(topic Topic) *Subscription {
	sub := &Subscription{
		topic: topic,
		ch:    make(chan *Message, c.bus.qLen),
		conn:  c,
	}
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	c.bus.addSubscription(sub)
	return sub
}

// Unsubscribe removes a subscription owned by this connection.
func (c *Connection) Unsubscribe(sub *Subscription) {
	c.bus.unsubscribe(sub)
	c.mu.Lock()
	for i, s := range c.subs {
		if s == sub {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			break
		}
	}
	c.mu.Unlock()
}

// Disconnect closes all subscriptions and clears them.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	for _, sub := range subs {
		c.bus.unsubscribe(sub)
	}
}

// -----------------------------------------------------------------------------
// Request–Reply
// -----------------------------------------------------------------------------

// Reply answers a request on its ReplyTo topic. No-op when the request
// carries no reply address.
func (c *Connection) Reply(req *Message, payload any, retained bool) {
	if !req.CanReply() {
		return
	}
	c.bus.Publish(&Message{Topic: req.ReplyTo, Payload: payload, Retained: retained})
}

// RequestWait publishes req with a private reply topic and waits for the
// first reply or ctx expiry.
func (c *Connection) RequestWait(ctx context.Context, req *Message) (*Message, error) {
	id := c.bus.replySeq.Add(1)
	req.ReplyTo = T("_reply", c.id, int(id))

	sub := c.Subscribe(req.ReplyTo)
	defer c.Unsubscribe(sub)

	c.Publish(req)

	select {
	case m, ok := <-sub.Channel():
		if !ok {
			return nil, context.Canceled
		}
		return m, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
