package realtime

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/yukikurage/taskmaster/internal/constants"
)

// Subscription receives changes for one owner. C is closed when the
// subscription ends, including when the subscriber fell behind and its
// buffer overflowed; Dropped reports the latter.
type Subscription struct {
	C <-chan Change

	ch      chan Change
	userID  string
	hub     *Hub
	once    sync.Once
	dropped atomic.Bool
}

// Close ends the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.hub.remove(s)
}

// Dropped reports whether the subscription was closed because it could not
// keep up.
func (s *Subscription) Dropped() bool {
	return s.dropped.Load()
}

func (s *Subscription) close() {
	s.once.Do(func() { close(s.ch) })
}

// LocalSequencer is an in-process counter.
type LocalSequencer struct {
	n atomic.Uint64
}

func (l *LocalSequencer) Next(context.Context) (uint64, error) {
	return l.n.Add(1), nil
}

func (l *LocalSequencer) Current(context.Context) (uint64, error) {
	return l.n.Load(), nil
}

// Hub delivers changes to subscribers in this process. Used directly as the
// single-instance Broker, and as the local delivery stage of the Redis and
// NATS brokers.
type Hub struct {
	seq    Sequencer
	buffer int

	mu     sync.RWMutex
	subs   map[string]map[*Subscription]struct{}
	closed bool
}

// NewHub creates a Hub with its own in-process sequencer.
func NewHub() *Hub {
	return newHub(&LocalSequencer{})
}

func newHub(seq Sequencer) *Hub {
	return &Hub{
		seq:    seq,
		buffer: constants.RealtimeSubscriberBuffer,
		subs:   make(map[string]map[*Subscription]struct{}),
	}
}

// Publish assigns a sequence number and delivers c locally.
func (h *Hub) Publish(ctx context.Context, c Change) (uint64, error) {
	seq, err := h.seq.Next(ctx)
	if err != nil {
		return 0, err
	}
	c.Seq = seq
	if c.Table == "" {
		c.Table = TasksTable
	}
	if err := h.deliver(c); err != nil {
		return 0, err
	}
	return seq, nil
}

// Seq returns the latest assigned sequence number.
func (h *Hub) Seq(ctx context.Context) (uint64, error) {
	return h.seq.Current(ctx)
}

// Subscribe registers a subscription for userID.
func (h *Hub) Subscribe(ctx context.Context, userID string) (*Subscription, error) {
	ch := make(chan Change, h.buffer)
	sub := &Subscription{C: ch, ch: ch, userID: userID, hub: h}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrBrokerClosed
	}
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[*Subscription]struct{})
	}
	h.subs[userID][sub] = struct{}{}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		sub.Close()
	}()

	return sub, nil
}

// Close ends every subscription.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for userID, set := range h.subs {
		for sub := range set {
			sub.close()
		}
		delete(h.subs, userID)
	}
	return nil
}

// deliver hands c to every subscriber of its owner without blocking.
func (h *Hub) deliver(c Change) error {
	h.mu.RLock()
	if h.closed {
		h.mu.RUnlock()
		return ErrBrokerClosed
	}
	var overflowed []*Subscription
	for sub := range h.subs[c.UserID] {
		select {
		case sub.ch <- c:
		default:
			overflowed = append(overflowed, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range overflowed {
		sub.dropped.Store(true)
		h.remove(sub)
	}
	return nil
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if set, ok := h.subs[sub.userID]; ok {
		if _, ok := set[sub]; ok {
			delete(set, sub)
			if len(set) == 0 {
				delete(h.subs, sub.userID)
			}
		}
	}
	sub.close()
}

func (h *Hub) subscriberCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}
