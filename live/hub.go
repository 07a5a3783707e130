// Package live fans out "something changed" signals to cancellable
// subscriptions that re-load their snapshot on every change.
package live

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Topic names a stream of changes
type Topic string

// Well known topics
const (
	TopicVehicles   Topic = "vehicles"
	TopicSpareParts Topic = "spare_parts"
	TopicInbox      Topic = "inbox"
)

// ChatTopic is the topic of one user's chat thread
func ChatTopic(userID string) Topic {
	return Topic("chat:" + userID)
}

// Backplane relays published topics between processes
type Backplane interface {
	Publish(ctx context.Context, topic Topic) error
	Subscribe(ctx context.Context) (<-chan Topic, error)
}

// Hub delivers change signals to local watchers. With a backplane attached,
// Publish goes through the backplane and Run feeds every received topic back
// into local delivery, so all instances see the same signals.
type Hub struct {
	backplane Backplane

	mu       sync.RWMutex
	watchers map[Topic]map[*watcher]struct{}
	active   int64
}

type watcher struct {
	signal chan struct{}
}

// NewHub creates a hub. bp may be nil for a single-process deployment.
func NewHub(bp Backplane) *Hub {
	return &Hub{backplane: bp, watchers: map[Topic]map[*watcher]struct{}{}}
}

// Publish signals every watcher of topic
func (h *Hub) Publish(ctx context.Context, topic Topic) {
	if h.backplane != nil {
		err := h.backplane.Publish(ctx, topic)
		if err == nil {
			return
		}
		zap.S().Warnw("backplane publish failed, delivering locally", "topic", topic, "error", err)
	}
	h.deliver(topic)
}

// Run pumps topics from the backplane into local delivery until ctx is done
func (h *Hub) Run(ctx context.Context) error {
	if h.backplane == nil {
		<-ctx.Done()
		return nil
	}
	topics, err := h.backplane.Subscribe(ctx)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case t, ok := <-topics:
			if !ok {
				return nil
			}
			h.deliver(t)
		}
	}
}

// Active is the number of open subscriptions
func (h *Hub) Active() int {
	return int(atomic.LoadInt64(&h.active))
}

func (h *Hub) deliver(topic Topic) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for w := range h.watchers[topic] {
		// signals coalesce: a pending one already covers this change
		select {
		case w.signal <- struct{}{}:
		default:
		}
	}
}

func (h *Hub) register(topic Topic) *watcher {
	w := &watcher{signal: make(chan struct{}, 1)}
	h.mu.Lock()
	if h.watchers[topic] == nil {
		h.watchers[topic] = map[*watcher]struct{}{}
	}
	h.watchers[topic][w] = struct{}{}
	h.mu.Unlock()
	atomic.AddInt64(&h.active, 1)
	return w
}

func (h *Hub) unregister(topic Topic, w *watcher) {
	h.mu.Lock()
	delete(h.watchers[topic], w)
	if len(h.watchers[topic]) == 0 {
		delete(h.watchers, topic)
	}
	h.mu.Unlock()
	atomic.AddInt64(&h.active, -1)
}
