package live

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// LoadFunc produces a fresh snapshot
type LoadFunc[T any] func(ctx context.Context) (T, error)

// Subscription streams snapshots of one topic until it is closed. Snapshots
// arrive on Updates in the order they were loaded; changes that happen while
// a snapshot is being loaded or consumed are folded into the next one.
type Subscription[T any] struct {
	updates chan T
	cancel  context.CancelFunc
	done    chan struct{}
	once    sync.Once
}

// Watch loads an initial snapshot and a new one after every change on topic.
// The returned subscription must be closed by the caller; cancelling ctx also
// closes it.
//
// A failed load is logged. If no snapshot was delivered yet the zero value is
// sent instead, so a denied or broken query shows up as an empty result.
func Watch[T any](ctx context.Context, h *Hub, topic Topic, load LoadFunc[T]) *Subscription[T] {
	ctx, cancel := context.WithCancel(ctx)
	s := &Subscription[T]{
		updates: make(chan T),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	w := h.register(topic)

	go func() {
		defer close(s.done)
		defer close(s.updates)
		defer h.unregister(topic, w)

		delivered := false
		for {
			snap, err := load(ctx)
			if ctx.Err() != nil {
				return
			}
			switch {
			case err == nil:
				if !s.send(ctx, snap) {
					return
				}
				delivered = true
			case !delivered:
				zap.S().Warnw("live load failed, sending empty snapshot", "topic", topic, "error", err)
				var zero T
				if !s.send(ctx, zero) {
					return
				}
				delivered = true
			default:
				zap.S().Errorw("live load failed", "topic", topic, "error", err)
			}

			select {
			case <-ctx.Done():
				return
			case <-w.signal:
			}
		}
	}()
	return s
}

func (s *Subscription[T]) send(ctx context.Context, v T) bool {
	select {
	case s.updates <- v:
		return true
	case <-ctx.Done():
		return false
	}
}

// Updates is closed once the subscription has shut down
func (s *Subscription[T]) Updates() <-chan T {
	return s.updates
}

// Close disposes the subscription and waits for it to stop. It is safe to
// call more than once.
func (s *Subscription[T]) Close() {
	s.once.Do(s.cancel)
	<-s.done
}
