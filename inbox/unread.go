package inbox

import (
	"context"
	"sync/atomic"

	"github.com/zoe-motors/storefront-api/databases"
	"github.com/zoe-motors/storefront-api/live"
)

// UnreadCounter keeps the unread count of one user's thread current. It is
// its own live subscription, independent of the one-shot inbox fetch.
type UnreadCounter struct {
	sub     *live.Subscription[int64]
	count   int64
	changes chan int64
	done    chan struct{}
}

// NewUnreadCounter subscribes to the user's chat topic
func NewUnreadCounter(ctx context.Context, hub *live.Hub, chats databases.ChatDatabase, userID string) *UnreadCounter {
	sub := live.Watch(ctx, hub, live.ChatTopic(userID), func(ctx context.Context) (int64, error) {
		return chats.CountDocuments(ctx, databases.UnreadFilter(userID))
	})
	c := &UnreadCounter{
		sub:     sub,
		changes: make(chan int64, 1),
		done:    make(chan struct{}),
	}
	go c.pump()
	return c
}

func (c *UnreadCounter) pump() {
	defer close(c.done)
	defer close(c.changes)
	for n := range c.sub.Updates() {
		atomic.StoreInt64(&c.count, n)
		// keep only the latest value for slow readers
		select {
		case <-c.changes:
		default:
		}
		c.changes <- n
	}
}

// Count is the latest known count
func (c *UnreadCounter) Count() int64 {
	return atomic.LoadInt64(&c.count)
}

// Changes yields every new count; it is closed after Close
func (c *UnreadCounter) Changes() <-chan int64 {
	return c.changes
}

// Close disposes the subscription
func (c *UnreadCounter) Close() {
	c.sub.Close()
	<-c.done
}
