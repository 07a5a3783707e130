package inbox

import (
	"context"
	"errors"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/zoe-motors/storefront-api/databases"
	"github.com/zoe-motors/storefront-api/live"
	"github.com/zoe-motors/storefront-api/models"
)

// DefaultConcurrency bounds the per-user chat queries of one fetch
const DefaultConcurrency = 8

// mongo's Unauthorized error code
const codeUnauthorized = 13

// Aggregator builds the admin inbox feed
type Aggregator struct {
	Users       databases.UserDatabase
	Chats       databases.ChatDatabase
	Contacts    databases.ContactDatabase
	Submissions databases.SubmissionDatabase
	Hub         *live.Hub
	Concurrency int
}

// Fetch queries every user's chat thread plus the contact and submission
// collections concurrently, then merges them newest first. A query that is
// denied contributes nothing; any other failure fails the fetch.
func (a *Aggregator) Fetch(ctx context.Context) ([]Message, error) {
	users, err := a.Users.Find(ctx, bson.M{})
	if err != nil {
		if denied(err) {
			zap.S().Warnw("inbox: user listing denied", "error", err)
			return []Message{}, nil
		}
		return nil, err
	}

	limit := a.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	// one slot per query so no locking is needed
	parts := make([][]Message, len(users)+2)
	for i, u := range users {
		i, u := i, u
		g.Go(func() error {
			msgs, err := a.Chats.Find(gctx, databases.ThreadFilter(u.ID))
			if err != nil {
				return degrade("chat:"+u.ID, err)
			}
			out := make([]Message, 0, len(msgs))
			for _, m := range msgs {
				out = append(out, fromChat(m, u))
			}
			parts[i] = out
			return nil
		})
	}
	g.Go(func() error {
		msgs, err := a.Contacts.Find(gctx, bson.M{})
		if err != nil {
			return degrade("contact_messages", err)
		}
		out := make([]Message, 0, len(msgs))
		for _, c := range msgs {
			out = append(out, fromContact(c))
		}
		parts[len(users)] = out
		return nil
	})
	g.Go(func() error {
		subs, err := a.Submissions.Find(gctx, bson.M{})
		if err != nil {
			return degrade("car_submissions", err)
		}
		out := make([]Message, 0, len(subs))
		for _, s := range subs {
			out = append(out, fromSubmission(s))
		}
		parts[len(users)+1] = out
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var feed []Message
	for _, p := range parts {
		feed = append(feed, p...)
	}
	SortNewestFirst(feed)
	return feed, nil
}

// SortNewestFirst orders by date descending; equal dates keep their order
func SortNewestFirst(msgs []Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Date.After(msgs[j].Date)
	})
}

func degrade(query string, err error) error {
	if denied(err) {
		zap.S().Warnw("inbox: query denied, skipping", "query", query, "error", err)
		return nil
	}
	return err
}

func denied(err error) bool {
	var se mongo.ServerError
	if errors.As(err, &se) {
		return se.HasErrorCode(codeUnauthorized)
	}
	return false
}

// MarkAsRead flags one message as read in the collection it lives in
func (a *Aggregator) MarkAsRead(ctx context.Context, ref Ref) error {
	err := ref.Source.Accept(&writer{ctx: ctx, a: a, id: ref.ID, delete: false})
	if err == nil {
		a.publish(ctx, ref)
	}
	return err
}

// Delete removes one message from the collection it lives in
func (a *Aggregator) Delete(ctx context.Context, ref Ref) error {
	err := ref.Source.Accept(&writer{ctx: ctx, a: a, id: ref.ID, delete: true})
	if err == nil {
		a.publish(ctx, ref)
	}
	return err
}

func (a *Aggregator) publish(ctx context.Context, ref Ref) {
	if a.Hub == nil {
		return
	}
	a.Hub.Publish(ctx, live.TopicInbox)
	if c, ok := ref.Source.(ChatSource); ok && c.OwnerID != "" {
		a.Hub.Publish(ctx, live.ChatTopic(c.OwnerID))
	}
}

type writer struct {
	ctx    context.Context
	a      *Aggregator
	id     string
	delete bool
}

func (w *writer) VisitChat(ChatSource) error {
	if w.delete {
		return w.a.Chats.DeleteOne(w.ctx, bson.M{"_id": w.id})
	}
	return w.a.Chats.UpdateOne(w.ctx, bson.M{"_id": w.id}, bson.M{"$set": bson.M{"message.read": true}})
}

func (w *writer) VisitContact(ContactSource) error {
	if w.delete {
		return w.a.Contacts.DeleteOne(w.ctx, bson.M{"_id": w.id})
	}
	return w.a.Contacts.UpdateOne(w.ctx, bson.M{"_id": w.id}, bson.M{"$set": bson.M{"contact.read": true}})
}

func (w *writer) VisitSubmission(SubmissionSource) error {
	if w.delete {
		return w.a.Submissions.DeleteOne(w.ctx, bson.M{"_id": w.id})
	}
	return w.a.Submissions.UpdateOne(w.ctx, bson.M{"_id": w.id}, bson.M{"$set": bson.M{"submission.read": true}})
}

// Unread counts the unread messages in a feed
func Unread(msgs []Message) int {
	n := 0
	for _, m := range msgs {
		if !m.Read {
			n++
		}
	}
	return n
}

// Submissions is the message center view: car submissions of one type
// (all types when t is empty) matching a case-insensitive query on name,
// email, make or model.
func Submissions(msgs []Message, t models.SubmissionType, query string) []Message {
	q := strings.ToLower(strings.TrimSpace(query))
	var out []Message
	for _, m := range msgs {
		s, ok := m.Source.(SubmissionSource)
		if !ok {
			continue
		}
		if t != "" && s.Submission.SubmissionType != t {
			continue
		}
		if q != "" && !matches(q, s.Submission.Name, s.Submission.Email, s.Submission.CarMake, s.Submission.CarModel) {
			continue
		}
		out = append(out, m)
	}
	return out
}

func matches(q string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}
