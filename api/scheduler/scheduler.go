// Package scheduler runs the periodic back office jobs.
package scheduler

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/zoe-motors/storefront-api/databases"
	"github.com/zoe-motors/storefront-api/models"
	templates "github.com/zoe-motors/storefront-api/templates/html"
)

const digestJob = "admin_digest_job"

// SweepSchedule is how often expired sessions are closed
const SweepSchedule = "@every 1m"

// SessionSweeper closes sessions whose tokens expired
type SessionSweeper interface {
	Sweep(now time.Time) int
}

// DefaultDigestSchedule runs the digest every morning at 07:00 UTC
const DefaultDigestSchedule = "0 7 * * *"

// Notifier delivers the digest to the admins
type Notifier interface {
	Notify(ctx context.Context, n templates.Notice) error
}

// Scheduler handles periodic background jobs
type Scheduler struct {
	cron        *cron.Cron
	Chats       databases.ChatDatabase
	Contacts    databases.ContactDatabase
	Submissions databases.SubmissionDatabase
	Notifier    Notifier
	Lock        Locker
	Schedule    string
	// Sessions is swept on every instance, so the sweep takes no lock
	Sessions    SessionSweeper
	instanceID  string
}

// NewScheduler creates a new scheduler instance
func NewScheduler(
	chats databases.ChatDatabase,
	contacts databases.ContactDatabase,
	submissions databases.SubmissionDatabase,
	notifier Notifier,
	lock Locker,
	schedule string,
) *Scheduler {
	// Heroku sets DYNO to "web.1", "web.2", etc.
	instanceID := os.Getenv("DYNO")
	if instanceID == "" {
		instanceID = fmt.Sprintf("instance-%d", time.Now().UnixNano())
	}
	if lock == nil {
		lock = LocalLock{}
	}
	if schedule == "" {
		schedule = DefaultDigestSchedule
	}

	return &Scheduler{
		cron:        cron.New(cron.WithLocation(time.UTC)),
		Chats:       chats,
		Contacts:    contacts,
		Submissions: submissions,
		Notifier:    notifier,
		Lock:        lock,
		Schedule:    schedule,
		instanceID:  instanceID,
	}
}

// Start begins the scheduler with all registered jobs
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.Schedule, s.sendDigest); err != nil {
		zap.S().Errorw("failed to register digest job", "schedule", s.Schedule, "error", err)
		return err
	}
	if s.Sessions != nil {
		if _, err := s.cron.AddFunc(SweepSchedule, s.sweepSessions); err != nil {
			return err
		}
	}
	s.cron.Start()
	zap.S().Infow("scheduler started", "digest", s.Schedule)
	return nil
}

func (s *Scheduler) sweepSessions() {
	s.Sessions.Sweep(time.Now())
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	zap.S().Info("scheduler stopped")
}

// Notice is the digest email
func (d Digest) Notice() templates.Notice {
	count := func(n int64) string { return strconv.FormatInt(n, 10) }
	return templates.Notice{
		Subject:  "Zoe Motors daily digest",
		Headline: "Good morning",
		Intro:    "Waiting in the message center:",
		Items: []templates.Item{
			{Label: "Unread chat messages", Value: count(d.UnreadChats)},
			{Label: "Unread contact messages", Value: count(d.UnreadContacts)},
			{Label: "Unread car submissions", Value: count(d.UnreadSubmissions)},
			{Label: "Submissions pending review", Value: count(d.PendingSubmissions)},
		},
		Action: &templates.Action{Label: "Open message center", URL: "/admin/messages"},
	}
}

// Digest is what the admins are told every morning
type Digest struct {
	UnreadChats        int64 `json:"unreadChats"`
	UnreadContacts     int64 `json:"unreadContacts"`
	UnreadSubmissions  int64 `json:"unreadSubmissions"`
	PendingSubmissions int64 `json:"pendingSubmissions"`
}

// Empty reports whether there is nothing to tell
func (d Digest) Empty() bool {
	return d.UnreadChats+d.UnreadContacts+d.UnreadSubmissions+d.PendingSubmissions == 0
}

// Collect counts the open inbox items
func (s *Scheduler) Collect(ctx context.Context) (Digest, error) {
	var d Digest
	var err error
	// replies written by the back office are not waiting on anyone
	if d.UnreadChats, err = s.Chats.CountDocuments(ctx, bson.M{
		"message.read":     false,
		"message.senderId": bson.M{"$ne": models.AdminSenderID},
	}); err != nil {
		return d, fmt.Errorf("counting unread chats: %w", err)
	}
	if d.UnreadContacts, err = s.Contacts.CountDocuments(ctx, bson.M{"contact.read": false}); err != nil {
		return d, fmt.Errorf("counting unread contacts: %w", err)
	}
	if d.UnreadSubmissions, err = s.Submissions.CountDocuments(ctx, bson.M{"submission.read": false}); err != nil {
		return d, fmt.Errorf("counting unread submissions: %w", err)
	}
	if d.PendingSubmissions, err = s.Submissions.CountDocuments(ctx, bson.M{"submission.status": models.SubmissionPending}); err != nil {
		return d, fmt.Errorf("counting pending submissions: %w", err)
	}
	return d, nil
}

// sendDigest emails the admins the open inbox counts
func (s *Scheduler) sendDigest() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	if err := s.RunDigest(ctx); err != nil {
		zap.S().Errorw("digest job failed", "error", err)
	}
}

// RunDigest runs one digest unless another instance holds the job lock
func (s *Scheduler) RunDigest(ctx context.Context) error {
	acquired, err := s.Lock.TryAcquire(ctx, digestJob, s.instanceID, 10*time.Minute)
	if err != nil {
		return fmt.Errorf("acquiring digest lock: %w", err)
	}
	if !acquired {
		zap.S().Debug("digest job already running on another instance, skipping")
		return nil
	}
	defer func() {
		if err := s.Lock.Release(ctx, digestJob, s.instanceID); err != nil {
			zap.S().Warnw("failed to release digest lock", "error", err)
		}
	}()

	d, err := s.Collect(ctx)
	if err != nil {
		return err
	}
	if d.Empty() {
		zap.S().Infow("digest skipped, inbox is clear", "instance", s.instanceID)
		return nil
	}
	if err := s.Notifier.Notify(ctx, d.Notice()); err != nil {
		return fmt.Errorf("sending digest: %w", err)
	}
	zap.S().Infow("digest sent", "instance", s.instanceID, "digest", d)
	return nil
}
