package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/zoe-motors/storefront-api/databases/mocks"
	"github.com/zoe-motors/storefront-api/models"
	templates "github.com/zoe-motors/storefront-api/templates/html"
)

type recordingNotifier struct {
	bodies []string
}

func (n *recordingNotifier) Notify(_ context.Context, notice templates.Notice) error {
	n.bodies = append(n.bodies, notice.Text())
	return nil
}

type busyLock struct{}

func (busyLock) TryAcquire(context.Context, string, string, time.Duration) (bool, error) {
	return false, nil
}
func (busyLock) Release(context.Context, string, string) error { return nil }

func counts(chats, contacts, unreadSubs, pending int64) (*mocks.ChatDatabase, *mocks.ContactDatabase, *mocks.SubmissionDatabase) {
	c := &mocks.ChatDatabase{}
	c.On("CountDocuments", mock.Anything, bson.M{
		"message.read":     false,
		"message.senderId": bson.M{"$ne": models.AdminSenderID},
	}).Return(chats, nil)
	k := &mocks.ContactDatabase{}
	k.On("CountDocuments", mock.Anything, bson.M{"contact.read": false}).Return(contacts, nil)
	s := &mocks.SubmissionDatabase{}
	s.On("CountDocuments", mock.Anything, bson.M{"submission.read": false}).Return(unreadSubs, nil)
	s.On("CountDocuments", mock.Anything, bson.M{"submission.status": models.SubmissionPending}).Return(pending, nil)
	return c, k, s
}

func TestRunDigest_SendsCounts(t *testing.T) {
	c, k, s := counts(3, 1, 2, 4)
	n := &recordingNotifier{}
	sch := NewScheduler(c, k, s, n, nil, "")

	require.NoError(t, sch.RunDigest(context.Background()))
	require.Len(t, n.bodies, 1)
	assert.Contains(t, n.bodies[0], "Unread chat messages: 3\n")
	assert.Contains(t, n.bodies[0], "Unread car submissions: 2\n")
	assert.Contains(t, n.bodies[0], "Submissions pending review: 4\n")
	assert.Equal(t, DefaultDigestSchedule, sch.Schedule)
}

func TestRunDigest_SkipsEmptyInbox(t *testing.T) {
	c, k, s := counts(0, 0, 0, 0)
	n := &recordingNotifier{}
	require.NoError(t, NewScheduler(c, k, s, n, nil, "").RunDigest(context.Background()))
	assert.Empty(t, n.bodies)
}

func TestRunDigest_SkipsWhenLockIsHeld(t *testing.T) {
	c := &mocks.ChatDatabase{}
	n := &recordingNotifier{}
	require.NoError(t, NewScheduler(c, &mocks.ContactDatabase{}, &mocks.SubmissionDatabase{}, n, busyLock{}, "").RunDigest(context.Background()))
	c.AssertNotCalled(t, "CountDocuments", mock.Anything, mock.Anything)
	assert.Empty(t, n.bodies)
}

func TestCollect_PropagatesErrors(t *testing.T) {
	c := &mocks.ChatDatabase{}
	c.On("CountDocuments", mock.Anything, mock.Anything).Return(int64(0), errors.New("timeout"))
	_, err := NewScheduler(c, nil, nil, nil, nil, "").Collect(context.Background())
	assert.EqualError(t, err, "counting unread chats: timeout")
}

func TestStart_RejectsBadSchedule(t *testing.T) {
	sch := NewScheduler(nil, nil, nil, nil, nil, "not a cron line")
	assert.Error(t, sch.Start())
}

type countingSweeper struct{ sweeps int }

func (c *countingSweeper) Sweep(time.Time) int {
	c.sweeps++
	return 0
}

func TestStart_RegistersSessionSweep(t *testing.T) {
	sweeper := &countingSweeper{}
	sch := NewScheduler(nil, nil, nil, nil, nil, "")
	sch.Sessions = sweeper
	require.NoError(t, sch.Start())
	defer sch.Stop()

	assert.Len(t, sch.cron.Entries(), 2)
	sch.sweepSessions()
	assert.Equal(t, 1, sweeper.sweeps)
}
