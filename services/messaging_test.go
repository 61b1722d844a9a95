package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/akinalp/ajans/models"
	"github.com/akinalp/ajans/pkg"
	"github.com/akinalp/ajans/pkg/testutil"
	"github.com/akinalp/ajans/repository"
	"github.com/akinalp/ajans/ws"
)

type chatFixture struct {
	users      repository.UserRepository
	channels   repository.ChannelRepository
	readRepo   repository.ReadStateRepository
	notifRepo  repository.NotificationRepository
	messages   MessageService
	readStates ReadStateService
	channelSvc ChannelService
	hub        *fakePublisher
	queue      *fakeQueue
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	db := testutil.NewTestDB(t)
	log := zap.NewNop()

	f := &chatFixture{
		users:     repository.NewSQLUserRepo(db.Conn),
		channels:  repository.NewSQLChannelRepo(db.Conn),
		readRepo:  repository.NewSQLReadStateRepo(db.Conn),
		notifRepo: repository.NewSQLNotificationRepo(db.Conn),
		hub:       newFakePublisher(),
		queue:     &fakeQueue{},
	}
	messageRepo := repository.NewSQLMessageRepo(db.Conn)

	prefs := NewPreferenceService(repository.NewSQLPreferenceRepo(db.Conn), nil, log)
	notifier := NewNotificationService(f.notifRepo, f.users, prefs, f.hub, f.queue, fakeRenderer{}, log)

	f.readStates = NewReadStateService(f.readRepo, messageRepo, f.channels, f.users, f.hub, log)
	f.messages = NewMessageService(messageRepo, repository.NewSQLMentionRepo(db.Conn), f.channels, f.users,
		f.readStates, notifier, f.hub, 0, log)
	f.channelSvc = NewChannelService(f.channels, f.users)

	for _, id := range []string{"alice", "bob", "carol"} {
		f.addUser(t, id, "ws1")
	}
	f.addUser(t, "mallory", "ws2")
	return f
}

func (f *chatFixture) addUser(t *testing.T, id, workspaceID string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.users.Upsert(ctx, &models.User{ID: id, Username: id, Email: id + "@example.com"}))
	require.NoError(t, f.users.AddWorkspaceMember(ctx, &models.WorkspaceMember{WorkspaceID: workspaceID, UserID: id}))
}

func (f *chatFixture) user(t *testing.T, id string) *models.User {
	t.Helper()
	u, err := f.users.GetByID(context.Background(), id)
	require.NoError(t, err)
	return u
}

func (f *chatFixture) channel(t *testing.T, creator string, private bool, members ...string) *models.Channel {
	t.Helper()
	ctx := context.Background()
	ch, err := f.channelSvc.Create(ctx, "ws1", creator, &models.CreateChannelRequest{
		Name: fmt.Sprintf("chan-%d", time.Now().UnixNano()), IsPrivate: private,
	})
	require.NoError(t, err)
	for _, m := range members {
		require.NoError(t, f.channelSvc.AddMember(ctx, ch.ID, creator, m))
	}
	return ch
}

func (f *chatFixture) send(t *testing.T, channelID, userID, body string) *models.Message {
	t.Helper()
	msg, err := f.messages.Send(context.Background(), channelID, f.user(t, userID), &models.CreateMessageRequest{Body: body})
	require.NoError(t, err)
	return msg
}

// withClock, mesaj servisinin saatini her çağrıda step kadar ilerletir.
func (f *chatFixture) withClock(start time.Time, step time.Duration) {
	var mu sync.Mutex
	next := start
	f.messages.(*messageService).now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := next
		next = next.Add(step)
		return t
	}
}

func (f *chatFixture) unread(t *testing.T, userID, channelID string) *models.ReadState {
	t.Helper()
	st, err := f.readRepo.Get(context.Background(), userID, channelID)
	if errors.Is(err, pkg.ErrNotFound) {
		return &models.ReadState{UserID: userID, ChannelID: channelID}
	}
	require.NoError(t, err)
	return st
}

func TestMessages_WindowThenOlderYieldsFullHistory(t *testing.T) {
	f := newChatFixture(t)
	ch := f.channel(t, "alice", false)
	f.withClock(time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC), time.Second)

	var all []string
	for i := 0; i < 45; i++ {
		all = append(all, f.send(t, ch.ID, "alice", fmt.Sprintf("message %d", i)).ID)
	}

	ctx := context.Background()
	page, err := f.messages.LoadWindow(ctx, ch.ID, "bob", 20)
	require.NoError(t, err)
	require.True(t, page.HasMore)

	loaded := page.Messages
	for page.HasMore {
		page, err = f.messages.LoadOlder(ctx, ch.ID, "bob", loaded[0].ID, 20)
		require.NoError(t, err)
		loaded = append(append([]models.Message{}, page.Messages...), loaded...)
	}

	ids := make([]string, len(loaded))
	for i, m := range loaded {
		ids[i] = m.ID
		if i > 0 {
			assert.Greater(t, m.Seq, loaded[i-1].Seq)
			assert.True(t, m.CreatedAt.After(loaded[i-1].CreatedAt))
		}
	}
	assert.Equal(t, all, ids)
}

func TestMessages_AlternatingSendersScenario(t *testing.T) {
	f := newChatFixture(t)
	ch := f.channel(t, "alice", false)
	f.withClock(time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC), 800*time.Millisecond)

	var ids []string
	for i := 0; i < 25; i++ {
		sender := "alice"
		if i%2 == 1 {
			sender = "bob"
		}
		ids = append(ids, f.send(t, ch.ID, sender, fmt.Sprintf("m%d", i)).ID)
	}

	page, err := f.messages.LoadWindow(context.Background(), ch.ID, "carol", 20)
	require.NoError(t, err)
	require.Len(t, page.Messages, 20)
	assert.True(t, page.HasMore)
	assert.Equal(t, ids[5:], func() []string {
		out := make([]string, len(page.Messages))
		for i, m := range page.Messages {
			out[i] = m.ID
		}
		return out
	}())

	groups := f.messages.Group(page.Messages)
	assert.Len(t, groups, 20)
	assert.Equal(t, groups, f.messages.Group(page.Messages))
}

func TestMessages_LoadOlderCursorValidation(t *testing.T) {
	f := newChatFixture(t)
	a := f.channel(t, "alice", false)
	b := f.channel(t, "alice", false)
	foreign := f.send(t, b.ID, "alice", "elsewhere")
	f.send(t, a.ID, "alice", "here")

	ctx := context.Background()
	_, err := f.messages.LoadOlder(ctx, a.ID, "alice", foreign.ID, 20)
	assert.True(t, errors.Is(err, pkg.ErrNotFound))

	_, err = f.messages.LoadOlder(ctx, a.ID, "alice", "no-such-message", 20)
	assert.True(t, errors.Is(err, pkg.ErrNotFound))

	page, err := f.messages.LoadWindow(ctx, "no-such-channel", "alice", 20)
	assert.True(t, errors.Is(err, pkg.ErrNotFound))
	assert.Nil(t, page)
}

func TestMessages_AccessRules(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	private := f.channel(t, "alice", true, "bob")

	_, err := f.messages.LoadWindow(ctx, private.ID, "carol", 20)
	assert.True(t, errors.Is(err, pkg.ErrForbidden))

	_, err = f.messages.Send(ctx, private.ID, f.user(t, "carol"), &models.CreateMessageRequest{Body: "hi"})
	assert.True(t, errors.Is(err, pkg.ErrForbidden))

	public := f.channel(t, "alice", false)
	_, err = f.messages.LoadWindow(ctx, public.ID, "mallory", 20)
	assert.True(t, errors.Is(err, pkg.ErrForbidden), "other workspace")

	_, err = f.messages.Send(ctx, public.ID, f.user(t, "bob"), &models.CreateMessageRequest{Body: "   "})
	assert.True(t, errors.Is(err, pkg.ErrBadRequest))

	_, err = f.channelSvc.Archive(ctx, public.ID, "alice")
	require.NoError(t, err)
	_, err = f.messages.Send(ctx, public.ID, f.user(t, "bob"), &models.CreateMessageRequest{Body: "too late"})
	assert.True(t, errors.Is(err, pkg.ErrBadRequest))

	page, err := f.messages.LoadWindow(ctx, public.ID, "bob", 20)
	require.NoError(t, err, "archived history stays readable")
	assert.Empty(t, page.Messages)
}

func TestMessages_SendBroadcastsAndNotifiesMentions(t *testing.T) {
	f := newChatFixture(t)
	ch := f.channel(t, "alice", false)

	msg := f.send(t, ch.ID, "alice", "@bob can you review? cc @carol @bob @alice @nobody")
	assert.Equal(t, []string{"bob", "carol", "alice"}, msg.Mentions)
	assert.EqualValues(t, 1, msg.Seq)

	events := f.hub.channelOps(ch.ID, ws.OpMessageCreate)
	require.Len(t, events, 1)
	assert.Equal(t, msg.ID, events[0].Data.(*models.Message).ID)

	ctx := context.Background()
	for _, id := range []string{"bob", "carol"} {
		list, err := f.notifRepo.List(ctx, id, models.ListNotificationsParams{Limit: 10})
		require.NoError(t, err)
		require.Len(t, list, 1, id)
		assert.Equal(t, models.CategoryMention, list[0].Category)
		assert.Equal(t, "alice", *list[0].SenderID)
		assert.Equal(t, msg.ID, list[0].Metadata["message_id"])
	}

	self, err := f.notifRepo.List(ctx, "alice", models.ListNotificationsParams{Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, self, "author never notifies themselves")
	assert.Equal(t, []string{"bob", "carol"}, f.queue.recipients())

	page, err := f.messages.LoadWindow(ctx, ch.ID, "bob", 20)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob", "carol", "alice"}, page.Messages[0].Mentions)
}

func TestMessages_PrivateMentionsNotifyOnlyChannelMembers(t *testing.T) {
	f := newChatFixture(t)
	ch := f.channel(t, "alice", true, "bob")

	msg := f.send(t, ch.ID, "alice", "@bob @carol plan is attached")
	assert.Equal(t, []string{"bob", "carol"}, msg.Mentions)

	ctx := context.Background()
	bob, err := f.notifRepo.List(ctx, "bob", models.ListNotificationsParams{Limit: 10})
	require.NoError(t, err)
	require.Len(t, bob, 1)

	carol, err := f.notifRepo.List(ctx, "carol", models.ListNotificationsParams{Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, carol, "carol cannot see the channel and must not get a preview")
	assert.Equal(t, []string{"bob"}, f.queue.recipients())
}

func TestMessages_ConcurrentSendsKeepOrder(t *testing.T) {
	f := newChatFixture(t)
	ch := f.channel(t, "alice", false)

	senders := []*models.User{f.user(t, "alice"), f.user(t, "bob"), f.user(t, "carol")}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.messages.Send(context.Background(), ch.ID, senders[i%3],
				&models.CreateMessageRequest{Body: fmt.Sprintf("concurrent %d", i)})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	page, err := f.messages.LoadWindow(context.Background(), ch.ID, "alice", 50)
	require.NoError(t, err)
	require.Len(t, page.Messages, 10)
	for i, m := range page.Messages {
		assert.EqualValues(t, i+1, m.Seq)
		if i > 0 {
			assert.False(t, m.CreatedAt.Before(page.Messages[i-1].CreatedAt))
		}
	}
}

func TestReadState_UnreadLifecycle(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	ch := f.channel(t, "alice", false, "bob", "carol")

	first := f.send(t, ch.ID, "alice", "one")
	f.send(t, ch.ID, "alice", "two")
	third := f.send(t, ch.ID, "alice", "three")

	assert.Equal(t, 3, f.unread(t, "bob", ch.ID).UnreadCount)
	assert.Equal(t, 0, f.unread(t, "alice", ch.ID).UnreadCount, "author is never counted")

	pushes := f.hub.userOps("bob", ws.OpChannelUnread)
	require.Len(t, pushes, 3)
	assert.Equal(t, ws.ChannelUnreadData{ChannelID: ch.ID, UnreadCount: 3}, pushes[2].Data)

	st, err := f.readStates.MarkRead(ctx, ch.ID, "bob", "")
	require.NoError(t, err)
	assert.Equal(t, 0, st.UnreadCount)
	assert.Equal(t, third.Seq, st.LastReadSeq)

	f.send(t, ch.ID, "carol", "four")
	f.send(t, ch.ID, "alice", "five")
	assert.Equal(t, 2, f.unread(t, "bob", ch.ID).UnreadCount)

	// Eski mesaj için gelen işaret watermark'ı geri almaz, sayacı artırmaz.
	st, err = f.readStates.MarkRead(ctx, ch.ID, "bob", first.ID)
	require.NoError(t, err)
	assert.Equal(t, third.Seq, st.LastReadSeq)
	assert.Equal(t, 2, st.UnreadCount)

	counts, err := f.readStates.GetUnreadCounts(ctx, "bob", "ws1")
	require.NoError(t, err)
	assert.Equal(t, []models.UnreadInfo{{ChannelID: ch.ID, UnreadCount: 2}}, counts)
}

func TestReadState_MarkReadValidation(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	a := f.channel(t, "alice", false)
	b := f.channel(t, "alice", false)
	other := f.send(t, b.ID, "alice", "x")

	st, err := f.readStates.MarkRead(ctx, a.ID, "bob", "")
	require.NoError(t, err, "empty channel")
	assert.Equal(t, 0, st.UnreadCount)

	_, err = f.readStates.MarkRead(ctx, a.ID, "bob", other.ID)
	assert.True(t, errors.Is(err, pkg.ErrNotFound))

	_, err = f.readStates.MarkRead(ctx, a.ID, "mallory", "")
	assert.True(t, errors.Is(err, pkg.ErrForbidden))
}

func TestChannels_VisibilityAndMembership(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	public := f.channel(t, "alice", false)
	private := f.channel(t, "alice", true)

	visible := func(userID string) []string {
		list, err := f.channelSvc.List(ctx, "ws1", userID)
		require.NoError(t, err)
		out := make([]string, 0, len(list))
		for _, c := range list {
			out = append(out, c.ID)
		}
		return out
	}

	assert.ElementsMatch(t, []string{public.ID, private.ID}, visible("alice"))
	assert.Equal(t, []string{public.ID}, visible("bob"))

	err := f.channelSvc.AddMember(ctx, private.ID, "alice", "mallory")
	assert.True(t, errors.Is(err, pkg.ErrBadRequest))

	err = f.channelSvc.AddMember(ctx, private.ID, "bob", "carol")
	assert.True(t, errors.Is(err, pkg.ErrForbidden))

	require.NoError(t, f.channelSvc.AddMember(ctx, private.ID, "alice", "bob"))
	assert.ElementsMatch(t, []string{public.ID, private.ID}, visible("bob"))

	name := "renamed"
	updated, err := f.channelSvc.Update(ctx, private.ID, "bob", &models.UpdateChannelRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Name)

	_, err = f.channelSvc.Create(ctx, "ws1", "alice", &models.CreateChannelRequest{Name: "  "})
	assert.True(t, errors.Is(err, pkg.ErrBadRequest))
}
