package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/akinalp/ajans/models"
	"github.com/akinalp/ajans/pkg"
	"github.com/akinalp/ajans/pkg/email"
	"github.com/akinalp/ajans/ws"
)

// ─── ws.EventPublisher ───

type fakePublisher struct {
	mu       sync.Mutex
	toUser   map[string][]ws.Event
	toChannel map[string][]ws.Event
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{
		toUser:   make(map[string][]ws.Event),
		toChannel: make(map[string][]ws.Event),
	}
}

func (p *fakePublisher) BroadcastToUser(userID string, event ws.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.toUser[userID] = append(p.toUser[userID], event)
}

func (p *fakePublisher) BroadcastToChannel(channelID string, event ws.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.toChannel[channelID] = append(p.toChannel[channelID], event)
}

func (p *fakePublisher) userOps(userID string, op string) []ws.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []ws.Event
	for _, e := range p.toUser[userID] {
		if e.Op == op {
			out = append(out, e)
		}
	}
	return out
}

func (p *fakePublisher) channelOps(channelID string, op string) []ws.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []ws.Event
	for _, e := range p.toChannel[channelID] {
		if e.Op == op {
			out = append(out, e)
		}
	}
	return out
}

// ─── EmailQueue ───

type fakeQueue struct {
	mu     sync.Mutex
	jobs   []EmailJob
	reject bool
}

func (q *fakeQueue) Enqueue(job EmailJob) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.reject {
		return false
	}
	q.jobs = append(q.jobs, job)
	return true
}

func (q *fakeQueue) recipients() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, 0, len(q.jobs))
	for _, j := range q.jobs {
		out = append(out, j.UserID)
	}
	sort.Strings(out)
	return out
}

// ─── Renderer ───

type fakeRenderer struct{}

func (fakeRenderer) Notification(lang string, c email.NotificationContent) (email.Message, error) {
	return email.Message{Subject: c.Title, HTML: "<p>" + c.Body + "</p>", Text: lang}, nil
}

func (fakeRenderer) Digest(lang, kind, recipientName string, items []email.DigestItem) (email.Message, error) {
	return email.Message{Subject: fmt.Sprintf("%s digest for %s: %d", kind, recipientName, len(items)), Text: lang}, nil
}

// ─── email.Sender ───

type fakeSender struct {
	mu    sync.Mutex
	sent  []email.Message
	fail  bool
	block chan struct{}
}

func (s *fakeSender) Send(ctx context.Context, msg email.Message) error {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if s.fail {
		return errors.New("smtp: 451 try again later")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return nil
}

func (s *fakeSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

// ─── NotificationRepository ───

type fakeNotificationRepo struct {
	mu      sync.Mutex
	items   map[string]models.Notification
	failFor map[string]bool
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{
		items:   make(map[string]models.Notification),
		failFor: make(map[string]bool),
	}
}

func (r *fakeNotificationRepo) Create(_ context.Context, n *models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failFor[n.UserID] {
		return errors.New("database is locked")
	}
	r.items[n.ID] = *n
	return nil
}

func (r *fakeNotificationRepo) GetByID(_ context.Context, id, userID string) (*models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.items[id]
	if !ok || n.UserID != userID {
		return nil, pkg.ErrNotFound
	}
	return &n, nil
}

func (r *fakeNotificationRepo) forUser(userID string) []models.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Notification
	for _, n := range r.items {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (r *fakeNotificationRepo) List(_ context.Context, userID string, params models.ListNotificationsParams) ([]models.Notification, error) {
	var out []models.Notification
	for _, n := range r.forUser(userID) {
		if params.UnreadOnly && n.IsRead {
			continue
		}
		if params.Before != nil && !n.CreatedAt.Before(*params.Before) {
			continue
		}
		out = append(out, n)
		if len(out) == params.Limit {
			break
		}
	}
	return out, nil
}

func (r *fakeNotificationRepo) CountUnread(_ context.Context, userID string) (int, error) {
	n := 0
	for _, item := range r.forUser(userID) {
		if !item.IsRead {
			n++
		}
	}
	return n, nil
}

func (r *fakeNotificationRepo) SetRead(_ context.Context, id, userID string, read bool, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.items[id]
	if !ok || n.UserID != userID {
		return pkg.ErrNotFound
	}
	n.IsRead = read
	n.ReadAt = nil
	if read {
		n.ReadAt = &at
	}
	r.items[id] = n
	return nil
}

func (r *fakeNotificationRepo) MarkAllRead(_ context.Context, userID string, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var changed int64
	for id, n := range r.items {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			n.ReadAt = &at
			r.items[id] = n
			changed++
		}
	}
	return changed, nil
}

func (r *fakeNotificationRepo) Delete(_ context.Context, id, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.items[id]
	if !ok || n.UserID != userID {
		return pkg.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *fakeNotificationRepo) ListUnreadSince(_ context.Context, userID string, since time.Time, limit int) ([]models.Notification, error) {
	var out []models.Notification
	for _, n := range r.forUser(userID) {
		if !n.IsRead && n.CreatedAt.After(since) {
			out = append(out, n)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// ─── UserRepository ───

type fakeUserRepo struct {
	users   map[string]models.User
	members map[string][]string
	err     error
}

func newFakeUserRepo(users ...models.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[string]models.User), members: make(map[string][]string)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) Upsert(_ context.Context, user *models.User) error {
	r.users[user.ID] = *user
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, pkg.ErrNotFound
	}
	return &u, nil
}

func (r *fakeUserRepo) GetByIDs(_ context.Context, ids []string) (map[string]models.User, error) {
	if r.err != nil {
		return nil, r.err
	}
	out := make(map[string]models.User, len(ids))
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

func (r *fakeUserRepo) AddWorkspaceMember(_ context.Context, m *models.WorkspaceMember) error {
	r.members[m.WorkspaceID] = append(r.members[m.WorkspaceID], m.UserID)
	return nil
}

func (r *fakeUserRepo) IsWorkspaceMember(_ context.Context, workspaceID, userID string) (bool, error) {
	for _, id := range r.members[workspaceID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeUserRepo) ListWorkspaceMembers(_ context.Context, workspaceID string) ([]models.User, error) {
	var out []models.User
	for _, id := range r.members[workspaceID] {
		out = append(out, r.users[id])
	}
	return out, nil
}

// ─── PreferenceRepository / DigestRepository ───

type fakePreferenceRepo struct {
	mu    sync.Mutex
	prefs map[string]models.NotificationPreference
	users []models.User
	err   error
	gets  int

	// afterGet, Get okumayı bitirip dönmeden önce bir kez çağrılır.
	afterGet func()
}

func newFakePreferenceRepo() *fakePreferenceRepo {
	return &fakePreferenceRepo{prefs: make(map[string]models.NotificationPreference)}
}

func (r *fakePreferenceRepo) Get(_ context.Context, userID string) (*models.NotificationPreference, error) {
	r.mu.Lock()
	r.gets++
	err := r.err
	p, ok := r.prefs[userID]
	hook := r.afterGet
	r.afterGet = nil
	r.mu.Unlock()

	if hook != nil {
		hook()
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, pkg.ErrNotFound
	}
	return &p, nil
}

func (r *fakePreferenceRepo) Upsert(_ context.Context, pref *models.NotificationPreference) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prefs[pref.UserID] = *pref
	return nil
}

func (r *fakePreferenceRepo) ListDigestRecipients(_ context.Context, kind models.DigestKind) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.User
	for _, u := range r.users {
		p, ok := r.prefs[u.ID]
		if !ok || !p.EmailEnabled {
			continue
		}
		if (kind == models.DigestDaily && p.DigestDaily) || (kind == models.DigestWeekly && p.DigestWeekly) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *fakePreferenceRepo) getCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gets
}

type fakeDigestRepo struct {
	sent map[string]time.Time
}

func newFakeDigestRepo() *fakeDigestRepo {
	return &fakeDigestRepo{sent: make(map[string]time.Time)}
}

func (r *fakeDigestRepo) LastSent(_ context.Context, userID string, kind models.DigestKind) (time.Time, error) {
	at, ok := r.sent[userID+"/"+string(kind)]
	if !ok {
		return time.Time{}, pkg.ErrNotFound
	}
	return at, nil
}

func (r *fakeDigestRepo) MarkSent(_ context.Context, userID string, kind models.DigestKind, at time.Time) error {
	r.sent[userID+"/"+string(kind)] = at
	return nil
}
