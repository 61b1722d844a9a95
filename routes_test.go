package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/akinalp/ajans/config"
	"github.com/akinalp/ajans/models"
	"github.com/akinalp/ajans/pkg/testutil"
)

const testSecret = "test-secret"

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type testServer struct {
	srv   *httptest.Server
	repos *Repositories
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := zap.NewNop()
	db := testutil.NewTestDB(t)

	cfg := &config.Config{
		JWT:   config.JWTConfig{Secret: testSecret},
		Email: config.EmailConfig{Provider: "log", AppURL: "http://localhost:3000"},
		Notify: config.NotifyConfig{
			EmailWorkers:   1,
			EmailQueueSize: 16,
			EmailTimeout:   time.Second,
		},
		Chat: config.ChatConfig{
			GroupGap:        5 * time.Minute,
			MessageLimit:    3,
			MessageWindow:   time.Minute,
			MessageCooldown: time.Minute,
		},
	}

	repos := initRepositories(db.Conn)
	rt, err := initRealtime(context.Background(), cfg.Redis, log)
	require.NoError(t, err)
	svcs, bg, err := initServices(repos, rt.Hub, cfg, log)
	require.NoError(t, err)

	mux := http.NewServeMux()
	initRoutes(mux, initHandlers(svcs, bg, rt.Hub, cfg), svcs.Auth, repos.User)
	srv := httptest.NewServer(mux)

	t.Cleanup(func() {
		srv.Close()
		bg.Close()
		rt.Close(log)
	})

	ctx := context.Background()
	seed := []struct{ id, workspace string }{{"alice", "ws1"}, {"bob", "ws1"}, {"mallory", "ws2"}}
	for _, s := range seed {
		require.NoError(t, repos.User.Upsert(ctx, &models.User{ID: s.id, Username: s.id, Email: s.id + "@example.com"}))
		require.NoError(t, repos.User.AddWorkspaceMember(ctx, &models.WorkspaceMember{WorkspaceID: s.workspace, UserID: s.id}))
	}

	return &testServer{srv: srv, repos: repos}
}

func token(t *testing.T, userID string) string {
	t.Helper()
	claims := models.TokenClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

// do, isteği gönderir; userID boşsa Authorization header'ı eklenmez.
func (s *testServer) do(t *testing.T, method, path, userID string, body any) (*http.Response, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, s.srv.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+token(t, userID))
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func TestRoutes_Authentication(t *testing.T) {
	s := newTestServer(t)

	resp, env := s.do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, env.Success)

	resp, env = s.do(t, http.MethodGet, "/api/notifications", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.False(t, env.Success)

	// Token geçerli ama kullanıcı store'da yok
	resp, _ = s.do(t, http.MethodGet, "/api/notifications", "ghost", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, s.srv.URL+"/api/notifications", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	raw, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	raw.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, raw.StatusCode)
}

func TestRoutes_WorkspaceMembership(t *testing.T) {
	s := newTestServer(t)

	resp, _ := s.do(t, http.MethodGet, "/api/workspaces/ws1/channels", "mallory", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = s.do(t, http.MethodPost, "/api/workspaces/ws1/channels", "mallory",
		models.CreateChannelRequest{Name: "intruders"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, env := s.do(t, http.MethodGet, "/api/workspaces/ws1/channels", "alice", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]models.ChannelWithUnread](t, env))
}

func TestRoutes_ChannelMessagingFlow(t *testing.T) {
	s := newTestServer(t)

	resp, env := s.do(t, http.MethodPost, "/api/workspaces/ws1/channels", "alice",
		models.CreateChannelRequest{Name: "launch", IsPrivate: true})
	require.Equal(t, http.StatusCreated, resp.StatusCode, env.Error)
	channel := decode[models.Channel](t, env)

	// Özel kanal: bob henüz üye değil
	resp, _ = s.do(t, http.MethodGet, "/api/channels/"+channel.ID+"/messages", "bob", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, env = s.do(t, http.MethodPost, "/api/channels/"+channel.ID+"/members", "alice",
		models.AddChannelMemberRequest{UserID: "bob"})
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Error)

	resp, env = s.do(t, http.MethodPost, "/api/channels/"+channel.ID+"/messages", "alice",
		models.CreateMessageRequest{Body: "hey @bob, kickoff at 10"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, env.Error)
	msg := decode[models.Message](t, env)
	assert.Equal(t, []string{"bob"}, msg.Mentions)

	resp, env = s.do(t, http.MethodGet, "/api/workspaces/ws1/channels", "bob", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	channels := decode[[]models.ChannelWithUnread](t, env)
	require.Len(t, channels, 1)
	assert.Equal(t, 1, channels[0].UnreadCount)

	resp, env = s.do(t, http.MethodGet, "/api/workspaces/ws1/unread", "bob", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	unreads := decode[[]models.UnreadInfo](t, env)
	require.Len(t, unreads, 1)
	assert.Equal(t, models.UnreadInfo{ChannelID: channel.ID, UnreadCount: 1}, unreads[0])

	resp, env = s.do(t, http.MethodGet, "/api/channels/"+channel.ID+"/messages?grouped=true", "bob", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := decode[models.MessagePage](t, env)
	require.Len(t, page.Messages, 1)
	require.Len(t, page.Groups, 1)
	assert.Equal(t, "alice", page.Groups[0].SenderID)
	assert.False(t, page.HasMore)

	resp, _ = s.do(t, http.MethodGet, "/api/channels/"+channel.ID+"/messages?before=missing", "bob", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Mention bildirimi
	resp, env = s.do(t, http.MethodGet, "/api/notifications?unread=true", "bob", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	inbox := decode[models.NotificationPage](t, env)
	require.Len(t, inbox.Notifications, 1)
	assert.Equal(t, models.CategoryMention, inbox.Notifications[0].Category)
	assert.Equal(t, 1, inbox.UnreadCount)
	notificationID := inbox.Notifications[0].ID

	resp, env = s.do(t, http.MethodPatch, "/api/notifications/"+notificationID, "bob",
		map[string]bool{"is_read": true})
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Error)
	assert.True(t, decode[models.Notification](t, env).IsRead)

	resp, env = s.do(t, http.MethodGet, "/api/notifications/unread-count", "bob", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0, decode[map[string]int](t, env)["count"])

	// Başkasının bildirimi görünmez
	resp, _ = s.do(t, http.MethodGet, "/api/notifications/"+notificationID, "alice", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Boş body: son mesaja kadar okundu
	resp, env = s.do(t, http.MethodPost, "/api/channels/"+channel.ID+"/read", "bob", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Error)
	state := decode[models.ReadState](t, env)
	assert.Equal(t, 0, state.UnreadCount)
	assert.Equal(t, msg.Seq, state.LastReadSeq)

	resp, env = s.do(t, http.MethodPost, "/api/channels/"+channel.ID+"/archive", "alice", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Error)
	assert.True(t, decode[models.Channel](t, env).IsArchived)

	resp, _ = s.do(t, http.MethodPost, "/api/channels/"+channel.ID+"/messages", "bob",
		models.CreateMessageRequest{Body: "too late"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRoutes_MessageRateLimit(t *testing.T) {
	s := newTestServer(t)

	_, env := s.do(t, http.MethodPost, "/api/workspaces/ws1/channels", "alice",
		models.CreateChannelRequest{Name: "general"})
	channel := decode[models.Channel](t, env)

	for i := 0; i < 3; i++ {
		resp, env := s.do(t, http.MethodPost, "/api/channels/"+channel.ID+"/messages", "alice",
			models.CreateMessageRequest{Body: "msg " + strconv.Itoa(i)})
		require.Equal(t, http.StatusCreated, resp.StatusCode, env.Error)
	}

	resp, env := s.do(t, http.MethodPost, "/api/channels/"+channel.ID+"/messages", "alice",
		models.CreateMessageRequest{Body: "one too many"})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.False(t, env.Success)

	retryAfter, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	require.NoError(t, err)
	assert.Greater(t, retryAfter, 0)

	// Limit kullanıcı bazlı
	resp, _ = s.do(t, http.MethodPost, "/api/channels/"+channel.ID+"/messages", "bob",
		models.CreateMessageRequest{Body: "still fine"})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestRoutes_Preferences(t *testing.T) {
	s := newTestServer(t)

	resp, env := s.do(t, http.MethodGet, "/api/notifications/preferences", "bob", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	prefs := decode[models.NotificationPreference](t, env)
	assert.True(t, prefs.EmailEnabled)
	assert.True(t, prefs.InAppEnabled)
	assert.False(t, prefs.DigestDaily)

	resp, env = s.do(t, http.MethodPatch, "/api/notifications/preferences", "bob",
		map[string]bool{"email_enabled": false, "digest_weekly": true})
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Error)

	_, env = s.do(t, http.MethodGet, "/api/notifications/preferences", "bob", nil)
	prefs = decode[models.NotificationPreference](t, env)
	assert.False(t, prefs.EmailEnabled)
	assert.True(t, prefs.DigestWeekly)
	assert.True(t, prefs.EmailMentions, "untouched flags keep their value")
}

func TestRoutes_EventIngress(t *testing.T) {
	s := newTestServer(t)

	resp, _ := s.do(t, http.MethodPost, "/api/events", "alice",
		models.NotificationEvent{Category: models.CategoryTaskAssigned, Title: "no recipients"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, env := s.do(t, http.MethodPost, "/api/events", "alice", models.NotificationEvent{
		Category:     models.CategoryInvoicePaid,
		RecipientIDs: []string{"alice", "bob", "bob"},
		Title:        "Invoice #42 paid",
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode, env.Error)
	result := decode[models.FanOutResult](t, env)
	assert.Len(t, result.Outcomes, 2)
	assert.Equal(t, 2, result.Persisted())

	_, env = s.do(t, http.MethodGet, "/api/notifications", "bob", nil)
	inbox := decode[models.NotificationPage](t, env)
	require.Len(t, inbox.Notifications, 1)
	id := inbox.Notifications[0].ID

	resp, _ = s.do(t, http.MethodPost, "/api/notifications/read-all", "bob", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = s.do(t, http.MethodDelete, "/api/notifications/"+id, "bob", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = s.do(t, http.MethodGet, "/api/notifications/"+id, "bob", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
