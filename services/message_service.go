package services

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/akinalp/ajans/models"
	"github.com/akinalp/ajans/pkg"
	"github.com/akinalp/ajans/pkg/mention"
	"github.com/akinalp/ajans/pkg/metrics"
	"github.com/akinalp/ajans/pkg/timeline"
	"github.com/akinalp/ajans/repository"
	"github.com/akinalp/ajans/ws"
)

const (
	defaultMessageLimit = 20
	maxMessageLimit     = 100
)

// MessageService, kanal mesajlaşma iş mantığı.
type MessageService interface {
	// LoadWindow, kanalın en yeni limit mesajını artan sırada döner.
	LoadWindow(ctx context.Context, channelID, userID string, limit int) (*models.MessagePage, error)
	// LoadOlder, beforeID'den hemen önceki limit mesajı döner. beforeID bu
	// kanala ait değilse ErrNotFound.
	LoadOlder(ctx context.Context, channelID, userID, beforeID string, limit int) (*models.MessagePage, error)
	// Group, mesajları yapılandırılmış gap ile render gruplarına ayırır.
	Group(messages []models.Message) []models.MessageGroup
	// Send, mesajı kanala ekler; ardından unread sayaçlarını, realtime
	// yayını ve mention bildirimlerini tetikler.
	Send(ctx context.Context, channelID string, sender *models.User, req *models.CreateMessageRequest) (*models.Message, error)
}

type messageService struct {
	messageRepo repository.MessageRepository
	mentionRepo repository.MentionRepository
	userRepo    repository.UserRepository
	access      channelAccess
	readStates  ReadStateService
	notifier    NotificationService
	hub         ws.EventPublisher
	groupGap    time.Duration
	locks       *keyedMutex
	log         *zap.Logger
	now         func() time.Time
}

func NewMessageService(
	messageRepo repository.MessageRepository,
	mentionRepo repository.MentionRepository,
	channelRepo repository.ChannelRepository,
	userRepo repository.UserRepository,
	readStates ReadStateService,
	notifier NotificationService,
	hub ws.EventPublisher,
	groupGap time.Duration,
	log *zap.Logger,
) MessageService {
	if groupGap <= 0 {
		groupGap = timeline.DefaultGroupGap
	}
	return &messageService{
		messageRepo: messageRepo,
		mentionRepo: mentionRepo,
		userRepo:    userRepo,
		access:      channelAccess{channelRepo: channelRepo, userRepo: userRepo},
		readStates:  readStates,
		notifier:    notifier,
		hub:         hub,
		groupGap:    groupGap,
		locks:       newKeyedMutex(),
		log:         log.Named("messages"),
		now:         time.Now,
	}
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultMessageLimit
	}
	if limit > maxMessageLimit {
		return maxMessageLimit
	}
	return limit
}

func (s *messageService) LoadWindow(ctx context.Context, channelID, userID string, limit int) (*models.MessagePage, error) {
	if _, err := s.access.check(ctx, channelID, userID); err != nil {
		return nil, err
	}

	limit = normalizeLimit(limit)
	// has_more için bir fazla oku.
	messages, err := s.messageRepo.ListLatest(ctx, channelID, limit+1)
	if err != nil {
		return nil, err
	}
	return s.page(ctx, messages, limit)
}

func (s *messageService) LoadOlder(ctx context.Context, channelID, userID, beforeID string, limit int) (*models.MessagePage, error) {
	if _, err := s.access.check(ctx, channelID, userID); err != nil {
		return nil, err
	}

	cursor, err := s.messageRepo.GetByID(ctx, beforeID)
	if err != nil {
		return nil, err
	}
	if cursor.ChannelID != channelID {
		return nil, fmt.Errorf("%w: message not in channel", pkg.ErrNotFound)
	}

	limit = normalizeLimit(limit)
	messages, err := s.messageRepo.ListBefore(ctx, channelID, cursor.Seq, limit+1)
	if err != nil {
		return nil, err
	}
	return s.page(ctx, messages, limit)
}

// page, artan sıradaki limit+1 satırdan sayfayı kurar. Fazla satır en
// eskisidir; varsa daha eski mesaj vardır.
func (s *messageService) page(ctx context.Context, messages []models.Message, limit int) (*models.MessagePage, error) {
	hasMore := len(messages) > limit
	if hasMore {
		messages = messages[len(messages)-limit:]
	}

	if err := s.attachMentions(ctx, messages); err != nil {
		return nil, err
	}

	return &models.MessagePage{Messages: messages, HasMore: hasMore}, nil
}

func (s *messageService) attachMentions(ctx context.Context, messages []models.Message) error {
	if len(messages) == 0 {
		return nil
	}

	ids := make([]string, len(messages))
	for i := range messages {
		ids[i] = messages[i].ID
	}

	byMessage, err := s.mentionRepo.GetByMessageIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to load mentions: %w", err)
	}

	for i := range messages {
		messages[i].Mentions = byMessage[messages[i].ID]
		if messages[i].Mentions == nil {
			messages[i].Mentions = []string{}
		}
	}
	return nil
}

func (s *messageService) Group(messages []models.Message) []models.MessageGroup {
	return timeline.Group(messages, s.groupGap)
}

func (s *messageService) Send(ctx context.Context, channelID string, sender *models.User, req *models.CreateMessageRequest) (*models.Message, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", pkg.ErrBadRequest, err)
	}

	channel, err := s.access.check(ctx, channelID, sender.ID)
	if err != nil {
		return nil, err
	}
	if channel.IsArchived {
		return nil, fmt.Errorf("%w: channel is archived", pkg.ErrBadRequest)
	}
	if err := s.access.join(ctx, channel, sender.ID); err != nil {
		return nil, err
	}

	members, err := s.userRepo.ListWorkspaceMembers(ctx, channel.WorkspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load workspace members: %w", err)
	}
	mentions := mention.Extract(req.Body, mention.NewDirectory(members))

	msg := &models.Message{
		ID:          uuid.NewString(),
		ChannelID:   channelID,
		UserID:      sender.ID,
		Body:        req.Body,
		Attachments: req.Attachments,
		Mentions:    mentions,
		Author:      sender,
	}

	// Aynı kanala eşzamanlı append'ler sıralanır: seq ve created_at birlikte artar.
	unlock := s.locks.Lock(channelID)
	msg.CreatedAt = s.now().UTC()
	err = s.messageRepo.Append(ctx, msg, mentions)
	unlock()
	if err != nil {
		return nil, err
	}
	metrics.MessagesAppended.Inc()

	s.hub.BroadcastToChannel(channelID, ws.Event{Op: ws.OpMessageCreate, Data: msg})

	// Mesaj commit edildi; buradan sonrası best-effort.
	if err := s.readStates.OnMessageAppended(ctx, msg); err != nil {
		s.log.Error("failed to increment unread counters",
			zap.String("channel_id", channelID), zap.String("message_id", msg.ID), zap.Error(err))
	}

	audience, err := s.mentionAudience(ctx, channel, msg)
	if err != nil {
		s.log.Error("failed to load channel members for mentions",
			zap.String("channel_id", channelID), zap.String("message_id", msg.ID), zap.Error(err))
		return msg, nil
	}
	notifyMentions(ctx, s.notifier, channel, msg, sender, audience, s.log)

	return msg, nil
}

// mentionAudience, private kanalda bildirimi alabilecek üyeler. Mention
// workspace üyelerine göre çözülür; kanalı göremeyen üye önizleme içeren
// bildirim almamalı. Public kanalda nil döner, filtre uygulanmaz.
func (s *messageService) mentionAudience(ctx context.Context, channel *models.Channel, msg *models.Message) (map[string]bool, error) {
	if !channel.IsPrivate || len(msg.Mentions) == 0 {
		return nil, nil
	}
	ids, err := s.access.channelRepo.ListMemberIDs(ctx, channel.ID)
	if err != nil {
		return nil, err
	}
	audience := make(map[string]bool, len(ids))
	for _, id := range ids {
		audience[id] = true
	}
	return audience, nil
}

// keyedMutex, anahtar başına kilit. Kullanılmayan kilitler referans
// sayacı sıfırlanınca map'ten silinir.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedLock)}
}

// Lock, anahtarı kilitler ve unlock fonksiyonunu döner.
func (k *keyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

const mentionPreviewLength = 140

var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

// mentionPreview, zengin gövdeden bildirimde gösterilecek kısa düz metin üretir.
func mentionPreview(body string) string {
	text := body
	trimmed := strings.TrimSpace(body)

	if strings.HasPrefix(trimmed, "{") {
		var doc any
		if err := json.Unmarshal([]byte(trimmed), &doc); err == nil {
			var b strings.Builder
			collectText(doc, &b)
			text = b.String()
		}
	} else if strings.Contains(trimmed, "<") {
		text = htmlTagPattern.ReplaceAllString(trimmed, " ")
	}

	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) > mentionPreviewLength {
		runes := []rune(text)
		text = string(runes[:mentionPreviewLength]) + "…"
	}
	return text
}

// collectText, ProseMirror dokümanındaki text ve mention label'larını toplar.
func collectText(node any, b *strings.Builder) {
	switch n := node.(type) {
	case map[string]any:
		if t, ok := n["text"].(string); ok {
			b.WriteString(t)
		}
		if n["type"] == "mention" {
			if attrs, ok := n["attrs"].(map[string]any); ok {
				if label, ok := attrs["label"].(string); ok {
					b.WriteString("@" + label)
				}
			}
		}
		if content, ok := n["content"].([]any); ok {
			for _, child := range content {
				collectText(child, b)
			}
			if n["type"] == "paragraph" {
				b.WriteByte(' ')
			}
		}
	case []any:
		for _, child := range n {
			collectText(child, b)
		}
	}
}
