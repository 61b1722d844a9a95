package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/akinalp/ajans/models"
	"github.com/akinalp/ajans/pkg"
	"github.com/akinalp/ajans/pkg/email"
	"github.com/akinalp/ajans/pkg/metrics"
	"github.com/akinalp/ajans/repository"
	"github.com/akinalp/ajans/ws"
)

// NotificationRenderer, bildirim email'inin yerelleştirilmiş içeriğini üretir.
// *email.Renderer bu interface'i karşılar.
type NotificationRenderer interface {
	Notification(lang string, c email.NotificationContent) (email.Message, error)
}

// NotificationService, domain olaylarının alıcılara dağıtımı ve
// kullanıcının kendi bildirimleri üzerindeki işlemler.
type NotificationService interface {
	// Notify, olayı her alıcı için bağımsız olarak işler: kayıt, realtime
	// push, tercih kontrolü, email kuyruğu. Bir alıcının hatası diğerlerini
	// etkilemez; sonuç alıcı bazında döner.
	Notify(ctx context.Context, event models.NotificationEvent) (*models.FanOutResult, error)

	List(ctx context.Context, userID string, params models.ListNotificationsParams) (*models.NotificationPage, error)
	Get(ctx context.Context, id, userID string) (*models.Notification, error)
	Update(ctx context.Context, id, userID string, req *models.UpdateNotificationRequest) (*models.Notification, error)
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	Delete(ctx context.Context, id, userID string) error
	UnreadCount(ctx context.Context, userID string) (int, error)
}

type notificationService struct {
	notifRepo   repository.NotificationRepository
	userRepo    repository.UserRepository
	prefService PreferenceService
	hub         ws.EventPublisher
	emails      EmailQueue
	renderer    NotificationRenderer
	log         *zap.Logger
	now         func() time.Time
}

// NewNotificationService, constructor.
func NewNotificationService(
	notifRepo repository.NotificationRepository,
	userRepo repository.UserRepository,
	prefService PreferenceService,
	hub ws.EventPublisher,
	emails EmailQueue,
	renderer NotificationRenderer,
	log *zap.Logger,
) NotificationService {
	return &notificationService{
		notifRepo:   notifRepo,
		userRepo:    userRepo,
		prefService: prefService,
		hub:         hub,
		emails:      emails,
		renderer:    renderer,
		log:         log.Named("notify"),
		now:         time.Now,
	}
}

func (s *notificationService) Notify(ctx context.Context, event models.NotificationEvent) (*models.FanOutResult, error) {
	if err := event.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", pkg.ErrBadRequest, err)
	}

	// Persist adımı çağıran iptal etse bile tamamlanır.
	ctx = context.WithoutCancel(ctx)

	// Kullanıcı bilgisi sadece email için gerekli; okunamazsa kayıt ve push
	// yine yapılır, email atlanır.
	users, err := s.userRepo.GetByIDs(ctx, event.RecipientIDs)
	if err != nil {
		s.log.Warn("failed to load recipients, emails will be skipped", zap.Error(err))
		users = map[string]models.User{}
	}

	result := &models.FanOutResult{Outcomes: make([]models.RecipientOutcome, len(event.RecipientIDs))}

	var wg sync.WaitGroup
	for i, userID := range event.RecipientIDs {
		wg.Add(1)
		go func(i int, userID string) {
			defer wg.Done()

			var user *models.User
			if u, ok := users[userID]; ok {
				user = &u
			}
			result.Outcomes[i] = s.deliver(ctx, &event, userID, user)
		}(i, userID)
	}
	wg.Wait()

	return result, nil
}

// deliver, tek bir alıcı için fan-out adımlarını çalıştırır.
func (s *notificationService) deliver(ctx context.Context, event *models.NotificationEvent, userID string, user *models.User) models.RecipientOutcome {
	outcome := models.RecipientOutcome{UserID: userID}

	n := &models.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Category:  event.Category,
		Title:     event.Title,
		Message:   event.Message,
		ActionURL: event.ActionURL,
		SenderID:  event.SenderID,
		Metadata:  event.Metadata,
		CreatedAt: s.now().UTC(),
	}
	if n.Metadata == nil {
		n.Metadata = models.Metadata{}
	}

	if err := s.notifRepo.Create(ctx, n); err != nil {
		metrics.NotificationPersistFailures.Inc()
		s.log.Error("failed to persist notification",
			zap.String("user_id", userID),
			zap.String("category", string(event.Category)),
			zap.Error(err))
		outcome.Error = err.Error()
		return outcome
	}
	outcome.Persisted = true
	outcome.NotificationID = n.ID
	metrics.NotificationsCreated.WithLabelValues(string(event.Category)).Inc()

	prefs := s.prefService.Effective(ctx, userID)

	if ShouldShowInApp(event.Category, prefs) {
		s.hub.BroadcastToUser(userID, ws.Event{Op: ws.OpNotificationCreate, Data: n})
		outcome.Pushed = true
	}

	if !ShouldEmail(event.Category, prefs) {
		return outcome
	}
	if user == nil || user.Email == "" {
		metrics.NotificationEmails.WithLabelValues("skipped").Inc()
		return outcome
	}

	content := email.NotificationContent{
		RecipientName: user.Name(),
		Category:      string(event.Category),
		Title:         event.Title,
		Body:          event.Message,
	}
	if event.ActionURL != nil {
		content.ActionURL = *event.ActionURL
	}

	msg, err := s.renderer.Notification(user.Language, content)
	if err != nil {
		s.log.Error("failed to render notification email", zap.String("user_id", userID), zap.Error(err))
		return outcome
	}
	msg.To = user.Email

	outcome.EmailQueued = s.emails.Enqueue(EmailJob{UserID: userID, Kind: "notification", Message: msg})
	return outcome
}

func (s *notificationService) List(ctx context.Context, userID string, params models.ListNotificationsParams) (*models.NotificationPage, error) {
	if params.Limit <= 0 || params.Limit > 100 {
		params.Limit = 20
	}
	limit := params.Limit

	// has_more için bir fazla oku.
	params.Limit = limit + 1
	list, err := s.notifRepo.List(ctx, userID, params)
	if err != nil {
		return nil, err
	}

	hasMore := len(list) > limit
	if hasMore {
		list = list[:limit]
	}

	unread, err := s.notifRepo.CountUnread(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &models.NotificationPage{
		Notifications: list,
		HasMore:       hasMore,
		UnreadCount:   unread,
	}, nil
}

func (s *notificationService) Get(ctx context.Context, id, userID string) (*models.Notification, error) {
	return s.notifRepo.GetByID(ctx, id, userID)
}

func (s *notificationService) Update(ctx context.Context, id, userID string, req *models.UpdateNotificationRequest) (*models.Notification, error) {
	if req.IsRead == nil {
		return nil, fmt.Errorf("%w: is_read is required", pkg.ErrBadRequest)
	}
	if err := s.notifRepo.SetRead(ctx, id, userID, *req.IsRead, s.now().UTC()); err != nil {
		return nil, err
	}
	return s.notifRepo.GetByID(ctx, id, userID)
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return s.notifRepo.MarkAllRead(ctx, userID, s.now().UTC())
}

func (s *notificationService) Delete(ctx context.Context, id, userID string) error {
	return s.notifRepo.Delete(ctx, id, userID)
}

func (s *notificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.notifRepo.CountUnread(ctx, userID)
}

// notifyMentions, mesajda geçen kullanıcılara MENTION bildirimi gönderir.
// Gönderen kendini mention etse bile bildirim almaz. audience nil değilse
// sadece içindeki kullanıcılar bildirilir.
func notifyMentions(ctx context.Context, notifier NotificationService, channel *models.Channel, msg *models.Message, sender *models.User, audience map[string]bool, log *zap.Logger) {
	recipients := make([]string, 0, len(msg.Mentions))
	for _, id := range msg.Mentions {
		if id == msg.UserID {
			continue
		}
		if audience != nil && !audience[id] {
			continue
		}
		recipients = append(recipients, id)
	}
	if len(recipients) == 0 {
		return
	}

	actionURL := fmt.Sprintf("/channels/%s?message=%s", channel.ID, msg.ID)
	senderID := msg.UserID
	event := models.NotificationEvent{
		Category:     models.CategoryMention,
		RecipientIDs: recipients,
		Title:        fmt.Sprintf("%s mentioned you in #%s", sender.Name(), channel.Name),
		Message:      mentionPreview(msg.Body),
		ActionURL:    &actionURL,
		SenderID:     &senderID,
		Metadata: models.Metadata{
			"channel_id": channel.ID,
			"message_id": msg.ID,
		},
	}

	if _, err := notifier.Notify(ctx, event); err != nil && !errors.Is(err, pkg.ErrBadRequest) {
		log.Error("mention fan-out failed", zap.String("message_id", msg.ID), zap.Error(err))
	}
}
