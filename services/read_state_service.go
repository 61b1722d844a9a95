package services

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/akinalp/ajans/models"
	"github.com/akinalp/ajans/pkg"
	"github.com/akinalp/ajans/repository"
	"github.com/akinalp/ajans/ws"
)

// ReadStateService, kanal bazlı okunmamış sayaçları.
//
// Sayaç sadece ileri yönlü watermark ile azalır: eski bir mesaj için gelen
// okundu işareti no-op'tur, sayaç hiçbir zaman negatif olmaz.
type ReadStateService interface {
	// OnMessageAppended, yazar hariç tüm kanal üyelerinin sayacını bir artırır
	// ve güncel sayıyı üyelere push eder.
	OnMessageAppended(ctx context.Context, msg *models.Message) error
	// MarkRead, messageID boşsa kanalın son mesajına kadar okundu işaretler.
	MarkRead(ctx context.Context, channelID, userID, messageID string) (*models.ReadState, error)
	GetUnreadCounts(ctx context.Context, userID, workspaceID string) ([]models.UnreadInfo, error)
}

type readStateService struct {
	readStateRepo repository.ReadStateRepository
	messageRepo   repository.MessageRepository
	access        channelAccess
	hub           ws.EventPublisher
	log           *zap.Logger
}

func NewReadStateService(
	readStateRepo repository.ReadStateRepository,
	messageRepo repository.MessageRepository,
	channelRepo repository.ChannelRepository,
	userRepo repository.UserRepository,
	hub ws.EventPublisher,
	log *zap.Logger,
) ReadStateService {
	return &readStateService{
		readStateRepo: readStateRepo,
		messageRepo:   messageRepo,
		access:        channelAccess{channelRepo: channelRepo, userRepo: userRepo},
		hub:           hub,
		log:           log.Named("unread"),
	}
}

func (s *readStateService) OnMessageAppended(ctx context.Context, msg *models.Message) error {
	if err := s.readStateRepo.IncrementUnread(ctx, msg.ChannelID, msg.UserID); err != nil {
		return err
	}

	states, err := s.readStateRepo.ListByChannel(ctx, msg.ChannelID)
	if err != nil {
		// Sayaçlar yazıldı; push kaybı client'ın bir sonraki listelemesinde düzelir.
		s.log.Warn("failed to load read states for push", zap.String("channel_id", msg.ChannelID), zap.Error(err))
		return nil
	}

	for _, st := range states {
		if st.UserID == msg.UserID {
			continue
		}
		s.hub.BroadcastToUser(st.UserID, ws.Event{
			Op:   ws.OpChannelUnread,
			Data: ws.ChannelUnreadData{ChannelID: msg.ChannelID, UnreadCount: st.UnreadCount},
		})
	}
	return nil
}

func (s *readStateService) MarkRead(ctx context.Context, channelID, userID, messageID string) (*models.ReadState, error) {
	channel, err := s.access.check(ctx, channelID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.access.join(ctx, channel, userID); err != nil {
		return nil, err
	}

	var msg *models.Message
	if messageID == "" {
		msg, err = s.messageRepo.Latest(ctx, channelID)
		if errors.Is(err, pkg.ErrNotFound) {
			// Boş kanal: okunacak bir şey yok.
			return &models.ReadState{UserID: userID, ChannelID: channelID}, nil
		}
	} else {
		msg, err = s.messageRepo.GetByID(ctx, messageID)
		if err == nil && msg.ChannelID != channelID {
			err = pkg.ErrNotFound
		}
	}
	if err != nil {
		return nil, err
	}

	moved, err := s.readStateRepo.MarkRead(ctx, userID, msg)
	if err != nil {
		return nil, err
	}

	state, err := s.readStateRepo.Get(ctx, userID, channelID)
	if err != nil {
		return nil, err
	}

	if moved {
		s.hub.BroadcastToUser(userID, ws.Event{
			Op:   ws.OpChannelUnread,
			Data: ws.ChannelUnreadData{ChannelID: channelID, UnreadCount: state.UnreadCount},
		})
	}
	return state, nil
}

func (s *readStateService) GetUnreadCounts(ctx context.Context, userID, workspaceID string) ([]models.UnreadInfo, error) {
	return s.readStateRepo.GetUnreadCounts(ctx, userID, workspaceID)
}
