package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/akinalp/ajans/models"
	"github.com/akinalp/ajans/pkg"
	"github.com/akinalp/ajans/repository"
)

// ChannelService, kanal iş mantığı interface'i.
type ChannelService interface {
	// List, kullanıcının görebildiği kanalları okunmamış sayılarıyla döner.
	List(ctx context.Context, workspaceID, userID string) ([]models.ChannelWithUnread, error)
	Create(ctx context.Context, workspaceID, creatorID string, req *models.CreateChannelRequest) (*models.Channel, error)
	Update(ctx context.Context, id, userID string, req *models.UpdateChannelRequest) (*models.Channel, error)
	// Archive, kanalı salt okunur yapar. Kanallar silinmez.
	Archive(ctx context.Context, id, userID string) (*models.Channel, error)
	// AddMember, workspace üyesi bir kullanıcıyı kanala ekler.
	AddMember(ctx context.Context, id, actorID, userID string) error
	// CanAccessChannel, kullanıcı kanalı okuyabiliyorsa nil döner (WS channel_join).
	CanAccessChannel(ctx context.Context, channelID, userID string) error
}

type channelService struct {
	channelRepo repository.ChannelRepository
	userRepo    repository.UserRepository
	access      channelAccess
	now         func() time.Time
}

// NewChannelService, constructor — interface döner.
func NewChannelService(
	channelRepo repository.ChannelRepository,
	userRepo repository.UserRepository,
) ChannelService {
	return &channelService{
		channelRepo: channelRepo,
		userRepo:    userRepo,
		access:      channelAccess{channelRepo: channelRepo, userRepo: userRepo},
		now:         time.Now,
	}
}

func (s *channelService) List(ctx context.Context, workspaceID, userID string) ([]models.ChannelWithUnread, error) {
	return s.channelRepo.ListVisible(ctx, workspaceID, userID)
}

func (s *channelService) Create(ctx context.Context, workspaceID, creatorID string, req *models.CreateChannelRequest) (*models.Channel, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", pkg.ErrBadRequest, err)
	}

	now := s.now().UTC()
	channel := &models.Channel{
		ID:          uuid.NewString(),
		WorkspaceID: workspaceID,
		Name:        req.Name,
		Description: req.Description,
		IsPrivate:   req.IsPrivate,
		ProjectID:   req.ProjectID,
		CreatedBy:   creatorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.channelRepo.Create(ctx, channel); err != nil {
		return nil, err
	}

	// Oluşturan kişi her zaman üyedir; private kanalda tek erişim yolu budur.
	if err := s.channelRepo.AddMember(ctx, channel.ID, creatorID); err != nil {
		return nil, fmt.Errorf("failed to add creator to channel: %w", err)
	}

	return channel, nil
}

func (s *channelService) Update(ctx context.Context, id, userID string, req *models.UpdateChannelRequest) (*models.Channel, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", pkg.ErrBadRequest, err)
	}

	channel, err := s.access.check(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		channel.Name = *req.Name
	}
	if req.Description != nil {
		channel.Description = *req.Description
	}
	if req.IsPrivate != nil {
		channel.IsPrivate = *req.IsPrivate
	}
	channel.UpdatedAt = s.now().UTC()

	if err := s.channelRepo.Update(ctx, channel); err != nil {
		return nil, err
	}
	return channel, nil
}

func (s *channelService) Archive(ctx context.Context, id, userID string) (*models.Channel, error) {
	channel, err := s.access.check(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if channel.IsArchived {
		return channel, nil
	}

	if err := s.channelRepo.Archive(ctx, id); err != nil {
		return nil, err
	}
	channel.IsArchived = true
	return channel, nil
}

func (s *channelService) AddMember(ctx context.Context, id, actorID, userID string) error {
	if userID == "" {
		return fmt.Errorf("%w: user_id is required", pkg.ErrBadRequest)
	}

	channel, err := s.access.check(ctx, id, actorID)
	if err != nil {
		return err
	}

	ok, err := s.userRepo.IsWorkspaceMember(ctx, channel.WorkspaceID, userID)
	if err != nil {
		return fmt.Errorf("failed to check workspace membership: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: user is not a member of this workspace", pkg.ErrBadRequest)
	}

	return s.channelRepo.AddMember(ctx, id, userID)
}

func (s *channelService) CanAccessChannel(ctx context.Context, channelID, userID string) error {
	_, err := s.access.check(ctx, channelID, userID)
	return err
}
