package services

import (
	"context"
	"fmt"

	"github.com/akinalp/ajans/models"
	"github.com/akinalp/ajans/pkg"
	"github.com/akinalp/ajans/repository"
)

// channelAccess, kanal okuma/yazma yetkisini tek yerde kontrol eder.
//
// Kural: kullanıcı kanalın workspace'inin üyesi olmalı. Private kanallarda
// ayrıca kanal üyeliği gerekir. Public kanala ilk yazan/okuyan üye yapılır.
type channelAccess struct {
	channelRepo repository.ChannelRepository
	userRepo    repository.UserRepository
}

// check, kanalı döner; erişim yoksa ErrForbidden, kanal yoksa ErrNotFound.
func (a channelAccess) check(ctx context.Context, channelID, userID string) (*models.Channel, error) {
	channel, err := a.channelRepo.GetByID(ctx, channelID)
	if err != nil {
		return nil, err
	}

	ok, err := a.userRepo.IsWorkspaceMember(ctx, channel.WorkspaceID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check workspace membership: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: not a member of this workspace", pkg.ErrForbidden)
	}

	if channel.IsPrivate {
		member, err := a.channelRepo.IsMember(ctx, channelID, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to check channel membership: %w", err)
		}
		if !member {
			return nil, fmt.Errorf("%w: not a member of this channel", pkg.ErrForbidden)
		}
	}

	return channel, nil
}

// join, public kanalda kullanıcıyı üye yapar (zaten üyeyse no-op).
// Unread sayacı sadece kanal üyeleri için tutulur.
func (a channelAccess) join(ctx context.Context, channel *models.Channel, userID string) error {
	if channel.IsPrivate {
		return nil
	}
	if err := a.channelRepo.AddMember(ctx, channel.ID, userID); err != nil {
		return fmt.Errorf("failed to join channel: %w", err)
	}
	return nil
}
