package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Channel, bir workspace içindeki mesajlaşma kanalı.
//
// Kanallar hiç silinmez; IsArchived ile arşivlenir. Arşivli kanala mesaj
// gönderilemez ama geçmiş okunabilir. ProjectID doluysa kanal bir projeye bağlıdır.
type Channel struct {
	ID          string    `json:"id" db:"id"`
	WorkspaceID string    `json:"workspace_id" db:"workspace_id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	IsPrivate   bool      `json:"is_private" db:"is_private"`
	ProjectID   *string   `json:"project_id" db:"project_id"`
	IsArchived  bool      `json:"is_archived" db:"is_archived"`
	CreatedBy   string    `json:"created_by" db:"created_by"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// ChannelWithUnread, kanal listesinde okunmamış sayısıyla birlikte döner.
type ChannelWithUnread struct {
	Channel
	UnreadCount int `json:"unread_count" db:"unread_count"`
}

// CreateChannelRequest, kanal oluşturma isteği.
type CreateChannelRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	IsPrivate   bool    `json:"is_private"`
	ProjectID   *string `json:"project_id"`
}

// Validate, isim 1-64 karakter, açıklama en fazla 512 karakter olmalı.
func (r *CreateChannelRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if n := utf8.RuneCountInString(r.Name); n < 1 || n > 64 {
		return fmt.Errorf("channel name must be 1-64 characters")
	}
	if utf8.RuneCountInString(r.Description) > 512 {
		return fmt.Errorf("channel description must be at most 512 characters")
	}
	return nil
}

// UpdateChannelRequest, kısmi güncelleme. nil alanlar değişmez.
type UpdateChannelRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	IsPrivate   *bool   `json:"is_private"`
}

// Validate, gönderilen alanları kontrol eder.
func (r *UpdateChannelRequest) Validate() error {
	if r.Name == nil && r.Description == nil && r.IsPrivate == nil {
		return fmt.Errorf("at least one field is required")
	}
	if r.Name != nil {
		name := strings.TrimSpace(*r.Name)
		if n := utf8.RuneCountInString(name); n < 1 || n > 64 {
			return fmt.Errorf("channel name must be 1-64 characters")
		}
		r.Name = &name
	}
	if r.Description != nil && utf8.RuneCountInString(*r.Description) > 512 {
		return fmt.Errorf("channel description must be at most 512 characters")
	}
	return nil
}

// AddChannelMemberRequest, kanala üye ekleme isteği.
type AddChannelMemberRequest struct {
	UserID string `json:"user_id"`
}
