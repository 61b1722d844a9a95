package repository

import "context"

// MentionRepository, mesajlarda bahsedilen kullanıcıların kaydı.
// Geçmiş okunurken gövde yeniden parse edilmez; mention'lar buradan gelir.
type MentionRepository interface {
	SaveMentions(ctx context.Context, messageID string, userIDs []string) error
	// GetByMessageIDs, batch lookup: messageID → userID listesi.
	GetByMessageIDs(ctx context.Context, messageIDs []string) (map[string][]string, error)
}
