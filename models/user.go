// Package models, uygulamanın domain modellerini (veri yapıları) tanımlar.
//
// json tag'leri API response'larında, db tag'leri sqlx ile yapılan
// StructScan/Get/Select çağrılarında kullanılır.
package models

import "time"

// User, bir platform kullanıcısını temsil eder.
//
// Kullanıcı kaydı ve kimlik doğrulama bu servisin işi değildir; kayıt
// kimlik servisinden senkronlanır. Burada mention çözümleme (username),
// email teslimatı (email) ve yerelleştirilmiş email metni (language) için tutulur.
type User struct {
	ID          string    `json:"id" db:"id"`
	Username    string    `json:"username" db:"username"`
	DisplayName string    `json:"display_name" db:"display_name"`
	Email       string    `json:"-" db:"email"` // API response'lara dahil edilmez
	AvatarURL   string    `json:"avatar_url" db:"avatar_url"`
	Language    string    `json:"language" db:"language"` // "en", "tr"
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Name, gösterim için display_name'i, boşsa username'i döner.
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}

// WorkspaceMember, bir kullanıcının workspace üyeliği.
type WorkspaceMember struct {
	WorkspaceID string    `json:"workspace_id" db:"workspace_id"`
	UserID      string    `json:"user_id" db:"user_id"`
	Role        string    `json:"role" db:"role"`
	JoinedAt    time.Time `json:"joined_at" db:"joined_at"`
}
