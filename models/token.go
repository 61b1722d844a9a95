package models

import "github.com/golang-jwt/jwt/v5"

// TokenClaims, JWT access token'ın payload'ı.
//
// Token kimlik servisi tarafından imzalanır; bu servis sadece imzayı ve
// süreyi doğrular, UserID ile kullanıcıyı yükler.
type TokenClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}
