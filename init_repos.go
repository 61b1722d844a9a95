// Package main — Repository katmanı başlatma.
//
// initRepositories, tüm repository implementasyonlarını oluşturur.
// Hepsi aynı *sqlx.DB connection pool'unu paylaşır.
package main

import (
	"github.com/jmoiron/sqlx"

	"github.com/akinalp/ajans/repository"
)

// Repositories, tüm repository instance'larını tutan container struct.
type Repositories struct {
	User         repository.UserRepository
	Channel      repository.ChannelRepository
	Message      repository.MessageRepository
	Mention      repository.MentionRepository
	ReadState    repository.ReadStateRepository
	Notification repository.NotificationRepository
	Preference   repository.PreferenceRepository
	Digest       repository.DigestRepository
}

// initRepositories, veritabanı bağlantısından tüm repository'leri oluşturur.
//
// MessageRepository *sqlx.DB alır çünkü append seq ataması ve insert'i
// kendi transaction'ında yapar; diğerleri TxQuerier ile yetinir.
func initRepositories(conn *sqlx.DB) *Repositories {
	return &Repositories{
		User:         repository.NewSQLUserRepo(conn),
		Channel:      repository.NewSQLChannelRepo(conn),
		Message:      repository.NewSQLMessageRepo(conn),
		Mention:      repository.NewSQLMentionRepo(conn),
		ReadState:    repository.NewSQLReadStateRepo(conn),
		Notification: repository.NewSQLNotificationRepo(conn),
		Preference:   repository.NewSQLPreferenceRepo(conn),
		Digest:       repository.NewSQLDigestRepo(conn),
	}
}
