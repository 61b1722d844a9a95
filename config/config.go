// Package config, uygulamanın tüm konfigürasyonunu merkezi olarak yönetir.
//
// Öncelik sırası: environment variable > .env dosyası > varsayılan değer.
// .env dosyası godotenv ile process env'ine yüklenir, ardından viper
// AutomaticEnv ile tüm anahtarları env'den okur. Böylece her yerde ayrı ayrı
// os.Getenv() çağırmak yerine tek bir Config nesnesi taşırız.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config, uygulamanın tüm konfigürasyon değerlerini taşır.
// Her alt bölüm ayrı bir struct — her struct tek bir concern'ü temsil eder.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Email    EmailConfig    `mapstructure:"email"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Chat     ChatConfig     `mapstructure:"chat"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig, HTTP server ayarları.
type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DatabaseConfig, veritabanı ayarları.
//
// Driver "sqlite" (modernc, dosya yolu DSN) veya "pgx" (PostgreSQL URL) olabilir.
type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"`
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

// JWTConfig, token doğrulama ayarları. Token üretimi bu servisin işi değil.
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

// RedisConfig, çoklu instance presence yayını için Redis ayarları.
// Enabled=false ise presence yalnızca process içinde yayılır.
type RedisConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

// EmailConfig, email transport ayarları.
// Provider: "resend", "smtp" veya "log" (geliştirme için sadece loglar).
type EmailConfig struct {
	Provider     string `mapstructure:"provider"`
	From         string `mapstructure:"from"`
	AppURL       string `mapstructure:"app_url"`
	ResendAPIKey string `mapstructure:"resend_api_key"`
	SMTPHost     string `mapstructure:"smtp_host"`
	SMTPPort     int    `mapstructure:"smtp_port"`
	SMTPUsername string `mapstructure:"smtp_username"`
	SMTPPassword string `mapstructure:"smtp_password"`
}

// NotifyConfig, bildirim fan-out ve email kuyruğu ayarları.
type NotifyConfig struct {
	EmailWorkers     int           `mapstructure:"email_workers"`
	EmailQueueSize   int           `mapstructure:"email_queue_size"`
	EmailTimeout     time.Duration `mapstructure:"email_timeout"`
	EmailRatePerSec  float64       `mapstructure:"email_rate_per_sec"`
	PrefCacheTTL     time.Duration `mapstructure:"pref_cache_ttl"`
	DigestDailyCron  string        `mapstructure:"digest_daily_cron"`
	DigestWeeklyCron string        `mapstructure:"digest_weekly_cron"`
}

// ChatConfig, kanal mesajlaşma ayarları.
type ChatConfig struct {
	GroupGap        time.Duration `mapstructure:"group_gap"`
	MessageLimit    int           `mapstructure:"message_limit"`
	MessageWindow   time.Duration `mapstructure:"message_window"`
	MessageCooldown time.Duration `mapstructure:"message_cooldown"`
}

// LogConfig, zap logger ayarları. Format "json" veya "console".
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load, environment variable'lardan Config oluşturur.
// .env dosyası varsa önce onu yükler (development kolaylığı için).
//
// Env anahtarları section_key formatındadır: SERVER_PORT, NOTIFY_EMAIL_TIMEOUT, ...
func Load() (*Config, error) {
	// .env dosyası yoksa hata vermez, sessizce devam eder.
	// Production'da bu dosya olmaz, gerçek env variable'lar kullanılır.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults, tüm anahtarlar için varsayılan değerleri tanımlar.
//
// AutomaticEnv sadece viper'ın bildiği anahtarları env'de arar; bu yüzden
// env'den okunacak her anahtarın burada bir varsayılanı olmalı.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 9090)
	v.SetDefault("server.allowed_origins", "http://localhost:3000")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./data/ajans.db")
	v.SetDefault("database.max_open_conns", 10)

	v.SetDefault("jwt.secret", "")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.url", "redis://localhost:6379/0")

	v.SetDefault("email.provider", "log")
	v.SetDefault("email.from", "noreply@ajans.local")
	v.SetDefault("email.app_url", "http://localhost:3000")
	v.SetDefault("email.resend_api_key", "")
	v.SetDefault("email.smtp_host", "")
	v.SetDefault("email.smtp_port", 587)
	v.SetDefault("email.smtp_username", "")
	v.SetDefault("email.smtp_password", "")

	v.SetDefault("notify.email_workers", 4)
	v.SetDefault("notify.email_queue_size", 512)
	v.SetDefault("notify.email_timeout", "10s")
	v.SetDefault("notify.email_rate_per_sec", 10.0)
	v.SetDefault("notify.pref_cache_ttl", "1m")
	v.SetDefault("notify.digest_daily_cron", "0 8 * * *")
	v.SetDefault("notify.digest_weekly_cron", "0 8 * * 1")

	v.SetDefault("chat.group_gap", "5m")
	v.SetDefault("chat.message_limit", 5)
	v.SetDefault("chat.message_window", "5s")
	v.SetDefault("chat.message_cooldown", "15s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate, kritik konfigürasyon değerlerini kontrol eder.
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid SERVER_PORT: %d", c.Server.Port)
	}
	switch c.Database.Driver {
	case "sqlite", "pgx":
	default:
		return fmt.Errorf("invalid DATABASE_DRIVER: %q (use sqlite or pgx)", c.Database.Driver)
	}
	switch c.Email.Provider {
	case "resend":
		if c.Email.ResendAPIKey == "" {
			return fmt.Errorf("EMAIL_RESEND_API_KEY is required for resend provider")
		}
	case "smtp":
		if c.Email.SMTPHost == "" {
			return fmt.Errorf("EMAIL_SMTP_HOST is required for smtp provider")
		}
	case "log":
	default:
		return fmt.Errorf("invalid EMAIL_PROVIDER: %q", c.Email.Provider)
	}
	if c.Notify.EmailWorkers <= 0 {
		return fmt.Errorf("NOTIFY_EMAIL_WORKERS must be positive")
	}
	return nil
}

// Addr, HTTP server'ın dinleyeceği adresi döner (ör: "0.0.0.0:9090").
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
