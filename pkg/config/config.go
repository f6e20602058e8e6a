package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     string
	Location *time.Location

	Database Database
	JWT      JWT
	Redis    Redis
	S3       S3
	SMTP     SMTP
	Alerts   Alerts

	AdminEmail    string
	AdminPassword string
}

type Database struct {
	URL      string
	Host     string
	User     string
	Password string
	Name     string
	Port     string
	TimeZone string
}

// DSN returns DATABASE_URL when set, otherwise builds one from the parts.
func (d Database) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=%s",
		d.Host, d.User, d.Password, d.Name, d.Port, d.TimeZone,
	)
}

type JWT struct {
	Secret string
	TTL    time.Duration
}

type Redis struct {
	Addr     string
	Password string
	TTL      time.Duration
}

func (r Redis) Enabled() bool { return r.Addr != "" }

type S3 struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	CDNBase   string
}

func (s S3) Enabled() bool { return s.Endpoint != "" && s.Bucket != "" }

type SMTP struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	To       string
}

func (s SMTP) Enabled() bool { return s.Host != "" && s.To != "" }

type Alerts struct {
	At                string // HH:MM, daily
	ExpiryWarningDays int
}

// LoadEnv loads .env when present. System environment always wins.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, relying on system env")
	}
}

func Load() *Config {
	LoadEnv()

	loc, err := time.LoadLocation(getEnv("TZ_LOCATION", "UTC"))
	if err != nil {
		log.Printf("Warning: unknown TZ_LOCATION, falling back to UTC: %v", err)
		loc = time.UTC
	}

	return &Config{
		Port:     getEnv("PORT", "3000"),
		Location: loc,
		Database: Database{
			URL:      os.Getenv("DATABASE_URL"),
			Host:     getEnv("DB_HOST", "localhost"),
			User:     getEnv("DB_USER", "postgres"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     getEnv("DB_NAME", "stockpilot"),
			Port:     getEnv("DB_PORT", "5432"),
			TimeZone: getEnv("DB_TIMEZONE", "UTC"),
		},
		JWT: JWT{
			Secret: getEnv("JWT_SECRET", "your-super-secret-key-change-in-production"),
			TTL:    time.Duration(getInt("JWT_TTL_HOURS", 24)) * time.Hour,
		},
		Redis: Redis{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			TTL:      time.Duration(getInt("CACHE_TTL_SECONDS", 60)) * time.Second,
		},
		S3: S3{
			Endpoint:  os.Getenv("S3_ENDPOINT"),
			AccessKey: os.Getenv("S3_ACCESS_KEY"),
			SecretKey: os.Getenv("S3_SECRET_KEY"),
			Bucket:    os.Getenv("S3_BUCKET"),
			UseSSL:    getBool("S3_USE_SSL", true),
			CDNBase:   os.Getenv("CDN_BASE_URL"),
		},
		SMTP: SMTP{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     getInt("SMTP_PORT", 465),
			User:     os.Getenv("SMTP_USER"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     getEnv("ALERT_EMAIL_FROM", os.Getenv("SMTP_USER")),
			To:       os.Getenv("ALERT_EMAIL_TO"),
		},
		Alerts: Alerts{
			At:                getEnv("ALERT_CRON_TIME", "07:00"),
			ExpiryWarningDays: getInt("EXPIRY_WARNING_DAYS", 14),
		},
		AdminEmail:    getEnv("ADMIN_EMAIL", "admin@example.com"),
		AdminPassword: getEnv("ADMIN_PASSWORD", "admin123"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("Warning: %s=%q is not a number, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
