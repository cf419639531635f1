package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr             string
	DatabaseURL          string
	CORSAllowedOrigins   []string
	CORSAllowCredentials bool

	JWTSecret string

	NotionAPIKey        string
	NotionDatabaseID    string
	NotionWebhookSecret string

	OpenAIAPIKey string
	OpenAIModel  string

	SMTPHost        string
	SMTPPort        int
	SMTPUsername    string
	SMTPPassword    string
	MailFrom        string
	ReportRecipient string

	CacheTTL         time.Duration
	DailySyncHour    int
	WeeklyReportDay  string // cron day-of-week, e.g. "MON"
	WeeklyReportHour int

	LogLevel  string
	LogFormat string
	LogFile   string
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		HTTPAddr:             getenv("HTTP_ADDR", ":8080"),
		DatabaseURL:          mustGetenv("DATABASE_URL"),
		CORSAllowCredentials: getenv("CORS_ALLOW_CREDENTIALS", "false") == "true",

		JWTSecret: mustGetenv("JWT_SECRET"),

		NotionAPIKey:        mustGetenv("NOTION_API_KEY"),
		NotionDatabaseID:    mustGetenv("NOTION_DATABASE_ID"),
		NotionWebhookSecret: getenv("NOTION_WEBHOOK_SECRET", ""),

		OpenAIAPIKey: getenv("OPENAI_API_KEY", ""),
		OpenAIModel:  getenv("OPENAI_MODEL", "gpt-3.5-turbo"),

		SMTPHost:        getenv("SMTP_HOST", ""),
		SMTPPort:        getenvInt("SMTP_PORT", 587),
		SMTPUsername:    getenv("SMTP_USERNAME", ""),
		SMTPPassword:    getenv("SMTP_PASSWORD", ""),
		MailFrom:        getenv("MAIL_FROM", ""),
		ReportRecipient: getenv("REPORT_RECIPIENT", ""),

		CacheTTL:         getenvDuration("CACHE_TTL", 5*time.Minute),
		DailySyncHour:    getenvInt("DAILY_SYNC_HOUR", 9),
		WeeklyReportDay:  getenv("WEEKLY_REPORT_DAY", "MON"),
		WeeklyReportHour: getenvInt("WEEKLY_REPORT_HOUR", 8),

		LogLevel:  getenv("LOG_LEVEL", "info"),
		LogFormat: getenv("LOG_FORMAT", "text"),
		LogFile:   getenv("LOG_FILE", ""),
	}

	origins := strings.Split(getenv("CORS_ALLOWED_ORIGINS", ""), ",")
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
		}
	}

	return cfg, nil
}

func getenv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func mustGetenv(key string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		panic("missing env: " + key)
	}
	return v
}
