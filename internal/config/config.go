package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrMissingDatastore is returned when DATABASE_URL is not set.
var ErrMissingDatastore = errors.New("DATABASE_URL is required")

type Config struct {
	Addr      string // API bind address, e.g. "127.0.0.1:8080" or ":8080" in Docker
	LogDir    string
	LogLevel  string
	LogStdout bool

	DatabaseURL      string // postgres://, sqlite://, file: or memory://
	DatabasePassword string // injected into DatabaseURL when it carries none

	ResendAPIKey  string
	ResendBaseURL string
	FromEmail     string
	SMTPHost      string
	SMTPPort      int
	SMTPUser      string
	SMTPPass      string
	SlackWebhook  string

	RedisAddr     string // empty disables the email cache and the shared cycle lock
	RedisPassword string
	RedisDB       int
	EmailCacheTTL time.Duration
	CycleLockTTL  time.Duration

	HeadTimeout   time.Duration
	GetTimeout    time.Duration
	CheckDelay    time.Duration
	CheckInterval time.Duration // 0 disables the background runner

	PublicAPIKeys  []string
	AdminAPIKeys   []string
	AllowedOrigins []string
	PublicRPM      int
	PublicBurst    int
}

func defaults(v *viper.Viper) {
	v.SetDefault("api_addr", "127.0.0.1:8080")
	v.SetDefault("log_dir", "logs")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_stdout", false)

	v.SetDefault("database_url", "")
	v.SetDefault("database_password", "")

	v.SetDefault("resend_api_key", "")
	v.SetDefault("resend_base_url", "")
	v.SetDefault("from_email", "")
	v.SetDefault("smtp_host", "")
	v.SetDefault("smtp_port", 587)
	v.SetDefault("smtp_user", "")
	v.SetDefault("smtp_pass", "")
	v.SetDefault("slack_webhook_url", "")

	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("email_cache_ttl_ms", 5*60*1000)
	v.SetDefault("cycle_lock_ttl_ms", 15*60*1000)

	v.SetDefault("head_timeout_ms", 10000)
	v.SetDefault("get_timeout_ms", 15000)
	v.SetDefault("check_delay_ms", 1000)
	v.SetDefault("check_interval_ms", 0)

	v.SetDefault("public_api_keys", "")
	v.SetDefault("admin_api_keys", "")
	v.SetDefault("allowed_origins", "*")
	v.SetDefault("public_rpm", 60)
	v.SetDefault("public_burst", 10)
}

// FromEnv reads the environment, plus sitewatch.yaml from the working
// directory or /etc/sitewatch when present. Environment values win.
func FromEnv() (Config, error) {
	v := viper.New()
	defaults(v)
	v.AutomaticEnv()

	v.SetConfigName("sitewatch")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/sitewatch")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := Config{
		Addr:      v.GetString("api_addr"),
		LogDir:    v.GetString("log_dir"),
		LogLevel:  v.GetString("log_level"),
		LogStdout: v.GetBool("log_stdout"),

		DatabaseURL:      strings.TrimSpace(v.GetString("database_url")),
		DatabasePassword: v.GetString("database_password"),

		ResendAPIKey:  v.GetString("resend_api_key"),
		ResendBaseURL: v.GetString("resend_base_url"),
		FromEmail:     strings.TrimSpace(v.GetString("from_email")),
		SMTPHost:      v.GetString("smtp_host"),
		SMTPPort:      v.GetInt("smtp_port"),
		SMTPUser:      v.GetString("smtp_user"),
		SMTPPass:      v.GetString("smtp_pass"),
		SlackWebhook:  v.GetString("slack_webhook_url"),

		RedisAddr:     v.GetString("redis_addr"),
		RedisPassword: v.GetString("redis_password"),
		RedisDB:       v.GetInt("redis_db"),
		EmailCacheTTL: millis(v, "email_cache_ttl_ms", 0),
		CycleLockTTL:  millis(v, "cycle_lock_ttl_ms", 0),

		HeadTimeout:   millis(v, "head_timeout_ms", 10*time.Second),
		GetTimeout:    millis(v, "get_timeout_ms", 15*time.Second),
		CheckDelay:    millis(v, "check_delay_ms", time.Second),
		CheckInterval: millis(v, "check_interval_ms", 0),

		PublicAPIKeys:  splitList(v.GetString("public_api_keys")),
		AdminAPIKeys:   splitList(v.GetString("admin_api_keys")),
		AllowedOrigins: splitList(v.GetString("allowed_origins")),
		PublicRPM:      positive(v.GetInt("public_rpm"), 60),
		PublicBurst:    positive(v.GetInt("public_burst"), 10),
	}

	if cfg.DatabaseURL == "" {
		return cfg, ErrMissingDatastore
	}
	return cfg, nil
}

// EmailEnabled reports whether down alerts can be emailed.
func (c Config) EmailEnabled() bool {
	return c.FromEmail != "" && (c.ResendAPIKey != "" || c.SMTPHost != "")
}

// DSN returns DatabaseURL with DatabasePassword filled in for postgres URLs
// that have a user but no password.
func (c Config) DSN() string {
	if c.DatabasePassword == "" || !strings.HasPrefix(c.DatabaseURL, "postgres") {
		return c.DatabaseURL
	}
	u, err := url.Parse(c.DatabaseURL)
	if err != nil || u.User == nil {
		return c.DatabaseURL
	}
	if _, set := u.User.Password(); set {
		return c.DatabaseURL
	}
	u.User = url.UserPassword(u.User.Username(), c.DatabasePassword)
	return u.String()
}

// millis reads a millisecond count. Negative or malformed values fall back
// to def; zero is kept.
func millis(v *viper.Viper, key string, def time.Duration) time.Duration {
	n := v.GetInt64(key)
	if n < 0 {
		return def
	}
	if n == 0 && v.GetString(key) != "0" {
		return def
	}
	return time.Duration(n) * time.Millisecond
}

func positive(n, def int) int {
	if n <= 0 {
		return def
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
