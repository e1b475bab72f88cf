// cmd/preflight/main.go
package main

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/hamed0406/sitewatch/internal/config"
)

func main() {
	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		os.Exit(1)
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	cfg, err := config.FromEnv()
	switch {
	case errors.Is(err, config.ErrMissingDatastore):
		fail("DATABASE_URL is empty; nothing can be checked without a datastore.")
	case err != nil:
		fail(err.Error())
	}

	switch u, err := url.Parse(cfg.DatabaseURL); {
	case err != nil:
		fail("DATABASE_URL does not parse: " + err.Error())
	case u.Scheme == "postgres" || u.Scheme == "postgresql":
		if _, set := u.User.Password(); !set && cfg.DatabasePassword == "" {
			warn("DATABASE_URL has no password and DATABASE_PASSWORD is empty.")
		}
		ok("DATABASE_URL present (postgres)")
	case u.Scheme == "sqlite" || u.Scheme == "file":
		ok("DATABASE_URL present (sqlite)")
	case u.Scheme == "memory":
		warn("DATABASE_URL=memory:// keeps sites in process memory; statuses are lost on restart.")
	default:
		fail("DATABASE_URL scheme " + u.Scheme + " is not supported.")
	}

	if cfg.EmailEnabled() {
		via := "SMTP " + cfg.SMTPHost
		if cfg.ResendAPIKey != "" {
			via = "Resend"
		}
		ok("email alerts enabled via " + via + " from " + cfg.FromEmail)
	} else {
		warn("email alerts disabled; set FROM_EMAIL and RESEND_API_KEY or SMTP_HOST.")
	}

	if cfg.SlackWebhook != "" {
		ok("Slack ops channel configured")
	}
	if cfg.RedisAddr == "" {
		warn("REDIS_ADDR empty; cycles are only serialised within one process.")
	} else {
		ok("REDIS_ADDR=" + cfg.RedisAddr)
	}

	if len(cfg.AdminAPIKeys) == 0 {
		warn("ADMIN_API_KEYS is empty; /api/scheduled-check is open to anyone.")
	}
	if len(cfg.PublicAPIKeys) == 0 {
		warn("PUBLIC_API_KEYS is empty; /api/check-single is open to anyone.")
	}
	for name, keys := range map[string][]string{"ADMIN_API_KEYS": cfg.AdminAPIKeys, "PUBLIC_API_KEYS": cfg.PublicAPIKeys} {
		for _, k := range keys {
			if len(k) < 16 {
				warn(name + " contains a key shorter than 16 characters.")
				break
			}
		}
	}

	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		warn("ALLOWED_ORIGINS is *; any site can call the API from a browser.")
	} else {
		ok("ALLOWED_ORIGINS=" + strings.Join(cfg.AllowedOrigins, ","))
	}

	if cfg.CheckInterval == 0 {
		warn("CHECK_INTERVAL_MS is 0; cycles only run when /api/scheduled-check is called.")
	} else {
		ok("CHECK_INTERVAL=" + cfg.CheckInterval.String() + ", CHECK_DELAY=" + cfg.CheckDelay.String())
	}

	ok("preflight passed")
}
