// Package app assembles the stores, notifiers and scheduler from Config.
package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/sitewatch/internal/config"
	"github.com/hamed0406/sitewatch/internal/notify"
	"github.com/hamed0406/sitewatch/internal/probe"
	"github.com/hamed0406/sitewatch/internal/repo"
	"github.com/hamed0406/sitewatch/internal/repo/memory"
	pg "github.com/hamed0406/sitewatch/internal/repo/postgres"
	"github.com/hamed0406/sitewatch/internal/repo/rediscache"
	"github.com/hamed0406/sitewatch/internal/repo/sqlite"
	"github.com/hamed0406/sitewatch/internal/scheduler"
)

// Store is what every site store provides.
type Store interface {
	repo.SiteStore
	repo.UserStore
}

type Container struct {
	Config config.Config
	Logger *zap.Logger

	Store Store
	Users repo.UserStore // Store, possibly behind the Redis email cache
	Lock  repo.CycleLocker
	Redis *redis.Client

	Prober     *probe.HTTPProber
	Alerter    *notify.DownAlerter
	Reconciler *scheduler.Reconciler

	closers []func() error
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: log}

	if err := c.initStore(ctx); err != nil {
		return nil, err
	}
	if err := c.initRedis(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	c.initNotify()

	c.Prober = probe.NewHTTPProber(cfg.HeadTimeout, cfg.GetTimeout)
	c.Reconciler = scheduler.NewReconciler(log, c.Store, c.Users, c.Prober, c.Alerter, cfg.CheckDelay)
	c.Reconciler.Lock = c.Lock

	log.Info("container_ready",
		zap.String("store", storeKind(cfg.DatabaseURL)),
		zap.Bool("redis", c.Redis != nil),
		zap.Bool("email", c.Alerter.Enabled()),
	)
	return c, nil
}

func (c *Container) initStore(ctx context.Context) error {
	dsn := c.Config.DSN()
	switch storeKind(dsn) {
	case "postgres":
		s, err := pg.New(ctx, dsn, c.Logger)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		c.closers = append(c.closers, s.Close)
		if err := s.ApplySchema(ctx); err != nil {
			_ = c.Close()
			return fmt.Errorf("apply schema: %w", err)
		}
		c.Store = s
	case "sqlite":
		s, err := sqlite.Open(ctx, sqlitePath(dsn))
		if err != nil {
			return err
		}
		c.closers = append(c.closers, s.Close)
		c.Store = s
	case "memory":
		c.Logger.Warn("memory_store_in_use")
		c.Store = memory.New()
	default:
		return fmt.Errorf("unsupported DATABASE_URL scheme: %q", dsn)
	}
	c.Users = c.Store
	return nil
}

func (c *Container) initRedis(ctx context.Context) error {
	if c.Config.RedisAddr == "" {
		c.Lock = &memory.Lock{}
		return nil
	}
	client, err := rediscache.Connect(ctx, c.Config.RedisAddr, c.Config.RedisPassword, c.Config.RedisDB, c.Logger)
	if err != nil {
		return err
	}
	c.closers = append(c.closers, client.Close)
	c.Redis = client
	c.Users = rediscache.NewEmailCache(client, c.Store, c.Config.EmailCacheTTL, c.Logger)
	c.Lock = rediscache.NewCycleLock(client, c.Config.CycleLockTTL, c.Logger)
	return nil
}

func (c *Container) initNotify() {
	cfg := c.Config

	var mailer notify.Mailer
	switch {
	case !cfg.EmailEnabled():
		c.Logger.Warn("email_disabled", zap.String("reason", "FROM_EMAIL and RESEND_API_KEY or SMTP_HOST are required"))
	case cfg.ResendAPIKey != "":
		mailer = notify.NewResend(cfg.ResendAPIKey, cfg.ResendBaseURL)
	default:
		mailer = notify.NewSMTP(cfg.SMTPHost, strconv.Itoa(cfg.SMTPPort), cfg.SMTPUser, cfg.SMTPPass)
	}

	var ops notify.Multi
	if s := notify.NewSlack(cfg.SlackWebhook); s != nil {
		ops = append(ops, s)
	}
	if len(ops) == 0 {
		c.Alerter = notify.NewDownAlerter(c.Logger, mailer, cfg.FromEmail, nil)
		return
	}
	c.Alerter = notify.NewDownAlerter(c.Logger, mailer, cfg.FromEmail, ops)
}

// Close releases every connection opened by New, last opened first.
func (c *Container) Close() error {
	var err error
	for i := len(c.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, c.closers[i]())
	}
	c.closers = nil
	return err
}

func storeKind(dsn string) string {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return "postgres"
	case strings.HasPrefix(dsn, "sqlite://"), strings.HasPrefix(dsn, "file:"):
		return "sqlite"
	case strings.HasPrefix(dsn, "memory://"):
		return "memory"
	default:
		return "unknown"
	}
}

// sqlitePath turns sqlite://data/sitewatch.db into data/sitewatch.db; file:
// URIs are passed to the driver as they are.
func sqlitePath(dsn string) string {
	return strings.TrimPrefix(dsn, "sqlite://")
}
