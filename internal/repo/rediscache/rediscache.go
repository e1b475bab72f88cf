// Package rediscache holds the Redis-backed helpers: a read-through cache
// for owner emails and the lock that keeps cycles from overlapping.
package rediscache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hamed0406/sitewatch/internal/domain"
	"github.com/hamed0406/sitewatch/internal/repo"
)

const (
	emailKeyPrefix = "sitewatch:email:"
	lockKey        = "sitewatch:cycle-lock"
)

// Connect opens a client and pings it.
func Connect(ctx context.Context, addr, password string, db int, log *zap.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", addr, err)
	}
	log.Info("redis_connected", zap.String("addr", addr))
	return client, nil
}

var (
	_ repo.UserStore   = (*EmailCache)(nil)
	_ repo.CycleLocker = (*CycleLock)(nil)
)

// EmailCache fronts a UserStore. Only non-empty emails are cached; missing
// users and users without an email always go to the backing store. Nothing
// evicts an entry early, so a changed email takes up to the TTL to show.
type EmailCache struct {
	client *redis.Client
	next   repo.UserStore
	ttl    time.Duration
	log    *zap.Logger
}

func NewEmailCache(client *redis.Client, next repo.UserStore, ttl time.Duration, log *zap.Logger) *EmailCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &EmailCache{client: client, next: next, ttl: ttl, log: log}
}

func (c *EmailCache) key(id domain.UserID) string { return emailKeyPrefix + string(id) }

func (c *EmailCache) UserEmail(ctx context.Context, id domain.UserID) (string, error) {
	email, err := c.client.Get(ctx, c.key(id)).Result()
	switch {
	case err == nil:
		return email, nil
	case !errors.Is(err, redis.Nil):
		// cache trouble must not block alerts
		c.log.Warn("email_cache_read_error", zap.String("user_id", string(id)), zap.Error(err))
	}

	email, err = c.next.UserEmail(ctx, id)
	if err != nil || email == "" {
		return email, err
	}
	if err := c.client.SetEx(ctx, c.key(id), email, c.ttl).Err(); err != nil {
		c.log.Warn("email_cache_write_error", zap.String("user_id", string(id)), zap.Error(err))
	}
	return email, nil
}

// invalidate drops the cached email for id.
func (c *EmailCache) invalidate(ctx context.Context, id domain.UserID) error {
	return c.client.Del(ctx, c.key(id)).Err()
}

// releaseScript deletes the lock only if we still own it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// refreshScript extends the lock only if we still own it.
var refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)

// CycleLock is a single-holder lock with a TTL so a crashed holder cannot
// wedge later cycles forever. A live holder keeps renewing it every third of
// the TTL, so a cycle may run longer than the TTL itself.
type CycleLock struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	log    *zap.Logger
}

func NewCycleLock(client *redis.Client, ttl time.Duration, log *zap.Logger) *CycleLock {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &CycleLock{client: client, key: lockKey, ttl: ttl, log: log}
}

// Acquire takes the lock and returns the function that releases it.
func (l *CycleLock) Acquire(ctx context.Context) (func(context.Context) error, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire cycle lock: %w", err)
	}
	if !ok {
		return nil, repo.ErrLocked
	}

	keepCtx, stop := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	go func() {
		defer close(done)
		l.keepAlive(keepCtx, token)
	}()

	var once sync.Once
	return func(ctx context.Context) error {
		var err error
		once.Do(func() {
			stop()
			<-done
			err = releaseScript.Run(ctx, l.client, []string{l.key}, token).Err()
		})
		return err
	}, nil
}

func (l *CycleLock) keepAlive(ctx context.Context, token string) {
	t := time.NewTicker(max(l.ttl/3, time.Millisecond))
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := refreshScript.Run(ctx, l.client, []string{l.key}, token, l.ttl.Milliseconds()).Int()
			switch {
			case ctx.Err() != nil:
				return
			case err != nil:
				l.log.Warn("cycle_lock_refresh_error", zap.Error(err))
			case n == 0:
				l.log.Warn("cycle_lock_lost")
				return
			}
		}
	}
}
