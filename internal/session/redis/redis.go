package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/adminguard/adminguard/internal/session"
	"github.com/redis/go-redis/v9"
)

// Redis implements a Redis session Store.
type Redis struct {
	client *redis.Client
	conf   Conf
}

var (
	ctx = context.Background()
)

// Conf contains Redis configuration fields.
type Conf struct {
	Host      string        `json:"host"`
	Port      int           `json:"port"`
	Username  string        `json:"username"`
	Password  string        `json:"password"`
	DB        int           `json:"db"`
	MaxActive int           `json:"max_active"`
	MaxIdle   int           `json:"max_idle"`
	Timeout   time.Duration `json:"timeout"`
	KeyPrefix string        `json:"key_prefix"`

	// TTL is the lifetime of a session. Every Put re-stamps it, so an
	// active session slides forward.
	TTL time.Duration `json:"ttl"`
}

// New returns a Redis implementation of the session store.
func New(c Conf) *Redis {
	if c.KeyPrefix == "" {
		c.KeyPrefix = "SESSION"
	}
	if c.TTL.Seconds() < 1 {
		c.TTL = time.Hour
	}

	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", c.Host, c.Port),
		Username:     c.Username,
		Password:     c.Password,
		DB:           c.DB,
		DialTimeout:  c.Timeout,
		WriteTimeout: c.Timeout,
		ReadTimeout:  c.Timeout,
	})

	return &Redis{
		conf:   c,
		client: client,
	}
}

// Ping checks if the Redis server is reachable.
func (r *Redis) Ping() error {
	return r.client.Ping(ctx).Err()
}

// Put writes a session against an ID and re-stamps its TTL.
func (r *Redis) Put(id string, s session.Session) error {
	key := r.makeKey(id)

	pipe := r.client.TxPipeline()
	pipe.HMSet(ctx, key,
		"login", s.Login,
		"email", s.Email,
		"verified", s.Verified,
		"next_url", s.NextURL,
		"token", s.Token)
	pipe.PExpire(ctx, key, r.conf.TTL)
	_, err := pipe.Exec(ctx)
	return err
}

// Get retrieves the session saved against an ID.
func (r *Redis) Get(id string) (session.Session, error) {
	key := r.makeKey(id)
	out := session.Session{
		ID: id,
	}

	if err := r.client.HGetAll(ctx, key).Scan(&out); err != nil {
		return out, err
	}

	// A session always carries the login it was created for.
	if out.Login == "" {
		return out, session.ErrNotExist
	}

	ttl, err := r.client.TTL(ctx, key).Result()
	if err != nil {
		return out, err
	}
	out.TTL = ttl

	return out, nil
}

// Delete removes the session saved against an ID.
func (r *Redis) Delete(id string) error {
	if err := r.client.Del(ctx, r.makeKey(id)).Err(); err != nil {
		return err
	}
	return nil
}

// makeKey makes the Redis key for the session.
func (r *Redis) makeKey(id string) string {
	return fmt.Sprintf("%s:%s", r.conf.KeyPrefix, id)
}
