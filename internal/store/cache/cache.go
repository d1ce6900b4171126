// Package cache keeps the latest snapshot of every running battle in redis
// so operators can inspect live battles and the diagnostics endpoint can
// list them.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"

	"coffeemon-arena/server/internal/battle"
)

// ErrNotFound is returned by Load when no snapshot is stored.
var ErrNotFound = errors.New("battle snapshot not found")

const (
	defaultPrefix = "coffeemon"
	defaultTTL    = 2 * time.Hour
)

// Store persists battle snapshots.
type Store interface {
	Save(ctx context.Context, state *battle.BattleState) error
	Load(ctx context.Context, battleID string) (*battle.BattleState, error)
	Delete(ctx context.Context, battleID string) error
	Active(ctx context.Context) ([]string, error)
}

// Redis is a Store on a go-redis client.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// Options configure a Redis store. Zero values pick defaults.
type Options struct {
	Prefix string
	TTL    time.Duration
}

// NewRedis wraps client.
func NewRedis(client *redis.Client, opts Options) *Redis {
	if opts.Prefix == "" {
		opts.Prefix = defaultPrefix
	}
	if opts.TTL <= 0 {
		opts.TTL = defaultTTL
	}
	return &Redis{client: client, prefix: opts.Prefix, ttl: opts.TTL}
}

func (r *Redis) battleKey(id string) string {
	return r.prefix + ":battle:" + id
}

func (r *Redis) activeKey() string {
	return r.prefix + ":battles:active"
}

// Save writes the snapshot. Finished battles are removed from the active
// set but their last snapshot stays until the TTL expires.
func (r *Redis) Save(ctx context.Context, state *battle.BattleState) error {
	if state == nil || state.ID == "" {
		return eris.New("cache: battle id is required")
	}
	data, err := json.Marshal(state)
	if err != nil {
		return eris.Wrapf(err, "cache: encode %s", state.ID)
	}
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.battleKey(state.ID), data, r.ttl)
	if state.Finished() {
		pipe.SRem(ctx, r.activeKey(), state.ID)
	} else {
		pipe.SAdd(ctx, r.activeKey(), state.ID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return eris.Wrapf(err, "cache: save %s", state.ID)
	}
	return nil
}

func (r *Redis) Load(ctx context.Context, battleID string) (*battle.BattleState, error) {
	data, err := r.client.Get(ctx, r.battleKey(battleID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "cache: load %s", battleID)
	}
	var state battle.BattleState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, eris.Wrapf(err, "cache: decode %s", battleID)
	}
	return &state, nil
}

func (r *Redis) Delete(ctx context.Context, battleID string) error {
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.battleKey(battleID))
	pipe.SRem(ctx, r.activeKey(), battleID)
	if _, err := pipe.Exec(ctx); err != nil {
		return eris.Wrapf(err, "cache: delete %s", battleID)
	}
	return nil
}

// Active lists the ids of battles that have not finished.
func (r *Redis) Active(ctx context.Context) ([]string, error) {
	ids, err := r.client.SMembers(ctx, r.activeKey()).Result()
	if err != nil {
		return nil, eris.Wrap(err, "cache: list active")
	}
	return ids, nil
}

// Nop stores nothing.
type Nop struct{}

func (Nop) Save(context.Context, *battle.BattleState) error { return nil }
func (Nop) Load(context.Context, string) (*battle.BattleState, error) {
	return nil, ErrNotFound
}
func (Nop) Delete(context.Context, string) error     { return nil }
func (Nop) Active(context.Context) ([]string, error) { return nil, nil }
