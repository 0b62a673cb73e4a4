package dedup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// HashClient é o subconjunto do client Redis usado pelo store (permite mock).
type HashClient interface {
	HGet(ctx context.Context, key, field string) *redis.StringCmd
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	HDel(ctx context.Context, key string, fields ...string) *redis.IntCmd
	HLen(ctx context.Context, key string) *redis.IntCmd
}

// RedisStore guarda as entradas num hash Redis, para que os order ids sobrevivam a reinícios.
// As chaves não usam TTL; só o Sweep remove.
type RedisStore struct {
	client HashClient
	key    string
}

func NewRedisStore(client HashClient, key string) *RedisStore {
	return &RedisStore{client: client, key: key}
}

// DialRedis cria o client real.
func DialRedis(addr, password string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
}

func (r *RedisStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	val, err := r.client.HGet(ctx, r.key, key).Result()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("erro no HGET %s: %w", r.key, err)
	}
	var e Entry
	if err := json.Unmarshal([]byte(val), &e); err != nil {
		return Entry{}, false, fmt.Errorf("entrada inválida para %q: %w", key, err)
	}
	return e, true, nil
}

func (r *RedisStore) Put(ctx context.Context, key string, e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if err := r.client.HSet(ctx, r.key, key, string(data)).Err(); err != nil {
		return fmt.Errorf("erro no HSET %s: %w", r.key, err)
	}
	return nil
}

func (r *RedisStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int, error) {
	all, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return 0, fmt.Errorf("erro no HGETALL %s: %w", r.key, err)
	}

	var expired []string
	for k, v := range all {
		var e Entry
		// Entradas ilegíveis também são descartadas
		if err := json.Unmarshal([]byte(v), &e); err != nil || e.Stamp.Before(cutoff) {
			expired = append(expired, k)
		}
	}
	if len(expired) == 0 {
		return 0, nil
	}
	if err := r.client.HDel(ctx, r.key, expired...).Err(); err != nil {
		return 0, fmt.Errorf("erro no HDEL %s: %w", r.key, err)
	}
	return len(expired), nil
}

func (r *RedisStore) Len(ctx context.Context) (int, error) {
	n, err := r.client.HLen(ctx, r.key).Result()
	return int(n), err
}
