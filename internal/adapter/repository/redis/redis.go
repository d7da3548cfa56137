// Package redis implements the URL repository on top of Redis.
//
// Each short code is stored as a hash under "url:<code>". Mutations run as Lua
// scripts, which Redis executes atomically, so operations on one short code are
// linearizable. A removed short code keeps its key with only a "deleted" field,
// which blocks the code from being saved again.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vadimbarashkov/url-shortener/internal/entity"
)

const keyPrefix = "url:"

const (
	fieldURL         = "url"
	fieldAccessCount = "access_count"
	fieldCreatedAt   = "created_at"
	fieldUpdatedAt   = "updated_at"
)

// Timestamps are stored as unix microseconds so that Lua can compare them
// without losing precision.
var (
	saveScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 0
end
redis.call('HSET', KEYS[1], 'url', ARGV[1], 'access_count', 0, 'created_at', ARGV[2], 'updated_at', ARGV[2])
return 1
`)

	incrementScript = redis.NewScript(`
if redis.call('HEXISTS', KEYS[1], 'url') == 0 then
	return false
end
redis.call('HINCRBY', KEYS[1], 'access_count', 1)
return redis.call('HGETALL', KEYS[1])
`)

	updateScript = redis.NewScript(`
if redis.call('HEXISTS', KEYS[1], 'url') == 0 then
	return false
end
local ts = ARGV[2]
local created = redis.call('HGET', KEYS[1], 'created_at')
if tonumber(ts) < tonumber(created) then
	ts = created
end
redis.call('HSET', KEYS[1], 'url', ARGV[1], 'updated_at', ts)
return redis.call('HGETALL', KEYS[1])
`)

	removeScript = redis.NewScript(`
if redis.call('HEXISTS', KEYS[1], 'url') == 0 then
	return 0
end
redis.call('DEL', KEYS[1])
redis.call('HSET', KEYS[1], 'deleted', 1)
return 1
`)
)

type URLRepository struct {
	client redis.UniversalClient
	now    func() time.Time
}

// Option configures a URLRepository.
type Option func(*URLRepository)

// WithClock overrides the time source used for CreatedAt and UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(r *URLRepository) {
		r.now = now
	}
}

func NewURLRepository(client redis.UniversalClient, opts ...Option) *URLRepository {
	r := &URLRepository{
		client: client,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

func key(shortCode string) string {
	return keyPrefix + shortCode
}

func (r *URLRepository) Save(ctx context.Context, shortCode, originalURL string) (*entity.URL, error) {
	const op = "adapter.repository.redis.URLRepository.Save"

	ts := r.now().UnixMicro()

	created, err := saveScript.Run(ctx, r.client, []string{key(shortCode)}, originalURL, ts).Int()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to save url hash: %w", op, err)
	}

	if created == 0 {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrShortCodeExists)
	}

	t := time.UnixMicro(ts).UTC()

	return &entity.URL{
		ShortCode:   shortCode,
		OriginalURL: originalURL,
		CreatedAt:   t,
		UpdatedAt:   t,
	}, nil
}

func (r *URLRepository) RetrieveByShortCode(ctx context.Context, shortCode string) (*entity.URL, error) {
	const op = "adapter.repository.redis.URLRepository.RetrieveByShortCode"

	fields, err := r.client.HGetAll(ctx, key(shortCode)).Result()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get url hash: %w", op, err)
	}

	url, err := toEntity(shortCode, fields)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return url, nil
}

func (r *URLRepository) RetrieveAndUpdateStats(ctx context.Context, shortCode string) (*entity.URL, error) {
	const op = "adapter.repository.redis.URLRepository.RetrieveAndUpdateStats"

	res, err := incrementScript.Run(ctx, r.client, []string{key(shortCode)}).Slice()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to increment access count: %w", op, err)
	}

	url, err := toEntity(shortCode, pairsToMap(res))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return url, nil
}

func (r *URLRepository) Update(ctx context.Context, shortCode, originalURL string) (*entity.URL, error) {
	const op = "adapter.repository.redis.URLRepository.Update"

	ts := r.now().UnixMicro()

	res, err := updateScript.Run(ctx, r.client, []string{key(shortCode)}, originalURL, ts).Slice()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to update url hash: %w", op, err)
	}

	url, err := toEntity(shortCode, pairsToMap(res))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return url, nil
}

func (r *URLRepository) Remove(ctx context.Context, shortCode string) error {
	const op = "adapter.repository.redis.URLRepository.Remove"

	removed, err := removeScript.Run(ctx, r.client, []string{key(shortCode)}).Int()
	if err != nil {
		return fmt.Errorf("%s: failed to remove url hash: %w", op, err)
	}

	if removed == 0 {
		return fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
	}

	return nil
}

// pairsToMap converts a flat HGETALL reply into a map.
func pairsToMap(pairs []any) map[string]string {
	m := make(map[string]string, len(pairs)/2)

	for i := 0; i+1 < len(pairs); i += 2 {
		k, _ := pairs[i].(string)
		v, _ := pairs[i+1].(string)
		m[k] = v
	}

	return m
}

func toEntity(shortCode string, fields map[string]string) (*entity.URL, error) {
	originalURL, ok := fields[fieldURL]
	if !ok {
		return nil, entity.ErrURLNotFound
	}

	accessCount, err := strconv.ParseInt(fields[fieldAccessCount], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed %s field: %w", fieldAccessCount, err)
	}

	createdAt, err := parseMicros(fields[fieldCreatedAt])
	if err != nil {
		return nil, fmt.Errorf("malformed %s field: %w", fieldCreatedAt, err)
	}

	updatedAt, err := parseMicros(fields[fieldUpdatedAt])
	if err != nil {
		return nil, fmt.Errorf("malformed %s field: %w", fieldUpdatedAt, err)
	}

	return &entity.URL{
		ShortCode:   shortCode,
		OriginalURL: originalURL,
		URLStats: entity.URLStats{
			AccessCount: accessCount,
		},
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

func parseMicros(s string) (time.Time, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMicro(n).UTC(), nil
}
