package cache

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"
)

// generationTTL bounds how long an untouched tag generation is kept.
// Readers hold a generation for the duration of one request.
const generationTTL = 24 * time.Hour

// setScript stores the value only while the tag generation is unchanged.
//
// KEYS: key, tag, generation. ARGV: value, ttl ms, expected generation.
var setScript = redis.NewScript(`
local current = redis.call('GET', KEYS[3]) or '0'
if current ~= ARGV[3] then
	return 0
end
local ttl = tonumber(ARGV[2])
if ttl > 0 then
	redis.call('SET', KEYS[1], ARGV[1], 'PX', ttl)
	redis.call('SADD', KEYS[2], KEYS[1])
	redis.call('PEXPIRE', KEYS[2], 2 * ttl)
else
	redis.call('SET', KEYS[1], ARGV[1])
	redis.call('SADD', KEYS[2], KEYS[1])
end
return 1
`)

// invalidateScript advances each tag generation and deletes the tagged
// keys in one step.
//
// KEYS: tag1, generation1, tag2, generation2, ... ARGV: generation ttl ms.
var invalidateScript = redis.NewScript(`
for i = 1, #KEYS, 2 do
	redis.call('INCR', KEYS[i + 1])
	redis.call('PEXPIRE', KEYS[i + 1], ARGV[1])
	local members = redis.call('SMEMBERS', KEYS[i])
	for _, key in ipairs(members) do
		redis.call('DEL', key)
	end
	redis.call('DEL', KEYS[i])
end
return 1
`)

// Redis is a Store backed by a Redis server. Tags are Redis sets holding
// the keys stored under them; each tag has a generation counter next to it.
type Redis struct {
	rdb *redis.Client
}

// NewRedis connects to the Redis server at url (redis://[:password@]host:port/db)
// and verifies the connection with a ping.
func NewRedis(ctx context.Context, url string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrap(err, "redis ping")
	}
	return &Redis{rdb: rdb}, nil
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, errors.Wrap(err, "redis get")
	}
	return val, nil
}

func (r *Redis) Generation(ctx context.Context, tag string) (int64, error) {
	gen, err := r.rdb.Get(ctx, generationKey(tag)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "redis generation")
	}
	return gen, nil
}

func (r *Redis) Set(ctx context.Context, key, tag string, gen int64, value []byte, ttl time.Duration) error {
	stored, err := setScript.Run(ctx, r.rdb,
		[]string{key, tag, generationKey(tag)},
		value, ttl.Milliseconds(), gen,
	).Int()
	if err != nil {
		return errors.Wrap(err, "redis set")
	}
	if stored == 0 {
		return ErrStale
	}
	return nil
}

func (r *Redis) Invalidate(ctx context.Context, tags ...string) error {
	if len(tags) == 0 {
		return nil
	}
	keys := make([]string, 0, 2*len(tags))
	for _, tag := range tags {
		keys = append(keys, tag, generationKey(tag))
	}
	if err := invalidateScript.Run(ctx, r.rdb, keys, generationTTL.Milliseconds()).Err(); err != nil {
		return errors.Wrap(err, "redis invalidate")
	}
	return nil
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	return r.rdb.Close()
}

func generationKey(tag string) string {
	return tag + ":gen"
}
