package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nikbrunner/minimark/internal/model"
)

// RedisOptions configures the Redis backend.
type RedisOptions struct {
	Addr        string
	Password    string
	DB          int
	Prefix      string
	DialTimeout time.Duration
}

// RedisStorage implements Storage on Redis. Each record is a JSON string;
// a sorted set scored by addDate lists all ids and one set per URL serves
// the url lookup.
type RedisStorage struct {
	client *redis.Client
	keys   redisKeys
}

// NewRedisStorage connects to Redis and verifies the connection.
func NewRedisStorage(ctx context.Context, opts RedisOptions) (*RedisStorage, error) {
	dial := opts.DialTimeout
	if dial <= 0 {
		dial = 5 * time.Second
	}
	client := redis.NewClient(&redis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: dial,
	})

	pingCtx, cancel := context.WithTimeout(ctx, dial)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis unavailable at %s: %w", opts.Addr, err)
	}

	return NewRedisStorageFromClient(client, opts.Prefix), nil
}

// NewRedisStorageFromClient wraps an existing client.
func NewRedisStorageFromClient(client *redis.Client, prefix string) *RedisStorage {
	return &RedisStorage{client: client, keys: newRedisKeys(prefix)}
}

// GetAll returns every record ordered by addDate, then id.
func (s *RedisStorage) GetAll(ctx context.Context) ([]model.Record, error) {
	ids, err := s.client.ZRange(ctx, s.keys.all(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list bookmark ids: %w", err)
	}
	return s.fetch(ctx, ids)
}

// Get returns the record with the given id.
func (s *RedisStorage) Get(ctx context.Context, id string) (model.Record, error) {
	data, err := s.client.Get(ctx, s.keys.record(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.Record{}, ErrNotFound
		}
		return model.Record{}, fmt.Errorf("failed to get bookmark: %w", err)
	}

	var rec model.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return model.Record{}, fmt.Errorf("failed to unmarshal bookmark %s: %w", id, err)
	}
	return rec, nil
}

// GetByURL returns every record indexed under url.
func (s *RedisStorage) GetByURL(ctx context.Context, url string) ([]model.Record, error) {
	ids, err := s.client.SMembers(ctx, s.keys.url(url)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read url index: %w", err)
	}
	return s.fetch(ctx, ids)
}

// Put writes the record and moves its url index entry when the url changed.
func (s *RedisStorage) Put(ctx context.Context, rec model.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal bookmark: %w", err)
	}

	old, err := s.Get(ctx, rec.ID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	hadOld := err == nil

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.keys.record(rec.ID), data, 0)
		pipe.ZAdd(ctx, s.keys.all(), redis.Z{Score: float64(rec.AddDate), Member: rec.ID})
		if hadOld && old.URL != rec.URL {
			pipe.SRem(ctx, s.keys.url(old.URL), rec.ID)
		}
		pipe.SAdd(ctx, s.keys.url(rec.URL), rec.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save bookmark: %w", err)
	}
	return nil
}

// Delete removes a record and its index entries.
func (s *RedisStorage) Delete(ctx context.Context, id string) error {
	old, err := s.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.keys.record(id))
		pipe.ZRem(ctx, s.keys.all(), id)
		pipe.SRem(ctx, s.keys.url(old.URL), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete bookmark: %w", err)
	}
	return nil
}

// Clear removes every key under the prefix.
func (s *RedisStorage) Clear(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, s.keys.pattern(), 500).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 500 {
			if err := s.client.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return s.client.Del(ctx, batch...).Err()
	}
	return nil
}

// Close closes the client.
func (s *RedisStorage) Close() error {
	return s.client.Close()
}

// fetch loads records for ids in one round trip, skipping ids whose value
// has disappeared in between.
func (s *RedisStorage) fetch(ctx context.Context, ids []string) ([]model.Record, error) {
	records := []model.Record{}
	if len(ids) == 0 {
		return records, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.keys.record(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get bookmarks: %w", err)
	}

	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			continue
		}
		var rec model.Record
		if err := json.Unmarshal([]byte(str), &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal bookmark %s: %w", ids[i], err)
		}
		records = append(records, rec)
	}
	return records, nil
}

type redisKeys struct {
	prefix string
}

func newRedisKeys(prefix string) redisKeys {
	if prefix == "" {
		prefix = "minimark"
	}
	return redisKeys{prefix: prefix}
}

func (k redisKeys) record(id string) string { return k.prefix + ":bookmark:" + id }
func (k redisKeys) all() string             { return k.prefix + ":bookmarks:all" }
func (k redisKeys) url(u string) string     { return k.prefix + ":url:" + u }
func (k redisKeys) pattern() string         { return k.prefix + ":*" }
