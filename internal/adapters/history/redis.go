package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/KonoNeko/MeowBuling/internal/domain"
	"github.com/KonoNeko/MeowBuling/internal/ports"
)

// DefaultRedisKey is the list key holding the journal.
const DefaultRedisKey = "tarot:readings"

// RedisStore keeps the journal as a capped Redis list of JSON records,
// newest at the head.
type RedisStore struct {
	client *redis.Client
	key    string
	limit  int
}

// NewRedisStore creates a store backed by Redis.
func NewRedisStore(addr, password string, db, limit int) *RedisStore {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewRedisStoreWithClient(rdb, DefaultRedisKey, limit)
}

func NewRedisStoreWithClient(client *redis.Client, key string, limit int) *RedisStore {
	if limit <= 0 {
		limit = ports.DefaultHistoryLimit
	}
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key, limit: limit}
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Save(ctx context.Context, record ports.ReadingRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode reading: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, s.key, data)
		pipe.LTrim(ctx, s.key, 0, int64(s.limit-1))
		return nil
	})
	if err != nil {
		return fmt.Errorf("save reading: %w", err)
	}
	return nil
}

func (s *RedisStore) LoadAll(ctx context.Context) ([]ports.ReadingRecord, error) {
	vals, err := s.client.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load readings: %w", err)
	}
	return decodeRecords(vals)
}

// UpdateReflection rewrites one list element under WATCH so a concurrent
// Save cannot shift the index between read and write.
func (s *RedisStore) UpdateReflection(ctx context.Context, id, text string) error {
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		vals, err := tx.LRange(ctx, s.key, 0, -1).Result()
		if err != nil {
			return err
		}
		records, err := decodeRecords(vals)
		if err != nil {
			return err
		}
		for i, r := range records {
			if r.ID != id {
				continue
			}
			r.Reflection = text
			data, err := json.Marshal(r)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.LSet(ctx, s.key, int64(i), data)
				return nil
			})
			return err
		}
		return fmt.Errorf("%w: %s", domain.ErrReadingNotFound, id)
	}, s.key)
	if err != nil && !errors.Is(err, domain.ErrReadingNotFound) {
		return fmt.Errorf("update reflection: %w", err)
	}
	return err
}

func decodeRecords(vals []string) ([]ports.ReadingRecord, error) {
	out := make([]ports.ReadingRecord, 0, len(vals))
	for _, v := range vals {
		var r ports.ReadingRecord
		if err := json.Unmarshal([]byte(v), &r); err != nil {
			return nil, fmt.Errorf("decode reading: %w", err)
		}
		out = append(out, r)
	}
	return out, nil
}
