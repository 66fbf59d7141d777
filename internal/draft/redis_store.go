package draft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisStore keeps drafts in Redis. Drafts are written without a TTL: an
// in-progress attempt must survive until it is submitted, however long the
// student leaves it open.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(addr, password string, db int) *RedisStore {
	return &RedisStore{
		rdb: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

// Ping verifies the connection, so a misconfigured address fails at startup
// instead of on the first answer edit.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *RedisStore) Load(ctx context.Context, attemptID uint) (Answers, bool, error) {
	data, err := s.rdb.Get(ctx, Key(attemptID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading draft from redis: %w", err)
	}
	var answers Answers
	if err := json.Unmarshal(data, &answers); err != nil {
		log.Warn().Err(err).Uint("attemptID", attemptID).Msg("Discarding unreadable draft")
		return nil, false, nil
	}
	return answers, true, nil
}

func (s *RedisStore) Save(ctx context.Context, attemptID uint, answers Answers) error {
	data, err := json.Marshal(answers)
	if err != nil {
		return fmt.Errorf("encoding draft: %w", err)
	}
	if err := s.rdb.Set(ctx, Key(attemptID), data, 0).Err(); err != nil {
		return fmt.Errorf("writing draft to redis: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, attemptID uint) error {
	if err := s.rdb.Del(ctx, Key(attemptID)).Err(); err != nil {
		return fmt.Errorf("deleting draft from redis: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
