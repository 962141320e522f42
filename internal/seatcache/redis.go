package seatcache

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/lam4est/CinemaX/internal/domain"
	"github.com/redis/go-redis/v9"
)

const loadedAtField = "_loaded_at"

// RedisStore keeps each snapshot in a hash of seat id -> state under a key
// namespaced by the owning session. Keys expire with the session.
type RedisStore struct {
	client    redis.UniversalClient
	namespace string
	ttl       time.Duration
}

func NewRedisStore(client redis.UniversalClient, namespace string, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client:    client,
		namespace: namespace,
		ttl:       ttl,
	}
}

func (s *RedisStore) Get(ctx context.Context, showtimeID string) (domain.SeatMap, bool, error) {
	fields, err := s.client.HGetAll(ctx, s.key(showtimeID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.SeatMap{}, false, nil
		}

		return domain.SeatMap{}, false, fmt.Errorf("failed to read seat map %s: %w", showtimeID, err)
	}

	if len(fields) == 0 {
		return domain.SeatMap{}, false, nil
	}

	seatMap := domain.SeatMap{
		ShowtimeID: showtimeID,
		States:     make(map[string]domain.SeatState, len(fields)),
	}

	for field, value := range fields {
		if field == loadedAtField {
			loadedAt, err := time.Parse(time.RFC3339Nano, value)
			if err == nil {
				seatMap.LoadedAt = loadedAt
			}
			continue
		}

		seatMap.States[field] = domain.SeatState(value)
	}

	return seatMap, true, nil
}

func (s *RedisStore) Put(ctx context.Context, seatMap domain.SeatMap) error {
	key := s.key(seatMap.ShowtimeID)

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, hashValues(seatMap)...)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}

	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to store seat map %s: %w", seatMap.ShowtimeID, err)
	}

	return nil
}

func (s *RedisStore) Invalidate(ctx context.Context, showtimeID string) error {
	err := s.client.Del(ctx, s.key(showtimeID)).Err()
	if err != nil {
		return fmt.Errorf("failed to invalidate seat map %s: %w", showtimeID, err)
	}

	return nil
}

func (s *RedisStore) key(showtimeID string) string {
	return seatMapKey(s.namespace, showtimeID)
}

func seatMapKey(namespace, showtimeID string) string {
	return fmt.Sprintf("seatmap:%s:%s", namespace, showtimeID)
}

// hashValues flattens a seat map into sorted field/value pairs so the command
// is deterministic.
func hashValues(seatMap domain.SeatMap) []interface{} {
	seatIDs := make([]string, 0, len(seatMap.States))
	for id := range seatMap.States {
		seatIDs = append(seatIDs, id)
	}
	slices.Sort(seatIDs)

	values := make([]interface{}, 0, 2*len(seatIDs)+2)
	values = append(values, loadedAtField, seatMap.LoadedAt.UTC().Format(time.RFC3339Nano))

	for _, id := range seatIDs {
		values = append(values, id, string(seatMap.States[id]))
	}

	return values
}
