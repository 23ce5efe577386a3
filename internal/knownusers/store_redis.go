package knownusers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"principalcheck/internal/principal/models"
	"principalcheck/pkg/platform/sentinel"
)

const (
	fieldFullName  = "full_name"
	fieldUpdatedAt = "updated_at"
)

// RedisStore keeps one hash per known user. Concurrent GetOrCreate calls for
// the same id share a single round trip.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	group  singleflight.Group
	now    func() time.Time
}

// NewRedisStore builds a store writing keys under prefix.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: prefix,
		now:    time.Now,
	}
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

func (s *RedisStore) GetOrCreate(ctx context.Context, id string) (*models.KnownUser, error) {
	if id == "" {
		return nil, fmt.Errorf("known user id: %w", sentinel.ErrInvalidState)
	}
	v, err, _ := s.group.Do(id, func() (any, error) {
		return s.getOrCreate(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	copied := *v.(*models.KnownUser)
	return &copied, nil
}

func (s *RedisStore) getOrCreate(ctx context.Context, id string) (*models.KnownUser, error) {
	key := s.key(id)
	now := s.now().UTC()

	// HSETNX leaves an existing record untouched, so a concurrent Save wins.
	pipe := s.client.TxPipeline()
	pipe.HSetNX(ctx, key, fieldFullName, id)
	pipe.HSetNX(ctx, key, fieldUpdatedAt, now.Format(time.RFC3339Nano))
	get := pipe.HGetAll(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("load known user: %w: %w", sentinel.ErrUnavailable, err)
	}
	return decode(id, get.Val())
}

func (s *RedisStore) Save(ctx context.Context, user *models.KnownUser) error {
	if user == nil || user.ID == "" {
		return fmt.Errorf("known user id: %w", sentinel.ErrInvalidState)
	}
	fullName := user.FullName
	if fullName == "" {
		fullName = user.ID
	}
	updatedAt := user.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = s.now()
	}
	err := s.client.HSet(ctx, s.key(user.ID),
		fieldFullName, fullName,
		fieldUpdatedAt, updatedAt.UTC().Format(time.RFC3339Nano),
	).Err()
	if err != nil {
		return fmt.Errorf("save known user: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	n, err := s.client.Del(ctx, s.key(id)).Result()
	if err != nil {
		return fmt.Errorf("delete known user: %w: %w", sentinel.ErrUnavailable, err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func decode(id string, fields map[string]string) (*models.KnownUser, error) {
	fullName, ok := fields[fieldFullName]
	if !ok {
		return nil, errors.New("known user record missing full_name")
	}
	u := &models.KnownUser{ID: id, FullName: fullName}
	if raw := fields[fieldUpdatedAt]; raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("parse known user updated_at: %w", err)
		}
		u.UpdatedAt = t
	}
	return u, nil
}
