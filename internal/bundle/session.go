package bundle

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrSessionNotFound indicates the builder session expired or never existed.
var ErrSessionNotFound = errors.New("builder session not found")

// Sessions persists builders in Redis so a composition survives across
// requests. Every save replaces the whole serialized builder in one write;
// sessions expire after TTL of inactivity.
type Sessions struct {
	R   *redis.Client
	TTL time.Duration
}

func (s Sessions) key(id string) string { return "builder:" + id }

func (s Sessions) ttl() time.Duration {
	if s.TTL <= 0 {
		return 2 * time.Hour
	}
	return s.TTL
}

// Create stores a new builder and returns its session id.
func (s Sessions) Create(ctx context.Context, b *Builder) (string, error) {
	if s.R == nil {
		return "", errors.New("builder sessions not configured")
	}
	id := uuid.NewString()
	if err := s.save(ctx, id, b); err != nil {
		return "", err
	}
	return id, nil
}

// Get rehydrates a builder session.
func (s Sessions) Get(ctx context.Context, id string) (*Builder, error) {
	if s.R == nil {
		return nil, errors.New("builder sessions not configured")
	}
	data, err := s.R.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	var b Builder
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// Save overwrites the stored builder and refreshes its TTL.
func (s Sessions) Save(ctx context.Context, id string, b *Builder) error {
	if s.R == nil {
		return errors.New("builder sessions not configured")
	}
	return s.save(ctx, id, b)
}

// Delete discards a session, typically after the set was added to a cart.
func (s Sessions) Delete(ctx context.Context, id string) error {
	if s.R == nil {
		return nil
	}
	return s.R.Del(ctx, s.key(id)).Err()
}

func (s Sessions) save(ctx context.Context, id string, b *Builder) error {
	data, err := json.Marshal(b)
	if err != nil {
		return err
	}
	return s.R.Set(ctx, s.key(id), data, s.ttl()).Err()
}
