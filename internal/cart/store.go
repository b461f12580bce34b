package cart

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound indicates the requested cart could not be located.
var ErrNotFound = errors.New("cart not found")

// Store durably persists full cart states keyed by cart id. Save always
// replaces the entire serialized cart in a single write, so a crash mid-save
// can never leave a partially updated cart behind.
type Store interface {
	Load(ctx context.Context, id string) (Cart, error)
	Save(ctx context.Context, c Cart) error
}

// RedisStore implements Store on Redis with a sliding TTL.
type RedisStore struct {
	R   *redis.Client
	TTL time.Duration
}

func (s RedisStore) key(id string) string { return "cart:" + id }

func (s RedisStore) ttl() time.Duration {
	if s.TTL <= 0 {
		return 30 * 24 * time.Hour
	}
	return s.TTL
}

// Load rehydrates the full cart state.
func (s RedisStore) Load(ctx context.Context, id string) (Cart, error) {
	if s.R == nil {
		return Cart{}, errors.New("cart store not configured")
	}
	data, err := s.R.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Cart{}, ErrNotFound
		}
		return Cart{}, err
	}
	var c Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return Cart{}, err
	}
	return c, nil
}

// Save overwrites the stored cart atomically and refreshes its TTL.
func (s RedisStore) Save(ctx context.Context, c Cart) error {
	if s.R == nil {
		return errors.New("cart store not configured")
	}
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return s.R.Set(ctx, s.key(c.ID), data, s.ttl()).Err()
}
