package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotCached indicates no active dispatch is cached for the station.
var ErrNotCached = errors.New("redisstore: not cached")

// ActiveDispatch is the per-station running dispatch cached for the PLC fast
// path. The database stays the source of truth; a miss here falls back to a
// point query.
type ActiveDispatch struct {
	DispatchID int64  `json:"dispatch_id"`
	StationID  string `json:"station_id"`
	CompanyID  *int64 `json:"company_id,omitempty"`
	PinUserID  *int64 `json:"pin_user_id,omitempty"`
	Source     string `json:"source"`
}

// Store manages the active dispatch cache.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore returns a redis-backed store.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func (s *Store) key(stationID string) string {
	return fmt.Sprintf("dispatch:active:%s", stationID)
}

// Save caches the newest running dispatch for a station.
func (s *Store) Save(ctx context.Context, d ActiveDispatch) error {
	data, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(d.StationID), data, s.ttl).Err()
}

// Get returns the cached dispatch for a station.
func (s *Store) Get(ctx context.Context, stationID string) (*ActiveDispatch, error) {
	result, err := s.client.Get(ctx, s.key(stationID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotCached
	}
	if err != nil {
		return nil, err
	}
	var d ActiveDispatch
	if err := json.Unmarshal([]byte(result), &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// Delete drops the cached dispatch for a station.
func (s *Store) Delete(ctx context.Context, stationID string) error {
	return s.client.Del(ctx, s.key(stationID)).Err()
}
