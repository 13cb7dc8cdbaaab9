package ristretto

import (
	"context"
	"errors"
	"time"

	rc "github.com/dgraph-io/ristretto"

	"github.com/unkn0wn-root/swrcache/storage"
)

// Storage keeps entries in an in-process ristretto cache. It is synchronous:
// Set waits for ristretto's write buffer so a following Get observes it.
type Storage struct {
	c *rc.Cache
}

var _ storage.Storage = (*Storage)(nil)

type Config struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
	Metrics     bool
}

func New(cfg Config) (*Storage, error) {
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 {
		return nil, errors.New("ristretto: invalid config")
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	return &Storage{c: c}, nil
}

func (s *Storage) Has(ctx context.Context, key string) (bool, error) {
	_, ok, err := s.Get(ctx, key)
	return ok, err
}

func (s *Storage) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := s.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, _ := v.([]byte)
	if b == nil {
		// self-heal: drop unexpected entry shape
		s.c.Del(key)
		return nil, false, nil
	}
	return b, true, nil
}

func (s *Storage) Set(_ context.Context, key string, value []byte, cost int64, ttl time.Duration) (bool, error) {
	if ttl < 0 {
		ttl = 0
	}
	ok := s.c.SetWithTTL(key, value, cost, ttl)
	s.c.Wait()
	return ok, nil
}

func (s *Storage) Del(_ context.Context, key string) error {
	s.c.Del(key)
	return nil
}

func (s *Storage) Async() bool { return false }

func (s *Storage) Close(_ context.Context) error {
	s.c.Wait()
	s.c.Close()
	return nil
}

// Metrics exposes ristretto's counters (nil unless Config.Metrics was set).
func (s *Storage) Metrics() *rc.Metrics { return s.c.Metrics }
