package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bradfitz/gomemcache/memcache"

	"github.com/kjstillabower/deskclock/internal/models"
)

const keyPrefix = "deskclock:weather:"

// Mirror publishes the latest snapshot to a store other panels or a dashboard
// can read. The panel itself never reads it back.
type Mirror interface {
	Publish(ctx context.Context, snap models.WeatherSnapshot) error
	Close() error
}

// NopMirror discards every snapshot.
type NopMirror struct{}

func (NopMirror) Publish(context.Context, models.WeatherSnapshot) error { return nil }
func (NopMirror) Close() error                                          { return nil }

// MemcachedMirror stores the snapshot as JSON under a per-device key.
type MemcachedMirror struct {
	client *memcache.Client
	key    string
	ttl    time.Duration
}

// NewMemcachedMirror creates a MemcachedMirror. addrs is a comma-separated list
// (e.g. "localhost:11211" or "host1:11211,host2:11211"). timeout uses the
// package default if zero; ttl defaults to one hour.
func NewMemcachedMirror(addrs, device string, timeout, ttl time.Duration) (*MemcachedMirror, error) {
	if device == "" {
		return nil, errors.New("memcached mirror: device name is required")
	}
	servers := parseAddrs(addrs)
	if len(servers) == 0 {
		servers = []string{"localhost:11211"}
	}
	client := memcache.New(servers...)
	if timeout > 0 {
		client.Timeout = timeout
	}
	client.MaxIdleConns = 1
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &MemcachedMirror{client: client, key: keyPrefix + device, ttl: ttl}, nil
}

func parseAddrs(s string) []string {
	var out []string
	for _, a := range strings.Split(s, ",") {
		a = strings.TrimSpace(a)
		if a != "" {
			out = append(out, a)
		}
	}
	return out
}

// Key returns the memcached key this mirror writes.
func (m *MemcachedMirror) Key() string { return m.key }

// Publish implements Mirror.
func (m *MemcachedMirror) Publish(ctx context.Context, snap models.WeatherSnapshot) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return m.client.Set(&memcache.Item{
		Key:        m.key,
		Value:      raw,
		Expiration: expiration(m.ttl),
	})
}

// Get reads back a published snapshot. Dashboards use it; the panel does not.
func (m *MemcachedMirror) Get(ctx context.Context) (models.WeatherSnapshot, bool, error) {
	if ctx.Err() != nil {
		return models.WeatherSnapshot{}, false, ctx.Err()
	}
	item, err := m.client.Get(m.key)
	if err != nil {
		if errors.Is(err, memcache.ErrCacheMiss) {
			return models.WeatherSnapshot{}, false, nil
		}
		return models.WeatherSnapshot{}, false, err
	}
	var snap models.WeatherSnapshot
	if err := json.Unmarshal(item.Value, &snap); err != nil {
		return models.WeatherSnapshot{}, false, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, true, nil
}

// Ping checks if memcached is reachable.
func (m *MemcachedMirror) Ping() error {
	return m.client.Ping()
}

// Close closes the memcached client connections. Call during shutdown.
func (m *MemcachedMirror) Close() error {
	return m.client.Close()
}

func expiration(ttl time.Duration) int32 {
	const maxRelativeExp = 30 * 24 * 60 * 60 // 30 days
	sec := int32(ttl.Seconds())
	if sec <= 0 || sec > maxRelativeExp {
		return 3600
	}
	return sec
}

// NewMirror builds the configured backend: "none" (or empty) or "memcached".
func NewMirror(backend, addrs, device string, timeout, ttl time.Duration) (Mirror, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", "none":
		return NopMirror{}, nil
	case "memcached":
		return NewMemcachedMirror(addrs, device, timeout, ttl)
	default:
		return nil, fmt.Errorf("unknown cache mirror backend %q", backend)
	}
}
