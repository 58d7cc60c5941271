package cache

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/kjstillabower/deskclock/internal/models"
)

func TestParseAddrs(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"localhost:11211", []string{"localhost:11211"}},
		{" a:1 , ,b:2 ", []string{"a:1", "b:2"}},
	}
	for _, tt := range tests {
		if got := parseAddrs(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("parseAddrs(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestExpiration(t *testing.T) {
	tests := []struct {
		ttl  time.Duration
		want int32
	}{
		{10 * time.Minute, 600},
		{0, 3600},
		{-time.Second, 3600},
		{31 * 24 * time.Hour, 3600},
	}
	for _, tt := range tests {
		if got := expiration(tt.ttl); got != tt.want {
			t.Errorf("expiration(%v) = %d, want %d", tt.ttl, got, tt.want)
		}
	}
}

func TestNewMirror(t *testing.T) {
	tests := []struct {
		backend  string
		wantType string
		wantErr  bool
	}{
		{"", "cache.NopMirror", false},
		{"none", "cache.NopMirror", false},
		{"Memcached", "*cache.MemcachedMirror", false},
		{"redis", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			m, err := NewMirror(tt.backend, "localhost:11211", "desk-1", time.Second, time.Hour)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewMirror(%q) error = %v, wantErr %v", tt.backend, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got := reflect.TypeOf(m).String(); got != tt.wantType {
				t.Errorf("NewMirror(%q) type = %s, want %s", tt.backend, got, tt.wantType)
			}
			_ = m.Close()
		})
	}
}

func TestNewMemcachedMirror_Key(t *testing.T) {
	m, err := NewMemcachedMirror("", "desk-1", 0, 0)
	if err != nil {
		t.Fatalf("NewMemcachedMirror() error = %v", err)
	}
	defer m.Close()
	if m.Key() != "deskclock:weather:desk-1" {
		t.Errorf("Key() = %q, want %q", m.Key(), "deskclock:weather:desk-1")
	}

	if _, err := NewMemcachedMirror("", "", 0, 0); err == nil {
		t.Error("NewMemcachedMirror() with empty device: error = nil")
	}
}

func TestMemcachedMirror_PublishCancelled(t *testing.T) {
	m, _ := NewMemcachedMirror("localhost:1", "desk-1", 10*time.Millisecond, 0)
	defer m.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := m.Publish(ctx, models.WeatherSnapshot{Valid: true}); err != context.Canceled {
		t.Errorf("Publish() error = %v, want context.Canceled", err)
	}
}
