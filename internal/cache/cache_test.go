package cache

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"
)

func TestNoopAlwaysMisses(t *testing.T) {
	ctx := context.Background()
	var c Cache = Noop{}
	if err := c.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	if _, err := c.Get(ctx, "k"); !errors.Is(err, ErrMiss) {
		t.Fatalf("Get err = %v, want %v", err, ErrMiss)
	}
}

func TestRedisIntegration_RoundTripAndMiss(t *testing.T) {
	url := strings.TrimSpace(os.Getenv("SLOTBOOK_TEST_REDIS_URL"))
	if url == "" {
		t.Skip("SLOTBOOK_TEST_REDIS_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := OpenRedis(ctx, url)
	if err != nil {
		t.Fatalf("OpenRedis error: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	c := NewRedis(client, "slotbook-test:"+time.Now().Format("150405.000000")+":")
	if _, err := c.Get(ctx, "doc"); !errors.Is(err, ErrMiss) {
		t.Fatalf("Get before Set err = %v, want %v", err, ErrMiss)
	}
	if err := c.Set(ctx, "doc", []byte(`{"keys":[]}`), time.Minute); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	got, err := c.Get(ctx, "doc")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if string(got) != `{"keys":[]}` {
		t.Fatalf("Get = %q", got)
	}
	if err := c.Delete(ctx, "doc"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, err := c.Get(ctx, "doc"); !errors.Is(err, ErrMiss) {
		t.Fatalf("Get after Delete err = %v, want %v", err, ErrMiss)
	}
}
