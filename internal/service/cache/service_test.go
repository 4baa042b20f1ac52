package cache

import (
	"context"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/valkey-io/valkey-go"
)

type testPayload struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

func newTestCacheService(t *testing.T) (*Service, *miniredis.Miniredis) {
	t.Helper()

	mini := miniredis.RunT(t)
	host, portStr, err := net.SplitHostPort(mini.Addr())
	if err != nil {
		t.Fatalf("failed to split address: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress:       []string{net.JoinHostPort(host, portStr)},
		DisableCache:      true,
		ForceSingleClient: true,
	})
	if err != nil {
		t.Fatalf("failed to create valkey client: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		t.Fatalf("failed to ping miniredis: %v", err)
	}
	svc := newServiceWithClient(client, logger)

	t.Cleanup(func() {
		_ = svc.Close()
		mini.Close()
	})

	return svc, mini
}

func TestCacheServiceSetGetAndExpire(t *testing.T) {
	svc, mini := newTestCacheService(t)
	ctx := context.Background()

	value := testPayload{Name: "kills", Value: 42}
	if err := svc.Set(ctx, "key", value, time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	var got testPayload
	hit, err := svc.Get(ctx, "key", &got)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !hit {
		t.Fatalf("expected cache hit")
	}
	if got.Name != "kills" || got.Value != 42 {
		t.Fatalf("unexpected value: %+v", got)
	}

	mini.FastForward(2 * time.Minute)

	hit, err = svc.Get(ctx, "key", &got)
	if err != nil {
		t.Fatalf("get after expire failed: %v", err)
	}
	if hit {
		t.Fatalf("expected key to expire")
	}
}

func TestCacheServiceGetMissIsNotError(t *testing.T) {
	svc, _ := newTestCacheService(t)

	var got testPayload
	hit, err := svc.Get(context.Background(), "absent", &got)
	if err != nil {
		t.Fatalf("miss must not be an error: %v", err)
	}
	if hit {
		t.Fatalf("expected miss")
	}
}

func TestCacheServiceIncrByFloat(t *testing.T) {
	svc, _ := newTestCacheService(t)
	ctx := context.Background()

	got, err := svc.IncrByFloat(ctx, "counter", 2.5)
	if err != nil {
		t.Fatalf("incrbyfloat failed: %v", err)
	}
	if got != 2.5 {
		t.Fatalf("unexpected counter value: %v", got)
	}

	got, err = svc.IncrByFloat(ctx, "counter", -1)
	if err != nil {
		t.Fatalf("incrbyfloat failed: %v", err)
	}
	if got != 1.5 {
		t.Fatalf("unexpected counter value: %v", got)
	}

	value, exists, err := svc.GetFloat(ctx, "counter")
	if err != nil {
		t.Fatalf("get float failed: %v", err)
	}
	if !exists || value != 1.5 {
		t.Fatalf("unexpected get float result: value=%v exists=%v", value, exists)
	}
}

func TestCacheServiceSetFloatOverwritesCounter(t *testing.T) {
	svc, _ := newTestCacheService(t)
	ctx := context.Background()

	if _, err := svc.IncrByFloat(ctx, "counter", 10); err != nil {
		t.Fatalf("incrbyfloat failed: %v", err)
	}
	if err := svc.SetFloat(ctx, "counter", 3, 0); err != nil {
		t.Fatalf("set float failed: %v", err)
	}

	value, exists, err := svc.GetFloat(ctx, "counter")
	if err != nil {
		t.Fatalf("get float failed: %v", err)
	}
	if !exists || value != 3 {
		t.Fatalf("expected reconciled value 3, got value=%v exists=%v", value, exists)
	}
}

func TestCacheServiceDelMany(t *testing.T) {
	svc, _ := newTestCacheService(t)
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c"} {
		if err := svc.Set(ctx, key, testPayload{Name: key}, 0); err != nil {
			t.Fatalf("set %s failed: %v", key, err)
		}
	}

	deleted, err := svc.DelMany(ctx, []string{"a", "b", "missing"})
	if err != nil {
		t.Fatalf("delmany failed: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("expected 2 deleted, got %d", deleted)
	}

	exists, err := svc.Exists(ctx, "c")
	if err != nil {
		t.Fatalf("exists failed: %v", err)
	}
	if !exists {
		t.Fatalf("unrelated key must survive")
	}
}
