package redis

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap/zaptest"

	"github.com/arklim/anon-inbox/internal/infra/config"
)

func TestOptions(t *testing.T) {
	opts := Options(config.RedisSettings{Host: "cache", Port: 6380, DB: 2, TLSEnabled: true})

	if opts.Addr != "cache:6380" {
		t.Fatalf("unexpected addr %q", opts.Addr)
	}
	if opts.DB != 2 {
		t.Fatalf("unexpected db %d", opts.DB)
	}
	if opts.TLSConfig == nil {
		t.Fatalf("expected tls config when enabled")
	}
}

func TestClientCheck(t *testing.T) {
	server := miniredis.RunT(t)
	client := Wrap(goredis.NewClient(&goredis.Options{Addr: server.Addr()}), zaptest.NewLogger(t))
	t.Cleanup(func() { _ = client.Close() })

	if err := client.Check(context.Background()); err != nil {
		t.Fatalf("Check returned error: %v", err)
	}

	server.Close()

	if err := client.Check(context.Background()); err == nil {
		t.Fatalf("expected Check to fail once redis is gone")
	}
}
