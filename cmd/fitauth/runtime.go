package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/alicebob/miniredis/v2"
	fitAuth "github.com/fitlife/fitAuth"
	"github.com/fitlife/fitAuth/audit"
	"github.com/fitlife/fitAuth/internal/config"
	"github.com/fitlife/fitAuth/storage"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// runtime holds what every command needs: configuration, a logger and the
// Redis connection behind the durable and tab stores.
type runtime struct {
	cfg     *config.Config
	log     *zap.Logger
	client  redis.UniversalClient
	durable storage.Store
	cleanup []func()
}

func openRuntime() (*runtime, error) {
	cfg, err := config.Load(envFile, configFile)
	if err != nil {
		return nil, err
	}
	log, err := cfg.NewLogger()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	rt := &runtime{cfg: cfg, log: log}
	rt.cleanup = append(rt.cleanup, func() { _ = log.Sync() })

	addr := cfg.Redis.Addr
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("start miniredis: %w", err)
		}
		rt.cleanup = append(rt.cleanup, mr.Close)
		addr = mr.Addr()
		log.Info("using in-process redis", zap.String("addr", addr))
	}
	rt.client = redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{addr},
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	rt.cleanup = append(rt.cleanup, func() { _ = rt.client.Close() })
	rt.durable = storage.NewRedis(rt.client, cfg.Auth.Storage.KeyPrefix, 0)
	return rt, nil
}

// tabStore returns the store for one tab. Keys expire after Storage.TabTTL so
// abandoned tabs clean themselves up.
func (rt *runtime) tabStore(tab string) storage.Store {
	prefix := rt.cfg.Auth.Storage.KeyPrefix + ":tab:" + tab
	return storage.NewRedis(rt.client, prefix, rt.cfg.Auth.Storage.TabTTL)
}

func (rt *runtime) newBuilder(tab string) *fitAuth.Builder {
	b := fitAuth.New().
		WithConfig(rt.cfg.Auth).
		WithDurableStore(rt.durable).
		WithTabStore(rt.tabStore(tab)).
		WithLogger(rt.log).
		WithProbe(audit.StaticProbe{Device: "Desktop", Browser: "fitauth", Location: "Unknown"})
	if rt.cfg.Auth.Audit.Async {
		b = b.WithAuditSink(audit.NewZapSink(rt.log.Named("audit")))
	}
	return b
}

func (rt *runtime) engine(tab string) (*fitAuth.Engine, error) {
	return rt.newBuilder(tab).Build()
}

// Close runs cleanups in reverse order.
func (rt *runtime) Close() {
	for i := len(rt.cleanup) - 1; i >= 0; i-- {
		rt.cleanup[i]()
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
