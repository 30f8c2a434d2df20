package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/justin8/apicache/pkg/cache"
	"github.com/justin8/apicache/pkg/config"
	"github.com/justin8/apicache/pkg/logging"
	"github.com/justin8/apicache/pkg/policy"
	"github.com/justin8/apicache/pkg/proxy"
	"github.com/justin8/apicache/pkg/upstream"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", getEnv("APICACHE_CONFIG", ""), "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = logging.LogLevel(cfg.Logging.Level)
	logCfg.Pretty = cfg.Logging.Pretty
	logging.Setup(logCfg)
	logger := logging.NewLogger("main")

	store, err := openStore(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open cache store")
	}
	defer store.Close()

	upstreamClient := upstream.New(upstream.Config{
		Timeout:   cfg.Upstream.FetchTimeout,
		UserAgent: cfg.Upstream.UserAgent,
	})

	handler, err := proxy.New(proxy.Config{
		Store:        store,
		Upstream:     upstreamClient,
		Allowlist:    policy.NewAllowlist(cfg.AllowedDomains),
		Rules:        policy.NewRules(rulesFromConfig(cfg.CacheablePaths)),
		EntryTTL:     cfg.Storage.EntryTTL,
		FailClosed:   cfg.Storage.FailClosed,
		FetchTimeout: cfg.Upstream.FetchTimeout,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create proxy handler")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/ready", readyHandler(store))
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", handler)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Fatal().Err(err).Str("addr", addr).Msg("Failed to listen")
	}

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info().
			Str("addr", addr).
			Str("backend", cfg.Storage.Backend).
			Strs("allowed_domains", cfg.AllowedDomains).
			Msg("apicache listening")

		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("Server failed")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Shutdown did not complete cleanly")
	}
}

// openStore opens the cache backend selected in the configuration.
func openStore(cfg config.Config) (cache.Store, error) {
	switch cfg.Storage.Backend {
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr: cfg.Storage.RedisAddr,
		})
		if err := client.Ping(context.Background()).Err(); err != nil {
			return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Storage.RedisAddr, err)
		}
		return cache.NewRedisStore(client, cfg.Storage.EntryTTL), nil
	default:
		return cache.OpenLevelDB(cfg.Storage.Path)
	}
}

// rulesFromConfig converts configured cache rules into policy rules.
func rulesFromConfig(rules []config.CacheRule) []policy.Rule {
	out := make([]policy.Rule, len(rules))
	for i, r := range rules {
		out[i] = policy.Rule{
			Prefix:        r.Prefix,
			CheckBodyCode: r.CheckBodyCode,
		}
	}
	return out
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// readyHandler reports whether the cache store answers. A probe read
// that misses still proves the backend is reachable.
func readyHandler(store cache.Store) http.HandlerFunc {
	probe := cache.CacheKey{Host: "apicache.internal", Path: "/ready"}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if _, err := store.Get(ctx, probe); err != nil && !errors.Is(err, cache.ErrCacheMiss) {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, "store unavailable: %v", err)
			return
		}

		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
