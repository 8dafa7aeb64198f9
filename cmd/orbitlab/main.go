package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/dev2025-gs/orbital-playground/internal/api"
	"github.com/dev2025-gs/orbital-playground/internal/astro"
	"github.com/dev2025-gs/orbital-playground/internal/auth"
	"github.com/dev2025-gs/orbital-playground/internal/ratelimit"
	"github.com/dev2025-gs/orbital-playground/internal/stream"
	"github.com/dev2025-gs/orbital-playground/internal/tle"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: loadLogLevel(),
	}))

	addr := os.Getenv("ORBITLAB_HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	authCfg, err := loadAuthConfig(logger)
	if err != nil {
		logger.Error("invalid auth configuration", "error", err)
		os.Exit(1)
	}

	body, err := loadBodyConfig(logger)
	if err != nil {
		logger.Error("invalid central body configuration", "error", err)
		os.Exit(1)
	}

	rlCfg := loadRateLimitConfig(logger)
	var limiter *ratelimit.IPRateLimiter
	if rlCfg.RPS > 0 {
		limiter = ratelimit.NewIPRateLimiter(rlCfg.RPS, rlCfg.Burst, rlCfg.IdleTTL)
	}

	tleCfg := loadTLEConfig(logger)
	store := tle.NewStore(tle.NewFetcher(tleCfg.sourceURL, logger), tleCfg.maxAge)
	pool := tle.NewWorkerPool(loadWorkers(logger), logger)

	streamCfg := loadStreamConfig(logger)
	streamCfg.TrustProxy = rlCfg.TrustProxy
	streamHandler := stream.NewHandler(body, streamCfg, logger)

	srv := api.NewServer(api.Config{
		Addr:       addr,
		Body:       body,
		Auth:       authCfg,
		RateLimit:  rlCfg,
		Limiter:    limiter,
		Stream:     streamHandler,
		TLEStore:   store,
		Pool:       pool,
		TrustProxy: rlCfg.TrustProxy,
	}, logger)

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if limiter != nil {
		go limiter.Run(ctx, time.Minute, logger)
	}
	go store.Run(ctx, 10*time.Minute, logger)

	go func() {
		logger.Info("starting server", "addr", addr, "body", body.Name, "auth_enabled", authCfg.Enabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server listen error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func loadLogLevel() slog.Level {
	switch strings.ToLower(os.Getenv("ORBITLAB_LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func loadAuthConfig(logger *slog.Logger) (auth.Config, error) {
	cfg := auth.Config{}

	enabledStr := os.Getenv("ORBITLAB_AUTH_ENABLED")
	if enabledStr != "" {
		enabled, err := strconv.ParseBool(enabledStr)
		if err != nil {
			return cfg, errors.New("ORBITLAB_AUTH_ENABLED must be a boolean value (true/false/1/0)")
		}
		cfg.Enabled = enabled
	}

	if cfg.Enabled {
		cfg.Token = os.Getenv("ORBITLAB_AUTH_TOKEN")
		if cfg.Token == "" {
			return cfg, errors.New("ORBITLAB_AUTH_TOKEN is required when auth is enabled")
		}
		logger.Info("auth enabled")
	}

	return cfg, nil
}

// loadBodyConfig starts from Earth and applies overrides. An invalid override
// is fatal since every calculation depends on it.
func loadBodyConfig(logger *slog.Logger) (astro.CentralBody, error) {
	body := astro.Earth

	if v := os.Getenv("ORBITLAB_BODY_NAME"); v != "" {
		body.Name = v
	}

	if v := os.Getenv("ORBITLAB_BODY_RADIUS_KM"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return body, errors.New("ORBITLAB_BODY_RADIUS_KM must be a number")
		}
		body.Radius = f
	}

	if v := os.Getenv("ORBITLAB_BODY_MU"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return body, errors.New("ORBITLAB_BODY_MU must be a number")
		}
		body.Mu = f
	}

	if err := body.Validate(); err != nil {
		return body, err
	}

	logger.Info("central body", "name", body.Name, "radius_km", body.Radius, "mu", body.Mu)
	return body, nil
}

func loadRateLimitConfig(logger *slog.Logger) ratelimit.Config {
	cfg := ratelimit.DefaultConfig()

	if v := os.Getenv("ORBITLAB_RATE_LIMIT_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			logger.Warn("invalid ORBITLAB_RATE_LIMIT_RPS value, using default", "value", v, "default", cfg.RPS)
		} else {
			cfg.RPS = f
		}
	}

	if v := os.Getenv("ORBITLAB_RATE_LIMIT_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid ORBITLAB_RATE_LIMIT_BURST value, using default", "value", v, "default", cfg.Burst)
		} else {
			cfg.Burst = n
		}
	}

	if v := os.Getenv("ORBITLAB_TRUST_PROXY"); v != "" {
		trust, err := strconv.ParseBool(v)
		if err != nil {
			logger.Warn("invalid ORBITLAB_TRUST_PROXY value, defaulting to false", "value", v)
		} else {
			cfg.TrustProxy = trust
		}
	}

	logger.Info("rate limit config",
		"rps", cfg.RPS,
		"burst", cfg.Burst,
		"trust_proxy", cfg.TrustProxy,
	)

	return cfg
}

func loadStreamConfig(logger *slog.Logger) stream.Config {
	cfg := stream.Config{
		MaxConcurrentPerIP: 5,
		KeepaliveInterval:  30 * time.Second,
	}

	if v := os.Getenv("ORBITLAB_STREAM_MAX_CONCURRENT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid ORBITLAB_STREAM_MAX_CONCURRENT value, using default", "value", v, "default", 5)
		} else {
			cfg.MaxConcurrentPerIP = n
		}
	}

	if v := os.Getenv("ORBITLAB_STREAM_KEEPALIVE_INTERVAL"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid ORBITLAB_STREAM_KEEPALIVE_INTERVAL value, using default", "value", v, "default", 30)
		} else {
			cfg.KeepaliveInterval = time.Duration(n) * time.Second
		}
	}

	logger.Info("stream config",
		"max_concurrent_per_ip", cfg.MaxConcurrentPerIP,
		"keepalive_interval_seconds", cfg.KeepaliveInterval.Seconds(),
	)

	return cfg
}

type tleConfig struct {
	sourceURL string
	maxAge    time.Duration
}

func loadTLEConfig(logger *slog.Logger) tleConfig {
	cfg := tleConfig{maxAge: tle.DefaultMaxAge}

	if v := os.Getenv("ORBITLAB_TLE_SOURCE_URL"); v != "" {
		cfg.sourceURL = v
	}

	if v := os.Getenv("ORBITLAB_TLE_MAX_AGE"); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil || seconds < 1 {
			logger.Warn("invalid ORBITLAB_TLE_MAX_AGE value, using default", "value", v, "default", tle.DefaultMaxAge.Seconds())
		} else {
			cfg.maxAge = time.Duration(seconds) * time.Second
		}
	}

	logger.Info("TLE config",
		"source_url", cfg.sourceURL,
		"max_age_seconds", cfg.maxAge.Seconds(),
	)

	return cfg
}

func loadWorkers(logger *slog.Logger) int {
	workers := runtime.NumCPU()

	if v := os.Getenv("ORBITLAB_PROP_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid ORBITLAB_PROP_WORKERS value, using default", "value", v, "default", workers)
		} else {
			workers = n
		}
	}

	logger.Info("propagation workers", "workers", workers)
	return workers
}
