package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"slotbook/backend/internal/auth"
	"slotbook/backend/internal/cache"
	"slotbook/backend/internal/config"
	"slotbook/backend/internal/jobs"
	"slotbook/backend/internal/metrics"
	"slotbook/backend/internal/service/categories"
	"slotbook/backend/internal/service/events"
	"slotbook/backend/internal/store"
	"slotbook/backend/internal/store/memory"
	"slotbook/backend/internal/store/postgres"
	grpcTransport "slotbook/backend/internal/transport/grpc"
	httpTransport "slotbook/backend/internal/transport/http"
	"slotbook/backend/migrations"
)

type repositories struct {
	events     store.EventRepository
	categories store.CategoryRepository
	owners     store.OwnershipRepository
	close      func()
}

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).With(
		slog.String("service", "slotbook-server"),
	)
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)})).With(
		slog.String("service", "slotbook-server"),
	)
	slog.SetDefault(log)

	log.Info("starting",
		slog.String("http_addr", cfg.HTTPAddr),
		slog.String("grpc_addr", cfg.GRPCAddr),
		slog.String("store_driver", cfg.StoreDriver),
		slog.String("log_level", cfg.LogLevel),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repos, err := openStore(ctx, log, cfg)
	if err != nil {
		os.Exit(1)
	}
	defer repos.close()

	docCache := openCache(ctx, log, cfg.RedisURL)
	m := metrics.New()

	registry, refresh, err := bootstrapIssuers(ctx, log, cfg, docCache, m)
	if err != nil {
		log.Error("issuer bootstrap failed", slog.Any("err", err))
		os.Exit(1)
	}
	if refresh != nil {
		scheduler, err := jobs.Schedule(cfg.Federation.RefreshCron, refresh)
		if err != nil {
			log.Error("issuer refresh schedule invalid", slog.Any("err", err), slog.String("cron", cfg.Federation.RefreshCron))
			os.Exit(1)
		}
		scheduler.Start()
		defer func() { <-scheduler.Stop().Done() }()
		log.Info("issuer refresh scheduled", slog.String("cron", cfg.Federation.RefreshCron))
	}
	resolver := auth.NewResolver(registry, m.AuthFailed)

	catSvc := categories.NewService(repos.categories, repos.owners)
	evSvc := events.NewService(repos.events, repos.categories, catSvc, nil)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpTransport.NewServer(evSvc, catSvc, resolver, m, log).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	grpcServer, healthServer := grpcTransport.NewServer(resolver, cfg.GRPCRequestTimeout, grpcTransport.NewBookingServer(evSvc, m, log))

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Error("grpc listen failed", slog.Any("err", err), slog.String("grpc_addr", cfg.GRPCAddr))
		os.Exit(1)
	}

	errCh := make(chan error, 2)
	go func() {
		errCh <- grpcServer.Serve(lis)
	}()
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	log.Info("servers started", slog.String("http_addr", cfg.HTTPAddr), slog.String("grpc_addr", cfg.GRPCAddr))

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped with error", slog.Any("err", err))
			healthServer.Shutdown()
			shutdown(log, httpServer, grpcServer, cfg.ShutdownTimeout)
			os.Exit(1)
		}
	}
	healthServer.Shutdown()
	shutdown(log, httpServer, grpcServer, cfg.ShutdownTimeout)
}

func openStore(ctx context.Context, log *slog.Logger, cfg config.Config) (repositories, error) {
	if cfg.StoreDriver == config.DriverMemory {
		log.Warn("using in-memory store; data is lost on restart")
		mem := memory.New()
		return repositories{
			events:     mem.Events(),
			categories: mem.Categories(),
			owners:     mem.Owners(),
			close:      func() {},
		}, nil
	}

	log.Info("connecting to database", databaseLogArgs(cfg.DatabaseURL)...)
	db, err := postgres.Open(ctx, cfg.DatabaseURL, postgres.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
	})
	if err != nil {
		args := append([]any{slog.Any("err", err)}, databaseLogArgs(cfg.DatabaseURL)...)
		log.Error("database connection failed", args...)
		return repositories{}, err
	}
	closeDB := func() {
		if err := postgres.Close(db); err != nil {
			log.Warn("database close failed", slog.Any("err", err))
		}
	}

	if cfg.DatabaseMigrate {
		if err := postgres.Migrate(ctx, db, migrations.FS); err != nil {
			log.Error("database migration failed", slog.Any("err", err))
			closeDB()
			return repositories{}, err
		}
		log.Info("database migrations applied")
	}

	return repositories{
		events:     postgres.NewEventRepo(db),
		categories: postgres.NewCategoryRepo(db),
		owners:     postgres.NewOwnershipRepo(db),
		close:      closeDB,
	}, nil
}

// openCache falls back to no caching when Redis is not configured or not
// reachable at start.
func openCache(ctx context.Context, log *slog.Logger, redisURL string) cache.Cache {
	if redisURL == "" {
		return cache.Noop{}
	}
	client, err := cache.OpenRedis(ctx, redisURL)
	if err != nil {
		log.Warn("redis unavailable; caching disabled", slog.Any("err", err))
		return cache.Noop{}
	}
	log.Info("redis cache enabled")
	return cache.NewRedis(client, "slotbook:")
}

// bootstrapIssuers registers the native issuer and, when federation is on,
// the discovered issuers. A failed first discovery is not fatal; the refresh
// job retries on its schedule.
func bootstrapIssuers(ctx context.Context, log *slog.Logger, cfg config.Config, docCache cache.Cache, m *metrics.Metrics) (*auth.Registry, *jobs.IssuerRefresh, error) {
	var static []auth.Provider
	if cfg.Native.Secret != "" {
		static = append(static, auth.NativeProvider(cfg.Native.Issuer, cfg.Native.Secret))
	} else {
		log.Warn("native issuer disabled; no secret configured")
	}
	registry := auth.NewRegistry(static...)

	if !cfg.Federation.Enabled {
		m.RegisteredIssuers.Set(float64(registry.Len()))
		log.Info("token issuers registered", slog.Any("issuers", registry.Issuers()))
		return registry, nil, nil
	}

	federation := auth.Federation{
		MetadataURL:  cfg.Federation.MetadataURL,
		TenantID:     cfg.Federation.TenantID,
		ExtraIssuers: cfg.Federation.TrustedIssuers,
		Audience:     cfg.Federation.Audience,
		RolePrefix:   cfg.Federation.RolePrefix,
		Fetcher:      auth.NewHTTPFetcher(&http.Client{Timeout: 10 * time.Second}, docCache, cfg.CacheTTL),
	}
	refresh := jobs.NewIssuerRefresh(registry, static, federation, 30*time.Second, log)
	refresh.OnResult = func(result string, issuers int) {
		m.IssuerRefresh.WithLabelValues(result).Inc()
		m.RegisteredIssuers.Set(float64(issuers))
	}
	if err := refresh.Run(ctx); err != nil {
		log.Warn("initial issuer discovery failed", slog.Any("err", err))
	}
	if registry.Len() == 0 {
		return nil, nil, errors.New("no token issuers available")
	}
	return registry, refresh, nil
}

func shutdown(log *slog.Logger, h *http.Server, s *grpc.Server, timeout time.Duration) {
	log.Info("shutting down servers", slog.Duration("timeout", timeout))

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := h.Shutdown(ctx); err != nil {
		log.Warn("http graceful shutdown failed", slog.Any("err", err))
	}

	done := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		log.Info("grpc server stopped")
	case <-ctx.Done():
		log.Warn("grpc graceful shutdown timed out; forcing stop")
		s.Stop()
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func databaseLogArgs(databaseURL string) []any {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return []any{slog.String("db_url", "invalid")}
	}
	name := strings.TrimPrefix(u.Path, "/")
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "default"
	}
	if host == "" {
		host = "unknown"
	}
	if name == "" {
		name = "unknown"
	}
	return []any{
		slog.String("db_host", host),
		slog.String("db_port", port),
		slog.String("db_name", name),
	}
}
