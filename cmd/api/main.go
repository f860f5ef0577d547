package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"scribe.dev/internal/auth"
	"scribe.dev/internal/blog"
	"scribe.dev/internal/config"
	"scribe.dev/internal/httpapi"
	"scribe.dev/internal/migrate"
	"scribe.dev/internal/obs"
	"scribe.dev/internal/store/memory"
	"scribe.dev/internal/store/pg"
	"scribe.dev/internal/stream"
	"scribe.dev/internal/users"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

// backend is what both storage implementations provide.
type backend interface {
	users.Store
	blog.Store
	Ping(ctx context.Context) error
}

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	obs.Init()
	obs.InitBuildInfo(version, commit)

	store, closeStore, err := openStore(cfg)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer closeStore()

	tokens, err := auth.NewTokenService([]byte(cfg.Auth.Secret), auth.WithIssuer(cfg.Auth.Issuer))
	if err != nil {
		log.Fatalf("token service: %v", err)
	}
	hasher := auth.NewHasher()

	deps := httpapi.Deps{
		Users:  users.NewService(store, hasher),
		Blog:   blog.NewService(store),
		Login:  auth.NewLoginService(store, store, hasher, tokens, auth.WithRehash(store)),
		Tokens: tokens,
		Events: stream.New(),
	}
	proxies, err := httpapi.ParseTrustedProxies(cfg.RateLimit.TrustedProxies)
	if err != nil {
		log.Fatalf("rate limit: %v", err)
	}
	probe := httpapi.ReadyProbe{Store: store}
	api := httpapi.New(probe, version, deps,
		httpapi.WithUploads(cfg.Uploads.Dir, cfg.Uploads.MaxBytes),
		httpapi.WithLoginRateLimit(cfg.RateLimit.LoginRPS, cfg.RateLimit.LoginBurst),
		httpapi.WithTrustedProxies(proxies),
		httpapi.WithRequestTimeout(cfg.Server.RequestTimeout),
		httpapi.WithCORSOrigins(cfg.CORS.AllowedOrigins...),
	)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	var grpcSrv *grpc.Server
	if cfg.Server.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
		if err != nil {
			log.Fatalf("grpc listen: %v", err)
		}
		grpcSrv = grpc.NewServer()
		httpapi.NewGRPCServer(probe, version).Register(grpcSrv)
		go func() {
			obs.Info("grpc_listening", map[string]any{"addr": cfg.Server.GRPCAddr})
			if err := grpcSrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				log.Fatalf("grpc serve: %v", err)
			}
		}()
	}

	obs.Info("starting", map[string]any{
		"version": version,
		"addr":    srv.Addr,
		"storage": cfg.Storage.Type,
	})
	obs.SetReady(true)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	obs.Info("shutting_down", nil)
	obs.SetReady(false)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}
	if err := srv.Shutdown(ctx); err != nil {
		obs.Error("shutdown_failed", map[string]any{"err": err})
	}
	obs.Info("stopped", nil)
}

func openStore(cfg *config.Config) (backend, func(), error) {
	if cfg.Storage.Type != "postgres" {
		return memory.New(), func() {}, nil
	}
	store, err := pg.Open(cfg.Storage.Postgres.DSN)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Storage.Postgres.MigrateOnStart {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := migrate.NewManager(store.DB(), nil).Up(ctx); err != nil {
			_ = store.Close()
			return nil, nil, err
		}
		obs.Info("migrations_applied", nil)
	}
	return store, func() { _ = store.Close() }, nil
}
