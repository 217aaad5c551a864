package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aulaviva/invites/internal/config"
	v2server "github.com/aulaviva/invites/internal/http/v2/server"
	"github.com/aulaviva/invites/internal/observability/logger"
)

func main() {
	// .env es opcional
	_ = godotenv.Load()

	cfg, err := config.Load(envOr("CONFIG_PATH", "configs/config.yaml"))
	if err != nil {
		logger.L().Fatal("config load failed", zap.Error(err))
	}

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.Log.Level,
		ServiceName: "invites-svc",
		Version:     v2server.Version,
	})

	// run corre sus defers (cleanup del storage) antes del exit.
	err = run(cfg)
	if err != nil {
		logger.L().Error("server stopped with error", zap.Error(err))
	}
	_ = logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	log := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	handler, cleanup, err := v2server.BuildV2Handler(ctx, cfg)
	if err != nil {
		return fmt.Errorf("wiring: %w", err)
	}
	defer func() {
		if err := cleanup(); err != nil {
			log.Warn("cleanup error", zap.Error(err))
		}
	}()

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Server.Addr, err)
	}
	log.Info("server listening",
		zap.String("addr", ln.Addr().String()),
		zap.String("env", cfg.App.Env),
		zap.String("storage", cfg.Storage.Driver),
	)
	if err := serve(ctx, newServer(cfg, handler), ln, shutdownTimeout); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}

const shutdownTimeout = 10 * time.Second

func newServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		// Los requests no heredan la señal: Shutdown los deja terminar.
		BaseContext: func(net.Listener) context.Context { return context.Background() },
	}
}

// serve atiende ln hasta que ctx se cancela y después drena los requests en
// vuelo con hasta grace de espera.
func serve(ctx context.Context, srv *http.Server, ln net.Listener, grace time.Duration) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.L().Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
