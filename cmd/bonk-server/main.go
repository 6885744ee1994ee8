package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"net/url"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/park285/bonk-chess-server/internal/auth"
	"github.com/park285/bonk-chess-server/internal/auth/remote"
	appcfg "github.com/park285/bonk-chess-server/internal/config"
	"github.com/park285/bonk-chess-server/internal/gateway"
	"github.com/park285/bonk-chess-server/internal/httpapi"
	"github.com/park285/bonk-chess-server/internal/lobby"
	"github.com/park285/bonk-chess-server/internal/match"
	"github.com/park285/bonk-chess-server/internal/msgcat"
	"github.com/park285/bonk-chess-server/internal/obslog"
	"github.com/park285/bonk-chess-server/internal/render"
	"github.com/park285/bonk-chess-server/internal/session"
	"go.uber.org/zap"
)

var version = "dev"

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logCloser, err := obslog.Init(cfg.Log)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer logCloser.Close()
	logger := obslog.L()

	catalog, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		logger.Fatal("message catalog init error", zap.Error(err))
	}
	tc, err := match.ParseTimeControl(cfg.TimeControl)
	if err != nil {
		logger.Fatal("TIME_CONTROL invalid", zap.String("value", cfg.TimeControl), zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i].Close()
		}
	}()

	// Accounts: remote identity provider, Postgres, or process memory.
	var (
		registrar     httpapi.Registrar
		authenticator auth.Authenticator
	)
	switch {
	case cfg.AuthURL != "":
		authenticator = remote.NewClient(cfg.AuthURL)
		logger.Info("accounts_remote", zap.String("auth_url", cfg.AuthURL))
	case cfg.DatabaseURL != "":
		store, err := auth.NewPostgresStore(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("postgres init error", zap.Error(err))
		}
		closers = append(closers, store)
		sctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err = store.EnsureSchema(sctx)
		cancel()
		if err != nil {
			logger.Fatal("postgres schema error", zap.Error(err))
		}
		svc := auth.NewService(store)
		registrar, authenticator = svc, svc
		logger.Info("accounts_postgres")
	default:
		svc := auth.NewService(auth.NewMemoryStore())
		registrar, authenticator = svc, svc
		logger.Warn("accounts_in_memory", zap.String("hint", "set DATABASE_URL to keep accounts across restarts"))
	}

	var sessions session.Store
	if cfg.RedisURL != "" {
		rctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		rdb, err := session.Connect(rctx, cfg.RedisURL)
		cancel()
		if err != nil {
			logger.Fatal("redis init error", zap.Error(err))
		}
		closers = append(closers, rdb)
		sessions = session.NewRedisStore(rdb, cfg.SessionTTL())
	} else {
		sessions = session.NewMemoryStore(cfg.SessionTTL())
	}

	hub := gateway.NewHub()
	dir := lobby.NewDirectory(lobby.Options{
		Emitter:            hub,
		Messages:           catalog,
		DefaultTimeControl: tc,
		MaxMatches:         cfg.MaxMatches,
		Retention:          cfg.MatchRetention(),
	})
	go dir.Run(ctx, cfg.SweepInterval())

	ws := gateway.NewServer(gateway.Options{
		Directory:      dir,
		Hub:            hub,
		Sessions:       sessions,
		Catalog:        catalog,
		AllowGuests:    cfg.AllowGuests,
		OriginPatterns: originPatterns(cfg.ClientURL),
	})

	gin.SetMode(gin.ReleaseMode)
	router := httpapi.NewRouter(httpapi.Deps{
		Directory:     dir,
		Registrar:     registrar,
		Authenticator: authenticator,
		Sessions:      sessions,
		Renderer:      render.NewSVGBoardRenderer(),
		Catalog:       catalog,
		WebSocket:     ws,
		ClientURL:     cfg.ClientURL,
		Version:       version,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("http_listen", zap.String("addr", cfg.HTTPAddr), zap.String("version", version), zap.String("time_control", tc.String()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_serve_failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown_begin")

	ws.Shutdown()
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Warn("http_shutdown", zap.Error(err))
	}
	dir.Shutdown()
	logger.Info("shutdown_complete")
}

// originPatterns turns CLIENT_URL into the host pattern the WebSocket
// handshake checks Origin against.
func originPatterns(clientURL string) []string {
	if clientURL == "*" {
		return []string{"*"}
	}
	u, err := url.Parse(clientURL)
	if err != nil || u.Host == "" {
		return nil
	}
	return []string{u.Host}
}
