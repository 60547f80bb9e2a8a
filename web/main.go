package main

import (
	"context"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/gorilla/securecookie"

	"github.com/devilmonastery/salesdesk/internal/auth"
	"github.com/devilmonastery/salesdesk/internal/client"
	"github.com/devilmonastery/salesdesk/internal/pkg/logger"
	"github.com/devilmonastery/salesdesk/web/internal/config"
	"github.com/devilmonastery/salesdesk/web/internal/handlers"
	"github.com/devilmonastery/salesdesk/web/internal/middleware"
	"github.com/devilmonastery/salesdesk/web/internal/session"
)

// setupWebLogging installs the service logger as the slog default.
// The web service always logs to stderr.
func setupWebLogging(cfg config.WebServerConfig) error {
	l, _, err := logger.SetupLogger(logger.Config{
		Level:     logger.ParseLevel(cfg.Logging.Level),
		Format:    cfg.Logging.Format,
		AddSource: !cfg.Environment.IsProduction(),
	})
	if err != nil {
		return err
	}
	slog.SetDefault(l)
	return nil
}

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err = setupWebLogging(*cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to setup logging: %v\n", err)
		os.Exit(1)
	}

	log := slog.Default().With("component", "web")
	log.Info("starting salesdesk web service", slog.String("environment", string(cfg.Environment)))

	sessionSecret, err := loadSessionSecret(cfg.Session.Secret, log)
	if err != nil {
		log.Error("failed to load session secret", slog.Any("error", err))
		os.Exit(1)
	}

	sessionMgr, err := session.NewManager(sessionSecret, session.Options{
		AccessMaxAge:  cfg.Session.AccessMaxAge,
		RefreshMaxAge: cfg.Session.RefreshMaxAge,
		OAuthMaxAge:   cfg.Session.OAuthMaxAge,
		Secure:        cfg.Environment.IsProduction(),
	})
	if err != nil {
		log.Error("failed to create session manager", slog.Any("error", err))
		os.Exit(1)
	}

	providers, err := auth.NewRegistry(cfg.OAuth)
	if err != nil {
		log.Error("failed to configure oauth providers", slog.Any("error", err))
		os.Exit(1)
	}
	log.Info("oauth providers configured", slog.Any("providers", providers.List()))

	// One connection pool and rate limiter for every per-request client
	transport := client.NewMetricsTransport(nil)
	if rl := cfg.API.RateLimit; rl.RequestsPerSecond > 0 {
		transport = client.NewRateLimitTransport(transport, rl.RequestsPerSecond, rl.Burst)
	}

	var reporter client.Reporter
	if cfg.Environment.IsProduction() {
		reporter = client.LogReporter{Logger: log}
	}

	h := handlers.New(handlers.Deps{
		APIConfig:      client.ConfigFrom(&cfg.Config),
		AppURL:         cfg.OAuth.AppURL,
		SessionManager: sessionMgr,
		Providers:      providers,
		HTTPClient:     &http.Client{Transport: transport},
		Reporter:       reporter,
		OAuthMaxAge:    cfg.Session.OAuthMaxAge,
		Logger:         log,
	})
	authMw := middleware.NewAuthMiddleware(sessionMgr, handlers.LoginPath, log)

	router := mux.NewRouter()
	h.Register(router, authMw.RequireAuth)

	srv := &http.Server{
		Addr:    net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler: middleware.LogRequest(os.Stdout)(router),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("listening", slog.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed to start server", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", slog.Any("error", err))
		os.Exit(1)
	}
}

// loadSessionSecret decodes the configured secret, or generates a temporary
// one so development sessions work without configuration.
func loadSessionSecret(configured string, log *slog.Logger) ([]byte, error) {
	if configured != "" {
		secret, err := base64.StdEncoding.DecodeString(configured)
		if err != nil {
			return nil, fmt.Errorf("session secret must be base64: %w", err)
		}
		log.Info("using configured session secret (sessions will persist across restarts)")
		return secret, nil
	}

	log.Warn("no session secret configured, generating random one (sessions won't persist)")
	secret := securecookie.GenerateRandomKey(32)
	if secret == nil {
		return nil, errors.New("failed to generate session secret")
	}
	return secret, nil
}
