// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/automatch/internal/auth"
	"github.com/jason-s-yu/automatch/internal/config"
	"github.com/jason-s-yu/automatch/internal/handlers"
	"github.com/jason-s-yu/automatch/internal/match"
	"github.com/jason-s-yu/automatch/internal/middleware"
	"github.com/jason-s-yu/automatch/internal/names"
	"github.com/jason-s-yu/automatch/internal/players"
	"github.com/jason-s-yu/automatch/internal/purchase"
	"github.com/jason-s-yu/automatch/internal/rating"
	"github.com/jason-s-yu/automatch/internal/relay"
	"github.com/jason-s-yu/automatch/internal/scheduler"
	"github.com/jason-s-yu/automatch/internal/store"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()

	logger := logrus.New()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	} else {
		logger.Warnf("invalid LOG_LEVEL %q, using info", cfg.LogLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := store.Connect(ctx, store.Options{URL: cfg.RedisURL, Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	if err != nil {
		logger.Fatalf("redis: %v", err)
	}
	defer s.Close()

	sessions, err := auth.NewSessions(cfg.Secret, cfg.TokenTTL)
	if err != nil {
		logger.Fatalf("sessions: %v", err)
	}

	repo := players.NewRepo(s, cfg.DefaultElo)
	lc := match.NewLifecycle(s, match.Timeouts{
		Pending: cfg.PendingTimeout,
		Active:  cfg.ActiveTimeout,
		Ended:   cfg.EndedTimeout,
	}, cfg.ArchiveQueue)

	hub := handlers.NewHub(logger)
	rel := relay.New(s, hub, logger)
	rel.Start(ctx)
	defer rel.Close()

	srv := &handlers.Server{
		Logger:    logger,
		Store:     s,
		Sessions:  sessions,
		Players:   repo,
		Lifecycle: lc,
		Matchmaker: match.NewMatchmaker(s, repo, lc, logger, match.MatchmakerConfig{
			FlaggedLimit: cfg.FlaggedLimit,
			SampleSize:   cfg.SampleSize,
		}),
		Resolver:    match.NewResolver(s, repo, lc, rating.NewElo(cfg.EloK), logger),
		Purchases:   purchase.NewService(s, repo, purchase.NewVerifier(cfg.ReceiptVerifyURL), cfg.ProductsKey, logger),
		Names:       names.NewFilter(cfg.MinNameLength, cfg.MaxNameLength, cfg.CleanNames, cfg.BannedWords),
		Relay:       rel,
		Hub:         hub,
		Metadata:    &handlers.Metadata{},
		SignupBonus: cfg.SignupBonus,
	}

	sched, err := scheduler.New(s, logger)
	if err != nil {
		logger.Fatalf("%v", err)
	}
	if err := sched.ScheduleJanitor(cfg.JanitorInterval); err != nil {
		logger.Fatalf("janitor: %v", err)
	}
	if err := sched.ScheduleMetadata(cfg.MetadataInterval, srv.Metadata.SetUsersOnline); err != nil {
		logger.Fatalf("metadata: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	mux := http.NewServeMux()
	mux.Handle("/ws", middleware.LogMiddleware(logger)(srv.WSHandler()))
	mux.Handle("/healthz", middleware.LogMiddleware(logger)(srv.HealthHandler()))

	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: mux,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		logger.Infof("Running on %s", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server exited: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}
	// sockets are hijacked: wait for their disconnect cleanup before the store closes
	if err := srv.Drain(shutdownCtx); err != nil {
		logger.Warnf("%v", err)
	}
}
