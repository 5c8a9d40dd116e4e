package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/lalith-99/whisperline/internal/api"
	"github.com/lalith-99/whisperline/internal/config"
	"github.com/lalith-99/whisperline/internal/hub"
	"github.com/lalith-99/whisperline/internal/observ"
	"github.com/lalith-99/whisperline/internal/repository/flatfile"
	"github.com/lalith-99/whisperline/internal/service"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}

	// The flat-file store loads every collection into memory at boot;
	// everything after this point works on those maps and flushes them
	// back through PersistAll.
	store, err := flatfile.New(cfg.DataDir, cfg.BackupKeep, logger)
	if err != nil {
		return fmt.Errorf("open data store: %w", err)
	}

	repos := service.Repos{
		Users:    flatfile.NewUserStore(store),
		Friends:  flatfile.NewFriendStore(store),
		Chats:    flatfile.NewConversationStore(store),
		Messages: flatfile.NewMessageStore(store),
		Requests: flatfile.NewRequestStore(store),
		Groups:   flatfile.NewGroupStore(store),
	}

	// One mutex guards every multi-step registry operation; the
	// services and the dispatcher share it.
	mu := &sync.Mutex{}

	sessions := hub.New(cfg.MaxConnsPerIP, service.ValidUsername, logger)
	dispatcher := service.NewDispatcher(mu, sessions, repos.Friends, repos.Groups, repos.Chats, logger)
	sessions.SetPresenceListener(dispatcher)

	identity := service.NewIdentityService(mu, repos, dispatcher, store, logger)
	convo := service.NewConversationService(mu, repos, dispatcher, store, logger)

	router := api.NewRouter(api.Handlers{
		Auth:     api.NewAuthHandler(identity, cfg.JWTSecret, logger),
		Friends:  api.NewFriendHandler(identity, logger),
		Requests: api.NewRequestHandler(identity, logger),
		Groups:   api.NewGroupHandler(convo, logger),
		Chats:    api.NewChatHandler(convo, cfg.UploadDir, logger),
		Profile:  api.NewProfileHandler(identity, cfg.UploadDir, logger),
		Health:   api.NewHealthHandler(repos, sessions),
		WS:       api.NewWSHandler(sessions, logger),
	}, cfg.JWTSecret, cfg.UploadDir)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Periodic autosave, alongside the per-operation flushes.
	stopAutosave := make(chan struct{})
	go func() {
		ticker := time.NewTicker(cfg.PersistInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := store.PersistAll(); err != nil {
					logger.Error("autosave failed", zap.Error(err))
				}
			case <-stopAutosave:
				return
			}
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting whisperline",
			zap.String("port", cfg.Port),
			zap.String("env", cfg.Env),
			zap.String("data_dir", cfg.DataDir),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case sig := <-quit:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	close(stopAutosave)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("http shutdown incomplete", zap.Error(err))
	}

	if err := sessions.Shutdown(shutdownTimeout); err != nil {
		logger.Warn("session shutdown incomplete", zap.Error(err))
	}

	// Final flush so a clean stop never loses the in-memory state.
	if err := store.PersistAll(); err != nil {
		return fmt.Errorf("final persist: %w", err)
	}

	logger.Info("shutdown complete")
	return nil
}
