/*
Package main is the entry point for the chat server.

It loads configuration, initializes the global logging system, constructs
the stores and core components, binds the TLS listener, and handles
operating system interrupt signals (SIGINT, SIGTERM) for a clean shutdown.
*/
package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/time/rate"

	"tlschat/internal/app/ai"
	"tlschat/internal/app/auth"
	"tlschat/internal/app/chat"
	"tlschat/internal/app/storage"
	"tlschat/internal/app/token"
	"tlschat/internal/configs"
	"tlschat/internal/handler"
	"tlschat/internal/pkg/limiter"
	"tlschat/internal/pkg/logx"
	"tlschat/internal/pkg/secrets"
	"tlschat/internal/pkg/tlsx"
)

// tokenCleanupInterval controls how often expired token records are purged.
const tokenCleanupInterval = 15 * time.Minute

func main() {
	// Load .env if present, then configuration from environment variables.
	_ = godotenv.Load()

	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logx.InitGlobalLogger(cfg.Environment == "development")
	logx.Info("Configuration loaded successfully.",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"data_dir", cfg.DataDir,
		"ai_endpoint", cfg.AIEndpoint,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := buildDeps(cfg)
	if err != nil {
		logx.Fatal(err, "Failed to initialize server components")
	}

	tlsConfig, err := tlsx.ServerConfig(cfg.TLSCertFile, cfg.TLSKeyFile)
	if err != nil {
		logx.Fatal(err, "Failed to load TLS material")
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	listener, err := tls.Listen("tcp", addr, tlsConfig)
	if err != nil {
		logx.Fatal(err, "Failed to bind listener", "addr", addr)
	}

	go acceptLoop(ctx, listener, deps)
	go tokenCleanupLoop(ctx, deps.Sessions)

	logx.Info("Chat server (TLS) started.", "addr", addr)

	<-ctx.Done()
	logx.Info("Received shutdown signal. Closing listener...")

	if err := listener.Close(); err != nil {
		logx.Error(err, "Listener close failed")
	}

	logx.Info("Server stopped.")
}

// buildDeps constructs the stores and core components. Everything is an
// explicit object passed by handle; there is no hidden global state.
func buildDeps(cfg *configs.AppConfig) (*handler.Deps, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	sealer, err := secrets.NewSealer(cfg.TokenSecret)
	if err != nil {
		return nil, fmt.Errorf("init token sealer: %w", err)
	}

	messageStore, err := storage.NewMessageStore(filepath.Join(cfg.DataDir, "messages"))
	if err != nil {
		return nil, err
	}

	sessions, err := token.NewManager(storage.NewTokenStore(filepath.Join(cfg.DataDir, "tokens.dat")), sealer)
	if err != nil {
		return nil, err
	}

	authenticator, err := auth.NewAuthenticator(storage.NewUserStore(filepath.Join(cfg.DataDir, "users.dat")), sessions)
	if err != nil {
		return nil, err
	}

	registry, err := chat.NewRegistry(
		storage.NewRoomStore(filepath.Join(cfg.DataDir, "rooms.dat")),
		messageStore,
		ai.Config{Endpoint: cfg.AIEndpoint, Model: cfg.AIModel, Timeout: cfg.AITimeout},
	)
	if err != nil {
		return nil, err
	}

	return &handler.Deps{
		Auth:     authenticator,
		Sessions: sessions,
		Rooms:    registry,
		Limiter:  limiter.NewKeyed(rate.Limit(cfg.MessageRate), cfg.MessageBurst),
	}, nil
}

// acceptLoop accepts connections until the listener closes, handling each
// one in its own goroutine.
func acceptLoop(ctx context.Context, listener net.Listener, deps *handler.Deps) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			logx.Error(err, "Accept failed")
			continue
		}

		go handler.Handle(deps, conn)
	}
}

// tokenCleanupLoop opportunistically purges expired token records.
func tokenCleanupLoop(ctx context.Context, sessions *token.Manager) {
	ticker := time.NewTicker(tokenCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := sessions.CleanupExpired()
			if err != nil {
				logx.Error(err, "Token cleanup failed")
				continue
			}
			if removed > 0 {
				logx.Info("Expired tokens purged.", "removed", removed)
			}
		}
	}
}
