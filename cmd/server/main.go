package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/iudanet/docsync/internal/server"
	"github.com/iudanet/docsync/internal/server/storage/sqlite"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// envJWTSecret переменная окружения с секретом подписи токенов
const envJWTSecret = "DOCSYNC_JWT_SECRET"

const shutdownTimeout = 10 * time.Second

type options struct {
	addr      string
	dbPath    string
	jwtSecret string
	logLevel  string
	tokenTTL  time.Duration
	rate      int
	authRate  int
}

func main() {
	var opts options

	// Parse flags
	flag.StringVar(&opts.addr, "addr", ":8080", "HTTP listen address")
	flag.StringVar(&opts.dbPath, "db", "docsync-server.db", "Path to SQLite database")
	flag.StringVar(&opts.jwtSecret, "jwt-secret", "", "JWT signing secret (or "+envJWTSecret+")")
	flag.StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.DurationVar(&opts.tokenTTL, "token-ttl", server.DefaultTokenTTL, "Access token lifetime")
	flag.IntVar(&opts.rate, "rate", 600, "Requests per minute per client IP (0 disables)")
	flag.IntVar(&opts.authRate, "auth-rate", server.DefaultAuthRate, "Login/register attempts per minute per client IP")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	// Show version and exit if requested
	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	if opts.jwtSecret == "" {
		opts.jwtSecret = os.Getenv(envJWTSecret)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(opts.logLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "invalid -log-level: %v\n", err)
		os.Exit(2)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, logger); err != nil {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, logger *slog.Logger) error {
	if opts.jwtSecret == "" {
		return fmt.Errorf("jwt secret is required: pass -jwt-secret or set %s", envJWTSecret)
	}

	store, err := sqlite.New(ctx, opts.dbPath)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("Failed to close storage", "error", err)
		}
	}()

	srv, err := server.New(store, server.Config{
		Version:   Version,
		JWTSecret: []byte(opts.jwtSecret),
		TokenTTL:  opts.tokenTTL,
		Rate:      opts.rate,
		AuthRate:  opts.authRate,
	}, logger)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              opts.addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("docsync server listening", "addr", opts.addr, "db", opts.dbPath, "version", Version)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")

		// websocket-ленты не отслеживаются Shutdown, закрываем их сами
		srv.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func printVersion() {
	fmt.Printf("docsync server\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
