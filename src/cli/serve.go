package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BookHut/BookHut-Backend/src/auth"
	"github.com/BookHut/BookHut-Backend/src/config"
	"github.com/BookHut/BookHut-Backend/src/db"
	"github.com/BookHut/BookHut-Backend/src/routes"
	"github.com/BookHut/BookHut-Backend/src/services"
	"github.com/BookHut/BookHut-Backend/src/session"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

// NewServeCommand creates the serve command.
func NewServeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

func runServe(ctx context.Context, opts *RootOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, gdb, err := openDatabase(opts)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(gdb); err != nil {
			log.Printf("Error closing database: %v\n", err)
		}
	}()

	for _, warning := range cfg.Warnings() {
		log.Printf("WARNING: %s\n", warning)
	}

	verifier, err := auth.NewTokenVerifier(cfg.SecretAccessToken)
	if err != nil {
		return err
	}

	revoker, closeRevoker, err := newRevoker(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRevoker()

	bookService := services.NewBookService(gdb, services.WithReadCache(cfg.ReadCache))
	defer bookService.Close()
	loanService := services.NewLoanService(gdb, bookService,
		services.WithOwnerCheckOnReturn(cfg.ReturnRequiresOwner))

	router := routes.NewRouter(routes.Dependencies{
		Config:          cfg,
		Verifier:        verifier,
		Revoker:         revoker,
		BookService:     bookService,
		LoanService:     loanService,
		UserCardService: services.NewUserCardService(gdb),
	})

	srv := &http.Server{
		Addr:              cfg.ServerHost,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server is running on %s\n", cfg.ServerHost)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("starting server on %s: %w", cfg.ServerHost, err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	log.Println("Server stopped")
	return nil
}

// newRevoker connects to Redis when REDIS_ADDR is set. Without it tokens
// cannot be revoked and logout only clears the cookie.
func newRevoker(ctx context.Context, cfg *config.Config) (session.Revoker, func(), error) {
	if cfg.RedisAddr == "" {
		log.Println("REDIS_ADDR not set, logout will not revoke tokens")
		return session.NopRevoker{}, func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("connecting to redis at %s: %w", cfg.RedisAddr, err)
	}
	log.Printf("Revocation store connected at %s\n", cfg.RedisAddr)

	closeFn := func() {
		if err := client.Close(); err != nil {
			log.Printf("Error closing redis: %v\n", err)
		}
	}
	return session.NewRedisRevoker(client), closeFn, nil
}
