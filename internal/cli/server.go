package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"study-vault/internal/app"
	"study-vault/internal/auth"
	"study-vault/internal/config"
	"study-vault/internal/infra/b2"
	"study-vault/internal/infra/memory"
	"study-vault/internal/infra/postgres"
	redisinfra "study-vault/internal/infra/redis"
	transport "study-vault/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the HTTP and websocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// records is the record store plus the loader the quiz cache reads through.
type records struct {
	store  app.Store
	loader memory.QuizLoader
	close  func()
}

// openRecords uses Postgres when configured and the in-memory store otherwise.
func openRecords(ctx context.Context, cfg config.Config) (records, error) {
	if cfg.Postgres.URL == "" {
		store := memory.NewStore()
		return records{store: store, loader: app.NewStoreQuizLoader(store), close: func() {}}, nil
	}
	db := openBun(cfg.Postgres.URL)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return records{}, err
	}
	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		db.Close()
		return records{}, err
	}
	return records{
		store:  postgres.NewStore(db),
		loader: postgres.NewQuizLoader(pool),
		close: func() {
			pool.Close()
			db.Close()
		},
	}, nil
}

func openBlobs(ctx context.Context, cfg config.Config) (app.BlobStore, error) {
	if !cfg.B2Enabled() {
		log.Printf("b2 not configured, keeping documents in memory")
		return memory.NewBlobStore(cfg.Blob.B2.BaseURL), nil
	}
	b := cfg.Blob.B2
	return b2.Open(ctx, b.AccountID, b.AppKey, b.Bucket, b.BaseURL)
}

func newTokenIssuer(cfg config.Config) *auth.TokenIssuer {
	secret := cfg.Auth.JWTSecret
	if secret == "" {
		log.Printf("auth.jwt_secret not set, using a random secret; tokens will not survive a restart")
		secret = uuid.NewString()
	}
	return auth.NewTokenIssuer(secret, config.TTLDuration(cfg.Auth.TokenTTL, 72*time.Hour))
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	recs, err := openRecords(ctx, cfg)
	if err != nil {
		return err
	}
	defer recs.close()

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	if redisClient != nil {
		quizRepo = redisinfra.NewQuizRepository(redisClient, recs.loader, quizTTL)
	} else {
		quizRepo = memory.NewQuizRepository(recs.loader, quizTTL)
	}

	hub := app.NewHub()
	var publisher app.Publisher = hub
	if redisClient != nil {
		broadcaster := redisinfra.NewBroadcaster(redisClient, cfg.Redis.Channel, hub)
		if err := broadcaster.Start(ctx); err != nil {
			return err
		}
		publisher = broadcaster
	}

	blobs, err := openBlobs(ctx, cfg)
	if err != nil {
		return err
	}

	notifications := app.NewNotificationService(recs.store, publisher)
	handler := transport.NewRouter(transport.Services{
		Users:          app.NewUserService(recs.store, auth.NewBcryptHasher(cfg.Auth.BcryptCost), blobs),
		Resources:      app.NewResourceService(recs.store, blobs, cfg.Upload.MaxBytes),
		Quizzes:        app.NewQuizService(recs.store, quizRepo),
		Approvals:      app.NewApprovalService(recs.store, notifications, blobs),
		Favorites:      app.NewFavoritesService(recs.store),
		Notifications:  notifications,
		Subjects:       app.NewSubjectService(recs.store),
		Hub:            hub,
		Tokens:         newTokenIssuer(cfg),
		MaxUploadBytes: cfg.Upload.MaxBytes,
	})

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting study vault on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	return server.Shutdown(shutdownCtx)
}
