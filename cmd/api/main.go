package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	fbapp "firebase.google.com/go/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"vendorchat/internal/adapter/api"
	"vendorchat/internal/adapter/api/handler"
	apimiddleware "vendorchat/internal/adapter/api/middleware"
	"vendorchat/internal/adapter/api/router"
	"vendorchat/internal/adapter/repository"
	domainrepo "vendorchat/internal/domain/repository"
	"vendorchat/internal/infrastructure/database"
	"vendorchat/internal/infrastructure/firebase"
	"vendorchat/internal/infrastructure/jwtauth"
	"vendorchat/internal/infrastructure/pubsub"
	"vendorchat/internal/infrastructure/ratelimit"
	"vendorchat/internal/infrastructure/websocket"
	"vendorchat/internal/usecase"
	"vendorchat/pkg/config"
	"vendorchat/pkg/logger"
	"vendorchat/pkg/response"
)

type stores struct {
	threads  domainrepo.ThreadRepository
	messages domainrepo.MessageRepository
	ledger   domainrepo.UnreadLedger
	bookings domainrepo.BookingRepository
	users    domainrepo.UserRepository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger.Configure(cfg.Environment)
	response.SetExposeDetails(cfg.IsDevelopment())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checks := map[string]handler.Check{}

	var firebaseApp *fbapp.App
	if cfg.StoreDriver == config.StoreDriverFirestore || cfg.AuthProvider == config.AuthProviderFirebase {
		firebaseApp, err = newFirebaseApp(ctx, cfg)
		if err != nil {
			log.Fatalf("Failed to initialize Firebase: %v", err)
		}
	}

	var st stores
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		connectCtx, cancel := context.WithTimeout(ctx, cfg.DBTimeout)
		pool, err := database.Connect(connectCtx, cfg.DatabaseURL, cfg.DBMaxConns)
		cancel()
		if err != nil {
			log.Fatalf("Failed to connect to Postgres: %v", err)
		}
		defer pool.Close()

		if cfg.EnsureSchema {
			if err := repository.EnsureSchema(ctx, pool); err != nil {
				log.Fatalf("Failed to apply schema: %v", err)
			}
		}
		checks["postgres"] = pool.Ping
		st = stores{
			threads:  repository.NewPostgresThreadRepository(pool),
			messages: repository.NewPostgresMessageRepository(pool),
			ledger:   repository.NewPostgresUnreadLedger(pool),
			bookings: repository.NewPostgresBookingRepository(pool),
			users:    repository.NewPostgresUserRepository(pool),
		}

	case config.StoreDriverFirestore:
		client, err := firebaseApp.Firestore(ctx)
		if err != nil {
			log.Fatalf("Failed to initialize Firestore: %v", err)
		}
		defer client.Close()

		checks["firestore"] = func(ctx context.Context) error {
			_, err := client.Collections(ctx).Next()
			if err != nil && !errors.Is(err, iterator.Done) {
				return err
			}
			return nil
		}
		st = firestoreStores(client)

	case config.StoreDriverMemory:
		logger.Warn("Using the in-memory store; data is lost on restart")
		db := repository.NewMemoryDatabase()
		st = stores{
			threads:  repository.NewMemoryThreadRepository(db),
			messages: repository.NewMemoryMessageRepository(db),
			ledger:   repository.NewMemoryUnreadLedger(db),
			bookings: repository.NewMemoryBookingRepository(db),
			users:    repository.NewMemoryUserRepository(db),
		}
	}

	var verifier usecase.TokenVerifier
	var issuer handler.TokenIssuer
	switch cfg.AuthProvider {
	case config.AuthProviderFirebase:
		authClient, err := firebaseApp.Auth(ctx)
		if err != nil {
			log.Fatalf("Failed to initialize Firebase Auth: %v", err)
		}
		fb := firebase.NewFirebaseAuthClient(authClient)
		verifier, issuer = fb, fb
	default:
		authenticator, err := jwtauth.New(cfg.JWTSecret, time.Duration(cfg.JWTExpiry)*time.Second)
		if err != nil {
			log.Fatalf("Failed to initialize JWT auth: %v", err)
		}
		verifier, issuer = authenticator, authenticator
	}

	limiter := ratelimit.NewRateLimiter(
		ratelimit.Policy{PerMinute: 300, Burst: 60},
		map[string]ratelimit.Policy{
			"send_message": {PerMinute: cfg.MessageRatePerMinute, Burst: cfg.MessageRateBurst},
			"typing":       {PerMinute: 60, Burst: 10},
		},
	)
	limiter.StartCleanupRoutine(ctx, 30*time.Minute)

	wsManager := websocket.NewManager()
	wsManager.Start(ctx)

	var publisher usecase.Publisher = wsManager
	if cfg.RedisURL != "" {
		redisClient, err := pubsub.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()

		redisPublisher := pubsub.NewRedisPublisher(redisClient, cfg.RedisChannel, websocket.EncodeEvent)
		if err := redisPublisher.Relay(ctx, wsManager); err != nil {
			log.Fatalf("Failed to subscribe to Redis: %v", err)
		}
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
		publisher = redisPublisher
		logger.Info("Fanning out events through Redis channel %s", cfg.RedisChannel)
	}

	threadUseCase := usecase.NewThreadUseCase(st.threads, st.bookings, st.users)
	chatUseCase := usecase.NewChatUseCase(st.threads, st.messages, st.ledger, st.users, publisher, limiter)
	quoteUseCase := usecase.NewQuoteUseCase(st.threads, st.bookings, publisher)
	wsManager.Attach(threadUseCase, chatUseCase, limiter)

	handler.Setup(threadUseCase, chatUseCase, quoteUseCase, wsManager, cfg.PollInterval)
	handler.SetupHealthHandler(checks)
	handler.SetupDevTokenHandler(issuer)

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = response.HTTPErrorHandler

	router.Setup(e, apimiddleware.NewAuthMiddleware(verifier), limiter, cfg.Environment)

	go func() {
		logger.Info("Starting server on port %s (store=%s, auth=%s)", cfg.ServerPort, cfg.StoreDriver, cfg.AuthProvider)
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server stopped: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown: %v", err)
	}
}

func newFirebaseApp(ctx context.Context, cfg *config.Config) (*fbapp.App, error) {
	var opts []option.ClientOption
	switch {
	case cfg.FirebaseServiceAccountJSON != "":
		logger.Info("Using Firebase service account from environment variable")
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.FirebaseServiceAccountJSON)))
	case cfg.FirebaseServiceAccountPath != "":
		logger.Info("Using Firebase service account from file: %s", cfg.FirebaseServiceAccountPath)
		opts = append(opts, option.WithCredentialsFile(cfg.FirebaseServiceAccountPath))
	default:
		logger.Info("Using application default credentials for Firebase")
	}
	return fbapp.NewApp(ctx, &fbapp.Config{ProjectID: cfg.FirebaseProject}, opts...)
}

func firestoreStores(client *firestore.Client) stores {
	return stores{
		threads:  repository.NewFirestoreThreadRepository(client),
		messages: repository.NewFirestoreMessageRepository(client),
		ledger:   repository.NewFirestoreUnreadLedger(client),
		bookings: repository.NewFirestoreBookingRepository(client),
		users:    repository.NewFirestoreUserRepository(client),
	}
}
