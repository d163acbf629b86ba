package appServer

import (
	"context"
	"crypto/tls"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ds124wfegd/parkingbooker/config"
	"github.com/ds124wfegd/parkingbooker/internal/database"
	"github.com/ds124wfegd/parkingbooker/internal/database/memory"
	repository "github.com/ds124wfegd/parkingbooker/internal/database/postgres"
	venuecache "github.com/ds124wfegd/parkingbooker/internal/database/redis"
	"github.com/ds124wfegd/parkingbooker/internal/monitoring"
	"github.com/ds124wfegd/parkingbooker/internal/service"
	"github.com/ds124wfegd/parkingbooker/internal/transport"
	"github.com/ds124wfegd/parkingbooker/internal/worker"

	"github.com/ds124wfegd/parkingbooker/pkg/kafka"
	"github.com/ds124wfegd/parkingbooker/pkg/postgres"
	"github.com/ds124wfegd/parkingbooker/pkg/qrpass"
	"github.com/ds124wfegd/parkingbooker/pkg/queue"
	"github.com/ds124wfegd/parkingbooker/pkg/rabbitMQ"
	"github.com/ds124wfegd/parkingbooker/pkg/redis"
	"github.com/ds124wfegd/parkingbooker/pkg/scheduler"
	"github.com/ds124wfegd/parkingbooker/pkg/telegram"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
)

type Server struct {
	httpServer *http.Server
}

func (s *Server) Run(cfg *config.Config, handler http.Handler) error {
	s.httpServer = &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           handler,
		MaxHeaderBytes:    1 << 20,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 3 * time.Second,
		TLSConfig:         &tls.Config{MinVersion: tls.VersionTLS12},
		ErrorLog:          log.New(os.Stderr, "SERVER ERROR: ", log.LstdFlags),
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

type repositories struct {
	venues   database.VenueRepository
	accounts database.AccountRepository
	bookings database.BookingRepository
}

// newRepositories открывает выбранное хранилище и заполняет его демо-данными
func newRepositories(ctx context.Context, cfg *config.Config) (*repositories, func(), error) {
	seed := database.DemoSeed()

	switch cfg.Storage.Driver {
	case "", "memory":
		if !cfg.Storage.Seed {
			seed = &database.Seed{}
		}
		store, err := memory.NewStore(seed, service.HashPassword)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to build memory store: %w", err)
		}
		logrus.Info("Using in-memory storage")
		return &repositories{
			venues:   memory.NewVenueRepository(store),
			accounts: memory.NewAccountRepository(store),
			bookings: memory.NewBookingRepository(store),
		}, func() {}, nil

	case "postgres":
		db, err := postgres.NewPostgresDB(ctx, &cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		closeDB := func() {
			if err := db.Close(); err != nil {
				logrus.WithError(err).Error("Failed to close database")
			}
		}

		if err := postgres.RunMigrations(ctx, db); err != nil {
			closeDB()
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		if cfg.Storage.Seed {
			if err := repository.Seed(ctx, db, seed, service.HashPassword); err != nil {
				closeDB()
				return nil, nil, fmt.Errorf("failed to seed database: %w", err)
			}
		}
		return postgresRepositories(db), closeDB, nil
	}

	return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}

func postgresRepositories(db *sql.DB) *repositories {
	return &repositories{
		venues:   repository.NewVenueRepository(db),
		accounts: repository.NewAccountRepository(db),
		bookings: repository.NewBookingRepository(db),
	}
}

// newEventSink подключает брокер для событий бронирования; nil если события выключены
func newEventSink(ctx context.Context, cfg *config.EventsConfig) (queue.Sink, error) {
	switch cfg.Driver {
	case "", "none":
		return nil, nil
	case "kafka":
		producer, err := kafka.NewProducer(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return nil, err
		}
		return producer, nil
	case "rabbitmq":
		rmq, err := rabbitMQ.NewRabbitMQ(rabbitMQ.RabbitMQConfig{
			URL:       cfg.RabbitMQ.URL,
			QueueName: cfg.RabbitMQ.Queue,
		})
		if err != nil {
			return nil, err
		}
		return rmq, nil
	}
	return nil, fmt.Errorf("unknown events driver %q", cfg.Driver)
}

func setupLogging(cfg *config.Config) {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		logrus.WithField("level", cfg.Log.Level).Warn("Unknown log level, using info")
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

func NewServer(cfg *config.Config) {
	setupLogging(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repos, closeRepos, err := newRepositories(ctx, cfg)
	if err != nil {
		logrus.Fatalf("Failed to initialize storage: %v", err)
	}
	defer closeRepos()

	// Redis: кэш площадок и DLQ событий
	var redisClient *goredis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.NewRedisClient(ctx, &cfg.Redis)
		if err != nil {
			logrus.Errorf("Failed to connect to Redis: %v. Continuing without cache...", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
			repos.venues = venuecache.NewVenueCache(repos.venues, redisClient, cfg.Redis.CacheTTL)
			logrus.Info("Venue cache enabled")
		}
	}

	bookingOpts := []service.BookingOption{service.WithQRSize(cfg.QR.Size)}

	sink, err := newEventSink(ctx, &cfg.Events)
	if err != nil {
		logrus.Errorf("Failed to initialize event sink: %v. Continuing without events...", err)
	}
	// DLQ доступен для просмотра, даже если отправка событий выключена
	var dlq queue.DLQHandler
	var deadLetters transport.DeadLetters
	if redisClient != nil {
		redisDLQ := queue.NewRedisDLQHandler(redisClient, cfg.Events.DLQKey)
		dlq, deadLetters = redisDLQ, redisDLQ
	}

	var publisher *queue.RetryingPublisher
	if sink != nil {
		publisher = queue.NewRetryingPublisher(sink, queue.NewRetryManager(cfg.Events.MaxAttempts, cfg.Events.BaseDelay), dlq)
		bookingOpts = append(bookingOpts, service.WithEventPublisher(service.NewQueueAdapter(publisher)))
		logrus.WithField("driver", cfg.Events.Driver).Info("Booking events enabled")
	}

	// Initialize Telegram bot
	if cfg.Telegram.Enabled && cfg.Telegram.BotToken != "" {
		bot := telegram.NewBot(cfg.Telegram.BotToken)
		bookingOpts = append(bookingOpts, service.WithAlerter(telegram.NewAlerter(bot, cfg.Telegram.ChatID)))
		logrus.Info("Telegram alerts enabled")
	} else {
		logrus.Warn("Telegram bot token not provided, alerts disabled")
	}

	// Initialize services
	codec := qrpass.NewCodec(cfg.QR.Secret)
	accountService := service.NewAccountService(repos.accounts, cfg.JWT.Secret, cfg.JWT.Expiration)
	venueService := service.NewVenueService(repos.venues, repos.bookings)
	bookingService := service.NewBookingService(repos.bookings, repos.venues, repos.accounts, codec, bookingOpts...)

	// Background jobs
	monitor := monitoring.NewMonitor(repos.venues)
	if err := monitor.Collect(ctx); err != nil {
		logrus.WithError(err).Warn("Initial metrics collection failed")
	}
	var background sync.WaitGroup
	background.Add(1)
	go func() {
		defer background.Done()
		scheduler.NewScheduler("venue_metrics", time.Minute, monitor.Collect).Start(ctx)
	}()

	var workerStats transport.WorkerStats
	if cfg.Worker.Enabled {
		cleanupWorker := worker.NewBookingCleanupWorker(bookingService, cfg.Worker.CleanupInterval)
		workerStats = cleanupWorker
		background.Add(1)
		go func() {
			defer background.Done()
			cleanupWorker.Start(ctx)
		}()
	}

	// Setup HTTP server
	if cfg.IsProduction() || cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := transport.InitRoutes(
		transport.NewAuthHandler(accountService),
		transport.NewVenueHandler(venueService),
		transport.NewBookingHandler(bookingService),
		transport.NewAdminHandler(deadLetters, workerStats),
		transport.RouterOptions{
			Context:   ctx,
			Tokens:    accountService,
			RateLimit: cfg.RateLimit.RPS,
			Burst:     cfg.RateLimit.Burst,
			Timeout:   cfg.Server.Timeout,
		},
	)

	handler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler(router)

	srv := new(Server)
	go func() {
		if err := srv.Run(cfg, handler); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("error occured while running http server: %s", err.Error())
		}
	}()

	logrus.WithFields(logrus.Fields{
		"address": cfg.GetServerAddress(),
		"version": cfg.Server.AppVersion,
		"storage": cfg.Storage.Driver,
	}).Print("App Started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	logrus.Print("App Shutting Down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("error occured on server shutting down: %s", err.Error())
	}

	// воркер может еще закрывать брони: дожидаемся его до закрытия очереди событий
	cancel()
	background.Wait()
	bookingService.Close()

	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logrus.Errorf("error occured on closing event sink: %s", err.Error())
		}
	}
}
