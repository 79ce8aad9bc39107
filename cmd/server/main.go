package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"kanri/backend/internal/cache"
	"kanri/backend/internal/config"
	"kanri/backend/internal/handlers"
	"kanri/backend/internal/logger"
	"kanri/backend/internal/middleware"
	"kanri/backend/internal/monitoring"
	"kanri/backend/internal/repositories"
	"kanri/backend/internal/services"
	"kanri/backend/internal/worker"
)

func main() {
	godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	log := logger.NewLogger(cfg.Server.Environment)
	defer log.Sync()

	db, err := repositories.Connect(cfg, log)
	if err != nil {
		log.Fatal("database unavailable", zap.Error(err))
	}

	redisCache := cache.NewRedisCache(&cache.CacheConfig{
		Addr:         cfg.GetRedisAddr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		MaxRetries:   cfg.Redis.MaxRetries,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	appCache := cache.NewMultiLevelCache(redisCache)
	defer appCache.Close()

	warmerCtx, stopWarmer := context.WithCancel(context.Background())
	defer stopWarmer()
	warmer := cache.NewCacheWarmer(appCache, 30*time.Second)
	warmer.Start(warmerCtx)

	tokenService := services.NewJWTTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	authService := services.NewAuthService(cfg.Auth.BCryptCost)
	taskService := services.NewCachedTaskService(
		services.NewTaskService(),
		services.NewStatsService(),
		appCache,
		warmer,
	)

	var reminders handlers.ReminderScheduler
	var jobWorker *worker.Worker
	if cfg.Worker.Enabled {
		queueClient := redis.NewClient(&redis.Options{
			Addr:     cfg.GetRedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		reminders = worker.NewReminderScheduler(worker.NewJobQueue(queueClient))

		jobWorker = worker.NewWorker(worker.WorkerConfig{
			RedisClient:  queueClient,
			Logger:       log,
			PollInterval: cfg.Worker.PollInterval,
			Queues:       cfg.Worker.Queues,
		})
		jobWorker.RegisterHandler(worker.JobTypeTaskReminder, worker.ReminderHandler(log))
		jobWorker.Start(cfg.Worker.Concurrency)
	}

	health := monitoring.NewHealthChecker()
	health.Register("database", func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	})
	health.Register("cache", func(ctx context.Context) error {
		return appCache.Health()
	})

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(cfg.RateLimit)
	}

	router := handlers.NewRouter(handlers.RouterConfig{
		DB:           db,
		Config:       cfg,
		Logger:       log,
		TaskService:  taskService,
		StatsService: taskService,
		AuthService:  authService,
		TokenService: tokenService,
		Warmer:       taskService,
		Reminders:    reminders,
		Health:       health,
		RateLimiter:  limiter,
	})

	srv := &http.Server{
		Addr:         cfg.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("forced shutdown", zap.Error(err))
	}

	if jobWorker != nil {
		jobWorker.Stop()
	}
	warmer.Stop()
	closeDatabase(db, log)

	log.Info("server stopped")
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Error("failed to get underlying sql.DB", zap.Error(err))
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Error("failed to close database", zap.Error(err))
	}
}
