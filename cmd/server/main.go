package main

import (
	"context"
	"log"
	"os"
	"path/filepath"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/sandpiper/backend/api/handler"
	"github.com/sandpiper/backend/internal/config"
	"github.com/sandpiper/backend/internal/infrastructure/buffer"
	"github.com/sandpiper/backend/internal/infrastructure/mailjet"
	"github.com/sandpiper/backend/internal/infrastructure/monitor"
	pgInfra "github.com/sandpiper/backend/internal/infrastructure/postgres"
	redisInfra "github.com/sandpiper/backend/internal/infrastructure/redis"
	"github.com/sandpiper/backend/internal/middleware"
	"github.com/sandpiper/backend/internal/router"
	"github.com/sandpiper/backend/internal/services"
	"github.com/sandpiper/backend/internal/services/lifecycle"
	"github.com/sandpiper/backend/pkg/httpcontext"
	"github.com/sandpiper/backend/pkg/logger"
	"github.com/sandpiper/backend/repository/postgres"
	redisRepo "github.com/sandpiper/backend/repository/redis"
	"github.com/sandpiper/backend/usecase"
	authUC "github.com/sandpiper/backend/usecase/auth"
	profileUC "github.com/sandpiper/backend/usecase/profile"
	todoUC "github.com/sandpiper/backend/usecase/todo"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	appCtx, cancel := lifecycle.SignalContext(context.Background())
	defer cancel()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)

	if err := pgInfra.RunMigrations(cfg, zapLogger); err != nil {
		zapLogger.Fatal("migrations failed", zap.Error(err))
	}

	pool, err := pgInfra.NewPool(appCtx, cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("postgres connection failed", zap.Error(err))
	}
	manager.Register("postgres", func(ctx context.Context) error {
		pgInfra.Close(pool, zapLogger)
		return nil
	})

	redisClient, err := redisInfra.NewClient(appCtx, cfg.Redis, zapLogger)
	if err != nil {
		zapLogger.Fatal("redis connection failed", zap.Error(err))
	}
	manager.Register("redis", func(ctx context.Context) error {
		return redisClient.Close()
	})

	if err := os.MkdirAll(filepath.Dir(cfg.Mail.OutboxPath), 0o755); err != nil {
		zapLogger.Fatal("failed to create outbox directory", zap.Error(err))
	}
	outboxStore, err := buffer.Open(cfg.Mail.OutboxPath, buffer.DefaultBucket)
	if err != nil {
		zapLogger.Fatal("failed to open mail outbox", zap.Error(err))
	}
	manager.Register("mail_outbox", func(ctx context.Context) error {
		return outboxStore.Close()
	})

	mon := monitor.New(pool, monitor.RedisPinger{Client: redisClient}, outboxStore, cfg.Monitor.Interval, zapLogger)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	mailClient := mailjet.NewClient(cfg.Mail, nil, zapLogger)
	outboxProcessor := services.NewOutboxProcessor(
		outboxStore,
		mailClient,
		zapLogger,
		services.ProcessorConfig{
			Interval:   cfg.Mail.RetryInterval,
			BatchSize:  50,
			MaxRetries: cfg.Mail.MaxRetry,
		},
	)

	var mailer usecase.Mailer
	if mailClient.Configured() {
		outboxProcessor.Start()
		manager.Register("outbox_processor", func(ctx context.Context) error {
			outboxProcessor.Stop(ctx)
			return nil
		})
		mailer = services.NewOutboxBridge(outboxProcessor, mailClient)
	} else {
		zapLogger.Warn("mailjet credentials missing, transactional mail disabled")
	}

	todoRepo := postgres.NewTodoRepository(pool, zapLogger)
	personRepo := postgres.NewPersonRepository(pool)
	emailRepo := postgres.NewEmailRepository(pool)

	authUseCase := authUC.New(authUC.Deps{
		Persons:      personRepo,
		Emails:       emailRepo,
		LoginMethods: postgres.NewLoginMethodRepository(pool),
		Registrar:    postgres.NewRegistrar(pool),
		Sessions:     redisRepo.NewSessionRepository(redisClient, cfg.JWT.SessionTTL),
		Tokens:       redisRepo.NewTokenRepository(redisClient),
		Mailer:       mailer,
	}, authUC.Config{
		Secret:       cfg.JWT.Secret,
		Issuer:       cfg.JWT.Issuer,
		TokenTTL:     cfg.JWT.TokenTTL,
		SessionTTL:   cfg.JWT.SessionTTL,
		MailTokenTTL: cfg.Mail.TokenTTL,
		FrontendURL:  cfg.Frontend.BaseURL,
	}, zapLogger)
	profileUseCase := profileUC.New(personRepo, emailRepo, zapLogger)
	todoUseCase := todoUC.New(todoRepo, zapLogger)

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Auth:        apiHandler.NewAuthHandler(authUseCase, ctxAdapter, zapLogger),
		Person:      apiHandler.NewPersonHandler(profileUseCase, ctxAdapter, zapLogger),
		Todo:        apiHandler.NewTodoHandler(todoUseCase, ctxAdapter, zapLogger),
		Health:      apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
		Diagnostics: apiHandler.NewDiagnosticsHandler(cfg.Environment, cfg.IsProduction(), authUseCase, postgres.NewDebugRepository(pool), ctxAdapter, zapLogger),
	}

	authMiddleware := middleware.Auth(authUseCase, cfg.Context.RequestTimeout, zapLogger)
	r := router.New(handlers, authMiddleware)

	server := &fasthttp.Server{
		Handler:      router.Chain(r.Handler, middleware.AccessLog(zapLogger)),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Concurrency:  cfg.HTTP.MaxConn,
		Name:         cfg.AppName,
	}

	go func() {
		zapLogger.Info("server started", zap.String("address", cfg.Address()), zap.String("environment", cfg.Environment))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Fatal("server crashed", zap.Error(err))
		}
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.ShutdownWithContext(ctx)
	})

	<-appCtx.Done()
	zapLogger.Info("shutdown signal received")

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}
