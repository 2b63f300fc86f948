package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"talentBack/internal/booking/pay"
	"talentBack/internal/booking/pricing"
	"talentBack/internal/config"
	"talentBack/internal/handlers"
	"talentBack/internal/push"
	"talentBack/internal/realtime"
	"talentBack/internal/repositories"
	"talentBack/internal/services"
	"talentBack/utils"
)

type application struct {
	logger *slog.Logger
	cfg    config.Config

	db     *repositories.DB
	redis  *redis.Client
	tokens *utils.Manager
	hub    *realtime.Hub

	dispatcher *services.Dispatcher
	settlement *services.SettlementService

	bookingHandler      *handlers.BookingHandler
	paymentHandler      *handlers.PaymentHandler
	webhookHandler      *handlers.WebhookHandler
	notificationHandler *handlers.NotificationHandler
}

func initializeApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*application, error) {
	db, err := repositories.Open(ctx, cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		return nil, err
	}
	if cfg.Database.Migrate {
		if err := db.Migrate(); err != nil {
			db.Close()
			return nil, err
		}
	}

	tokens, err := utils.NewManager(cfg.Auth.JWTSecret)
	if err != nil {
		db.Close()
		return nil, err
	}

	app := &application{logger: logger, cfg: cfg, db: db, tokens: tokens}
	app.hub = realtime.NewHub(logger, handlers.CallerID)

	// Repositories
	bookingRepo := &repositories.BookingRepository{DB: db}
	applicationRepo := &repositories.ApplicationRepository{DB: db}
	paymentRepo := &repositories.PaymentRepository{DB: db}
	profileRepo := &repositories.ProfileRepository{DB: db}
	webhookRepo := &repositories.WebhookRepository{DB: db}
	notificationRepo := &repositories.NotificationRepository{DB: db}

	// Notification sinks
	sinks := []services.Sink{services.StoreSink{Store: notificationRepo}}
	if cfg.Redis.Addr != "" {
		app.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := app.redis.Ping(ctx).Err(); err != nil {
			app.close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		sinks = append(sinks, realtime.NewRedisSink(app.redis, cfg.Redis.Channel))
	}
	if cfg.Firebase.CredentialsFile != "" {
		fcm, err := push.NewMessagingClient(ctx, cfg.Firebase.CredentialsFile)
		if err != nil {
			app.close()
			return nil, err
		}
		sinks = append(sinks, push.NewFCMSink(fcm, notificationRepo, logger))
	}
	app.dispatcher = services.NewDispatcher(services.DispatcherConfig{
		QueueSize: cfg.Notifications.QueueSize,
		Workers:   cfg.Notifications.Workers,
		Attempts:  cfg.Notifications.Attempts,
	}, logger, sinks...)

	// Services
	schedule := pricing.Schedule{
		StandardPercent: cfg.Commission.StandardPercent,
		ProPercent:      cfg.Commission.ProPercent,
	}
	bookingService := services.NewBookingService(bookingRepo, applicationRepo, app.dispatcher, logger)
	invoiceService := services.NewInvoiceService(bookingRepo, applicationRepo, paymentRepo, profileRepo,
		schedule, cfg.Payments.Currency, app.dispatcher, logger)
	app.settlement = services.NewSettlementService(bookingRepo, paymentRepo, app.dispatcher, cfg.Payments.PendingTTL, logger)

	var provider services.CheckoutProvider
	if cfg.Payments.BaseURL != "" && cfg.Payments.APIKey != "" {
		client, err := pay.NewClient(pay.ClientConfig{
			BaseURL:    cfg.Payments.BaseURL,
			APIKey:     cfg.Payments.APIKey,
			SuccessURL: cfg.Payments.SuccessURL,
			CancelURL:  cfg.Payments.CancelURL,
			Logger:     logger,
		})
		if err != nil {
			app.close()
			return nil, err
		}
		provider = client
	} else {
		logger.Warn("payment provider not configured; checkout disabled")
	}
	checkoutService := services.NewCheckoutService(paymentRepo, provider, cfg.Payments.CheckoutTTL, cfg.Payments.PendingTTL, logger)

	var archive services.Archiver
	if cfg.Archive.Bucket != "" {
		s3, err := utils.NewS3Archive(utils.S3Config{
			Endpoint:  cfg.Archive.Endpoint,
			Region:    cfg.Archive.Region,
			Bucket:    cfg.Archive.Bucket,
			AccessKey: cfg.Archive.AccessKey,
			SecretKey: cfg.Archive.SecretKey,
		})
		if err != nil {
			app.close()
			return nil, err
		}
		archive = s3
	}
	webhookService := services.NewWebhookService(cfg.Payments.Provider, cfg.Payments.WebhookSecret,
		cfg.Payments.SignatureTolerance, webhookRepo, app.settlement, profileRepo, archive, app.dispatcher, logger)
	notificationService := services.NewNotificationService(notificationRepo)

	// Handlers
	app.bookingHandler = handlers.NewBookingHandler(bookingService, logger)
	app.paymentHandler = handlers.NewPaymentHandler(invoiceService, checkoutService, logger)
	app.webhookHandler = handlers.NewWebhookHandler(webhookService, logger)
	app.notificationHandler = handlers.NewNotificationHandler(notificationService, logger)

	return app, nil
}

// start launches the background workers that live as long as ctx.
func (app *application) start(ctx context.Context) {
	app.dispatcher.Start()
	if app.redis != nil {
		go func() {
			if err := app.hub.Subscribe(ctx, app.redis, app.cfg.Redis.Channel); err != nil && ctx.Err() == nil {
				app.logger.Error("realtime subscription ended", "err", err)
			}
		}()
	}
}

func (app *application) close() {
	if app.hub != nil {
		app.hub.Close()
	}
	if app.redis != nil {
		_ = app.redis.Close()
	}
	if app.db != nil {
		_ = app.db.Close()
	}
}
