package cmd

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eventpass/config"
	"eventpass/internal/handlers"
	"eventpass/internal/services"
	"eventpass/models"
	"eventpass/monitoring"
	"eventpass/security"
	"eventpass/utils"

	_ "eventpass/migrations"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

func Start() error {
	app := pocketbase.New()

	// Load configuration
	cfg := config.LoadConfig()

	// Initialize Redis
	redisClient, err := utils.NewRedisClient(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Notification stream
	watermillLogger := watermill.NewStdLogger(false, false)

	publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{
		Client: redisClient,
	}, watermillLogger)
	if err != nil {
		return err
	}

	subscriber, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{
		Client:        redisClient,
		ConsumerGroup: cfg.NotifyConsumerGroup,
	}, watermillLogger)
	if err != nil {
		return err
	}

	// Initialize services
	store := services.NewRecordStore(app)
	realtime := services.NewPubNubRealtime(cfg.PubNubPublishKey, cfg.PubNubSubscribeKey, cfg.PubNubSecretKey, cfg.PubNubUserID)
	mailer := services.NewPocketBaseMailer(app, cfg.MailBreakerThreshold)

	approvalService := services.NewApprovalService(store, services.NewStreamNotifier(publisher), realtime)
	redemptionService := services.NewRedemptionService(store, store, realtime, cfg.ScanTimeout)
	wristbandService := services.NewWristbandService(store)
	ticketService := services.NewTicketService(store)
	accessService := services.NewAccessService(store)
	reminderService := services.NewReminderService(
		store,
		mailer,
		services.NewRedisLocker(redisClient, cfg.ReminderLockTTL),
		services.NewRedisJobStore(redisClient, cfg.ReminderJobTTL),
		cfg.MailSendDelay,
	)

	notificationRouter, err := services.NewNotificationRouter(services.NotificationRouterDeps{
		Logger:     watermillLogger,
		Subscriber: subscriber,
		Mailer:     mailer,
		AppURL:     cfg.AppURL,
	})
	if err != nil {
		return err
	}

	monitor := monitoring.NewMonitor(redisClient, models.TopicTicketApproved, models.TopicTicketRejected)
	limiter := security.NewRateLimiter(redisClient)

	// Initialize handlers
	scanHandler := handlers.NewScanHandler(redemptionService, monitor)
	adminHandler := handlers.NewAdminHandler(app, approvalService, wristbandService, monitor, cfg.AppURL)
	reminderHandler := handlers.NewReminderHandler(reminderService)
	accessHandler := handlers.NewAccessHandler(accessService)
	ticketHandler := handlers.NewTicketHandler(ticketService)
	healthHandler := handlers.NewHealthHandler(redisClient)

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: cfg.Environment == "development",
	})

	app.RootCmd.AddCommand(newRemindersCommand(reminderService))
	app.RootCmd.AddCommand(newScanCommand(cfg))

	registerTicketHooks(app)

	// Setup graceful shutdown
	go handleShutdown(cancel)

	app.OnServe().BindFunc(func(se *core.ServeEvent) error {
		se.Router.BindFunc(handlers.CorrelationID())

		// Health check
		se.Router.GET("/health", healthHandler.Health)

		// Gate scanning
		se.Router.POST("/api/v1/scan", scanHandler.Scan).
			BindFunc(handlers.RequireAdmin(), limiter.Limit("scan", cfg.ScanRateLimit))

		// Participant endpoints
		se.Router.POST("/api/v1/tickets", ticketHandler.Book).BindFunc(handlers.RequireUser())
		se.Router.GET("/api/v1/tickets/mine", ticketHandler.ListMine).BindFunc(handlers.RequireUser())
		se.Router.POST("/api/v1/tickets/{id}/proof", ticketHandler.SubmitProof).BindFunc(handlers.RequireUser())
		se.Router.DELETE("/api/v1/tickets/{id}", ticketHandler.Discard).BindFunc(handlers.RequireUser())

		se.Router.POST("/api/v1/access/verify", accessHandler.Verify).
			BindFunc(limiter.AntiBot(), limiter.Limit("access", cfg.AccessRateLimit))

		// Admin endpoints
		admin := se.Router.Group("/api/v1/admin")
		admin.BindFunc(handlers.RequireAdmin())

		admin.POST("/approvals/approve", adminHandler.Approve)
		admin.POST("/approvals/reject", adminHandler.Reject)
		admin.POST("/bands", adminHandler.IssueBands)
		admin.GET("/tickets/{id}/proof", adminHandler.ProofURL)

		admin.POST("/reminders", reminderHandler.Start)
		admin.GET("/reminders/{jobId}", reminderHandler.Job)

		admin.GET("/access-passwords", accessHandler.List)
		admin.POST("/access-passwords", accessHandler.Create)
		admin.PATCH("/access-passwords/{id}", accessHandler.SetActive)

		log.Println("Server routes registered")

		go runBackground(ctx, cfg, notificationRouter, monitor)

		return se.Next()
	})

	app.OnTerminate().BindFunc(func(e *core.TerminateEvent) error {
		cancel()
		return e.Next()
	})

	// Start server
	return app.Start()
}

// runBackground runs the notification consumer, the stream monitor and the metrics endpoint
// until ctx is cancelled.
func runBackground(ctx context.Context, cfg *config.Config, router *message.Router, monitor *monitoring.Monitor) {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return router.Run(gctx)
	})
	g.Go(func() error {
		return monitor.Run(gctx)
	})

	if cfg.EnableMetrics {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{
			Addr:              ":" + cfg.MetricsPort,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}

		g.Go(func() error {
			log.Printf("Metrics listening on %s", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil {
		log.Printf("Background workers stopped: %v", err)
	}
}

// handleShutdown handles graceful shutdown
func handleShutdown(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
	cancel()
}
