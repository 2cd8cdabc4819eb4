package cmd

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	pubnub "github.com/pubnub/go/v7"

	"tickethive/config"
	"tickethive/internal/auth"
	"tickethive/internal/handlers"
	"tickethive/internal/notify"
	"tickethive/internal/services"
	"tickethive/internal/services/gateway"
	"tickethive/internal/store"
	"tickethive/monitoring"
	"tickethive/security"
	"tickethive/utils"

	_ "tickethive/migrations"
)

// application holds everything built once the database is open.
type application struct {
	store      *store.Store
	auth       *auth.Authenticator
	bookings   *services.BookingService
	payments   *services.PaymentService
	reconciler *services.ReconcileService
	tickets    *services.TicketService
}

func Start() error {
	app := pocketbase.New()

	// Load configuration
	cfg := config.LoadConfig()

	// Initialize Redis
	redisClient, err := utils.NewRedisClient(cfg.RedisURL)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	// Initialize PubNub
	pnConfig := pubnub.NewConfigWithUserId(pubnub.UserId(cfg.PubNubUserID))
	pnConfig.PublishKey = cfg.PubNubPublishKey
	pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
	pnConfig.SecretKey = cfg.PubNubSecretKey
	pn := pubnub.NewPubNub(pnConfig)

	notifiers := notify.Fanout{notify.NewPubNub(notify.PubNubPublisher(pn))}
	if cfg.RabbitMQURL != "" {
		broker, err := notify.NewBroker(cfg.RabbitMQURL, cfg.RabbitMQExchange)
		if err != nil {
			slog.Error("ledger broker unavailable, continuing without it", "error", err)
		} else {
			defer broker.Close()
			notifiers = append(notifiers, notify.NewLedger(broker))
		}
	}

	monitor := monitoring.NewMonitor()

	if cfg.StripeKey == "" {
		log.Println("STRIPE_KEY is not set, checkout calls will fail")
	}
	breaker := utils.NewCircuitBreaker(utils.Settings{
		Name:         "stripe",
		MinRequests:  uint32(cfg.BreakerMinRequests),
		FailureRatio: cfg.BreakerFailureRatio,
		Interval:     cfg.BreakerInterval,
		Timeout:      cfg.BreakerTimeout,
		IsFailure:    gateway.IsFailure,
	})
	bridge := gateway.NewBridge(gateway.NewStripeProvider(cfg.StripeKey), breaker, monitor, gateway.Config{
		Currency:     cfg.CheckoutCurrency,
		ClientDomain: cfg.ClientDomain,
		SessionTTL:   cfg.PaymentTimeout,
	})

	var a application
	app.OnBootstrap().BindFunc(func(e *core.BootstrapEvent) error {
		if err := e.Next(); err != nil {
			return err
		}

		// store writes share pocketbase's single writer connection
		a.store = store.New(app.NonconcurrentDB())
		a.auth = auth.NewAuthenticator(auth.NewRecordVerifier(app), auth.NewRoleStore(app.DB()))
		a.bookings = services.NewBookingService(a.store)
		a.payments = services.NewPaymentService(a.store, bridge, redisClient, monitor)
		a.reconciler = services.NewReconcileService(a.store, bridge, notify.Async{Next: notifiers}, a.payments, monitor)
		a.tickets = services.NewTicketService(a.store, cfg.AdvertiseCap)
		return nil
	})

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: cfg.Environment == "development",
	})
	app.RootCmd.AddCommand(newReconcileCmd(func() *services.ReconcileService { return a.reconciler }))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup graceful shutdown
	go handleShutdown(cancel)

	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		bookingHandler := handlers.NewBookingHandler(a.auth, a.bookings, a.payments)
		paymentHandler := handlers.NewPaymentHandler(a.auth, a.reconciler, a.bookings)
		vendorHandler := handlers.NewVendorHandler(a.auth, a.bookings)
		adminHandler := handlers.NewAdminHandler(a.auth, a.tickets)
		healthHandler := handlers.NewHealthHandler(redisClient)
		limiter := security.NewRateLimiter(redisClient, cfg.ReconcileRateLimit, time.Minute)

		// Booking endpoints
		e.Router.POST("/api/v1/bookings", bookingHandler.CreateBooking)
		e.Router.GET("/api/v1/bookings", bookingHandler.ListBookings)
		e.Router.POST("/api/v1/bookings/{bookingId}/checkout", bookingHandler.StartCheckout)

		// Payment endpoints
		e.Router.POST("/api/v1/payments/reconcile", paymentHandler.Reconcile).
			BindFunc(limiter.Middleware("reconcile", handlers.PrincipalKey(a.auth)))
		e.Router.GET("/api/v1/payments/history", paymentHandler.History)

		// Vendor endpoints
		e.Router.GET("/api/v1/vendor/bookings", vendorHandler.ListBookings)
		e.Router.PATCH("/api/v1/vendor/bookings/{bookingId}", vendorHandler.ModerateBooking)
		e.Router.GET("/api/v1/vendor/revenue", vendorHandler.Revenue)

		// Admin endpoints
		e.Router.PATCH("/api/v1/admin/tickets/{ticketId}/verification", adminHandler.SetVerification)
		e.Router.PATCH("/api/v1/admin/tickets/{ticketId}/advertise", adminHandler.SetAdvertise)
		e.Router.PATCH("/api/v1/admin/tickets/{ticketId}/fraud", adminHandler.SetFraud)

		// Health check
		e.Router.GET("/health", healthHandler.Health)

		log.Println("Server routes registered")

		go monitor.Start(ctx, a.store)
		if cfg.EnableMetrics {
			startMetricsServer(ctx, cfg.MetricsPort)
		}

		return e.Next()
	})

	// Start server
	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
	return nil
}

func startMetricsServer(ctx context.Context, port string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("Metrics listening on :%s/metrics", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server stopped", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
}

// handleShutdown handles graceful shutdown
func handleShutdown(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
	cancel()
}
