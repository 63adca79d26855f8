package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chefbook/chefbook/internal/adapter/logger"
	"github.com/chefbook/chefbook/internal/adapter/postgres"
	"github.com/chefbook/chefbook/internal/adapter/rabbitmq"
	"github.com/chefbook/chefbook/internal/app/booking"
	"github.com/chefbook/chefbook/internal/app/notifier"
	"github.com/chefbook/chefbook/internal/app/sweeper"
	"github.com/chefbook/chefbook/internal/config"
	"github.com/chefbook/chefbook/internal/domain"
	"github.com/chefbook/chefbook/internal/interfaces"

	amqpAdapter "github.com/chefbook/chefbook/internal/adapter/amqp"
	httpAdapter "github.com/chefbook/chefbook/internal/adapter/http"
)

func main() {
	mode := flag.String("mode", "", "Service mode: booking-service, sweeper, notification-subscriber")
	configPath := flag.String("config", "config.yaml", "Path to config file")
	port := flag.Int("port", 0, "HTTP port (overrides config)")
	chefID := flag.String("chef-id", "", "Chef id to watch (for notification-subscriber)")
	userID := flag.String("user-id", "", "User id to watch (for notification-subscriber)")
	flag.Parse()

	if *mode == "" {
		log.Fatal("--mode flag is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *port == 0 {
		*port = cfg.Server.Port
	}

	ctx := context.Background()

	lgr := logger.New(*mode, cfg.Log.Level)

	db, err := postgres.Connect(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer db.Close()

	lgr.Info("db_connected", "Connected to PostgreSQL database", "startup", map[string]interface{}{
		"host": cfg.Database.Host,
		"db":   cfg.Database.Database,
	})

	mqConn, err := rabbitmq.Connect(cfg.RabbitMQ)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	defer mqConn.Close()

	lgr.Info("rabbitmq_connected", "Connected to RabbitMQ", "startup", map[string]interface{}{
		"host": cfg.RabbitMQ.Host,
	})

	switch *mode {
	case "booking-service":
		runBookingService(db, mqConn, lgr, *port)

	case "sweeper":
		runSweeper(db, mqConn, lgr, cfg.Sweeper)

	case "notification-subscriber":
		runNotificationSubscriber(ctx, db, mqConn, lgr, *chefID, *userID)

	default:
		log.Fatalf("Invalid mode: %s", *mode)
	}
}

func runBookingService(db postgres.DB, mqConn rabbitmq.Connection, lgr logger.Logger, port int) {
	orderRepo := postgres.NewOrderRepository(db)
	chefRepo := postgres.NewChefRepository(db)
	serviceRepo := postgres.NewServiceRepository(db)

	publisher := rabbitmq.NewPublisher(mqConn)

	bookingService := booking.NewService(orderRepo, chefRepo, serviceRepo, publisher, lgr)

	bookingHandler := httpAdapter.NewBookingHandler(bookingService, lgr)
	chefHandler := httpAdapter.NewChefHandler(chefRepo, serviceRepo, lgr)
	adminHandler := httpAdapter.NewAdminHandler(bookingService, lgr)

	mux := http.NewServeMux()
	mux.HandleFunc("/orders", bookingHandler.Orders)
	mux.HandleFunc("/orders/", bookingHandler.OrderSubroutes)
	mux.HandleFunc("/chefs", chefHandler.RegisterChef)
	mux.HandleFunc("/chefs/", chefHandler.ChefSubroutes)
	mux.HandleFunc("/services/", chefHandler.ServiceSubroutes)
	mux.HandleFunc("/admin/orders", adminHandler.ListOrders)

	// Logging wraps recovery so panics are still logged with the
	// request id and show up as 500s in the request log.
	handler := httpAdapter.RecoveryMiddleware(lgr)(mux)
	handler = httpAdapter.LoggingMiddleware(lgr)(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	lgr.Info("service_started", fmt.Sprintf("Booking Service started on port %d", port), "startup", map[string]interface{}{
		"port": port,
	})

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		lgr.Info("shutdown_initiated", "Shutting down Booking Service", "shutdown", nil)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			lgr.Error("shutdown_error", "Error during shutdown", "shutdown", nil, err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		lgr.Error("server_error", "Server error", "runtime", nil, err)
	}
}

func runSweeper(db postgres.DB, mqConn rabbitmq.Connection, lgr logger.Logger, cfg config.SweeperConfig) {
	orderRepo := postgres.NewOrderRepository(db)
	chefRepo := postgres.NewChefRepository(db)

	publisher := rabbitmq.NewPublisher(mqConn)

	sweepService := sweeper.NewService(
		orderRepo,
		chefRepo,
		publisher,
		lgr,
		time.Duration(cfg.IntervalSeconds)*time.Second,
		cfg.RetentionDays,
	)

	runCtx, cancel := context.WithCancel(context.Background())

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		lgr.Info("shutdown_initiated", "Shutting down Sweeper", "shutdown", nil)
		cancel()
	}()

	lgr.Info("service_started", "Sweeper started", "startup", map[string]interface{}{
		"interval_seconds": cfg.IntervalSeconds,
		"retention_days":   cfg.RetentionDays,
	})

	sweepService.Run(runCtx)
}

func runNotificationSubscriber(ctx context.Context, db postgres.DB, mqConn rabbitmq.Connection, lgr logger.Logger, chefID, userID string) {
	orderRepo := postgres.NewOrderRepository(db)

	hub := notifier.NewHub(orderRepo, lgr)
	consumer := rabbitmq.NewConsumer(mqConn, lgr)
	eventHandler := amqpAdapter.NewOrderEventHandler(hub, lgr)

	consumeCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		if err := consumer.ConsumeOrderEvents(consumeCtx, eventHandler.HandleEvent); err != nil {
			lgr.Error("consumer_error", "Error consuming order events", "runtime", nil, err)
		}
	}()

	var disposers []interfaces.Subscription
	if chefID != "" {
		disposers = append(disposers, hub.SubscribeChefOrders(chefID, printSnapshot("chef "+chefID)))
	}
	if userID != "" {
		disposers = append(disposers, hub.SubscribeUserOrders(userID, printSnapshot("user "+userID)))
	}

	lgr.Info("service_started", "Notification Subscriber started", "startup", map[string]interface{}{
		"chef_id": chefID,
		"user_id": userID,
	})

	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
	<-sigint

	lgr.Info("shutdown_initiated", "Shutting down Notification Subscriber", "shutdown", nil)

	for _, dispose := range disposers {
		dispose()
	}
}

func printSnapshot(label string) func([]*domain.Order) {
	return func(orders []*domain.Order) {
		fmt.Printf("=== Orders for %s (%d) ===\n", label, len(orders))
		for _, o := range orders {
			fmt.Printf("  %s  %s  %s %s  %s\n",
				o.ID, o.Status, o.ScheduledDate.Format("2006-01-02"), o.TimeSlot, o.ServiceName)
		}
	}
}
