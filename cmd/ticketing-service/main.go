package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"event-ticketing/internal/analytics"
	analytics_api "event-ticketing/internal/analytics/api"
	"event-ticketing/internal/auth"
	"event-ticketing/internal/checkin"
	"event-ticketing/internal/checkin/checkin_api"
	checkindb "event-ticketing/internal/checkin/db"
	"event-ticketing/internal/config"
	"event-ticketing/internal/database"
	"event-ticketing/internal/database/migrations"
	"event-ticketing/internal/eventstore"
	"event-ticketing/internal/kafka"
	"event-ticketing/internal/logger"
	"event-ticketing/internal/metrics"
	"event-ticketing/internal/notify"
	"event-ticketing/internal/order"
	orderdb "event-ticketing/internal/order/db"
	"event-ticketing/internal/order/order_api"
	orderredis "event-ticketing/internal/order/redis"
	"event-ticketing/internal/sse"
	classdb "event-ticketing/internal/ticketclass/db"
	ticketclass "event-ticketing/internal/ticketclass/service"
	"event-ticketing/internal/ticketclass/ticketclass_api"
	"event-ticketing/internal/utils"
	"event-ticketing/internal/worker"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()
	log := logger.NewLogger()
	log.SetLevel(logger.ParseLevel(cfg.LogLevel))
	defer log.Close()
	log.Info("STARTUP", "Starting ticketing service")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// --- PostgreSQL ---
	bunDB, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}
	defer bunDB.Close()

	if cfg.Database.RunMigrations {
		// The runner shares bunDB's pool, so it is never closed here.
		if err := migrations.NewRunner(bunDB, log).MigrateUp(); err != nil {
			log.Fatal("MIGRATE", err.Error())
		}
	}

	// --- Redis class lock ---
	var classLock order.ClassLock
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatal("REDIS", fmt.Sprintf("Failed to connect to Redis: %v", err))
		}
		log.Info("REDIS", "Redis connection successful")
		classLock = orderredis.NewClassLock(redisClient, cfg.Redis.LockTTL, cfg.Redis.LockWait, log)
	} else {
		log.Warn("REDIS", "Class lock disabled, relying on database row locks only")
	}

	// --- Notifications ---
	var sinks []notify.Sink
	if cfg.Kafka.Enabled {
		topics := []string{cfg.Kafka.Topics.OrderEvents, cfg.Kafka.Topics.PaymentsSettled, cfg.Kafka.Topics.EventsUpserted}
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, topics, log); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Could not ensure topics: %v", err))
		}
		producer := kafka.NewProducer(cfg.Kafka.Brokers, log)
		defer producer.Close()
		sinks = append(sinks, &notify.KafkaSink{Producer: producer, Topic: cfg.Kafka.Topics.OrderEvents})
	}
	if cfg.RabbitMQ.Enabled {
		amqpSink, err := notify.DialAMQP(cfg.RabbitMQ, log)
		if err != nil {
			log.Error("RABBITMQ", fmt.Sprintf("Notifications over RabbitMQ disabled: %v", err))
		} else {
			defer amqpSink.Close()
			sinks = append(sinks, amqpSink)
		}
	}
	broker := sse.NewBroker()
	sinks = append(sinks, broker)
	dispatcher := notify.NewDispatcher(cfg.Notify, log, sinks...)
	dispatcher.Start()

	// --- Services ---
	events := eventstore.New(bunDB)
	figures := analytics.NewDB(bunDB)
	classes := &classdb.DB{Bun: bunDB}
	orders := &orderdb.DB{Bun: bunDB}

	classService := ticketclass.NewTicketClassService(classes, events, figures, dispatcher, log)
	orderService := order.NewOrderService(orders, classLock, events, dispatcher, cfg.Reservation, log)
	checkinService := checkin.NewService(orders, &checkindb.DB{Bun: bunDB}, events, dispatcher, log)
	analyticsService := analytics.NewService(figures, classes, events)

	// --- Kafka consumers ---
	if cfg.Kafka.Enabled {
		consumers := []struct {
			topic  string
			handle kafka.HandlerFunc
		}{
			{cfg.Kafka.Topics.PaymentsSettled, orderService.PaymentSettledHandler()},
			{cfg.Kafka.Topics.EventsUpserted, events.UpsertHandler(log)},
		}
		for _, c := range consumers {
			consumer := kafka.NewConsumer(cfg.Kafka.Brokers, c.topic, cfg.Kafka.GroupID, log)
			defer consumer.Close()
			go func(topic string, handle kafka.HandlerFunc) {
				if err := consumer.Run(ctx, handle); err != nil && !errors.Is(err, context.Canceled) {
					log.Error("KAFKA", fmt.Sprintf("Consumer for %s stopped: %v", topic, err))
				}
			}(c.topic, c.handle)
		}
	}

	// --- Hold expiry ---
	if cfg.Expiry.Enabled {
		go worker.NewExpiryWorker(orderService, cfg.Expiry, log).Run(ctx)
	}

	// --- Auth ---
	var verifier auth.TokenVerifier
	if cfg.Auth.Insecure {
		log.Warn("AUTH", "AUTH_INSECURE is set, bearer tokens are not verified")
		verifier = auth.UnverifiedVerifier{}
	} else {
		oidcVerifier, err := auth.NewOIDCVerifier(ctx, cfg.Auth.IssuerURL, cfg.Auth.ClientID)
		if err != nil {
			log.Fatal("AUTH", fmt.Sprintf("Failed to initialise OIDC verifier: %v", err))
		}
		verifier = oidcVerifier
	}

	// --- Router ---
	log.Info("HTTP", "Setting up router and middleware")
	classHandler := ticketclass_api.NewHandler(classService, log)
	orderHandler := order_api.NewHandler(orderService, log)
	streamHandler := order_api.NewStreamHandler(orderService, broker, log)
	checkinHandler := checkin_api.NewHandler(checkinService, log)
	analyticsHandler := analytics_api.NewHandler(analyticsService, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := bunDB.PingContext(r.Context()); err != nil {
			utils.WriteJSON(w, http.StatusServiceUnavailable, utils.ErrorResponse("Database unavailable", err.Error()))
			return
		}
		utils.WriteSuccess(w, http.StatusOK, "OK", nil)
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		classHandler.RegisterPublicRoutes(r)
		checkinHandler.RegisterPublicRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(verifier, log))
			classHandler.RegisterRoutes(r)
			orderHandler.RegisterRoutes(r)
			streamHandler.RegisterRoutes(r)
			checkinHandler.RegisterRoutes(r)
			analyticsHandler.RegisterRoutes(r)
		})
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("Ticketing service listening on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP", fmt.Sprintf("Server error: %v", err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("SHUTDOWN", fmt.Sprintf("Received %s, shutting down", sig))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("SHUTDOWN", fmt.Sprintf("HTTP shutdown: %v", err))
	}
	stop()
	if err := dispatcher.Close(shutdownCtx); err != nil {
		log.Error("SHUTDOWN", fmt.Sprintf("Notification queue not drained: %v", err))
	}
	log.Info("SHUTDOWN", "Ticketing service stopped")
}

func requestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.LogAPI(r.Method, r.URL.Path, fmt.Sprint(ww.Status()), time.Since(started).String())
		})
	}
}
