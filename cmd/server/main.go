package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/broker"
	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/config"
	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/database"
	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/handlers"
	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/locks"
	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/middleware"
	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/models"
	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/services"
	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/websocket"
)

func main() {
	log.Println("═══════════════════════════════════════════════════════════════════")
	log.Println("🚀 TRANSAFE BACKEND SERVER STARTING")
	log.Println("═══════════════════════════════════════════════════════════════════")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ FATAL ERROR: %v", err)
	}
	log.Printf("✅ Operator time zone: %s, week starts %s, %d-day view", cfg.Location, cfg.WeekStartsOn, cfg.WeekDisplayDays)
	if cfg.JWTSecret == "" {
		log.Println("⚠️  APP_JWT_SECRET not set: logins and authenticated routes will fail")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Println("🔌 Connecting to database...")
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Println("❌ FATAL ERROR: Database connection failed")
		log.Printf("   Error: %v", err)
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Fatal(err)
	}
	defer db.Close()
	log.Println("✅ Database connection established")

	log.Println("🔄 Running database migrations...")
	if err := database.Migrate(db); err != nil {
		log.Fatalf("❌ FATAL ERROR: Database migrations failed: %v", err)
	}
	if err := database.SeedUsers(db); err != nil {
		log.Fatalf("❌ FATAL ERROR: User seeding failed: %v", err)
	}
	log.Println("✅ Database migrations completed")

	store := database.NewStore(db)

	// Per-driver clock lock: Redis when several instances share the database
	var locker locks.Locker = locks.NewKeyedMutex()
	if cfg.RedisURL != "" {
		redisLocker, err := locks.NewRedisLockerFromURL(ctx, cfg.RedisURL)
		if err != nil {
			log.Printf("⚠️  Redis unavailable: %v (using in-process locks)", err)
		} else {
			defer redisLocker.Close()
			locker = redisLocker
			log.Println("✅ Redis lock backend enabled")
		}
	}

	locationService := services.NewLocationService(store, cfg.GeolocationTimeout)

	wsHub := websocket.NewHub(locationService)
	go wsHub.Run(ctx)
	log.Println("✅ WebSocket hub started")

	events := services.MultiEvents{websocket.NewHubEvents(wsHub)}

	// Supports both file path and base64-encoded credentials
	var fcmService *services.FCMService
	var fcmErr error
	switch {
	case cfg.FirebaseCredentialsBase64 != "":
		fcmService, fcmErr = services.NewFCMServiceFromBase64(ctx, cfg.FirebaseCredentialsBase64)
	case cfg.FirebaseCredentialsFile != "":
		fcmService, fcmErr = services.NewFCMService(ctx, cfg.FirebaseCredentialsFile)
	}
	if fcmErr != nil {
		log.Printf("⚠️  Failed to initialize FCM: %v (push notifications disabled)", fcmErr)
	} else if fcmService != nil {
		events = append(events, services.NewPushEvents(fcmService, store))
		log.Println("✅ Firebase Cloud Messaging initialized")
	}

	var mq *broker.RabbitMQ
	if cfg.AMQPURL != "" {
		mq, err = broker.Dial(cfg.AMQPURL)
		if err != nil {
			log.Printf("⚠️  RabbitMQ unavailable: %v (event publishing disabled)", err)
		} else {
			defer mq.Close()
			events = append(events, broker.NewEventPublisher(mq))
			log.Printf("✅ RabbitMQ connected, publishing to %s", broker.Exchange)
		}
	}

	clock := services.NewClockController(store, locker, events, cfg.Location)
	inspections := services.NewInspectionService(store, clock, cfg.Location)
	timecards := services.NewTimecardAggregator(store, cfg.Location)
	sequencer := services.NewStopSequencer(store)
	attendance := services.NewAttendanceTracker(store, locationService, events, cfg.Location, cfg.StrictStatusValidation)

	if mq != nil {
		consumer := broker.NewInspectionConsumer(mq, clock, cfg.Location)
		if err := consumer.Run(ctx); err != nil {
			log.Printf("⚠️  Inspection consumer not started: %v", err)
		}
	}

	week := handlers.WeekConfig{
		Location:    cfg.Location,
		StartsOn:    cfg.WeekStartsOn,
		DisplayDays: cfg.WeekDisplayDays,
	}

	loginLimiter := middleware.NewRateLimiter(cfg.LoginRatePerMinute)
	go loginLimiter.RunCleanup(ctx.Done())

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	checks := map[string]handlers.Check{"database": db.PingContext}
	if mq != nil {
		checks["broker"] = func(context.Context) error {
			if !mq.IsAlive() {
				return errors.New("connection closed")
			}
			return nil
		}
	}
	r.Get("/health", handlers.Health(checks))

	r.With(loginLimiter.Limit).Post("/api/auth/login", handlers.Login(store, cfg.JWTSecret))

	// WebSocket endpoint (authentication handled in handler via query param)
	r.Get("/ws", websocket.HandleWebSocket(wsHub, cfg.JWTSecret))

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))

		r.Post("/driver/fcm-token", handlers.RegisterFCMToken(store))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(models.RoleDriver))

			r.Post("/driver/inspections", handlers.SubmitInspection(inspections))
			r.Get("/driver/clock", handlers.GetClockState(clock, cfg.Location))
			r.Post("/driver/clock/in", handlers.ClockIn(clock))
			r.Post("/driver/clock/out", handlers.ClockOut(clock))
			r.Get("/driver/timecard", handlers.GetMyTimecard(timecards, week))
			r.Post("/driver/location", handlers.UpdateLocation(locationService))

			r.Post("/routes/{id}/attendance", handlers.RecordAttendance(attendance))
			r.Post("/routes/{id}/complete", handlers.CompleteRoute(attendance, cfg.Location))
		})

		// Shared by drivers on the road and managers in the dashboard
		r.Get("/routes/{id}/stops", handlers.GetRouteStops(sequencer))
		r.Get("/routes/{id}/completion", handlers.GetCompletionState(attendance, cfg.Location))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(models.RoleAdmin))

			r.Get("/manager/timecards", handlers.GetTimecards(timecards, week))
			r.Post("/manager/routes/{id}/stops", handlers.AddStop(sequencer))
			r.Put("/manager/routes/{id}/stops", handlers.SaveStops(sequencer))
			r.Post("/manager/routes/{id}/stops/reorder", handlers.ReorderStops(sequencer))
			r.Delete("/manager/routes/{id}/stops/{stopId}", handlers.RemoveStop(sequencer))
		})
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Println("🛑 Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("⚠️  Shutdown error: %v", err)
		}
	}()

	log.Println("═══════════════════════════════════════════════════════════════════")
	log.Println("✅ ALL INITIALIZATION COMPLETE")
	log.Printf("🚀 Server starting on http://localhost:%s", cfg.Port)
	log.Println("═══════════════════════════════════════════════════════════════════")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Println("❌ FATAL ERROR: Server failed to start")
		log.Printf("   Error: %v", err)
		log.Printf("   Port: %s", cfg.Port)
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Fatal(err)
	}
	log.Println("👋 Server stopped")
}
