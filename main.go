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

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/HSouheill/homeservices_backend/config"
	"github.com/HSouheill/homeservices_backend/controllers"
	"github.com/HSouheill/homeservices_backend/events"
	"github.com/HSouheill/homeservices_backend/middleware"
	"github.com/HSouheill/homeservices_backend/repositories"
	"github.com/HSouheill/homeservices_backend/routes"
	"github.com/HSouheill/homeservices_backend/services"
	"github.com/HSouheill/homeservices_backend/websocket"
)

// CustomValidator is a custom validator for Echo
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates the request body
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	settings, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if settings.JWTSecret == "" {
		log.Fatal("JWT_SECRET environment variable is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to database
	client := config.ConnectDB(settings)
	db := client.Database(settings.DBName)

	userRepo := repositories.NewUserRepository(db)
	bookingRepo := repositories.NewBookingRepository(db)
	offerRepo := repositories.NewOfferRepository(db)
	conversationRepo := repositories.NewConversationRepository(db)
	messageRepo := repositories.NewMessageRepository(db)
	notificationRepo := repositories.NewNotificationRepository(db)
	transactor := repositories.NewTransactor(client, settings.MongoTransactions)

	// Realtime gateway, optionally bridged across instances through Redis
	hub := websocket.NewHub(websocket.NewRegistry())
	if redisClient := config.ConnectRedis(settings); redisClient != nil {
		defer redisClient.Close()
		hub.UseBridge(websocket.NewRedisBridge(redisClient, settings.RedisChannel))
	}
	hubCtx, stopHub := context.WithCancel(context.Background())
	go hub.Run(hubCtx)

	var pusher services.Pusher
	app, err := config.InitFirebase(ctx, settings)
	if err != nil {
		log.Printf("Failed to initialize Firebase: %v", err)
	} else if app != nil {
		fcm, err := services.NewFCMPusher(ctx, app)
		if err != nil {
			log.Printf("Failed to create FCM client: %v", err)
		} else {
			pusher = fcm
			log.Println("Push notifications enabled")
		}
	}

	var publisher services.EventPublisher
	if settings.AMQPURL != "" {
		p, err := events.NewPublisher(settings.AMQPURL, settings.AMQPExchange)
		if err != nil {
			log.Printf("Failed to connect to RabbitMQ: %v", err)
		} else {
			defer p.Close()
			publisher = p
			log.Printf("Publishing domain events to exchange %s", settings.AMQPExchange)
		}
	} else {
		log.Println("AMQP_URL not set, domain events are not mirrored to a broker")
	}

	dispatcher := services.NewDispatcher(settings.DispatchQueueSize, settings.DispatchWorkers)
	dispatcher.Start()

	notificationService := services.NewNotificationService(notificationRepo, userRepo, hub, pusher, dispatcher)
	bookingService := services.NewBookingService(bookingRepo, userRepo, hub, notificationService, publisher, dispatcher)
	offerService := services.NewOfferService(offerRepo, userRepo, hub, notificationService, publisher, dispatcher, settings.OfferValidity())
	messagingService := services.NewMessagingService(conversationRepo, messageRepo, userRepo, bookingRepo, transactor, hub, notificationService, dispatcher)

	// Create a new Echo instance
	e := echo.New()
	e.HideBanner = true
	e.Validator = &CustomValidator{validator: validator.New()}

	rateLimiter := middleware.NewRateLimiter()
	go rateLimiter.Cleanup(ctx, time.Minute)

	// Middleware
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(middleware.GlobalCORS())
	e.Use(middleware.SecurityHeaders())
	e.Use(rateLimiter.RateLimit())

	e.Match([]string{"GET", "HEAD"}, "/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "OK",
			"message": "Home services backend is running",
			"version": "1.0",
		})
	})

	e.Match([]string{"GET", "HEAD"}, "/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":      "healthy",
			"database":    "connected",
			"connections": hub.Registry().Count(),
			"dispatcher":  dispatcher.Stats(),
		})
	})

	routes.SetupRoutes(e, settings.JWTSecret, routes.Controllers{
		Bookings:      controllers.NewBookingController(bookingService),
		Offers:        controllers.NewOfferController(offerService),
		Conversations: controllers.NewConversationController(messagingService),
		Notifications: controllers.NewNotificationController(notificationService),
		Realtime: websocket.NewHandler(hub, middleware.TokenParser(settings.JWTSecret),
			services.NewRealtimeEvents(messagingService, notificationService, bookingService)),
	})

	go func() {
		if err := e.Start(":" + settings.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to stop HTTP server: %v", err)
	}
	stopHub()
	if err := dispatcher.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to drain dispatcher: %v", err)
	}
	if err := client.Disconnect(shutdownCtx); err != nil {
		log.Printf("Failed to disconnect MongoDB: %v", err)
	}
}
