package main

import (
	"context"
	"fmt"
	"time"

	"tour-booking/config"
	"tour-booking/database"
	weatherService "tour-booking/httpServices/weather"
	"tour-booking/logger"
	notificationModel "tour-booking/models/notification"
	"tour-booking/mq"
	"tour-booking/routes"
	bookingService "tour-booking/services/booking"
	"tour-booking/services/capacity"
	notificationService "tour-booking/services/notification"
	paymentService "tour-booking/services/payment"
	slipverifyService "tour-booking/services/slipverify"
	"tour-booking/services/sweeper"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"github.com/omise/omise-go"
)

func main() {
	app := fiber.New(fiber.Config{
		ReadBufferSize:  32768, // 32KB read buffer
		WriteBufferSize: 32768, // 32KB write buffer
		ReadTimeout:     time.Second * 30,
		WriteTimeout:    time.Second * 30,
		BodyLimit:       20 * 1024 * 1024, // 20MB body limit, slips included
	})
	if err := godotenv.Load(); err != nil {
		logger.Error("Error loading .env file", err)
		fmt.Println("Error loading .env file", err)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", err)
		return
	}

	logger.Success("Server is running on ip: " + cfg.AppHost + " port: " + cfg.AppPort +
		"\n\t\t\t\t\t\t******************************************************************************************\n")

	db, err := database.InitDB()
	if err != nil {
		logger.Error("Failed to connect to the database", err)
		return
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendURL,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
	}))

	asyncLogger := logger.NewAsyncLogger(db)
	go asyncLogger.ProcessLog()

	// The broker is optional at boot: notification rows queue in the
	// database and the worker's ticker drains them even without AMQP.
	var publisher *mq.Publisher
	if pub, err := mq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange); err != nil {
		logger.Warning(fmt.Sprintf("AMQP publisher unavailable, notifications fall back to polling: %v", err))
	} else {
		publisher = pub
	}

	var pub notificationService.Publisher
	if publisher != nil {
		pub = publisher
	}
	notifications := notificationService.NewService(db, pub)
	reconciler := capacity.NewReconciler(db)
	bookings := bookingService.NewService(db, reconciler, notifications)

	// Without processor keys the payment service runs degraded: webhook
	// verification and refunds fail cleanly instead of at boot.
	var omiseClient *omise.Client
	if cfg.OmisePublicKey != "" && cfg.OmiseSecretKey != "" {
		if client, err := omise.NewClient(cfg.OmisePublicKey, cfg.OmiseSecretKey); err != nil {
			logger.Warning(fmt.Sprintf("Payment client unavailable: %v", err))
		} else {
			omiseClient = client
		}
	} else {
		logger.Warning("Payment processor keys not configured, refunds and transfers disabled")
	}
	payments := paymentService.NewService(db, omiseClient, bookings)

	routes.SetupRoutes(app, db, cfg, routes.Services{
		Logger:     asyncLogger,
		Capacity:   reconciler,
		Bookings:   bookings,
		Payments:   payments,
		SlipVerify: slipverifyService.NewService(db, bookings, cfg.GeminiAPIKey),
		Weather:    weatherService.NewClient(cfg.WeatherBaseURL),
	})

	ctx := context.Background()

	var deliveries notificationService.Deliveries
	if consumer, err := mq.NewConsumer(cfg.AMQPURL, cfg.AMQPExchange, "tour-booking.notifications",
		[]string{notificationService.KeyBookingConfirmed, notificationService.KeyBookingCancelled}); err != nil {
		logger.Warning(fmt.Sprintf("AMQP consumer unavailable, notification worker polls only: %v", err))
	} else {
		deliveries = consumer
	}

	worker := notificationService.NewWorker(db, deliveries, map[notificationModel.NotificationChannel]notificationService.Notifier{
		notificationModel.ChannelEmail:    notificationService.NewConsoleNotifier(),
		notificationModel.ChannelWhatsApp: notificationService.NewConsoleNotifier(),
	})
	go worker.Run(ctx)

	sweep := sweeper.NewSweeper(db, bookings,
		time.Duration(cfg.PaymentWindowMin)*time.Minute,
		time.Duration(cfg.SweepIntervalMin)*time.Minute)
	go sweep.Run(ctx)

	if err := app.Listen(cfg.AppHost + ":" + cfg.AppPort); err != nil {
		logger.Error("Server stopped", err)
	}
}
