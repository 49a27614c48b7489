package routes

import (
	"tour-booking/config"
	"tour-booking/constants"
	authController "tour-booking/controllers/auth"
	bookingController "tour-booking/controllers/booking"
	paymentController "tour-booking/controllers/payment"
	timeslotController "tour-booking/controllers/timeslot"
	tourController "tour-booking/controllers/tour"
	userController "tour-booking/controllers/user"
	weatherService "tour-booking/httpServices/weather"
	"tour-booking/logger"
	"tour-booking/middleware"
	bookingService "tour-booking/services/booking"
	"tour-booking/services/capacity"
	paymentService "tour-booking/services/payment"
	slipverifyService "tour-booking/services/slipverify"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Services is the shared service graph, built once in main and used by both
// the controllers here and the background workers.
type Services struct {
	Logger     *logger.AsyncLogger
	Capacity   *capacity.Reconciler
	Bookings   *bookingService.Service
	Payments   *paymentService.Service
	SlipVerify *slipverifyService.Service
	Weather    *weatherService.WeatherClient
}

// SetupRoutes wires the controllers onto the app.
func SetupRoutes(app *fiber.App, db *gorm.DB, cfg config.App, svcs Services) {
	authCtrl := authController.NewAuthController(db, svcs.Logger)
	userCtrl := userController.NewUserController(db, svcs.Logger, cfg.EncryptionKey)
	tourCtrl := tourController.NewTourController(db, svcs.Logger)
	slotCtrl := timeslotController.NewTimeSlotController(db, svcs.Logger, svcs.Capacity, svcs.Bookings, svcs.Payments, svcs.Weather)
	bookingCtrl := bookingController.NewBookingController(db, svcs.Logger, svcs.Bookings, svcs.Payments, svcs.SlipVerify)
	webhookCtrl := paymentController.NewWebhookController(db, svcs.Logger, svcs.Payments, svcs.Bookings)

	// Index route
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"service": "tour-booking", "status": "ok"})
	})

	/*=============================================================================
	| Public Routes
	===============================================================================*/
	api := app.Group("/api")
	api.Post("/login", authCtrl.Login)
	api.Post("/register", authCtrl.Register)

	// Payment processor webhook; authenticates by re-fetching the event.
	api.Post("/payments/webhook", webhookCtrl.Handle)

	// Public catalogue
	api.Get("/tours", tourCtrl.Index)
	api.Get("/tours/:id", tourCtrl.Show)
	api.Get("/tours/:id/availability", slotCtrl.Availability)

	/*=============================================================================
	| Protected Routes
	===============================================================================*/
	auth := api.Group("/auth").Use(middleware.RequireAnyPermission())
	auth.Get("/profile", userCtrl.GetUserInfo)
	auth.Post("/logout", authCtrl.Logout)

	/*=============================================================================
	| Guide Routes
	===============================================================================*/
	guideGroup := api.Group("/guide")

	guideGroup.Post("/tours", middleware.RequirePermissions(
		constants.PermGuideFull,
	), tourCtrl.Store)

	guideGroup.Get("/tours", middleware.RequirePermissions(
		constants.PermGuideFull,
	), tourCtrl.MyTours)

	guideGroup.Put("/tours/:id", middleware.RequirePermissions(
		constants.GuideOrAdminPermissions...,
	), tourCtrl.Update)

	guideGroup.Post("/slots", middleware.RequirePermissions(
		constants.PermGuideFull,
	), slotCtrl.Store)

	guideGroup.Post("/slots/cancel", middleware.RequirePermissions(
		constants.PermGuideFull,
	), slotCtrl.Cancel)

	guideGroup.Delete("/slots/:id", middleware.RequirePermissions(
		constants.PermGuideFull,
	), slotCtrl.Destroy)

	guideGroup.Post("/payout-account", middleware.RequirePermissions(
		constants.PermGuideFull,
	), userCtrl.SetPayoutAccount)

	/*=============================================================================
	| Booking Routes
	===============================================================================*/
	bookingGroup := api.Group("/bookings")

	bookingGroup.Post("/checkout", middleware.RequirePermissions(
		constants.PermTravelerFull,
	), bookingCtrl.Checkout)

	bookingGroup.Get("/", middleware.RequirePermissions(
		constants.PermTravelerFull,
	), bookingCtrl.MyBookings)

	bookingGroup.Get("/:reference", middleware.RequirePermissions(
		constants.PermTravelerFull,
	), bookingCtrl.Show)

	bookingGroup.Post("/:reference/cancel", middleware.RequirePermissions(
		constants.PermTravelerFull,
	), bookingCtrl.Cancel)

	bookingGroup.Post("/:reference/slip", middleware.RequirePermissions(
		constants.PermTravelerFull,
	), bookingCtrl.UploadSlip)
}
