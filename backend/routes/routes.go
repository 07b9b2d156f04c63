package routes

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"proficiency/backend/attempts"
	"proficiency/backend/certificates"
	"proficiency/backend/config"
	"proficiency/backend/controllers"
	"proficiency/backend/middleware"
	"proficiency/backend/storage"
	"proficiency/backend/utils"
)

// Dependencies are the collaborators the HTTP layer is built from.
type Dependencies struct {
	DB        *gorm.DB
	Cfg       *config.Config
	Log       *utils.Logger
	Uploads   storage.Store
	Assembler *attempts.Assembler
	Issuer    *certificates.Issuer
}

// NewApp builds the fiber application with middleware and every route mounted.
func NewApp(deps Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: errorHandler(deps),
		// two documents plus form fields
		BodyLimit: int(2*deps.Cfg.UploadMaxBytes) + 1<<20,
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:     deps.Cfg.CORSOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept",
		AllowCredentials: true,
	}))
	app.Use(middleware.LoggingMiddleware(deps.Log))
	app.Use(middleware.Session(deps.Cfg))

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	SetupRoutes(app, deps)
	return app
}

// errorHandler reports a body rejected by BodyLimit like any other oversized upload.
func errorHandler(deps Dependencies) fiber.ErrorHandler {
	handle := utils.ErrorHandler(deps.Log)
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) && fe.Code == fiber.StatusRequestEntityTooLarge {
			err = storage.TooLarge(deps.Cfg.UploadMaxBytes)
		}
		return handle(c, err)
	}
}

func SetupRoutes(app *fiber.App, deps Dependencies) {
	db, cfg := deps.DB, deps.Cfg

	// Auth routes
	authController := controllers.NewAuthController(db, cfg, deps.Log, deps.Uploads)
	app.Post("/api/auth/register", authController.Register)
	app.Post("/api/auth/login", authController.Login)
	app.Post("/api/auth/logout", authController.Logout)

	// Middleware
	authMiddleware := middleware.AuthMiddleware()
	candidateMiddleware := middleware.CandidateMiddleware()
	adminMiddleware := middleware.AdminMiddleware()

	// User routes
	userController := controllers.NewUserController(db)
	app.Get("/api/user/profile", authMiddleware, userController.GetProfile)
	app.Put("/api/user/profile", authMiddleware, userController.UpdateProfile)

	// Candidate routes
	attemptsController := controllers.NewAttemptsController(db, deps.Assembler)
	certificateController := controllers.NewCertificateController(deps.Issuer)
	candidate := app.Group("/api/candidate")
	candidate.Get("/attempts", candidateMiddleware, attemptsController.List)
	candidate.Post("/attempts/start", candidateMiddleware, attemptsController.Start)
	// admins may download any certificate
	candidate.Get("/attempts/:id/certificate.pdf", authMiddleware, certificateController.Download)

	// Public verification
	app.Get("/api/verify/:slug", certificateController.Verify)

	// Admin routes
	adminController := controllers.NewAdminController(db, deps.Log)
	admin := app.Group("/api/admin", adminMiddleware)
	admin.Get("/settings", adminController.GetSettings)
	admin.Put("/settings", adminController.UpdateSettings)
	admin.Get("/questions", adminController.ListQuestions)
	admin.Post("/questions", adminController.CreateQuestion)
	admin.Delete("/questions/:id", adminController.DeleteQuestion)
	admin.Get("/users", userController.ListUsers)
	admin.Get("/verifications", adminController.ListVerifications)
	admin.Put("/verifications/:id", adminController.ReviewVerification)

	analyticsController := controllers.NewAnalyticsController(db)
	admin.Get("/analytics", analyticsController.GetOverview)

	// Locally stored identity documents are only visible to administrators
	if _, ok := deps.Uploads.(*storage.LocalStore); ok {
		app.Group("/uploads", adminMiddleware).Static("/", cfg.UploadDir)
	}
}
