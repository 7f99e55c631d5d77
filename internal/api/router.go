package api

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	swagger "github.com/go-swagno/swagno-fiber/swagger"
	"github.com/saturnino-fabrica-de-software/idmatch/internal/api/docs"
	"github.com/saturnino-fabrica-de-software/idmatch/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/idmatch/internal/api/middleware"
)

// maxManifestSize bounds request bodies; manifests reference documents by path.
const maxManifestSize = 4 * 1024 * 1024

type Dependencies struct {
	Verifications handler.VerificationService
	Sources       handler.SourceFactory
	ReadyChecks   []handler.ReadinessCheck
	Version       string
}

type Router struct {
	app    *fiber.App
	logger *slog.Logger
	deps   *Dependencies
}

func NewRouter(logger *slog.Logger, deps *Dependencies) *Router {
	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(logger),
		AppName:      "idmatch API",
		BodyLimit:    maxManifestSize,
	})

	return &Router{
		app:    app,
		logger: logger,
		deps:   deps,
	}
}

func (r *Router) Setup() {
	// Global middlewares
	r.app.Use(requestid.New())
	r.app.Use(middleware.Recover(r.logger))
	r.app.Use(middleware.Logger(r.logger))
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	// Swagger documentation
	sw := docs.NewSwagger()
	swagger.SwaggerHandler(r.app, sw.MustToJson())

	version := "dev"
	var checks []handler.ReadinessCheck
	if r.deps != nil {
		if r.deps.Version != "" {
			version = r.deps.Version
		}
		checks = r.deps.ReadyChecks
	}

	// Health check endpoints
	healthHandler := handler.NewHealthHandler(version, r.logger, checks...)
	r.app.Get("/health", healthHandler.Health)
	r.app.Get("/ready", healthHandler.Ready)

	// Verification routes need a configured pipeline
	if r.deps == nil || r.deps.Verifications == nil {
		return
	}

	v1 := r.app.Group("/v1")
	verificationHandler := handler.NewVerificationHandler(r.deps.Verifications, r.deps.Sources, r.logger)
	v1.Post("/verifications", verificationHandler.Create)
	v1.Get("/verifications/:id/comparisons", verificationHandler.Comparisons)
}

func (r *Router) App() *fiber.App {
	return r.app
}

func (r *Router) Listen(addr string) error {
	return r.app.Listen(addr)
}

func (r *Router) Shutdown() error {
	return r.app.Shutdown()
}
