package api

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/saturnino-fabrica-de-software/liveface/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/liveface/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/liveface/internal/ws"
)

// Dependencies wires the control plane to the worker: tasks go in through
// the submitter, results come back out over the hub.
type Dependencies struct {
	Tasks        handler.TaskSubmitter
	Recognitions handler.RecognitionSource
	Hub          *ws.Hub
}

type Router struct {
	app    *fiber.App
	logger *slog.Logger
	deps   *Dependencies
}

func NewRouter(logger *slog.Logger, deps *Dependencies) *Router {
	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(logger),
		AppName:      "Liveface",
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

	// Health check endpoints
	healthHandler := handler.NewHealthHandler()
	r.app.Get("/health", healthHandler.Health)
	r.app.Get("/ready", healthHandler.Ready)

	v1 := r.app.Group("/v1")

	if r.deps != nil {
		taskHandler := handler.NewTaskHandler(r.deps.Tasks, r.deps.Recognitions, r.logger)

		tasks := v1.Group("/tasks")
		tasks.Post("/recognize", taskHandler.Recognize)
		tasks.Post("/register", taskHandler.Register)
		tasks.Post("/unregister", taskHandler.Unregister)
		tasks.Post("/backup", taskHandler.Backup)

		// Event stream for worker output
		v1.Get("/ws", ws.UpgradeMiddleware(), ws.Handler(r.deps.Hub))
	}
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
