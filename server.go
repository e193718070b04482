// server.go wires the fiber HTTP surface: submission, polling, result
// retrieval, cancellation, and liveness.
package main

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

// Server is the HTTP control surface over the registry and runner.
type Server struct {
	app    *fiber.App
	cfg    *Config
	reg    *Registry
	runner *Runner
	log    *zap.Logger
}

// NewServer builds the fiber app with middleware and routes.
func NewServer(cfg *Config, reg *Registry, runner *Runner, log *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		ErrorHandler: errorHandler,
		AppName:      "affiliagent browserbot",
	})

	s := &Server{app: app, cfg: cfg, reg: reg, runner: runner, log: log}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.app.Use(fiberrecover.New(fiberrecover.Config{
		EnableStackTrace: true,
	}))

	s.app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	if s.cfg.Server.EnableCORS {
		s.app.Use(cors.New(cors.Config{
			AllowOrigins: "*",
			AllowMethods: "GET,POST,OPTIONS",
			AllowHeaders: "Origin,Content-Type,Accept",
		}))
	}
}

func (s *Server) setupRoutes() {
	s.app.Get("/healthz", s.healthz)
	s.app.Post("/run", s.runJob)
	s.app.Get("/progress/:id", s.getProgress)
	s.app.Get("/result/:id", s.getResult)
	s.app.Post("/stop/:id", s.stopTask)
	s.app.Post("/stop-all", s.stopAll)
	s.app.Get("/tasks", s.listTasks)
}

// Start begins listening on the configured address.
func (s *Server) Start() error {
	return s.app.Listen(s.cfg.Server.Address)
}

// ShutdownWithTimeout drains in-flight requests and stops the listener.
// Registry state is in-memory only, so running tasks do not survive this.
func (s *Server) ShutdownWithTimeout(timeout time.Duration) error {
	return s.app.ShutdownWithTimeout(timeout)
}

// App exposes the fiber app for handler tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}
	return c.Status(code).JSON(ErrorResponse{
		Error:   fmt.Sprintf("error_%d", code),
		Message: message,
	})
}
