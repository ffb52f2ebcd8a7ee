// @title TeX Quiz API
// @version 1.0
// @description Parses LaTeX exam and lecture sources into structured questions.
// @contact.name API Support
// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html
// @host localhost:8090
// @BasePath /api
// @schemes http https
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"quiz-tex/internal/app"
	"quiz-tex/internal/config"
	"quiz-tex/internal/handler"
	"quiz-tex/internal/logger"
	"quiz-tex/internal/middleware"
	"quiz-tex/internal/validation"

	_ "quiz-tex/cmd/api/docs"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"go.uber.org/zap"
)

// requestLogger is a middleware that logs HTTP requests
func requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		path := c.Path()
		method := c.Method()

		// Process request
		err := c.Next()

		logger.Get().Info("HTTP Request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("duration", time.Since(start)),
			zap.String("ip", c.IP()),
			zap.String("user_agent", c.Get("User-Agent")),
		)

		return err
	}
}

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	if err := logger.Initialize(cfg.Logger); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	appLogger := logger.Get()
	defer logger.Sync()

	application, err := app.New(cfg, app.Options{UseCache: true, RequireDatabase: true})
	if err != nil {
		appLogger.Fatal("Failed to initialize application", zap.Error(err))
	}
	defer application.Close()

	// Initialize handlers
	documentHandler := handler.NewDocumentHandler(application.Documents, application.Renders, application.Cache)

	server := fiber.New(fiber.Config{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  20 * time.Second,
		// JSON framing on top of the largest accepted source
		BodyLimit:    validation.MaxContentLength + 64*1024,
		ErrorHandler: middleware.ErrorHandler(),
	})

	server.Use(requestLogger())
	server.Use(cors.New(cors.Config{AllowOrigins: "*", AllowMethods: "GET,POST,OPTIONS", AllowHeaders: "Origin,Content-Type,Accept", MaxAge: 300}))
	server.Use(recover.New())

	// Swagger handler
	server.Get("/swagger/*", swagger.HandlerDefault)

	documentHandler.RegisterRoutes(server.Group("/api"), middleware.NewValidationMiddleware())

	go func() {
		appLogger.Info("Starting server", zap.Int("port", cfg.Server.Port), zap.String("env", cfg.Logger.Env))
		if err := server.Listen(":" + strconv.Itoa(cfg.Server.Port)); err != nil {
			appLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.ShutdownWithContext(ctx); err != nil {
		appLogger.Error("Server forced to shutdown", zap.Error(err))
		return
	}
	appLogger.Info("Server exited gracefully")
}
