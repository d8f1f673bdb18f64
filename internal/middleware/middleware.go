package middleware

import (
	"runtime/debug"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"

	"ai-course-tutor/config"
	"ai-course-tutor/pkg/logger"
)

// ConnectionLimiter limits the number of concurrent connections.
type ConnectionLimiter struct {
	limit    int
	waitlist chan struct{}
}

func NewConnectionLimiter(limit int) *ConnectionLimiter {
	return &ConnectionLimiter{
		limit:    limit,
		waitlist: make(chan struct{}, limit),
	}
}

func (cl *ConnectionLimiter) Acquire() bool {
	select {
	case cl.waitlist <- struct{}{}:
		return true
	default:
		return false
	}
}

func (cl *ConnectionLimiter) Release() {
	select {
	case <-cl.waitlist:
	default:
	}
}

func connectionLimiterMiddleware(limiter *ConnectionLimiter) fiber.Handler {
	return func(c fiber.Ctx) error {
		if !limiter.Acquire() {
			return c.Status(fiber.StatusServiceUnavailable).SendString("Server is at maximum capacity")
		}
		defer limiter.Release()
		return c.Next()
	}
}

func panicRecoveryMiddleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		defer func() {
			if r := recover(); r != nil {
				stack := debug.Stack()
				logger.WithFields(map[string]interface{}{
					"panic":      r,
					"method":     c.Method(),
					"path":       c.Path(),
					"ip":         c.IP(),
					"user_agent": c.Get("User-Agent"),
					"stack":      string(stack),
				}).Errorf("Panic recovered")

				err := c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error":   "Internal Server Error",
					"message": "An unexpected error occurred",
				})
				if err != nil {
					logger.WithField("error", err).Errorf("Failed to send error response")
				}
			}
		}()
		return c.Next()
	}
}

func corsMiddleware() fiber.Handler {
	cfg := cors.ConfigDefault
	if len(config.Cfg.Cors.AllowOrigins) > 0 {
		cfg.AllowOrigins = config.Cfg.Cors.AllowOrigins
	}
	if len(config.Cfg.Cors.AllowMethods) > 0 {
		cfg.AllowMethods = config.Cfg.Cors.AllowMethods
	}
	if len(config.Cfg.Cors.AllowHeaders) > 0 {
		cfg.AllowHeaders = config.Cfg.Cors.AllowHeaders
	}
	return cors.New(cfg)
}

func requestLogMiddleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		err := c.Next()
		if !strings.HasPrefix(c.Path(), "/health") {
			logger.Debug("%v: %s %s -> %d", config.ModuleServer, c.Method(), c.Path(), c.Response().StatusCode())
		}
		return err
	}
}

// Setup registers the global middleware chain.
func Setup(app *fiber.App, limiter *ConnectionLimiter) {
	app.Use(panicRecoveryMiddleware())
	app.Use(corsMiddleware())
	app.Use(requestLogMiddleware())
	if limiter != nil {
		app.Use(connectionLimiterMiddleware(limiter))
	}
}
