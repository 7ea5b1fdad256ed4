package middleware

import (
	"strconv"
	"strings"
	"time"

	"splay/internal/metrics"
	"splay/internal/utils"
	"splay/pkg/jwt"
	"splay/pkg/user"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"go.uber.org/zap"
)

type (
	Middleware interface {
		CORSMiddleware() fiber.Handler
		AuthMiddleware(jwtService jwt.JWTService) fiber.Handler
		MetricsMiddleware() fiber.Handler
	}

	middleware struct {
		userRepository user.UserRepository
		metrics        *metrics.Metrics
		logger         *zap.Logger
	}
)

func NewMiddleware(userRepository user.UserRepository, m *metrics.Metrics, logger *zap.Logger) Middleware {
	return &middleware{
		userRepository: userRepository,
		metrics:        m,
		logger:         logger,
	}
}

// CORSMiddleware allows every origin in development and the comma separated
// CORS_ORIGINS list otherwise.
func (m *middleware) CORSMiddleware() fiber.Handler {
	origins := utils.GetConfig("CORS_ORIGINS")
	if utils.IsDevelopment() || origins == "" {
		origins = "*"
	}
	return cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: strings.Join([]string{
			fiber.MethodGet,
			fiber.MethodPost,
			fiber.MethodPut,
			fiber.MethodPatch,
			fiber.MethodDelete,
			fiber.MethodOptions,
		}, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	})
}

// MetricsMiddleware records request counts and latency per route pattern and
// logs server errors.
func (m *middleware) MetricsMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			}
		}

		path := c.Route().Path
		if status == fiber.StatusNotFound && path == "/" && c.Path() != "/" {
			path = "unmatched"
		}

		if m.metrics != nil {
			labels := []string{c.Method(), path, strconv.Itoa(status)}
			m.metrics.HTTPRequestsTotal.WithLabelValues(labels...).Inc()
			m.metrics.HTTPRequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
		}

		if status >= fiber.StatusInternalServerError {
			m.logger.Error("request failed",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Int("status", status),
				zap.Error(err),
			)
		}
		return err
	}
}
