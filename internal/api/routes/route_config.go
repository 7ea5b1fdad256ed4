package routes

import (
	"splay/internal/api/handlers"
	"splay/internal/metrics"
	"splay/internal/middleware"
	"splay/internal/utils/storage"
	"splay/pkg/jwt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
)

const Version = "1.0.0"

type Config struct {
	App             *fiber.App
	UserHandler     handlers.UserHandler
	ScanHandler     handlers.ScanHandler
	ProductHandler  handlers.ProductHandler
	MidtransHandler handlers.MidtransHandler
	Middleware      middleware.Middleware
	JWTService      jwt.JWTService
	Metrics         *metrics.Metrics
	Environment     string
	// StorageDir is served under /storage when files are kept on local disk.
	StorageDir string
}

func (c *Config) Setup() {
	c.App.Use(c.Middleware.CORSMiddleware())
	c.App.Use(c.Middleware.MetricsMiddleware())
	c.GuestRoute()
	c.Auth()
	c.Scans()
	c.Products()
	c.Subscriptions()
}

func (c *Config) GuestRoute() {
	c.App.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{
			"name":    "Splay API",
			"version": Version,
			"docs":    "/api/v1",
		})
	})
	c.App.Get("/health", func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{
			"status":      "healthy",
			"environment": c.Environment,
			"version":     Version,
		})
	})
	if c.Metrics != nil {
		c.App.Get("/metrics", adaptor.HTTPHandler(c.Metrics.Handler()))
	}
	if c.StorageDir != "" {
		c.App.Static(storage.DefaultURLPrefix, c.StorageDir)
	}
	c.App.Get("/api/v1/shared/:token", c.ScanHandler.GetSharedScan)
	c.App.Post("/webhook/midtrans", c.MidtransHandler.MidtransWebhookHandler)
}

func (c *Config) Auth() {
	auth := c.App.Group("/api/v1/auth")
	{
		auth.Post("/register", c.UserHandler.Register)
		auth.Post("/login", c.UserHandler.Login)
		auth.Post("/refresh", c.UserHandler.RefreshToken)
		auth.Get("/verify", c.UserHandler.VerifyEmail)
		auth.Get("/me", c.Middleware.AuthMiddleware(c.JWTService), c.UserHandler.Me)
		auth.Post("/send_verify", c.Middleware.AuthMiddleware(c.JWTService), c.UserHandler.SendVerificationEmail)
	}
}

func (c *Config) Scans() {
	scans := c.App.Group("/api/v1/scans", c.Middleware.AuthMiddleware(c.JWTService))
	scans.Post("", c.ScanHandler.CreateScan)
	scans.Get("", c.ScanHandler.ListScans)
	scans.Get("/:id", c.ScanHandler.GetScan)
	scans.Delete("/:id", c.ScanHandler.DeleteScan)
	scans.Post("/:id/share", c.ScanHandler.ShareScan)
}

func (c *Config) Products() {
	products := c.App.Group("/api/v1/products")
	products.Get("", c.ProductHandler.GetProducts)
	products.Get("/:id", c.ProductHandler.GetProduct)
}

func (c *Config) Subscriptions() {
	subscriptions := c.App.Group("/api/v1/subscriptions", c.Middleware.AuthMiddleware(c.JWTService))
	subscriptions.Post("/checkout", c.MidtransHandler.Checkout)
	subscriptions.Get("/me", c.MidtransHandler.GetSubscription)
}
