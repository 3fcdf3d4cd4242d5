package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/riolentius/cahaya-gading-terminal/internal/cache"
	"github.com/riolentius/cahaya-gading-terminal/internal/config"
	"github.com/riolentius/cahaya-gading-terminal/internal/connectivity"
	cataloghandler "github.com/riolentius/cahaya-gading-terminal/internal/delivery/http/handler/catalog"
	checkouthandler "github.com/riolentius/cahaya-gading-terminal/internal/delivery/http/handler/checkout"
	synchandler "github.com/riolentius/cahaya-gading-terminal/internal/delivery/http/handler/sync"
	"github.com/riolentius/cahaya-gading-terminal/internal/delivery/middleware"
	"github.com/riolentius/cahaya-gading-terminal/internal/queue"
	"github.com/riolentius/cahaya-gading-terminal/internal/remote"
)

// Deps carries the explicitly constructed core services into the routes.
type Deps struct {
	Cfg     config.Config
	Monitor *connectivity.Monitor
	Cache   *cache.Cache
	Queue   *queue.Queue
	Engine  *queue.Engine
	Remote  remote.Service
}

func RegisterRoutes(app *fiber.App, d Deps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})

	api := app.Group("/api", middleware.NewJWTMiddleware(d.Cfg.JWTSecret).Protect())

	checkoutH := checkouthandler.New(d.Queue, d.Engine, d.Monitor)
	api.Post("/checkout", checkoutH.Create)

	syncH := synchandler.New(d.Queue, d.Engine, d.Monitor)
	api.Get("/sync/status", syncH.Status)
	api.Post("/sync", syncH.Trigger)
	api.Delete("/sync/synced", syncH.ClearSynced)
	api.Get("/status", syncH.TerminalStatus)

	catalogH := cataloghandler.New(d.Cache, d.Remote, d.Monitor)
	api.Get("/products", catalogH.Products)
	api.Get("/categories", catalogH.Categories)
	api.Get("/customers", catalogH.Customers)
}
