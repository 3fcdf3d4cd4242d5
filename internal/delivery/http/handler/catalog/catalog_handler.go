package catalog

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/riolentius/cahaya-gading-terminal/internal/cache"
	"github.com/riolentius/cahaya-gading-terminal/internal/connectivity"
	"github.com/riolentius/cahaya-gading-terminal/internal/obs"
	"github.com/riolentius/cahaya-gading-terminal/internal/remote"
)

// Handler serves catalog reads. Online requests with ?refresh=1 hit the
// backend and mirror the result into the local cache; everything else reads
// the cache, which keeps working offline.
type Handler struct {
	cache   *cache.Cache
	remote  remote.Service
	monitor *connectivity.Monitor
}

func New(c *cache.Cache, r remote.Service, m *connectivity.Monitor) *Handler {
	return &Handler{cache: c, remote: r, monitor: m}
}

func (h *Handler) wantsRemote(c *fiber.Ctx) bool {
	return c.QueryBool("refresh") && h.monitor.Online()
}

func (h *Handler) Products(c *fiber.Ctx) error {
	if categoryID := c.Query("category_id"); categoryID != "" {
		out, err := h.cache.ProductsByCategory(c.Context(), categoryID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "internal error")
		}
		return c.JSON(fiber.Map{"items": out})
	}

	if h.wantsRemote(c) {
		fresh, err := h.remote.FetchProducts(c.Context())
		if err == nil {
			h.monitor.Set(true)
			// cache refresh must not block the read path
			go func() {
				if err := h.cache.RefreshProducts(context.Background(), fresh); err != nil {
					obs.Logger.Error("product cache refresh failed", "error", err)
				}
			}()
			return c.JSON(fiber.Map{"items": fresh})
		}
		obs.Logger.Warn("product fetch failed, serving cache", "error", err)
		if remote.Unavailable(err) {
			h.monitor.Set(false)
		}
	}

	out, err := h.cache.Products(c.Context())
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "internal error")
	}
	return c.JSON(fiber.Map{"items": out})
}

func (h *Handler) Categories(c *fiber.Ctx) error {
	if h.wantsRemote(c) {
		fresh, err := h.remote.FetchCategories(c.Context())
		if err == nil {
			h.monitor.Set(true)
			go func() {
				if err := h.cache.RefreshCategories(context.Background(), fresh); err != nil {
					obs.Logger.Error("category cache refresh failed", "error", err)
				}
			}()
			return c.JSON(fiber.Map{"items": fresh})
		}
		obs.Logger.Warn("category fetch failed, serving cache", "error", err)
		if remote.Unavailable(err) {
			h.monitor.Set(false)
		}
	}

	out, err := h.cache.Categories(c.Context())
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "internal error")
	}
	return c.JSON(fiber.Map{"items": out})
}

func (h *Handler) Customers(c *fiber.Ctx) error {
	if h.wantsRemote(c) {
		fresh, err := h.remote.FetchCustomers(c.Context())
		if err == nil {
			h.monitor.Set(true)
			go func() {
				if err := h.cache.RefreshCustomers(context.Background(), fresh); err != nil {
					obs.Logger.Error("customer cache refresh failed", "error", err)
				}
			}()
			return c.JSON(fiber.Map{"items": fresh})
		}
		obs.Logger.Warn("customer fetch failed, serving cache", "error", err)
		if remote.Unavailable(err) {
			h.monitor.Set(false)
		}
	}

	out, err := h.cache.Customers(c.Context())
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "internal error")
	}
	return c.JSON(fiber.Map{"items": out})
}
