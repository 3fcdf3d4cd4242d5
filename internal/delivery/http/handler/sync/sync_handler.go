package sync

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/riolentius/cahaya-gading-terminal/internal/connectivity"
	"github.com/riolentius/cahaya-gading-terminal/internal/queue"
)

type Handler struct {
	queue   *queue.Queue
	engine  *queue.Engine
	monitor *connectivity.Monitor
}

func New(q *queue.Queue, e *queue.Engine, m *connectivity.Monitor) *Handler {
	return &Handler{queue: q, engine: e, monitor: m}
}

func (h *Handler) Status(c *fiber.Ctx) error {
	st, err := h.queue.SyncStatus(c.Context())
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "internal error")
	}
	return c.JSON(st)
}

// Trigger runs one drain cycle synchronously (the "retry sync" button).
// A drain that lands sales proves the backend is reachable again, so it
// raises the connectivity monitor; this is the recovery path when the
// terminal was flipped offline by failed remote calls.
func (h *Handler) Trigger(c *fiber.Ctx) error {
	out, err := h.engine.Drain(c.Context())
	if err != nil {
		if errors.Is(err, queue.ErrSyncInFlight) {
			return fiber.NewError(fiber.StatusConflict, err.Error())
		}
		return fiber.NewError(fiber.StatusInternalServerError, "internal error")
	}
	if out.Succeeded > 0 {
		h.monitor.Set(true)
	}
	return c.JSON(out)
}

func (h *Handler) ClearSynced(c *fiber.Ctx) error {
	removed, err := h.queue.ClearSynced(c.Context())
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "internal error")
	}
	return c.JSON(fiber.Map{"removed": removed})
}

// TerminalStatus is the one-call view the UI polls: connectivity plus queue
// counts.
func (h *Handler) TerminalStatus(c *fiber.Ctx) error {
	st, err := h.queue.SyncStatus(c.Context())
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "internal error")
	}
	return c.JSON(fiber.Map{
		"online": h.monitor.Online(),
		"sync":   st,
	})
}
