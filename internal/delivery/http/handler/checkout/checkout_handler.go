package checkout

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/riolentius/cahaya-gading-terminal/internal/connectivity"
	"github.com/riolentius/cahaya-gading-terminal/internal/model"
	"github.com/riolentius/cahaya-gading-terminal/internal/obs"
	"github.com/riolentius/cahaya-gading-terminal/internal/queue"
	"github.com/riolentius/cahaya-gading-terminal/internal/remote"
)

type Handler struct {
	queue   *queue.Queue
	engine  *queue.Engine
	monitor *connectivity.Monitor
}

func New(q *queue.Queue, e *queue.Engine, m *connectivity.Monitor) *Handler {
	return &Handler{queue: q, engine: e, monitor: m}
}

// Create completes a sale. The sale is always staged in the local queue
// first; while online the staged record is then submitted directly. A failed
// direct submit leaves the record queued under the same client reference, so
// the drain loop's retry cannot create a second remote transaction. Either
// way the cashier gets an immediate answer and the sale is never dropped.
func (h *Handler) Create(c *fiber.Ctx) error {
	var payload model.SalePayload
	if err := c.BodyParser(&payload); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if payload.CashierID == "" {
		if id, ok := c.Locals("cashier_id").(string); ok {
			payload.CashierID = id
		}
	}
	if err := payload.Validate(); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	if h.monitor.Online() {
		staged, err := h.queue.Stage(c.Context(), payload)
		if err != nil {
			if errors.Is(err, queue.ErrInvalidPayload) {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, "internal error")
		}

		remoteID, err := h.engine.SubmitQueued(c.Context(), staged)
		if err == nil {
			h.monitor.Set(true)
			return c.Status(fiber.StatusCreated).JSON(fiber.Map{
				"status":         "completed",
				"transaction_id": remoteID,
				"local_id":       staged.LocalID,
			})
		}
		obs.Logger.Warn("direct submit failed, sale stays queued", "error", err)
		if remote.Unavailable(err) {
			h.monitor.Set(false)
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"status":   "queued",
			"local_id": staged.LocalID,
		})
	}

	localID, err := h.queue.Enqueue(c.Context(), payload)
	if err != nil {
		if errors.Is(err, queue.ErrInvalidPayload) {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return fiber.NewError(fiber.StatusInternalServerError, "internal error")
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"status":   "queued",
		"local_id": localID,
	})
}
