package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/biomed-agent/backend/internal/cache/redis"
	"github.com/biomed-agent/backend/internal/knowledge"
	"github.com/biomed-agent/backend/pkg/logger"
)

type EquipmentHandler struct {
	store *knowledge.Store
	cache *redis.Client
}

func NewEquipmentHandler(store *knowledge.Store, cache *redis.Client) *EquipmentHandler {
	return &EquipmentHandler{
		store: store,
		cache: cache,
	}
}

// GetEquipment returns a summary of the loaded knowledge document. The
// raw thresholds and signatures stay internal; this endpoint exists so
// operators can confirm what the pipeline will diagnose against.
func (h *EquipmentHandler) GetEquipment(c *fiber.Ctx) error {
	id := c.Params("id")

	k, err := h.store.Load(id)
	if err != nil {
		var malformed *knowledge.MalformedError
		switch {
		case errors.Is(err, knowledge.ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Equipment knowledge not found",
			})
		case errors.As(err, &malformed):
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error": "Equipment knowledge document is malformed",
			})
		default:
			logger.Error("Failed to load equipment knowledge", zap.String("equipment_id", id), zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to load equipment knowledge",
			})
		}
	}

	signals := make([]fiber.Map, 0, len(k.SignalOrder))
	for _, signalID := range k.SignalOrder {
		sig := k.Signals[signalID]
		signals = append(signals, fiber.Map{
			"signal_id":  sig.SignalID,
			"name":       sig.Name,
			"test_point": sig.TestPoint,
			"parameter":  sig.Parameter,
			"unit":       sig.Unit,
		})
	}

	faults := make([]fiber.Map, 0, len(k.FaultOrder))
	for _, faultID := range k.FaultOrder {
		f := k.Faults[faultID]
		faults = append(faults, fiber.Map{
			"fault_id":       f.FaultID,
			"name":           f.Name,
			"signature_size": len(f.Signature),
			"recovery_steps": len(f.Recovery),
		})
	}

	return c.JSON(fiber.Map{
		"metadata": fiber.Map{
			"equipment_id": k.Metadata.EquipmentID,
			"name":         k.Metadata.Name,
			"category":     k.Metadata.Category,
			"manufacturer": k.Metadata.Manufacturer,
			"version":      k.Metadata.Version,
		},
		"signals":  signals,
		"faults":   faults,
		"warnings": k.Warnings,
	})
}

// InvalidateEquipment evicts the cached knowledge document so the next
// diagnosis reloads it from disk. Cached reports are dropped alongside
// it: they embed decisions from the old document.
func (h *EquipmentHandler) InvalidateEquipment(c *fiber.Ctx) error {
	id := c.Params("id")

	h.store.Invalidate(id)

	if h.cache != nil {
		if err := h.cache.InvalidateReportCache(c.Context()); err != nil {
			logger.Warn("Failed to invalidate report cache", zap.Error(err))
		}
	}

	logger.Info("Equipment knowledge invalidated", zap.String("equipment_id", id))

	return c.JSON(fiber.Map{
		"message":      "Equipment knowledge invalidated",
		"equipment_id": id,
	})
}
