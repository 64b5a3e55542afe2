package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/biomed-agent/backend/internal/ingestion"
	"github.com/biomed-agent/backend/pkg/logger"
)

type DocumentHandler struct {
	processor *ingestion.Processor
}

func NewDocumentHandler(processor *ingestion.Processor) *DocumentHandler {
	return &DocumentHandler{
		processor: processor,
	}
}

func (h *DocumentHandler) UploadDocument(c *fiber.Ctx) error {
	if h.processor == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Document ingestion is not enabled",
		})
	}

	var req struct {
		EquipmentModel string `json:"equipment_model"`
		DocType        string `json:"doc_type"`
		HTMLContent    string `json:"html_content"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.EquipmentModel == "" || req.HTMLContent == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Equipment model and HTML content are required",
		})
	}

	docID, err := h.processor.ProcessManual(c.Context(), req.EquipmentModel, req.DocType, req.HTMLContent)
	if err != nil {
		logger.Error("Failed to process manual", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process manual",
		})
	}

	return c.JSON(fiber.Map{
		"message":         "Manual processed successfully",
		"doc_id":          docID,
		"equipment_model": req.EquipmentModel,
	})
}
