package handlers

import (
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/biomed-agent/backend/internal/cache/redis"
	"github.com/biomed-agent/backend/internal/diagnosis"
	"github.com/biomed-agent/backend/internal/metrics"
	"github.com/biomed-agent/backend/internal/storage/models"
	"github.com/biomed-agent/backend/internal/storage/sqlite"
	"github.com/biomed-agent/backend/pkg/logger"
	"github.com/biomed-agent/backend/pkg/utils"
)

type DiagnoseHandler struct {
	pipeline  *diagnosis.Pipeline
	db        *sqlite.Client
	cache     *redis.Client
	reportTTL time.Duration
}

// NewDiagnoseHandler wires the pipeline to HTTP. db and cache may be
// nil; persistence and caching are then skipped.
func NewDiagnoseHandler(pipeline *diagnosis.Pipeline, db *sqlite.Client, cache *redis.Client, reportTTL time.Duration) *DiagnoseHandler {
	return &DiagnoseHandler{
		pipeline:  pipeline,
		db:        db,
		cache:     cache,
		reportTTL: reportTTL,
	}
}

func (h *DiagnoseHandler) HandleDiagnose(c *fiber.Ctx) error {
	var input diagnosis.Input

	if err := c.BodyParser(&input); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fiber.Map{
				"kind":    "validation",
				"message": "Invalid request body",
			},
		})
	}

	// Identical inputs produce identical reports, so a cached replay is
	// served as-is (with its original session id).
	inputHash := h.hashInput(input)
	if h.cache != nil && inputHash != "" {
		var cached diagnosis.Report
		found, err := h.cache.GetReport(c.Context(), inputHash, &cached)
		if err != nil {
			logger.Warn("Report cache lookup failed", zap.Error(err))
		}
		if found {
			metrics.CacheHits.WithLabelValues("report").Inc()
			return c.JSON(cached)
		}
		metrics.CacheMisses.WithLabelValues("report").Inc()
	}

	result := h.pipeline.Run(c.Context(), input)

	if result.Err != nil {
		status := fiber.StatusInternalServerError
		if result.Err.Kind == diagnosis.ErrKindValidation {
			status = fiber.StatusBadRequest
		}
		return c.Status(status).JSON(fiber.Map{
			"session_id":    result.SessionID,
			"stage_history": result.History,
			"error": fiber.Map{
				"kind":    string(result.Err.Kind),
				"message": result.Err.Message,
			},
		})
	}

	h.persistSession(input, result)

	if h.cache != nil && inputHash != "" {
		if err := h.cache.SetReport(c.Context(), inputHash, result.Report, h.reportTTL); err != nil {
			logger.Warn("Failed to cache report", zap.Error(err))
		}
	}

	return c.JSON(result.Report)
}

func (h *DiagnoseHandler) GetDiagnosisHistory(c *fiber.Ctx) error {
	if h.db == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Session history is not enabled",
		})
	}

	equipmentModel := c.Query("equipment_model")
	limit := c.QueryInt("limit", 20)
	if limit < 1 || limit > 200 {
		limit = 20
	}

	records, err := h.db.GetSessionHistory(equipmentModel, limit)
	if err != nil {
		logger.Error("Failed to load session history", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load session history",
		})
	}

	sessions := make([]fiber.Map, 0, len(records))
	for _, r := range records {
		sessions = append(sessions, fiber.Map{
			"session_id":           r.ID,
			"equipment_model":      r.EquipmentModel,
			"equipment_serial":     r.EquipmentSerial,
			"trigger":              r.Trigger,
			"overall_status":       r.OverallStatus,
			"primary_cause":        r.PrimaryCause,
			"confidence":           r.Confidence,
			"recommendation_count": r.RecommendationCount,
			"elapsed_ms":           r.ElapsedMS,
			"created_at":           r.CreatedAt,
		})
	}

	return c.JSON(fiber.Map{
		"sessions": sessions,
	})
}

func (h *DiagnoseHandler) persistSession(input diagnosis.Input, result *diagnosis.Result) {
	if h.db == nil {
		return
	}

	err := h.db.InsertSession(&models.SessionRecord{
		ID:                  result.SessionID,
		EquipmentModel:      input.EquipmentModel,
		EquipmentSerial:     input.EquipmentSerial,
		Trigger:             input.Trigger,
		OverallStatus:       result.Report.OverallStatus,
		PrimaryCause:        result.Report.Hypothesis.Cause,
		Confidence:          result.Report.Hypothesis.Confidence,
		RecommendationCount: len(result.Report.Recommendations),
		ElapsedMS:           result.ElapsedMS,
		CreatedAt:           result.Report.Timestamp,
	})
	if err != nil {
		logger.Warn("Failed to persist session record",
			zap.String("session_id", result.SessionID),
			zap.Error(err),
		)
	}
}

func (h *DiagnoseHandler) hashInput(input diagnosis.Input) string {
	data, err := json.Marshal(input)
	if err != nil {
		return ""
	}
	return utils.HashString(string(data))
}
