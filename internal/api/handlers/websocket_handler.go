package handlers

import (
	"context"
	"time"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/biomed-agent/backend/internal/diagnosis"
	"github.com/biomed-agent/backend/pkg/logger"
)

// WebSocketHandler runs diagnoses over a persistent connection,
// emitting one event per completed pipeline stage before the final
// report. Useful for bench software that shows progress to the
// technician.
type WebSocketHandler struct {
	pipeline *diagnosis.Pipeline
}

func NewWebSocketHandler(pipeline *diagnosis.Pipeline) *WebSocketHandler {
	return &WebSocketHandler{
		pipeline: pipeline,
	}
}

func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket connection established")

	defer func() {
		c.Close()
		logger.Info("WebSocket connection closed")
	}()

	for {
		var msg struct {
			Type  string          `json:"type"`
			Input diagnosis.Input `json:"input"`
		}

		err := c.ReadJSON(&msg)
		if err != nil {
			logger.Error("Failed to read WebSocket message", zap.Error(err))
			break
		}

		if msg.Type != "diagnose" {
			continue
		}

		logger.Info("Processing WebSocket diagnosis",
			zap.String("equipment_model", msg.Input.EquipmentModel),
		)

		if err := h.runDiagnosis(c, msg.Input); err != nil {
			logger.Error("Failed to stream diagnosis", zap.Error(err))
			h.sendError(c, "Failed to process diagnosis")
		}
	}
}

func (h *WebSocketHandler) runDiagnosis(c *websocket.Conn, input diagnosis.Input) error {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	result := h.pipeline.Run(ctx, input)

	for _, stage := range result.History {
		if err := h.sendEvent(c, "stage", map[string]interface{}{
			"stage": string(stage),
		}); err != nil {
			return err
		}
	}

	if result.Err != nil {
		return h.sendEvent(c, "error", map[string]interface{}{
			"session_id": result.SessionID,
			"kind":       string(result.Err.Kind),
			"error":      result.Err.Message,
		})
	}

	return h.sendEvent(c, "complete", map[string]interface{}{
		"session_id": result.SessionID,
		"report":     result.Report,
		"elapsed_ms": result.ElapsedMS,
	})
}

func (h *WebSocketHandler) sendEvent(c *websocket.Conn, eventType string, payload map[string]interface{}) error {
	payload["type"] = eventType
	return c.WriteJSON(payload)
}

func (h *WebSocketHandler) sendError(c *websocket.Conn, errorMsg string) {
	msg := map[string]interface{}{
		"type":  "error",
		"error": errorMsg,
	}

	c.WriteJSON(msg)
}
