package validation

import (
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var equipmentModelPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

type Config struct {
	MaxTriggerLength    int
	MaxMeasurements     int
	MaxDocumentSize     int
	AllowedContentTypes []string
	Logger              *zap.Logger
}

// Middleware enforces structural limits on the diagnose and document
// endpoints before the handlers parse the payload in earnest. Semantic
// validation (required fields, value ranges) stays in the pipeline.
func Middleware(cfg Config) fiber.Handler {
	if cfg.MaxTriggerLength == 0 {
		cfg.MaxTriggerLength = 5000
	}
	if cfg.MaxMeasurements == 0 {
		cfg.MaxMeasurements = 200
	}
	if cfg.MaxDocumentSize == 0 {
		cfg.MaxDocumentSize = 10 * 1024 * 1024
	}
	if len(cfg.AllowedContentTypes) == 0 {
		cfg.AllowedContentTypes = []string{"application/json"}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return func(c *fiber.Ctx) error {
		if c.Method() == "POST" || c.Method() == "PUT" {
			contentType := c.Get("Content-Type")
			if contentType != "" {
				allowed := false
				for _, allowedType := range cfg.AllowedContentTypes {
					if strings.Contains(contentType, allowedType) {
						allowed = true
						break
					}
				}
				if !allowed {
					return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
						"error": "Unsupported content type",
					})
				}
			}
		}

		path := c.Path()

		if strings.Contains(path, "/api/v1/diagnose") && c.Method() == "POST" {
			var req map[string]interface{}
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid JSON format",
				})
			}

			if model, ok := req["equipment_model"].(string); ok && model != "" {
				if !equipmentModelPattern.MatchString(model) {
					cfg.Logger.Warn("Rejected equipment model",
						zap.String("ip", c.IP()),
						zap.String("equipment_model", model),
					)
					return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
						"error": "Equipment model contains invalid characters",
					})
				}
			}

			if trigger, ok := req["trigger"].(string); ok && len(trigger) > cfg.MaxTriggerLength {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Trigger description exceeds maximum length",
				})
			}

			if measurements, ok := req["measurements"].([]interface{}); ok && len(measurements) > cfg.MaxMeasurements {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Too many measurements",
				})
			}
		}

		if strings.Contains(path, "/api/v1/documents") && c.Method() == "POST" {
			if len(c.Body()) > cfg.MaxDocumentSize {
				return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
					"error": "Document content exceeds maximum size",
				})
			}
		}

		return c.Next()
	}
}
