package validation

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(cfg Config) *fiber.App {
	app := fiber.New()
	app.Use(Middleware(cfg))
	app.Post("/api/v1/diagnose", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	app.Post("/api/v1/documents", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func postJSON(t *testing.T, app *fiber.App, path, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestValidationPassesWellFormedRequest(t *testing.T) {
	app := newTestApp(Config{})

	resp := postJSON(t, app, "/api/v1/diagnose",
		`{"equipment_model":"PSU-X","measurements":[{"test_point":"TP1","value":5.0}]}`)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestValidationRejectsInvalidEquipmentModel(t *testing.T) {
	// Config deliberately carries no Logger; a rejected model must still
	// produce a 400, not a panic.
	app := newTestApp(Config{})

	resp := postJSON(t, app, "/api/v1/diagnose",
		`{"equipment_model":"PSU X; DROP TABLE"}`)

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestValidationRejectsOversizedTrigger(t *testing.T) {
	app := newTestApp(Config{MaxTriggerLength: 10})

	resp := postJSON(t, app, "/api/v1/diagnose",
		`{"equipment_model":"PSU-X","trigger":"this trigger is longer than ten bytes"}`)

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestValidationRejectsTooManyMeasurements(t *testing.T) {
	app := newTestApp(Config{MaxMeasurements: 1})

	resp := postJSON(t, app, "/api/v1/diagnose",
		`{"equipment_model":"PSU-X","measurements":[{"test_point":"TP1","value":5.0},{"test_point":"TP2","value":12.0}]}`)

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestValidationRejectsUnsupportedContentType(t *testing.T) {
	app := newTestApp(Config{})

	req := httptest.NewRequest("POST", "/api/v1/diagnose", strings.NewReader("<xml/>"))
	req.Header.Set("Content-Type", "application/xml")
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusUnsupportedMediaType, resp.StatusCode)
}

func TestValidationRejectsOversizedDocument(t *testing.T) {
	app := newTestApp(Config{MaxDocumentSize: 16})

	resp := postJSON(t, app, "/api/v1/documents",
		`{"html_content":"well over sixteen bytes of markup"}`)

	assert.Equal(t, fiber.StatusRequestEntityTooLarge, resp.StatusCode)
}
