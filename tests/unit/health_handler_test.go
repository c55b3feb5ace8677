package unit_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gradesync-go-api/internal/config"
	"github.com/noah-isme/gradesync-go-api/internal/handler"
)

func TestHealthCheckReportsServiceMetadata(t *testing.T) {
	cfg := config.Config{AppName: "GradeSync API", AppEnv: "test"}

	app := fiber.New()
	app.Get("/api/v1/health", handler.HealthCheck(cfg))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var envelope struct {
		Success bool                   `json:"success"`
		Message string                 `json:"message"`
		Data    handler.HealthResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))

	require.True(t, envelope.Success)
	require.Equal(t, "ok", envelope.Data.Status)
	require.Equal(t, "GradeSync API", envelope.Data.Service)
	require.Equal(t, "test", envelope.Data.Environment)
	require.False(t, envelope.Data.Timestamp.IsZero())
}
