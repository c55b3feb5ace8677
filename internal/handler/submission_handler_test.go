package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gradesync-go-api/internal/dto"
	"github.com/noah-isme/gradesync-go-api/internal/middleware"
	"github.com/noah-isme/gradesync-go-api/internal/models"
	"github.com/noah-isme/gradesync-go-api/internal/repository"
	"github.com/noah-isme/gradesync-go-api/internal/service"
)

type apiEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testEnv struct {
	app         *fiber.App
	db          *gorm.DB
	submissions repository.SubmissionRepository
	criteria    repository.CriterionRepository
	grading     service.GradingService
	role        string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Submission{}, &models.Criterion{}, &models.Grade{}, &models.Violation{}))

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.Nop()

	submissionRepo := repository.NewSubmissionRepository(db)
	criterionRepo := repository.NewCriterionRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	violationRepo := repository.NewViolationRepository(db)

	policy := service.DefaultGradingPolicy()
	recalc := service.NewStoreRecalculator(gradeRepo, violationRepo, policy)
	escalation := service.NewEscalationService(submissionRepo, policy, validate, logger)
	grading := service.NewGradingService(submissionRepo, criterionRepo, gradeRepo, recalc, escalation, nil, logger)
	submissions := service.NewSubmissionService(submissionRepo, violationRepo, recalc, nil, validate, logger)

	env := &testEnv{
		db:          db,
		submissions: submissionRepo,
		criteria:    criterionRepo,
		grading:     grading,
		role:        "examiner",
	}

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", uint(9))
		c.Locals("user_role", env.role)
		return c.Next()
	})

	submissionHandler := NewSubmissionHandler(submissions, logger)
	gradeHandler := NewGradeHandler(grading, logger)
	escalationHandler := NewEscalationHandler(escalation, logger)

	group := app.Group("/api/v1/submissions")
	submissionHandler.Register(group)
	gradeHandler.Register(group)
	// Mirror production wiring: assignment is gated to moderators.
	group.Post("/:id/moderator", middleware.WithAuth(
		escalationHandler.AssignModerator(),
		middleware.AuthOptions{Role: middleware.AuthRoleModerator},
	))
	submissionHandler.RegisterViolations(app.Group("/api/v1/violations"))
	escalationHandler.Register(app.Group("/api/v1/escalations"))

	env.app = app
	return env
}

func (e *testEnv) request(t *testing.T, method, path string, body any) (*http.Response, apiEnvelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)

	var envelope apiEnvelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return resp, envelope
}

func registerBody() map[string]any {
	return map[string]any{
		"exam_id":     7,
		"student_id":  101,
		"examiner_id": 9,
		"file_url":    "https://files.example.com/papers/101.pdf",
		"file_name":   "paper.pdf",
		"file_size":   20480,
		"file_type":   "application/pdf",
	}
}

func TestSubmissionRegisterAndList(t *testing.T) {
	env := newTestEnv(t)

	resp, envelope := env.request(t, http.MethodPost, "/api/v1/submissions", registerBody())
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	require.True(t, envelope.Success)

	var created dto.SubmissionResponse
	require.NoError(t, json.Unmarshal(envelope.Data, &created))
	require.NotZero(t, created.ID)
	require.Equal(t, models.StatusPending, created.Status)

	resp, envelope = env.request(t, http.MethodGet, "/api/v1/submissions?exam_id=7", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var listed []dto.SubmissionResponse
	require.NoError(t, json.Unmarshal(envelope.Data, &listed))
	require.Len(t, listed, 1)
	require.Equal(t, created.ID, listed[0].ID)
}

func TestSubmissionRegisterRejectsBadPayload(t *testing.T) {
	env := newTestEnv(t)

	body := registerBody()
	body["file_url"] = "not a url"
	resp, envelope := env.request(t, http.MethodPost, "/api/v1/submissions", body)

	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.False(t, envelope.Success)
}

func TestSubmissionDetailNotFound(t *testing.T) {
	env := newTestEnv(t)

	resp, envelope := env.request(t, http.MethodGet, "/api/v1/submissions/404", nil)

	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	require.False(t, envelope.Success)
}

func TestViolationLifecycleOverHTTP(t *testing.T) {
	env := newTestEnv(t)

	_, envelope := env.request(t, http.MethodPost, "/api/v1/submissions", registerBody())
	var created dto.SubmissionResponse
	require.NoError(t, json.Unmarshal(envelope.Data, &created))

	resp, envelope := env.request(t, http.MethodPost, fmt.Sprintf("/api/v1/submissions/%d/violations", created.ID), map[string]any{
		"type":        "late_submission",
		"severity":    "warning",
		"description": "received past the deadline",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var violation dto.ViolationResponse
	require.NoError(t, json.Unmarshal(envelope.Data, &violation))
	require.Equal(t, 1.0, violation.Penalty)

	resp, envelope = env.request(t, http.MethodPatch, fmt.Sprintf("/api/v1/violations/%d", violation.ID), map[string]any{
		"resolved": true,
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(envelope.Data, &violation))
	require.True(t, violation.Resolved)

	resp, _ = env.request(t, http.MethodDelete, fmt.Sprintf("/api/v1/violations/%d", violation.ID), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, _ = env.request(t, http.MethodDelete, fmt.Sprintf("/api/v1/violations/%d", violation.ID), nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestViolationUnknownTypeRejected(t *testing.T) {
	env := newTestEnv(t)

	_, envelope := env.request(t, http.MethodPost, "/api/v1/submissions", registerBody())
	var created dto.SubmissionResponse
	require.NoError(t, json.Unmarshal(envelope.Data, &created))

	resp, _ := env.request(t, http.MethodPost, fmt.Sprintf("/api/v1/submissions/%d/violations", created.ID), map[string]any{
		"type":        "vandalism",
		"severity":    "warning",
		"description": "not a recognised type",
	})

	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
