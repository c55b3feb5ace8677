package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gradesync-go-api/internal/dto"
	"github.com/noah-isme/gradesync-go-api/internal/service"
	"github.com/noah-isme/gradesync-go-api/internal/utils"
)

// GradeHandler exposes the per-criterion grading workflow: draft scores,
// commits, reopens and the finish action.
type GradeHandler struct {
	service service.GradingService
	logger  zerolog.Logger
}

// NewGradeHandler builds a grade handler instance.
func NewGradeHandler(service service.GradingService, logger zerolog.Logger) *GradeHandler {
	return &GradeHandler{
		service: service,
		logger:  logger.With().Str("component", "grade_handler").Logger(),
	}
}

// Register attaches the routes under /submissions/:id.
func (h *GradeHandler) Register(router fiber.Router) {
	router.Get("/:id/grades", h.ledger)
	router.Put("/:id/grades/:criterionId", h.setScore)
	router.Post("/:id/grades/:criterionId/commit", h.commit)
	router.Post("/:id/grades/:criterionId/reopen", h.reopen)
	router.Post("/:id/finish", h.finish)
}

func (h *GradeHandler) ledger(c *fiber.Ctx) error {
	submissionID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	ledger, err := h.service.Ledger(c.Context(), submissionID, userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "grading ledger", ledger)
}

func (h *GradeHandler) setScore(c *fiber.Ctx) error {
	submissionID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	criterionID, err := parseUintParam(c, "criterionId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.GradeSetRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	ledger, err := h.service.SetScore(c.Context(), submissionID, criterionID, userIDFromContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "score recorded", ledger)
}

func (h *GradeHandler) commit(c *fiber.Ctx) error {
	submissionID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	criterionID, err := parseUintParam(c, "criterionId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	grade, err := h.service.CommitGrade(c.Context(), submissionID, criterionID, userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "grade committed", grade)
}

func (h *GradeHandler) reopen(c *fiber.Ctx) error {
	submissionID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	criterionID, err := parseUintParam(c, "criterionId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.ReopenGrade(c.Context(), submissionID, criterionID, userIDFromContext(c)); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "grade reopened", nil)
}

func (h *GradeHandler) finish(c *fiber.Ctx) error {
	submissionID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	submission, err := h.service.Finish(c.Context(), submissionID)
	if err != nil {
		return h.handleError(c, err)
	}

	requestLogger(h.logger, c).Info().
		Uint("submission_id", submissionID).
		Str("status", string(submission.Status)).
		Msg("grading finished")

	return utils.SendSuccess(c, "grading finished", submission)
}

func (h *GradeHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrSubmissionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "submission not found")
	case errors.Is(err, service.ErrCriterionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "criterion not found")
	case errors.Is(err, service.ErrScoreOutOfRange), errors.Is(err, service.ErrScoreStep):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, service.ErrEntryCommitted), errors.Is(err, service.ErrNotCommitted):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, service.ErrNothingToCommit):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, service.ErrRecalcInFlight):
		return utils.SendError(c, fiber.StatusConflict, "recalculation already in flight")
	case errors.Is(err, service.ErrAlreadyApproved):
		return utils.SendError(c, fiber.StatusConflict, "submission already approved")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
