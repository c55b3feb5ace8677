package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gradesync-go-api/internal/dto"
	"github.com/noah-isme/gradesync-go-api/internal/repository"
	"github.com/noah-isme/gradesync-go-api/internal/service"
	"github.com/noah-isme/gradesync-go-api/internal/utils"
)

// EscalationHandler exposes the second-opinion workflow: listing escalated
// submissions, assigning moderators and bulk approval.
type EscalationHandler struct {
	service service.EscalationService
	logger  zerolog.Logger
}

// NewEscalationHandler builds an escalation handler instance.
func NewEscalationHandler(service service.EscalationService, logger zerolog.Logger) *EscalationHandler {
	return &EscalationHandler{
		service: service,
		logger:  logger.With().Str("component", "escalation_handler").Logger(),
	}
}

// Register attaches the escalation routes.
func (h *EscalationHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("/bulk-approve", h.bulkApprove)
}

// AssignModerator returns the moderator assignment handler so the router
// can gate it tighter than the surrounding submissions group.
func (h *EscalationHandler) AssignModerator() fiber.Handler {
	return h.assignModerator
}

func (h *EscalationHandler) list(c *fiber.Ctx) error {
	filter := repository.SubmissionFilter{}
	examID, err := parseQueryUint(c, "exam_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	filter.ExamID = examID

	examinerID, err := parseQueryUint(c, "examiner_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	filter.ExaminerID = examinerID

	state := service.AssignmentState(c.Query("assignment", string(service.AssignmentAll)))
	switch state {
	case service.AssignmentAssigned, service.AssignmentUnassigned, service.AssignmentAll:
	default:
		return utils.SendError(c, fiber.StatusBadRequest, "invalid assignment filter")
	}

	escalated, err := h.service.ListEscalated(c.Context(), filter, state)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "escalated submissions", escalated)
}

func (h *EscalationHandler) assignModerator(c *fiber.Ctx) error {
	submissionID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.AssignModeratorRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	submission, err := h.service.AssignModerator(c.Context(), submissionID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	requestLogger(h.logger, c).Info().
		Uint("submission_id", submissionID).
		Uint("moderator_id", payload.ModeratorID).
		Msg("moderator assigned")

	return utils.SendSuccess(c, "moderator assigned", submission)
}

func (h *EscalationHandler) bulkApprove(c *fiber.Ctx) error {
	var payload dto.BulkApproveRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.BulkApprove(c.Context(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "bulk approval processed", result)
}

func (h *EscalationHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrSubmissionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "submission not found")
	case errors.Is(err, service.ErrModeratorConflict):
		return utils.SendError(c, fiber.StatusConflict, "moderator already assigned")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
