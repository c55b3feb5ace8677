package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gradesync-go-api/internal/dto"
	"github.com/noah-isme/gradesync-go-api/internal/utils"
	"github.com/noah-isme/gradesync-go-api/pkg/similarity"
)

// SimilarityHandler exposes the pairwise plagiarism estimate.
type SimilarityHandler struct {
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewSimilarityHandler builds a similarity handler instance.
func NewSimilarityHandler(validate *validator.Validate, logger zerolog.Logger) *SimilarityHandler {
	return &SimilarityHandler{
		validator: validate,
		logger:    logger.With().Str("component", "similarity_handler").Logger(),
	}
}

// Register attaches the similarity route.
func (h *SimilarityHandler) Register(router fiber.Router) {
	router.Post("", h.compare)
}

func (h *SimilarityHandler) compare(c *fiber.Ctx) error {
	var payload dto.SimilarityRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	report, err := similarity.Compare(payload.Left, payload.Right)
	if err != nil {
		if errors.Is(err, similarity.ErrNotComputable) {
			return utils.SendError(c, fiber.StatusUnprocessableEntity, "similarity not computable for empty documents")
		}
		h.logger.Error().Err(err).Msg("similarity comparison failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return utils.SendSuccess(c, "similarity computed", dto.SimilarityResponse{
		Percent: report.Percent,
		Band:    report.Band,
	})
}
