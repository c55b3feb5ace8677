package dto

import (
	"time"

	"github.com/noah-isme/gradesync-go-api/internal/models"
)

// ViolationCreateRequest records a new infraction against a submission.
// The penalty is derived from the type, never supplied by the client.
type ViolationCreateRequest struct {
	Type        string `json:"type" validate:"required,oneof=keyword_flag late_submission plagiarism file_error"`
	Severity    string `json:"severity" validate:"required,oneof=info warning critical"`
	Description string `json:"description" validate:"required,min=3"`
}

// ViolationUpdateRequest amends an existing violation.
type ViolationUpdateRequest struct {
	Severity    *string `json:"severity" validate:"omitempty,oneof=info warning critical"`
	Description *string `json:"description" validate:"omitempty,min=3"`
	Resolved    *bool   `json:"resolved"`
}

// ViolationResponse serializes a violation.
type ViolationResponse struct {
	ID           uint      `json:"id"`
	SubmissionID uint      `json:"submission_id"`
	Type         string    `json:"type"`
	Severity     string    `json:"severity"`
	Penalty      float64   `json:"penalty"`
	Description  string    `json:"description"`
	DetectedAt   time.Time `json:"detected_at"`
	Resolved     bool      `json:"resolved"`
}

// NewViolationResponse converts a Violation model into a DTO.
func NewViolationResponse(model models.Violation) ViolationResponse {
	return ViolationResponse{
		ID:           model.ID,
		SubmissionID: model.SubmissionID,
		Type:         string(model.Type),
		Severity:     string(model.Severity),
		Penalty:      model.Penalty,
		Description:  model.Description,
		DetectedAt:   model.DetectedAt,
		Resolved:     model.Resolved,
	}
}

// NewViolationResponseSlice converts violation models into DTOs.
func NewViolationResponseSlice(violations []models.Violation) []ViolationResponse {
	responses := make([]ViolationResponse, 0, len(violations))
	for _, violation := range violations {
		responses = append(responses, NewViolationResponse(violation))
	}

	return responses
}
