package dto

import (
	"time"

	"github.com/noah-isme/gradesync-go-api/internal/models"
)

// GradeSetRequest updates the draft score and note for one criterion. A nil
// score clears the entry back to unscored.
type GradeSetRequest struct {
	Score *float64 `json:"score"`
	Note  *string  `json:"note"`
}

// GradeResponse serializes a persisted grade.
type GradeResponse struct {
	ID           uint      `json:"id"`
	SubmissionID uint      `json:"submission_id"`
	CriterionID  uint      `json:"criterion_id"`
	Score        float64   `json:"score"`
	Note         string    `json:"note"`
	GradedBy     uint      `json:"graded_by"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewGradeResponse converts a Grade model into a DTO.
func NewGradeResponse(model models.Grade) GradeResponse {
	return GradeResponse{
		ID:           model.ID,
		SubmissionID: model.SubmissionID,
		CriterionID:  model.CriterionID,
		Score:        model.Score,
		Note:         model.Note,
		GradedBy:     model.GradedBy,
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}
}

// NewGradeResponseSlice converts grade models into DTOs.
func NewGradeResponseSlice(grades []models.Grade) []GradeResponse {
	responses := make([]GradeResponse, 0, len(grades))
	for _, grade := range grades {
		responses = append(responses, NewGradeResponse(grade))
	}

	return responses
}

// LedgerEntryResponse shows the live ledger state for one criterion.
type LedgerEntryResponse struct {
	CriterionID uint     `json:"criterion_id"`
	Name        string   `json:"name"`
	MaxScore    float64  `json:"max_score"`
	Score       *float64 `json:"score"`
	Note        string   `json:"note"`
	State       string   `json:"state"`
}

// LedgerResponse shows the whole ledger plus the live candidate total.
type LedgerResponse struct {
	SubmissionID   uint                  `json:"submission_id"`
	Entries        []LedgerEntryResponse `json:"entries"`
	CandidateTotal float64               `json:"candidate_total"`
}
