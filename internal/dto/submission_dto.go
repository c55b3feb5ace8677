package dto

import (
	"time"

	"gorm.io/datatypes"

	"github.com/noah-isme/gradesync-go-api/internal/models"
)

// SubmissionRegisterRequest registers an externally ingested submission.
// Ingestion itself (archive parsing, file storage) happens upstream; only
// the references and declared file metadata arrive here.
type SubmissionRegisterRequest struct {
	ExamID     uint      `json:"exam_id" validate:"required,gt=0"`
	StudentID  uint      `json:"student_id" validate:"required,gt=0"`
	ExaminerID uint      `json:"examiner_id" validate:"required,gt=0"`
	FileURL    string    `json:"file_url" validate:"required,url"`
	FileName   string    `json:"file_name" validate:"required"`
	FileSize   int64     `json:"file_size" validate:"gte=0"`
	FileType   string    `json:"file_type" validate:"required"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// SubmissionFilter narrows submission listings.
type SubmissionFilter struct {
	ExamID     *uint   `query:"exam_id"`
	ExaminerID *uint   `query:"examiner_id"`
	Status     *string `query:"status" validate:"omitempty,oneof=pending in_progress passed failed"`
	Search     *string `query:"search"`
}

// FileMeta is the canonical shape stored in the submission's JSON column.
type FileMeta struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	Type string `json:"type"`
}

// SubmissionResponse is returned to API clients when viewing submissions.
type SubmissionResponse struct {
	ID                  uint                  `json:"id"`
	ExamID              uint                  `json:"exam_id"`
	StudentID           uint                  `json:"student_id"`
	ExaminerID          uint                  `json:"examiner_id"`
	SecondExaminerID    *uint                 `json:"second_examiner_id"`
	ModeratorAssignedAt *time.Time            `json:"moderator_assigned_at"`
	FileURL             string                `json:"file_url"`
	FileMeta            datatypes.JSON        `json:"file_meta"`
	UploadedAt          time.Time             `json:"uploaded_at"`
	TotalScore          *float64              `json:"total_score"`
	Status              models.GradingStatus  `json:"status"`
	Graded              bool                  `json:"graded"`
	Approved            bool                  `json:"approved"`
	Grades              []GradeResponse       `json:"grades,omitempty"`
	Violations          []ViolationResponse   `json:"violations,omitempty"`
	CreatedAt           time.Time             `json:"created_at"`
	UpdatedAt           time.Time             `json:"updated_at"`
}

// NewSubmissionResponse converts a Submission model into a DTO.
func NewSubmissionResponse(model models.Submission) SubmissionResponse {
	response := SubmissionResponse{
		ID:                  model.ID,
		ExamID:              model.ExamID,
		StudentID:           model.StudentID,
		ExaminerID:          model.ExaminerID,
		SecondExaminerID:    model.SecondExaminerID,
		ModeratorAssignedAt: model.ModeratorAssignedAt,
		FileURL:             model.FileURL,
		FileMeta:            model.FileMeta,
		UploadedAt:          model.UploadedAt,
		TotalScore:          model.TotalScore,
		Status:              model.Status,
		Graded:              model.IsGraded(),
		Approved:            model.Approved,
		CreatedAt:           model.CreatedAt,
		UpdatedAt:           model.UpdatedAt,
	}

	if len(model.Grades) > 0 {
		response.Grades = NewGradeResponseSlice(model.Grades)
	}
	if len(model.Violations) > 0 {
		response.Violations = NewViolationResponseSlice(model.Violations)
	}

	return response
}

// NewSubmissionResponseSlice converts submission models into DTOs.
func NewSubmissionResponseSlice(submissions []models.Submission) []SubmissionResponse {
	responses := make([]SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		responses = append(responses, NewSubmissionResponse(submission))
	}

	return responses
}

// BulkApproveRequest carries the submission ids for a bulk approval.
type BulkApproveRequest struct {
	SubmissionIDs []uint `json:"submission_ids" validate:"required,min=1,dive,gt=0"`
}

// BulkApproveFailure describes one item that could not be approved.
type BulkApproveFailure struct {
	SubmissionID uint   `json:"submission_id"`
	Reason       string `json:"reason"`
}

// BulkApproveResult aggregates a best-effort bulk approval outcome.
type BulkApproveResult struct {
	Approved []uint               `json:"approved"`
	Failed   []BulkApproveFailure `json:"failed"`
}
