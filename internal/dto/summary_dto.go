package dto

import "github.com/noah-isme/gradesync-go-api/internal/models"

// SubmissionSummary is the reconciler's canonical row for one submission in
// the examiner's working set.
type SubmissionSummary struct {
	ID          uint                 `json:"id"`
	ExamID      uint                 `json:"exam_id"`
	ExaminerID  uint                 `json:"examiner_id"`
	StudentID   uint                 `json:"student_id"`
	StudentName string               `json:"student_name"`
	FileURL     string               `json:"file_url"`
	FileName    string               `json:"file_name"`
	TotalScore  *float64             `json:"total_score"`
	Status      models.GradingStatus `json:"status"`
	Graded      bool                 `json:"graded"`
}

// NewSubmissionSummary builds a summary from a stored submission.
func NewSubmissionSummary(model models.Submission) SubmissionSummary {
	return SubmissionSummary{
		ID:         model.ID,
		ExamID:     model.ExamID,
		ExaminerID: model.ExaminerID,
		StudentID:  model.StudentID,
		FileURL:    model.FileURL,
		TotalScore: model.TotalScore,
		Status:     model.Status,
		Graded:     model.IsGraded(),
	}
}

// NewSummaryFromEvent builds a summary from a normalized push payload.
func NewSummaryFromEvent(payload SubmissionEventPayload) SubmissionSummary {
	status := models.GradingStatus(payload.Status)
	return SubmissionSummary{
		ID:          payload.SubmissionID,
		ExamID:      payload.ExamID,
		ExaminerID:  payload.ExaminerID,
		StudentID:   payload.StudentID,
		StudentName: payload.StudentName,
		FileURL:     payload.FileURL,
		FileName:    payload.FileName,
		TotalScore:  payload.TotalScore,
		Status:      status,
		Graded:      status.IsTerminal(),
	}
}
