package models

import "time"

// Grade ties one criterion to one submission. A persisted row always has an
// id; the draft/committed duality lives in the score ledger, which remembers
// the server id so a re-commit after reopen becomes an update.
type Grade struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SubmissionID uint      `gorm:"not null;index:idx_grade_submission_criterion,unique" json:"submission_id"`
	CriterionID  uint      `gorm:"not null;index:idx_grade_submission_criterion,unique" json:"criterion_id"`
	Score        float64   `gorm:"not null" json:"score"`
	Note         string    `gorm:"type:text" json:"note"`
	GradedBy     uint      `gorm:"not null" json:"graded_by"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
