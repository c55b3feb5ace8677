package models

import (
	"time"

	"gorm.io/datatypes"
)

// GradingStatus captures the lifecycle state of a submission's grading pass.
type GradingStatus string

const (
	// StatusPending means no grade has been touched yet.
	StatusPending GradingStatus = "pending"
	// StatusInProgress means at least one score mutation happened.
	StatusInProgress GradingStatus = "in_progress"
	// StatusPassed is a terminal state assigned by the authoritative recalculation.
	StatusPassed GradingStatus = "passed"
	// StatusFailed is a terminal state assigned by the authoritative recalculation.
	StatusFailed GradingStatus = "failed"
)

// IsTerminal reports whether the status is one of the terminal grading states.
func (s GradingStatus) IsTerminal() bool {
	return s == StatusPassed || s == StatusFailed
}

// Submission represents one student's exam paper under grading.
type Submission struct {
	ID                  uint           `gorm:"primaryKey" json:"id"`
	ExamID              uint           `gorm:"not null;index" json:"exam_id"`
	StudentID           uint           `gorm:"not null;index" json:"student_id"`
	ExaminerID          uint           `gorm:"not null;index" json:"examiner_id"`
	SecondExaminerID    *uint          `json:"second_examiner_id"`
	ModeratorAssignedAt *time.Time     `json:"moderator_assigned_at"`
	FileURL             string         `gorm:"size:512" json:"file_url"`
	FileMeta            datatypes.JSON `json:"file_meta"`
	UploadedAt          time.Time      `json:"uploaded_at"`
	TotalScore          *float64       `json:"total_score"`
	Status              GradingStatus  `gorm:"size:32;not null;default:pending" json:"status"`
	Approved            bool           `gorm:"not null;default:false" json:"approved"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
	Grades              []Grade        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"grades"`
	Violations          []Violation    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"violations"`
}

// IsGraded reports whether the submission reached a terminal grading state.
func (s Submission) IsGraded() bool {
	return s.Status.IsTerminal()
}

// HasUnresolvedViolation reports whether any recorded violation is still open.
func (s Submission) HasUnresolvedViolation() bool {
	for _, violation := range s.Violations {
		if !violation.Resolved {
			return true
		}
	}
	return false
}

// UnresolvedPenaltySum adds up the penalties of all unresolved violations.
func (s Submission) UnresolvedPenaltySum() float64 {
	sum := 0.0
	for _, violation := range s.Violations {
		if !violation.Resolved {
			sum += violation.Penalty
		}
	}
	return sum
}

// FinalTotal clamps the difference between the committed score sum and the
// unresolved penalty sum at zero.
func FinalTotal(scoreSum, penaltySum float64) float64 {
	total := scoreSum - penaltySum
	if total < 0 {
		return 0
	}
	return total
}
