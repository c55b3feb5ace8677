package models

import "time"

// ViolationType enumerates the recordable infraction kinds.
type ViolationType string

const (
	ViolationKeywordFlag    ViolationType = "keyword_flag"
	ViolationLateSubmission ViolationType = "late_submission"
	ViolationPlagiarism     ViolationType = "plagiarism"
	ViolationFileError      ViolationType = "file_error"
)

// ViolationSeverity classifies how serious a violation is.
type ViolationSeverity string

const (
	SeverityInfo     ViolationSeverity = "info"
	SeverityWarning  ViolationSeverity = "warning"
	SeverityCritical ViolationSeverity = "critical"
)

// violationPenalties is the fixed penalty table keyed by violation type.
var violationPenalties = map[ViolationType]float64{
	ViolationKeywordFlag:    0.5,
	ViolationLateSubmission: 1.0,
	ViolationPlagiarism:     10.0,
	ViolationFileError:      0.5,
}

// PenaltyFor returns the fixed penalty for a violation type, or false when
// the type is unknown.
func PenaltyFor(violationType ViolationType) (float64, bool) {
	penalty, ok := violationPenalties[violationType]
	return penalty, ok
}

// Violation records a penalty-bearing infraction against a submission.
type Violation struct {
	ID           uint              `gorm:"primaryKey" json:"id"`
	SubmissionID uint              `gorm:"not null;index" json:"submission_id"`
	Type         ViolationType     `gorm:"size:32;not null" json:"type"`
	Severity     ViolationSeverity `gorm:"size:16;not null" json:"severity"`
	Penalty      float64           `gorm:"not null" json:"penalty"`
	Description  string            `gorm:"type:text" json:"description"`
	DetectedAt   time.Time         `json:"detected_at"`
	Resolved     bool              `gorm:"not null;default:false" json:"resolved"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}
