package models

import "time"

// Criterion is one rubric line item for an exam revision. Criteria are
// immutable once published: no update path exists beyond seeding.
type Criterion struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ExamID    uint      `gorm:"not null;index" json:"exam_id"`
	Position  int       `gorm:"not null" json:"position"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	MaxScore  float64   `gorm:"not null" json:"max_score"`
	CreatedAt time.Time `json:"created_at"`
}
