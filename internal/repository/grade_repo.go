package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gradesync-go-api/internal/models"
)

// GradeRepository defines data operations for grades.
type GradeRepository interface {
	ListBySubmission(ctx context.Context, submissionID uint) ([]models.Grade, error)
	Create(ctx context.Context, grade *models.Grade) error
	Update(ctx context.Context, grade *models.Grade) error
	SumBySubmission(ctx context.Context, submissionID uint) (float64, error)
}

type gradeRepository struct {
	db *gorm.DB
}

// NewGradeRepository instantiates the repository.
func NewGradeRepository(db *gorm.DB) GradeRepository {
	return &gradeRepository{db: db}
}

func (r *gradeRepository) ListBySubmission(ctx context.Context, submissionID uint) ([]models.Grade, error) {
	var grades []models.Grade
	if err := r.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("criterion_id ASC").
		Find(&grades).Error; err != nil {
		return nil, err
	}

	return grades, nil
}

func (r *gradeRepository) Create(ctx context.Context, grade *models.Grade) error {
	return r.db.WithContext(ctx).Create(grade).Error
}

func (r *gradeRepository) Update(ctx context.Context, grade *models.Grade) error {
	return r.db.WithContext(ctx).Save(grade).Error
}

func (r *gradeRepository) SumBySubmission(ctx context.Context, submissionID uint) (float64, error) {
	var sum *float64
	if err := r.db.WithContext(ctx).Model(&models.Grade{}).
		Where("submission_id = ?", submissionID).
		Select("SUM(score)").
		Scan(&sum).Error; err != nil {
		return 0, err
	}
	if sum == nil {
		return 0, nil
	}

	return *sum, nil
}
