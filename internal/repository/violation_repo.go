package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gradesync-go-api/internal/models"
)

// ViolationRepository defines data operations for violations.
type ViolationRepository interface {
	ListBySubmission(ctx context.Context, submissionID uint) ([]models.Violation, error)
	GetByID(ctx context.Context, id uint) (models.Violation, error)
	Create(ctx context.Context, violation *models.Violation) error
	Update(ctx context.Context, violation *models.Violation) error
	Delete(ctx context.Context, id uint) error
}

type violationRepository struct {
	db *gorm.DB
}

// NewViolationRepository instantiates the repository.
func NewViolationRepository(db *gorm.DB) ViolationRepository {
	return &violationRepository{db: db}
}

func (r *violationRepository) ListBySubmission(ctx context.Context, submissionID uint) ([]models.Violation, error) {
	var violations []models.Violation
	if err := r.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("detected_at ASC").
		Find(&violations).Error; err != nil {
		return nil, err
	}

	return violations, nil
}

func (r *violationRepository) GetByID(ctx context.Context, id uint) (models.Violation, error) {
	var violation models.Violation
	if err := r.db.WithContext(ctx).First(&violation, id).Error; err != nil {
		return models.Violation{}, err
	}

	return violation, nil
}

func (r *violationRepository) Create(ctx context.Context, violation *models.Violation) error {
	return r.db.WithContext(ctx).Create(violation).Error
}

func (r *violationRepository) Update(ctx context.Context, violation *models.Violation) error {
	return r.db.WithContext(ctx).Save(violation).Error
}

func (r *violationRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Violation{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}
