package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gradesync-go-api/internal/models"
)

// CriterionRepository defines read operations for rubric criteria. Criteria
// are published together with an exam revision and never change afterwards,
// so no update path is exposed.
type CriterionRepository interface {
	ListByExam(ctx context.Context, examID uint) ([]models.Criterion, error)
	GetByID(ctx context.Context, id uint) (models.Criterion, error)
	Seed(ctx context.Context, criteria []models.Criterion) error
}

type criterionRepository struct {
	db *gorm.DB
}

// NewCriterionRepository instantiates the repository.
func NewCriterionRepository(db *gorm.DB) CriterionRepository {
	return &criterionRepository{db: db}
}

func (r *criterionRepository) ListByExam(ctx context.Context, examID uint) ([]models.Criterion, error) {
	var criteria []models.Criterion
	if err := r.db.WithContext(ctx).
		Where("exam_id = ?", examID).
		Order("position ASC").
		Find(&criteria).Error; err != nil {
		return nil, err
	}

	return criteria, nil
}

func (r *criterionRepository) GetByID(ctx context.Context, id uint) (models.Criterion, error) {
	var criterion models.Criterion
	if err := r.db.WithContext(ctx).First(&criterion, id).Error; err != nil {
		return models.Criterion{}, err
	}

	return criterion, nil
}

func (r *criterionRepository) Seed(ctx context.Context, criteria []models.Criterion) error {
	if len(criteria) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&criteria).Error
}
