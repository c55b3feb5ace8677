package service

import (
	"context"
	"fmt"

	"github.com/noah-isme/gradesync-go-api/internal/models"
	"github.com/noah-isme/gradesync-go-api/internal/repository"
)

// storeRecalculator computes the authoritative total from committed grades
// and unresolved violation penalties, clamped at zero, and applies the
// configured passing cutoff.
type storeRecalculator struct {
	grades     repository.GradeRepository
	violations repository.ViolationRepository
	policy     GradingPolicy
}

// NewStoreRecalculator builds the default recalculator over the grade and
// violation stores.
func NewStoreRecalculator(grades repository.GradeRepository, violations repository.ViolationRepository, policy GradingPolicy) Recalculator {
	return &storeRecalculator{grades: grades, violations: violations, policy: policy}
}

func (r *storeRecalculator) Recalculate(ctx context.Context, submissionID uint) (float64, models.GradingStatus, error) {
	scoreSum, err := r.grades.SumBySubmission(ctx, submissionID)
	if err != nil {
		return 0, "", fmt.Errorf("sum grades for submission %d: %w", submissionID, err)
	}

	violations, err := r.violations.ListBySubmission(ctx, submissionID)
	if err != nil {
		return 0, "", fmt.Errorf("load violations for submission %d: %w", submissionID, err)
	}

	penaltySum := 0.0
	for _, violation := range violations {
		if !violation.Resolved {
			penaltySum += violation.Penalty
		}
	}

	total := models.FinalTotal(scoreSum, penaltySum)

	status := models.StatusFailed
	if total >= r.policy.PassingScore {
		status = models.StatusPassed
	}

	return total, status, nil
}
