package service

import (
	"context"
	"sync"

	"gorm.io/gorm"

	"github.com/noah-isme/gradesync-go-api/internal/dto"
	"github.com/noah-isme/gradesync-go-api/internal/models"
	"github.com/noah-isme/gradesync-go-api/internal/repository"
)

type fakeSubmissionRepo struct {
	mu          sync.Mutex
	nextID      uint
	submissions map[uint]models.Submission
}

func newFakeSubmissionRepo(seed ...models.Submission) *fakeSubmissionRepo {
	repo := &fakeSubmissionRepo{submissions: make(map[uint]models.Submission)}
	for _, submission := range seed {
		if submission.ID > repo.nextID {
			repo.nextID = submission.ID
		}
		repo.submissions[submission.ID] = submission
	}
	return repo
}

func (r *fakeSubmissionRepo) List(_ context.Context, filter repository.SubmissionFilter) ([]models.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]models.Submission, 0, len(r.submissions))
	for _, submission := range r.submissions {
		if filter.ExamID != nil && submission.ExamID != *filter.ExamID {
			continue
		}
		if filter.ExaminerID != nil && submission.ExaminerID != *filter.ExaminerID {
			continue
		}
		if filter.Status != nil && string(submission.Status) != *filter.Status {
			continue
		}
		result = append(result, submission)
	}
	return result, nil
}

func (r *fakeSubmissionRepo) GetByID(_ context.Context, id uint) (models.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	submission, ok := r.submissions[id]
	if !ok {
		return models.Submission{}, gorm.ErrRecordNotFound
	}
	return submission, nil
}

func (r *fakeSubmissionRepo) Create(_ context.Context, submission *models.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	submission.ID = r.nextID
	r.submissions[submission.ID] = *submission
	return nil
}

func (r *fakeSubmissionRepo) Update(_ context.Context, submission *models.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.submissions[submission.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.submissions[submission.ID] = *submission
	return nil
}

func (r *fakeSubmissionRepo) UpdateStatus(_ context.Context, id uint, status models.GradingStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	submission, ok := r.submissions[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	submission.Status = status
	r.submissions[id] = submission
	return nil
}

func (r *fakeSubmissionRepo) SetResult(_ context.Context, id uint, total float64, status models.GradingStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	submission, ok := r.submissions[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	submission.TotalScore = &total
	submission.Status = status
	r.submissions[id] = submission
	return nil
}

func (r *fakeSubmissionRepo) Approve(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	submission, ok := r.submissions[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	submission.Approved = true
	r.submissions[id] = submission
	return nil
}

func (r *fakeSubmissionRepo) get(id uint) models.Submission {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.submissions[id]
}

func (r *fakeSubmissionRepo) setViolations(id uint, violations []models.Violation) {
	r.mu.Lock()
	defer r.mu.Unlock()

	submission := r.submissions[id]
	submission.Violations = violations
	r.submissions[id] = submission
}

type fakeCriterionRepo struct {
	criteria []models.Criterion
}

func (r *fakeCriterionRepo) ListByExam(_ context.Context, examID uint) ([]models.Criterion, error) {
	result := make([]models.Criterion, 0, len(r.criteria))
	for _, criterion := range r.criteria {
		if criterion.ExamID == examID {
			result = append(result, criterion)
		}
	}
	return result, nil
}

func (r *fakeCriterionRepo) GetByID(_ context.Context, id uint) (models.Criterion, error) {
	for _, criterion := range r.criteria {
		if criterion.ID == id {
			return criterion, nil
		}
	}
	return models.Criterion{}, gorm.ErrRecordNotFound
}

func (r *fakeCriterionRepo) Seed(_ context.Context, criteria []models.Criterion) error {
	r.criteria = append(r.criteria, criteria...)
	return nil
}

type fakeGradeRepo struct {
	mu     sync.Mutex
	nextID uint
	grades map[uint]models.Grade
}

func newFakeGradeRepo() *fakeGradeRepo {
	return &fakeGradeRepo{grades: make(map[uint]models.Grade)}
}

func (r *fakeGradeRepo) ListBySubmission(_ context.Context, submissionID uint) ([]models.Grade, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]models.Grade, 0)
	for _, grade := range r.grades {
		if grade.SubmissionID == submissionID {
			result = append(result, grade)
		}
	}
	return result, nil
}

func (r *fakeGradeRepo) Create(_ context.Context, grade *models.Grade) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	grade.ID = r.nextID
	r.grades[grade.ID] = *grade
	return nil
}

func (r *fakeGradeRepo) Update(_ context.Context, grade *models.Grade) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.grades[grade.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.grades[grade.ID] = *grade
	return nil
}

func (r *fakeGradeRepo) SumBySubmission(_ context.Context, submissionID uint) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sum := 0.0
	for _, grade := range r.grades {
		if grade.SubmissionID == submissionID {
			sum += grade.Score
		}
	}
	return sum, nil
}

type fakeViolationRepo struct {
	mu         sync.Mutex
	nextID     uint
	violations map[uint]models.Violation
}

func newFakeViolationRepo() *fakeViolationRepo {
	return &fakeViolationRepo{violations: make(map[uint]models.Violation)}
}

func (r *fakeViolationRepo) ListBySubmission(_ context.Context, submissionID uint) ([]models.Violation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]models.Violation, 0)
	for _, violation := range r.violations {
		if violation.SubmissionID == submissionID {
			result = append(result, violation)
		}
	}
	return result, nil
}

func (r *fakeViolationRepo) GetByID(_ context.Context, id uint) (models.Violation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	violation, ok := r.violations[id]
	if !ok {
		return models.Violation{}, gorm.ErrRecordNotFound
	}
	return violation, nil
}

func (r *fakeViolationRepo) Create(_ context.Context, violation *models.Violation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	violation.ID = r.nextID
	r.violations[violation.ID] = *violation
	return nil
}

func (r *fakeViolationRepo) Update(_ context.Context, violation *models.Violation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.violations[violation.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.violations[violation.ID] = *violation
	return nil
}

func (r *fakeViolationRepo) Delete(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.violations[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.violations, id)
	return nil
}

type publishedEvent struct {
	kind    string
	payload dto.SubmissionEventPayload
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *fakePublisher) Publish(_ context.Context, kind string, payload dto.SubmissionEventPayload) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{kind: kind, payload: payload})
	return nil
}

func (p *fakePublisher) published() []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedEvent(nil), p.events...)
}

type fakeEscalationEvaluator struct {
	mu        sync.Mutex
	evaluated []models.Submission
}

func (e *fakeEscalationEvaluator) Evaluate(_ context.Context, submission models.Submission) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.evaluated = append(e.evaluated, submission)
}
