package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/gradesync-go-api/internal/dto"
	"github.com/noah-isme/gradesync-go-api/internal/models"
	"github.com/noah-isme/gradesync-go-api/internal/observability"
	"github.com/noah-isme/gradesync-go-api/internal/repository"
)

// AssignmentState partitions escalated submissions by moderator assignment.
type AssignmentState string

const (
	AssignmentAssigned   AssignmentState = "assigned"
	AssignmentUnassigned AssignmentState = "unassigned"
	AssignmentAll        AssignmentState = "all"
)

// Escalates reports whether a graded submission needs a second opinion:
// total at or below the threshold, or any unresolved violation.
func Escalates(submission models.Submission, threshold float64) bool {
	if submission.HasUnresolvedViolation() {
		return true
	}
	return submission.TotalScore != nil && *submission.TotalScore <= threshold
}

// FilterEscalated returns the submissions satisfying the escalation
// predicate that lack an approval. Pure: the input is never mutated, and
// repeated calls over the same input yield the same result.
func FilterEscalated(submissions []models.Submission, threshold float64) []models.Submission {
	escalated := make([]models.Submission, 0)
	for _, submission := range submissions {
		if submission.Approved {
			continue
		}
		if Escalates(submission, threshold) {
			escalated = append(escalated, submission)
		}
	}
	return escalated
}

// FilterByAssignmentState partitions submissions by moderator assignment.
// Pure helper, does not mutate the input.
func FilterByAssignmentState(submissions []models.Submission, state AssignmentState) []models.Submission {
	if state == AssignmentAll || state == "" {
		return submissions
	}

	filtered := make([]models.Submission, 0, len(submissions))
	for _, submission := range submissions {
		assigned := submission.SecondExaminerID != nil
		if (state == AssignmentAssigned) == assigned {
			filtered = append(filtered, submission)
		}
	}
	return filtered
}

// EscalationService routes suspect submissions into the second-examiner
// review workflow.
type EscalationService interface {
	ListEscalated(ctx context.Context, filter repository.SubmissionFilter, state AssignmentState) ([]dto.SubmissionResponse, error)
	AssignModerator(ctx context.Context, submissionID uint, payload dto.AssignModeratorRequest) (dto.SubmissionResponse, error)
	BulkApprove(ctx context.Context, payload dto.BulkApproveRequest) (dto.BulkApproveResult, error)
	Evaluate(ctx context.Context, submission models.Submission)
}

type escalationService struct {
	submissions repository.SubmissionRepository
	policy      GradingPolicy
	validator   *validator.Validate
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewEscalationService constructs the escalation coordinator.
func NewEscalationService(submissions repository.SubmissionRepository, policy GradingPolicy, validate *validator.Validate, logger zerolog.Logger) EscalationService {
	return &escalationService{
		submissions: submissions,
		policy:      policy,
		validator:   validate,
		logger:      logger.With().Str("component", "escalation_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/gradesync-go-api/internal/service/escalation"),
		now:         time.Now,
	}
}

func (s *escalationService) ListEscalated(ctx context.Context, filter repository.SubmissionFilter, state AssignmentState) ([]dto.SubmissionResponse, error) {
	submissions, err := s.submissions.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	escalated := FilterEscalated(submissions, s.policy.EscalationScore)
	escalated = FilterByAssignmentState(escalated, state)

	return dto.NewSubmissionResponseSlice(escalated), nil
}

// AssignModerator records the second examiner for an escalated submission.
// At most one active assignment exists per submission; a second assignment
// attempt is refused and the existing assignment preserved.
func (s *escalationService) AssignModerator(ctx context.Context, submissionID uint, payload dto.AssignModeratorRequest) (dto.SubmissionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "escalation.assign_moderator", trace.WithAttributes(
		attribute.Int64("escalation.submission_id", int64(submissionID)),
		attribute.Int64("escalation.moderator_id", int64(payload.ModeratorID)),
	))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		return dto.SubmissionResponse{}, err
	}

	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		span.RecordError(err)
		return dto.SubmissionResponse{}, err
	}

	if submission.SecondExaminerID != nil {
		span.SetStatus(codes.Error, "moderator_conflict")
		return dto.SubmissionResponse{}, ErrModeratorConflict
	}

	moderatorID := payload.ModeratorID
	assignedAt := s.now()
	submission.SecondExaminerID = &moderatorID
	submission.ModeratorAssignedAt = &assignedAt

	if err := s.submissions.Update(ctx, &submission); err != nil {
		span.RecordError(err)
		return dto.SubmissionResponse{}, err
	}

	observability.ModeratorAssignmentsTotal().Inc()
	s.logger.Info().
		Uint("submission_id", submissionID).
		Uint("moderator_id", moderatorID).
		Msg("moderator assigned for second grading pass")

	return dto.NewSubmissionResponse(submission), nil
}

// BulkApprove processes each submission independently: one failure never
// aborts the remaining items, and the caller receives the aggregate.
func (s *escalationService) BulkApprove(ctx context.Context, payload dto.BulkApproveRequest) (dto.BulkApproveResult, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.BulkApproveResult{}, err
	}

	result := dto.BulkApproveResult{
		Approved: make([]uint, 0, len(payload.SubmissionIDs)),
		Failed:   make([]dto.BulkApproveFailure, 0),
	}

	for _, id := range payload.SubmissionIDs {
		if err := s.submissions.Approve(ctx, id); err != nil {
			reason := "approval failed"
			if errors.Is(err, gorm.ErrRecordNotFound) {
				reason = "submission not found"
			}
			s.logger.Warn().Err(err).Uint("submission_id", id).Msg("bulk approve item failed")
			result.Failed = append(result.Failed, dto.BulkApproveFailure{SubmissionID: id, Reason: reason})
			continue
		}
		result.Approved = append(result.Approved, id)
	}

	return result, nil
}

// Evaluate runs the escalation predicate after a terminal transition and
// records the outcome. Assignment itself stays a deliberate reviewer action.
func (s *escalationService) Evaluate(ctx context.Context, submission models.Submission) {
	if !Escalates(submission, s.policy.EscalationScore) {
		return
	}

	observability.EscalationsTotal().Inc()
	total := 0.0
	if submission.TotalScore != nil {
		total = *submission.TotalScore
	}
	s.logger.Info().
		Uint("submission_id", submission.ID).
		Float64("total_score", total).
		Bool("unresolved_violation", submission.HasUnresolvedViolation()).
		Msg("submission flagged for second opinion")
}
