package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/gradesync-go-api/internal/dto"
	"github.com/noah-isme/gradesync-go-api/internal/models"
	"github.com/noah-isme/gradesync-go-api/internal/repository"
)

// SubmissionService registers ingested submissions and manages their
// violation records.
type SubmissionService interface {
	Register(ctx context.Context, payload dto.SubmissionRegisterRequest) (dto.SubmissionResponse, error)
	List(ctx context.Context, filter dto.SubmissionFilter) ([]dto.SubmissionResponse, error)
	Detail(ctx context.Context, id uint) (dto.SubmissionResponse, error)
	AddViolation(ctx context.Context, submissionID uint, payload dto.ViolationCreateRequest) (dto.ViolationResponse, error)
	UpdateViolation(ctx context.Context, violationID uint, payload dto.ViolationUpdateRequest) (dto.ViolationResponse, error)
	DeleteViolation(ctx context.Context, violationID uint) error
}

type submissionService struct {
	submissions repository.SubmissionRepository
	violations  repository.ViolationRepository
	recalc      Recalculator
	publisher   EventPublisher
	validator   *validator.Validate
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewSubmissionService constructs the submission service.
func NewSubmissionService(
	submissions repository.SubmissionRepository,
	violations repository.ViolationRepository,
	recalc Recalculator,
	publisher EventPublisher,
	validate *validator.Validate,
	logger zerolog.Logger,
) SubmissionService {
	return &submissionService{
		submissions: submissions,
		violations:  violations,
		recalc:      recalc,
		publisher:   publisher,
		validator:   validate,
		sanitizer:   bluemonday.StrictPolicy(),
		logger:      logger.With().Str("component", "submission_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/gradesync-go-api/internal/service/submission"),
		now:         time.Now,
	}
}

// Register stores an ingested submission in the pending state. When the
// declared MIME type disagrees with the file extension, a file_error
// violation is attached automatically so examiners see the discrepancy.
func (s *submissionService) Register(ctx context.Context, payload dto.SubmissionRegisterRequest) (dto.SubmissionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "submission.register", trace.WithAttributes(
		attribute.Int64("submission.exam_id", int64(payload.ExamID)),
		attribute.Int64("submission.student_id", int64(payload.StudentID)),
	))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		return dto.SubmissionResponse{}, err
	}

	meta, err := json.Marshal(dto.FileMeta{
		Name: payload.FileName,
		Size: payload.FileSize,
		Type: payload.FileType,
	})
	if err != nil {
		return dto.SubmissionResponse{}, fmt.Errorf("encode file metadata: %w", err)
	}

	uploadedAt := payload.UploadedAt
	if uploadedAt.IsZero() {
		uploadedAt = s.now()
	}

	submission := models.Submission{
		ExamID:     payload.ExamID,
		StudentID:  payload.StudentID,
		ExaminerID: payload.ExaminerID,
		FileURL:    payload.FileURL,
		FileMeta:   datatypes.JSON(meta),
		UploadedAt: uploadedAt,
		Status:     models.StatusPending,
	}

	if err := s.submissions.Create(ctx, &submission); err != nil {
		span.RecordError(err)
		return dto.SubmissionResponse{}, fmt.Errorf("create submission: %w", err)
	}

	if !declaredTypeMatchesName(payload.FileType, payload.FileName) {
		penalty, _ := models.PenaltyFor(models.ViolationFileError)
		violation := models.Violation{
			SubmissionID: submission.ID,
			Type:         models.ViolationFileError,
			Severity:     models.SeverityWarning,
			Penalty:      penalty,
			Description:  fmt.Sprintf("declared type %q does not match file name %q", payload.FileType, payload.FileName),
			DetectedAt:   s.now(),
		}
		if err := s.violations.Create(ctx, &violation); err != nil {
			s.logger.Warn().Err(err).Uint("submission_id", submission.ID).Msg("failed to record file type violation")
		} else {
			submission.Violations = append(submission.Violations, violation)
		}
	}

	s.logger.Info().
		Uint("submission_id", submission.ID).
		Uint("exam_id", submission.ExamID).
		Uint("student_id", submission.StudentID).
		Msg("submission registered")

	if s.publisher != nil {
		event := dto.SubmissionEventPayload{
			SubmissionID: submission.ID,
			ExamID:       submission.ExamID,
			ExaminerID:   submission.ExaminerID,
			StudentID:    submission.StudentID,
			FileURL:      submission.FileURL,
			FileName:     payload.FileName,
			Status:       string(submission.Status),
		}
		if err := s.publisher.Publish(ctx, dto.EventSubmissionCreated, event); err != nil {
			s.logger.Warn().Err(err).Uint("submission_id", submission.ID).Msg("failed to publish submission created event")
		}
	}

	return dto.NewSubmissionResponse(submission), nil
}

func (s *submissionService) List(ctx context.Context, filter dto.SubmissionFilter) ([]dto.SubmissionResponse, error) {
	if err := s.validator.Struct(filter); err != nil {
		return nil, err
	}

	submissions, err := s.submissions.List(ctx, repository.SubmissionFilter{
		ExamID:     filter.ExamID,
		ExaminerID: filter.ExaminerID,
		Status:     filter.Status,
	})
	if err != nil {
		return nil, err
	}

	return dto.NewSubmissionResponseSlice(submissions), nil
}

func (s *submissionService) Detail(ctx context.Context, id uint) (dto.SubmissionResponse, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	return dto.NewSubmissionResponse(submission), nil
}

// AddViolation records an infraction with its penalty derived from the fixed
// table. Recording against an approved submission is refused; recording
// against an already graded one retroactively recalculates the result.
func (s *submissionService) AddViolation(ctx context.Context, submissionID uint, payload dto.ViolationCreateRequest) (dto.ViolationResponse, error) {
	ctx, span := s.tracer.Start(ctx, "submission.add_violation", trace.WithAttributes(
		attribute.Int64("submission.id", int64(submissionID)),
		attribute.String("violation.type", payload.Type),
	))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		return dto.ViolationResponse{}, err
	}

	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ViolationResponse{}, ErrSubmissionNotFound
		}
		span.RecordError(err)
		return dto.ViolationResponse{}, err
	}
	if submission.Approved {
		return dto.ViolationResponse{}, ErrAlreadyApproved
	}

	violationType := models.ViolationType(payload.Type)
	penalty, known := models.PenaltyFor(violationType)
	if !known {
		return dto.ViolationResponse{}, ErrUnknownViolationType
	}

	violation := models.Violation{
		SubmissionID: submissionID,
		Type:         violationType,
		Severity:     models.ViolationSeverity(payload.Severity),
		Penalty:      penalty,
		Description:  s.sanitizer.Sanitize(payload.Description),
		DetectedAt:   s.now(),
	}

	if err := s.violations.Create(ctx, &violation); err != nil {
		span.RecordError(err)
		return dto.ViolationResponse{}, fmt.Errorf("create violation: %w", err)
	}

	s.logger.Info().
		Uint("submission_id", submissionID).
		Str("type", payload.Type).
		Float64("penalty", penalty).
		Msg("violation recorded")

	if err := s.retroactiveRecalc(ctx, submission); err != nil {
		s.logger.Warn().Err(err).Uint("submission_id", submissionID).Msg("retroactive recalculation failed")
	}

	return dto.NewViolationResponse(violation), nil
}

// UpdateViolation amends severity, description, or the resolved flag.
// Resolution changes affect the penalty sum, so graded submissions are
// recalculated afterwards.
func (s *submissionService) UpdateViolation(ctx context.Context, violationID uint, payload dto.ViolationUpdateRequest) (dto.ViolationResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ViolationResponse{}, err
	}

	violation, err := s.violations.GetByID(ctx, violationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ViolationResponse{}, ErrViolationNotFound
		}
		return dto.ViolationResponse{}, err
	}

	submission, err := s.submissions.GetByID(ctx, violation.SubmissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ViolationResponse{}, ErrSubmissionNotFound
		}
		return dto.ViolationResponse{}, err
	}
	if submission.Approved {
		return dto.ViolationResponse{}, ErrAlreadyApproved
	}

	if payload.Severity != nil {
		violation.Severity = models.ViolationSeverity(*payload.Severity)
	}
	if payload.Description != nil {
		violation.Description = s.sanitizer.Sanitize(*payload.Description)
	}
	resolvedChanged := payload.Resolved != nil && violation.Resolved != *payload.Resolved
	if payload.Resolved != nil {
		violation.Resolved = *payload.Resolved
	}

	if err := s.violations.Update(ctx, &violation); err != nil {
		return dto.ViolationResponse{}, fmt.Errorf("update violation %d: %w", violationID, err)
	}

	if resolvedChanged {
		if err := s.retroactiveRecalc(ctx, submission); err != nil {
			s.logger.Warn().Err(err).Uint("submission_id", submission.ID).Msg("retroactive recalculation failed")
		}
	}

	return dto.NewViolationResponse(violation), nil
}

func (s *submissionService) DeleteViolation(ctx context.Context, violationID uint) error {
	violation, err := s.violations.GetByID(ctx, violationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrViolationNotFound
		}
		return err
	}

	submission, err := s.submissions.GetByID(ctx, violation.SubmissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSubmissionNotFound
		}
		return err
	}
	if submission.Approved {
		return ErrAlreadyApproved
	}

	if err := s.violations.Delete(ctx, violationID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrViolationNotFound
		}
		return err
	}

	if err := s.retroactiveRecalc(ctx, submission); err != nil {
		s.logger.Warn().Err(err).Uint("submission_id", submission.ID).Msg("retroactive recalculation failed")
	}

	return nil
}

// retroactiveRecalc refreshes the stored total of an already graded
// submission after its penalty sum changed, and pushes the update to
// listening dashboards. Pending and in-progress submissions keep their
// result for the next finish.
func (s *submissionService) retroactiveRecalc(ctx context.Context, submission models.Submission) error {
	if !submission.Status.IsTerminal() {
		return nil
	}

	total, status, err := s.recalc.Recalculate(ctx, submission.ID)
	if err != nil {
		return fmt.Errorf("recalculate submission %d: %w", submission.ID, err)
	}

	if err := s.submissions.SetResult(ctx, submission.ID, total, status); err != nil {
		return fmt.Errorf("persist recalculated result: %w", err)
	}

	if s.publisher != nil {
		event := dto.SubmissionEventPayload{
			SubmissionID: submission.ID,
			ExamID:       submission.ExamID,
			ExaminerID:   submission.ExaminerID,
			StudentID:    submission.StudentID,
			FileURL:      submission.FileURL,
			TotalScore:   &total,
			Status:       string(status),
		}
		if err := s.publisher.Publish(ctx, dto.EventSubmissionUpdated, event); err != nil {
			s.logger.Warn().Err(err).Uint("submission_id", submission.ID).Msg("failed to publish submission update")
		}
	}

	return nil
}

// declaredTypeMatchesName checks the declared MIME type against the file
// name's extension. Unknown declared types pass: the check only flags a
// positive disagreement.
func declaredTypeMatchesName(declaredType, fileName string) bool {
	mime := mimetype.Lookup(declaredType)
	if mime == nil {
		return true
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	if ext == "" {
		return false
	}

	for m := mime; m != nil; m = m.Parent() {
		if strings.EqualFold(m.Extension(), ext) {
			return true
		}
	}

	return false
}
