package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

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

// Recalculator produces the authoritative total and terminal status for a
// submission. It is the only source of truth for terminal results; the
// ledger's candidate total is display-only.
type Recalculator interface {
	Recalculate(ctx context.Context, submissionID uint) (float64, models.GradingStatus, error)
}

// EventPublisher pushes submission events to the other examiner dashboards.
type EventPublisher interface {
	Publish(ctx context.Context, kind string, payload dto.SubmissionEventPayload) error
}

// EscalationEvaluator is notified on every transition into a terminal state.
type EscalationEvaluator interface {
	Evaluate(ctx context.Context, submission models.Submission)
}

// GradingService drives the grading state machine for submissions:
// pending -> in_progress -> passed/failed, with reopen moving a terminal
// submission back to in_progress.
type GradingService interface {
	Ledger(ctx context.Context, submissionID, examinerID uint) (dto.LedgerResponse, error)
	SetScore(ctx context.Context, submissionID, criterionID, examinerID uint, payload dto.GradeSetRequest) (dto.LedgerResponse, error)
	CommitGrade(ctx context.Context, submissionID, criterionID, examinerID uint) (dto.GradeResponse, error)
	ReopenGrade(ctx context.Context, submissionID, criterionID, examinerID uint) error
	Finish(ctx context.Context, submissionID uint) (dto.SubmissionResponse, error)
}

type gradingService struct {
	submissions repository.SubmissionRepository
	criteria    repository.CriterionRepository
	grades      repository.GradeRepository
	recalc      Recalculator
	escalation  EscalationEvaluator
	publisher   EventPublisher
	logger      zerolog.Logger
	tracer      trace.Tracer

	mu       sync.Mutex
	ledgers  map[uint]*ScoreLedger
	inflight map[uint]struct{}
}

// NewGradingService constructs the grading service.
func NewGradingService(
	submissions repository.SubmissionRepository,
	criteria repository.CriterionRepository,
	grades repository.GradeRepository,
	recalc Recalculator,
	escalation EscalationEvaluator,
	publisher EventPublisher,
	logger zerolog.Logger,
) GradingService {
	return &gradingService{
		submissions: submissions,
		criteria:    criteria,
		grades:      grades,
		recalc:      recalc,
		escalation:  escalation,
		publisher:   publisher,
		logger:      logger.With().Str("component", "grading_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/gradesync-go-api/internal/service/grading"),
		ledgers:     make(map[uint]*ScoreLedger),
		inflight:    make(map[uint]struct{}),
	}
}

func (s *gradingService) Ledger(ctx context.Context, submissionID, examinerID uint) (dto.LedgerResponse, error) {
	ledger, err := s.openLedger(ctx, submissionID, examinerID)
	if err != nil {
		return dto.LedgerResponse{}, err
	}

	return ledger.Snapshot(), nil
}

func (s *gradingService) SetScore(ctx context.Context, submissionID, criterionID, examinerID uint, payload dto.GradeSetRequest) (dto.LedgerResponse, error) {
	ledger, err := s.openLedger(ctx, submissionID, examinerID)
	if err != nil {
		return dto.LedgerResponse{}, err
	}

	if payload.Note != nil {
		if err := ledger.SetNote(ctx, criterionID, *payload.Note); err != nil {
			return dto.LedgerResponse{}, err
		}
	}

	// GradeSetRequest carries the score explicitly even when nil: a nil
	// score together with a nil note is an explicit clear.
	if payload.Note == nil || payload.Score != nil {
		if err := ledger.SetScore(criterionID, payload.Score); err != nil {
			return dto.LedgerResponse{}, err
		}
	}

	return ledger.Snapshot(), nil
}

func (s *gradingService) CommitGrade(ctx context.Context, submissionID, criterionID, examinerID uint) (dto.GradeResponse, error) {
	ctx, span := s.tracer.Start(ctx, "grading.commit", trace.WithAttributes(
		attribute.Int64("grading.submission_id", int64(submissionID)),
		attribute.Int64("grading.criterion_id", int64(criterionID)),
	))
	defer span.End()

	ledger, err := s.openLedger(ctx, submissionID, examinerID)
	if err != nil {
		span.RecordError(err)
		return dto.GradeResponse{}, err
	}

	grade, err := ledger.Commit(ctx, criterionID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "commit_failed")
		return dto.GradeResponse{}, err
	}

	observability.GradeCommitsTotal().Inc()
	return dto.NewGradeResponse(grade), nil
}

func (s *gradingService) ReopenGrade(ctx context.Context, submissionID, criterionID, examinerID uint) error {
	ledger, err := s.openLedger(ctx, submissionID, examinerID)
	if err != nil {
		return err
	}

	if err := ledger.Reopen(criterionID); err != nil {
		return err
	}

	// Re-entry to editing moves a terminal submission back to in_progress;
	// the next finish re-evaluates and may flip the terminal state.
	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		return s.mapNotFound(err)
	}
	if submission.Status.IsTerminal() {
		if err := s.submissions.UpdateStatus(ctx, submissionID, models.StatusInProgress); err != nil {
			return fmt.Errorf("reopen submission %d: %w", submissionID, err)
		}
	}

	return nil
}

func (s *gradingService) Finish(ctx context.Context, submissionID uint) (dto.SubmissionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "grading.finish", trace.WithAttributes(
		attribute.Int64("grading.submission_id", int64(submissionID)),
	))
	defer span.End()

	if !s.acquireRecalc(submissionID) {
		span.SetStatus(codes.Error, "recalc_in_flight")
		return dto.SubmissionResponse{}, ErrRecalcInFlight
	}
	defer s.releaseRecalc(submissionID)

	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		span.RecordError(err)
		return dto.SubmissionResponse{}, s.mapNotFound(err)
	}
	if submission.Approved {
		return dto.SubmissionResponse{}, ErrAlreadyApproved
	}

	total, status, err := s.recalc.Recalculate(ctx, submissionID)
	if err != nil {
		// The submission stays in_progress; nothing is guessed locally.
		span.RecordError(err)
		span.SetStatus(codes.Error, "recalculation_failed")
		return dto.SubmissionResponse{}, fmt.Errorf("authoritative recalculation: %w", err)
	}

	if err := s.submissions.SetResult(ctx, submissionID, total, status); err != nil {
		span.RecordError(err)
		return dto.SubmissionResponse{}, fmt.Errorf("persist grading result: %w", err)
	}

	submission, err = s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		span.RecordError(err)
		return dto.SubmissionResponse{}, s.mapNotFound(err)
	}

	observability.GradingFinishesTotal().WithLabelValues(string(status)).Inc()
	s.escalation.Evaluate(ctx, submission)

	if s.publisher != nil {
		payload := dto.SubmissionEventPayload{
			SubmissionID: submission.ID,
			ExamID:       submission.ExamID,
			ExaminerID:   submission.ExaminerID,
			StudentID:    submission.StudentID,
			FileURL:      submission.FileURL,
			TotalScore:   submission.TotalScore,
			Status:       string(submission.Status),
		}
		if err := s.publisher.Publish(ctx, dto.EventSubmissionUpdated, payload); err != nil {
			s.logger.Warn().Err(err).Uint("submission_id", submissionID).Msg("failed to publish submission update")
		}
	}

	span.SetAttributes(
		attribute.Float64("grading.total", total),
		attribute.String("grading.status", string(status)),
	)

	return dto.NewSubmissionResponse(submission), nil
}

// openLedger returns the cached ledger for a submission, building it from
// the store on first access. A different examiner opening the same
// submission starts an independent grading pass with a fresh ledger.
func (s *gradingService) openLedger(ctx context.Context, submissionID, examinerID uint) (*ScoreLedger, error) {
	s.mu.Lock()
	ledger, ok := s.ledgers[submissionID]
	s.mu.Unlock()
	if ok && ledger.examinerID == examinerID {
		return ledger, nil
	}

	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		return nil, s.mapNotFound(err)
	}

	criteria, err := s.criteria.ListByExam(ctx, submission.ExamID)
	if err != nil {
		return nil, fmt.Errorf("load criteria for exam %d: %w", submission.ExamID, err)
	}

	grades, err := s.grades.ListBySubmission(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("load grades for submission %d: %w", submissionID, err)
	}

	ledger = NewScoreLedger(submissionID, examinerID, criteria, grades, s.grades, s.logger)
	ledger.OnFirstScore(func() {
		statusCtx := context.Background()
		current, err := s.submissions.GetByID(statusCtx, submissionID)
		if err != nil {
			s.logger.Warn().Err(err).Uint("submission_id", submissionID).Msg("failed to load submission for status update")
			return
		}
		// A terminal submission only re-enters grading through an explicit
		// reopen, never from a score landing on a fresh ledger.
		if current.Status.IsTerminal() {
			return
		}
		if err := s.submissions.UpdateStatus(statusCtx, submissionID, models.StatusInProgress); err != nil {
			s.logger.Warn().Err(err).Uint("submission_id", submissionID).Msg("failed to mark submission in progress")
		}
	})

	s.mu.Lock()
	s.ledgers[submissionID] = ledger
	s.mu.Unlock()

	return ledger, nil
}

func (s *gradingService) acquireRecalc(submissionID uint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[submissionID]; busy {
		return false
	}
	s.inflight[submissionID] = struct{}{}
	return true
}

func (s *gradingService) releaseRecalc(submissionID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, submissionID)
}

func (s *gradingService) mapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrSubmissionNotFound
	}
	return err
}
