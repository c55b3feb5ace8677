package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gradesync-go-api/internal/dto"
	"github.com/noah-isme/gradesync-go-api/internal/models"
)

type gradingFixture struct {
	submissions *fakeSubmissionRepo
	criteria    *fakeCriterionRepo
	grades      *fakeGradeRepo
	violations  *fakeViolationRepo
	escalation  *fakeEscalationEvaluator
	publisher   *fakePublisher
	service     GradingService
}

func newGradingFixture(t *testing.T, criteria []models.Criterion, submissions ...models.Submission) *gradingFixture {
	t.Helper()

	fixture := &gradingFixture{
		submissions: newFakeSubmissionRepo(submissions...),
		criteria:    &fakeCriterionRepo{criteria: criteria},
		grades:      newFakeGradeRepo(),
		violations:  newFakeViolationRepo(),
		escalation:  &fakeEscalationEvaluator{},
		publisher:   &fakePublisher{},
	}

	recalc := NewStoreRecalculator(fixture.grades, fixture.violations, DefaultGradingPolicy())
	fixture.service = NewGradingService(
		fixture.submissions,
		fixture.criteria,
		fixture.grades,
		recalc,
		fixture.escalation,
		fixture.publisher,
		zerolog.Nop(),
	)
	return fixture
}

func pendingSubmission(id, examID, examinerID uint) models.Submission {
	return models.Submission{
		ID:         id,
		ExamID:     examID,
		StudentID:  100 + id,
		ExaminerID: examinerID,
		Status:     models.StatusPending,
	}
}

func TestGradingFirstScoreMarksInProgress(t *testing.T) {
	fixture := newGradingFixture(t, testCriteria(), pendingSubmission(1, 7, 9))

	_, err := fixture.service.SetScore(context.Background(), 1, 1, 9, dto.GradeSetRequest{Score: floatPtr(3)})

	require.NoError(t, err)
	require.Equal(t, models.StatusInProgress, fixture.submissions.get(1).Status)
}

func TestGradingFinishPassesAtCutoff(t *testing.T) {
	fixture := newGradingFixture(t, testCriteria(), pendingSubmission(1, 7, 9))
	ctx := context.Background()

	_, err := fixture.service.SetScore(ctx, 1, 1, 9, dto.GradeSetRequest{Score: floatPtr(4)})
	require.NoError(t, err)
	_, err = fixture.service.SetScore(ctx, 1, 2, 9, dto.GradeSetRequest{Score: floatPtr(5)})
	require.NoError(t, err)
	_, err = fixture.service.CommitGrade(ctx, 1, 1, 9)
	require.NoError(t, err)
	_, err = fixture.service.CommitGrade(ctx, 1, 2, 9)
	require.NoError(t, err)

	result, err := fixture.service.Finish(ctx, 1)

	require.NoError(t, err)
	require.Equal(t, models.StatusPassed, result.Status)
	require.Equal(t, 9.0, *result.TotalScore)
	require.True(t, result.Graded)

	events := fixture.publisher.published()
	require.Len(t, events, 1)
	require.Equal(t, dto.EventSubmissionUpdated, events[0].kind)
	require.Equal(t, "passed", events[0].payload.Status)
}

func TestGradingPlagiarismPenaltyClampsToZero(t *testing.T) {
	fixture := newGradingFixture(t, testCriteria(), pendingSubmission(1, 7, 9))
	ctx := context.Background()

	_, err := fixture.service.SetScore(ctx, 1, 1, 9, dto.GradeSetRequest{Score: floatPtr(8)})
	require.NoError(t, err)
	_, err = fixture.service.CommitGrade(ctx, 1, 1, 9)
	require.NoError(t, err)

	penalty, _ := models.PenaltyFor(models.ViolationPlagiarism)
	require.NoError(t, fixture.violations.Create(ctx, &models.Violation{
		SubmissionID: 1,
		Type:         models.ViolationPlagiarism,
		Severity:     models.SeverityCritical,
		Penalty:      penalty,
	}))

	result, err := fixture.service.Finish(ctx, 1)

	require.NoError(t, err)
	require.Equal(t, models.StatusFailed, result.Status)
	require.Zero(t, *result.TotalScore)
	require.Len(t, fixture.escalation.evaluated, 1)
}

func TestGradingResolvedViolationCarriesNoPenalty(t *testing.T) {
	fixture := newGradingFixture(t, testCriteria(), pendingSubmission(1, 7, 9))
	ctx := context.Background()

	_, err := fixture.service.SetScore(ctx, 1, 1, 9, dto.GradeSetRequest{Score: floatPtr(8)})
	require.NoError(t, err)
	_, err = fixture.service.CommitGrade(ctx, 1, 1, 9)
	require.NoError(t, err)

	require.NoError(t, fixture.violations.Create(ctx, &models.Violation{
		SubmissionID: 1,
		Type:         models.ViolationLateSubmission,
		Severity:     models.SeverityWarning,
		Penalty:      1.0,
		Resolved:     true,
	}))

	result, err := fixture.service.Finish(ctx, 1)

	require.NoError(t, err)
	require.Equal(t, models.StatusPassed, result.Status)
	require.Equal(t, 8.0, *result.TotalScore)
}

func TestGradingFinishOnApprovedRefused(t *testing.T) {
	approved := pendingSubmission(1, 7, 9)
	approved.Approved = true
	fixture := newGradingFixture(t, testCriteria(), approved)

	_, err := fixture.service.Finish(context.Background(), 1)

	require.ErrorIs(t, err, ErrAlreadyApproved)
}

func TestGradingFinishUnknownSubmission(t *testing.T) {
	fixture := newGradingFixture(t, testCriteria())

	_, err := fixture.service.Finish(context.Background(), 404)

	require.ErrorIs(t, err, ErrSubmissionNotFound)
}

type failingRecalculator struct{}

func (failingRecalculator) Recalculate(context.Context, uint) (float64, models.GradingStatus, error) {
	return 0, "", errors.New("store unavailable")
}

func TestGradingFinishRecalcErrorKeepsState(t *testing.T) {
	submission := pendingSubmission(1, 7, 9)
	submission.Status = models.StatusInProgress
	submissions := newFakeSubmissionRepo(submission)

	service := NewGradingService(
		submissions,
		&fakeCriterionRepo{criteria: testCriteria()},
		newFakeGradeRepo(),
		failingRecalculator{},
		&fakeEscalationEvaluator{},
		&fakePublisher{},
		zerolog.Nop(),
	)

	_, err := service.Finish(context.Background(), 1)

	require.Error(t, err)
	require.Equal(t, models.StatusInProgress, submissions.get(1).Status)
	require.Nil(t, submissions.get(1).TotalScore)
}

func TestGradingReopenTerminalReturnsInProgress(t *testing.T) {
	fixture := newGradingFixture(t, testCriteria(), pendingSubmission(1, 7, 9))
	ctx := context.Background()

	_, err := fixture.service.SetScore(ctx, 1, 1, 9, dto.GradeSetRequest{Score: floatPtr(8)})
	require.NoError(t, err)
	_, err = fixture.service.CommitGrade(ctx, 1, 1, 9)
	require.NoError(t, err)
	_, err = fixture.service.Finish(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, models.StatusPassed, fixture.submissions.get(1).Status)

	require.NoError(t, fixture.service.ReopenGrade(ctx, 1, 1, 9))

	require.Equal(t, models.StatusInProgress, fixture.submissions.get(1).Status)

	// Lowering the score and finishing again flips the terminal outcome.
	_, err = fixture.service.SetScore(ctx, 1, 1, 9, dto.GradeSetRequest{Score: floatPtr(2)})
	require.NoError(t, err)
	_, err = fixture.service.CommitGrade(ctx, 1, 1, 9)
	require.NoError(t, err)
	result, err := fixture.service.Finish(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, models.StatusFailed, result.Status)
	require.Equal(t, 2.0, *result.TotalScore)
}

func TestGradingScoreOnFreshLedgerKeepsTerminalStatus(t *testing.T) {
	graded := pendingSubmission(1, 7, 9)
	graded.Status = models.StatusPassed
	total := 8.0
	graded.TotalScore = &total
	fixture := newGradingFixture(t, testCriteria(), graded)

	// Examiner 12 starts a fresh pass over an already graded submission.
	// Its first score must not regress the terminal outcome; only an
	// explicit reopen does that.
	_, err := fixture.service.SetScore(context.Background(), 1, 1, 12, dto.GradeSetRequest{Score: floatPtr(5)})

	require.NoError(t, err)
	require.Equal(t, models.StatusPassed, fixture.submissions.get(1).Status)
}

func TestGradingModeratorOpensFreshLedger(t *testing.T) {
	fixture := newGradingFixture(t, testCriteria(), pendingSubmission(1, 7, 9))
	ctx := context.Background()

	// Examiner 9 leaves an uncommitted draft.
	_, err := fixture.service.SetScore(ctx, 1, 1, 9, dto.GradeSetRequest{Score: floatPtr(8)})
	require.NoError(t, err)

	// Examiner 12 starts an independent pass; the draft is not visible.
	ledger, err := fixture.service.Ledger(ctx, 1, 12)

	require.NoError(t, err)
	require.Nil(t, ledger.Entries[0].Score)
	require.Equal(t, EntryUnscored, ledger.Entries[0].State)
}

func TestGradingSetScoreClearsEntry(t *testing.T) {
	fixture := newGradingFixture(t, testCriteria(), pendingSubmission(1, 7, 9))
	ctx := context.Background()

	_, err := fixture.service.SetScore(ctx, 1, 1, 9, dto.GradeSetRequest{Score: floatPtr(3)})
	require.NoError(t, err)

	ledger, err := fixture.service.SetScore(ctx, 1, 1, 9, dto.GradeSetRequest{})
	require.NoError(t, err)

	require.Nil(t, ledger.Entries[0].Score)
	require.Equal(t, EntryUnscored, ledger.Entries[0].State)
}

func TestGradingSetNoteKeepsScore(t *testing.T) {
	fixture := newGradingFixture(t, testCriteria(), pendingSubmission(1, 7, 9))
	ctx := context.Background()

	_, err := fixture.service.SetScore(ctx, 1, 1, 9, dto.GradeSetRequest{Score: floatPtr(3)})
	require.NoError(t, err)

	note := "verify sources"
	ledger, err := fixture.service.SetScore(ctx, 1, 1, 9, dto.GradeSetRequest{Note: &note})
	require.NoError(t, err)

	require.Equal(t, 3.0, *ledger.Entries[0].Score)
	require.Equal(t, "verify sources", ledger.Entries[0].Note)
}
