package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gradesync-go-api/internal/dto"
	"github.com/noah-isme/gradesync-go-api/internal/models"
)

// Entry states for one criterion in the ledger.
const (
	EntryUnscored  = "unscored"
	EntryDraft     = "draft"
	EntryCommitted = "committed"
)

// scoreStep is the granularity grades are entered in.
const scoreStep = 0.25

// GradeWriter persists committed grades. The ledger remembers the server id
// issued on create, so a commit after reopen becomes an update.
type GradeWriter interface {
	Create(ctx context.Context, grade *models.Grade) error
	Update(ctx context.Context, grade *models.Grade) error
}

type ledgerEntry struct {
	criterion models.Criterion
	score     *float64
	note      string
	gradeID   uint
	state     string
}

// ScoreLedger holds the in-progress set of grades for one open submission.
// Every criterion is in exactly one of unscored, draft or committed state;
// rejected writes never mutate the ledger.
type ScoreLedger struct {
	mu           sync.Mutex
	submissionID uint
	examinerID   uint
	entries      map[uint]*ledgerEntry
	order        []uint
	writer       GradeWriter
	sanitizer    *bluemonday.Policy
	logger       zerolog.Logger
	onFirstScore func()
	scored       bool
}

// NewScoreLedger builds a ledger over the exam's criteria. Existing grades
// are loaded as committed entries carrying their server ids.
func NewScoreLedger(submissionID, examinerID uint, criteria []models.Criterion, existing []models.Grade, writer GradeWriter, logger zerolog.Logger) *ScoreLedger {
	ledger := &ScoreLedger{
		submissionID: submissionID,
		examinerID:   examinerID,
		entries:      make(map[uint]*ledgerEntry, len(criteria)),
		order:        make([]uint, 0, len(criteria)),
		writer:       writer,
		sanitizer:    bluemonday.StrictPolicy(),
		logger:       logger.With().Str("component", "score_ledger").Uint("submission_id", submissionID).Logger(),
	}

	for _, criterion := range criteria {
		ledger.entries[criterion.ID] = &ledgerEntry{criterion: criterion, state: EntryUnscored}
		ledger.order = append(ledger.order, criterion.ID)
	}

	for _, grade := range existing {
		entry, ok := ledger.entries[grade.CriterionID]
		if !ok {
			continue
		}
		score := grade.Score
		entry.score = &score
		entry.note = grade.Note
		entry.gradeID = grade.ID
		entry.state = EntryCommitted
	}

	return ledger
}

// SubmissionID identifies the submission this ledger belongs to.
func (l *ScoreLedger) SubmissionID() uint {
	return l.submissionID
}

// OnFirstScore registers the hook fired once when the first score lands.
// The grading state machine uses it to enter the in-progress state.
func (l *ScoreLedger) OnFirstScore(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onFirstScore = fn
}

// SetScore records a draft score for a criterion. A nil score clears the
// entry back to unscored. Values outside [0, max] or off the 0.25 step are
// rejected without mutating the ledger.
func (l *ScoreLedger) SetScore(criterionID uint, score *float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[criterionID]
	if !ok {
		return ErrCriterionNotFound
	}
	if entry.state == EntryCommitted {
		return ErrEntryCommitted
	}

	if score == nil {
		entry.score = nil
		entry.state = EntryUnscored
		return nil
	}

	if *score < 0 || *score > entry.criterion.MaxScore {
		return ErrScoreOutOfRange
	}
	if !onScoreStep(*score) {
		return ErrScoreStep
	}

	value := *score
	entry.score = &value
	entry.state = EntryDraft

	if !l.scored {
		l.scored = true
		if l.onFirstScore != nil {
			l.onFirstScore()
		}
	}

	return nil
}

// SetNote records a free-text note for a criterion. Always accepted: a
// committed entry's note writes through to the server immediately so the
// local and remote copies never diverge, while score edits still require an
// explicit reopen. A failed write-through leaves the note unchanged.
func (l *ScoreLedger) SetNote(ctx context.Context, criterionID uint, note string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[criterionID]
	if !ok {
		return ErrCriterionNotFound
	}

	clean := strings.TrimSpace(l.sanitizer.Sanitize(note))

	if entry.state == EntryCommitted && entry.gradeID != 0 {
		grade := models.Grade{
			ID:           entry.gradeID,
			SubmissionID: l.submissionID,
			CriterionID:  criterionID,
			Score:        *entry.score,
			Note:         clean,
			GradedBy:     l.examinerID,
		}
		if err := l.writer.Update(ctx, &grade); err != nil {
			return fmt.Errorf("update note for criterion %d: %w", criterionID, err)
		}
	}

	entry.note = clean
	return nil
}

// Commit persists the draft grade for a criterion. On the first commit a
// server id is issued and remembered; after a reopen the remembered id turns
// the write into an update. A failed write leaves the ledger untouched.
func (l *ScoreLedger) Commit(ctx context.Context, criterionID uint) (models.Grade, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[criterionID]
	if !ok {
		return models.Grade{}, ErrCriterionNotFound
	}
	if entry.score == nil {
		return models.Grade{}, ErrNothingToCommit
	}

	grade := models.Grade{
		ID:           entry.gradeID,
		SubmissionID: l.submissionID,
		CriterionID:  criterionID,
		Score:        *entry.score,
		Note:         entry.note,
		GradedBy:     l.examinerID,
	}

	if entry.state == EntryCommitted {
		return grade, nil
	}

	var err error
	if entry.gradeID == 0 {
		err = l.writer.Create(ctx, &grade)
	} else {
		err = l.writer.Update(ctx, &grade)
	}
	if err != nil {
		return models.Grade{}, fmt.Errorf("commit grade for criterion %d: %w", criterionID, err)
	}

	entry.gradeID = grade.ID
	entry.state = EntryCommitted

	return grade, nil
}

// Reopen reverts a committed grade to draft without discarding the
// remembered server id.
func (l *ScoreLedger) Reopen(criterionID uint) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[criterionID]
	if !ok {
		return ErrCriterionNotFound
	}
	if entry.state != EntryCommitted {
		return ErrNotCommitted
	}

	entry.state = EntryDraft
	return nil
}

// CandidateTotal sums every criterion that currently has a numeric score,
// draft or committed. It feeds the live display before the authoritative
// recalculation confirms a total.
func (l *ScoreLedger) CandidateTotal() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	total := 0.0
	for _, entry := range l.entries {
		if entry.score != nil {
			total += *entry.score
		}
	}
	return total
}

// Snapshot renders the ledger for API clients.
func (l *ScoreLedger) Snapshot() dto.LedgerResponse {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries := make([]dto.LedgerEntryResponse, 0, len(l.order))
	total := 0.0
	for _, id := range l.order {
		entry := l.entries[id]
		entries = append(entries, dto.LedgerEntryResponse{
			CriterionID: id,
			Name:        entry.criterion.Name,
			MaxScore:    entry.criterion.MaxScore,
			Score:       entry.score,
			Note:        entry.note,
			State:       entry.state,
		})
		if entry.score != nil {
			total += *entry.score
		}
	}

	return dto.LedgerResponse{
		SubmissionID:   l.submissionID,
		Entries:        entries,
		CandidateTotal: total,
	}
}

func onScoreStep(score float64) bool {
	scaled := score / scoreStep
	return math.Abs(scaled-math.Round(scaled)) < 1e-9
}
