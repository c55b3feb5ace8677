package service

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/noah-isme/gradesync-go-api/internal/dto"
	"github.com/noah-isme/gradesync-go-api/internal/models"
	"github.com/noah-isme/gradesync-go-api/internal/observability"
	"github.com/noah-isme/gradesync-go-api/internal/realtime"
	"github.com/noah-isme/gradesync-go-api/internal/repository"
)

const reconcilerStreamBuffer = 16

// PushTransport is the subscription handle the reconciler owns. The
// realtime manager implements it; tests use fakes.
type PushTransport interface {
	OnSubmissionCreated(realtime.EventHandler)
	OnSubmissionUpdated(realtime.EventHandler)
	OffSubmissionCreated()
	OffSubmissionUpdated()
	OnDegraded(func(error))
	Start(ctx context.Context)
	Stop()
	State() realtime.State
}

// SubmissionSource loads the scoped working set and authoritative details.
type SubmissionSource interface {
	List(ctx context.Context, filter repository.SubmissionFilter) ([]models.Submission, error)
	GetByID(ctx context.Context, id uint) (models.Submission, error)
}

// Scope pins the reconciler to one exam and examiner. Events outside the
// scope are discarded so dashboards sharing a transport never leak across
// exams.
type Scope struct {
	ExamID     uint
	ExaminerID uint
}

// Reconciler merges server-pushed submission events into the local working
// set without full reloads. All mutation happens on the event path; readers
// get copies.
type Reconciler struct {
	scope     Scope
	transport PushTransport
	source    SubmissionSource
	logger    zerolog.Logger

	mu       sync.Mutex
	items    []dto.SubmissionSummary
	openID   *uint
	degraded error

	streamMu sync.RWMutex
	streams  map[chan dto.SubmissionEvent]struct{}
}

// NewReconciler builds a reconciler for the given scope.
func NewReconciler(scope Scope, transport PushTransport, source SubmissionSource, logger zerolog.Logger) *Reconciler {
	return &Reconciler{
		scope:     scope,
		transport: transport,
		source:    source,
		logger:    logger.With().Str("component", "reconciler").Uint("exam_id", scope.ExamID).Uint("examiner_id", scope.ExaminerID).Logger(),
		streams:   make(map[chan dto.SubmissionEvent]struct{}),
	}
}

// Start loads the initial scoped collection and begins consuming the push
// stream. Handlers are registered before the transport connects.
func (r *Reconciler) Start(ctx context.Context) error {
	filter := repository.SubmissionFilter{ExamID: &r.scope.ExamID, ExaminerID: &r.scope.ExaminerID}
	submissions, err := r.source.List(ctx, filter)
	if err != nil {
		return err
	}

	summaries := make([]dto.SubmissionSummary, 0, len(submissions))
	for _, submission := range submissions {
		summaries = append(summaries, dto.NewSubmissionSummary(submission))
	}

	r.mu.Lock()
	r.items = summaries
	r.mu.Unlock()

	r.transport.OnSubmissionCreated(r.handleCreated)
	r.transport.OnSubmissionUpdated(r.handleUpdated)
	r.transport.OnDegraded(r.handleDegraded)
	r.transport.Start(ctx)

	return nil
}

// Stop unsubscribes every handler before the connection closes, so no stale
// callback fires after teardown.
func (r *Reconciler) Stop() {
	r.transport.OffSubmissionCreated()
	r.transport.OffSubmissionUpdated()
	r.transport.Stop()

	r.streamMu.Lock()
	for ch := range r.streams {
		close(ch)
	}
	r.streams = make(map[chan dto.SubmissionEvent]struct{})
	r.streamMu.Unlock()
}

// Snapshot returns a copy of the current working set, newest first.
func (r *Reconciler) Snapshot() []dto.SubmissionSummary {
	r.mu.Lock()
	defer r.mu.Unlock()

	items := make([]dto.SubmissionSummary, len(r.items))
	copy(items, r.items)
	return items
}

// SetOpenSubmission marks the submission currently open for detail viewing.
// Updates for it trigger a full detail refetch instead of trusting the
// partial event payload.
func (r *Reconciler) SetOpenSubmission(id *uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.openID = id
}

// Degraded reports the terminal transport error, if retries were exhausted.
func (r *Reconciler) Degraded() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.degraded
}

// Subscribe streams reconciled events to a dashboard client. The returned
// cleanup must be called on disconnect.
func (r *Reconciler) Subscribe() (<-chan dto.SubmissionEvent, func()) {
	ch := make(chan dto.SubmissionEvent, reconcilerStreamBuffer)

	r.streamMu.Lock()
	r.streams[ch] = struct{}{}
	r.streamMu.Unlock()
	observability.DashboardClientsActive().Inc()

	cleanup := func() {
		r.streamMu.Lock()
		if _, ok := r.streams[ch]; ok {
			delete(r.streams, ch)
			close(ch)
		}
		r.streamMu.Unlock()
		observability.DashboardClientsActive().Dec()
	}

	return ch, cleanup
}

func (r *Reconciler) handleCreated(event dto.SubmissionEvent) {
	payload := event.Payload
	if !r.inScope(payload) {
		observability.ReconcilerEventsTotal().WithLabelValues("created", "dropped_scope").Inc()
		return
	}

	r.mu.Lock()
	if r.indexOfLocked(payload.SubmissionID) >= 0 {
		r.mu.Unlock()
		// At-least-once delivery: replays of a known submission are no-ops.
		observability.ReconcilerEventsTotal().WithLabelValues("created", "duplicate").Inc()
		return
	}

	summary := dto.NewSummaryFromEvent(payload)
	r.items = append([]dto.SubmissionSummary{summary}, r.items...)
	r.mu.Unlock()

	observability.ReconcilerEventsTotal().WithLabelValues("created", "applied").Inc()
	r.broadcast(event)
}

func (r *Reconciler) handleUpdated(event dto.SubmissionEvent) {
	payload := event.Payload
	if !r.inScope(payload) {
		observability.ReconcilerEventsTotal().WithLabelValues("updated", "dropped_scope").Inc()
		return
	}

	r.mu.Lock()
	index := r.indexOfLocked(payload.SubmissionID)
	if index < 0 {
		r.mu.Unlock()
		// No synthesized insert on update.
		observability.ReconcilerEventsTotal().WithLabelValues("updated", "dropped_unknown").Inc()
		return
	}

	status := models.GradingStatus(payload.Status)
	r.items[index].TotalScore = payload.TotalScore
	r.items[index].Status = status
	r.items[index].Graded = status.IsTerminal()

	refetch := r.openID != nil && *r.openID == payload.SubmissionID
	r.mu.Unlock()

	observability.ReconcilerEventsTotal().WithLabelValues("updated", "applied").Inc()

	if refetch {
		go r.refetchDetail(payload.SubmissionID)
	}

	r.broadcast(event)
}

func (r *Reconciler) handleDegraded(err error) {
	r.mu.Lock()
	r.degraded = err
	r.mu.Unlock()

	observability.RealtimeDegradedTotal().Inc()
	r.logger.Error().Err(err).Msg("push transport degraded, live reconciliation stopped")
}

// refetchDetail replaces the open submission's row with authoritative data
// rather than trusting the partial event payload.
func (r *Reconciler) refetchDetail(submissionID uint) {
	submission, err := r.source.GetByID(context.Background(), submissionID)
	if err != nil {
		r.logger.Warn().Err(err).Uint("submission_id", submissionID).Msg("detail refetch failed")
		return
	}

	summary := dto.NewSubmissionSummary(submission)

	r.mu.Lock()
	if index := r.indexOfLocked(submissionID); index >= 0 {
		// Keep event-only fields the store does not carry.
		summary.StudentName = r.items[index].StudentName
		summary.FileName = r.items[index].FileName
		r.items[index] = summary
	}
	r.mu.Unlock()
}

func (r *Reconciler) broadcast(event dto.SubmissionEvent) {
	r.streamMu.RLock()
	defer r.streamMu.RUnlock()

	for ch := range r.streams {
		select {
		case ch <- event:
		default:
			r.logger.Warn().Str("kind", event.Kind).Msg("dropping event for slow dashboard client")
		}
	}
}

func (r *Reconciler) inScope(payload dto.SubmissionEventPayload) bool {
	return payload.ExamID == r.scope.ExamID && payload.ExaminerID == r.scope.ExaminerID
}

func (r *Reconciler) indexOfLocked(submissionID uint) int {
	for i := range r.items {
		if r.items[i].ID == submissionID {
			return i
		}
	}
	return -1
}
