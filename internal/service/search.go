package service

import (
	"strings"
	"sync"
	"time"

	"github.com/noah-isme/gradesync-go-api/internal/dto"
)

// defaultSearchDelay matches the dashboard's type-ahead debounce.
const defaultSearchDelay = 300 * time.Millisecond

// Debouncer coalesces rapid-fire calls: a new schedule supersedes any
// unfired previous one, so only the last write wins.
type Debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	timer *time.Timer
}

// NewDebouncer builds a debouncer with the given delay; zero or negative
// falls back to the default.
func NewDebouncer(delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = defaultSearchDelay
	}
	return &Debouncer{delay: delay}
}

// Schedule runs fn after the delay, cancelling any previously scheduled
// call that has not fired yet.
func (d *Debouncer) Schedule(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, fn)
}

// Cancel drops any pending scheduled call.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// SubmissionSearch filters the reconciler's working set by student name or
// file name, debounced so a stale query never overwrites a newer one.
type SubmissionSearch struct {
	reconciler *Reconciler
	debouncer  *Debouncer
}

// NewSubmissionSearch builds a search over the reconciler's snapshot.
func NewSubmissionSearch(reconciler *Reconciler, delay time.Duration) *SubmissionSearch {
	return &SubmissionSearch{
		reconciler: reconciler,
		debouncer:  NewDebouncer(delay),
	}
}

// Schedule delivers the filtered result for query after the debounce
// window. A newer query cancels an unfired older one.
func (s *SubmissionSearch) Schedule(query string, deliver func(query string, results []dto.SubmissionSummary)) {
	s.debouncer.Schedule(func() {
		deliver(query, s.Run(query))
	})
}

// Run executes the filter immediately.
func (s *SubmissionSearch) Run(query string) []dto.SubmissionSummary {
	items := s.reconciler.Snapshot()
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return items
	}

	matched := make([]dto.SubmissionSummary, 0, len(items))
	for _, item := range items {
		if strings.Contains(strings.ToLower(item.StudentName), needle) ||
			strings.Contains(strings.ToLower(item.FileName), needle) {
			matched = append(matched, item)
		}
	}
	return matched
}

// Stop cancels any pending search.
func (s *SubmissionSearch) Stop() {
	s.debouncer.Cancel()
}
