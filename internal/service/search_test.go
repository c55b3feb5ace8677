package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gradesync-go-api/internal/dto"
)

func TestDebouncerLastWriteWins(t *testing.T) {
	debouncer := NewDebouncer(20 * time.Millisecond)

	var mu sync.Mutex
	var fired []string
	record := func(tag string) func() {
		return func() {
			mu.Lock()
			fired = append(fired, tag)
			mu.Unlock()
		}
	}

	debouncer.Schedule(record("first"))
	debouncer.Schedule(record("second"))
	debouncer.Schedule(record("third"))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(fired) == 1 && fired[0] == "third"
	}, time.Second, 5*time.Millisecond)

	// Nothing else fires afterwards.
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, fired, 1)
}

func TestDebouncerCancel(t *testing.T) {
	debouncer := NewDebouncer(10 * time.Millisecond)

	fired := make(chan struct{}, 1)
	debouncer.Schedule(func() { fired <- struct{}{} })
	debouncer.Cancel()

	select {
	case <-fired:
		t.Fatal("cancelled call fired")
	case <-time.After(50 * time.Millisecond):
	}
}

func searchFixture(t *testing.T) (*SubmissionSearch, *fakeTransport) {
	t.Helper()

	transport := &fakeTransport{}
	reconciler := NewReconciler(Scope{ExamID: 7, ExaminerID: 9}, transport, newFakeSubmissionRepo(), zerolog.Nop())
	require.NoError(t, reconciler.Start(context.Background()))

	push := func(id uint, student, file string) {
		payload := scopedPayload(id)
		payload.StudentName = student
		payload.FileName = file
		transport.pushCreated(payload)
	}
	push(1, "Amara Diallo", "essay_final.pdf")
	push(2, "Jonas Weber", "report.docx")
	push(3, "Amina Khalil", "essay_draft.pdf")

	return NewSubmissionSearch(reconciler, 10*time.Millisecond), transport
}

func TestSearchMatchesStudentAndFileName(t *testing.T) {
	search, _ := searchFixture(t)

	byStudent := search.Run("am")
	require.Len(t, byStudent, 2)

	byFile := search.Run("essay")
	require.Len(t, byFile, 2)

	none := search.Run("zzz")
	require.Empty(t, none)

	all := search.Run("  ")
	require.Len(t, all, 3)
}

func TestSearchDebouncedDeliversLatestQuery(t *testing.T) {
	search, _ := searchFixture(t)
	defer search.Stop()

	type delivery struct {
		query   string
		results []dto.SubmissionSummary
	}
	delivered := make(chan delivery, 4)
	deliver := func(query string, results []dto.SubmissionSummary) {
		delivered <- delivery{query: query, results: results}
	}

	search.Schedule("a", deliver)
	search.Schedule("am", deliver)
	search.Schedule("jonas", deliver)

	select {
	case got := <-delivered:
		require.Equal(t, "jonas", got.query)
		require.Len(t, got.results, 1)
		require.Equal(t, "Jonas Weber", got.results[0].StudentName)
	case <-time.After(time.Second):
		t.Fatal("expected a search delivery")
	}

	select {
	case got := <-delivered:
		t.Fatalf("stale query delivered: %q", got.query)
	case <-time.After(50 * time.Millisecond):
	}
}
