package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/thiagokokada/gitgud/internal/dispatch"
	"github.com/thiagokokada/gitgud/internal/git"
	"github.com/thiagokokada/gitgud/internal/git/gittest"
	"github.com/thiagokokada/gitgud/internal/graph"
)

func newTestSession(t *testing.T, fake *gittest.Fake) *Session {
	t.Helper()
	n := 0
	s := New(fake, Options{Reducer: graph.Reducer{NewID: func() string {
		n++
		return fmt.Sprintf("%016d", n)
	}}})
	t.Cleanup(s.Wait)
	return s
}

func TestNewSeedsGraph(t *testing.T) {
	t.Parallel()

	s := newTestSession(t, &gittest.Fake{})
	g := s.Graph()
	if g.Current() != "main" || g.Len() != 1 {
		t.Fatalf("graph = %+v, want single main branch", g.Snapshot())
	}
	main, _ := g.Branch("main")
	if len(main.Commits) != 1 || main.Commits[0].Message != graph.SeedMessage || main.Commits[0].Position != 1 {
		t.Fatalf("seed commits = %+v", main.Commits)
	}
}

func TestSubmitUnsupported(t *testing.T) {
	t.Parallel()

	fake := &gittest.Fake{}
	s := newTestSession(t, fake)
	before := s.Graph().Snapshot()

	out, err := s.Submit(context.Background(), "git rebase main")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if out != "Command not supported: rebase" {
		t.Fatalf("Submit() = %q", out)
	}
	s.Wait()
	if calls := fake.Calls(); len(calls) != 0 {
		t.Fatalf("backend calls = %q, want none", calls)
	}
	if after := s.Graph().Snapshot(); !snapshotsEqual(before, after) {
		t.Fatalf("graph changed: %+v", after)
	}
}

func TestSubmitCheckoutNewScenario(t *testing.T) {
	t.Parallel()

	fake := &gittest.Fake{}
	s := newTestSession(t, fake)
	ctx := context.Background()

	out, err := s.Submit(ctx, "git checkout -b feature")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if out != `Switched to branch "feature"` {
		t.Fatalf("Submit() = %q", out)
	}
	if _, err := s.Submit(ctx, `git commit -m "add login"`); err != nil {
		t.Fatalf("Submit(commit) error = %v", err)
	}
	s.Wait()

	g := s.Graph()
	if g.Current() != "feature" {
		t.Fatalf("current = %q, want feature", g.Current())
	}
	feature, _ := g.Branch("feature")
	if len(feature.Commits) != 1 || feature.Commits[0].Message != "add login" || feature.Commits[0].Position != 1 {
		t.Fatalf("feature commits = %+v", feature.Commits)
	}
	want := []string{"branch feature", "checkout feature", "commit add login"}
	if calls := fake.MutatingCalls(); !slices.Equal(calls, want) {
		t.Fatalf("mutating calls = %q, want %q", calls, want)
	}
}

func TestSubmitMergeScenario(t *testing.T) {
	t.Parallel()

	s := newTestSession(t, &gittest.Fake{})
	ctx := context.Background()
	for _, line := range []string{"git branch dev", "git checkout dev", "git commit -m x", "git checkout main", "git merge dev"} {
		if _, err := s.Submit(ctx, line); err != nil {
			t.Fatalf("Submit(%q) error = %v", line, err)
		}
	}
	main, _ := s.Graph().Branch("main")
	if len(main.Merges) != 1 {
		t.Fatalf("main merges = %+v, want one", main.Merges)
	}
	if m := main.Merges[0]; m.From != "dev" || m.To != "main" || m.Position != 2 {
		t.Fatalf("merge = %+v, want dev->main at 2", m)
	}
}

func TestSubmitBackendFailureKeepsOptimisticGraph(t *testing.T) {
	t.Parallel()

	fake := &gittest.Fake{
		CommitFunc: func(context.Context, string) error {
			return errors.New("nothing to commit, working tree clean")
		},
	}
	s := newTestSession(t, fake)

	_, err := s.Submit(context.Background(), "git commit -m empty")
	var serr *SubmitError
	if !errors.As(err, &serr) {
		t.Fatalf("Submit() error = %v, want *SubmitError", err)
	}
	if want := "Failed to execute Git command: nothing to commit, working tree clean"; err.Error() != want {
		t.Fatalf("error = %q, want %q", err.Error(), want)
	}
	var backendErr *dispatch.BackendError
	if !errors.As(err, &backendErr) {
		t.Fatalf("error chain lacks *dispatch.BackendError: %v", err)
	}
	if got := Display("", err); got != "Error: "+err.Error() {
		t.Fatalf("Display() = %q", got)
	}
	main, _ := s.Graph().Branch("main")
	if len(main.Commits) != 2 {
		t.Fatalf("main commits = %d, want 2 (no rollback)", len(main.Commits))
	}
}

func TestSubmitIsSingleFlight(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})
	fake := &gittest.Fake{
		CommitFunc: func(context.Context, string) error {
			close(started)
			<-release
			return nil
		},
	}
	s := newTestSession(t, fake)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := s.Submit(ctx, "git commit -m first")
		errs <- err
	}()
	<-started

	secondDone := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(secondDone)
		_, err := s.Submit(ctx, "git branch later")
		errs <- err
	}()
	select {
	case <-secondDone:
		t.Fatal("second Submit returned while the first was still dispatching")
	case <-time.After(50 * time.Millisecond):
	}
	if calls := fake.MutatingCalls(); !slices.Equal(calls, []string{"commit first"}) {
		t.Fatalf("backend calls while first is in flight = %q, want [commit first]", calls)
	}
	if s.Graph().Has("later") {
		t.Fatal("second command reached the graph while the first was still dispatching")
	}

	close(release)
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
	}
	if calls := fake.MutatingCalls(); !slices.Equal(calls, []string{"commit first", "branch later"}) {
		t.Fatalf("backend calls = %q, want [commit first branch later]", calls)
	}
	if !s.Graph().Has("later") {
		t.Fatal("graph lacks branch later after both submissions")
	}
}

func TestSubmitMergeUnknownBranch(t *testing.T) {
	t.Parallel()

	fake := &gittest.Fake{
		MergeFunc: func(_ context.Context, branch string) error {
			return fmt.Errorf("merge: %s - not something we can merge", branch)
		},
	}
	s := newTestSession(t, fake)
	before := s.Graph().Snapshot()

	_, err := s.Submit(context.Background(), "git merge nonexistent")
	if err == nil || !strings.Contains(err.Error(), "not something we can merge") {
		t.Fatalf("Submit() error = %v, want backend merge failure", err)
	}
	if calls := fake.MutatingCalls(); !slices.Equal(calls, []string{"merge nonexistent"}) {
		t.Fatalf("backend calls = %q, want [merge nonexistent]", calls)
	}
	if got := s.LastOutcome(); got.Status != graph.Ignored || got.Reason != graph.ReasonUnknownBranch {
		t.Fatalf("LastOutcome() = %v, want ignored unknown branch", got)
	}
	main, _ := s.Graph().Branch("main")
	if len(main.Merges) != 0 {
		t.Fatalf("main merges = %+v, want none", main.Merges)
	}
	if after := s.Graph().Snapshot(); !snapshotsEqual(before, after) {
		t.Fatalf("graph changed: %+v", after)
	}
}

func TestSubmitDuplicateBranchIsIgnored(t *testing.T) {
	t.Parallel()

	s := newTestSession(t, &gittest.Fake{})
	ctx := context.Background()
	if _, err := s.Submit(ctx, "git branch dev"); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if _, err := s.Submit(ctx, "git branch dev"); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if got := s.LastOutcome(); got.Status != graph.Ignored || got.Reason != graph.ReasonDuplicateBranch {
		t.Fatalf("LastOutcome() = %v, want ignored duplicate branch", got)
	}
	if n := s.Graph().Len(); n != 2 {
		t.Fatalf("branches = %d, want 2", n)
	}
}

func TestRefreshFailureDoesNotChangeResult(t *testing.T) {
	t.Parallel()

	fake := &gittest.Fake{
		StatusFunc: func(context.Context) (git.Status, error) {
			return git.Status{}, errors.New("status exploded")
		},
	}
	s := newTestSession(t, fake)
	out, err := s.Submit(context.Background(), "git branch dev")
	if err != nil || out != `Branch "dev" created successfully` {
		t.Fatalf("Submit() = %q, %v", out, err)
	}
	s.Wait()
	if _, err := s.Status(); err == nil || !strings.Contains(err.Error(), "status exploded") {
		t.Fatalf("Status() error = %v, want cached refresh error", err)
	}
}

func TestRefreshCachesStatus(t *testing.T) {
	t.Parallel()

	fake := &gittest.Fake{
		StatusFunc: func(context.Context) (git.Status, error) {
			return git.Status{Branch: "main", Untracked: []string{"a.txt"}}, nil
		},
	}
	s := newTestSession(t, fake)
	if _, err := s.Submit(context.Background(), "git add ."); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	s.Wait()
	st, err := s.Status()
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if st.Branch != "main" || !slices.Equal(st.Untracked, []string{"a.txt"}) {
		t.Fatalf("Status() = %+v", st)
	}
}

func TestSubscribeAndHistory(t *testing.T) {
	t.Parallel()

	s := newTestSession(t, &gittest.Fake{})
	var mu sync.Mutex
	var types []EventType
	unsubscribe := s.Subscribe(func(ev Event) {
		if ev.Type == EventStatus {
			return
		}
		mu.Lock()
		types = append(types, ev.Type)
		mu.Unlock()
	})

	ctx := context.Background()
	if _, err := s.Submit(ctx, "git branch dev"); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if _, err := s.Submit(ctx, "git stash"); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	unsubscribe()
	if _, err := s.Submit(ctx, "git branch other"); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	mu.Lock()
	got := append([]EventType(nil), types...)
	mu.Unlock()
	want := []EventType{EventGraph, EventOutput, EventOutput}
	if !slices.Equal(got, want) {
		t.Fatalf("events = %q, want %q", got, want)
	}

	history := s.History()
	if len(history) != 3 {
		t.Fatalf("history = %d entries, want 3", len(history))
	}
	if history[1].Command != "git stash" || history[1].Output != "Command not supported: stash" || history[1].Failed {
		t.Fatalf("history[1] = %+v", history[1])
	}
}

func TestHistoryLimit(t *testing.T) {
	t.Parallel()

	s := New(&gittest.Fake{}, Options{HistoryLimit: 2})
	t.Cleanup(s.Wait)
	for _, line := range []string{"git foo", "git bar", "git baz"} {
		if _, err := s.Submit(context.Background(), line); err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
	}
	history := s.History()
	if len(history) != 2 || history[0].Command != "git bar" {
		t.Fatalf("history = %+v", history)
	}
}

func TestSubmitBlankIsNoop(t *testing.T) {
	t.Parallel()

	fake := &gittest.Fake{}
	s := newTestSession(t, fake)
	if out, err := s.Submit(context.Background(), "   "); out != "" || err != nil {
		t.Fatalf("Submit(blank) = %q, %v", out, err)
	}
	if len(s.History()) != 0 || len(fake.Calls()) != 0 {
		t.Fatal("blank input was recorded or dispatched")
	}
}

func TestDivergence(t *testing.T) {
	t.Parallel()

	fake := &gittest.Fake{
		BranchesFunc: func(context.Context) ([]string, string, error) {
			return []string{"main"}, "main", nil
		},
		LogFunc: func(context.Context) ([]git.LogEntry, error) {
			return []git.LogEntry{{Message: "Initial commit"}}, nil
		},
	}
	s := newTestSession(t, fake)

	rep, err := s.Divergence(context.Background())
	if err != nil {
		t.Fatalf("Divergence() error = %v", err)
	}
	if !rep.InSync() {
		t.Fatalf("fresh session diverges:\n%s", rep.Diff)
	}

	if _, err := s.Submit(context.Background(), "git branch ghost"); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	before := s.Graph().Snapshot()
	rep, err = s.Divergence(context.Background())
	if err != nil {
		t.Fatalf("Divergence() error = %v", err)
	}
	if rep.InSync() || !strings.Contains(rep.Diff, "-branch ghost") {
		t.Fatalf("diff = %q, want removed ghost branch", rep.Diff)
	}
	if !snapshotsEqual(before, s.Graph().Snapshot()) {
		t.Fatal("Divergence() modified the graph")
	}
}

func TestDivergenceBackendError(t *testing.T) {
	t.Parallel()

	fake := &gittest.Fake{
		BranchesFunc: func(context.Context) ([]string, string, error) {
			return nil, "", git.ErrNotRepository
		},
	}
	s := newTestSession(t, fake)
	if _, err := s.Divergence(context.Background()); !errors.Is(err, git.ErrNotRepository) {
		t.Fatalf("Divergence() error = %v, want %v", err, git.ErrNotRepository)
	}
}

func snapshotsEqual(a, b graph.Snapshot) bool {
	if a.CurrentBranch != b.CurrentBranch || len(a.Branches) != len(b.Branches) {
		return false
	}
	for i := range a.Branches {
		x, y := a.Branches[i], b.Branches[i]
		if x.Name != y.Name || !slices.Equal(x.Commits, y.Commits) || !slices.Equal(x.Merges, y.Merges) {
			return false
		}
	}
	return true
}
