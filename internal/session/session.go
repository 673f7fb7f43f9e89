// Package session ties the parser, the local graph, the dispatcher and the
// cached repository status together behind one value per playground.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/thiagokokada/gitgud/internal/command"
	"github.com/thiagokokada/gitgud/internal/dispatch"
	"github.com/thiagokokada/gitgud/internal/git"
	"github.com/thiagokokada/gitgud/internal/graph"
)

const defaultHistoryLimit = 500

type EventType string

const (
	EventGraph  EventType = "graph"
	EventStatus EventType = "status"
	EventOutput EventType = "output"
)

// Event is delivered to subscribers after state changes. Data is a
// graph.Snapshot, a StatusView or an Entry depending on Type.
type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data"`
}

// Entry is one line of the command transcript.
type Entry struct {
	Command string    `json:"command"`
	Output  string    `json:"output"`
	Failed  bool      `json:"failed"`
	At      time.Time `json:"at"`
}

// StatusView is the cached status together with the error of the refresh
// that produced it.
type StatusView struct {
	Status git.Status `json:"status"`
	Error  string     `json:"error,omitempty"`
}

// SubmitError wraps any failure that reached the backend.
type SubmitError struct {
	Command string
	Err     error
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("Failed to execute Git command: %v", e.Err)
}

func (e *SubmitError) Unwrap() error {
	return e.Err
}

type Options struct {
	DefaultBranch string
	Reducer       graph.Reducer
	HistoryLimit  int
	Now           func() time.Time
}

type Session struct {
	// submitMu makes submissions single-flight: each one finishes its graph
	// update and backend call before the next starts.
	submitMu sync.Mutex

	mu        sync.RWMutex
	graph     graph.Graph
	outcome   graph.Outcome
	status    git.Status
	statusErr error
	history   []Entry
	subs      map[int]func(Event)
	nextSub   int

	backend    git.Backend
	dispatcher *dispatch.Dispatcher
	reducer    graph.Reducer
	limit      int
	now        func() time.Time
}

func New(backend git.Backend, opts Options) *Session {
	s := &Session{
		backend: backend,
		reducer: opts.Reducer,
		limit:   opts.HistoryLimit,
		now:     opts.Now,
		subs:    map[int]func(Event){},
	}
	if s.limit <= 0 {
		s.limit = defaultHistoryLimit
	}
	if s.now == nil {
		s.now = time.Now
	}
	seedID := graph.NewDisplayID()
	if opts.Reducer.NewID != nil {
		seedID = opts.Reducer.NewID()
	}
	s.graph = graph.New(opts.DefaultBranch, seedID)
	s.outcome = graph.Outcome{Status: graph.Applied}
	s.dispatcher = dispatch.New(backend, s.RefreshStatus)
	return s
}

// Submit parses raw, applies it to the local graph and sends it to the
// backend. The graph update is optimistic and stays even when the backend
// rejects the command. Unsupported commands produce a message and never reach
// the backend.
func (s *Session) Submit(ctx context.Context, raw string) (string, error) {
	if command.Blank(raw) {
		return "", nil
	}
	s.submitMu.Lock()
	defer s.submitMu.Unlock()

	op := command.Parse(raw)
	if !op.Supported() {
		out := (&dispatch.ParseError{Subcommand: op.Args.Subcommand}).Error()
		s.record(raw, out, nil)
		return out, nil
	}

	s.mu.Lock()
	next, outcome := s.reducer.Apply(s.graph, op)
	s.graph = next
	s.outcome = outcome
	snapshot := next.Snapshot()
	s.mu.Unlock()
	slog.Debug("graph updated", slog.String("op", op.String()), slog.String("outcome", outcome.String()))
	s.publish(Event{Type: EventGraph, Data: snapshot})

	out, err := s.dispatcher.Dispatch(ctx, op)
	if err != nil {
		serr := &SubmitError{Command: raw, Err: err}
		s.record(raw, "", serr)
		return "", serr
	}
	s.record(raw, out, nil)
	return out, nil
}

// Display renders a Submit result the way surfaces print it.
func Display(out string, err error) string {
	if err != nil {
		return "Error: " + err.Error()
	}
	return out
}

func (s *Session) Graph() graph.Graph {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph
}

// LastOutcome is the outcome of the most recent graph update.
func (s *Session) LastOutcome() graph.Outcome {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.outcome
}

// Status returns the status cached by the last refresh.
func (s *Session) Status() (git.Status, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status, s.statusErr
}

// RefreshStatus re-reads the repository status into the cache.
func (s *Session) RefreshStatus(ctx context.Context) error {
	st, err := s.backend.Status(ctx)
	s.mu.Lock()
	if err == nil {
		s.status = st
	}
	s.statusErr = err
	view := StatusView{Status: s.status}
	s.mu.Unlock()
	if err != nil {
		view.Error = err.Error()
	}
	s.publish(Event{Type: EventStatus, Data: view})
	return err
}

// Log returns the backend history, newest first.
func (s *Session) Log(ctx context.Context) ([]git.LogEntry, error) {
	return s.backend.Log(ctx)
}

func (s *Session) Backend() git.Backend {
	return s.backend
}

// Wait blocks until refreshes started by earlier submissions are done.
func (s *Session) Wait() {
	s.dispatcher.Wait()
}

func (s *Session) History() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Entry(nil), s.history...)
}

// Subscribe registers fn for future events and returns a function that
// removes it. fn runs on the goroutine that caused the event and must not
// block.
func (s *Session) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Session) publish(ev Event) {
	s.mu.RLock()
	fns := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (s *Session) record(raw, out string, err error) {
	entry := Entry{Command: raw, Output: Display(out, err), Failed: err != nil, At: s.now()}
	s.mu.Lock()
	s.history = append(s.history, entry)
	if over := len(s.history) - s.limit; over > 0 {
		s.history = append([]Entry(nil), s.history[over:]...)
	}
	s.mu.Unlock()
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Info("command failed", slog.String("command", raw), slog.Any("error", err))
	}
	s.publish(Event{Type: EventOutput, Data: entry})
}
