// Package gittest provides a scriptable git.Backend for tests.
package gittest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/thiagokokada/gitgud/internal/git"
)

// Fake records every call it receives and delegates to the optional func
// fields. Unset mutating funcs succeed; unset read funcs return zero values.
type Fake struct {
	Path string

	InitFunc     func(ctx context.Context) error
	AddFunc      func(ctx context.Context, paths []string) error
	CommitFunc   func(ctx context.Context, message string) error
	BranchFunc   func(ctx context.Context, name string) error
	CheckoutFunc func(ctx context.Context, ref string) error
	MergeFunc    func(ctx context.Context, branch string) error
	StatusFunc   func(ctx context.Context) (git.Status, error)
	LogFunc      func(ctx context.Context) ([]git.LogEntry, error)
	BranchesFunc func(ctx context.Context) ([]string, string, error)

	mu    sync.Mutex
	calls []string
}

var _ git.Backend = (*Fake)(nil)

// Calls returns the recorded calls, e.g. "branch dev" or "status".
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// MutatingCalls returns the recorded calls that are not reads.
func (f *Fake) MutatingCalls() []string {
	var out []string
	for _, c := range f.Calls() {
		switch c {
		case "status", "log", "branches":
			continue
		}
		out = append(out, c)
	}
	return out
}

func (f *Fake) record(format string, args ...any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (f *Fake) RepoPath() string { return f.Path }

func (f *Fake) Init(ctx context.Context) error {
	f.record("init")
	if f.InitFunc != nil {
		return f.InitFunc(ctx)
	}
	return nil
}

func (f *Fake) Add(ctx context.Context, paths []string) error {
	f.record("add %s", strings.Join(paths, " "))
	if f.AddFunc != nil {
		return f.AddFunc(ctx, paths)
	}
	return nil
}

func (f *Fake) Commit(ctx context.Context, message string) error {
	f.record("commit %s", message)
	if f.CommitFunc != nil {
		return f.CommitFunc(ctx, message)
	}
	return nil
}

func (f *Fake) Branch(ctx context.Context, name string) error {
	f.record("branch %s", name)
	if f.BranchFunc != nil {
		return f.BranchFunc(ctx, name)
	}
	return nil
}

func (f *Fake) Checkout(ctx context.Context, ref string) error {
	f.record("checkout %s", ref)
	if f.CheckoutFunc != nil {
		return f.CheckoutFunc(ctx, ref)
	}
	return nil
}

func (f *Fake) Merge(ctx context.Context, branch string) error {
	f.record("merge %s", branch)
	if f.MergeFunc != nil {
		return f.MergeFunc(ctx, branch)
	}
	return nil
}

func (f *Fake) Status(ctx context.Context) (git.Status, error) {
	f.record("status")
	if f.StatusFunc != nil {
		return f.StatusFunc(ctx)
	}
	return git.Status{}, nil
}

func (f *Fake) Log(ctx context.Context) ([]git.LogEntry, error) {
	f.record("log")
	if f.LogFunc != nil {
		return f.LogFunc(ctx)
	}
	return []git.LogEntry{}, nil
}

func (f *Fake) Branches(ctx context.Context) ([]string, string, error) {
	f.record("branches")
	if f.BranchesFunc != nil {
		return f.BranchesFunc(ctx)
	}
	return nil, "", nil
}
