// Package dispatch turns parsed operations into calls on a version control
// backend.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/thiagokokada/gitgud/internal/command"
	"github.com/thiagokokada/gitgud/internal/git"
)

// ParseError is returned for operations no backend understands.
type ParseError struct {
	Subcommand string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("Command not supported: %s", e.Subcommand)
}

// BackendError carries a failure reported by the backend. Its message is the
// backend's own message.
type BackendError struct {
	Op  command.Operation
	Err error
}

func (e *BackendError) Error() string {
	return e.Err.Error()
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// RefreshFunc re-reads derived state (such as the working tree status) after
// an operation reached the backend.
type RefreshFunc func(ctx context.Context) error

type Dispatcher struct {
	backend git.Backend
	refresh RefreshFunc
	wg      sync.WaitGroup
}

func New(backend git.Backend, refresh RefreshFunc) *Dispatcher {
	return &Dispatcher{backend: backend, refresh: refresh}
}

// Dispatch performs op against the backend and returns its result message.
// CheckoutNew creates the branch and only switches to it when creation
// succeeded. Failures are not retried.
func (d *Dispatcher) Dispatch(ctx context.Context, op command.Operation) (string, error) {
	if !op.Supported() {
		return "", &ParseError{Subcommand: op.Args.Subcommand}
	}
	msg, err := d.call(ctx, op)
	d.scheduleRefresh(ctx, op)
	if err != nil {
		slog.Debug("backend call failed", slog.String("op", op.String()), slog.Any("error", err))
		return "", &BackendError{Op: op, Err: err}
	}
	return msg, nil
}

func (d *Dispatcher) call(ctx context.Context, op command.Operation) (string, error) {
	b := d.backend
	switch op.Kind {
	case command.KindInit:
		if err := b.Init(ctx); err != nil {
			return "", err
		}
		return "Repository initialized successfully", nil
	case command.KindAdd:
		if err := b.Add(ctx, splitFiles(op.Args.Files)); err != nil {
			return "", err
		}
		return "Files staged successfully", nil
	case command.KindCommit:
		if err := b.Commit(ctx, op.Args.Message); err != nil {
			return "", err
		}
		return "Changes committed successfully", nil
	case command.KindBranch:
		if err := b.Branch(ctx, op.Args.BranchName); err != nil {
			return "", err
		}
		return fmt.Sprintf(`Branch "%s" created successfully`, op.Args.BranchName), nil
	case command.KindCheckout:
		if err := b.Checkout(ctx, op.Args.BranchName); err != nil {
			return "", err
		}
		return fmt.Sprintf(`Switched to branch "%s"`, op.Args.BranchName), nil
	case command.KindCheckoutNew:
		if err := b.Branch(ctx, op.Args.BranchName); err != nil {
			return "", err
		}
		if err := b.Checkout(ctx, op.Args.BranchName); err != nil {
			return "", err
		}
		return fmt.Sprintf(`Switched to branch "%s"`, op.Args.BranchName), nil
	case command.KindMerge:
		if err := b.Merge(ctx, op.Args.TargetBranch); err != nil {
			return "", err
		}
		return fmt.Sprintf(`Merged branch "%s" into current branch`, op.Args.TargetBranch), nil
	default:
		return "", fmt.Errorf("unhandled operation %s", op.Kind)
	}
}

// scheduleRefresh runs the refresh on its own goroutine. It outlives ctx's
// cancellation and its errors are only logged.
func (d *Dispatcher) scheduleRefresh(ctx context.Context, op command.Operation) {
	if d.refresh == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.refresh(ctx); err != nil {
			slog.Warn("refresh status", slog.String("op", op.String()), slog.Any("error", err))
		}
	}()
}

// Wait blocks until every scheduled refresh has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func splitFiles(files string) []string {
	paths := strings.Fields(files)
	if len(paths) == 0 {
		return []string{command.DefaultFiles}
	}
	return paths
}
