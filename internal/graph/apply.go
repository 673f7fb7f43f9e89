package graph

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/thiagokokada/gitgud/internal/command"
)

type Status uint8

const (
	Applied Status = iota
	Ignored
)

func (s Status) String() string {
	if s == Ignored {
		return "ignored"
	}
	return "applied"
}

type Reason string

const (
	ReasonNone            Reason = ""
	ReasonDuplicateBranch Reason = "duplicate branch"
	ReasonUnknownBranch   Reason = "unknown branch"
	ReasonEmptyBranchName Reason = "empty branch name"
	ReasonNoVisualEffect  Reason = "no visual effect"
)

// Outcome tells whether an operation changed the graph. Ignored outcomes
// carry the reason instead of failing, so callers can observe the no-op.
type Outcome struct {
	Status Status `json:"status"`
	Reason Reason `json:"reason,omitempty"`
	Detail string `json:"detail,omitempty"`
}

func (o Outcome) Applied() bool {
	return o.Status == Applied
}

func (o Outcome) String() string {
	if o.Status == Applied {
		return o.Status.String()
	}
	if o.Detail != "" {
		return fmt.Sprintf("ignored (%s: %s)", o.Reason, o.Detail)
	}
	return fmt.Sprintf("ignored (%s)", o.Reason)
}

func applied() Outcome {
	return Outcome{Status: Applied}
}

func ignored(reason Reason, detail string) Outcome {
	return Outcome{Status: Ignored, Reason: reason, Detail: detail}
}

// NewDisplayID returns 16 lowercase hex characters taken from a random UUID.
func NewDisplayID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

// Reducer applies operations to graphs. NewID supplies display identifiers
// for new commits; NewDisplayID is used when it is nil.
type Reducer struct {
	NewID func() string
}

var defaultReducer Reducer

// Apply is Reducer.Apply with random display identifiers.
func Apply(g Graph, op command.Operation) (Graph, Outcome) {
	return defaultReducer.Apply(g, op)
}

// Apply returns the graph that results from op and whether op changed it.
// g itself is never modified.
func (r Reducer) Apply(g Graph, op command.Operation) (Graph, Outcome) {
	switch op.Kind {
	case command.KindBranch:
		return r.createBranch(g, op.Args.BranchName)
	case command.KindCheckoutNew:
		next, outcome := r.createBranch(g, op.Args.BranchName)
		if outcome.Reason == ReasonEmptyBranchName {
			return g, outcome
		}
		// An already present branch is still switched to.
		next.current = op.Args.BranchName
		return next, applied()
	case command.KindCheckout:
		name := op.Args.BranchName
		if !g.Has(name) {
			return g, ignored(ReasonUnknownBranch, name)
		}
		next := g.clone()
		next.current = name
		return next, applied()
	case command.KindCommit:
		return r.commit(g, op.Args.Message)
	case command.KindMerge:
		return r.merge(g, op.Args.TargetBranch)
	default:
		return g, ignored(ReasonNoVisualEffect, op.Kind.String())
	}
}

func (r Reducer) createBranch(g Graph, name string) (Graph, Outcome) {
	if name == "" {
		return g, ignored(ReasonEmptyBranchName, "")
	}
	if g.Has(name) {
		return g, ignored(ReasonDuplicateBranch, name)
	}
	next := g.clone()
	next.branches = append(next.branches, Branch{Name: name, Commits: []Commit{}, Merges: []MergeEdge{}})
	return next, applied()
}

func (r Reducer) commit(g Graph, message string) (Graph, Outcome) {
	idx := g.Index(g.current)
	if idx < 0 {
		return g, ignored(ReasonUnknownBranch, g.current)
	}
	if message == "" {
		message = command.DefaultMessage
	}
	next := g.clone()
	branch := &next.branches[idx]
	branch.Commits = append(branch.Commits, Commit{
		DisplayID: r.newID(),
		Message:   message,
		Position:  branch.NextPosition(),
	})
	return next, applied()
}

func (r Reducer) merge(g Graph, source string) (Graph, Outcome) {
	target := g.Index(g.current)
	if target < 0 {
		return g, ignored(ReasonUnknownBranch, g.current)
	}
	if !g.Has(source) {
		return g, ignored(ReasonUnknownBranch, source)
	}
	next := g.clone()
	branch := &next.branches[target]
	branch.Merges = append(branch.Merges, MergeEdge{
		From:     source,
		To:       branch.Name,
		Position: branch.NextPosition(),
	})
	return next, applied()
}

func (r Reducer) newID() string {
	if r.NewID != nil {
		return r.NewID()
	}
	return NewDisplayID()
}
