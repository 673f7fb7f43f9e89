// Package graph holds the local, append-only projection of branches, commits
// and merges used for visualization. It never consults a backend; the
// projection approximates backend history but is not kept in sync with it.
package graph

import "slices"

const (
	DefaultBranch = "main"
	SeedMessage   = "Initial commit"
)

type Commit struct {
	// DisplayID is a cosmetic identifier. It is never a backend commit hash.
	DisplayID string `json:"displayId"`
	Message   string `json:"message"`
	Position  int    `json:"position"`
}

type MergeEdge struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Position int    `json:"position"`
}

type Branch struct {
	Name    string      `json:"name"`
	Commits []Commit    `json:"commits"`
	Merges  []MergeEdge `json:"merges"`
}

// NextPosition is one past the highest commit position on the branch, or 1
// when it has no commits. Merge edges do not advance positions.
func (b Branch) NextPosition() int {
	next := 1
	for _, c := range b.Commits {
		if c.Position >= next {
			next = c.Position + 1
		}
	}
	return next
}

func (b Branch) clone() Branch {
	return Branch{
		Name:    b.Name,
		Commits: slices.Clone(b.Commits),
		Merges:  slices.Clone(b.Merges),
	}
}

// Graph is an insertion-ordered set of branches plus the current branch.
// Values are treated as immutable: every change goes through Apply, which
// returns a new Graph.
type Graph struct {
	branches []Branch
	current  string
}

// New returns a graph with the default branch holding a single seed commit.
func New(defaultBranch, seedID string) Graph {
	if defaultBranch == "" {
		defaultBranch = DefaultBranch
	}
	return Graph{
		branches: []Branch{{
			Name:    defaultBranch,
			Commits: []Commit{{DisplayID: seedID, Message: SeedMessage, Position: 1}},
			Merges:  []MergeEdge{},
		}},
		current: defaultBranch,
	}
}

func (g Graph) Current() string {
	return g.current
}

// Branches returns a deep copy of the branches in insertion order.
func (g Graph) Branches() []Branch {
	out := make([]Branch, len(g.branches))
	for i, b := range g.branches {
		out[i] = b.clone()
	}
	return out
}

func (g Graph) Len() int {
	return len(g.branches)
}

func (g Graph) Index(name string) int {
	return slices.IndexFunc(g.branches, func(b Branch) bool { return b.Name == name })
}

func (g Graph) Branch(name string) (Branch, bool) {
	idx := g.Index(name)
	if idx < 0 {
		return Branch{}, false
	}
	return g.branches[idx].clone(), true
}

func (g Graph) Has(name string) bool {
	return g.Index(name) >= 0
}

func (g Graph) clone() Graph {
	return Graph{branches: g.Branches(), current: g.current}
}

// Snapshot is the serializable form of a Graph.
type Snapshot struct {
	Branches      []Branch `json:"branches"`
	CurrentBranch string   `json:"currentBranch"`
}

func (g Graph) Snapshot() Snapshot {
	return Snapshot{Branches: g.Branches(), CurrentBranch: g.current}
}
