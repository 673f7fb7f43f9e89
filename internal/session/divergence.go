package session

import (
	"context"
	"fmt"
	"slices"

	"github.com/pmezard/go-difflib/difflib"
)

// Report compares the local projection with what the repository actually
// holds. It is informational; the projection is never rebuilt from it.
type Report struct {
	ProjectedBranches  []string `json:"projectedBranches"`
	RepositoryBranches []string `json:"repositoryBranches"`
	ProjectedCurrent   string   `json:"projectedCurrent"`
	RepositoryCurrent  string   `json:"repositoryCurrent"`
	// Commit messages on the current branch, oldest first.
	ProjectedCommits  []string `json:"projectedCommits"`
	RepositoryCommits []string `json:"repositoryCommits"`
	// Diff is a unified diff from the projection to the repository, empty
	// when both agree.
	Diff string `json:"diff"`
}

func (r Report) InSync() bool {
	return r.Diff == ""
}

func (s *Session) Divergence(ctx context.Context) (Report, error) {
	g := s.Graph()
	var rep Report
	for _, b := range g.Branches() {
		rep.ProjectedBranches = append(rep.ProjectedBranches, b.Name)
	}
	slices.Sort(rep.ProjectedBranches)
	rep.ProjectedCurrent = g.Current()
	if b, ok := g.Branch(g.Current()); ok {
		for _, c := range b.Commits {
			rep.ProjectedCommits = append(rep.ProjectedCommits, c.Message)
		}
	}

	names, current, err := s.backend.Branches(ctx)
	if err != nil {
		return rep, fmt.Errorf("read branches: %w", err)
	}
	rep.RepositoryBranches = slices.Sorted(slices.Values(names))
	rep.RepositoryCurrent = current
	entries, err := s.backend.Log(ctx)
	if err != nil {
		return rep, fmt.Errorf("read log: %w", err)
	}
	for i := len(entries) - 1; i >= 0; i-- {
		rep.RepositoryCommits = append(rep.RepositoryCommits, entries[i].Message)
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        reportLines(rep.ProjectedBranches, rep.ProjectedCurrent, rep.ProjectedCommits),
		B:        reportLines(rep.RepositoryBranches, rep.RepositoryCurrent, rep.RepositoryCommits),
		FromFile: "projection",
		ToFile:   "repository",
		Context:  3,
	})
	if err != nil {
		return rep, fmt.Errorf("diff: %w", err)
	}
	rep.Diff = diff
	return rep, nil
}

func reportLines(branches []string, current string, commits []string) []string {
	lines := make([]string, 0, len(branches)+len(commits)+1)
	for _, b := range branches {
		lines = append(lines, "branch "+b+"\n")
	}
	lines = append(lines, "current "+current+"\n")
	for _, c := range commits {
		lines = append(lines, "commit "+c+"\n")
	}
	return lines
}
