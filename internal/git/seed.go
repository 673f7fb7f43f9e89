package git

import (
	"context"
	"fmt"
	"log/slog"
)

const (
	SeedFile    = "README.md"
	SeedMessage = "Initial commit"
	seedContent = "# Git Training Repository\n\nThis is a sample repository for Git training.\n"
)

// Seed makes sure the repository exists and has history. An empty or missing
// repository is initialized with a README and an initial commit, matching the
// seed commit of a fresh graph. It reports whether anything was created.
func Seed(ctx context.Context, b Backend) (bool, error) {
	entries, err := b.Log(ctx)
	if err == nil && len(entries) > 0 {
		return false, nil
	}
	slog.Debug("seeding repository", slog.String("path", b.RepoPath()))
	if err := b.Init(ctx); err != nil {
		return false, fmt.Errorf("seed: %w", err)
	}
	w, ok := b.(FileWriter)
	if !ok {
		return false, fmt.Errorf("seed: backend %T cannot write files", b)
	}
	if err := w.WriteFile(SeedFile, []byte(seedContent)); err != nil {
		return false, fmt.Errorf("seed: write %s: %w", SeedFile, err)
	}
	if err := b.Add(ctx, []string{SeedFile}); err != nil {
		return false, fmt.Errorf("seed: %w", err)
	}
	if err := b.Commit(ctx, SeedMessage); err != nil {
		return false, fmt.Errorf("seed: %w", err)
	}
	return true, nil
}
