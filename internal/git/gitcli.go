package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

type gitCLI struct {
	path string
	opts Options
}

// OpenCLI returns a backend that runs the git executable inside repoPath.
// The directory does not need to be a repository yet; Init creates it.
func OpenCLI(repoPath string, opts Options) (Backend, error) {
	if err := ensureMinGitVersion(); err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	return &gitCLI{path: abs, opts: opts.withDefaults()}, nil
}

func (g *gitCLI) RepoPath() string {
	if g == nil {
		return ""
	}
	return g.path
}

func (g *gitCLI) WriteFile(name string, data []byte) error {
	if g == nil || g.path == "" {
		return fmt.Errorf("repository root not set")
	}
	return os.WriteFile(filepath.Join(g.path, filepath.FromSlash(name)), data, 0o644)
}

func (g *gitCLI) runGitCommand(ctx context.Context, args []string, allowExit1 bool, label string) (string, error) {
	if g == nil || g.path == "" {
		return "", fmt.Errorf("repository root not set")
	}
	cmdArgs := append([]string{"-C", g.path}, args...)
	cmd := exec.CommandContext(ctx, "git", cmdArgs...)
	// Never fall through to a repository that encloses the playground.
	cmd.Env = append(os.Environ(), "GIT_CEILING_DIRECTORIES="+filepath.Dir(g.path))
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if allowExit1 && errors.As(err, &exitErr) && exitErr.ExitCode() == 1 && stderr.Len() == 0 {
			// rev-parse -q and symbolic-ref -q signal "nothing there" via exit code 1
		} else {
			if msg := commandMessage(stderr.String(), stdout.String()); msg != "" {
				return "", fmt.Errorf("%s: %s", label, msg)
			}
			return "", fmt.Errorf("%s: %w", label, err)
		}
	}
	return stdout.String(), nil
}

// commandMessage picks the text git printed about a failure. Some commands
// (merge, commit) explain themselves on stdout instead of stderr.
func commandMessage(stderr, stdout string) string {
	if msg := strings.TrimSpace(stderr); msg != "" {
		return msg
	}
	return strings.TrimSpace(stdout)
}
