package git

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage"
	"github.com/go-git/go-git/v5/storage/filesystem"
	"github.com/go-git/go-git/v5/storage/memory"
)

// native is a go-git backed repository. go-git repositories are not safe for
// concurrent use, so every call holds mu.
type native struct {
	mu sync.Mutex

	path   string
	fs     billy.Filesystem
	storer storage.Storer
	repo   *gitlib.Repository
	opts   Options
	now    func() time.Time
}

// OpenNative opens (or prepares to initialize) the repository rooted at
// repoPath using go-git.
func OpenNative(repoPath string, opts Options) (Backend, error) {
	abs, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, err
	}
	fs := osfs.New(abs)
	dot, err := fs.Chroot(gitlib.GitDirName)
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	storer := filesystem.NewStorage(dot, cache.NewObjectLRUDefault())
	n, err := newNative(abs, fs, storer, opts)
	if err != nil {
		return nil, err
	}
	return n, nil
}

// NewMemory returns a backend whose worktree and object store live in memory.
func NewMemory(opts Options) Backend {
	return &native{fs: memfs.New(), storer: memory.NewStorage(), opts: opts.withDefaults(), now: time.Now}
}

func newNative(path string, fs billy.Filesystem, storer storage.Storer, opts Options) (*native, error) {
	n := &native{path: path, fs: fs, storer: storer, opts: opts.withDefaults(), now: time.Now}
	repo, err := gitlib.Open(storer, fs)
	switch {
	case err == nil:
		n.repo = repo
	case errors.Is(err, gitlib.ErrRepositoryNotExists):
		slog.Debug("repository not initialized yet", slog.String("path", path))
	default:
		return nil, fmt.Errorf("open repository: %w", err)
	}
	return n, nil
}

func (n *native) RepoPath() string {
	return n.path
}

func (n *native) Init(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.repo != nil {
		slog.Debug("repository already initialized", slog.String("path", n.path))
		return nil
	}
	repo, err := gitlib.InitWithOptions(n.storer, n.fs, gitlib.InitOptions{
		DefaultBranch: plumbing.NewBranchReferenceName(n.opts.DefaultBranch),
	})
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	n.repo = repo
	return nil
}

func (n *native) Add(ctx context.Context, paths []string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	wt, err := n.worktree()
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		paths = []string{"."}
	}
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		switch {
		case p == "." || p == "-A" || p == "--all":
			err = wt.AddWithOptions(&gitlib.AddOptions{All: true})
		case strings.ContainsAny(p, "*?["):
			err = wt.AddGlob(p)
		default:
			_, err = wt.Add(p)
		}
		if err != nil {
			return fmt.Errorf("add %s: %w", p, err)
		}
	}
	return nil
}

func (n *native) Commit(ctx context.Context, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	wt, err := n.worktree()
	if err != nil {
		return err
	}
	sig := &object.Signature{Name: n.opts.Identity.Name, Email: n.opts.Identity.Email, When: n.now()}
	hash, err := wt.Commit(message, &gitlib.CommitOptions{Author: sig, Committer: sig})
	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	slog.Debug("commit created", slog.String("hash", hash.String()))
	return nil
}

func (n *native) Branch(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.repo == nil {
		return ErrNotRepository
	}
	head, err := n.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return fmt.Errorf("not a valid object name: '%s'", n.unbornBranch())
		}
		return fmt.Errorf("resolve HEAD: %w", err)
	}
	refName := plumbing.NewBranchReferenceName(name)
	if _, err := n.repo.Reference(refName, false); err == nil {
		return fmt.Errorf("a branch named '%s' already exists", name)
	}
	if err := n.repo.Storer.SetReference(plumbing.NewHashReference(refName, head.Hash())); err != nil {
		return fmt.Errorf("create branch %s: %w", name, err)
	}
	return nil
}

func (n *native) Checkout(ctx context.Context, ref string) error {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ErrEmptyName
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	wt, err := n.worktree()
	if err != nil {
		return err
	}
	err = wt.Checkout(&gitlib.CheckoutOptions{Branch: plumbing.NewBranchReferenceName(ref)})
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return fmt.Errorf("pathspec '%s' did not match any file(s) known to git", ref)
	}
	if err != nil {
		return fmt.Errorf("checkout %s: %w", ref, err)
	}
	return nil
}

func (n *native) Merge(ctx context.Context, branch string) error {
	branch = strings.TrimSpace(branch)
	if branch == "" {
		return ErrEmptyName
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	wt, err := n.worktree()
	if err != nil {
		return err
	}
	head, err := n.repo.Head()
	if err != nil {
		return fmt.Errorf("resolve HEAD: %w", err)
	}
	src, err := n.repo.Reference(plumbing.NewBranchReferenceName(branch), true)
	if err != nil {
		return fmt.Errorf("merge: %s - not something we can merge", branch)
	}
	if src.Hash() == head.Hash() {
		return nil
	}
	headCommit, err := n.repo.CommitObject(head.Hash())
	if err != nil {
		return fmt.Errorf("read HEAD commit: %w", err)
	}
	srcCommit, err := n.repo.CommitObject(src.Hash())
	if err != nil {
		return fmt.Errorf("read %s commit: %w", branch, err)
	}
	upToDate, err := srcCommit.IsAncestor(headCommit)
	if err != nil {
		return fmt.Errorf("merge base: %w", err)
	}
	if upToDate {
		slog.Debug("merge already up to date", slog.String("branch", branch))
		return nil
	}
	fastForward, err := headCommit.IsAncestor(srcCommit)
	if err != nil {
		return fmt.Errorf("merge base: %w", err)
	}
	if !fastForward {
		return fmt.Errorf("merge %s: %w", branch, ErrNonFastForward)
	}
	// The hard reset below discards the index and worktree, so refuse
	// while the worktree has any change, untracked files included.
	st, err := wt.Status()
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}
	if !st.IsClean() {
		return fmt.Errorf("merge %s: %w", branch, ErrLocalChanges)
	}
	// A hard reset on a branch HEAD moves the branch and updates the worktree.
	if err := wt.Reset(&gitlib.ResetOptions{Commit: src.Hash(), Mode: gitlib.HardReset}); err != nil {
		return fmt.Errorf("fast-forward %s: %w", branch, err)
	}
	return nil
}

func (n *native) Status(ctx context.Context) (Status, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	var res Status
	wt, err := n.worktree()
	if err != nil {
		return res, err
	}
	res.Branch = n.currentBranch()
	st, err := wt.Status()
	if err != nil {
		return res, fmt.Errorf("status: %w", err)
	}
	for path, fs := range st {
		if fs.Staging == gitlib.UpdatedButUnmerged || fs.Worktree == gitlib.UpdatedButUnmerged {
			res.Conflicted = append(res.Conflicted, path)
			continue
		}
		if fs.Staging == gitlib.Untracked && fs.Worktree == gitlib.Untracked {
			res.Untracked = append(res.Untracked, path)
			continue
		}
		if fs.Staging != gitlib.Unmodified {
			res.Staged = append(res.Staged, path)
		}
		if fs.Worktree != gitlib.Unmodified {
			res.Modified = append(res.Modified, path)
		}
	}
	slices.Sort(res.Staged)
	slices.Sort(res.Modified)
	slices.Sort(res.Untracked)
	slices.Sort(res.Conflicted)
	return res, nil
}

func (n *native) Log(ctx context.Context) ([]LogEntry, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.repo == nil {
		return nil, ErrNotRepository
	}
	head, err := n.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return []LogEntry{}, nil
		}
		return nil, fmt.Errorf("resolve HEAD: %w", err)
	}
	iter, err := n.repo.Log(&gitlib.LogOptions{From: head.Hash(), Order: gitlib.LogOrderCommitterTime})
	if err != nil {
		return nil, fmt.Errorf("read commits: %w", err)
	}
	defer iter.Close()
	entries := []LogEntry{}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c, err := iter.Next()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("iterate commits: %w", err)
		}
		entries = append(entries, LogEntry{
			Hash:    c.Hash.String(),
			Author:  c.Author.Name,
			Email:   c.Author.Email,
			When:    c.Author.When,
			Message: subject(c.Message),
		})
	}
	return entries, nil
}

func (n *native) Branches(ctx context.Context) ([]string, string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.repo == nil {
		return nil, "", ErrNotRepository
	}
	refs, err := n.repo.Branches()
	if err != nil {
		return nil, "", fmt.Errorf("list branches: %w", err)
	}
	defer refs.Close()
	var names []string
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		names = append(names, ref.Name().Short())
		return nil
	})
	if err != nil {
		return nil, "", fmt.Errorf("list branches: %w", err)
	}
	slices.Sort(names)
	return names, n.currentBranch(), nil
}

func (n *native) WriteFile(name string, data []byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return util.WriteFile(n.fs, name, data, 0o644)
}

func (n *native) worktree() (*gitlib.Worktree, error) {
	if n.repo == nil {
		return nil, ErrNotRepository
	}
	wt, err := n.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("worktree: %w", err)
	}
	return wt, nil
}

// currentBranch expects the caller to hold mu.
func (n *native) currentBranch() string {
	head, err := n.repo.Head()
	if err == nil {
		if head.Name().IsBranch() {
			return head.Name().Short()
		}
		return "HEAD"
	}
	return n.unbornBranch()
}

// unbornBranch is the branch HEAD points at before the first commit.
func (n *native) unbornBranch() string {
	ref, err := n.repo.Storer.Reference(plumbing.HEAD)
	if err != nil || ref.Type() != plumbing.SymbolicReference {
		return n.opts.DefaultBranch
	}
	return ref.Target().Short()
}

func subject(message string) string {
	return strings.SplitN(strings.TrimSpace(message), "\n", 2)[0]
}
