package git

import (
	"context"
	"errors"
	"time"
)

const DefaultBranch = "main"

var (
	ErrNotRepository  = errors.New("not a git repository (run init first)")
	ErrNonFastForward = errors.New("not possible to fast-forward; only fast-forward merges are supported by the native backend")
	ErrEmptyName      = errors.New("branch not specified")
	ErrLocalChanges   = errors.New("your local changes would be overwritten by merge; commit them first")
)

// Backend is the authoritative version control engine behind a session.
//
// The native implementation uses go-git (on disk or in memory) and the CLI
// implementation shells out to the git executable; callers only see this
// interface.
type Backend interface {
	RepoPath() string

	Init(ctx context.Context) error
	Add(ctx context.Context, paths []string) error
	Commit(ctx context.Context, message string) error
	Branch(ctx context.Context, name string) error
	Checkout(ctx context.Context, ref string) error
	Merge(ctx context.Context, branch string) error

	Status(ctx context.Context) (Status, error)
	Log(ctx context.Context) ([]LogEntry, error)
	Branches(ctx context.Context) (names []string, current string, err error)
}

// FileWriter is implemented by backends that can write into their worktree.
type FileWriter interface {
	WriteFile(name string, data []byte) error
}

type Status struct {
	Branch     string   `json:"branch"`
	Staged     []string `json:"staged"`
	Modified   []string `json:"modified"`
	Untracked  []string `json:"untracked"`
	Conflicted []string `json:"conflicted"`
}

func (s Status) Clean() bool {
	return len(s.Staged) == 0 && len(s.Modified) == 0 && len(s.Untracked) == 0 && len(s.Conflicted) == 0
}

type LogEntry struct {
	Hash    string    `json:"hash"`
	Author  string    `json:"author"`
	Email   string    `json:"email"`
	When    time.Time `json:"when"`
	Message string    `json:"message"`
}

// Identity is the author recorded on commits.
type Identity struct {
	Name  string `yaml:"name" toml:"name" json:"name"`
	Email string `yaml:"email" toml:"email" json:"email"`
}

var defaultIdentity = Identity{Name: "gitgud", Email: "gitgud@localhost"}

type Options struct {
	DefaultBranch string
	Identity      Identity
}

func (o Options) withDefaults() Options {
	if o.DefaultBranch == "" {
		o.DefaultBranch = DefaultBranch
	}
	if o.Identity.Name == "" {
		o.Identity.Name = defaultIdentity.Name
	}
	if o.Identity.Email == "" {
		o.Identity.Email = defaultIdentity.Email
	}
	return o
}
