package git

import (
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
)

// Minimum supported git version for the CLI backend. "git init -b" appeared
// in 2.28.
const minGitVersion = "2.28.0"

var minGitConstraint = semver.MustParse(minGitVersion)

func MinGitVersion() string {
	return minGitVersion
}

// parseGitVersionOutput extracts the numeric version from "git --version".
// Vendor suffixes are dropped:
// - "git version 2.44.0"
// - "git version 2.39.3 (Apple Git-146)"
// - "git version 2.39.3.windows.1"
func parseGitVersionOutput(out string) (*semver.Version, bool) {
	s := strings.TrimSpace(out)
	if idx := strings.Index(s, "git version"); idx >= 0 {
		s = strings.TrimSpace(s[idx+len("git version"):])
	}
	start := strings.IndexFunc(s, func(r rune) bool { return r >= '0' && r <= '9' })
	if start < 0 {
		return nil, false
	}
	s = s[start:]
	if end := strings.IndexFunc(s, func(r rune) bool { return (r < '0' || r > '9') && r != '.' }); end >= 0 {
		s = s[:end]
	}
	parts := strings.Split(strings.Trim(s, "."), ".")
	if len(parts) < 2 {
		return nil, false
	}
	if len(parts) > 3 {
		parts = parts[:3]
	}
	v, err := semver.NewVersion(strings.Join(parts, "."))
	if err != nil {
		return nil, false
	}
	return v, true
}

func validateGitVersionOutput(out string) error {
	got, ok := parseGitVersionOutput(out)
	if !ok {
		return fmt.Errorf("unable to parse git version output: %q", strings.TrimSpace(out))
	}
	if got.LessThan(minGitConstraint) {
		return fmt.Errorf("git %s is too old; gitgud requires git >= %s", got, minGitVersion)
	}
	return nil
}

var (
	gitVersionOnce sync.Once
	gitVersionOut  string
	gitVersionErr  error
)

// GitVersion returns the raw "git --version" output, cached per process.
func GitVersion() (string, error) {
	gitVersionOnce.Do(func() {
		outBytes, err := exec.Command("git", "--version").CombinedOutput()
		gitVersionOut = strings.TrimSpace(string(outBytes))
		if err != nil {
			if gitVersionOut != "" {
				gitVersionErr = fmt.Errorf("git --version: %v: %s", err, gitVersionOut)
				return
			}
			gitVersionErr = fmt.Errorf("git --version: %w", err)
		}
	})
	return gitVersionOut, gitVersionErr
}

func ensureMinGitVersion() error {
	out, err := GitVersion()
	if err != nil {
		return err
	}
	return validateGitVersionOutput(out)
}
