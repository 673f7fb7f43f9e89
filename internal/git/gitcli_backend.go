package git

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"
)

const logFieldSep = "\x1f"

func (g *gitCLI) Init(ctx context.Context) error {
	_, err := g.runGitCommand(ctx, []string{"init", "-b", g.opts.DefaultBranch}, false, "git init")
	return err
}

func (g *gitCLI) Add(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		paths = []string{"."}
	}
	args := append([]string{"add", "--"}, paths...)
	_, err := g.runGitCommand(ctx, args, false, "git add")
	return err
}

func (g *gitCLI) Commit(ctx context.Context, message string) error {
	args := []string{
		"-c", "user.name=" + g.opts.Identity.Name,
		"-c", "user.email=" + g.opts.Identity.Email,
		"commit", "--no-gpg-sign", "-m", message,
	}
	_, err := g.runGitCommand(ctx, args, false, "git commit")
	return err
}

func (g *gitCLI) Branch(ctx context.Context, name string) error {
	name, err := refArgument(name)
	if err != nil {
		return err
	}
	_, err = g.runGitCommand(ctx, []string{"branch", name}, false, "git branch")
	return err
}

func (g *gitCLI) Checkout(ctx context.Context, ref string) error {
	ref, err := refArgument(ref)
	if err != nil {
		return err
	}
	// The trailing "--" keeps ref from being read as a path.
	_, err = g.runGitCommand(ctx, []string{"checkout", ref, "--"}, false, "git checkout")
	return err
}

func (g *gitCLI) Merge(ctx context.Context, branch string) error {
	branch, err := refArgument(branch)
	if err != nil {
		return err
	}
	args := []string{
		"-c", "user.name=" + g.opts.Identity.Name,
		"-c", "user.email=" + g.opts.Identity.Email,
		"merge", "--no-edit", branch,
	}
	_, err = g.runGitCommand(ctx, args, false, "git merge")
	return err
}

func (g *gitCLI) Status(ctx context.Context) (Status, error) {
	out, err := g.runGitCommand(ctx, []string{"status", "--porcelain=v2", "--branch"}, false, "git status")
	if err != nil {
		return Status{}, err
	}
	res, err := parseStatusPorcelainV2(strings.NewReader(out))
	if err != nil {
		return res, fmt.Errorf("parse git status: %w", err)
	}
	return res, nil
}

func (g *gitCLI) Log(ctx context.Context) ([]LogEntry, error) {
	out, err := g.runGitCommand(ctx, []string{"rev-parse", "-q", "--verify", "HEAD"}, true, "git rev-parse")
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(out) == "" {
		return []LogEntry{}, nil
	}
	format := strings.Join([]string{"%H", "%an", "%ae", "%at", "%s"}, "%x1f")
	out, err = g.runGitCommand(ctx, []string{"--no-pager", "log", "--no-color", "--format=" + format}, false, "git log")
	if err != nil {
		return nil, err
	}
	return parseLogOutput(out)
}

func (g *gitCLI) Branches(ctx context.Context) ([]string, string, error) {
	out, err := g.runGitCommand(ctx, []string{"--no-pager", "show-ref", "--heads"}, true, "git show-ref")
	if err != nil {
		return nil, "", err
	}
	names, err := parseBranchesFromShowRef(out)
	if err != nil {
		return nil, "", err
	}
	slices.Sort(names)
	head, err := g.runGitCommand(ctx, []string{"symbolic-ref", "-q", "--short", "HEAD"}, true, "git symbolic-ref")
	if err != nil {
		return nil, "", err
	}
	current := strings.TrimSpace(head)
	if current == "" {
		current = "HEAD"
	}
	return names, current, nil
}

func refArgument(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyName
	}
	if strings.HasPrefix(name, "-") {
		return "", fmt.Errorf("invalid branch name: %q", name)
	}
	return name, nil
}

func parseStatusPorcelainV2(r io.Reader) (Status, error) {
	var res Status
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) < 2 {
			continue
		}
		switch line[0] {
		case '#':
			if head, ok := strings.CutPrefix(line, "# branch.head "); ok {
				res.Branch = strings.TrimSpace(head)
				if res.Branch == "(detached)" {
					res.Branch = "HEAD"
				}
			}
		case '1', '2':
			fields := 9
			if line[0] == '2' {
				fields = 10
			}
			parts := strings.SplitN(line, " ", fields)
			if len(parts) < fields || len(parts[1]) < 2 {
				continue
			}
			path := parts[fields-1]
			if line[0] == '2' {
				path, _, _ = strings.Cut(path, "\t")
			}
			if parts[1][0] != '.' {
				res.Staged = append(res.Staged, path)
			}
			if parts[1][1] != '.' {
				res.Modified = append(res.Modified, path)
			}
		case 'u':
			parts := strings.SplitN(line, " ", 11)
			if len(parts) < 11 {
				continue
			}
			res.Conflicted = append(res.Conflicted, parts[10])
		case '?':
			res.Untracked = append(res.Untracked, strings.TrimSpace(line[1:]))
		default:
			// '!' ignored entries
		}
	}
	return res, scanner.Err()
}

func parseLogOutput(out string) ([]LogEntry, error) {
	entries := []LogEntry{}
	for _, rawLine := range strings.Split(out, "\n") {
		line := strings.TrimRight(rawLine, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.SplitN(line, logFieldSep, 5)
		if len(parts) != 5 {
			return nil, fmt.Errorf("unexpected log output line: %q", rawLine)
		}
		secs, err := strconv.ParseInt(parts[3], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("unexpected log timestamp %q: %w", parts[3], err)
		}
		entries = append(entries, LogEntry{
			Hash:    parts[0],
			Author:  parts[1],
			Email:   parts[2],
			When:    time.Unix(secs, 0).UTC(),
			Message: parts[4],
		})
	}
	return entries, nil
}
