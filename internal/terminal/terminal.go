// Package terminal is the line-oriented command prompt of the playground.
package terminal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	stdlog "log"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/term"

	"github.com/thiagokokada/gitgud/internal/layout"
	"github.com/thiagokokada/gitgud/internal/session"
)

const Prompt = "$ "

const helpText = `Type git commands, for example:
  git init
  git add .
  git commit -m "message"
  git branch <name>
  git checkout <name>
  git checkout -b <name>
  git merge <name>

Meta commands:
  :graph    draw the branch graph
  :status   show the working tree status
  :log      show the repository history
  :diverge  compare the graph with the repository
  :history  show the commands entered so far
  :help     show this help
  :quit     leave the prompt
`

type lineReader interface {
	ReadLine() (string, error)
}

type Options struct {
	Layout layout.Options
	// Highlight colors diffs with ANSI escapes.
	Highlight bool
}

type REPL struct {
	sess *session.Session
	in   lineReader
	out  io.Writer
	opts Options
}

// New returns a REPL that reads lines from r and prints a prompt before
// each one.
func New(sess *session.Session, r io.Reader, w io.Writer, opts Options) *REPL {
	return &REPL{sess: sess, in: &promptReader{sc: bufio.NewScanner(r), w: w, prompt: Prompt}, out: w, opts: opts}
}

// Run attaches a REPL to the process standard streams. An interactive
// terminal gets line editing and history; anything else is read line by line.
func Run(ctx context.Context, sess *session.Session, opts Options) error {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return New(sess, os.Stdin, os.Stdout, opts).Loop(ctx)
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("terminal raw mode: %w", err)
	}
	defer func() {
		if err := term.Restore(fd, state); err != nil {
			slog.Warn("restore terminal", slog.Any("error", err))
		}
	}()
	t := term.NewTerminal(struct {
		io.Reader
		io.Writer
	}{os.Stdin, os.Stdout}, Prompt)
	if w, h, err := term.GetSize(fd); err == nil {
		_ = t.SetSize(w, h)
	}
	// Log lines written straight to stderr would skip the \r that raw mode
	// needs and clobber the prompt; the terminal writer handles both.
	defer redirectLogs(t)()
	opts.Highlight = true
	return (&REPL{sess: sess, in: t, out: t, opts: opts}).Loop(ctx)
}

// redirectLogs points the default slog logger, and the standard log package
// behind it, at w with the current level. The returned func restores both.
func redirectLogs(w io.Writer) (restore func()) {
	prev := slog.Default()
	prevOut, prevFlags := stdlog.Writer(), stdlog.Flags()
	level := log.InfoLevel
	if prev.Enabled(context.Background(), slog.LevelDebug) {
		level = log.DebugLevel
	}
	slog.SetDefault(slog.New(log.NewWithOptions(w, log.Options{
		Prefix:          "gitgud",
		Level:           level,
		ReportTimestamp: true,
	})))
	return func() {
		slog.SetDefault(prev)
		stdlog.SetOutput(prevOut)
		stdlog.SetFlags(prevFlags)
	}
}

// Loop processes lines until end of input, :quit or cancellation of ctx.
func (r *REPL) Loop(ctx context.Context) error {
	fmt.Fprintln(r.out, "gitgud playground. Type :help for help.")
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		line, err := r.in.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(r.out)
				return nil
			}
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ":") {
			if quit := r.meta(ctx, line); quit {
				return nil
			}
			continue
		}
		out, err := r.sess.Submit(ctx, line)
		fmt.Fprintln(r.out, session.Display(out, err))
	}
}

func (r *REPL) meta(ctx context.Context, line string) (quit bool) {
	switch strings.ToLower(line) {
	case ":quit", ":q", ":exit":
		return true
	case ":help", ":h":
		fmt.Fprint(r.out, helpText)
	case ":graph":
		fmt.Fprint(r.out, Render(layout.Compute(r.sess.Graph(), r.opts.Layout)))
	case ":status":
		r.printStatus(ctx)
	case ":log":
		r.printLog(ctx)
	case ":diverge":
		r.printDivergence(ctx)
	case ":history":
		for _, e := range r.sess.History() {
			fmt.Fprintf(r.out, "%s %s\n  %s\n", Prompt, e.Command, e.Output)
		}
	default:
		fmt.Fprintf(r.out, "unknown meta command %s (try :help)\n", line)
	}
	return false
}

func (r *REPL) printStatus(ctx context.Context) {
	if err := r.sess.RefreshStatus(ctx); err != nil {
		fmt.Fprintf(r.out, "Error: %v\n", err)
		return
	}
	st, _ := r.sess.Status()
	fmt.Fprintf(r.out, "On branch %s\n", st.Branch)
	if st.Clean() {
		fmt.Fprintln(r.out, "nothing to commit, working tree clean")
		return
	}
	section := func(title string, paths []string) {
		if len(paths) == 0 {
			return
		}
		fmt.Fprintf(r.out, "%s:\n", title)
		for _, p := range paths {
			fmt.Fprintf(r.out, "  %s\n", p)
		}
	}
	section("Changes to be committed", st.Staged)
	section("Changes not staged for commit", st.Modified)
	section("Untracked files", st.Untracked)
	section("Unmerged paths", st.Conflicted)
}

func (r *REPL) printLog(ctx context.Context) {
	entries, err := r.sess.Log(ctx)
	if err != nil {
		fmt.Fprintf(r.out, "Error: %v\n", err)
		return
	}
	if len(entries) == 0 {
		fmt.Fprintln(r.out, "no commits yet")
		return
	}
	for _, e := range entries {
		hash := e.Hash
		if len(hash) > 7 {
			hash = hash[:7]
		}
		fmt.Fprintf(r.out, "%s %s\n", hash, e.Message)
	}
}

func (r *REPL) printDivergence(ctx context.Context) {
	rep, err := r.sess.Divergence(ctx)
	if err != nil {
		fmt.Fprintf(r.out, "Error: %v\n", err)
		return
	}
	if rep.InSync() {
		fmt.Fprintln(r.out, "graph matches the repository")
		return
	}
	if r.opts.Highlight {
		if err := highlightDiff(r.out, rep.Diff, r.opts.Layout.Palette); err == nil {
			return
		}
	}
	fmt.Fprint(r.out, rep.Diff)
}

type promptReader struct {
	sc     *bufio.Scanner
	w      io.Writer
	prompt string
}

func (p *promptReader) ReadLine() (string, error) {
	fmt.Fprint(p.w, p.prompt)
	if !p.sc.Scan() {
		if err := p.sc.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return p.sc.Text(), nil
}
