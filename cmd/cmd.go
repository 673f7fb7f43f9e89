package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/thiagokokada/gitgud/internal/app"
	"github.com/thiagokokada/gitgud/internal/buildinfo"
	"github.com/thiagokokada/gitgud/internal/config"
)

func Run() error {
	return run(os.Args[1:])
}

func run(args []string) error {
	cfg, showVersion, err := parseFlags(args)
	if err != nil {
		if err == flag.ErrHelp {
			return nil
		}
		return err
	}
	if showVersion {
		fmt.Println(buildinfo.VersionWithTags())
		return nil
	}
	app.SetupLogging(os.Stderr, cfg.Verbose)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return app.Run(ctx, cfg)
}

// parseFlags reads the config file first so explicit flags win over it.
func parseFlags(args []string) (config.Config, bool, error) {
	fs := flag.NewFlagSet("gitgud", flag.ContinueOnError)
	configPath := fs.String("config", config.DefaultFile, "path to the YAML (or .toml) configuration file")
	addr := fs.String("addr", "", "HTTP listen address")
	mode := fs.String("mode", "", "what to run: serve, terminal or both")
	backend := fs.String("backend", "", "repository backend: native, cli or memory")
	theme := fs.String("theme", "", "graph colors: auto, light or dark")
	branch := fs.String("branch", "", "name of the initial branch")
	noWatch := fs.Bool("nowatch", false, "disable automatic refresh when the repository changes")
	verbose := fs.Bool("verbose", false, "enable verbose logging")
	showVersion := fs.Bool("version", false, "print version information and exit")
	if err := fs.Parse(args); err != nil {
		return config.Config{}, false, err
	}
	if *showVersion {
		return config.Config{}, true, nil
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return cfg, false, err
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Addr = *addr
		case "mode":
			cfg.Mode = config.Mode(*mode)
		case "backend":
			cfg.Backend = config.BackendKind(*backend)
		case "theme":
			cfg.Theme = *theme
		case "branch":
			cfg.DefaultBranch = *branch
		case "nowatch":
			cfg.Watch = !*noWatch
		case "verbose":
			cfg.Verbose = *verbose
		}
	})
	if remaining := fs.Args(); len(remaining) > 0 {
		cfg.Repo = remaining[len(remaining)-1]
	}
	return cfg, false, cfg.Validate()
}
