// Package config holds the runtime settings and reads them from gitgud.yaml
// (or a TOML file with the same keys).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml"
	"gopkg.in/yaml.v3"

	"github.com/thiagokokada/gitgud/internal/git"
)

const DefaultFile = "gitgud.yaml"

type Mode string

const (
	ModeServe    Mode = "serve"
	ModeTerminal Mode = "terminal"
	ModeBoth     Mode = "both"
)

type BackendKind string

const (
	BackendNative BackendKind = "native"
	BackendCLI    BackendKind = "cli"
	BackendMemory BackendKind = "memory"
)

type Layout struct {
	LaneSpacing   float64 `yaml:"lane_spacing" toml:"lane_spacing"`
	CommitSpacing float64 `yaml:"commit_spacing" toml:"commit_spacing"`
}

type Config struct {
	Addr          string       `yaml:"addr" toml:"addr"`
	Mode          Mode         `yaml:"mode" toml:"mode"`
	Backend       BackendKind  `yaml:"backend" toml:"backend"`
	Repo          string       `yaml:"repo" toml:"repo"`
	DefaultBranch string       `yaml:"default_branch" toml:"default_branch"`
	Theme         string       `yaml:"theme" toml:"theme"`
	Watch         bool         `yaml:"watch" toml:"watch"`
	Verbose       bool         `yaml:"verbose" toml:"verbose"`
	Identity      git.Identity `yaml:"identity" toml:"identity"`
	Layout        Layout       `yaml:"layout" toml:"layout"`
}

func Default() Config {
	return Config{
		Addr:          "127.0.0.1:3001",
		Mode:          ModeBoth,
		Backend:       BackendNative,
		Repo:          "git-repo",
		DefaultBranch: git.DefaultBranch,
		Theme:         "auto",
		Watch:         true,
	}
}

// Load overlays the file at path onto Default, decoding it as TOML when it
// has a .toml extension and as YAML otherwise. A missing file is not an
// error. String values may reference environment variables.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}
	unmarshal := yaml.Unmarshal
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		unmarshal = toml.Unmarshal
	}
	if err := unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Repo = os.ExpandEnv(cfg.Repo)
	cfg.Addr = os.ExpandEnv(cfg.Addr)
	cfg.Identity.Name = os.ExpandEnv(cfg.Identity.Name)
	cfg.Identity.Email = os.ExpandEnv(cfg.Identity.Email)
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch c.Mode {
	case ModeServe, ModeTerminal, ModeBoth:
	default:
		return fmt.Errorf("invalid mode %q (want serve, terminal or both)", c.Mode)
	}
	switch c.Backend {
	case BackendNative, BackendCLI, BackendMemory:
	default:
		return fmt.Errorf("invalid backend %q (want native, cli or memory)", c.Backend)
	}
	if c.Backend != BackendMemory && strings.TrimSpace(c.Repo) == "" {
		return errors.New("repo path is required")
	}
	if c.Layout.LaneSpacing < 0 || c.Layout.CommitSpacing < 0 {
		return errors.New("layout spacing must not be negative")
	}
	return nil
}

// GitOptions is the backend configuration derived from c.
func (c Config) GitOptions() git.Options {
	return git.Options{DefaultBranch: c.DefaultBranch, Identity: c.Identity}
}
