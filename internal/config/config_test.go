package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultFile)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg != Default() {
		t.Fatalf("Load() = %+v, want defaults", cfg)
	}
}

func TestLoadOverlaysFile(t *testing.T) {
	t.Setenv("GITGUD_TEST_REPO", "/tmp/playground")

	path := writeConfig(t, `
addr: ":8080"
mode: serve
backend: cli
repo: $GITGUD_TEST_REPO
identity:
  name: Ada
  email: ada@example.com
layout:
  lane_spacing: 50
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Addr != ":8080" || cfg.Mode != ModeServe || cfg.Backend != BackendCLI {
		t.Fatalf("Load() = %+v", cfg)
	}
	if cfg.Repo != "/tmp/playground" {
		t.Fatalf("Repo = %q, want expanded env value", cfg.Repo)
	}
	if cfg.Identity.Name != "Ada" || cfg.Layout.LaneSpacing != 50 {
		t.Fatalf("Load() = %+v", cfg)
	}
	// Keys absent from the file keep their defaults.
	if cfg.DefaultBranch != "main" || !cfg.Watch || cfg.Layout.CommitSpacing != 0 {
		t.Fatalf("defaults lost: %+v", cfg)
	}
	opts := cfg.GitOptions()
	if opts.Identity.Email != "ada@example.com" || opts.DefaultBranch != "main" {
		t.Fatalf("GitOptions() = %+v", opts)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "mode", body: "mode: gui\n", want: "invalid mode"},
		{name: "backend", body: "backend: svn\n", want: "invalid backend"},
		{name: "repo", body: "repo: \"\"\n", want: "repo path is required"},
		{name: "spacing", body: "layout:\n  commit_spacing: -1\n", want: "must not be negative"},
		{name: "syntax", body: "mode: [\n", want: "parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Load(writeConfig(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Load() error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestMemoryBackendNeedsNoRepo(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Backend = BackendMemory
	cfg.Repo = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestLoadTOML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "gitgud.toml")
	body := `addr = ":7000"
backend = "memory"
theme = "dark"

[identity]
name = "Grace"

[layout]
commit_spacing = 80.0
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Addr != ":7000" || cfg.Backend != BackendMemory || cfg.Theme != "dark" {
		t.Fatalf("Load() = %+v", cfg)
	}
	if cfg.Identity.Name != "Grace" || cfg.Layout.CommitSpacing != 80 {
		t.Fatalf("nested values = %+v %+v", cfg.Identity, cfg.Layout)
	}
	if cfg.Mode != ModeBoth || cfg.Repo != "git-repo" {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}
