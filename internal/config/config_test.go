package config_test

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"dcmcanon/internal/config"
)

func TestLoadDefaultConfigExpandsPathsAndFillsToolchain(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantLogs := filepath.Join(tempHome, ".local", "share", "dcmcanon", "logs")
	if cfg.Paths.LogDir != wantLogs {
		t.Fatalf("unexpected log dir: got %q want %q", cfg.Paths.LogDir, wantLogs)
	}
	wantJournal := filepath.Join(tempHome, ".local", "share", "dcmcanon", "journal.db")
	if cfg.Journal.Path != wantJournal {
		t.Fatalf("unexpected journal path: got %q want %q", cfg.Journal.Path, wantJournal)
	}
	if len(cfg.Toolchain) != 2 {
		t.Fatalf("expected default two-tier chain, got %d tiers", len(cfg.Toolchain))
	}
	if cfg.Toolchain[0].Name != "dcmdjpeg" || cfg.Toolchain[1].Name != "dcmconv" {
		t.Fatalf("unexpected default chain order: %+v", cfg.Toolchain)
	}
	if cfg.PoolSize() != runtime.NumCPU() {
		t.Fatalf("expected pool size to follow CPU count, got %d", cfg.PoolSize())
	}
	if !cfg.Conversion.SweepStale || !cfg.Conversion.RequireOutput {
		t.Fatal("expected stale sweep and output check enabled by default")
	}
	if !cfg.Conversion.IncludeHidden {
		t.Fatal("expected dot-files to be enumerated by default")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.LogDir, cfg.Paths.StateDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPathReplacesToolchain(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "dcmcanon.toml")

	type tool struct {
		Name    string   `toml:"name"`
		Command string   `toml:"command"`
		Args    []string `toml:"args"`
	}
	type payload struct {
		Paths struct {
			LogDir string `toml:"log_dir"`
		} `toml:"paths"`
		Workers struct {
			PoolSize int `toml:"pool_size"`
		} `toml:"workers"`
		Toolchain  []tool `toml:"toolchain"`
		Conversion struct {
			Extensions []string `toml:"extensions"`
		} `toml:"conversion"`
	}
	custom := payload{}
	custom.Paths.LogDir = filepath.Join(tempDir, "logs")
	custom.Workers.PoolSize = 3
	custom.Toolchain = []tool{{Name: "gdcmconv", Args: []string{"--raw", "{input}", "{output}"}}}
	custom.Conversion.Extensions = []string{"DCM", ".dcm", " ima "}

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected config at %q, got %q (exists=%v)", configPath, resolved, exists)
	}
	if cfg.PoolSize() != 3 {
		t.Fatalf("expected pool size 3, got %d", cfg.PoolSize())
	}
	if len(cfg.Toolchain) != 1 {
		t.Fatalf("expected file toolchain to replace default, got %+v", cfg.Toolchain)
	}
	tier := cfg.Toolchain[0]
	if tier.Command != "gdcmconv" {
		t.Fatalf("expected command to default to name, got %q", tier.Command)
	}
	if len(tier.SuccessCodes) != 1 || tier.SuccessCodes[0] != 0 {
		t.Fatalf("expected default success codes, got %v", tier.SuccessCodes)
	}
	want := []string{".dcm", ".ima"}
	if strings.Join(cfg.Conversion.Extensions, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected extensions: %v", cfg.Conversion.Extensions)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(configPath, []byte("[workers]\npool = 4\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected unknown key to be rejected")
	}
}

func TestWorkersEnvOverride(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("DCMCANON_WORKERS", "7")
	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.PoolSize() != 7 {
		t.Fatalf("expected env pool size 7, got %d", cfg.PoolSize())
	}

	t.Setenv("DCMCANON_WORKERS", "many")
	if _, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected invalid DCMCANON_WORKERS to fail")
	}
}

func TestValidateToolchain(t *testing.T) {
	base := func() config.Config {
		cfg := config.Default()
		cfg.Toolchain = config.DefaultToolchain()
		return cfg
	}
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"empty chain", func(c *config.Config) { c.Toolchain = nil }, "at least one tool"},
		{"duplicate name", func(c *config.Config) { c.Toolchain[1].Name = c.Toolchain[0].Name }, "more than one tier"},
		{"missing input", func(c *config.Config) { c.Toolchain[0].Args = []string{"+te", "{output}"} }, "{input}"},
		{"missing output", func(c *config.Config) { c.Toolchain[0].Args = []string{"{input}"} }, "{output}"},
		{"no success codes", func(c *config.Config) { c.Toolchain[0].SuccessCodes = nil }, "success_codes"},
		{"negative timeout", func(c *config.Config) { c.Toolchain[0].TimeoutSeconds = -1 }, "timeout_seconds"},
		{"negative pool", func(c *config.Config) { c.Workers.PoolSize = -2 }, "pool_size"},
		{"bad level", func(c *config.Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"bad file level", func(c *config.Config) { c.Logging.FileLevel = "trace" }, "logging.file_level"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in %q", tc.want, err.Error())
			}
		})
	}

	cfg := base()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected default config to validate, got %v", err)
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(target); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(target)
	if err != nil {
		t.Fatalf("sample config failed to load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if len(cfg.Toolchain) != 2 {
		t.Fatalf("expected sample chain of two tiers, got %d", len(cfg.Toolchain))
	}
	rendered, err := cfg.Render()
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(rendered, "dcmdjpeg") {
		t.Fatalf("expected rendered config to include chain, got %s", rendered)
	}
}
