package testsupport

import (
	"path/filepath"
	"testing"

	"dcmcanon/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Journal.Path = filepath.Join(base, "state", "journal.db")
	cfgVal.Workers.PoolSize = 2
	cfgVal.Toolchain = config.DefaultToolchain()

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithWorkers sets the conversion pool size.
func WithWorkers(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workers.PoolSize = n
	}
}

// WithoutJournal disables the run journal.
func WithoutJournal() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Journal.Enabled = false
	}
}

// WithStubTools installs the given stub converters into a bin directory,
// prepends it to PATH, and configures them as the tool chain in order. If no
// tools are given, converting stubs for the default DCMTK chain are used.
func WithStubTools(tools ...StubTool) ConfigOption {
	return func(b *configBuilder) {
		if len(tools) == 0 {
			tools = []StubTool{ConvertTool("dcmdjpeg"), ConvertTool("dcmconv")}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		InstallTools(b.t, binDir, tools...)
		PrependPath(b.t, binDir)

		chain := make([]config.Tool, 0, len(tools))
		for _, tool := range tools {
			chain = append(chain, config.Tool{
				Name:         tool.Name,
				Command:      tool.Name,
				Args:         []string{"+te", config.PlaceholderInput, config.PlaceholderOutput},
				SuccessCodes: []int{0},
			})
		}
		b.cfg.Toolchain = chain
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
