package testsupport

import (
	"testing"

	"dcmcanon/internal/config"
	"dcmcanon/internal/convert"
	"dcmcanon/internal/toolchain"
)

// NewConverter builds a converter from the config's tool chain.
func NewConverter(t testing.TB, cfg *config.Config) *convert.Converter {
	t.Helper()

	chain, err := toolchain.FromConfig(cfg.Toolchain)
	if err != nil {
		t.Fatalf("toolchain.FromConfig: %v", err)
	}
	return convert.New(chain, convert.Options{RequireOutput: cfg.Conversion.RequireOutput})
}
