package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeWorkers(); err != nil {
		return err
	}
	c.normalizeToolchain()
	c.normalizeConversion()
	if err := c.normalizeJournal(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeWorkers() error {
	if value, ok := os.LookupEnv("DCMCANON_WORKERS"); ok && strings.TrimSpace(value) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("DCMCANON_WORKERS: %w", err)
		}
		c.Workers.PoolSize = n
	}
	if c.Workers.EventBuffer == 0 {
		c.Workers.EventBuffer = defaultEventBuffer
	}
	return nil
}

func (c *Config) normalizeToolchain() {
	if len(c.Toolchain) == 0 {
		c.Toolchain = DefaultToolchain()
		return
	}
	for i := range c.Toolchain {
		tool := &c.Toolchain[i]
		tool.Name = strings.TrimSpace(tool.Name)
		tool.Command = strings.TrimSpace(tool.Command)
		if tool.Command == "" {
			tool.Command = tool.Name
		}
		if tool.Name == "" {
			tool.Name = filepath.Base(tool.Command)
		}
		if len(tool.Args) == 0 {
			tool.Args = []string{PlaceholderInput, PlaceholderOutput}
		}
		if len(tool.SuccessCodes) == 0 {
			tool.SuccessCodes = []int{0}
		}
	}
}

func (c *Config) normalizeConversion() {
	if len(c.Conversion.Extensions) == 0 {
		return
	}
	exts := make([]string, 0, len(c.Conversion.Extensions))
	seen := make(map[string]struct{}, len(c.Conversion.Extensions))
	for _, ext := range c.Conversion.Extensions {
		normalized := strings.ToLower(strings.TrimSpace(ext))
		if normalized == "" {
			continue
		}
		if !strings.HasPrefix(normalized, ".") {
			normalized = "." + normalized
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		exts = append(exts, normalized)
	}
	c.Conversion.Extensions = exts
}

func (c *Config) normalizeJournal() error {
	var err error
	if strings.TrimSpace(c.Journal.Path) == "" {
		c.Journal.Path = filepath.Join(c.Paths.StateDir, defaultJournalFile)
	}
	if c.Journal.Path, err = expandPath(c.Journal.Path); err != nil {
		return fmt.Errorf("journal.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	if value, ok := os.LookupEnv("DCMCANON_LOG_LEVEL"); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Logging.FileLevel = strings.ToLower(strings.TrimSpace(c.Logging.FileLevel))
	if c.Logging.FileLevel == "" {
		c.Logging.FileLevel = c.Logging.Level
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
