package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateWorkers(); err != nil {
		return err
	}
	if err := c.validateToolchain(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateWorkers() error {
	if c.Workers.PoolSize < 0 {
		return errors.New("workers.pool_size must be >= 0 (0 uses one worker per CPU)")
	}
	if c.Workers.EventBuffer <= 0 {
		return errors.New("workers.event_buffer must be positive")
	}
	return nil
}

func (c *Config) validateToolchain() error {
	if len(c.Toolchain) == 0 {
		return errors.New("toolchain must contain at least one tool")
	}
	names := make(map[string]struct{}, len(c.Toolchain))
	for i, tool := range c.Toolchain {
		key := fmt.Sprintf("toolchain[%d]", i)
		if tool.Name == "" {
			return fmt.Errorf("%s.name must be set", key)
		}
		if _, dup := names[tool.Name]; dup {
			return fmt.Errorf("%s.name %q is used by more than one tier", key, tool.Name)
		}
		names[tool.Name] = struct{}{}
		if tool.Command == "" {
			return fmt.Errorf("%s.command must be set", key)
		}
		if !slices.ContainsFunc(tool.Args, func(arg string) bool { return strings.Contains(arg, PlaceholderInput) }) {
			return fmt.Errorf("%s.args must reference %s", key, PlaceholderInput)
		}
		if !slices.ContainsFunc(tool.Args, func(arg string) bool { return strings.Contains(arg, PlaceholderOutput) }) {
			return fmt.Errorf("%s.args must reference %s", key, PlaceholderOutput)
		}
		if len(tool.SuccessCodes) == 0 {
			return fmt.Errorf("%s.success_codes must not be empty", key)
		}
		if tool.TimeoutSeconds < 0 {
			return fmt.Errorf("%s.timeout_seconds must be >= 0", key)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	for key, level := range map[string]string{"logging.level": c.Logging.Level, "logging.file_level": c.Logging.FileLevel} {
		switch level {
		case "debug", "info", "warn", "error":
		default:
			return fmt.Errorf("%s %q is not one of debug, info, warn, error", key, level)
		}
	}
	return nil
}
