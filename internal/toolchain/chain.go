package toolchain

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"dcmcanon/internal/config"
	"dcmcanon/internal/deps"
)

// Spec is one tier of the conversion chain.
type Spec struct {
	Name         string
	Command      string
	Args         []string
	SuccessCodes []int
	Timeout      time.Duration
}

// Succeeded reports whether an exit status belongs to the tier's success set.
func (s Spec) Succeeded(code int) bool {
	if len(s.SuccessCodes) == 0 {
		return code == 0
	}
	return slices.Contains(s.SuccessCodes, code)
}

// Argv expands the argument template for one invocation.
func (s Spec) Argv(input, output string) []string {
	argv := make([]string, len(s.Args))
	for i, arg := range s.Args {
		arg = strings.ReplaceAll(arg, config.PlaceholderInput, input)
		argv[i] = strings.ReplaceAll(arg, config.PlaceholderOutput, output)
	}
	return argv
}

// Chain is the ordered list of tiers; earlier entries are preferred.
type Chain []Spec

// FromConfig builds a chain from normalized tool configuration.
func FromConfig(tools []config.Tool) (Chain, error) {
	if len(tools) == 0 {
		return nil, fmt.Errorf("toolchain: no tools configured")
	}
	chain := make(Chain, 0, len(tools))
	for _, tool := range tools {
		if strings.TrimSpace(tool.Command) == "" {
			return nil, fmt.Errorf("toolchain: tool %q has no command", tool.Name)
		}
		spec := Spec{
			Name:         tool.Name,
			Command:      tool.Command,
			Args:         slices.Clone(tool.Args),
			SuccessCodes: slices.Clone(tool.SuccessCodes),
		}
		if tool.TimeoutSeconds > 0 {
			spec.Timeout = time.Duration(tool.TimeoutSeconds) * time.Second
		}
		chain = append(chain, spec)
	}
	return chain, nil
}

// Default returns the stock DCMTK chain: decompress first, then plain
// transfer-syntax conversion.
func Default() Chain {
	chain, _ := FromConfig(config.DefaultToolchain())
	return chain
}

// Names lists the tier names in priority order.
func (c Chain) Names() []string {
	names := make([]string, 0, len(c))
	for _, spec := range c {
		names = append(names, spec.Name)
	}
	return names
}

// Requirements returns one prober requirement per distinct command.
func (c Chain) Requirements() []deps.Requirement {
	seen := make(map[string]struct{}, len(c))
	reqs := make([]deps.Requirement, 0, len(c))
	for idx, spec := range c {
		if _, ok := seen[spec.Command]; ok {
			continue
		}
		seen[spec.Command] = struct{}{}
		reqs = append(reqs, deps.Requirement{
			Name:        spec.Name,
			Command:     spec.Command,
			Description: fmt.Sprintf("conversion tier %d", idx+1),
		})
	}
	return reqs
}
