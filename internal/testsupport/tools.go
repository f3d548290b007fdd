package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// ConvertedPrefix marks records rewritten by a converting stub tool.
const ConvertedPrefix = "EXPLICIT:"

// StubTool is a shell script installed on PATH in place of a real converter.
// Scripts receive the converter argument template and treat the last two
// arguments as input and output.
type StubTool struct {
	Name string
	body string
}

const argPrologue = `for arg; do in=$out; out=$arg; done`

const convertBody = `if [ "$(head -c 9 "$in")" = "` + ConvertedPrefix + `" ]; then
  cat "$in" > "$out"
else
  { printf '%s' '` + ConvertedPrefix + `'; cat "$in"; } > "$out"
fi`

// ConvertTool succeeds for every record, prefixing it with ConvertedPrefix.
// Records that already carry the prefix are copied unchanged.
func ConvertTool(name string) StubTool {
	return StubTool{Name: name, body: convertBody}
}

// FailTool scribbles into the output and exits with code.
func FailTool(name string, code int) StubTool {
	return StubTool{Name: name, body: fmt.Sprintf("printf partial > \"$out\"\nexit %d", code)}
}

// MatchTool converts records whose base name matches one of the shell
// patterns and fails on everything else.
func MatchTool(name string, patterns ...string) StubTool {
	body := fmt.Sprintf("case \"$(basename \"$in\")\" in\n  %s)\n%s\n  ;;\n  *) printf partial > \"$out\"; exit 1 ;;\nesac",
		strings.Join(patterns, "|"), convertBody)
	return StubTool{Name: name, body: body}
}

// EmptyOutputTool exits successfully without writing anything.
func EmptyOutputTool(name string) StubTool {
	return StubTool{Name: name, body: "exit 0"}
}

// SlowTool sleeps before converting.
func SlowTool(name string, seconds float64) StubTool {
	return StubTool{Name: name, body: fmt.Sprintf("sleep %g\n%s", seconds, convertBody)}
}

// Logged records each invocation as "<name> <input>" in logPath.
func (s StubTool) Logged(logPath string) StubTool {
	s.body = fmt.Sprintf("echo \"%s $in\" >> %q\n%s", s.Name, logPath, s.body)
	return s
}

// Script renders the complete shell script.
func (s StubTool) Script() string {
	return "#!/bin/sh\n" + argPrologue + "\n" + s.body + "\n"
}

// InstallTools writes the stub scripts into dir and returns their paths.
func InstallTools(t testing.TB, dir string, tools ...StubTool) []string {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir bin dir: %v", err)
	}
	paths := make([]string, 0, len(tools))
	for _, tool := range tools {
		target := filepath.Join(dir, tool.Name)
		if err := os.WriteFile(target, []byte(tool.Script()), 0o755); err != nil {
			t.Fatalf("write stub %s: %v", tool.Name, err)
		}
		paths = append(paths, target)
	}
	return paths
}

// PrependPath puts dir at the front of PATH for the duration of the test.
func PrependPath(t testing.TB, dir string) {
	t.Helper()

	oldPath := os.Getenv("PATH")
	newPath := dir
	if oldPath != "" {
		newPath = dir + string(os.PathListSeparator) + oldPath
	}
	t.Setenv("PATH", newPath)
}
