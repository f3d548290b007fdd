package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// consoleHandler renders one block per record: a header line carrying the
// level, component and message, then one indented line per field.
type consoleHandler struct {
	out       *lockedWriter
	level     *slog.LevelVar
	preset    fieldList
	groups    []string
	addSource bool
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) write(p []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err := l.w.Write(p)
	return err
}

func newConsoleHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return &consoleHandler{out: &lockedWriter{w: w}, level: lvl, addSource: addSource}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	if !h.Enabled(context.Background(), record.Level) {
		return nil
	}

	fields := h.preset.clone()
	record.Attrs(func(attr slog.Attr) bool {
		fields.addAttr(h.groups, attr)
		return true
	})
	component := fields.take(FieldComponent)

	entry := consoleEntry{
		when:      record.Time,
		level:     record.Level,
		component: component,
		message:   strings.TrimSpace(record.Message),
		fields:    fields,
	}
	if h.addSource {
		entry.source = record.Source()
	}

	var sb strings.Builder
	entry.render(&sb)
	return h.out.write([]byte(sb.String()))
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.preset = h.preset.clone()
	for _, attr := range attrs {
		next.preset.addAttr(h.groups, attr)
	}
	return &next
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.groups = append(append([]string(nil), h.groups...), name)
	return &next
}

type consoleEntry struct {
	when      time.Time
	level     slog.Level
	component string
	message   string
	source    *slog.Source
	fields    fieldList
}

func (e consoleEntry) render(sb *strings.Builder) {
	when := e.when
	if when.IsZero() {
		when = time.Now()
	}
	message := e.message
	if message == "" {
		message = "(no message)"
	}

	fmt.Fprintf(sb, "%s %-5s ", formatTimestamp(when), levelLabel(e.level))
	if e.component != "" {
		sb.WriteString(e.component)
		sb.WriteString(" | ")
	}
	sb.WriteString(message)
	if e.source != nil && e.source.File != "" {
		fmt.Fprintf(sb, " (%s:%d)", filepath.Base(e.source.File), e.source.Line)
	}
	sb.WriteByte('\n')

	shown, hidden := selectInfoFields(e.fields, infoAttrLimit, e.level < slog.LevelInfo)
	for _, field := range shown {
		fmt.Fprintf(sb, "    %s: %s\n", field.label, field.value)
	}
	if hidden > 0 {
		fmt.Fprintf(sb, "    (+%d hidden)\n", hidden)
	}
}

// fieldList keeps flattened attributes in first-seen order. Re-adding a key
// overwrites its value in place.
type fieldList struct {
	keys   []string
	values []slog.Value
}

func (f fieldList) clone() fieldList {
	return fieldList{
		keys:   append([]string(nil), f.keys...),
		values: append([]slog.Value(nil), f.values...),
	}
}

func (f *fieldList) set(key string, value slog.Value) {
	if key == "" {
		return
	}
	for i, existing := range f.keys {
		if existing == key {
			f.values[i] = value
			return
		}
	}
	f.keys = append(f.keys, key)
	f.values = append(f.values, value)
}

// take removes key and returns its string form.
func (f *fieldList) take(key string) string {
	for i, existing := range f.keys {
		if existing != key {
			continue
		}
		value := attrString(f.values[i])
		f.keys = append(f.keys[:i], f.keys[i+1:]...)
		f.values = append(f.values[:i], f.values[i+1:]...)
		return value
	}
	return ""
}

func (f fieldList) len() int { return len(f.keys) }

func (f *fieldList) addAttr(groups []string, attr slog.Attr) {
	if attr.Equal(slog.Attr{}) {
		return
	}
	value := attr.Value.Resolve()
	path := groups
	if attr.Key != "" {
		path = append(append([]string(nil), groups...), attr.Key)
	}
	if value.Kind() == slog.KindGroup {
		for _, member := range value.Group() {
			f.addAttr(path, member)
		}
		return
	}
	f.set(strings.Join(path, "."), value)
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	}
	return "DEBUG"
}
