package logging

import (
	"log/slog"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

type infoField struct {
	label string
	value string
}

const infoAttrLimit = 8

var infoHighlightKeys = []string{
	FieldAlert,
	FieldPath,
	FieldTool,
	"error",
	FieldErrorHint,
	FieldImpact,
	"root",
	"total",
	"succeeded",
	"failed",
	"workers",
	"elapsed",
	"missing",
}

// selectInfoFields orders highlighted keys first and reports how many fields
// were left out. Debug records show everything.
func selectInfoFields(fields fieldList, limit int, debug bool) ([]infoField, int) {
	if fields.len() == 0 {
		return nil, 0
	}
	if debug {
		limit = 0
	}
	order := make([]int, 0, fields.len())
	placed := make([]bool, fields.len())
	for _, key := range infoHighlightKeys {
		for idx, candidate := range fields.keys {
			if !placed[idx] && candidate == key {
				placed[idx] = true
				order = append(order, idx)
				break
			}
		}
	}
	for idx := range fields.keys {
		if !placed[idx] {
			order = append(order, idx)
		}
	}

	shown := make([]infoField, 0, min(len(order), infoAttrLimit))
	hidden := 0
	for _, idx := range order {
		key := fields.keys[idx]
		if (!debug && isDebugOnlyKey(key)) || (limit > 0 && len(shown) >= limit) {
			hidden++
			continue
		}
		shown = append(shown, infoField{label: displayLabel(key), value: formatValueForKey(key, fields.values[idx])})
	}
	return shown, hidden
}

func formatValueForKey(key string, v slog.Value) string {
	v = v.Resolve()
	switch {
	case isByteSizeKey(key) && v.Kind() == slog.KindInt64 && v.Int64() >= 0:
		return humanize.Bytes(uint64(v.Int64()))
	case isByteSizeKey(key) && v.Kind() == slog.KindUint64:
		return humanize.Bytes(v.Uint64())
	case v.Kind() == slog.KindDuration:
		return v.Duration().Round(time.Millisecond).String()
	case v.Kind() == slog.KindBool:
		if v.Bool() {
			return "yes"
		}
		return "no"
	}
	value := formatValue(v)
	if key == "error" {
		const maxLen = 200
		if len(value) > maxLen {
			value = value[:maxLen] + "…"
		}
	}
	return value
}

func isByteSizeKey(key string) bool {
	return strings.HasSuffix(key, "_bytes") || key == "size"
}

func isDebugOnlyKey(key string) bool {
	switch key {
	case FieldRunID, FieldWorker, "stderr", "args", "temp_path":
		return true
	}
	return strings.HasSuffix(key, "_id")
}

func displayLabel(key string) string {
	switch key {
	case FieldAlert:
		return "Alert"
	case FieldEventType:
		return "Event"
	case FieldErrorHint:
		return "Hint"
	case FieldImpact:
		return "Impact"
	case FieldPath:
		return "File"
	case FieldTool:
		return "Tool"
	case "error":
		return "Error"
	}
	parts := strings.Split(strings.ReplaceAll(key, ".", "_"), "_")
	for i, part := range parts {
		if part == "" {
			continue
		}
		parts[i] = strings.ToUpper(part[:1]) + part[1:]
	}
	return strings.Join(parts, " ")
}
