// Package classify maps free-text and legacy activity labels to canonical kinds.
// It is only used where raw labels enter the system; aggregation works on
// worklog.Kind values.
package classify

import (
	"strings"

	"clubhours/worklog"
)

var exact = map[string]worklog.Kind{
	string(worklog.KindStandard):    worklog.KindStandard,
	string(worklog.KindMaintenance): worklog.KindMaintenance,
	string(worklog.KindSetup):       worklog.KindSetup,
	"MAINT":                         worklog.KindMaintenance,
	"SETUP":                         worklog.KindSetup,
}

var substrings = []struct {
	needle string
	kind   worklog.Kind
}{
	{needle: "cleaning", kind: worklog.KindMaintenance},
	{needle: "maint", kind: worklog.KindMaintenance},
	{needle: "trial", kind: worklog.KindSetup},
	{needle: "setup", kind: worklog.KindSetup},
}

// Normalize returns the canonical kind for a raw type label. Exact canonical
// labels and short codes win, then case-insensitive keywords, then Standard.
func Normalize(raw string) worklog.Kind {
	trimmed := strings.TrimSpace(raw)
	if kind, ok := exact[trimmed]; ok {
		return kind
	}

	lowered := strings.ToLower(trimmed)
	for _, candidate := range substrings {
		if strings.Contains(lowered, candidate.needle) {
			return candidate.kind
		}
	}
	return worklog.KindStandard
}

// NeedsRewrite reports whether a stored label differs from its canonical form.
func NeedsRewrite(stored worklog.Kind) (worklog.Kind, bool) {
	canonical := Normalize(string(stored))
	return canonical, canonical != stored
}
