package action

import (
	"regexp"
	"strings"
)

// Call is one parsed entry from a structured action block, in request
// order.
type Call struct {
	Name    string
	RawArgs []string
}

var (
	blockRe = regexp.MustCompile(`(?s)<rationale>(.*?)</rationale>\s*<actions>(.*?)</actions>`)
	callRe  = regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_]*)\s*\(([^)]*)\)`)
)

// ParseBlock extracts the rationale and the ordered call list from a
// completion containing a structured action block. Returns ok=false when
// no block is present; individual malformed calls are simply not matched
// and never fail the parse as a whole.
func ParseBlock(text string) (rationale string, calls []Call, ok bool) {
	m := blockRe.FindStringSubmatch(text)
	if m == nil {
		return "", nil, false
	}
	rationale = strings.TrimSpace(m[1])

	for _, cm := range callRe.FindAllStringSubmatch(m[2], -1) {
		calls = append(calls, Call{
			Name:    cm[1],
			RawArgs: splitArgs(cm[2]),
		})
	}
	return rationale, calls, true
}

func splitArgs(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}
