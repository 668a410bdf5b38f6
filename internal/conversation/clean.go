package conversation

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// terminatorPhrases mark the boundary between model reasoning preamble
// and the actual reply. Checked in order; the set and its ordering are
// load-bearing for models already deployed against it.
var terminatorPhrases = []string{
	"Time to write the reply.",
	"Time to write the response.",
	"Here is the reply.",
	"Here is my reply.",
}

// minPreambleLength guards against stripping short replies that merely
// happen to contain a terminator phrase or a name marker. Measured in
// runes of the candidate preamble.
const minPreambleLength = 100

// CleanOutput runs the two-stage cleaning pass over a raw completion:
// first the preamble strip (explicit terminator phrase, then last
// "Name:" occurrence as an implicit terminator, both under the length
// guard), then the leading self-prefix strip. Idempotent on its own
// output.
func CleanOutput(raw, fullName, shortName string) string {
	text := stripPreamble(raw, fullName, shortName)
	return stripNamePrefix(text, fullName, shortName)
}

func stripPreamble(raw, fullName, shortName string) string {
	for _, phrase := range terminatorPhrases {
		idx := strings.Index(raw, phrase)
		if idx < 0 {
			continue
		}
		if utf8.RuneCountInString(raw[:idx]) > minPreambleLength {
			return strings.TrimSpace(raw[idx+len(phrase):])
		}
	}

	// Implicit terminator: the last place the model re-announced the
	// speaker. Preamble text before it is discarded; the marker itself is
	// kept so the self-prefix strip removes it uniformly.
	for _, name := range []string{fullName, shortName} {
		if name == "" {
			continue
		}
		idx := strings.LastIndex(raw, name+":")
		if idx < 0 {
			continue
		}
		if utf8.RuneCountInString(raw[:idx]) > minPreambleLength {
			return strings.TrimSpace(raw[idx:])
		}
	}

	return strings.TrimSpace(raw)
}

// stripNamePrefix removes a leading `"Name, ...:"`-style self-prefix, e.g.
// "Aldric, Duke of York: ...".
func stripNamePrefix(text, fullName, shortName string) string {
	for _, name := range []string{fullName, shortName} {
		if name == "" {
			continue
		}
		re := regexp.MustCompile(`^\s*` + regexp.QuoteMeta(name) + `[^:\n]*:\s*`)
		if loc := re.FindStringIndex(text); loc != nil {
			return strings.TrimSpace(text[loc[1]:])
		}
	}
	return strings.TrimSpace(text)
}

// startsWithNamePrefix reports whether text opens with "<name>:" for
// either name form, optionally after whitespace.
func startsWithNamePrefix(text, fullName, shortName string) bool {
	trimmed := strings.TrimLeft(text, " \t\n")
	for _, name := range []string{fullName, shortName} {
		if name == "" {
			continue
		}
		if strings.HasPrefix(trimmed, name+":") {
			return true
		}
	}
	return false
}

// wrapMonologue bounds self-talk output with emphasis markers exactly
// once, de-duplicating markers the model already added.
func wrapMonologue(text string) string {
	t := strings.TrimSpace(text)
	t = strings.Trim(t, "*")
	t = strings.TrimSpace(t)
	if t == "" {
		return ""
	}
	return "*" + t + "*"
}
