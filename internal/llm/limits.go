package llm

import (
	"sort"
	"strings"
)

// contextLimits maps model-identifier prefixes to context limits in
// tokens. Longest matching prefix wins; unmatched models run in degraded
// "unknown limit" mode.
var contextLimits = map[string]int{
	"gpt-4o":            128000,
	"gpt-4o-mini":       128000,
	"gpt-4-turbo":       128000,
	"gpt-4":             8192,
	"gpt-3.5-turbo":     16385,
	"o1":                200000,
	"o3":                200000,
	"claude-3":          200000,
	"claude-3-5":        200000,
	"claude-sonnet-4":   200000,
	"claude-opus-4":     200000,
	"llama2":            4096,
	"llama3":            8192,
	"llama3.1":          131072,
	"mistral":           32768,
	"mixtral":           32768,
	"qwen2":             32768,
	"gemma":             8192,
	"anthropic.claude":  200000,
	"meta.llama3":       8192,
	"mistral.mistral":   32768,
	"amazon.titan-text": 8192,
}

// lookupContextLimit resolves a model identifier to its context limit by
// longest-prefix match, returning 0 when the model is unknown.
func lookupContextLimit(model string) int {
	m := strings.ToLower(model)

	prefixes := make([]string, 0, len(contextLimits))
	for p := range contextLimits {
		prefixes = append(prefixes, p)
	}
	sort.Slice(prefixes, func(i, j int) bool { return len(prefixes[i]) > len(prefixes[j]) })

	for _, p := range prefixes {
		if strings.HasPrefix(m, p) {
			return contextLimits[p]
		}
	}
	return 0
}
