package agent

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/mselway/courtier/internal/game"
	"github.com/mselway/courtier/internal/llm"
)

// narrativeCacheSize bounds the rewrite cache; the LRU evicts its oldest
// entry once full.
const narrativeCacheSize = 256

// rewriteRules are the rule-based fallback for first-person narration
// when the model call fails. Applied in order over the description; if
// none matches, the generic narrative is used instead.
var rewriteRules = []struct {
	re  *regexp.Regexp
	rep string
}{
	{regexp.MustCompile(`(?i)^you have `), "I have "},
	{regexp.MustCompile(`(?i)^you were `), "I was "},
	{regexp.MustCompile(`(?i)^you are `), "I am "},
	{regexp.MustCompile(`(?i)^you `), "I "},
	{regexp.MustCompile(`(?i)\byour\b`), "my"},
	{regexp.MustCompile(`(?i)\byourself\b`), "myself"},
}

// salientTypes are event-type substrings that warrant the emotional
// context sidecar. All other event types get no emotion estimate.
var salientTypes = []string{"death", "marriage", "battle", "betrayal", "victory", "defeat"}

// Transformer rewrites discrete game events into first-person narrative
// memory entries. Generation is best-effort: a model failure falls back
// to rule-based rewriting and then to a generic narrative, so callers
// never fail on narration alone.
type Transformer struct {
	client      llm.Client
	firstPerson bool
	cache       *lru.Cache[string, string]
	logger      *slog.Logger
}

// NewTransformer creates a narrative transformer. client may be nil when
// first-person transformation is disabled.
func NewTransformer(client llm.Client, firstPerson bool, logger *slog.Logger) *Transformer {
	cache, err := lru.New[string, string](narrativeCacheSize)
	if err != nil {
		// Only possible with a non-positive size constant.
		panic(err)
	}
	return &Transformer{
		client:      client,
		firstPerson: firstPerson,
		cache:       cache,
		logger:      logger,
	}
}

// Narrative returns the memory-entry text for an event. Never fails.
func (t *Transformer) Narrative(ctx context.Context, ev game.Event) string {
	if !t.firstPerson || t.client == nil {
		return fallbackNarrative(ev)
	}

	// Cache key deliberately excludes timestamp and participant: the same
	// event text narrates the same way for everyone.
	key := ev.Type + "|" + ev.Description
	if cached, ok := t.cache.Get(key); ok {
		return cached
	}

	text, err := t.client.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.ChatMessage{
			{Role: llm.RoleSystem, Content: "Rewrite the given game event as a single first-person sentence, as if the character experienced it personally. Reply with only the sentence."},
			{Role: llm.RoleUser, Content: fmt.Sprintf("Event type: %s\nEvent: %s", ev.Type, ev.Description)},
		},
		MaxTokens:   120,
		Temperature: 0.3,
	})
	if err != nil {
		t.logger.Warn("narrative model call failed, using rule fallback", "event_type", ev.Type, "error", err)
		return fallbackNarrative(ev)
	}

	text = strings.TrimSpace(text)
	t.cache.Add(key, text)
	return text
}

// Emotion estimates an emotion label for emotionally salient events.
// Returns ok=false for non-salient types and on model failure.
func (t *Transformer) Emotion(ctx context.Context, ev game.Event) (string, bool) {
	if t.client == nil || !isSalient(ev.Type) {
		return "", false
	}

	label, err := t.client.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.ChatMessage{
			{Role: llm.RoleSystem, Content: "Name the single dominant emotion a person would feel about this event. Reply with one lowercase word."},
			{Role: llm.RoleUser, Content: ev.Description},
		},
		MaxTokens:   8,
		Temperature: 0,
	})
	if err != nil {
		t.logger.Warn("emotion estimate failed", "event_type", ev.Type, "error", err)
		return "", false
	}

	label = strings.ToLower(strings.TrimSpace(label))
	if label == "" {
		return "", false
	}
	return label, true
}

func isSalient(eventType string) bool {
	lower := strings.ToLower(eventType)
	for _, s := range salientTypes {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// fallbackNarrative applies the rewrite rules, degrading to the generic
// form when none matches.
func fallbackNarrative(ev game.Event) string {
	desc := strings.TrimSpace(ev.Description)
	matched := false
	for _, rule := range rewriteRules {
		if rule.re.MatchString(desc) {
			desc = rule.re.ReplaceAllString(desc, rule.rep)
			matched = true
		}
	}
	if !matched {
		return "I experienced: " + desc
	}
	return desc
}
