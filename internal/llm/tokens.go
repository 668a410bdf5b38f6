package llm

import (
	"github.com/pkoukk/tiktoken-go"
)

// messageOverheadTokens approximates the per-message framing cost of chat
// protocols (role markers and separators).
const messageOverheadTokens = 4

// Tokenizer provides approximate token counts for a model. Counts are
// provider-approximate: the engine only needs them for budget decisions,
// not billing.
type Tokenizer struct {
	encoding *tiktoken.Tiktoken
}

// NewTokenizer creates a tokenizer for the given model, falling back to
// the cl100k_base encoding for models tiktoken does not know.
func NewTokenizer(model string) *Tokenizer {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			// cl100k_base is bundled with tiktoken-go; this cannot fail
			// at runtime unless the library itself is broken.
			panic(err)
		}
	}
	return &Tokenizer{encoding: enc}
}

// Count returns the token count of a raw string.
func (t *Tokenizer) Count(text string) int {
	return len(t.encoding.Encode(text, nil, nil))
}

// TokensFromMessage returns the approximate cost of one chat message
// including framing overhead.
func (c *ProviderClient) TokensFromMessage(msg ChatMessage) int {
	n := c.tokenizer.Count(msg.Content) + messageOverheadTokens
	if msg.Name != "" {
		n += c.tokenizer.Count(msg.Name)
	}
	return n
}

// TokensFromChat returns the approximate cost of a full message list.
func (c *ProviderClient) TokensFromChat(msgs []ChatMessage) int {
	total := 2 // reply priming
	for _, m := range msgs {
		total += c.TokensFromMessage(m)
	}
	return total
}
