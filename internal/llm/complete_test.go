package llm

import (
	"strings"
	"testing"

	"github.com/tmc/langchaingo/llms"
)

func instructClient() *ProviderClient {
	return &ProviderClient{
		instruct:  true,
		inputSeq:  "### Instruction:\n",
		outputSeq: "### Response:\n",
	}
}

func TestSerializeInstruct(t *testing.T) {
	c := instructClient()

	msgs := []ChatMessage{
		{Role: RoleSystem, Content: "You are Aldric."},
		{Role: RoleUser, Name: "Matilda", Content: "Matilda: Good day."},
		{Role: RoleAssistant, Name: "Aldric", Content: "Aldric: And to you."},
	}

	got := c.serializeInstruct(msgs)

	want := "You are Aldric.\n\n" +
		"### Instruction:\nMatilda: Good day.\n" +
		"### Response:\nAldric: And to you.\n" +
		"### Response:\n"
	if got != want {
		t.Errorf("serializeInstruct mismatch:\ngot:  %q\nwant: %q", got, want)
	}

	if !strings.HasSuffix(got, c.outputSeq) {
		t.Error("prompt must end with an open output delimiter")
	}
}

func TestSerializeInstructEmptyHistory(t *testing.T) {
	c := instructClient()
	got := c.serializeInstruct(nil)
	if got != c.outputSeq {
		t.Errorf("empty history should produce just the output delimiter, got %q", got)
	}
}

func TestCallOptionsAddsInstructStop(t *testing.T) {
	c := instructClient()
	opts := c.callOptions(CompletionRequest{Temperature: 0.5})

	var callOpts llms.CallOptions
	for _, o := range opts {
		o(&callOpts)
	}

	found := false
	for _, s := range callOpts.StopWords {
		if s == "### Instruction:" {
			found = true
		}
	}
	if !found {
		t.Errorf("instruct input delimiter should be a stop word, got %v", callOpts.StopWords)
	}
}

func TestChatMessageType(t *testing.T) {
	tests := []struct {
		role Role
		want llms.ChatMessageType
	}{
		{RoleSystem, llms.ChatMessageTypeSystem},
		{RoleUser, llms.ChatMessageTypeHuman},
		{RoleAssistant, llms.ChatMessageTypeAI},
		{Role("other"), llms.ChatMessageTypeHuman},
	}
	for _, tt := range tests {
		if got := chatMessageType(tt.role); got != tt.want {
			t.Errorf("chatMessageType(%q) = %v, want %v", tt.role, got, tt.want)
		}
	}
}
