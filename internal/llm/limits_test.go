package llm

import "testing"

func TestLookupContextLimit(t *testing.T) {
	tests := []struct {
		name  string
		model string
		want  int
	}{
		{"gpt-4o exact", "gpt-4o", 128000},
		{"gpt-4o-mini prefers longer prefix", "gpt-4o-mini", 128000},
		{"gpt-4 base", "gpt-4", 8192},
		{"gpt-4 dated snapshot", "gpt-4-0613", 8192},
		{"gpt-4-turbo over gpt-4", "gpt-4-turbo-2024-04-09", 128000},
		{"claude", "claude-3-opus-20240229", 200000},
		{"bedrock claude", "anthropic.claude-3-sonnet-20240229-v1:0", 200000},
		{"llama3.1 over llama3", "llama3.1:70b", 131072},
		{"case insensitive", "GPT-4o", 128000},
		{"unknown model", "my-local-finetune", 0},
		{"empty", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := lookupContextLimit(tt.model)
			if got != tt.want {
				t.Errorf("lookupContextLimit(%q) = %d, want %d", tt.model, got, tt.want)
			}
		})
	}
}
