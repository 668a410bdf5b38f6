package conversation

import (
	"strings"
	"testing"
)

func TestCleanOutput_TerminatorPhrase(t *testing.T) {
	preamble := strings.Repeat("The model reasons about what to say next. ", 4) // ~170 chars
	raw := preamble + "Time to write the reply. Hello there"

	got := CleanOutput(raw, "Aldric of York", "Aldric")
	if got != "Hello there" {
		t.Errorf("CleanOutput() = %q, want %q", got, "Hello there")
	}
}

func TestCleanOutput_ShortReplyNotStripped(t *testing.T) {
	// The phrase appears but the preamble is under the length guard, so
	// the reply must survive untouched.
	raw := "Time to write the reply. I said so."
	got := CleanOutput(raw, "Aldric of York", "Aldric")
	if got != raw {
		t.Errorf("CleanOutput() = %q, want unchanged %q", got, raw)
	}
}

func TestCleanOutput_NameMarkerFallback(t *testing.T) {
	preamble := strings.Repeat("Considering the conversation so far and the mood of the court. ", 3)
	raw := preamble + "Aldric: My lord, the harvest was poor."

	got := CleanOutput(raw, "Aldric of York", "Aldric")
	if got != "My lord, the harvest was poor." {
		t.Errorf("CleanOutput() = %q", got)
	}
}

func TestCleanOutput_SelfPrefix(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "short name prefix",
			raw:  "Aldric: Greetings, my liege.",
			want: "Greetings, my liege.",
		},
		{
			name: "full name with title",
			raw:  "Aldric of York, Duke of the North: Greetings.",
			want: "Greetings.",
		},
		{
			name: "leading whitespace",
			raw:  "  \nAldric: Well met.",
			want: "Well met.",
		},
		{
			name: "colon later in line is kept",
			raw:  "I told him: never again.",
			want: "I told him: never again.",
		},
		{
			name: "name mid-sentence untouched",
			raw:  "I believe Aldric: yes, him, is lying.",
			want: "I believe Aldric: yes, him, is lying.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CleanOutput(tt.raw, "Aldric of York", "Aldric")
			if got != tt.want {
				t.Errorf("CleanOutput(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestCleanOutput_Idempotent(t *testing.T) {
	preamble := strings.Repeat("Let me think carefully about how the duke would respond here. ", 3)
	raw := preamble + "Time to write the reply. Aldric: We ride at dawn."

	once := CleanOutput(raw, "Aldric of York", "Aldric")
	twice := CleanOutput(once, "Aldric of York", "Aldric")
	if once != twice {
		t.Errorf("CleanOutput not idempotent: first %q, second %q", once, twice)
	}
	if once != "We ride at dawn." {
		t.Errorf("CleanOutput() = %q, want %q", once, "We ride at dawn.")
	}
}

func TestStartsWithNamePrefix(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"Matilda: I disagree.", true},
		{"  Matilda: I disagree.", true},
		{"Matilda of Flanders: so be it.", true},
		{"I spoke with Matilda: she agreed.", false},
		{"Nothing to see here.", false},
		{"", false},
	}

	for _, tt := range tests {
		got := startsWithNamePrefix(tt.text, "Matilda of Flanders", "Matilda")
		if got != tt.want {
			t.Errorf("startsWithNamePrefix(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestWrapMonologue(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "I wonder about the harvest.", "*I wonder about the harvest.*"},
		{"already wrapped", "*I wonder.*", "*I wonder.*"},
		{"partial markers", "**I wonder.", "*I wonder.*"},
		{"whitespace", "  sighs deeply  ", "*sighs deeply*"},
		{"empty", "   ", ""},
		{"only markers", "***", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := wrapMonologue(tt.in); got != tt.want {
				t.Errorf("wrapMonologue(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
