package cmd

import (
	"bytes"
	"strings"
	"testing"
)

func TestConfirmDeletePrompt(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{name: "uppercase Y confirms", input: "Y\n", want: true},
		{name: "lowercase y does not confirm", input: "y\n", want: false},
		{name: "N does not confirm", input: "N\n", want: false},
		{name: "empty does not confirm", input: "\n", want: false},
		{name: "Y without newline confirms", input: "Y", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			got, err := confirmDeletePrompt(bytes.NewBufferString(tt.input), &out, "log-1")
			if err != nil {
				t.Fatalf("confirm prompt returned error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			if !strings.Contains(out.String(), `"log-1"`) {
				t.Fatalf("expected prompt to name the entry, got %q", out.String())
			}
		})
	}
}

func TestConfirmDeletePromptWithoutInput(t *testing.T) {
	if _, err := confirmDeletePrompt(nil, nil, "log-1"); err == nil {
		t.Fatalf("expected error without input")
	}
}
