package cardid

import "testing"

func TestNormalize(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "Trims and lowercases", input: "  Hello \r\n", expected: "hello"},
		{name: "Collapses inner spaces", input: "Take \t Off", expected: "take off"},
		{name: "Already normal", input: "world", expected: "world"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Normalize(tc.input); got != tc.expected {
				t.Errorf("Expected normalized word to be '%s', but got '%s'", tc.expected, got)
			}
		})
	}
}

func TestFromWord(t *testing.T) {
	t.Run("generates correct id", func(t *testing.T) {
		// First 16 hex chars of sha256("abc")
		expected := "ba7816bf8f01cfea"
		if got := FromWord("ABC"); got != expected {
			t.Errorf("Expected id '%s', but got '%s'", expected, got)
		}
	})

	t.Run("normalization produces same id", func(t *testing.T) {
		if FromWord("  Serendipity ") != FromWord("serendipity") {
			t.Error("Expected ids to be the same after normalization, but they were different.")
		}
	})

	t.Run("different words have different ids", func(t *testing.T) {
		if FromWord("hello") == FromWord("world") {
			t.Error("Expected ids for different words to be different")
		}
	})
}
