package moderation

import (
	"math"
	"sync"
	"testing"
	"unicode/utf8"
)

func TestIsSpamMessage(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		recent []string
		want   bool
	}{
		{"exact duplicate first", "hello there", []string{"hello there", "x", "y"}, true},
		{"exact duplicate case insensitive", "HELLO there", []string{"a", "Hello There", "b"}, true},
		{"exact duplicate outside last three", "hello there", []string{"hello there", "a", "b", "c", "d"}, true},
		{"exact duplicate trimmed", "  hello there  ", []string{"x", "hello there"}, true},
		{"no history", "hello there", nil, false},
		{"empty history", "hello there", []string{}, false},
		{"one message", "hello there", []string{"hello there"}, false},
		{"empty candidate", "", []string{"", "a", "b"}, false},
		{"whitespace candidate", "   ", []string{"   ", "a"}, false},
		{"near duplicate punctuation", "hello there!!", []string{"x", "y", "hello there"}, true},
		{"near duplicate typo", "see you tomorrow", []string{"a", "b", "see you tomorow"}, true},
		{"near duplicate outside window", "hello there!!", []string{"hello there", "a", "b", "c"}, false},
		{"different equal length", "abcdefghij", []string{"x", "y", "klmnopqrst"}, false},
		{"different messages", "are you coming tonight?", []string{"hi", "how are you", "good thanks"}, false},
		{"length not comparable", "hello there my friend", []string{"a", "b", "hello there"}, false},
		{"single char variants", "k", []string{"a", "b", "l"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsSpamMessage(tt.text, tt.recent); got != tt.want {
				t.Errorf("IsSpamMessage(%q, %q) = %v, want %v", tt.text, tt.recent, got, tt.want)
			}
		})
	}
}

func TestIsSpamMessage_DoesNotMutateHistory(t *testing.T) {
	recent := []string{"One", "Two", "Three"}
	IsSpamMessage("two", recent)
	if recent[0] != "One" || recent[1] != "Two" || recent[2] != "Three" {
		t.Errorf("history mutated: %q", recent)
	}
}

func TestIsSpamMessage_Concurrent(t *testing.T) {
	recent := []string{"first message", "second message", "third message"}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if !IsSpamMessage("third message!", recent) {
					t.Error("near duplicate not detected")
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"", "", 1},
		{"abc", "abc", 1},
		{"kitten", "sitting", 1 - 3.0/7},
		{"flaw", "lawn", 0.5},
		{"héllo", "hello", 0.8},
	}

	for _, tt := range tests {
		longest := max(utf8.RuneCountInString(tt.a), utf8.RuneCountInString(tt.b))
		if got := similarity(tt.a, tt.b, longest); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("similarity(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func BenchmarkIsSpamMessage(b *testing.B) {
	recent := []string{
		"hey, are we still on for tonight?",
		"let me know when you get there",
		"I'll bring snacks",
		"see you at eight",
	}
	for i := 0; i < b.N; i++ {
		IsSpamMessage("see you at eight!", recent)
	}
}
