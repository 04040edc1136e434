package textutil

import (
	"reflect"
	"testing"
)

func TestCountWords(t *testing.T) {
	cases := []struct {
		text string
		want int
	}{
		{"", 0},
		{"   ", 0},
		{"one", 1},
		{"one two three", 3},
		{"tabs\tand\nnewlines count", 4},
	}
	for _, c := range cases {
		if got := CountWords(c.text); got != c.want {
			t.Errorf("CountWords(%q) = %d, want %d", c.text, got, c.want)
		}
	}
}

func TestSplitParagraphs(t *testing.T) {
	text := "first para\nstill first\n\nsecond para\r\n\r\nthird"
	got := SplitParagraphs(text)
	want := []string{"first para\nstill first", "second para", "third"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SplitParagraphs = %#v, want %#v", got, want)
	}
}

func TestSplitParagraphs_Empty(t *testing.T) {
	if got := SplitParagraphs("\n\n  \n\n"); len(got) != 0 {
		t.Errorf("expected no paragraphs, got %#v", got)
	}
}

func TestSplitSentences(t *testing.T) {
	got := SplitSentences("First one. Second one! Is this third? Trailing")
	want := []string{"First one.", "Second one!", "Is this third?", "Trailing"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SplitSentences = %#v, want %#v", got, want)
	}
}

func TestFirstSentences(t *testing.T) {
	text := "One. Two. Three. Four."
	if got := FirstSentences(text, 2); got != "One. Two." {
		t.Errorf("FirstSentences(2) = %q", got)
	}
	if got := FirstSentences(text, 10); got != "One. Two. Three. Four." {
		t.Errorf("FirstSentences(10) = %q", got)
	}
	if got := FirstSentences(text, 0); got != "" {
		t.Errorf("FirstSentences(0) = %q, want empty", got)
	}
}

func TestCollapseWhitespace(t *testing.T) {
	if got := CollapseWhitespace("  a \t b\n\nc  "); got != "a b c" {
		t.Errorf("CollapseWhitespace = %q", got)
	}
}
