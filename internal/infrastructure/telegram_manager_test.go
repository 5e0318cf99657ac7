package infrastructure

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitMessage(t *testing.T) {
	if got := SplitMessage("short", 10); len(got) != 1 || got[0] != "short" {
		t.Fatalf("short text split: %q", got)
	}

	text := "line one\nline two\nline three"
	got := SplitMessage(text, 12)
	want := []string{"line one", "line two", "line three"}
	if len(got) != len(want) {
		t.Fatalf("got %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("chunk %d = %q, want %q", i, got[i], want[i])
		}
	}

	long := strings.Repeat("é", 10)
	chunks := SplitMessage(long, 5)
	if strings.Join(chunks, "") != long {
		t.Fatalf("chunks lose text: %q", chunks)
	}
	for _, c := range chunks {
		if len(c) > 5 || !utf8.ValidString(c) {
			t.Fatalf("bad chunk %q", c)
		}
	}
}
