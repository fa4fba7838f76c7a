package retrieval

import (
	"strings"
	"testing"
)

func TestChunkParagraph(t *testing.T) {
	content := "First paragraph here.\n\nSecond paragraph\nspanning two lines.\n\n\nThird."
	chunks, err := Chunk(content, Paragraph())
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3: %q", len(chunks), chunks)
	}
	if chunks[1] != "Second paragraph\nspanning two lines." {
		t.Errorf("chunk 1 = %q", chunks[1])
	}
}

func TestChunkSentence(t *testing.T) {
	content := "One sentence. Another one! A question? Trailing fragment without terminator"
	chunks, err := Chunk(content, Sentence())
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}
	want := []string{
		"One sentence.", "Another one!", "A question?",
		"Trailing fragment without terminator",
	}
	if len(chunks) != len(want) {
		t.Fatalf("got %d chunks, want %d: %q", len(chunks), len(want), chunks)
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Errorf("chunk %d = %q, want %q", i, chunks[i], want[i])
		}
	}
}

func TestChunkFixedSize(t *testing.T) {
	content := strings.Repeat("x", 1200)
	chunks, err := Chunk(content, FixedSize(500))
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	if len(chunks[0]) != 500 || len(chunks[1]) != 500 || len(chunks[2]) != 200 {
		t.Errorf("chunk lengths = %d,%d,%d want 500,500,200",
			len(chunks[0]), len(chunks[1]), len(chunks[2]))
	}
}

func TestChunkFixedSizeInvalid(t *testing.T) {
	if _, err := Chunk("content", FixedSize(0)); err == nil {
		t.Error("FixedSize(0) should be rejected")
	}
	if _, err := Chunk("content", FixedSize(-5)); err == nil {
		t.Error("negative fixed size should be rejected")
	}
}

func TestChunkWholeFile(t *testing.T) {
	content := "All of this.\n\nStays together."
	chunks, err := Chunk(content, WholeFile())
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if chunks[0] != strings.TrimSpace(content) {
		t.Errorf("chunk = %q", chunks[0])
	}
}

func TestChunkEmptyContent(t *testing.T) {
	for _, strategy := range []Strategy{Paragraph(), Sentence(), FixedSize(100), WholeFile()} {
		chunks, err := Chunk("   \n\t  ", strategy)
		if err != nil {
			t.Errorf("Chunk(%s) failed: %v", strategy, err)
		}
		if len(chunks) != 0 {
			t.Errorf("Chunk(%s) on whitespace = %q, want none", strategy, chunks)
		}
	}
}

func TestStrategyString(t *testing.T) {
	if got := FixedSize(500).String(); got != "fixed(500)" {
		t.Errorf("FixedSize(500).String() = %q", got)
	}
	if got := Paragraph().String(); got != "paragraph" {
		t.Errorf("Paragraph().String() = %q", got)
	}
}
