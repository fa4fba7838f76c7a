// Package retrieval chunks source content, embeds it, and retrieves relevant
// artifacts for prompt construction.
package retrieval

import (
	"fmt"
	"regexp"
	"strings"
)

// Strategy selects how source content is split into chunks before embedding.
type Strategy struct {
	kind string
	size int
}

// Paragraph splits on blank-line boundaries.
func Paragraph() Strategy { return Strategy{kind: "paragraph"} }

// Sentence splits on sentence terminators.
func Sentence() Strategy { return Strategy{kind: "sentence"} }

// FixedSize splits every n characters with no overlap.
func FixedSize(n int) Strategy { return Strategy{kind: "fixed", size: n} }

// WholeFile performs no splitting.
func WholeFile() Strategy { return Strategy{kind: "whole"} }

// String returns the strategy name for logs.
func (s Strategy) String() string {
	if s.kind == "fixed" {
		return fmt.Sprintf("fixed(%d)", s.size)
	}
	return s.kind
}

var (
	blankLine     = regexp.MustCompile(`\n\s*\n`)
	sentenceSplit = regexp.MustCompile(`(?s)(.*?[.!?])(?:\s+|$)`)
)

// Chunk splits content per the strategy. Empty and whitespace-only chunks are
// dropped; empty content yields no chunks.
func Chunk(content string, strategy Strategy) ([]string, error) {
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	var raw []string
	switch strategy.kind {
	case "paragraph":
		raw = blankLine.Split(content, -1)
	case "sentence":
		matches := sentenceSplit.FindAllStringSubmatch(content, -1)
		consumed := 0
		for _, m := range matches {
			raw = append(raw, m[1])
			consumed += len(m[0])
		}
		// Trailing text without a terminator is still a chunk.
		if rest := content[consumed:]; strings.TrimSpace(rest) != "" {
			raw = append(raw, rest)
		}
	case "fixed":
		if strategy.size <= 0 {
			return nil, fmt.Errorf("fixed-size chunking requires a positive size, got %d", strategy.size)
		}
		for start := 0; start < len(content); start += strategy.size {
			end := start + strategy.size
			if end > len(content) {
				end = len(content)
			}
			raw = append(raw, content[start:end])
		}
	case "whole":
		raw = []string{content}
	default:
		return nil, fmt.Errorf("unknown chunk strategy %q", strategy.kind)
	}

	chunks := make([]string, 0, len(raw))
	for _, c := range raw {
		c = strings.TrimSpace(c)
		if c != "" {
			chunks = append(chunks, c)
		}
	}
	return chunks, nil
}
