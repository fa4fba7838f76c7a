package flow

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/taskweave/taskweave/pkg/models"
)

// LLM responses are loosely structured: models wrap JSON in prose, drop
// fields, or answer in plain text. The parsers here extract what structure
// they can; Warnings records what was missing. Only a response with no
// usable structure at all is an error.

// ParsedEnhancement is the tolerant parse of an enhancement response.
type ParsedEnhancement struct {
	Enhancement models.Enhancement
	// Warnings lists fields that had to be defaulted or recovered.
	Warnings []string
}

type enhancementJSON struct {
	EnhancedDescription string `json:"enhanced_description"`
	Reasoning           string `json:"reasoning"`
}

// ParseEnhancement extracts an enhancement from an LLM response. A response
// with no JSON object falls back to treating the whole text as the enhanced
// description, with a warning.
func ParseEnhancement(response string) (ParsedEnhancement, error) {
	var parsed ParsedEnhancement

	if raw, ok := extractJSON(response, '{', '}'); ok {
		var e enhancementJSON
		if err := json.Unmarshal([]byte(raw), &e); err == nil && e.EnhancedDescription != "" {
			parsed.Enhancement.EnhancedDescription = e.EnhancedDescription
			parsed.Enhancement.Reasoning = e.Reasoning
			if e.Reasoning == "" {
				parsed.Warnings = append(parsed.Warnings, "response omitted reasoning")
			}
			return parsed, nil
		}
	}

	// No usable JSON: fall back to prose.
	text := strings.TrimSpace(response)
	if text == "" {
		return parsed, fmt.Errorf("enhancement response contained no usable content")
	}
	parsed.Enhancement.EnhancedDescription = text
	parsed.Warnings = append(parsed.Warnings, "response was not valid JSON, used raw text as description")
	return parsed, nil
}

// ParsedTest is the tolerant parse of a comprehension test response.
type ParsedTest struct {
	Test     models.ComprehensionTest
	Warnings []string
}

type testJSON struct {
	Question   string `json:"question"`
	TestType   string `json:"test_type"`
	Difficulty string `json:"difficulty"`
}

// ParseComprehensionTest extracts a comprehension test from an LLM response.
// An unknown or missing test type defaults to short_answer with a warning.
func ParseComprehensionTest(response string) (ParsedTest, error) {
	var parsed ParsedTest

	raw, ok := extractJSON(response, '{', '}')
	if !ok {
		// A bare question in prose is still usable.
		text := strings.TrimSpace(response)
		if text == "" {
			return parsed, fmt.Errorf("comprehension test response contained no usable content")
		}
		parsed.Test.Question = text
		parsed.Test.TestType = models.TestTypeShortAnswer
		parsed.Warnings = append(parsed.Warnings, "response was not valid JSON, used raw text as question")
		return parsed, nil
	}

	var t testJSON
	if err := json.Unmarshal([]byte(raw), &t); err != nil || t.Question == "" {
		return parsed, fmt.Errorf("comprehension test response had no parseable question: %q", truncate(response, 200))
	}

	parsed.Test.Question = t.Question
	parsed.Test.Difficulty = t.Difficulty

	testType := models.TestType(strings.ToLower(strings.TrimSpace(t.TestType)))
	if !testType.Valid() {
		parsed.Warnings = append(parsed.Warnings, fmt.Sprintf("unknown test type %q, defaulted to short_answer", t.TestType))
		testType = models.TestTypeShortAnswer
	}
	parsed.Test.TestType = testType
	return parsed, nil
}

// ParsedSubtask is one subtask from a decomposition response.
type ParsedSubtask struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Complexity  int    `json:"complexity"`
}

// ParseSubtasks extracts the JSON array of subtasks from a decomposition
// response. Subtasks without a title are dropped with a warning; an empty or
// missing array is an error.
func ParseSubtasks(response string) ([]ParsedSubtask, []string, error) {
	raw, ok := extractJSON(response, '[', ']')
	if !ok {
		return nil, nil, fmt.Errorf("no JSON array found in decomposition response (got %d chars): %q",
			len(response), truncate(response, 200))
	}

	var subtasks []ParsedSubtask
	if err := json.Unmarshal([]byte(raw), &subtasks); err != nil {
		return nil, nil, fmt.Errorf("unmarshal decomposition response: %w", err)
	}

	var warnings []string
	kept := subtasks[:0]
	for i, st := range subtasks {
		if strings.TrimSpace(st.Title) == "" {
			warnings = append(warnings, fmt.Sprintf("subtask %d had no title, dropped", i+1))
			continue
		}
		kept = append(kept, st)
	}

	if len(kept) == 0 {
		return nil, warnings, fmt.Errorf("decomposition response contained no usable subtasks")
	}
	return kept, warnings, nil
}

// extractJSON returns the outermost open..close span of the response.
func extractJSON(response string, open, closing byte) (string, bool) {
	start := strings.IndexByte(response, open)
	end := strings.LastIndexByte(response, closing)
	if start == -1 || end == -1 || end <= start {
		return "", false
	}
	return response[start : end+1], true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "... (truncated)"
}
