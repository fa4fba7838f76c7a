// Package router assigns complexity scores to tasks and decides whether a
// task is enhanced directly or decomposed into subtasks.
package router

import (
	"regexp"
	"strings"

	"github.com/taskweave/taskweave/pkg/models"
)

// Decision is the routing outcome for a scored task.
type Decision string

const (
	// DecisionEnhance routes the task to the enhancement branch.
	DecisionEnhance Decision = "enhance"
	// DecisionDecompose routes the task to the decomposition branch.
	DecisionDecompose Decision = "decompose"
)

// DefaultThreshold is the complexity score at or above which a task is
// decomposed rather than enhanced.
const DefaultThreshold = 7

// defaultScore is assigned when a task has no text to analyze.
const defaultScore = 5

// multiStepWords signal sequenced, multi-step work in a task description.
var multiStepWords = []string{
	"then", "after", "before", "finally", "first", "next", "followed by",
	"once", "subsequently", "step",
}

// enumeratedLine matches numbered or bulleted sub-requirement lines.
var enumeratedLine = regexp.MustCompile(`(?m)^\s*(?:\d+[.)]|[-*+])\s+\S`)

// Route decides the branch for a complexity score. The function is total:
// score >= threshold routes to decompose, everything else to enhance.
func Route(score, threshold int) Decision {
	if score >= threshold {
		return DecisionDecompose
	}
	return DecisionEnhance
}

// Score estimates task complexity on a 0-10 scale from text features alone.
// It is deterministic and side-effect free. Empty text scores the mid-range
// default rather than failing.
func Score(task *models.Task) int {
	text := strings.TrimSpace(task.Title + "\n" + task.Description)
	if text == "" {
		return defaultScore
	}

	score := lengthScore(text) + multiStepScore(text) + enumerationScore(text) + conjunctionScore(text)
	if score > 10 {
		score = 10
	}
	return score
}

// lengthScore contributes 0-3 based on description length bands.
func lengthScore(text string) int {
	switch n := len(text); {
	case n > 1500:
		return 3
	case n > 600:
		return 2
	case n > 200:
		return 1
	default:
		return 0
	}
}

// multiStepScore contributes 0-3 based on sequencing language.
func multiStepScore(text string) int {
	lower := strings.ToLower(text)
	hits := 0
	for _, w := range multiStepWords {
		hits += strings.Count(lower, w)
	}
	switch {
	case hits >= 5:
		return 3
	case hits >= 3:
		return 2
	case hits >= 1:
		return 1
	default:
		return 0
	}
}

// enumerationScore contributes 0-3 based on enumerated sub-requirements.
func enumerationScore(text string) int {
	items := len(enumeratedLine.FindAllString(text, -1))
	switch {
	case items >= 5:
		return 3
	case items >= 3:
		return 2
	case items >= 1:
		return 1
	default:
		return 0
	}
}

// conjunctionScore contributes 0-1 when the text strings many requirements
// together with "and"/"or"/"also".
func conjunctionScore(text string) int {
	lower := strings.ToLower(text)
	conj := strings.Count(lower, " and ") + strings.Count(lower, " or ") + strings.Count(lower, " also ")
	if conj >= 3 {
		return 1
	}
	return 0
}
