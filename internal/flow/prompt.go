package flow

import (
	"fmt"
	"strings"

	"github.com/taskweave/taskweave/internal/retrieval"
	"github.com/taskweave/taskweave/pkg/models"
)

// enhancementPrompt asks for an enriched task description.
const enhancementPrompt = `Improve this task description so a developer can act on it without
further clarification. Add missing detail, make acceptance implicit in the
wording, and keep the original intent.

Task title: %s

Task description:
%s
%s
Return ONLY a JSON object with this exact structure (no other text):
{
  "enhanced_description": "The improved task description",
  "reasoning": "What was added or clarified and why"
}`

// comprehensionTestPrompt asks for one question verifying the description is
// actionable.
const comprehensionTestPrompt = `Write one comprehension question that checks whether a reader of this
task description understands it well enough to start work.

Task title: %s

Task description:
%s

Return ONLY a JSON object with this exact structure (no other text):
{
  "question": "The comprehension question",
  "test_type": "short_answer|multiple_choice|true_false",
  "difficulty": "easy|medium|hard"
}`

// decompositionPrompt asks for 3-5 simpler subtasks.
const decompositionPrompt = `Break this task into between 3 and 5 subtasks. Each subtask must be
simpler than the parent: assign each a complexity from 0 to %d, strictly
lower than the parent's complexity of %d.

Task title: %s

Task description:
%s
%s
Return ONLY a JSON array with this exact structure (no other text):
[
  {
    "title": "Short subtask title",
    "description": "Detailed subtask description",
    "complexity": 3
  }
]

Guidelines:
- Subtasks together must cover the whole parent task
- Each subtask should be independently assignable
- Do not include setup work the parent does not ask for`

// buildEnhancementPrompt renders the enhancement prompt with optional
// retrieved context.
func buildEnhancementPrompt(task *models.Task, context []retrieval.Scored) string {
	return fmt.Sprintf(enhancementPrompt, task.Title, task.Description, contextSection(context))
}

// buildTestPrompt renders the comprehension test prompt against the most
// recent enhanced description.
func buildTestPrompt(task *models.Task) string {
	description := task.Description
	if n := len(task.Enhancements); n > 0 {
		description = task.Enhancements[n-1].EnhancedDescription
	}
	return fmt.Sprintf(comprehensionTestPrompt, task.Title, description)
}

// buildDecompositionPrompt renders the decomposition prompt with optional
// retrieved context.
func buildDecompositionPrompt(task *models.Task, context []retrieval.Scored) string {
	parent := 10
	if task.Complexity != nil {
		parent = *task.Complexity
	}
	maxChild := parent - 1
	if maxChild < 0 {
		maxChild = 0
	}
	return fmt.Sprintf(decompositionPrompt, maxChild, parent, task.Title, task.Description, contextSection(context))
}

// contextSection renders retrieved context as a prompt block, or nothing
// when retrieval degraded to empty.
func contextSection(context []retrieval.Scored) string {
	formatted := retrieval.FormatContext(context)
	if formatted == "" {
		return "\n"
	}
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(formatted)
	b.WriteString("\n")
	return b.String()
}
