package flow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taskweave/taskweave/internal/provider"
	"github.com/taskweave/taskweave/internal/retrieval"
	"github.com/taskweave/taskweave/internal/router"
	"github.com/taskweave/taskweave/pkg/models"
)

// TaskRepository is the persistence boundary the engine depends on.
// Implemented by *store.TaskStore. A nil task with a nil error from FindByID
// means the task does not exist.
type TaskRepository interface {
	Save(task *models.Task) error
	FindByID(id string) (*models.Task, error)
}

// Dispatcher dispatches prompts to the provider registry with per-call
// attempt observation. Implemented by *provider.Registry.
type Dispatcher interface {
	DispatchObserved(ctx context.Context, slot provider.Slot, prompt string, obs provider.AttemptObserver) (string, error)
}

// ContextRetriever retrieves relevant artifacts for a query. Implemented by
// *retrieval.Service; retrieval failures degrade to an empty result inside
// the service, so the engine never sees them.
type ContextRetriever interface {
	Retrieve(ctx context.Context, query string, topK int, minSimilarity float64) []retrieval.Scored
}

// RetrievalPolicy sets the retrieval parameters for one call site.
type RetrievalPolicy struct {
	TopK          int
	MinSimilarity float64
}

// Defaults per call site. Decomposition uses a tighter threshold because it
// needs more focused context.
var (
	DefaultEnhancementRetrieval   = RetrievalPolicy{TopK: 3, MinSimilarity: 0.6}
	DefaultDecompositionRetrieval = RetrievalPolicy{TopK: 2, MinSimilarity: 0.7}
)

// Config contains the required engine dependencies.
type Config struct {
	// Repo is the task repository.
	Repo TaskRepository
	// Dispatcher routes prompts to providers.
	Dispatcher Dispatcher
	// Retriever supplies prompt context; nil disables retrieval entirely.
	Retriever ContextRetriever
}

// Option configures an Engine. Use With* functions to create Options.
type Option func(*engineOptions)

type engineOptions struct {
	threshold       int
	maxDepth        int
	maxConcurrent   int
	callTimeout     time.Duration
	enhancePolicy   RetrievalPolicy
	decomposePolicy RetrievalPolicy
	eventBufferSize int
}

// WithThreshold sets the complexity score at which tasks are decomposed.
func WithThreshold(n int) Option {
	return func(o *engineOptions) { o.threshold = n }
}

// WithMaxDecompositionDepth bounds how many levels of subtasks may be
// created. A task at max depth is enhanced regardless of its score.
func WithMaxDecompositionDepth(n int) Option {
	return func(o *engineOptions) { o.maxDepth = n }
}

// WithMaxConcurrentTasks bounds how many task flows RunMany executes at once.
func WithMaxConcurrentTasks(n int) Option {
	return func(o *engineOptions) { o.maxConcurrent = n }
}

// WithCallTimeout sets the per-call deadline for provider and retrieval calls.
func WithCallTimeout(d time.Duration) Option {
	return func(o *engineOptions) { o.callTimeout = d }
}

// WithEnhancementRetrieval overrides the enhancement retrieval policy.
func WithEnhancementRetrieval(p RetrievalPolicy) Option {
	return func(o *engineOptions) { o.enhancePolicy = p }
}

// WithDecompositionRetrieval overrides the decomposition retrieval policy.
func WithDecompositionRetrieval(p RetrievalPolicy) Option {
	return func(o *engineOptions) { o.decomposePolicy = p }
}

// Engine drives tasks through the orchestration state machine. One engine
// serves many concurrent flows; each task's flow is a strictly ordered
// pipeline with every transition committed before the next step.
type Engine struct {
	repo       TaskRepository
	dispatcher Dispatcher
	retriever  ContextRetriever
	emitter    *EventEmitter

	threshold       int
	maxDepth        int
	maxConcurrent   int
	callTimeout     time.Duration
	enhancePolicy   RetrievalPolicy
	decomposePolicy RetrievalPolicy
}

// New creates an Engine.
func New(cfg Config, opts ...Option) *Engine {
	o := engineOptions{
		threshold:       router.DefaultThreshold,
		maxDepth:        2,
		maxConcurrent:   4,
		callTimeout:     60 * time.Second,
		enhancePolicy:   DefaultEnhancementRetrieval,
		decomposePolicy: DefaultDecompositionRetrieval,
		eventBufferSize: 100,
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Engine{
		repo:            cfg.Repo,
		dispatcher:      cfg.Dispatcher,
		retriever:       cfg.Retriever,
		emitter:         NewEventEmitter(o.eventBufferSize),
		threshold:       o.threshold,
		maxDepth:        o.maxDepth,
		maxConcurrent:   o.maxConcurrent,
		callTimeout:     o.callTimeout,
		enhancePolicy:   o.enhancePolicy,
		decomposePolicy: o.decomposePolicy,
	}
}

// Events returns the transition event channel for external broadcast.
func (e *Engine) Events() <-chan TransitionEvent {
	return e.emitter.Events()
}

// RunFlow drives a task from its current status toward a terminal state.
// It is idempotent: a task in a terminal state other than errored is
// returned unchanged, and a retry after a crash or an errored run resumes
// from the last committed status rather than redoing completed steps.
func (e *Engine) RunFlow(ctx context.Context, taskID string) (*models.Task, error) {
	task, err := e.repo.FindByID(taskID)
	if err != nil {
		return nil, &RepositoryError{Op: "find task " + taskID, Err: err}
	}
	if task == nil {
		return nil, &ValidationError{Reason: fmt.Sprintf("task %q not found", taskID)}
	}

	for {
		if err := ctx.Err(); err != nil {
			return task, err
		}

		switch task.Status {
		case models.TaskStatusTodo:
			err = e.start(task)
		case models.TaskStatusErrored:
			// Manual retry path: re-enter at in_progress and resume from
			// whatever progress is already recorded on the task.
			err = e.transition(task, models.TaskStatusInProgress, "retry after error")
		case models.TaskStatusInProgress:
			err = e.route(task)
		case models.TaskStatusPendingEnhancement:
			err = e.enhance(ctx, task)
		case models.TaskStatusPendingComprehensionTest:
			err = e.generateTest(ctx, task)
		case models.TaskStatusPendingDecomposition:
			err = e.decompose(ctx, task)
		default:
			// Terminal: orchestration_complete, decomposed, completed, archived.
			return task, nil
		}

		if err != nil {
			return task, err
		}
	}
}

// Archive moves a task to archived from any state. It is an explicit
// external action, not part of the automated flow.
func (e *Engine) Archive(taskID string) (*models.Task, error) {
	task, err := e.repo.FindByID(taskID)
	if err != nil {
		return nil, &RepositoryError{Op: "find task " + taskID, Err: err}
	}
	if task == nil {
		return nil, &ValidationError{Reason: fmt.Sprintf("task %q not found", taskID)}
	}
	if task.Status == models.TaskStatusArchived {
		return nil, &ValidationError{Reason: fmt.Sprintf("task %q is already archived", taskID)}
	}
	if err := e.transition(task, models.TaskStatusArchived, "archived by external action"); err != nil {
		return nil, err
	}
	return task, nil
}

// start scores the task and moves it into the flow.
func (e *Engine) start(task *models.Task) error {
	if task.Complexity == nil {
		score := router.Score(task)
		task.Complexity = &score
	}
	return e.transition(task, models.TaskStatusInProgress, fmt.Sprintf("complexity=%d", *task.Complexity))
}

// route picks the branch for an in-progress task. Progress already recorded
// on the task wins over re-routing, so retries never redo completed steps.
func (e *Engine) route(task *models.Task) error {
	if len(task.Enhancements) > 0 && len(task.ComprehensionTests) == 0 {
		return e.transition(task, models.TaskStatusPendingComprehensionTest, "enhancement already recorded, resuming")
	}
	if len(task.ComprehensionTests) > 0 {
		return e.transition(task, models.TaskStatusOrchestrationComplete, "comprehension test already recorded, resuming")
	}

	score := 5
	if task.Complexity != nil {
		score = *task.Complexity
	}

	decision := router.Route(score, e.threshold)
	if decision == router.DecisionDecompose {
		if depth := e.depth(task); depth >= e.maxDepth {
			log.Printf("[flow] task %s at decomposition depth %d (max %d), enhancing instead", task.ID, depth, e.maxDepth)
			return e.transition(task, models.TaskStatusPendingEnhancement,
				fmt.Sprintf("routed to enhance: max decomposition depth %d reached", e.maxDepth))
		}
		return e.transition(task, models.TaskStatusPendingDecomposition, "routed to decompose")
	}
	return e.transition(task, models.TaskStatusPendingEnhancement, "routed to enhance")
}

// enhance runs retrieval and generation for the enhancement step.
func (e *Engine) enhance(ctx context.Context, task *models.Task) error {
	retrieved := e.retrieve(ctx, task.Title+"\n"+task.Description, e.enhancePolicy)
	prompt := buildEnhancementPrompt(task, retrieved)

	response, err := e.dispatch(ctx, provider.SlotMain, prompt, task)
	if err != nil {
		return e.fail(task, fmt.Sprintf("enhancement generation failed: %v", err), err)
	}

	parsed, err := ParseEnhancement(response)
	if err != nil {
		return e.fail(task, fmt.Sprintf("enhancement response unusable: %v", err), err)
	}

	parsed.Enhancement.CreatedAt = time.Now().UTC()
	task.Enhancements = append(task.Enhancements, parsed.Enhancement)
	return e.transition(task, models.TaskStatusPendingComprehensionTest, joinWarnings("enhancement recorded", parsed.Warnings))
}

// generateTest generates one comprehension test for the enhanced task.
func (e *Engine) generateTest(ctx context.Context, task *models.Task) error {
	response, err := e.dispatch(ctx, provider.SlotMain, buildTestPrompt(task), task)
	if err != nil {
		return e.fail(task, fmt.Sprintf("comprehension test generation failed: %v", err), err)
	}

	parsed, err := ParseComprehensionTest(response)
	if err != nil {
		return e.fail(task, fmt.Sprintf("comprehension test response unusable: %v", err), err)
	}

	parsed.Test.CreatedAt = time.Now().UTC()
	task.ComprehensionTests = append(task.ComprehensionTests, parsed.Test)
	return e.transition(task, models.TaskStatusOrchestrationComplete, joinWarnings("comprehension test recorded", parsed.Warnings))
}

// maxSubtasks caps how many children one decomposition may create.
const maxSubtasks = 5

// decompose runs retrieval and generation for the decomposition step and
// creates the child tasks. Children are N independent inserts; the store is
// only assumed to provide per-row atomicity.
func (e *Engine) decompose(ctx context.Context, task *models.Task) error {
	retrieved := e.retrieve(ctx, task.Title+"\n"+task.Description, e.decomposePolicy)
	prompt := buildDecompositionPrompt(task, retrieved)

	response, err := e.dispatch(ctx, provider.SlotMain, prompt, task)
	if err != nil {
		return e.fail(task, fmt.Sprintf("decomposition generation failed: %v", err), err)
	}

	subtasks, warnings, err := ParseSubtasks(response)
	if err != nil {
		return e.fail(task, fmt.Sprintf("decomposition response unusable: %v", err), err)
	}
	if len(subtasks) > maxSubtasks {
		warnings = append(warnings, fmt.Sprintf("provider returned %d subtasks, kept first %d", len(subtasks), maxSubtasks))
		subtasks = subtasks[:maxSubtasks]
	}

	parentComplexity := 10
	if task.Complexity != nil {
		parentComplexity = *task.Complexity
	}

	now := time.Now().UTC()
	childIDs := make([]string, 0, len(subtasks))
	for _, st := range subtasks {
		complexity := clampChildComplexity(st.Complexity, parentComplexity)
		child := &models.Task{
			ID:           uuid.New().String(),
			Title:        st.Title,
			Description:  st.Description,
			Status:       models.TaskStatusTodo,
			Complexity:   &complexity,
			ParentTaskID: task.ID,
			SourcePRDID:  task.SourcePRDID,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := e.repo.Save(child); err != nil {
			return &RepositoryError{Op: "save subtask of " + task.ID, Err: err}
		}
		childIDs = append(childIDs, child.ID)
	}

	task.SubtaskIDs = append(task.SubtaskIDs, childIDs...)
	return e.transition(task, models.TaskStatusDecomposed,
		joinWarnings(fmt.Sprintf("decomposed into %d subtasks", len(childIDs)), warnings))
}

// dispatch sends a prompt to a slot under the per-call timeout, recording
// failed attempts in the task's revision log.
func (e *Engine) dispatch(ctx context.Context, slot provider.Slot, prompt string, task *models.Task) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()

	return e.dispatcher.DispatchObserved(callCtx, slot, prompt, func(a provider.Attempt) {
		if a.Err != nil {
			task.AddRevision(task.Status, task.Status,
				fmt.Sprintf("dispatch attempt failed (provider=%s model=%s fallback=%t): %v",
					a.Provider, a.Model, a.Fallback, a.Err))
		}
	})
}

// retrieve runs a retrieval call under the per-call timeout. A nil retriever
// means no context, same as a degraded retrieval.
func (e *Engine) retrieve(ctx context.Context, query string, policy RetrievalPolicy) []retrieval.Scored {
	if e.retriever == nil {
		return nil
	}
	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()
	return e.retriever.Retrieve(callCtx, query, policy.TopK, policy.MinSimilarity)
}

// fail commits the errored transition and surfaces the causing error. If the
// commit itself fails, the repository error wins so the caller retries.
func (e *Engine) fail(task *models.Task, note string, cause error) error {
	if err := e.transition(task, models.TaskStatusErrored, note); err != nil {
		return err
	}
	return cause
}

// transition commits a state change: audit revision, durable save, event.
// On save failure the in-memory task is rolled back so the caller never
// operates on uncommitted state.
func (e *Engine) transition(task *models.Task, newStatus models.TaskStatus, note string) error {
	old := task.Status
	task.Status = newStatus
	task.AddRevision(old, newStatus, note)

	if err := e.repo.Save(task); err != nil {
		task.Status = old
		task.Revisions = task.Revisions[:len(task.Revisions)-1]
		return &RepositoryError{Op: "save task " + task.ID, Err: err}
	}

	e.emitter.Emit(TransitionEvent{
		TaskID:    task.ID,
		OldStatus: old,
		NewStatus: newStatus,
		Timestamp: time.Now().UTC(),
	})
	return nil
}

// depth counts decomposition levels above the task by walking parent links.
// The walk is capped so a corrupted parent chain cannot loop forever.
func (e *Engine) depth(task *models.Task) int {
	depth := 0
	parentID := task.ParentTaskID
	for parentID != "" && depth < 32 {
		parent, err := e.repo.FindByID(parentID)
		if err != nil || parent == nil {
			break
		}
		depth++
		parentID = parent.ParentTaskID
	}
	return depth
}

// clampChildComplexity forces a child's complexity strictly below the
// parent's, within [0,10].
func clampChildComplexity(child, parent int) int {
	max := parent - 1
	if max < 0 {
		max = 0
	}
	if child > max {
		return max
	}
	if child < 0 {
		return 0
	}
	return child
}

// joinWarnings folds parser warnings into a revision note.
func joinWarnings(note string, warnings []string) string {
	if len(warnings) == 0 {
		return note
	}
	return note + " (" + strings.Join(warnings, "; ") + ")"
}

// IsValidation reports whether err is a pre-I/O validation rejection.
func IsValidation(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}
