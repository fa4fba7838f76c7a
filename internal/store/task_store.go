package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/taskweave/taskweave/pkg/models"
)

// TaskFilter narrows FindByFilter results. Zero values mean "no constraint".
type TaskFilter struct {
	// Status limits results to tasks in the given status.
	Status models.TaskStatus
	// ParentID limits results to children of the given task.
	ParentID string
	// Limit caps the number of returned tasks; 0 means no cap.
	Limit int
	// Offset skips the first N matches.
	Offset int
}

// TaskStore persists tasks in SQLite. List-valued fields (enhancements,
// tests, revisions, subtask ids) are serialized as JSON columns; a single
// Save is one row write, so per-task updates are atomic.
type TaskStore struct {
	db *DB
}

// NewTaskStore creates a TaskStore on an opened database.
func NewTaskStore(db *DB) *TaskStore {
	return &TaskStore{db: db}
}

// Save inserts or replaces a task.
func (s *TaskStore) Save(task *models.Task) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	subtasks, err := json.Marshal(task.SubtaskIDs)
	if err != nil {
		return fmt.Errorf("marshal subtask ids: %w", err)
	}
	enhancements, err := json.Marshal(task.Enhancements)
	if err != nil {
		return fmt.Errorf("marshal enhancements: %w", err)
	}
	tests, err := json.Marshal(task.ComprehensionTests)
	if err != nil {
		return fmt.Errorf("marshal comprehension tests: %w", err)
	}
	revisions, err := json.Marshal(task.Revisions)
	if err != nil {
		return fmt.Errorf("marshal revisions: %w", err)
	}

	var complexity sql.NullInt64
	if task.Complexity != nil {
		complexity = sql.NullInt64{Int64: int64(*task.Complexity), Valid: true}
	}
	var dueDate sql.NullString
	if task.DueDate != nil {
		dueDate = sql.NullString{String: formatTime(*task.DueDate), Valid: true}
	}

	_, err = s.db.conn.Exec(`
		INSERT OR REPLACE INTO tasks (
			id, title, description, status, complexity, assignee, due_date,
			parent_task_id, subtask_ids, source_prd_id, enhancements,
			comprehension_tests, revisions, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.Title, task.Description, string(task.Status), complexity,
		nullString(task.Assignee), dueDate, nullString(task.ParentTaskID),
		string(subtasks), nullString(task.SourcePRDID), string(enhancements),
		string(tests), string(revisions),
		formatTime(task.CreatedAt), formatTime(task.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("save task %s: %w", task.ID, err)
	}
	return nil
}

// FindByID loads a task. Returns (nil, nil) when the task does not exist.
func (s *TaskStore) FindByID(id string) (*models.Task, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	row := s.db.conn.QueryRow(`
		SELECT id, title, description, status, complexity, assignee, due_date,
		       parent_task_id, subtask_ids, source_prd_id, enhancements,
		       comprehension_tests, revisions, created_at, updated_at
		FROM tasks WHERE id = ?`, id)

	task, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find task %s: %w", id, err)
	}
	return task, nil
}

// FindByFilter returns tasks matching the filter, newest first.
func (s *TaskStore) FindByFilter(filter TaskFilter) ([]*models.Task, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	query := `
		SELECT id, title, description, status, complexity, assignee, due_date,
		       parent_task_id, subtask_ids, source_prd_id, enhancements,
		       comprehension_tests, revisions, created_at, updated_at
		FROM tasks WHERE 1=1`
	var args []interface{}

	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, string(filter.Status))
	}
	if filter.ParentID != "" {
		query += " AND parent_task_id = ?"
		args = append(args, filter.ParentID)
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// rowScanner abstracts *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	var (
		task                 models.Task
		status               string
		complexity           sql.NullInt64
		assignee             sql.NullString
		dueDate              sql.NullString
		parentID             sql.NullString
		subtasks             sql.NullString
		sourcePRD            sql.NullString
		enhancements         sql.NullString
		tests                sql.NullString
		revisions            sql.NullString
		createdAt, updatedAt string
	)

	err := row.Scan(&task.ID, &task.Title, &task.Description, &status,
		&complexity, &assignee, &dueDate, &parentID, &subtasks, &sourcePRD,
		&enhancements, &tests, &revisions, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	task.Status = models.TaskStatus(status)
	if complexity.Valid {
		c := int(complexity.Int64)
		task.Complexity = &c
	}
	task.Assignee = assignee.String
	if dueDate.Valid {
		t, err := parseTime(dueDate.String)
		if err != nil {
			return nil, fmt.Errorf("parse due date: %w", err)
		}
		task.DueDate = &t
	}
	task.ParentTaskID = parentID.String
	task.SourcePRDID = sourcePRD.String

	if err := unmarshalColumn(subtasks, &task.SubtaskIDs); err != nil {
		return nil, fmt.Errorf("unmarshal subtask ids: %w", err)
	}
	if err := unmarshalColumn(enhancements, &task.Enhancements); err != nil {
		return nil, fmt.Errorf("unmarshal enhancements: %w", err)
	}
	if err := unmarshalColumn(tests, &task.ComprehensionTests); err != nil {
		return nil, fmt.Errorf("unmarshal comprehension tests: %w", err)
	}
	if err := unmarshalColumn(revisions, &task.Revisions); err != nil {
		return nil, fmt.Errorf("unmarshal revisions: %w", err)
	}

	if task.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if task.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &task, nil
}

func unmarshalColumn(col sql.NullString, out interface{}) error {
	if !col.Valid || col.String == "" || col.String == "null" {
		return nil
	}
	return json.Unmarshal([]byte(col.String), out)
}

// Touch updates a task's UpdatedAt without other changes. Used by drivers
// that mark external activity on a task.
func (s *TaskStore) Touch(id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	res, err := s.db.conn.Exec("UPDATE tasks SET updated_at = ? WHERE id = ?",
		formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("touch task %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("touch task %s: not found", id)
	}
	return nil
}
