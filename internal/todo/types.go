// Package todo implements the task list core and its file-backed store.
package todo

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/charmbracelet/log"
)

// Task represents a single item in the task list.
//
// The json tags define the backing file contract: every key is written
// on every record, and due_date is null when the task has no due date.
type Task struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	CreatedDate string  `json:"created_date"`
	DueDate     *string `json:"due_date"`
	Completed   bool    `json:"completed"`
}

// NewTask builds a task with CreatedDate set to the current local time.
// An empty dueDate means the task has no due date. No field is
// validated; callers decide what a usable title looks like.
func NewTask(title, description, dueDate string) Task {
	t := Task{
		Title:       title,
		Description: description,
		CreatedDate: time.Now().Format(time.DateTime),
	}
	if dueDate != "" {
		t.DueDate = &dueDate
	}
	return t
}

// Due returns the due date, or the empty string when none is set.
func (t *Task) Due() string {
	if t.DueDate == nil {
		return ""
	}
	return *t.DueDate
}

// Store owns the ordered task list and keeps it synchronized with the
// backing file: every mutation rewrites the full file before it is
// considered committed. Tasks are addressed by their current position;
// indices shift down when an earlier task is deleted and are never
// persisted as identifiers.
type Store struct {
	path       string
	schemaPath string
	logger     *log.Logger
	tasks      []Task
}

// Options configures a Store beyond its backing file path.
type Options struct {
	// Logger receives non-fatal load diagnostics. Nil means the
	// package default logger.
	Logger *log.Logger
	// SchemaPath points at an external schema overriding the embedded
	// one when the file exists.
	SchemaPath string
}

// Open builds a store for path and loads existing state. A missing
// file yields an empty store and is not reported. A file that exists
// but fails to parse or validate is logged as a warning and ignored
// for this run; the file itself is left untouched until the next
// mutation. Only real read errors (permissions and the like) are
// returned.
func Open(path string, opts Options) (*Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	s := &Store{
		path:       path,
		schemaPath: opts.SchemaPath,
		logger:     logger,
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the backing file location.
func (s *Store) Path() string {
	return s.path
}

// Len returns the number of tasks, completed included.
func (s *Store) Len() int {
	return len(s.tasks)
}

// Get returns the task at index, or ok=false when index is out of
// bounds.
func (s *Store) Get(index int) (Task, bool) {
	if index < 0 || index >= len(s.tasks) {
		return Task{}, false
	}
	return s.tasks[index], true
}

// Tasks returns the tasks in order. With includeCompleted false,
// completed tasks are filtered out and the remaining tasks keep their
// relative order. The returned slice is a copy; mutating it does not
// affect the store.
func (s *Store) Tasks(includeCompleted bool) []Task {
	out := make([]Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if !includeCompleted && t.Completed {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Add constructs a task, appends it at the highest index, and persists.
// The new task is returned; an error means the rewrite failed and the
// task was not committed.
func (s *Store) Add(title, description, dueDate string) (Task, error) {
	task := NewTask(title, description, dueDate)
	next := append(slices.Clone(s.tasks), task)
	if err := s.commit(next); err != nil {
		return Task{}, err
	}
	return task, nil
}

// Complete marks the task at index completed and persists. It returns
// ok=false and leaves the list unmodified when index is out of bounds.
// Completion is one-directional; there is no way back to pending.
func (s *Store) Complete(index int) (bool, error) {
	if index < 0 || index >= len(s.tasks) {
		return false, nil
	}
	next := slices.Clone(s.tasks)
	next[index].Completed = true
	if err := s.commit(next); err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes the task at index, shifting later tasks down one
// position, and persists. Same bounds policy as Complete.
func (s *Store) Delete(index int) (bool, error) {
	if index < 0 || index >= len(s.tasks) {
		return false, nil
	}
	next := slices.Delete(slices.Clone(s.tasks), index, index+1)
	if err := s.commit(next); err != nil {
		return false, err
	}
	return true, nil
}

// Update overwrites fields on the task at index from the non-empty
// arguments and persists. Empty arguments leave the corresponding
// field unchanged, so a field cannot be cleared to empty through
// Update. Same bounds policy as Complete.
func (s *Store) Update(index int, title, description, dueDate string) (bool, error) {
	if index < 0 || index >= len(s.tasks) {
		return false, nil
	}
	next := slices.Clone(s.tasks)
	t := &next[index]
	if title != "" {
		t.Title = title
	}
	if description != "" {
		t.Description = description
	}
	if dueDate != "" {
		due := dueDate
		t.DueDate = &due
	}
	if err := s.commit(next); err != nil {
		return false, err
	}
	return true, nil
}

// Save rewrites the backing file from the current task list.
func (s *Store) Save() error {
	return s.commit(s.tasks)
}

// Reload re-reads the backing file, discarding in-memory state. The
// same malformed-file fallback as Open applies.
func (s *Store) Reload() error {
	return s.load()
}

// load reads the backing file into memory. Malformed content is
// reported through the logger and ignored; the sequence falls back to
// empty without deleting anything on disk.
func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.tasks = nil
		return nil
	}
	if err != nil {
		return fmt.Errorf("read task file: %w", err)
	}

	result := Validate(data, ValidationOptions{SchemaPath: s.schemaPath})
	for _, w := range result.Warnings {
		s.logger.Debug("task file validation", "path", s.path, "warning", w)
	}
	if !result.Valid {
		s.logger.Warn("ignoring malformed task file", "path", s.path, "error", result.Errors[0])
		s.tasks = nil
		return nil
	}

	var tasks []Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		s.logger.Warn("ignoring malformed task file", "path", s.path, "error", err)
		s.tasks = nil
		return nil
	}
	s.tasks = tasks
	return nil
}

// commit writes tasks to the backing file and, only if the rewrite
// succeeds, makes them the in-memory state.
func (s *Store) commit(tasks []Task) error {
	data, err := Encode(tasks)
	if err != nil {
		return fmt.Errorf("marshal task file: %w", err)
	}
	if err := writeFileAtomic(s.path, data, 0644); err != nil {
		return fmt.Errorf("write task file: %w", err)
	}
	s.tasks = tasks
	return nil
}

// Encode renders tasks in the backing file format: a two-space
// indented JSON array with a trailing newline. A nil slice encodes as
// an empty array.
func Encode(tasks []Task) ([]byte, error) {
	if tasks == nil {
		tasks = []Task{}
	}
	data, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Canonical parses data as a task file and re-encodes it in the
// canonical format. Unlike Open, a document that does not parse is an
// error here, never an empty rewrite.
func Canonical(data []byte) ([]byte, error) {
	var tasks []Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("parse task file: %w", err)
	}
	return Encode(tasks)
}

// WriteFile writes a task file with the same temp-file-and-rename swap
// Save uses, for callers that format bytes themselves.
func WriteFile(path string, data []byte) error {
	return writeFileAtomic(path, data, 0644)
}

// writeFileAtomic replaces path with data through a temp file in the
// same directory followed by a rename, so readers observe either the
// old content or the fully written new content, never a partial write.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	committed = true
	return nil
}
