package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

const activityFileName = "activity.jsonl"

// Event is a single activity log record.
type Event struct {
	// Time is when the event occurred, in UTC.
	Time time.Time `json:"time"`

	// Session groups the events of one process run.
	Session string `json:"session"`

	// Op is the operation name: add, done, rm, edit, export, fmt.
	Op string `json:"op"`

	// Index is the task position the operation touched, when it has one.
	Index *int `json:"index,omitempty"`

	// Title is the title of the task the operation touched.
	Title string `json:"title,omitempty"`

	// Detail carries extra context for operations without a task.
	Detail string `json:"detail,omitempty"`
}

// ActivityLog appends task operations to a JSONL file. All events
// written by one process share a session ID.
type ActivityLog struct {
	path    string
	session string

	mu   sync.Mutex
	file *os.File
}

// OpenActivity opens the activity log under dir, creating the
// directory and file as needed.
func OpenActivity(dir string) (*ActivityLog, error) {
	if dir == "" {
		return nil, fmt.Errorf("activity log dir is empty")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	path := filepath.Join(dir, activityFileName)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open activity log: %w", err)
	}

	return &ActivityLog{
		path:    path,
		session: uuid.NewString(),
		file:    file,
	}, nil
}

// ActivityPath returns the activity log path under dir without opening it.
func ActivityPath(dir string) string {
	return filepath.Join(dir, activityFileName)
}

// Path returns the activity log file path.
func (a *ActivityLog) Path() string {
	if a == nil {
		return ""
	}
	return a.path
}

// Session returns the session ID shared by this process's events.
func (a *ActivityLog) Session() string {
	if a == nil {
		return ""
	}
	return a.session
}

// Record appends an event for op with no task reference.
func (a *ActivityLog) Record(op string) error {
	return a.append(Event{Op: op})
}

// RecordTask appends an event for op referencing the task at index.
func (a *ActivityLog) RecordTask(op string, index int, title string) error {
	return a.append(Event{Op: op, Index: &index, Title: title})
}

// RecordDetail appends an event for op with a free-form detail string.
func (a *ActivityLog) RecordDetail(op, detail string) error {
	return a.append(Event{Op: op, Detail: detail})
}

func (a *ActivityLog) append(ev Event) error {
	if a == nil || a.file == nil {
		return nil
	}

	ev.Time = time.Now().UTC()
	ev.Session = a.session

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal activity event: %w", err)
	}
	data = append(data, '\n')

	a.mu.Lock()
	defer a.mu.Unlock()
	_, err = a.file.Write(data)
	return err
}

// Close closes the activity log file.
func (a *ActivityLog) Close() error {
	if a == nil || a.file == nil {
		return nil
	}
	return a.file.Close()
}
