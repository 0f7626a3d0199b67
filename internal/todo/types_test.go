package todo

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

// testStore opens a store on a fresh temp file and returns it together
// with the buffer its logger writes to.
func testStore(t *testing.T) (*Store, *bytes.Buffer) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tasks.json")
	var buf bytes.Buffer
	s, err := Open(path, Options{Logger: log.New(&buf)})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return s, &buf
}

func TestNewTask(t *testing.T) {
	task := NewTask("Buy milk", "2 liters", "2024-01-06")

	if task.Title != "Buy milk" {
		t.Errorf("Title: got %q, want %q", task.Title, "Buy milk")
	}
	if task.Description != "2 liters" {
		t.Errorf("Description: got %q, want %q", task.Description, "2 liters")
	}
	if task.Due() != "2024-01-06" {
		t.Errorf("Due: got %q, want %q", task.Due(), "2024-01-06")
	}
	if task.Completed {
		t.Error("Completed: new tasks must start pending")
	}
	if _, err := time.Parse(time.DateTime, task.CreatedDate); err != nil {
		t.Errorf("CreatedDate %q not in YYYY-MM-DD HH:MM:SS form: %v", task.CreatedDate, err)
	}
}

func TestNewTaskWithoutDueDate(t *testing.T) {
	task := NewTask("Buy milk", "", "")

	if task.DueDate != nil {
		t.Errorf("DueDate: got %q, want nil", *task.DueDate)
	}
	if task.Due() != "" {
		t.Errorf("Due: got %q, want empty", task.Due())
	}
}

func TestTaskRoundTrip(t *testing.T) {
	due := "2023-12-31"
	original := Task{
		Title:       "Renew passport",
		Description: "bring photos",
		CreatedDate: "2020-03-04 05:06:07",
		DueDate:     &due,
		Completed:   true,
	}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var loaded Task
	if err := json.Unmarshal(data, &loaded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if loaded.Title != original.Title {
		t.Errorf("Title: got %q, want %q", loaded.Title, original.Title)
	}
	if loaded.Description != original.Description {
		t.Errorf("Description: got %q, want %q", loaded.Description, original.Description)
	}
	if loaded.CreatedDate != original.CreatedDate {
		t.Errorf("CreatedDate: got %q, want %q (must survive verbatim)", loaded.CreatedDate, original.CreatedDate)
	}
	if loaded.Due() != original.Due() {
		t.Errorf("Due: got %q, want %q", loaded.Due(), original.Due())
	}
	if loaded.Completed != original.Completed {
		t.Errorf("Completed: got %v, want %v (must survive verbatim)", loaded.Completed, original.Completed)
	}
}

func TestTaskRecordKeys(t *testing.T) {
	data, err := json.Marshal(NewTask("Buy milk", "", ""))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var record map[string]json.RawMessage
	if err := json.Unmarshal(data, &record); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	want := []string{"title", "description", "created_date", "due_date", "completed"}
	if len(record) != len(want) {
		t.Errorf("record keys: got %d, want %d", len(record), len(want))
	}
	for _, key := range want {
		if _, ok := record[key]; !ok {
			t.Errorf("record missing key %q", key)
		}
	}
	if string(record["due_date"]) != "null" {
		t.Errorf("due_date: got %s, want null when unset", record["due_date"])
	}
}

func TestOpenMissingFile(t *testing.T) {
	s, buf := testStore(t)

	if s.Len() != 0 {
		t.Errorf("Len: got %d, want 0", s.Len())
	}
	if buf.Len() != 0 {
		t.Errorf("missing file must not be reported, logged: %s", buf.String())
	}
	if _, err := os.Stat(s.Path()); !os.IsNotExist(err) {
		t.Error("Open must not create the backing file")
	}
}

func TestOpenLoadsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	content := `[
  {
    "title": "Buy milk",
    "description": "",
    "created_date": "2024-01-05 09:30:00",
    "due_date": null,
    "completed": false
  },
  {
    "title": "Pay bills",
    "description": "rent and power",
    "created_date": "2024-01-05 09:31:00",
    "due_date": "2024-01-31",
    "completed": true
  }
]
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	s, err := Open(path, Options{Logger: log.New(&bytes.Buffer{})})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if s.Len() != 2 {
		t.Fatalf("Len: got %d, want 2", s.Len())
	}
	first, _ := s.Get(0)
	if first.Title != "Buy milk" {
		t.Errorf("task 0 title: got %q, want %q", first.Title, "Buy milk")
	}
	if first.CreatedDate != "2024-01-05 09:30:00" {
		t.Errorf("task 0 created_date: got %q, want verbatim from file", first.CreatedDate)
	}
	second, _ := s.Get(1)
	if !second.Completed {
		t.Error("task 1 must stay completed")
	}
	if second.Due() != "2024-01-31" {
		t.Errorf("task 1 due: got %q, want %q", second.Due(), "2024-01-31")
	}
}

func TestOpenMalformedFileFallsBack(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"invalid json", `{not json at all`},
		{"top-level object", `{"tasks": []}`},
		{"record missing title", `[{"description": "", "created_date": "2024-01-05 09:30:00", "due_date": null, "completed": false}]`},
		{"record missing due_date", `[{"title": "x", "description": "", "created_date": "2024-01-05 09:30:00", "completed": false}]`},
		{"completed not boolean", `[{"title": "x", "description": "", "created_date": "2024-01-05 09:30:00", "due_date": null, "completed": "yes"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "tasks.json")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatalf("write fixture: %v", err)
			}

			var buf bytes.Buffer
			s, err := Open(path, Options{Logger: log.New(&buf)})
			if err != nil {
				t.Fatalf("Open must recover, got error: %v", err)
			}
			if s.Len() != 0 {
				t.Errorf("Len: got %d, want 0 after fallback", s.Len())
			}
			if !bytes.Contains(buf.Bytes(), []byte("malformed task file")) {
				t.Errorf("fallback must be reported, logged: %s", buf.String())
			}

			// The malformed content is ignored, not deleted.
			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("read back: %v", err)
			}
			if string(data) != tt.content {
				t.Error("fallback must leave the file untouched")
			}
		})
	}
}

func TestAddPersists(t *testing.T) {
	s, _ := testStore(t)

	task, err := s.Add("Buy milk", "2 liters", "2024-01-06")
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if task.Title != "Buy milk" {
		t.Errorf("Title: got %q, want %q", task.Title, "Buy milk")
	}
	if s.Len() != 1 {
		t.Fatalf("Len: got %d, want 1", s.Len())
	}

	// A fresh store over the same file sees the task.
	reopened, err := Open(s.Path(), Options{Logger: log.New(&bytes.Buffer{})})
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if reopened.Len() != 1 {
		t.Fatalf("reopened Len: got %d, want 1", reopened.Len())
	}
	got, _ := reopened.Get(0)
	if got.Title != "Buy milk" || got.Due() != "2024-01-06" {
		t.Errorf("reopened task: got %+v", got)
	}
	if got.CreatedDate != task.CreatedDate {
		t.Errorf("CreatedDate: got %q, want %q", got.CreatedDate, task.CreatedDate)
	}
}

func TestAddAppendsAtEnd(t *testing.T) {
	s, _ := testStore(t)

	for _, title := range []string{"first", "second", "third"} {
		if _, err := s.Add(title, "", ""); err != nil {
			t.Fatalf("Add(%q) failed: %v", title, err)
		}
	}

	tasks := s.Tasks(true)
	want := []string{"first", "second", "third"}
	for i, title := range want {
		if tasks[i].Title != title {
			t.Errorf("task %d: got %q, want %q", i, tasks[i].Title, title)
		}
	}
}

func TestComplete(t *testing.T) {
	s, _ := testStore(t)
	if _, err := s.Add("Buy milk", "", ""); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	ok, err := s.Complete(0)
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if !ok {
		t.Fatal("Complete(0): got ok=false, want true")
	}
	got, _ := s.Get(0)
	if !got.Completed {
		t.Error("task must be completed")
	}

	// Out of bounds leaves everything alone.
	for _, index := range []int{-1, 1, 99} {
		ok, err := s.Complete(index)
		if err != nil {
			t.Fatalf("Complete(%d) failed: %v", index, err)
		}
		if ok {
			t.Errorf("Complete(%d): got ok=true, want false", index)
		}
	}
	if s.Len() != 1 {
		t.Errorf("Len: got %d, want 1", s.Len())
	}
}

func TestDeleteShiftsIndices(t *testing.T) {
	s, _ := testStore(t)
	for _, title := range []string{"A", "B", "C"} {
		if _, err := s.Add(title, "", ""); err != nil {
			t.Fatalf("Add(%q) failed: %v", title, err)
		}
	}

	ok, err := s.Delete(0)
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if !ok {
		t.Fatal("Delete(0): got ok=false, want true")
	}

	tasks := s.Tasks(true)
	if len(tasks) != 2 || tasks[0].Title != "B" || tasks[1].Title != "C" {
		t.Fatalf("after Delete(0): got %+v, want [B C]", tasks)
	}

	// Index 0 now addresses B, not the deleted A.
	if ok, err := s.Complete(0); err != nil || !ok {
		t.Fatalf("Complete(0) after delete: ok=%v err=%v", ok, err)
	}
	got, _ := s.Get(0)
	if got.Title != "B" || !got.Completed {
		t.Errorf("Complete(0) must mark B, got %+v", got)
	}
}

func TestBoundsRejectionOnEmptyStore(t *testing.T) {
	s, _ := testStore(t)

	if ok, err := s.Complete(0); ok || err != nil {
		t.Errorf("Complete(0): got ok=%v err=%v, want false nil", ok, err)
	}
	if ok, err := s.Delete(0); ok || err != nil {
		t.Errorf("Delete(0): got ok=%v err=%v, want false nil", ok, err)
	}
	if ok, err := s.Update(0, "x", "", ""); ok || err != nil {
		t.Errorf("Update(0): got ok=%v err=%v, want false nil", ok, err)
	}
	if s.Len() != 0 {
		t.Errorf("Len: got %d, want 0", s.Len())
	}

	// Rejected mutations never touch disk.
	if _, err := os.Stat(s.Path()); !os.IsNotExist(err) {
		t.Error("rejected mutations must not create the backing file")
	}
}

func TestUpdate(t *testing.T) {
	tests := []struct {
		name        string
		title       string
		description string
		dueDate     string
		wantTitle   string
		wantDesc    string
		wantDue     string
	}{
		{"title only", "new title", "", "", "new title", "old desc", "2024-01-01"},
		{"description only", "", "new desc", "", "old title", "new desc", "2024-01-01"},
		{"due date only", "", "", "2025-06-30", "old title", "old desc", "2025-06-30"},
		{"all fields", "new title", "new desc", "2025-06-30", "new title", "new desc", "2025-06-30"},
		{"all empty skips everything", "", "", "", "old title", "old desc", "2024-01-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := testStore(t)
			if _, err := s.Add("old title", "old desc", "2024-01-01"); err != nil {
				t.Fatalf("Add failed: %v", err)
			}

			ok, err := s.Update(0, tt.title, tt.description, tt.dueDate)
			if err != nil {
				t.Fatalf("Update failed: %v", err)
			}
			if !ok {
				t.Fatal("Update(0): got ok=false, want true")
			}

			got, _ := s.Get(0)
			if got.Title != tt.wantTitle {
				t.Errorf("Title: got %q, want %q", got.Title, tt.wantTitle)
			}
			if got.Description != tt.wantDesc {
				t.Errorf("Description: got %q, want %q", got.Description, tt.wantDesc)
			}
			if got.Due() != tt.wantDue {
				t.Errorf("Due: got %q, want %q", got.Due(), tt.wantDue)
			}
		})
	}
}

func TestUpdateOutOfBounds(t *testing.T) {
	s, _ := testStore(t)
	if _, err := s.Add("keep me", "", ""); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	ok, err := s.Update(1, "changed", "", "")
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if ok {
		t.Error("Update(1): got ok=true, want false")
	}
	got, _ := s.Get(0)
	if got.Title != "keep me" {
		t.Errorf("Title: got %q, want unchanged", got.Title)
	}
}

func TestTasksFilter(t *testing.T) {
	s, _ := testStore(t)
	for i, title := range []string{"done early", "still open", "done late"} {
		if _, err := s.Add(title, "", ""); err != nil {
			t.Fatalf("Add(%q) failed: %v", title, err)
		}
		if i != 1 {
			if ok, err := s.Complete(i); err != nil || !ok {
				t.Fatalf("Complete(%d): ok=%v err=%v", i, ok, err)
			}
		}
	}

	pending := s.Tasks(false)
	if len(pending) != 1 {
		t.Fatalf("pending: got %d tasks, want 1", len(pending))
	}
	if pending[0].Title != "still open" {
		t.Errorf("pending task: got %q, want %q", pending[0].Title, "still open")
	}

	all := s.Tasks(true)
	if len(all) != 3 {
		t.Errorf("all: got %d tasks, want 3", len(all))
	}
}

func TestTasksReturnsCopy(t *testing.T) {
	s, _ := testStore(t)
	if _, err := s.Add("original", "", ""); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	tasks := s.Tasks(true)
	tasks[0].Title = "mutated"

	got, _ := s.Get(0)
	if got.Title != "original" {
		t.Error("Tasks must return a copy, store was mutated")
	}
}

func TestSaveIdempotent(t *testing.T) {
	s, _ := testStore(t)
	if _, err := s.Add("Buy milk", "", "2024-01-06"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	first, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatalf("read after first save: %v", err)
	}
	if err := s.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	second, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatalf("read after second save: %v", err)
	}

	if !bytes.Equal(first, second) {
		t.Errorf("repeated Save changed the file:\nfirst:\n%s\nsecond:\n%s", first, second)
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	s, _ := testStore(t)
	for i := 0; i < 5; i++ {
		if _, err := s.Add("task", "", ""); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(s.Path()), "*.tmp.*"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(leftovers) != 0 {
		t.Errorf("temp files left behind: %v", leftovers)
	}
}

func TestReload(t *testing.T) {
	s, _ := testStore(t)
	if _, err := s.Add("on disk", "", ""); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	// Another store writes to the same file behind our back.
	other, err := Open(s.Path(), Options{Logger: log.New(&bytes.Buffer{})})
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	if _, err := other.Add("added elsewhere", "", ""); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	if err := s.Reload(); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if s.Len() != 2 {
		t.Errorf("Len after Reload: got %d, want 2", s.Len())
	}
}

func TestScenario(t *testing.T) {
	s, _ := testStore(t)

	if _, err := s.Add("Buy milk", "", ""); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if _, err := s.Add("Pay bills", "", "2024-01-01"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if ok, err := s.Complete(0); err != nil || !ok {
		t.Fatalf("Complete(0): ok=%v err=%v", ok, err)
	}

	tasks := s.Tasks(true)
	if len(tasks) != 2 {
		t.Fatalf("got %d tasks, want 2", len(tasks))
	}
	if tasks[0].Title != "Buy milk" || !tasks[0].Completed {
		t.Errorf("task 0: got %+v, want completed Buy milk", tasks[0])
	}
	if tasks[1].Title != "Pay bills" || tasks[1].Completed {
		t.Errorf("task 1: got %+v, want pending Pay bills", tasks[1])
	}
	if tasks[1].Due() != "2024-01-01" {
		t.Errorf("task 1 due: got %q, want %q", tasks[1].Due(), "2024-01-01")
	}
}

func TestEncodeEmpty(t *testing.T) {
	data, err := Encode(nil)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if string(data) != "[]\n" {
		t.Errorf("Encode(nil): got %q, want %q", data, "[]\n")
	}
}
