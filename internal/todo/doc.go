// Package todo owns the task list and its file-backed persistence.
//
// The task file (tasks.json) is a JSON array holding the tasks in
// order, following the schema embedded in schema.json:
//
//	[
//	  {
//	    "title": "Buy milk",
//	    "description": "2 liters, whole",
//	    "created_date": "2024-01-05 09:30:00",
//	    "due_date": "2024-01-06",
//	    "completed": false
//	  },
//	  {
//	    "title": "Pay bills",
//	    "description": "",
//	    "created_date": "2024-01-05 09:31:00",
//	    "due_date": null,
//	    "completed": true
//	  }
//	]
//
// Array order is task order: insertion order, display order, and
// persisted order are the same thing. Tasks carry no identifier; they
// are addressed by their current zero-based position, and deleting a
// task shifts every later position down by one.
//
// # Store contract
//
// A Store loads once at Open and rewrites the whole file after every
// mutation; a mutation that cannot be persisted is not applied in
// memory either. Out-of-bounds indices are rejected with an ok=false
// return and leave both memory and disk untouched. A backing file
// that exists but fails to parse or validate is reported through the
// store's logger and ignored for the run; it is never deleted, only
// overwritten by the next successful mutation.
//
// # Validation
//
// The package supports two validation modes:
//
// 1. JSON Schema validation (the default):
//   - Full validation against JSON Schema draft-2020-12
//   - The schema ships embedded in the binary; an external schema
//     file can override it
//
// 2. Minimal fallback validation (when no schema compiles):
//   - Top-level array shape
//   - Required record keys (title, description, created_date,
//     due_date, completed) and their types
//
// # File Format
//
// When writing task files, the package uses:
//   - 2-space indentation
//   - Trailing newline
//   - Stable key ordering (via JSON marshaling)
//   - Temp-file-and-rename replacement, so the file always holds
//     either the previous or the fully written new content
package todo
