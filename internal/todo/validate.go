package todo

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// EmbeddedSchema is the JSON Schema for the backing file format. It is
// compiled into the binary so validation works without any files
// besides the task file itself.
//
//go:embed schema.json
var EmbeddedSchema string

// ValidationError represents a file-level validation error with the
// JSON path it occurred at.
type ValidationError struct {
	Path string // JSON path to the error location
	Err  error  // Underlying error
}

func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Err)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// RecordError reports a single task record missing a required field or
// holding the wrong type for it.
type RecordError struct {
	Index int
	Field string
	Err   error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("task[%d].%s: %s", e.Index, e.Field, e.Err)
}

// Unwrap returns the underlying error.
func (e *RecordError) Unwrap() error {
	return e.Err
}

// ValidationOptions controls validation behavior.
type ValidationOptions struct {
	// SchemaPath points at an external JSON Schema file. When the file
	// exists and compiles it replaces the embedded schema.
	SchemaPath string
}

// ValidationResult contains validation results.
type ValidationResult struct {
	Valid      bool
	Errors     []error
	Warnings   []string
	UsedSchema bool // true if JSON Schema validation was performed
}

// Validate checks raw task file content against the backing file
// format. Invalid JSON fails outright. Otherwise the document is
// validated against the schema (external override first, then the
// embedded one); if no schema can be compiled, minimal required-key
// checks run instead and a warning records the degradation.
func Validate(data []byte, opts ValidationOptions) *ValidationResult {
	result := &ValidationResult{
		Valid:    true,
		Errors:   make([]error, 0),
		Warnings: make([]string, 0),
	}

	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, &ValidationError{
			Err: fmt.Errorf("parse task file: %w", err),
		})
		return result
	}

	schema := compileSchema(opts.SchemaPath, result)
	if schema != nil {
		result.UsedSchema = true
		if err := schema.Validate(doc); err != nil {
			result.Valid = false
			appendSchemaErrors(result, err)
		}
		return result
	}

	result.Warnings = append(result.Warnings, "JSON Schema validation not available, using minimal checks")
	validateMinimal(doc, result)
	return result
}

// compileSchema returns the schema to validate against, preferring an
// existing external override. Compilation problems become warnings on
// result and the next candidate is tried; nil means minimal checks.
func compileSchema(schemaPath string, result *ValidationResult) *jsonschema.Schema {
	if schemaPath != "" {
		absPath, err := filepath.Abs(schemaPath)
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("invalid schema path: %v", err))
		} else if _, err := os.Stat(absPath); err != nil {
			if os.IsNotExist(err) {
				result.Warnings = append(result.Warnings, fmt.Sprintf("schema file not found: %s", absPath))
			} else {
				result.Warnings = append(result.Warnings, fmt.Sprintf("failed to read schema file: %v", err))
			}
		} else {
			compiler := jsonschema.NewCompiler()
			compiler.AssertFormat = true
			schema, err := compiler.Compile(absPath)
			if err != nil {
				result.Warnings = append(result.Warnings, fmt.Sprintf("invalid schema file: %v", err))
			} else {
				return schema
			}
		}
	}

	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	if err := compiler.AddResource("tasks.schema.json", strings.NewReader(EmbeddedSchema)); err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("embedded schema unavailable: %v", err))
		return nil
	}
	schema, err := compiler.Compile("tasks.schema.json")
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("embedded schema unavailable: %v", err))
		return nil
	}
	return schema
}

// validateMinimal checks the document shape without JSON Schema: a
// top-level array of objects, each carrying the five record keys with
// the right types.
func validateMinimal(doc interface{}, result *ValidationResult) {
	records, ok := doc.([]interface{})
	if !ok {
		result.Valid = false
		result.Errors = append(result.Errors, &ValidationError{
			Err: fmt.Errorf("expected a top-level array, got %T", doc),
		})
		return
	}

	for i, rec := range records {
		obj, ok := rec.(map[string]interface{})
		if !ok {
			result.Valid = false
			result.Errors = append(result.Errors, &ValidationError{
				Path: fmt.Sprintf("[%d]", i),
				Err:  fmt.Errorf("expected an object, got %T", rec),
			})
			continue
		}
		if err := validateRecordMinimal(i, obj); err != nil {
			result.Valid = false
			result.Errors = append(result.Errors, err)
		}
	}
}

// validateRecordMinimal checks one record for the required keys. The
// due_date key must be present but may be null.
func validateRecordMinimal(index int, obj map[string]interface{}) *RecordError {
	for _, field := range []string{"title", "description", "created_date"} {
		v, ok := obj[field]
		if !ok {
			return &RecordError{Index: index, Field: field, Err: fmt.Errorf("missing required field")}
		}
		if _, ok := v.(string); !ok {
			return &RecordError{Index: index, Field: field, Err: fmt.Errorf("expected a string, got %T", v)}
		}
	}

	v, ok := obj["due_date"]
	if !ok {
		return &RecordError{Index: index, Field: "due_date", Err: fmt.Errorf("missing required field")}
	}
	if v != nil {
		if _, ok := v.(string); !ok {
			return &RecordError{Index: index, Field: "due_date", Err: fmt.Errorf("expected a string or null, got %T", v)}
		}
	}

	v, ok = obj["completed"]
	if !ok {
		return &RecordError{Index: index, Field: "completed", Err: fmt.Errorf("missing required field")}
	}
	if _, ok := v.(bool); !ok {
		return &RecordError{Index: index, Field: "completed", Err: fmt.Errorf("expected a boolean, got %T", v)}
	}

	return nil
}

func appendSchemaErrors(result *ValidationResult, err error) {
	if err == nil {
		return
	}

	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		result.Errors = append(result.Errors, err)
		return
	}

	collectSchemaErrors(result, ve)
}

func collectSchemaErrors(result *ValidationResult, err *jsonschema.ValidationError) {
	if err == nil {
		return
	}

	if len(err.Causes) == 0 {
		result.Errors = append(result.Errors, &ValidationError{
			Path: jsonPointerToPath(err.InstanceLocation),
			Err:  fmt.Errorf("%s", err.Message),
		})
		return
	}

	for _, cause := range err.Causes {
		collectSchemaErrors(result, cause)
	}
}

func jsonPointerToPath(ptr string) string {
	if ptr == "" {
		return ""
	}
	if strings.HasPrefix(ptr, "#") {
		ptr = strings.TrimPrefix(ptr, "#")
	}
	if strings.HasPrefix(ptr, "/") {
		ptr = ptr[1:]
	}
	if ptr == "" {
		return ""
	}

	parts := strings.Split(ptr, "/")
	path := ""
	for _, part := range parts {
		part = strings.ReplaceAll(part, "~1", "/")
		part = strings.ReplaceAll(part, "~0", "~")
		if part == "" {
			continue
		}
		if idx, err := strconv.Atoi(part); err == nil {
			path += fmt.Sprintf("[%d]", idx)
			continue
		}
		if path == "" {
			path = part
		} else {
			path += "." + part
		}
	}

	return path
}
