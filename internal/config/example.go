// Package config provides configuration loading and management.
package config

// ExampleConfig returns an example configuration showing all available options.
func ExampleConfig() string {
	return `# taskman configuration file
# Paths can be overridden by environment variables or CLI flags

# Task file (relative to the working directory unless absolute)
task_file = "tasks.json"

# Schema file overriding the embedded schema (used when the file exists)
schema_file = "tasks.schema.json"

# Log directory for the activity log (supports ~ expansion)
log_dir = "~/.taskman"

# Include completed tasks in listings by default
show_completed = false

# Log level: debug, info, warn, error
log_level = "info"

# Log format: text, json, logfmt
log_format = "text"

# Show timestamps in console logs
log_timestamps = false

# Show caller locations in console logs
log_caller = false
`
}
