package config

import "strconv"

// Fields returns the configurable field names, in display order.
func Fields() []string {
	return []string{
		"task_file",
		"schema_file",
		"log_dir",
		"show_completed",
		"log_level",
		"log_format",
		"log_timestamps",
		"log_caller",
	}
}

// Value returns the effective value of a config field by name, for
// diagnostics output.
func (c *Config) Value(field string) string {
	switch field {
	case "task_file":
		return c.TaskFile
	case "schema_file":
		return c.SchemaFile
	case "log_dir":
		return c.LogDir
	case "show_completed":
		return strconv.FormatBool(c.ShowCompleted)
	case "log_level":
		return c.LogLevel
	case "log_format":
		return c.LogFormat
	case "log_timestamps":
		return strconv.FormatBool(c.LogTimestamps)
	case "log_caller":
		return strconv.FormatBool(c.LogCaller)
	}
	return ""
}

// GetConfigFile returns the active config file path, preferring the
// project file over the user file. Empty means no config file exists.
func (cws *ConfigWithSources) GetConfigFile() string {
	if proj := findProjectConfigFile(); proj != "" {
		return proj
	}
	return findUserConfigFile()
}
