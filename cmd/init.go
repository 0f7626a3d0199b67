package cmd

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"taskman/internal/config"
	"taskman/internal/todo"
)

// initCommand scaffolds a task file, example config, and schema in the
// project root. Existing files are left alone.
func initCommand(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("taskman init", flag.ContinueOnError)
	skipConfig := fs.Bool("skip-config", false, "Do not write taskman.toml")
	skipSchema := fs.Bool("skip-schema", false, "Do not write the JSON schema")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if len(fs.Args()) > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	taskPath := cfg.TaskFile
	if !filepath.IsAbs(taskPath) {
		taskPath = filepath.Join(cfg.ProjectRoot, taskPath)
	}
	if _, err := os.Stat(taskPath); err == nil {
		fmt.Printf("Task file already exists: %s\n", taskPath)
	} else if os.IsNotExist(err) {
		empty, err := todo.Encode(nil)
		if err != nil {
			return fmt.Errorf("encoding empty task file: %w", err)
		}
		if err := todo.WriteFile(taskPath, empty); err != nil {
			return fmt.Errorf("writing task file: %w", err)
		}
		fmt.Printf("Created task file: %s\n", taskPath)
	} else {
		return fmt.Errorf("checking task file: %w", err)
	}

	if !*skipSchema {
		schemaPath := cfg.SchemaFile
		if !filepath.IsAbs(schemaPath) {
			schemaPath = filepath.Join(cfg.ProjectRoot, schemaPath)
		}
		if _, err := os.Stat(schemaPath); err == nil {
			fmt.Printf("Schema file already exists: %s\n", schemaPath)
		} else if os.IsNotExist(err) {
			if err := os.WriteFile(schemaPath, []byte(todo.EmbeddedSchema), 0644); err != nil {
				return fmt.Errorf("writing schema file: %w", err)
			}
			fmt.Printf("Created schema file: %s\n", schemaPath)
		} else {
			return fmt.Errorf("checking schema file: %w", err)
		}
	}

	if !*skipConfig {
		configPath := filepath.Join(cfg.ProjectRoot, "taskman.toml")
		if _, err := os.Stat(configPath); err == nil {
			fmt.Printf("Config file already exists: %s\n", configPath)
		} else if os.IsNotExist(err) {
			if err := os.WriteFile(configPath, []byte(config.ExampleConfig()), 0644); err != nil {
				return fmt.Errorf("writing config file: %w", err)
			}
			fmt.Printf("Created config file: %s\n", configPath)
		} else {
			return fmt.Errorf("checking config file: %w", err)
		}
	}

	return nil
}
