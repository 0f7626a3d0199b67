package cmd

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"reflect"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"taskman/internal/config"
	"taskman/internal/todo"
)

// exportTask mirrors the task record for the non-JSON encoders. TOML
// has no null, so an unset due date is omitted there.
type exportTask struct {
	Title       string  `yaml:"title" toml:"title"`
	Description string  `yaml:"description" toml:"description"`
	CreatedDate string  `yaml:"created_date" toml:"created_date"`
	DueDate     *string `yaml:"due_date" toml:"due_date,omitempty"`
	Completed   bool    `yaml:"completed" toml:"completed"`
}

// exportDoc wraps tasks for TOML, which needs a top-level key.
type exportDoc struct {
	Tasks []exportTask `toml:"tasks"`
}

// exportCommand writes all tasks in the requested format.
func exportCommand(cfg *config.Config, logger *log.Logger, args []string) error {
	fs := flag.NewFlagSet("taskman export", flag.ContinueOnError)
	format := fs.String("format", "json", "Output format: json, yaml, or toml")
	out := fs.String("o", "", "Write to a file instead of stdout")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if len(fs.Args()) > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	store, err := openStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("loading task file: %w", err)
	}

	tasks := store.Tasks(true)
	var data []byte
	switch *format {
	case "json":
		data, err = todo.Encode(tasks)
	case "yaml", "yml":
		data, err = yaml.Marshal(convertTasks(tasks))
	case "toml":
		var buf bytes.Buffer
		err = toml.NewEncoder(&buf).Encode(exportDoc{Tasks: convertTasks(tasks)})
		data = buf.Bytes()
	default:
		return fmt.Errorf("unknown export format %q (expected json, yaml, or toml)", *format)
	}
	if err != nil {
		return fmt.Errorf("encoding tasks: %w", err)
	}

	if *out == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(*out, data, 0644); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}

	activity := openActivity(cfg, logger)
	defer activity.Close()
	if err := activity.RecordDetail("export", fmt.Sprintf("format=%s file=%s", *format, *out)); err != nil {
		logger.Warn("recording activity", "err", err)
	}

	fmt.Printf("Exported %d tasks to %s\n", len(tasks), *out)
	return nil
}

func convertTasks(tasks []todo.Task) []exportTask {
	converted := make([]exportTask, len(tasks))
	for i, t := range tasks {
		converted[i] = exportTask{
			Title:       t.Title,
			Description: t.Description,
			CreatedDate: t.CreatedDate,
			DueDate:     t.DueDate,
			Completed:   t.Completed,
		}
	}
	return converted
}

// fmtCommand renders the task file in canonical form, gofmt style: by
// default the canonical form is printed, -write rewrites the file in
// place, -check only reports. A file Open would fall back on is an
// error here, never an empty rewrite.
func fmtCommand(cfg *config.Config, logger *log.Logger, args []string) error {
	fs := flag.NewFlagSet("taskman fmt", flag.ContinueOnError)
	check := fs.Bool("check", false, "Report whether the file is canonical without rewriting it")
	write := fs.Bool("write", false, "Rewrite the file in place")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if len(fs.Args()) > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	data, err := os.ReadFile(cfg.TaskFile)
	if err != nil {
		return fmt.Errorf("reading task file: %w", err)
	}
	canonical, err := todo.Canonical(data)
	if err != nil {
		return err
	}

	clean := bytes.Equal(data, canonical)
	if !clean && !jsonEqual(data, canonical) {
		logger.Warn("canonical form changes content, unknown record keys are dropped")
	}

	switch {
	case *check:
		if !clean {
			return fmt.Errorf("%s is not in canonical form", cfg.TaskFile)
		}
		fmt.Printf("%s is canonical\n", cfg.TaskFile)
		return nil
	case *write:
		if clean {
			fmt.Printf("%s already canonical\n", cfg.TaskFile)
			return nil
		}
		if err := todo.WriteFile(cfg.TaskFile, canonical); err != nil {
			return fmt.Errorf("writing task file: %w", err)
		}
		activity := openActivity(cfg, logger)
		defer activity.Close()
		if err := activity.Record("fmt"); err != nil {
			logger.Warn("recording activity", "err", err)
		}
		fmt.Printf("Rewrote %s\n", cfg.TaskFile)
		return nil
	default:
		_, err := os.Stdout.Write(canonical)
		return err
	}
}

// jsonEqual reports whether a and b parse to the same JSON value.
func jsonEqual(a, b []byte) bool {
	var va, vb any
	if err := json.Unmarshal(a, &va); err != nil {
		return false
	}
	if err := json.Unmarshal(b, &vb); err != nil {
		return false
	}
	return reflect.DeepEqual(va, vb)
}
