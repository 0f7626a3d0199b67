// Package cmd implements the CLI command structure for taskman.
package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"taskman/internal/config"
	"taskman/internal/logging"
	"taskman/internal/todo"
	"taskman/internal/ui"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Run executes the taskman CLI.
func Run(ctx context.Context, args []string) error {
	// Create a flag set for global options
	fs := flag.NewFlagSet("taskman", flag.ContinueOnError)
	fs.Usage = func() {
		printUsage(fs, os.Stderr)
	}
	help := fs.Bool("help", false, "Show help")
	fs.BoolVar(help, "h", false, "Show help")
	showVersion := fs.Bool("version", false, "Show version")
	fs.BoolVar(showVersion, "v", false, "Show version")

	// Global flags
	cws, err := config.LoadWithSources(fs, args)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg := cws.Config
	if *help {
		printUsage(fs, os.Stdout)
		return nil
	}
	if *showVersion {
		return versionCommand()
	}

	logger := logging.NewConsole(cfg.LogLevel, cfg.LogFormat, cfg.LogTimestamps, cfg.LogCaller)

	// Determine the subcommand. Bare `taskman` opens the interactive
	// UI on a terminal and lists tasks when piped.
	subcommand := ""
	remainingArgs := fs.Args()
	if len(remainingArgs) > 0 && !strings.HasPrefix(remainingArgs[0], "-") {
		subcommand = remainingArgs[0]
		remainingArgs = remainingArgs[1:]
	}
	if subcommand == "" {
		subcommand = "ls"
		if ui.IsTTY(os.Stdout) {
			subcommand = "tui"
		}
	}

	// Execute the subcommand
	switch subcommand {
	case "add":
		return addCommand(cfg, logger, remainingArgs)
	case "ls", "list":
		return lsCommand(cfg, logger, remainingArgs)
	case "done":
		return doneCommand(cfg, logger, remainingArgs)
	case "rm":
		return rmCommand(cfg, logger, remainingArgs)
	case "edit":
		return editCommand(cfg, logger, remainingArgs)
	case "show":
		return showCommand(cfg, logger, remainingArgs)
	case "tui":
		return tuiCommand(ctx, cfg, logger, remainingArgs)
	case "export":
		return exportCommand(cfg, logger, remainingArgs)
	case "fmt":
		return fmtCommand(cfg, logger, remainingArgs)
	case "doctor":
		return doctorCommand(cws, logger, remainingArgs)
	case "init":
		return initCommand(cfg, remainingArgs)
	case "tail":
		return tailCommand(ctx, cfg, remainingArgs)
	case "version", "--version", "-v":
		return versionCommand()
	case "help", "--help", "-h":
		printUsage(fs, os.Stdout)
		return nil
	default:
		// An existing file path opens that task file in the default
		// surface, like `taskman work.json`.
		if fi, err := os.Stat(subcommand); err == nil && !fi.IsDir() {
			cfg.TaskFile = subcommand
			if !filepath.IsAbs(cfg.TaskFile) {
				cfg.TaskFile = filepath.Join(cfg.ProjectRoot, cfg.TaskFile)
			}
			if ui.IsTTY(os.Stdout) {
				return tuiCommand(ctx, cfg, logger, remainingArgs)
			}
			return lsCommand(cfg, logger, remainingArgs)
		}
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", subcommand)
		printUsage(fs, os.Stderr)
		return fmt.Errorf("unknown command: %s", subcommand)
	}
}

// lsCommand lists tasks. Completed tasks are hidden unless -all or
// show_completed is set.
func lsCommand(cfg *config.Config, logger *log.Logger, args []string) error {
	fs := flag.NewFlagSet("taskman ls", flag.ContinueOnError)
	all := fs.Bool("all", cfg.ShowCompleted, "Include completed tasks")
	verbose := fs.Bool("v", false, "Show descriptions and creation dates")

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

	printTaskList(os.Stdout, store, *all, *verbose)
	return nil
}

// showCommand prints one task in full.
func showCommand(cfg *config.Config, logger *log.Logger, args []string) error {
	fs := flag.NewFlagSet("taskman show", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if len(fs.Args()) != 1 {
		return fmt.Errorf("usage: taskman show <number>")
	}
	index, err := parseIndex(fs.Arg(0))
	if err != nil {
		return err
	}

	store, err := openStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("loading task file: %w", err)
	}
	task, ok := store.Get(index)
	if !ok {
		return fmt.Errorf("no task #%d", index+1)
	}

	status := "Pending"
	if task.Completed {
		status = "Completed"
	}
	fmt.Printf("Task #%d: %s\n", index+1, task.Title)
	fmt.Printf("  Status:      %s\n", status)
	if task.Description != "" {
		fmt.Printf("  Description: %s\n", task.Description)
	}
	fmt.Printf("  Created:     %s\n", task.CreatedDate)
	due := task.Due()
	if due == "" {
		due = "Not set"
	}
	fmt.Printf("  Due:         %s\n", due)
	return nil
}

// tuiCommand launches the interactive terminal UI.
func tuiCommand(ctx context.Context, cfg *config.Config, logger *log.Logger, args []string) error {
	fs := flag.NewFlagSet("taskman tui", flag.ContinueOnError)
	all := fs.Bool("all", cfg.ShowCompleted, "Start with completed tasks visible")

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
	activity := openActivity(cfg, logger)
	defer activity.Close()

	return ui.Run(ctx, store, activity, *all)
}

// doctorCommand checks config, the task file, the schema, and the log
// directory.
func doctorCommand(cws *config.ConfigWithSources, logger *log.Logger, args []string) error {
	fs := flag.NewFlagSet("taskman doctor", flag.ContinueOnError)
	verbose := fs.Bool("v", false, "Verbose output")

	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg := cws.Config

	fmt.Println("Taskman Doctor")
	fmt.Println("==============")
	fmt.Println()

	allOK := true

	// Check project root
	fmt.Printf("Project root: %s\n", cfg.ProjectRoot)
	if _, err := os.Stat(cfg.ProjectRoot); err != nil {
		fmt.Printf("  ❌ Error: %v\n", err)
		allOK = false
	} else {
		fmt.Println("  ✅ OK")
	}
	fmt.Println()

	// Report config values with the source each came from
	fmt.Println("Config:")
	if file := cws.GetConfigFile(); file != "" {
		fmt.Printf("  Loaded from: %s\n", file)
	} else {
		fmt.Println("  No config file found (defaults in effect)")
	}
	for _, field := range config.Fields() {
		fmt.Printf("  %s = %s (%s)\n", field, cfg.Value(field), cws.Sources[field])
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "warning", "error", "fatal":
	default:
		fmt.Printf("  ⚠️  Unknown log_level %q (info in effect)\n", cfg.LogLevel)
	}
	switch cfg.LogFormat {
	case "text", "json", "logfmt":
	default:
		fmt.Printf("  ⚠️  Unknown log_format %q (text in effect)\n", cfg.LogFormat)
	}
	fmt.Println()

	// Check task file. Doctor reads and validates the raw document, so
	// it reports exactly what Open would silently ignore.
	fmt.Printf("Task file: %s\n", cfg.TaskFile)
	info, err := os.Stat(cfg.TaskFile)
	switch {
	case err != nil && os.IsNotExist(err):
		fmt.Println("  ⚠️  Not found (created on first add)")
	case err != nil:
		fmt.Printf("  ❌ Error: %v\n", err)
		allOK = false
	case info.IsDir():
		fmt.Println("  ❌ Error: path is a directory")
		allOK = false
	default:
		data, readErr := os.ReadFile(cfg.TaskFile)
		if readErr != nil {
			fmt.Printf("  ❌ Error: %v\n", readErr)
			allOK = false
			break
		}
		result := todo.Validate(data, todo.ValidationOptions{SchemaPath: cfg.SchemaFile})
		for _, w := range result.Warnings {
			fmt.Printf("  ⚠️  %s\n", w)
		}
		if result.Valid {
			fmt.Println("  ✅ Valid")
		} else {
			fmt.Println("  ❌ Validation failed:")
			for _, e := range result.Errors {
				fmt.Printf("     - %v\n", e)
			}
			allOK = false
		}
		if *verbose && result.Valid {
			store, loadErr := openStore(cfg, logger)
			if loadErr == nil {
				fmt.Printf("  Tasks: %d (%d pending)\n", store.Len(), len(store.Tasks(false)))
			}
		}
	}
	fmt.Println()

	// Check schema file
	fmt.Printf("Schema file: %s\n", cfg.SchemaFile)
	if info, err := os.Stat(cfg.SchemaFile); err != nil {
		if os.IsNotExist(err) {
			fmt.Println("  ⚠️  Not found (embedded schema in use)")
		} else {
			fmt.Printf("  ❌ Error: %v\n", err)
			allOK = false
		}
	} else if info.IsDir() {
		fmt.Println("  ❌ Error: path is a directory")
		allOK = false
	} else {
		data, err := os.ReadFile(cfg.SchemaFile)
		if err != nil {
			fmt.Printf("  ❌ Error: %v\n", err)
			allOK = false
		} else {
			var parsed any
			if err := json.Unmarshal(data, &parsed); err != nil {
				fmt.Printf("  ❌ Invalid JSON: %v\n", err)
				allOK = false
			} else {
				fmt.Println("  ✅ OK")
			}
		}
	}
	fmt.Println()

	// Check log directory
	fmt.Printf("Log directory: %s\n", cfg.LogDir)
	if _, err := os.Stat(cfg.LogDir); err != nil {
		if os.IsNotExist(err) {
			fmt.Println("  ⚠️  Not found (created on first logged operation)")
		} else {
			fmt.Printf("  ❌ Error: %v\n", err)
			allOK = false
		}
	} else {
		fmt.Println("  ✅ OK")
		if *verbose {
			if _, err := os.Stat(logging.ActivityPath(cfg.LogDir)); err == nil {
				fmt.Printf("  Activity log: %s\n", logging.ActivityPath(cfg.LogDir))
			}
		}
	}
	fmt.Println()

	// Overall status
	if allOK {
		fmt.Println("✅ All checks passed!")
		return nil
	}
	fmt.Println("⚠️  Some checks failed. Taskman may not function correctly.")
	return fmt.Errorf("doctor checks failed")
}

// tailCommand tails the activity log.
func tailCommand(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("taskman tail", flag.ContinueOnError)
	follow := fs.Bool("f", false, "Follow the log (like tail -f)")
	fs.BoolVar(follow, "follow", false, "Follow the log (like tail -f)")
	n := fs.Int("n", 0, "Number of lines to show (0 = all)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	logPath := logging.ActivityPath(cfg.LogDir)
	if _, err := os.Stat(logPath); err != nil {
		if os.IsNotExist(err) {
			fmt.Println("No activity recorded yet.")
			return nil
		}
		return fmt.Errorf("checking activity log: %w", err)
	}

	fmt.Printf("Tailing: %s\n", logPath)
	if *follow {
		fmt.Println("(Ctrl+C to stop)")
	}
	fmt.Println()

	return logging.TailActivity(ctx, os.Stdout, logPath, *n, *follow)
}

// versionCommand prints version information.
func versionCommand() error {
	fmt.Printf("taskman version %s\n", Version)
	return nil
}

// printUsage prints the usage message.
func printUsage(fs *flag.FlagSet, w io.Writer) {
	fmt.Fprintln(w, "Taskman - A single-user task manager")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  taskman [command] [options]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  add <title>    Add a task")
	fmt.Fprintln(w, "  ls             List tasks (default when piped)")
	fmt.Fprintln(w, "  done <number>  Mark a task as completed")
	fmt.Fprintln(w, "  rm <number>    Delete a task")
	fmt.Fprintln(w, "  edit <number>  Update a task's fields")
	fmt.Fprintln(w, "  show <number>  Show one task in full")
	fmt.Fprintln(w, "  tui            Interactive terminal UI (default on a terminal)")
	fmt.Fprintln(w, "  export         Export tasks as json, yaml, or toml")
	fmt.Fprintln(w, "  fmt            Print or rewrite the task file in canonical form")
	fmt.Fprintln(w, "  doctor         Check config and task file health")
	fmt.Fprintln(w, "  init           Scaffold a task file and config in this directory")
	fmt.Fprintln(w, "  tail           Tail the activity log")
	fmt.Fprintln(w, "  version        Show version information")
	fmt.Fprintln(w, "  help           Show this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Global Options:")
	fs.SetOutput(w)
	fs.PrintDefaults()
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Add Options (use with 'add' command):")
	fmt.Fprintln(w, "  -desc string")
	fmt.Fprintln(w, "        Task description")
	fmt.Fprintln(w, "  -due string")
	fmt.Fprintln(w, "        Due date (YYYY-MM-DD)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Edit Options (use with 'edit' command):")
	fmt.Fprintln(w, "  -title string")
	fmt.Fprintln(w, "        New title (empty keeps the current one)")
	fmt.Fprintln(w, "  -desc string")
	fmt.Fprintln(w, "        New description (empty keeps the current one)")
	fmt.Fprintln(w, "  -due string")
	fmt.Fprintln(w, "        New due date (empty keeps the current one)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Ls Options (use with 'ls' command):")
	fmt.Fprintln(w, "  -all  Include completed tasks")
	fmt.Fprintln(w, "  -v    Show descriptions and creation dates")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Export Options (use with 'export' command):")
	fmt.Fprintln(w, "  -format string")
	fmt.Fprintln(w, "        Output format: json, yaml, or toml (default \"json\")")
	fmt.Fprintln(w, "  -o string")
	fmt.Fprintln(w, "        Write to a file instead of stdout")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Fmt Options (use with 'fmt' command):")
	fmt.Fprintln(w, "  -check")
	fmt.Fprintln(w, "        Report whether the file is canonical without rewriting it")
	fmt.Fprintln(w, "  -write")
	fmt.Fprintln(w, "        Rewrite the file in place")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Tail Options (use with 'tail' command):")
	fmt.Fprintln(w, "  -f, -follow")
	fmt.Fprintln(w, "        Follow the log (like tail -f)")
	fmt.Fprintln(w, "  -n int")
	fmt.Fprintln(w, "        Number of lines to show (0 = all)")
}

// printTaskList writes tasks as a numbered list. Numbers are positions
// in the file, so they stay valid for done/rm/edit even when completed
// tasks are hidden.
func printTaskList(w io.Writer, store *todo.Store, includeCompleted, verbose bool) {
	shown := 0
	for i := 0; i < store.Len(); i++ {
		task, _ := store.Get(i)
		if task.Completed && !includeCompleted {
			continue
		}
		printTask(w, i, task, verbose)
		shown++
	}
	if shown == 0 {
		fmt.Fprintln(w, "No tasks found.")
	}
}

// printTask prints a single task line.
func printTask(w io.Writer, index int, task todo.Task, verbose bool) {
	status := "⬜"
	if task.Completed {
		status = "✅"
	}
	line := fmt.Sprintf("%3d. %s %s", index+1, status, task.Title)
	if task.Due() != "" {
		line += fmt.Sprintf(" (due: %s)", task.Due())
	}
	fmt.Fprintln(w, line)
	if verbose {
		if task.Description != "" {
			fmt.Fprintf(w, "        %s\n", task.Description)
		}
		fmt.Fprintf(w, "        created %s\n", task.CreatedDate)
	}
}

// openStore opens the configured task file.
func openStore(cfg *config.Config, logger *log.Logger) (*todo.Store, error) {
	return todo.Open(cfg.TaskFile, todo.Options{
		Logger:     logger,
		SchemaPath: cfg.SchemaFile,
	})
}

// openActivity opens the activity log, degrading to no logging when
// the directory can't be used.
func openActivity(cfg *config.Config, logger *log.Logger) *logging.ActivityLog {
	activity, err := logging.OpenActivity(cfg.LogDir)
	if err != nil {
		logger.Warn("activity log unavailable", "err", err)
		return nil
	}
	return activity
}

// parseIndex converts a 1-based task number argument to a 0-based
// store index.
func parseIndex(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("invalid task number %q", arg)
	}
	if n < 1 {
		return 0, fmt.Errorf("task numbers start at 1, got %d", n)
	}
	return n - 1, nil
}
