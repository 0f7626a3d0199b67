package cmd

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"taskman/internal/config"
)

// addCommand appends a task and persists it.
func addCommand(cfg *config.Config, logger *log.Logger, args []string) error {
	fs := flag.NewFlagSet("taskman add", flag.ContinueOnError)
	desc := fs.String("desc", "", "Task description")
	due := fs.String("due", "", "Due date (YYYY-MM-DD)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	title := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if title == "" {
		return fmt.Errorf("title is required")
	}
	// Due dates are stored as given; an unparseable one only warns.
	if *due != "" {
		if _, err := time.Parse(time.DateOnly, *due); err != nil {
			logger.Warn("due date is not in YYYY-MM-DD form, storing it as given", "due", *due)
		}
	}

	store, err := openStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("loading task file: %w", err)
	}
	activity := openActivity(cfg, logger)
	defer activity.Close()

	task, err := store.Add(title, *desc, *due)
	if err != nil {
		return fmt.Errorf("adding task: %w", err)
	}
	if err := activity.RecordTask("add", store.Len()-1, task.Title); err != nil {
		logger.Warn("recording activity", "err", err)
	}

	fmt.Printf("Added task #%d: %s\n", store.Len(), task.Title)
	return nil
}

// doneCommand marks a task as completed.
func doneCommand(cfg *config.Config, logger *log.Logger, args []string) error {
	fs := flag.NewFlagSet("taskman done", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if len(fs.Args()) != 1 {
		return fmt.Errorf("usage: taskman done <number>")
	}
	index, err := parseIndex(fs.Arg(0))
	if err != nil {
		return err
	}

	store, err := openStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("loading task file: %w", err)
	}
	activity := openActivity(cfg, logger)
	defer activity.Close()

	ok, err := store.Complete(index)
	if err != nil {
		return fmt.Errorf("completing task: %w", err)
	}
	if !ok {
		return fmt.Errorf("no task #%d", index+1)
	}
	task, _ := store.Get(index)
	if err := activity.RecordTask("done", index, task.Title); err != nil {
		logger.Warn("recording activity", "err", err)
	}

	fmt.Printf("Completed task #%d: %s\n", index+1, task.Title)
	return nil
}

// rmCommand deletes a task. Later tasks shift down one position.
func rmCommand(cfg *config.Config, logger *log.Logger, args []string) error {
	fs := flag.NewFlagSet("taskman rm", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if len(fs.Args()) != 1 {
		return fmt.Errorf("usage: taskman rm <number>")
	}
	index, err := parseIndex(fs.Arg(0))
	if err != nil {
		return err
	}

	store, err := openStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("loading task file: %w", err)
	}
	activity := openActivity(cfg, logger)
	defer activity.Close()

	// Grab the title before the record disappears.
	task, _ := store.Get(index)
	ok, err := store.Delete(index)
	if err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}
	if !ok {
		return fmt.Errorf("no task #%d", index+1)
	}
	if err := activity.RecordTask("rm", index, task.Title); err != nil {
		logger.Warn("recording activity", "err", err)
	}

	fmt.Printf("Deleted task #%d: %s\n", index+1, task.Title)
	return nil
}

// editCommand updates a task's fields. Omitted flags keep the current
// values.
func editCommand(cfg *config.Config, logger *log.Logger, args []string) error {
	fs := flag.NewFlagSet("taskman edit", flag.ContinueOnError)
	title := fs.String("title", "", "New title (empty keeps the current one)")
	desc := fs.String("desc", "", "New description (empty keeps the current one)")
	due := fs.String("due", "", "New due date (empty keeps the current one)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if len(fs.Args()) != 1 {
		return fmt.Errorf("usage: taskman edit [options] <number>")
	}
	index, err := parseIndex(fs.Arg(0))
	if err != nil {
		return err
	}
	if *title == "" && *desc == "" && *due == "" {
		return fmt.Errorf("nothing to change, pass -title, -desc, or -due")
	}

	store, err := openStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("loading task file: %w", err)
	}
	activity := openActivity(cfg, logger)
	defer activity.Close()

	ok, err := store.Update(index, *title, *desc, *due)
	if err != nil {
		return fmt.Errorf("updating task: %w", err)
	}
	if !ok {
		return fmt.Errorf("no task #%d", index+1)
	}
	task, _ := store.Get(index)
	if err := activity.RecordTask("edit", index, task.Title); err != nil {
		logger.Warn("recording activity", "err", err)
	}

	fmt.Printf("Updated task #%d: %s\n", index+1, task.Title)
	return nil
}
