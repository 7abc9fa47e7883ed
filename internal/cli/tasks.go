package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/yukikurage/taskmaster/internal/client"
	"github.com/yukikurage/taskmaster/internal/dto"
	"github.com/yukikurage/taskmaster/internal/models"
)

func newTasksCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tasks",
		Aliases: []string{"task"},
		Short:   "List and manage tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := a.client.ListTasks(cmd.Context())
			if err != nil {
				return err
			}
			printTasks(a.out, list.Tasks)
			return nil
		},
	}

	cmd.AddCommand(
		newTaskAddCmd(a),
		newTaskToggleCmd(a),
		newTaskPriorityCmd(a),
		newTaskRemoveCmd(a),
		newTaskSuggestCmd(a),
	)
	return cmd
}

func newTaskAddCmd(a *app) *cobra.Command {
	var description, priority string

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			task, err := a.client.CreateTask(cmd.Context(), client.TaskInput{
				Title:       strings.Join(args, " "),
				Description: description,
				Priority:    models.TaskPriority(priority),
			})
			if err != nil {
				return err
			}
			a.printf("Added %s\n", task.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "task description")
	cmd.Flags().StringVarP(&priority, "priority", "p", "medium", "low, medium or high")
	return cmd
}

func newTaskToggleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id>",
		Short: "Mark a task complete or incomplete",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			task, err := a.client.ToggleTask(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			a.printf("%s is now %s\n", task.Title, statusLabel(task.IsComplete))
			return nil
		},
	}
}

func newTaskPriorityCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "priority <id> <low|medium|high>",
		Short: "Change a task's priority",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := models.TaskPriority(args[1])
			task, err := a.client.UpdateTask(cmd.Context(), args[0], client.TaskPatch{Priority: &p})
			if err != nil {
				return err
			}
			a.printf("%s priority set to %s\n", task.Title, task.Priority)
			return nil
		},
	}
}

func newTaskRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client.DeleteTask(cmd.Context(), args[0]); err != nil {
				return err
			}
			a.printf("Deleted %s\n", args[0])
			return nil
		},
	}
}

func newTaskSuggestCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "suggest <text>",
		Short: "Extract task suggestions from free text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			suggestions, err := a.client.SuggestTasks(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			for _, s := range suggestions {
				a.printf("- [%s] %s\n", s.Priority, s.Title)
				if s.Description != "" {
					a.printf("    %s\n", s.Description)
				}
			}
			return nil
		},
	}
}

func printTasks(w io.Writer, tasks []dto.TaskDTO) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "No tasks yet")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tPRIORITY\tTITLE")
	for _, t := range tasks {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.ID, statusLabel(t.IsComplete), t.Priority, t.Title)
	}
	tw.Flush()
}

func statusLabel(done bool) string {
	if done {
		return "done"
	}
	return "pending"
}
