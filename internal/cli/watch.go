package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/yukikurage/taskmaster/internal/client"
	"github.com/yukikurage/taskmaster/internal/dto"
	"github.com/yukikurage/taskmaster/internal/models"
)

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Show the task list and follow changes live",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			d := client.NewDashboard(a.client, a.log, func(tasks []models.Task) {
				a.render(tasks)
			})
			defer d.Close()

			err := d.Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}

func (a *app) render(tasks []models.Task) {
	pending := 0
	items := make([]dto.TaskDTO, len(tasks))
	for i, t := range tasks {
		items[i] = dto.ToTaskDTO(t)
		if !t.IsComplete {
			pending++
		}
	}

	fmt.Fprintf(a.out, "\n%d pending of %d\n", pending, len(tasks))
	printTasks(a.out, items)
}
