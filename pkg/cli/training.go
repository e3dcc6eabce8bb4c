package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func NewTrainingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "training",
		Short: "Inspect and remove training data",
	}
	cmd.AddCommand(newTrainingListCmd(), newTrainingRemoveCmd())
	return cmd
}

func newTrainingListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored training data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := bootstrap(ctx, cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			items, err := a.agent.TrainingData(ctx)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				pterm.Info.Println("No training data yet")
				return nil
			}
			return pterm.DefaultTable.WithHasHeader().WithData(trainingTable(items)).Render()
		},
	}
}

func newTrainingRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>...",
		Short: "Remove training data by id",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := bootstrap(ctx, cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			for _, id := range args {
				if err := a.agent.RemoveTrainingData(ctx, id); err != nil {
					return err
				}
				pterm.Success.Printfln("Removed %s", id)
			}
			return nil
		},
	}
}
