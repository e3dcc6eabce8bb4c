package cli

import (
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/doubletabai/tabsql/pkg/knowledgebase"
	"github.com/doubletabai/tabsql/pkg/training"
)

func NewTrainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Add training data",
		Long: `Add DDL statements, documentation or example queries to the knowledge store.

Examples:
  tabsql train ddl "CREATE TABLE users (id INT PRIMARY KEY, email TEXT)"
  tabsql train doc "Active users logged in during the last 30 days"
  tabsql train sql --question "How many users are there?" "SELECT COUNT(*) FROM users"
  tabsql train plan
  tabsql train file ./schema.sql ./docs`,
	}
	cmd.AddCommand(
		newTrainTextCmd("ddl <statement>", "Train a DDL statement", training.KindDDL),
		newTrainTextCmd("doc <text>", "Train a piece of documentation", training.KindDocumentation),
		newTrainSQLCmd(),
		newTrainPlanCmd(),
		newTrainFileCmd(),
	)
	return cmd
}

func newTrainTextCmd(use, short string, kind training.Kind) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := bootstrap(ctx, cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			item, err := a.agent.Train(ctx, kind, "", strings.Join(args, " "), training.SourceCLI)
			if err != nil {
				return err
			}
			pterm.Success.Printfln("Stored %s", item.ID)
			return nil
		},
	}
}

func newTrainSQLCmd() *cobra.Command {
	var question string
	cmd := &cobra.Command{
		Use:   "sql <query>",
		Short: "Train an example query",
		Long: `Train an example query together with the question it answers. Without --question the model
suggests one.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := bootstrap(ctx, cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			item, err := a.agent.TrainSQL(ctx, question, strings.Join(args, " "), training.SourceCLI)
			if err != nil {
				return err
			}
			pterm.Success.Printfln("Stored %s: %s", item.ID, item.Question)
			return nil
		},
	}
	cmd.Flags().StringVar(&question, "question", "", "Question the query answers")
	return cmd
}

func newTrainPlanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Document every table of the target database from its information schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := bootstrap(ctx, cmd, true)
			if err != nil {
				return err
			}
			defer a.Close()

			spinner := newSpinner("Reading information schema...")
			items, err := a.agent.TrainPlan(ctx, training.SourcePlan)
			_ = spinner.Stop()
			if err != nil {
				return err
			}
			pterm.Success.Printfln("Stored %d tables", len(items))
			return nil
		},
	}
}

func newTrainFileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "file <path>...",
		Short: "Train .sql, .md, .txt and .pdf files or directories",
		Long: `Train files. In .sql scripts CREATE statements become DDL and other statements become example
queries; a comment right above a query is used as its question. Markdown, text and PDF files become
documentation.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := bootstrap(ctx, cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			spinner := newSpinner("Training files...")
			items, err := knowledgebase.Populate(ctx, a.agent, args)
			_ = spinner.Stop()
			if err != nil {
				return err
			}
			pterm.Success.Printfln("Stored %d items", len(items))
			return nil
		},
	}
}
