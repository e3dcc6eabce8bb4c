package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/doubletabai/tabsql/pkg/agent"
)

func NewAskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question by generating and running SQL",
		Long: `Generate SQL for the question from the trained context, run it against the target database and
print the rows.

Examples:
  tabsql ask "Which five customers spent the most in 2024?"
  tabsql ask --auto-train "How many orders are still open?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: runAsk,
	}
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx, cmd, true)
	if err != nil {
		return err
	}
	defer a.Close()

	return answer(ctx, a.agent, strings.Join(args, " "))
}

func answer(ctx context.Context, a *agent.Agent, question string) error {
	spinner := newSpinner("Thinking...")
	ans, err := a.Ask(ctx, question)
	_ = spinner.Stop()
	if ans != nil && ans.SQL != "" {
		printSQL(ans.SQL)
	}
	if err != nil {
		if errors.Is(err, agent.ErrInsufficientContext) {
			pterm.Info.Println("Train tabsql first, e.g. `tabsql train plan` or `tabsql train ddl`.")
		}
		return err
	}
	return printResult(ans.Result)
}

func NewSQLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sql <question>",
		Short: "Generate SQL for a question without running it",
		Long: `Generate SQL for the question from the trained context and print it. Nothing is executed and no
database connection is needed.

Examples:
  tabsql sql "Average order value per month"`,
		Args: cobra.MinimumNArgs(1),
		RunE: runSQL,
	}
}

func runSQL(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx, cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()

	spinner := newSpinner("Generating SQL...")
	sql, _, err := a.agent.GenerateSQL(ctx, strings.Join(args, " "))
	_ = spinner.Stop()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), sql)
	return nil
}
