package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/doubletabai/tabsql/pkg/config"
)

var version = "dev"

// NewRootCmd builds the tabsql command tree. Settings are persistent flags shared by every command
// and can also come from the environment or a .env file.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tabsql",
		Short: "Ask questions about your database in plain language",
		Long: `tabsql turns questions into SQL.

Train it with DDL statements, documentation and example queries. Each question retrieves the most
similar training data, asks the model for a statement and runs it against your database.

Examples:
  tabsql train plan
  tabsql train ddl "CREATE TABLE users (id INT PRIMARY KEY, email TEXT)"
  tabsql ask "How many users signed up last week?"
  tabsql shell`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	config.Flags(cmd.PersistentFlags())

	cmd.AddCommand(
		NewAskCmd(),
		NewSQLCmd(),
		NewShellCmd(),
		NewTrainCmd(),
		NewTrainingCmd(),
		NewServeCmd(),
		NewMCPCmd(),
		NewVersionCmd(),
	)
	return cmd
}

func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

// Execute runs the root command with the given build version.
func Execute(v string) error {
	version = v
	return NewRootCmd().Execute()
}
