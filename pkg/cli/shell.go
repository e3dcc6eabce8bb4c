package cli

import (
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func NewShellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Ask questions interactively",
		Long: `Start an interactive session. Each line is answered like tabsql ask. Type exit or press Ctrl+C to
leave.`,
		Args: cobra.NoArgs,
		RunE: runShell,
	}
}

func runShell(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx, cmd, true)
	if err != nil {
		return err
	}
	defer a.Close()

	pterm.DefaultBasicText.Println("Welcome to" + pterm.LightMagenta(" tabsql") + "! Ask anything about the " +
		pterm.LightMagenta(a.cfg.Dialect()) + " database.")

	for ctx.Err() == nil {
		question, err := pterm.DefaultInteractiveTextInput.
			WithDefaultText(">").
			WithDelimiter(" ").
			WithOnInterruptFunc(stop).
			Show()
		if err != nil {
			return err
		}
		question = strings.TrimSpace(question)
		switch question {
		case "":
			continue
		case "exit", "quit", `\q`:
			return nil
		}
		if err := answer(ctx, a.agent, question); err != nil {
			log.Warn().Err(err).Msg("Failed to answer question")
			pterm.Error.Println(err)
		}
	}
	return nil
}
