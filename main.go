package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/doubletabai/tabsql/pkg/cli"
)

var version = "dev"

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	if err := cli.Execute(version); err != nil {
		log.Fatal().Err(err).Msg("Command failed")
	}
}
