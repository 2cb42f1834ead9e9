package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/ulyssesdeck/cmd/ulyssesdeck/commands"
	ferrors "git.home.luguber.info/inful/ulyssesdeck/internal/foundation/errors"
	"git.home.luguber.info/inful/ulyssesdeck/internal/version"
)

func main() {
	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Name("ulyssesdeck"),
		kong.Description("Flatten a Ulysses group tree into a single slide deck."),
		kong.Vars{"version": version.String()},
		kong.UsageOnError(),
	)

	if err := parser.Run(&commands.Global{Stdout: os.Stdout}); err != nil {
		ferrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
	}
}
