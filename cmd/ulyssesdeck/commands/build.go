package commands

import (
	"context"
	"fmt"
	"io"

	"git.home.luguber.info/inful/ulyssesdeck/internal/deck"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	DirArg `embed:""`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, logger, err := root.LoadConfig()
	if err != nil {
		return err
	}
	p, err := newPipeline(cfg, b.Dir, true, logger)
	if err != nil {
		return err
	}
	res, err := p.builder.Build(context.Background())
	if err != nil {
		return err
	}
	printStatus(g.out(), res)
	return nil
}

func printStatus(w io.Writer, res deck.Result) {
	_, _ = fmt.Fprintf(w, "Deck is up to date: %s (%d slides from %d fragments)\n",
		res.Output, res.Slides, res.Fragments)
}
