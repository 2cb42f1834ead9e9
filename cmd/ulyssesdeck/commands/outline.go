package commands

import (
	"context"
	"fmt"
	"strconv"

	"git.home.luguber.info/inful/ulyssesdeck/internal/deck"
)

// OutlineCmd implements the 'outline' command.
type OutlineCmd struct {
	DirArg `embed:""`
}

func (o *OutlineCmd) Run(g *Global, root *CLI) error {
	cfg, logger, err := root.LoadConfig()
	if err != nil {
		return err
	}
	p, err := newPipeline(cfg, o.Dir, false, logger)
	if err != nil {
		return err
	}
	d, err := p.builder.Assemble(context.Background())
	if err != nil {
		return err
	}

	outline := deck.Outline(d, p.root)
	rows := make([][]string, 0, len(outline))
	for _, r := range outline {
		rows = append(rows, []string{
			strconv.Itoa(r.Position),
			r.Source,
			string(r.Kind),
			strconv.Itoa(r.FirstSlide),
			strconv.Itoa(r.Slides),
		})
	}
	out := g.out()
	_, _ = fmt.Fprintln(out, renderTable(
		[]string{"#", "Source", "Kind", "First slide", "Slides"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight},
		stdoutIsTerminal(),
	))
	_, _ = fmt.Fprintf(out, "%d fragments, %d slides\n", len(d.Fragments), d.Slides)
	return nil
}
