package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"git.home.luguber.info/inful/ulyssesdeck/internal/deck"
	ferrors "git.home.luguber.info/inful/ulyssesdeck/internal/foundation/errors"
)

// CheckCmd implements the 'check' command.
type CheckCmd struct {
	DirArg `embed:""`
}

func (c *CheckCmd) Run(g *Global, root *CLI) error {
	cfg, logger, err := root.LoadConfig()
	if err != nil {
		return err
	}
	p, err := newPipeline(cfg, c.Dir, false, logger)
	if err != nil {
		return err
	}
	d, err := p.builder.Assemble(context.Background())
	if err != nil {
		return err
	}

	out := g.out()
	broken := deck.CheckLinks(d, p.workDir)
	if len(broken) == 0 {
		_, _ = fmt.Fprintf(out, "All links resolve (%d fragments)\n", len(d.Fragments))
		return nil
	}

	rows := make([][]string, 0, len(broken))
	for _, b := range broken {
		src := b.Source
		if rel, err := filepath.Rel(p.root, b.Source); err == nil {
			src = filepath.ToSlash(rel)
		}
		rows = append(rows, []string{src, string(b.Kind), b.Destination})
	}
	_, _ = fmt.Fprintln(out, renderTable([]string{"Source", "Kind", "Destination"}, rows, nil, stdoutIsTerminal()))
	return ferrors.ValidationError("broken links found").
		WithContext("count", len(broken)).
		Build()
}
