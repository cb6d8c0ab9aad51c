package main

import (
	"context"
	"flag"

	"github.com/pkg/errors"

	"github.com/bobg/bookshelf/notebook"
)

// run builds a book with an external construction command:
//
//	bookshelf run [-version V] [-force] NAME CMD [ARGS...]
//
// The command gets the dataset description's source file as its final argument.
func (c maincmd) run(ctx context.Context, fs *flag.FlagSet, args []string) error {
	var (
		version = fs.String("version", "", "version to build (default: the last in the description)")
		force   = fs.Bool("force", false, "replace an existing local book")
		nbdir   = fs.String("dir", c.cfg.NotebookDirectory, "directory of dataset descriptions")
	)
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}
	if fs.NArg() < 2 {
		return errors.New("usage: run [-version V] [-force] [-dir D] NAME CMD [ARGS...]")
	}

	d, err := notebook.LoadDescription(fs.Arg(0), *version, *nbdir)
	if err != nil {
		return err
	}

	job := notebook.Job{Description: d, Root: c.shelf.Root(), Force: *force}
	b, err := notebook.Build(ctx, notebook.CommandRunner{Args: fs.Args()[1:]}, job)
	if err != nil {
		return err
	}
	return describe(b)
}
