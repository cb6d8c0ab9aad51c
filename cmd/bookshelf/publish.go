package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/pkg/errors"

	"github.com/bobg/bookshelf/book"
	"github.com/bobg/bookshelf/publish"
)

func (c maincmd) publish(ctx context.Context, fs *flag.FlagSet, args []string) error {
	var (
		version = fs.String("version", "", "version of the local book to publish")
		edition = fs.Int("edition", 1, "edition of the local book to publish")
		force   = fs.Bool("force", false, "publish even if the edition has not increased")
	)
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}
	if fs.NArg() != 1 || *version == "" {
		return errors.New("usage: publish -version V [-edition E] [-force] NAME")
	}

	s, err := c.sink(ctx)
	if err != nil {
		return errors.Wrap(err, "creating sink")
	}

	b := book.Open(c.shelf.Root(), fs.Arg(0), *version, *edition, "", nil)
	entry, err := publish.New(c.cfg, c.shelf, s, c.catalog).Publish(ctx, b, publish.Options{Force: *force})
	if err != nil {
		return err
	}

	fmt.Printf("Published %s at %s\n", b, entry.URL)
	return nil
}
