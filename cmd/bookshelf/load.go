package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/bobg/bookshelf/book"
	"github.com/bobg/bookshelf/shelf"
)

func (c maincmd) load(ctx context.Context, fs *flag.FlagSet, args []string) error {
	var (
		version = fs.String("version", "", "version to load (default: latest)")
		edition = fs.Int("edition", 0, "edition to load (default: latest)")
		force   = fs.Bool("force", false, "refetch manifests even if cached")
	)
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}
	if fs.NArg() != 1 {
		return errors.New("usage: load [-version V] [-edition E] [-force] NAME")
	}

	b, err := c.shelf.Load(ctx, fs.Arg(0), *version, *edition, shelf.LoadOptions{Force: *force})
	if err != nil {
		return err
	}
	return describe(b)
}

func describe(b *book.Book) error {
	hash, err := b.Hash()
	if err != nil {
		return err
	}
	resources, err := b.Resources()
	if err != nil {
		return err
	}

	fmt.Printf("%s\n  dir  %s\n  hash %s\n", b, b.Dir(), hash)
	for _, r := range resources {
		size := "not fetched"
		if info, err := os.Stat(b.LocalPath(r.Filename)); err == nil {
			size = humanize.Bytes(uint64(info.Size()))
		}
		fmt.Printf("  %-30s %-10s %s (%s)\n", r.Name, r.Kind, r.Filename, size)
	}
	return nil
}

// fetch loads the latest edition of each named book concurrently
// and downloads all of their resources.
func (c maincmd) fetch(ctx context.Context, fs *flag.FlagSet, args []string) error {
	force := fs.Bool("force", false, "refetch manifests even if cached")
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}
	if fs.NArg() == 0 {
		return errors.New("usage: fetch [-force] NAME...")
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, name := range fs.Args() {
		name := name
		g.Go(func() error {
			b, err := c.shelf.Load(ctx, name, "", 0, shelf.LoadOptions{Force: *force})
			if err != nil {
				return err
			}
			if err = b.FetchAll(ctx); err != nil {
				return errors.Wrapf(err, "fetching %s", b)
			}
			log.Infof("Fetched %s", b)
			return nil
		})
	}
	return g.Wait()
}

func (c maincmd) cached(ctx context.Context, fs *flag.FlagSet, args []string) error {
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}

	switch fs.NArg() {
	case 0:
		books, err := c.shelf.ListCached()
		if err != nil {
			return err
		}
		for _, cb := range books {
			fmt.Printf("%s %s %d\n", cb.Name, cb.Version, cb.Edition)
		}
		return nil

	case 3:
		var edition int
		if _, err = fmt.Sscan(fs.Arg(2), &edition); err != nil {
			return errors.Wrapf(err, "parsing edition %s", fs.Arg(2))
		}
		fmt.Println(c.shelf.IsCached(fs.Arg(0), fs.Arg(1), edition))
		return nil
	}

	return errors.New("usage: cached [NAME VERSION EDITION]")
}
