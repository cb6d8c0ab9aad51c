// Command bookshelf is a CLI interface to local and remote bookshelves.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/bobg/subcmd"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/bobg/bookshelf"
	"github.com/bobg/bookshelf/catalog"
	_ "github.com/bobg/bookshelf/catalog/pg"
	_ "github.com/bobg/bookshelf/catalog/sqlite3"
	"github.com/bobg/bookshelf/shelf"
	"github.com/bobg/bookshelf/sink"
	_ "github.com/bobg/bookshelf/sink/file"
	_ "github.com/bobg/bookshelf/sink/gcs"
	_ "github.com/bobg/bookshelf/sink/logging"
	_ "github.com/bobg/bookshelf/sink/mem"
	_ "github.com/bobg/bookshelf/sink/replica"
	_ "github.com/bobg/bookshelf/sink/s3"
)

type maincmd struct {
	cfg     bookshelf.Config
	shelf   *shelf.Shelf
	catalog catalog.Catalog
}

func main() {
	var (
		config  = flag.String("config", "", "path to config file (default: environment only)")
		verbose = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	if *verbose {
		log.SetLevel(log.DebugLevel)
	}

	cfg := bookshelf.ConfigFromEnv()
	if *config != "" {
		var err error
		cfg, err = bookshelf.LoadConfig(*config)
		if err != nil {
			log.Fatal(err)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cat, err := catalog.FromConfig(ctx, cfg.Catalog)
	if err != nil {
		log.Fatalf("Creating catalog: %s", err)
	}

	s, err := shelf.New(cfg, "", nil, cat)
	if err != nil {
		log.Fatalf("Creating shelf: %s", err)
	}

	err = subcmd.Run(ctx, maincmd{cfg: cfg, shelf: s, catalog: cat}, flag.Args())
	if err != nil {
		log.Fatal(err)
	}
}

func (c maincmd) Subcmds() map[string]subcmd.Subcmd {
	return map[string]subcmd.Subcmd{
		"books": {F: func(ctx context.Context, args []string) error {
			return c.books(ctx, flag.NewFlagSet("books", flag.ContinueOnError), args)
		}},
		"cached": {F: func(ctx context.Context, args []string) error {
			return c.cached(ctx, flag.NewFlagSet("cached", flag.ContinueOnError), args)
		}},
		"fetch": {F: func(ctx context.Context, args []string) error {
			return c.fetch(ctx, flag.NewFlagSet("fetch", flag.ContinueOnError), args)
		}},
		"load": {F: func(ctx context.Context, args []string) error {
			return c.load(ctx, flag.NewFlagSet("load", flag.ContinueOnError), args)
		}},
		"publish": {F: func(ctx context.Context, args []string) error {
			return c.publish(ctx, flag.NewFlagSet("publish", flag.ContinueOnError), args)
		}},
		"run": {F: func(ctx context.Context, args []string) error {
			return c.run(ctx, flag.NewFlagSet("run", flag.ContinueOnError), args)
		}},
		"versions": {F: func(ctx context.Context, args []string) error {
			return c.versions(ctx, flag.NewFlagSet("versions", flag.ContinueOnError), args)
		}},
	}
}

// sink creates the configured upload sink.
// With no sink configured it is the S3 bucket named in the config.
func (c maincmd) sink(ctx context.Context) (bookshelf.Sink, error) {
	conf := c.cfg.Sink
	if conf == nil {
		if c.cfg.Bucket == "" {
			return nil, errors.New("no sink or bucket configured")
		}
		conf = map[string]interface{}{"type": "s3", "bucket": c.cfg.Bucket}
	}
	return sink.FromConfig(ctx, conf)
}
