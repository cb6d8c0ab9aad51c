package notebook

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/bobg/bookshelf"
	"github.com/bobg/bookshelf/book"
)

// Job is one run of a dataset construction script.
type Job struct {
	Description *Description

	// Root is the local bookshelf root into which the built book goes.
	Root string

	// Force replaces a book already present at Root.
	Force bool

	// Dir is where the Runner must write the book,
	// at the usual layout: {Dir}/{name}/{version}_e{edition:03d}/.
	// Build sets it.
	Dir string
}

// Runner executes a dataset construction script.
type Runner interface {
	Run(context.Context, Job) error
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(context.Context, Job) error

// Run implements Runner.
func (f RunnerFunc) Run(ctx context.Context, job Job) error {
	return f(ctx, job)
}

// CommandRunner runs an external command to build a book.
// The command is Args followed by the description's source file.
// The environment carries the job's output directory and the selected version
// (see EnvLocalBookshelf and friends).
type CommandRunner struct {
	Args []string
}

// Environment variables set by CommandRunner.
const (
	EnvLocalBookshelf = bookshelf.EnvPrefix + "LOCAL_BOOKSHELF"
	EnvBookName       = bookshelf.EnvPrefix + "BOOK_NAME"
	EnvBookVersion    = bookshelf.EnvPrefix + "BOOK_VERSION"
	EnvBookEdition    = bookshelf.EnvPrefix + "BOOK_EDITION"
)

// Run implements Runner.
func (r CommandRunner) Run(ctx context.Context, job Job) error {
	if len(r.Args) == 0 {
		return errors.New("no command")
	}
	d := job.Description
	args := append(append([]string{}, r.Args[1:]...), d.SourceFile)
	cmd := exec.CommandContext(ctx, r.Args[0], args...)
	cmd.Dir = filepath.Dir(d.SourceFile)
	cmd.Env = append(os.Environ(),
		EnvLocalBookshelf+"="+job.Dir,
		EnvBookName+"="+d.Name,
		EnvBookVersion+"="+d.Selected.Version,
		EnvBookEdition+"="+strconv.Itoa(d.Edition()),
	)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	return errors.Wrapf(cmd.Run(), "running %s", r.Args[0])
}

// Build runs job with runner in a fresh staging directory beneath job.Root,
// verifies the book it produces,
// and only then moves the book into place in job.Root.
// On any failure nothing is left in job.Root.
//
// If the book is already present in job.Root
// the result is an error satisfying errors.Is(err, bookshelf.ErrExists),
// unless job.Force is true.
func Build(ctx context.Context, runner Runner, job Job) (*book.Book, error) {
	d := job.Description
	var (
		name    = d.Name
		version = d.Selected.Version
		edition = d.Edition()
		target  = bookshelf.LocalPath(job.Root, name, version, edition, "")
	)

	if _, err := os.Stat(target); err == nil {
		if !job.Force {
			return nil, errors.Wrapf(bookshelf.ErrExists, "book %s", target)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "checking %s", target)
	}

	if err := os.MkdirAll(job.Root, 0755); err != nil {
		return nil, errors.Wrapf(err, "ensuring path %s exists", job.Root)
	}
	staging, err := os.MkdirTemp(job.Root, ".staging-")
	if err != nil {
		return nil, errors.Wrap(err, "creating staging dir")
	}
	defer os.RemoveAll(staging)

	job.Dir = staging
	logger := log.WithFields(log.Fields{"book": name + "@" + bookshelf.LongVersion(version, edition), "staging": staging})
	logger.Info("Running construction script")

	if err = runner.Run(ctx, job); err != nil {
		return nil, errors.Wrapf(err, "building %s", name)
	}

	staged := book.Open(staging, name, version, edition, "", nil)
	m, err := staged.Metadata()
	if err != nil {
		return nil, errors.Wrap(err, "reading built manifest")
	}
	if m.Name != name || m.Version != version || m.Edition != edition {
		return nil, errors.Errorf("built book is %s@%s, expected %s@%s", m.Name, bookshelf.LongVersion(m.Version, m.Edition), name, bookshelf.LongVersion(version, edition))
	}
	if err = staged.Verify(); err != nil {
		return nil, errors.Wrap(err, "verifying built book")
	}

	if job.Force {
		if err = os.RemoveAll(target); err != nil {
			return nil, errors.Wrapf(err, "removing %s", target)
		}
	}
	if err = os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return nil, errors.Wrapf(err, "ensuring path %s exists", filepath.Dir(target))
	}
	if err = os.Rename(staged.Dir(), target); err != nil {
		return nil, errors.Wrapf(err, "moving %s to %s", staged.Dir(), target)
	}

	b := book.Open(job.Root, name, version, edition, "", nil)
	hash, err := b.Hash()
	if err != nil {
		return nil, err
	}
	logger.WithField("hash", hash).Info("Built book")
	return b, nil
}
