package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/arloliu/mezip/archive"
	"github.com/arloliu/mezip/internal/logging"
	"github.com/arloliu/mezip/progress"
	"github.com/arloliu/mezip/source"
	"github.com/arloliu/mezip/update"
)

// buildFunc fills src with the items of the new archive. prior is nil when
// the archive does not exist yet.
type buildFunc func(prior *archive.Prior, src *source.FS) error

// runUpdate rewrites archivePath from the items produced by build.
//
// The new archive is written to a temporary file next to the target and
// renamed over it only after a successful run.
func (a *app) runUpdate(cmd *cobra.Command, archivePath string, needPrior bool, build buildFunc) (err error) {
	done := logging.LogOperationStart(a.logger, cmd.Name())
	defer done()

	cfg := *a.cfg
	if err := applyFlags(cmd, &cfg); err != nil {
		return err
	}

	var (
		prior *archive.Prior
		mode  os.FileMode = 0o644
	)
	pf, err := os.Open(archivePath)
	switch {
	case err == nil:
		defer pf.Close()

		st, serr := pf.Stat()
		if serr != nil {
			return serr
		}
		mode = st.Mode().Perm()
		if prior, err = archive.OpenPrior(pf, st.Size()); err != nil {
			return fmt.Errorf("open %s: %w", archivePath, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !needPrior:
	default:
		return err
	}

	src := source.New(logging.Component(a.logger, "source"))
	if err := build(prior, src); err != nil {
		return err
	}

	opts, err := cfg.options()
	if err != nil {
		return err
	}
	interval, err := cfg.progressInterval()
	if err != nil {
		return err
	}
	opts = append(opts,
		update.WithPrior(prior),
		update.WithLogger(logging.Component(a.logger, "update")),
		update.WithProgress(progress.NewLogSink(logging.Component(a.logger, "progress"), interval)),
	)

	coord, err := update.NewCoordinator(opts...)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(archivePath), "."+filepath.Base(archivePath)+"-*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	report, err := coord.Run(contextOf(cmd), tmp, src.Items(), src)
	if err != nil {
		return err
	}
	if err = tmp.Chmod(mode); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if pf != nil {
		_ = pf.Close()
	}
	if err = os.Rename(tmp.Name(), archivePath); err != nil {
		return err
	}

	for _, f := range report.Failures {
		a.logger.Warn().Err(f.Err).Str("name", f.Name).Msg("skipped")
	}
	added, _ := src.Stats()
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d entries written (%d new), %d skipped\n",
		archivePath, len(report.Entries), added, report.Skipped)

	return nil
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}

	return context.Background()
}
