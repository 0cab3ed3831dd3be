package main

import (
	"fmt"
	"runtime"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/kjhall/streamcopy/internal/logging"
	"github.com/kjhall/streamcopy/internal/supervisor"
	"github.com/kjhall/streamcopy/internal/task"
)

type copyOptions struct {
	workers    int
	noProgress bool
	verbose    bool
	saveLists  bool
}

func newCopyCmd() *cobra.Command {
	opts := &copyOptions{workers: runtime.NumCPU()}

	cmd := &cobra.Command{
		Use:   "copy <list-file> <dest-dir>",
		Short: "Copy every file named in list-file into dest-dir, hashing as it streams",
		Long: `Reads a newline-separated list of source paths, copies each into dest-dir
(mirroring its path, with any leading "/" stripped), and writes dest-dir/hashes.sha1
with one "<sha1>  <path>" line per file that copied successfully.

A source that does not exist, or that errors partway through, is recorded as
a failure and does not stop the rest of the run.`,
		Args: cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return runCopy(args[0], args[1], opts)
		},
	}

	cmd.Flags().IntVarP(&opts.workers, "workers", "w", opts.workers, "number of parallel workers")
	cmd.Flags().BoolVar(&opts.noProgress, "no-progress", false, "disable the progress bar")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "log every file, not just run summaries")
	cmd.Flags().BoolVar(&opts.saveLists, "save-lists", false, "also write copied.txt and errored.txt in dest-dir")

	return cmd
}

func runCopy(listPath, destDir string, opts *copyOptions) error {
	logger, err := logging.New(opts.verbose)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	cancel := notifyInterrupt()

	var bar *progressBar
	sink := func(ev task.ProgressEvent) {
		if bar == nil {
			bar = newProgressBar(!opts.noProgress, ev.TotalFiles)
		}
		bar.onEvent(ev)
	}

	summary, err := supervisor.CopyFromList(listPath, destDir, supervisor.Options{
		Workers:    opts.workers,
		SaveLists:  opts.saveLists,
		OnProgress: sink,
		Cancel:     cancel,
		Logger:     logger,
	})
	if bar != nil {
		bar.finish()
	}
	if err != nil {
		return err
	}

	printf("copied %d/%d files, %s (%d failed)\n",
		summary.Succeeded, summary.Total, humanize.IBytes(uint64(summary.BytesCopied)), summary.Failed)
	if summary.Failed > 0 {
		return fmt.Errorf("%d file(s) failed to copy", summary.Failed)
	}
	return nil
}
