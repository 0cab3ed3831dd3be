package main

import (
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	streamcache "github.com/kjhall/streamcopy/internal/cache"
	"github.com/kjhall/streamcopy/internal/logging"
	"github.com/kjhall/streamcopy/internal/supervisor"
	"github.com/kjhall/streamcopy/internal/task"
)

type verifyOptions struct {
	workers    int
	noProgress bool
	verbose    bool
	cacheFile  string
}

func newVerifyCmd() *cobra.Command {
	opts := &verifyOptions{workers: runtime.NumCPU()}

	cmd := &cobra.Command{
		Use:   "verify <manifest-file>",
		Short: "Re-hash every file listed in a hashes.sha1 manifest and report mismatches",
		Long: `Reads a hashes.sha1-format manifest, re-reads and re-hashes each listed path,
and classifies every entry as matching, mismatched, or unreadable.

An empty or missing manifest is reported as an error before any work starts.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runVerify(args[0], opts)
		},
	}

	cmd.Flags().IntVarP(&opts.workers, "workers", "w", opts.workers, "number of parallel workers")
	cmd.Flags().BoolVar(&opts.noProgress, "no-progress", false, "disable the progress bar")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "log every file, not just run summaries")
	cmd.Flags().StringVar(&opts.cacheFile, "cache-file", "", "path to a digest cache file (enables caching)")

	return cmd
}

func runVerify(manifestPath string, opts *verifyOptions) error {
	logger, err := logging.New(opts.verbose)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	digestCache, err := streamcache.Open(opts.cacheFile)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer func() { _ = digestCache.Close() }()

	cancel := notifyInterrupt()

	var bar *progressBar
	sink := func(ev task.ProgressEvent) {
		if bar == nil {
			bar = newProgressBar(!opts.noProgress, ev.TotalFiles)
		}
		bar.onEvent(ev)
	}

	summary, err := supervisor.VerifyFromManifest(manifestPath, supervisor.Options{
		Workers:    opts.workers,
		OnProgress: sink,
		Cancel:     cancel,
		Cache:      digestCache,
		Logger:     logger,
	})
	if bar != nil {
		bar.finish()
	}
	if err != nil {
		return err
	}

	printf("verified %d/%d files (%s): %d ok, %d mismatched, %d errored\n",
		summary.OKCount+summary.MismatchCount+summary.ErrorCount, summary.Total, humanize.IBytes(uint64(summary.BytesVerified)),
		summary.OKCount, summary.MismatchCount, summary.ErrorCount)
	for _, p := range summary.MismatchedPaths {
		printf("  mismatch: %s\n", filepath.Clean(p))
	}
	for _, p := range summary.ErrorPaths {
		printf("  error: %s\n", filepath.Clean(p))
	}

	if summary.MismatchCount > 0 || summary.ErrorCount > 0 {
		return fmt.Errorf("verify found %d mismatch(es) and %d error(s)", summary.MismatchCount, summary.ErrorCount)
	}
	return nil
}
