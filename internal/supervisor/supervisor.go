// Package supervisor is the engine's control core. One Supervisor run
// handles exactly one copy-run or verify-run: it builds the task queue,
// drives the worker pool's single result channel, aggregates progress and
// the manifest/summary, and honors cancellation.
package supervisor

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/kjhall/streamcopy/internal/logging"
	"github.com/kjhall/streamcopy/internal/manifest"
	"github.com/kjhall/streamcopy/internal/pool"
	"github.com/kjhall/streamcopy/internal/streamer"
	"github.com/kjhall/streamcopy/internal/task"
)

// Options configures a run. The zero value is valid; Workers defaults to
// runtime.NumCPU() when <= 0.
type Options struct {
	Workers    int
	SaveLists  bool // copy-run only
	OnProgress func(task.ProgressEvent)
	Cancel     *task.CancelToken
	Cache      streamer.DigestCache // verify-run only; copy-runs never consult it
	Logger     *logging.Logger
}

func (o *Options) normalize() {
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
}

// CopySummary reports the outcome of a copy-run.
type CopySummary struct {
	Total       int
	Succeeded   int
	Failed      int
	BytesCopied int64
}

// CopyFromList copies every file named in listPath to its mirrored location
// under destDir, streaming a SHA-1 digest during the copy, and writes
// destDir/hashes.sha1 (plus copied.txt/errored.txt when SaveLists is set).
func CopyFromList(listPath, destDir string, opts Options) (CopySummary, error) {
	opts.normalize()

	paths, err := manifest.ReadListFile(listPath)
	if err != nil {
		return CopySummary{}, fmt.Errorf("read list %s: %w", listPath, err)
	}

	queue := make([]pool.Task, 0, len(paths))
	for _, src := range paths {
		if info, statErr := os.Stat(src); statErr == nil && info.IsDir() {
			continue // filtered: directory (spec invariant 5)
		}

		dest := mirrorPath(destDir, src)
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return CopySummary{}, fmt.Errorf("create destination dir for %s: %w", src, err)
		}
		queue = append(queue, pool.Task{Kind: pool.TaskCopy, Copy: task.CopyTask{Source: src, Dest: dest}})
	}

	manifestPath, err := manifest.Truncate(destDir)
	if err != nil {
		return CopySummary{}, fmt.Errorf("truncate manifest: %w", err)
	}

	rs := newRunState(queue, opts, nil)
	rs.run()

	summary := CopySummary{
		Total:       rs.totalFiles,
		Succeeded:   len(rs.hashLines),
		Failed:      len(rs.errored),
		BytesCopied: rs.bytesMoved,
	}
	if opts.Logger != nil {
		opts.Logger.RunFinished("copy", summary.Total, summary.Succeeded, summary.Failed, summary.BytesCopied)
	}

	if err := manifest.AppendLines(manifestPath, rs.hashLines); err != nil {
		return summary, fmt.Errorf("write manifest: %w", err)
	}

	if opts.SaveLists {
		if err := manifest.WritePathList(filepath.Join(destDir, "copied.txt"), rs.succeeded); err != nil {
			return summary, fmt.Errorf("write copied.txt: %w", err)
		}
		if err := manifest.WritePathList(filepath.Join(destDir, "errored.txt"), rs.errored); err != nil {
			return summary, fmt.Errorf("write errored.txt: %w", err)
		}
	}

	return summary, nil
}

// VerifyFromManifest re-hashes every file listed in manifestPath and
// classifies each entry as matching, mismatched, or unreadable. An empty or
// missing manifest is a hard, synchronous error raised before any worker
// spawns.
func VerifyFromManifest(manifestPath string, opts Options) (task.VerifySummary, error) {
	opts.normalize()

	entries, err := manifest.ParseManifestFile(manifestPath)
	if err != nil {
		return task.VerifySummary{}, fmt.Errorf("read manifest %s: %w", manifestPath, err)
	}
	if len(entries) == 0 {
		return task.VerifySummary{}, fmt.Errorf("manifest %s contains no entries", manifestPath)
	}

	queue := make([]pool.Task, 0, len(entries))
	for _, e := range entries {
		queue = append(queue, pool.Task{Kind: pool.TaskVerify, Verify: e})
	}

	rs := newRunState(queue, opts, opts.Cache)
	rs.run()

	summary := rs.verifySummary()
	if opts.Logger != nil {
		opts.Logger.RunFinished("verify", summary.Total, summary.OKCount, summary.ErrorCount+summary.MismatchCount, summary.BytesVerified)
	}

	return summary, nil
}

// mirrorPath computes a copy-run destination: the leading "/" of an
// absolute source path is stripped before joining onto destDir.
func mirrorPath(destDir, src string) string {
	rel := strings.TrimPrefix(src, "/")
	return filepath.Join(destDir, rel)
}
