package supervisor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kjhall/streamcopy/internal/cache"
	"github.com/kjhall/streamcopy/internal/manifest"
	"github.com/kjhall/streamcopy/internal/task"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
}

// TestCopyFromListMirrorsRelativePath covers scenario S1: a relative source
// path mirrors under destDir unchanged.
func TestCopyFromListMirrorsRelativePath(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "a.txt")
	writeFile(t, src, "hello\n")
	t.Chdir(root)

	listPath := filepath.Join(root, "list.txt")
	writeFile(t, listPath, filepath.Base(src)+"\n")

	destDir := filepath.Join(root, "out")
	summary, err := CopyFromList(listPath, destDir, Options{Workers: 2})
	if err != nil {
		t.Fatal(err)
	}
	if summary.Total != 1 || summary.Succeeded != 1 || summary.Failed != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	gotDest := filepath.Join(destDir, filepath.Base(src))
	data, err := os.ReadFile(gotDest)
	if err != nil {
		t.Fatalf("expected mirrored file at %s: %v", gotDest, err)
	}
	if string(data) != "hello\n" {
		t.Errorf("mirrored content = %q", data)
	}

	entries, err := manifest.ParseManifestFile(filepath.Join(destDir, manifest.FileName))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].ExpectedDigest != "f572d396fae9206628714fb2ce00f72e94f2258f" {
		t.Fatalf("unexpected manifest entries: %+v", entries)
	}
}

// TestCopyFromListStripsLeadingSlash covers scenario S3: an absolute source
// path has its leading "/" stripped before joining onto destDir.
func TestCopyFromListStripsLeadingSlash(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "tmp", "src", "c.dat")
	writeFile(t, src, "abc")

	listPath := filepath.Join(root, "list.txt")
	writeFile(t, listPath, src+"\n")

	destDir := filepath.Join(root, "out")
	if _, err := CopyFromList(listPath, destDir, Options{Workers: 1}); err != nil {
		t.Fatal(err)
	}

	want := filepath.Join(destDir, trimLeadingSlash(src))
	if _, err := os.Stat(want); err != nil {
		t.Errorf("expected mirrored file at %s: %v", want, err)
	}
}

func trimLeadingSlash(p string) string {
	for len(p) > 0 && p[0] == filepath.Separator {
		p = p[1:]
	}
	return p
}

// TestCopyFromListSkipsDirectoryEntries covers invariant 5: a directory
// entry in the list is filtered out, not dispatched as a failing task.
func TestCopyFromListSkipsDirectoryEntries(t *testing.T) {
	root := t.TempDir()
	dirEntry := filepath.Join(root, "adir")
	if err := os.Mkdir(dirEntry, 0o755); err != nil {
		t.Fatal(err)
	}
	fileEntry := filepath.Join(root, "a.txt")
	writeFile(t, fileEntry, "x")

	listPath := filepath.Join(root, "list.txt")
	writeFile(t, listPath, dirEntry+"\n"+fileEntry+"\n")

	destDir := filepath.Join(root, "out")
	summary, err := CopyFromList(listPath, destDir, Options{Workers: 1})
	if err != nil {
		t.Fatal(err)
	}
	if summary.Total != 1 {
		t.Errorf("expected directory entry filtered, total = %d, want 1", summary.Total)
	}
}

// TestCopyFromListMissingSourceIsPerTaskFailure covers the error-isolation
// design: a missing file is enqueued and fails as a per-task I/O error, it
// does not abort the run or get silently filtered.
func TestCopyFromListMissingSourceIsPerTaskFailure(t *testing.T) {
	root := t.TempDir()
	missing := filepath.Join(root, "missing.txt")
	present := filepath.Join(root, "present.txt")
	writeFile(t, present, "ok")

	listPath := filepath.Join(root, "list.txt")
	writeFile(t, listPath, missing+"\n"+present+"\n")

	destDir := filepath.Join(root, "out")
	summary, err := CopyFromList(listPath, destDir, Options{Workers: 2})
	if err != nil {
		t.Fatal(err)
	}
	if summary.Total != 2 || summary.Succeeded != 1 || summary.Failed != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

// TestCopyThenVerifyRoundTrip covers S2: copying a file and then verifying
// the manifest it produced reports a clean match.
func TestCopyThenVerifyRoundTrip(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "b.dat")
	writeFile(t, src, string([]byte{0, 1, 2, 3}))

	listPath := filepath.Join(root, "list.txt")
	writeFile(t, listPath, src+"\n")

	destDir := filepath.Join(root, "out")
	if _, err := CopyFromList(listPath, destDir, Options{Workers: 1}); err != nil {
		t.Fatal(err)
	}

	summary, err := VerifyFromManifest(filepath.Join(destDir, manifest.FileName), Options{Workers: 1})
	if err != nil {
		t.Fatal(err)
	}
	if summary.Total != 1 || summary.OKCount != 1 || summary.MismatchCount != 0 || summary.ErrorCount != 0 {
		t.Fatalf("unexpected verify summary: %+v", summary)
	}
}

// TestVerifyFromManifestDetectsMismatch covers S6-adjacent behavior: a
// manifest entry whose on-disk content no longer matches its digest is
// reported as a mismatch, not an error.
func TestVerifyFromManifestDetectsMismatch(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "out", "a.txt")
	writeFile(t, path, "hello\n")

	manifestPath, err := manifest.Truncate(filepath.Join(root, "out"))
	if err != nil {
		t.Fatal(err)
	}
	if err := manifest.AppendLines(manifestPath, []task.HashLine{
		{Digest: "0000000000000000000000000000000000000", Path: path},
	}); err != nil {
		t.Fatal(err)
	}

	summary, err := VerifyFromManifest(manifestPath, Options{Workers: 1})
	if err != nil {
		t.Fatal(err)
	}
	if summary.MismatchCount != 1 || summary.OKCount != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(summary.MismatchedPaths) != 1 || summary.MismatchedPaths[0] != path {
		t.Errorf("unexpected mismatched paths: %+v", summary.MismatchedPaths)
	}
}

// TestVerifyFromManifestMissingTargetIsError covers S6: a manifest entry
// whose target file is gone is reported as an error, not a mismatch.
func TestVerifyFromManifestMissingTargetIsError(t *testing.T) {
	root := t.TempDir()
	missing := filepath.Join(root, "gone.txt")

	manifestPath, err := manifest.Truncate(root)
	if err != nil {
		t.Fatal(err)
	}
	if err := manifest.AppendLines(manifestPath, []task.HashLine{
		{Digest: "f572d396fae9206628714fb2ce00f72e94f2258f", Path: missing},
	}); err != nil {
		t.Fatal(err)
	}

	summary, err := VerifyFromManifest(manifestPath, Options{Workers: 1})
	if err != nil {
		t.Fatal(err)
	}
	if summary.ErrorCount != 1 || len(summary.ErrorPaths) != 1 || summary.ErrorPaths[0] != missing {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

// TestVerifyFromManifestEmptyIsHardError covers §7: zero entries is a
// synchronous error raised before any worker spawns.
func TestVerifyFromManifestEmptyIsHardError(t *testing.T) {
	root := t.TempDir()
	manifestPath, err := manifest.Truncate(root)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := VerifyFromManifest(manifestPath, Options{Workers: 1}); err == nil {
		t.Fatal("expected an error for an empty manifest")
	}
}

// TestCopyFromListCancelBeforeDispatchWritesNothing covers S5: a token
// cancelled before CopyFromList starts dispatch produces an empty manifest
// and no copied files.
func TestCopyFromListCancelBeforeDispatchWritesNothing(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "a.txt")
	writeFile(t, src, "hello\n")

	listPath := filepath.Join(root, "list.txt")
	writeFile(t, listPath, src+"\n")

	cancel := task.NewCancelToken()
	cancel.Cancel()

	destDir := filepath.Join(root, "out")
	summary, err := CopyFromList(listPath, destDir, Options{Workers: 2, Cancel: cancel})
	if err != nil {
		t.Fatal(err)
	}
	if summary.Succeeded != 0 {
		t.Fatalf("expected no files copied, got %+v", summary)
	}

	entries, err := manifest.ParseManifestFile(filepath.Join(destDir, manifest.FileName))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty manifest, got %d entries", len(entries))
	}
}

// TestCopyFromListProgressEventsAreMonotonic covers the monotonic
// completed_files invariant across a multi-file run.
func TestCopyFromListProgressEventsAreMonotonic(t *testing.T) {
	root := t.TempDir()
	var srcs []string
	for i := 0; i < 5; i++ {
		p := filepath.Join(root, "f", string(rune('a'+i))+".txt")
		writeFile(t, p, "data")
		srcs = append(srcs, p)
	}

	listPath := filepath.Join(root, "list.txt")
	var listContents string
	for _, s := range srcs {
		listContents += s + "\n"
	}
	writeFile(t, listPath, listContents)

	var lastCompleted int
	onProgress := func(ev task.ProgressEvent) {
		if ev.Kind != task.EventOverall {
			return
		}
		if ev.CompletedFiles < lastCompleted {
			t.Errorf("completed_files went backwards: %d -> %d", lastCompleted, ev.CompletedFiles)
		}
		lastCompleted = ev.CompletedFiles
	}

	destDir := filepath.Join(root, "out")
	summary, err := CopyFromList(listPath, destDir, Options{Workers: 3, OnProgress: onProgress})
	if err != nil {
		t.Fatal(err)
	}
	if lastCompleted != summary.Total {
		t.Errorf("final completed_files = %d, want %d", lastCompleted, summary.Total)
	}
}

// TestVerifyFromManifestUsesDigestCache covers SPEC_FULL S7: a second
// verify-run backed by the digest cache persisted by the first, against an
// unchanged file, still reports the same clean summary.
func TestVerifyFromManifestUsesDigestCache(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "out", "a.txt")
	writeFile(t, path, "hello\n")

	manifestPath, err := manifest.Truncate(filepath.Join(root, "out"))
	if err != nil {
		t.Fatal(err)
	}
	digest := "f572d396fae9206628714fb2ce00f72e94f2258f"
	if err := manifest.AppendLines(manifestPath, []task.HashLine{{Digest: digest, Path: path}}); err != nil {
		t.Fatal(err)
	}

	digestCache, err := cache.Open(filepath.Join(root, "cache.db"))
	if err != nil {
		t.Fatal(err)
	}

	// First run: cold cache, reads the file and populates it.
	if _, err := VerifyFromManifest(manifestPath, Options{Workers: 1, Cache: digestCache}); err != nil {
		t.Fatal(err)
	}
	if err := digestCache.Close(); err != nil {
		t.Fatal(err)
	}

	// Second run against the persisted cache: same (path, size, mtime).
	digestCache2, err := cache.Open(filepath.Join(root, "cache.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = digestCache2.Close() }()

	summary, err := VerifyFromManifest(manifestPath, Options{Workers: 1, Cache: digestCache2})
	if err != nil {
		t.Fatal(err)
	}
	if summary.OKCount != 1 || summary.MismatchCount != 0 || summary.ErrorCount != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}
