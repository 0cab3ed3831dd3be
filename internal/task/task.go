// Package task defines the value types that flow through the copy/verify
// engine: immutable task descriptions, the manifest's hash-line format, the
// progress-event tagged union, and the run-level cancellation flag.
package task

import "sync"

// CopyTask pairs a source file with its pre-computed destination. Immutable
// once enqueued; the Supervisor has already resolved Dest before dispatch so
// workers never do path math.
type CopyTask struct {
	Source string
	Dest   string
}

// VerifyTask pairs a file path with the digest it is expected to match.
type VerifyTask struct {
	Path           string
	ExpectedDigest string
}

// HashLine is one manifest entry: a lowercase hex digest paired with the
// destination path it was computed over.
type HashLine struct {
	Digest string
	Path   string
}

// Render formats the line exactly as "<digest>  <path>\n" — two ASCII spaces,
// one newline terminator, sha1sum-compatible.
func (h HashLine) Render() string {
	return h.Digest + "  " + h.Path + "\n"
}

// EventKind tags which fields of a ProgressEvent are meaningful.
type EventKind int

const (
	// EventFileProgress reports bytes streamed so far for one file.
	EventFileProgress EventKind = iota
	// EventFileDone reports exactly one terminal event per task, success or error.
	EventFileDone
	// EventOverall reports the run-wide completed/total counters.
	EventOverall
)

// ProgressEvent is a tagged union: only the fields relevant to Kind are set.
type ProgressEvent struct {
	Kind EventKind

	// Path is set for EventFileProgress and EventFileDone.
	Path string

	// BytesSoFar/BytesTotal are set for EventFileProgress only.
	BytesSoFar int64
	BytesTotal int64

	// CompletedFiles/TotalFiles are set for EventFileDone and EventOverall.
	CompletedFiles int
	TotalFiles     int
}

// VerifySummary aggregates the outcome of a verify-run, including partial
// results from a cancelled run.
type VerifySummary struct {
	Total           int
	OKCount         int
	MismatchCount   int
	ErrorCount      int
	MismatchedPaths []string
	ErrorPaths      []string
	BytesVerified   int64
}

// CancelToken is a one-shot cancellation flag. Once tripped it never resets.
// A nil *CancelToken is valid and is treated as "never cancelled" throughout
// the engine.
type CancelToken struct {
	once sync.Once
	ch   chan struct{}
}

// NewCancelToken returns a fresh, untripped token.
func NewCancelToken() *CancelToken {
	return &CancelToken{ch: make(chan struct{})}
}

// Cancel trips the token. Safe to call more than once or from multiple
// goroutines; only the first call has effect.
func (c *CancelToken) Cancel() {
	if c == nil {
		return
	}
	c.once.Do(func() { close(c.ch) })
}

// Cancelled reports whether the token has been tripped.
func (c *CancelToken) Cancelled() bool {
	if c == nil {
		return false
	}
	select {
	case <-c.ch:
		return true
	default:
		return false
	}
}

// Done returns a channel that is closed once the token is tripped. A nil
// receiver returns a nil channel, which blocks forever in a select — the
// correct behavior for "never cancelled".
func (c *CancelToken) Done() <-chan struct{} {
	if c == nil {
		return nil
	}
	return c.ch
}
