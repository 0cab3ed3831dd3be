// Package pool implements the fixed-size worker pool: N long-lived workers
// each consuming its own inbox, all posting to a single shared result
// channel owned by the caller (the Supervisor). The protocol in both
// directions is a tagged union, per the design note that a loosely-typed
// message map invites stray fields and missed cases.
package pool

import (
	"github.com/kjhall/streamcopy/internal/streamer"
	"github.com/kjhall/streamcopy/internal/task"
)

// TaskKind tags which field of Task is populated.
type TaskKind int

const (
	TaskCopy TaskKind = iota
	TaskVerify
)

// Task is one unit of work dispatched to a worker.
type Task struct {
	Kind   TaskKind
	Copy   task.CopyTask
	Verify task.VerifyTask
}

// cmdKind tags the Supervisor->Worker message.
type cmdKind int

const (
	cmdTask cmdKind = iota
	cmdShutdown
)

type workerCmd struct {
	kind cmdKind
	task Task
}

// ResultKind tags the Worker->Supervisor message.
type ResultKind int

const (
	ResultReady ResultKind = iota
	ResultProgress
	ResultHash
	ResultVerified
	ResultError
	ResultDone
)

// Result is one Worker->Supervisor message. Only the fields relevant to Kind
// are meaningful.
type Result struct {
	Kind   ResultKind
	Worker *Worker

	// Path identifies the subject of Progress, Hash, Verified, Error, and
	// Done messages (the task's source/path, not the destination).
	Path string

	// BytesSoFar/BytesTotal are set for Progress only.
	BytesSoFar int64
	BytesTotal int64

	// HashLine is set for ResultHash (copy success): the manifest entry to
	// accumulate.
	HashLine task.HashLine

	// Digest/Matched/FromCache are set for ResultVerified.
	Digest    string
	Matched   bool
	FromCache bool

	// Bytes is the total bytes streamed for this task; set on Hash and
	// Verified.
	Bytes int64

	// Err is set for ResultError.
	Err error
}

// Worker is an opaque handle to one pool worker's inbox. The Supervisor
// never reads from a Worker directly — only the Pool's Dispatch/Shutdown
// methods write to it.
type Worker struct {
	inbox chan workerCmd
}

// Pool is a fixed-size set of long-lived workers that share one result
// channel. Workers are stateless across tasks and share no mutable state
// with each other — all aggregation happens in the Supervisor that reads
// Results().
type Pool struct {
	workers []*Worker
	results chan Result
}

// New spawns n workers and returns a Pool ready to dispatch work. cache is
// passed through to every VerifyFile call a worker makes; it may be nil.
func New(n int, cache streamer.DigestCache) *Pool {
	if n < 1 {
		n = 1
	}
	p := &Pool{results: make(chan Result, n*4)}
	for i := 0; i < n; i++ {
		w := &Worker{inbox: make(chan workerCmd)}
		p.workers = append(p.workers, w)
		go w.run(p.results, cache)
	}
	return p
}

// Results returns the pool's shared result channel.
func (p *Pool) Results() <-chan Result {
	return p.results
}

// Dispatch sends one task to a worker that has already reported itself
// idle via ResultReady or ResultDone. The caller must not call Dispatch on
// a worker it has not observed as idle.
func (p *Pool) Dispatch(w *Worker, t Task) {
	w.inbox <- workerCmd{kind: cmdTask, task: t}
}

// Shutdown tells an idle worker to exit its run loop.
func (p *Pool) Shutdown(w *Worker) {
	w.inbox <- workerCmd{kind: cmdShutdown}
}

// ShutdownAll closes every worker's inbox directly, rather than sending a
// cmdShutdown each has to receive. This reaches a worker whose initial Ready
// is still sitting unread in the result buffer (never dispatched a task
// because the queue ran out first) just as surely as one the Supervisor has
// already observed idle: a closed channel ends that worker's `range w.inbox`
// the moment it next reaches it, with no Ready round-trip required. Only
// call this once a run is tearing down for good — neither Dispatch nor
// Shutdown may be called against these workers afterward.
func (p *Pool) ShutdownAll() {
	for _, w := range p.workers {
		close(w.inbox)
	}
}

// run is the worker's entire lifecycle: announce readiness, then loop on
// the inbox until told to shut down.
func (w *Worker) run(results chan<- Result, cache streamer.DigestCache) {
	results <- Result{Kind: ResultReady, Worker: w}
	for cmd := range w.inbox {
		switch cmd.kind {
		case cmdShutdown:
			return
		case cmdTask:
			w.runTask(cmd.task, results, cache)
		}
	}
}

// runTask executes one task, posting zero or more Progress messages,
// zero-or-one Hash/Verified, zero-or-one Error, and exactly one Done — Done
// is posted even after Error.
func (w *Worker) runTask(t Task, results chan<- Result, cache streamer.DigestCache) {
	switch t.Kind {
	case TaskCopy:
		w.runCopy(t.Copy, results)
	case TaskVerify:
		w.runVerify(t.Verify, results, cache)
	}
}

func (w *Worker) runCopy(t task.CopyTask, results chan<- Result) {
	onProgress := func(soFar, total int64) {
		results <- Result{Kind: ResultProgress, Worker: w, Path: t.Source, BytesSoFar: soFar, BytesTotal: total}
	}

	res, err := streamer.CopyFile(t.Source, t.Dest, onProgress)
	if err != nil {
		results <- Result{Kind: ResultError, Worker: w, Path: t.Source, Err: err}
	} else {
		results <- Result{
			Kind:     ResultHash,
			Worker:   w,
			Path:     t.Source,
			HashLine: task.HashLine{Digest: res.Digest, Path: t.Dest},
			Bytes:    res.Bytes,
		}
	}
	results <- Result{Kind: ResultDone, Worker: w, Path: t.Source}
}

func (w *Worker) runVerify(t task.VerifyTask, results chan<- Result, cache streamer.DigestCache) {
	onProgress := func(soFar, total int64) {
		results <- Result{Kind: ResultProgress, Worker: w, Path: t.Path, BytesSoFar: soFar, BytesTotal: total}
	}

	res, err := streamer.VerifyFile(t.Path, t.ExpectedDigest, cache, onProgress)
	if err != nil {
		results <- Result{Kind: ResultError, Worker: w, Path: t.Path, Err: err}
	} else {
		results <- Result{
			Kind:      ResultVerified,
			Worker:    w,
			Path:      t.Path,
			Digest:    res.Digest,
			Matched:   res.Matched,
			FromCache: res.FromCache,
			Bytes:     res.Bytes,
		}
	}
	results <- Result{Kind: ResultDone, Worker: w, Path: t.Path}
}
