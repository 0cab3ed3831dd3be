package supervisor

import (
	"github.com/kjhall/streamcopy/internal/logging"
	"github.com/kjhall/streamcopy/internal/pool"
	"github.com/kjhall/streamcopy/internal/streamer"
	"github.com/kjhall/streamcopy/internal/task"
)

// runState holds everything one dispatch loop needs: the queue, the set of
// idle workers, in-flight counters, and the accumulators each run kind
// (copy vs verify) feeds from the same result stream.
type runState struct {
	queue      []pool.Task
	idx        int
	idle       []*pool.Worker
	active     int
	shutDown   bool
	completed  int
	totalFiles int
	bytesMoved int64

	p          *pool.Pool
	results    <-chan pool.Result
	cancel     *task.CancelToken
	onProgress func(task.ProgressEvent)
	logger     *logging.Logger

	// copy-run accumulators
	hashLines []task.HashLine
	succeeded []string
	errored   []string

	// verify-run accumulators
	okCount         int
	mismatchCount   int
	errorCount      int
	mismatchedPaths []string
	errorPaths      []string
}

// newRunState builds the run's bookkeeping and spawns its worker pool.
// cache is nil for copy-runs; for verify-runs it is opts.Cache.
func newRunState(queue []pool.Task, opts Options, cache streamer.DigestCache) *runState {
	p := pool.New(opts.Workers, cache)
	return &runState{
		queue:      queue,
		totalFiles: len(queue),
		p:          p,
		results:    p.Results(),
		cancel:     opts.Cancel,
		onProgress: opts.OnProgress,
		logger:     opts.Logger,
	}
}

func (rs *runState) emit(ev task.ProgressEvent) {
	if rs.onProgress != nil {
		rs.onProgress(ev)
	}
}

func overallEvent(completed, total int) task.ProgressEvent {
	return task.ProgressEvent{Kind: task.EventOverall, CompletedFiles: completed, TotalFiles: total}
}

func (rs *runState) cancelled() bool {
	return rs.cancel != nil && rs.cancel.Cancelled()
}

// run drives the dispatch loop to completion (or cancellation). It always
// emits the initial Overall{0,total} event, even when total is 0.
func (rs *runState) run() {
	rs.emit(overallEvent(0, rs.totalFiles))
	if rs.totalFiles == 0 {
		return
	}
	if rs.cancelled() {
		// Tripped before any dispatch: return promptly, writing nothing.
		return
	}

	cancelCh := rs.cancel.Done() // nil if rs.cancel is nil; a nil channel never fires in select

	for {
		select {
		case <-cancelCh:
			rs.beginShutdown()
			rs.drainBuffered(rs.results)
			return
		case r := <-rs.results:
			rs.handleResult(r)
			rs.tryDispatch()
			if rs.shutDown {
				// Only tryDispatch's normal-completion path sets shutDown
				// from inside this branch (the cancellation path returns
				// directly above), so active == 0 here is guaranteed.
				return
			}
		}
	}
}

// tryDispatch hands queued tasks to idle workers while not cancelled and
// not already shutting down, then checks for run completion.
func (rs *runState) tryDispatch() {
	if rs.shutDown {
		return
	}
	for !rs.cancelled() && rs.idx < len(rs.queue) && len(rs.idle) > 0 {
		w := rs.idle[len(rs.idle)-1]
		rs.idle = rs.idle[:len(rs.idle)-1]
		rs.p.Dispatch(w, rs.queue[rs.idx])
		rs.idx++
		rs.active++
	}
	if rs.idx >= len(rs.queue) && rs.active == 0 {
		rs.beginShutdown()
	}
}

// beginShutdown tears down the whole pool at once. Workers mid-task are not
// waited on; ShutdownAll closes every worker's inbox directly rather than
// requiring each to be observed idle first, so a worker whose Ready is still
// unread (queue ran out before it was ever dispatched a task) is reached
// just the same as one already sitting in rs.idle.
func (rs *runState) beginShutdown() {
	if rs.shutDown {
		return
	}
	rs.shutDown = true
	rs.idle = nil
	rs.p.ShutdownAll()
}

// drainBuffered scoops any result messages already sitting in the channel
// buffer, to preserve counters, without waiting for more to arrive.
func (rs *runState) drainBuffered(results <-chan pool.Result) {
	for {
		select {
		case r := <-results:
			rs.handleResult(r)
		default:
			return
		}
	}
}

func (rs *runState) handleResult(r pool.Result) {
	switch r.Kind {
	case pool.ResultReady:
		// Once shutDown, ShutdownAll has already closed every worker's
		// inbox, so a Ready that was already in flight needs no response.
		if !rs.shutDown {
			rs.idle = append(rs.idle, r.Worker)
		}

	case pool.ResultProgress:
		rs.emit(task.ProgressEvent{
			Kind:       task.EventFileProgress,
			Path:       r.Path,
			BytesSoFar: r.BytesSoFar,
			BytesTotal: r.BytesTotal,
		})

	case pool.ResultHash:
		rs.hashLines = append(rs.hashLines, r.HashLine)
		rs.succeeded = append(rs.succeeded, r.HashLine.Path)
		rs.bytesMoved += r.Bytes
		if rs.logger != nil {
			rs.logger.TaskCopied(r.HashLine.Path, r.HashLine.Digest, r.Bytes)
		}

	case pool.ResultVerified:
		rs.bytesMoved += r.Bytes
		if r.Matched {
			rs.okCount++
		} else {
			rs.mismatchCount++
			rs.mismatchedPaths = append(rs.mismatchedPaths, r.Path)
		}
		if rs.logger != nil {
			rs.logger.TaskVerified(r.Path, r.Matched, r.FromCache)
		}

	case pool.ResultError:
		rs.errorCount++
		rs.errorPaths = append(rs.errorPaths, r.Path)
		rs.errored = append(rs.errored, r.Path)
		if rs.logger != nil {
			rs.logger.TaskError(r.Path, r.Err)
		}

	case pool.ResultDone:
		rs.completed++
		rs.active--
		rs.idle = append(rs.idle, r.Worker)
		rs.emit(task.ProgressEvent{Kind: task.EventFileDone, Path: r.Path, CompletedFiles: rs.completed, TotalFiles: rs.totalFiles})
		rs.emit(overallEvent(rs.completed, rs.totalFiles))
	}
}

func (rs *runState) verifySummary() task.VerifySummary {
	return task.VerifySummary{
		Total:           rs.totalFiles,
		OKCount:         rs.okCount,
		MismatchCount:   rs.mismatchCount,
		ErrorCount:      rs.errorCount,
		MismatchedPaths: rs.mismatchedPaths,
		ErrorPaths:      rs.errorPaths,
		BytesVerified:   rs.bytesMoved,
	}
}
