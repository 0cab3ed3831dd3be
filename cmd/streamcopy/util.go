package main

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/kjhall/streamcopy/internal/task"
)

// notifyInterrupt returns a CancelToken that trips on the process's first
// SIGINT. A second signal falls through to the default Go runtime
// behavior (immediate exit) via signal.Stop.
func notifyInterrupt() *task.CancelToken {
	tok := task.NewCancelToken()
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		<-sig
		signal.Stop(sig)
		tok.Cancel()
	}()
	return tok
}

// progressBar wraps schollz/progressbar/v3 with enabled/disabled handling
// so a --no-progress flag can swap in a no-op without branching at call
// sites.
type progressBar struct {
	bar *progressbar.ProgressBar
}

func newProgressBar(enabled bool, total int) *progressBar {
	if !enabled || total <= 0 {
		return &progressBar{}
	}
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionSetWidth(40),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionShowCount(),
	)
	return &progressBar{bar: bar}
}

// onEvent adapts a task.ProgressEvent stream to the progress bar's single
// "set completed count" API; only Overall events move the bar.
func (p *progressBar) onEvent(ev task.ProgressEvent) {
	if p.bar == nil || ev.Kind != task.EventOverall {
		return
	}
	_ = p.bar.Set(ev.CompletedFiles)
}

func (p *progressBar) finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}

func printf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
}
