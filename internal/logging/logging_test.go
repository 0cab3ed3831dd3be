package logging

import "testing"

func TestNilLoggerMethodsAreNoops(t *testing.T) {
	var l *Logger
	l.TaskCopied("out/a.txt", "f572d396fae9206628714fb2ce00f72e94f2258f", 6)
	l.TaskVerified("out/a.txt", true, false)
	l.TaskError("out/a.txt", errBoom)
	l.RunFinished("copy", 1, 1, 0, 6)
	if err := l.Sync(); err != nil {
		t.Errorf("Sync() on nil Logger = %v, want nil", err)
	}
}

func TestNewNopDoesNotPanic(t *testing.T) {
	l := NewNop()
	l.TaskCopied("out/a.txt", "f572d396fae9206628714fb2ce00f72e94f2258f", 6)
	l.TaskVerified("out/a.txt", false, true)
	l.RunFinished("verify", 2, 1, 1, 12)
}

var errBoom = boomError{}

type boomError struct{}

func (boomError) Error() string { return "boom" }
