package task

import "testing"

func TestHashLineRender(t *testing.T) {
	h := HashLine{Digest: "f572d396fae9206628714fb2ce00f72e94f2258f", Path: "out/a.txt"}
	want := "f572d396fae9206628714fb2ce00f72e94f2258f  out/a.txt\n"
	if got := h.Render(); got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
}

func TestCancelTokenOnce(t *testing.T) {
	c := NewCancelToken()
	if c.Cancelled() {
		t.Fatal("fresh token reports cancelled")
	}
	c.Cancel()
	c.Cancel() // must not panic on double-cancel
	if !c.Cancelled() {
		t.Fatal("token did not report cancelled after Cancel()")
	}
	select {
	case <-c.Done():
	default:
		t.Fatal("Done() channel not closed after Cancel()")
	}
}

func TestNilCancelTokenNeverCancelled(t *testing.T) {
	var c *CancelToken
	if c.Cancelled() {
		t.Fatal("nil token reports cancelled")
	}
	c.Cancel() // must not panic
	if c.Done() != nil {
		t.Fatal("nil token's Done() must be nil")
	}
}
