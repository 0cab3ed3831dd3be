package digest

import "testing"

func TestHasherBasic(t *testing.T) {
	h := New()
	h.Update([]byte("hello\n"))
	got := h.Finalize()
	want := "f572d396fae9206628714fb2ce00f72e94f2258f"
	if got != want {
		t.Errorf("Finalize() = %q, want %q", got, want)
	}
}

func TestHasherZeroLengthChunkIsNoop(t *testing.T) {
	h := New()
	h.Update([]byte("hello\n"))
	h.Update(nil)
	h.Update([]byte{})
	got := h.Finalize()
	want := "f572d396fae9206628714fb2ce00f72e94f2258f"
	if got != want {
		t.Errorf("Finalize() = %q, want %q", got, want)
	}
}

func TestHasherChunked(t *testing.T) {
	h := New()
	for _, b := range []byte("hello\n") {
		h.Update([]byte{b})
	}
	got := h.Finalize()
	want := "f572d396fae9206628714fb2ce00f72e94f2258f"
	if got != want {
		t.Errorf("Finalize() = %q, want %q", got, want)
	}
}

func TestHasherReset(t *testing.T) {
	h := New()
	h.Update([]byte("garbage"))
	h.Reset()
	h.Update([]byte("hello\n"))
	got := h.Finalize()
	want := "f572d396fae9206628714fb2ce00f72e94f2258f"
	if got != want {
		t.Errorf("Finalize() after Reset() = %q, want %q", got, want)
	}
}

func TestHasherEmptyInput(t *testing.T) {
	h := New()
	got := h.Finalize()
	want := "da39a3ee5e6b4b0d3255bfef95601890afd80709"
	if got != want {
		t.Errorf("Finalize() on empty input = %q, want %q", got, want)
	}
}
