// Package digest is a chunked SHA-1 accumulator. It does no I/O and no
// threading — it exists purely so the Streamer can feed it bytes
// incrementally across reads, in lockstep with the bytes being written to a
// destination file.
package digest

import (
	"crypto/sha1" //nolint:gosec // sha1sum-compatible manifest format, not a security boundary
	"encoding/hex"
	"hash"
)

// Hasher accumulates a SHA-1 digest over a byte stream presented in chunks.
type Hasher struct {
	h hash.Hash
}

// New returns a fresh Hasher.
func New() *Hasher {
	return &Hasher{h: sha1.New()} //nolint:gosec
}

// Update feeds bytes into the running digest. A zero-length chunk is a no-op.
func (h *Hasher) Update(p []byte) {
	if len(p) == 0 {
		return
	}
	h.h.Write(p) // hash.Hash.Write never returns an error
}

// Finalize returns the 40-character lowercase hex digest of everything fed
// to Update so far.
func (h *Hasher) Finalize() string {
	return hex.EncodeToString(h.h.Sum(nil))
}

// Reset clears the accumulator so the Hasher can be reused for a new stream.
func (h *Hasher) Reset() {
	h.h.Reset()
}
