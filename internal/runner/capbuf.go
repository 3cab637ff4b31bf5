package runner

import (
	"bytes"
	"sync"
)

// truncationMarker is appended once when a stream exceeds its cap.
const truncationMarker = "...[output truncated]"

// capBuffer collects subprocess output up to a byte cap. Each stream owns
// its own buffer and counter, so stdout and stderr never contend.
type capBuffer struct {
	mu        sync.Mutex
	buf       bytes.Buffer
	max       int
	truncated bool
}

func newCapBuffer(max int) *capBuffer {
	return &capBuffer{max: max}
}

// Write never fails; bytes past the cap are discarded.
func (b *capBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.truncated {
		return len(p), nil
	}
	remain := b.max - b.buf.Len()
	if len(p) <= remain {
		b.buf.Write(p)
		return len(p), nil
	}
	b.buf.Write(p[:remain])
	b.truncated = true
	return len(p), nil
}

func (b *capBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.truncated {
		return b.buf.String() + truncationMarker
	}
	return b.buf.String()
}

func (b *capBuffer) Truncated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.truncated
}
