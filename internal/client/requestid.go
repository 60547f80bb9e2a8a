package client

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// HeaderRequestID carries the per-send correlation id.
const HeaderRequestID = "X-Request-ID"

var (
	requestIDMu      sync.Mutex
	requestIDEntropy = ulid.Monotonic(rand.Reader, 0)
)

// newRequestID returns a ULID: a millisecond timestamp followed by a random
// suffix, sortable by creation time.
func newRequestID() string {
	requestIDMu.Lock()
	defer requestIDMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now().UTC()), requestIDEntropy).String()
}
