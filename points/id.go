package points

import (
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	idEntropy   = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	idEntropyMu sync.Mutex
)

// NewID returns a lexically sortable unique identifier.
func NewID() string {
	idEntropyMu.Lock()
	defer idEntropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), idEntropy).String()
}
