package blocksync

import (
	"errors"
	"fmt"

	"github.com/mosaicnetworks/rollsync/src/types"
)

// ConsistencyError is raised when a peer sends a block for a height the store
// already holds under a different hash. It points at a fork or corrupted
// data and is never reconciled automatically.
type ConsistencyError struct {
	Number   uint64
	Stored   types.Hash
	Received types.Hash
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("block %d: stored hash %s, received %s", e.Number, e.Stored, e.Received)
}

// IsConsistencyError reports whether err is or wraps a ConsistencyError.
func IsConsistencyError(err error) bool {
	var ce *ConsistencyError
	return errors.As(err, &ce)
}
