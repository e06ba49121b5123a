package domain

// ProgressEvent is an immutable snapshot of the blockchain sync state,
// replaced on every poll of the blockchain operator.
type ProgressEvent struct {
	CurrentBlock uint64
	HighestBlock uint64
	Synchronized bool
}
