// Package task describes the unit of work a peer worker pulls from the
// shared queue: one piece to download and verify.
package task

// Task is an immutable description of one piece to download.
type Task struct {
	Index        int
	PieceLength  int
	ExpectedHash [20]byte
}

// New builds a Task for the given piece index.
func New(index, pieceLength int, expectedHash [20]byte) Task {
	return Task{
		Index:        index,
		PieceLength:  pieceLength,
		ExpectedHash: expectedHash,
	}
}
