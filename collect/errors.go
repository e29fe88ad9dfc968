package collect

import "fmt"

// BufferParityError reports that the content and marker channels disagreed
// on how many entries they observed, even after the drain was retried. The
// panel was caught in an intermediate render state; this is a failure, not
// the end of the data.
type BufferParityError struct {
	Content  int    // fragments drained so far in the cycle
	Markers  int    // markers drained so far in the cycle
	Drained  [2]int // fragments and markers of the last attempt alone
	Attempts int
	Cycle    int
}

func (e *BufferParityError) Error() string {
	return fmt.Sprintf("collect: buffer parity: %d fragments vs %d markers after %d drain attempts, last drain %d vs %d (cycle %d)",
		e.Content, e.Markers, e.Attempts, e.Drained[0], e.Drained[1], e.Cycle)
}
