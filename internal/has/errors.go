package has

import "errors"

// Sentinel errors surfaced by the page assembler. All of them are bucket
// local: the caller reinitializes the affected bucket and continues the
// pipeline, per the "never crash on data defects" policy.
var (
	// ErrPageTimeout is raised when an incoming page's timestamp exceeds
	// TimeLimit past the bucket's first-page timestamp.
	ErrPageTimeout = errors.New("has: page exceeds the 20s time limit for its message")

	// ErrDuplicatePage is raised when a page ID already recorded in a
	// bucket arrives again carrying different payload bytes.
	ErrDuplicatePage = errors.New("has: received a new version of an existing page id with different data")

	// ErrSingularSubmatrix is raised when the generator submatrix selected
	// by the received page IDs has no inverse over GF(256), signalling a
	// protocol violation.
	ErrSingularSubmatrix = errors.New("has: generator submatrix for received pages is singular")
)
