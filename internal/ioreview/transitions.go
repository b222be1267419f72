package ioreview

import "github.com/openherbaria/herbdb/pkg/schema"

// validTransitions is the review state machine. Terminal states have
// no outgoing edges here; the only way out of APPROVED or REJECTED is
// the explicit Reopen operation.
var validTransitions = map[string][]string{
	schema.ReviewPending:  {schema.ReviewInReview},
	schema.ReviewInReview: {schema.ReviewApproved, schema.ReviewRejected},
}

// canTransition reports whether a status change is legal through the
// normal review flow.
func canTransition(from, to string) bool {
	for _, v := range validTransitions[from] {
		if v == to {
			return true
		}
	}
	return false
}

// isTerminal reports whether a status only leaves via Reopen.
func isTerminal(status string) bool {
	return status == schema.ReviewApproved ||
		status == schema.ReviewRejected
}

func isKnownStatus(status string) bool {
	switch status {
	case schema.ReviewPending, schema.ReviewInReview,
		schema.ReviewApproved, schema.ReviewRejected:
		return true
	}
	return false
}
