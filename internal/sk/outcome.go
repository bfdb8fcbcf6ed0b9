package sk

// OutcomeKind classifies the result of a backup or restore invocation.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota + 1
	OutcomeNotFound
	OutcomeNeedsUserAction
	OutcomeFailure
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeNeedsUserAction:
		return "needs_user_action"
	case OutcomeFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Outcome is what a backup or restore invocation returns to its caller.
type Outcome struct {
	Kind      OutcomeKind
	Operation Operation

	// Restored is true when a restore overwrote the local database.
	Restored bool

	// Resolution is set for OutcomeNeedsUserAction.
	Resolution *ResolutionHandle

	// Err is set for OutcomeFailure.
	Err error
}

// OK reports whether the outcome is a success or a neutral NotFound.
func (o Outcome) OK() bool {
	return o.Kind == OutcomeSuccess || o.Kind == OutcomeNotFound
}
