package app

import (
	"errors"

	"shopkeep-go/internal/session"
	"shopkeep-go/internal/sk"
)

// Operation tracks a CLI run that is recorded in the operation history.
// Operations are created in memory with ID=0; only the commands that talk
// to the remote store persist them.
type Operation struct {
	ID      int64
	Name    string
	Account string
	Status  string // "success" or "failed"
	Detail  string
}

// NewOperation creates a new in-memory operation.
func NewOperation(name string) *Operation {
	return &Operation{
		Name:   name,
		Status: session.StatusSuccess,
	}
}

// Persisted returns true if this operation has been saved to the history.
func (op *Operation) Persisted() bool {
	return op.ID != 0
}

// Fail marks the operation failed with err's message.
func (op *Operation) Fail(err error) {
	op.Status = session.StatusFailed
	op.Detail = err.Error()
}

// RecordOutcome sets status and detail from an orchestrator outcome.
func (op *Operation) RecordOutcome(out sk.Outcome) {
	switch out.Kind {
	case sk.OutcomeFailure:
		err := out.Err
		if err == nil {
			err = errors.New("unknown failure")
		}
		op.Fail(err)
	default:
		op.Status = session.StatusSuccess
		op.Detail = out.Kind.String()
	}
}
