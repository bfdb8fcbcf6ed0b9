package sk

import (
	"context"
	"errors"
	"fmt"
)

// Orchestrator drives the backup and restore state machine:
//
//	Idle -> CheckingAuth -> CheckingPermission -> {AwaitingUserResolution | Transferring} -> {Success | NotFound | Failure}
//
// AwaitingUserResolution is left by ResumeAfterResolution, which re-enters
// the same operation for the same identity, or by AbandonResolution, which
// fails it. Every invocation is terminal on failure; nothing is retried
// automatically.
//
// An Orchestrator runs one flow at a time. Callers serialize invocations.
type Orchestrator struct {
	identity   IdentityProvider
	authorizer Authorizer
	vault      Vault
	database   Database
	archiver   Archiver
	staging    StagingArea
	fsmgr      FilesystemManager
	state      *StateStream
	logger     Logger

	suspended *suspendedFlow
}

// suspendedFlow is everything needed to continue an operation after the
// out-of-band consent screen returns.
type suspendedFlow struct {
	identity  Identity
	operation Operation
	handle    ResolutionHandle
	reason    string
}

// NewOrchestrator creates an Orchestrator with the provided dependencies.
// state may be nil, in which case a private stream is created.
func NewOrchestrator(identity IdentityProvider, authorizer Authorizer, vault Vault, database Database, archiver Archiver, staging StagingArea, fsmgr FilesystemManager, state *StateStream, logger Logger) *Orchestrator {
	if state == nil {
		state = NewStateStream()
	}
	return &Orchestrator{
		identity:   identity,
		authorizer: authorizer,
		vault:      vault,
		database:   database,
		archiver:   archiver,
		staging:    staging,
		fsmgr:      fsmgr,
		state:      state,
		logger:     loggerOrNop(logger),
	}
}

// States returns the stream the presentation layer subscribes to.
func (o *Orchestrator) States() *StateStream {
	return o.state
}

// Pending returns the suspended operation's handle, if any.
func (o *Orchestrator) Pending() (ResolutionHandle, Operation, bool) {
	if o.suspended == nil {
		return ResolutionHandle{}, OperationNone, false
	}
	return o.suspended.handle, o.suspended.operation, true
}

// Backup signs in, obtains the storage grant and uploads the local database.
func (o *Orchestrator) Backup(ctx context.Context, host Host) Outcome {
	return o.run(ctx, host, OperationBackup)
}

// Restore signs in, obtains the storage grant and replaces the local
// database with the remote archive. The database handle is released when
// the files are overwritten; the caller re-acquires it.
func (o *Orchestrator) Restore(ctx context.Context, host Host) Outcome {
	return o.run(ctx, host, OperationRestore)
}

func (o *Orchestrator) run(ctx context.Context, host Host, op Operation) Outcome {
	o.suspended = nil
	o.state.Set(State{Busy: true, Phase: PhaseCheckingAuth, StatusText: "Checking authentication..."})

	id, err := o.identity.SignIn(ctx, host)
	if err != nil {
		return o.fail(op, "Sign-in failed", err)
	}
	o.logger.Info("signed in", "operation", op.String(), "account", id.String())

	return o.RunAs(ctx, host, id, op)
}

// RunAs performs op for an identity that has already been resolved,
// starting at the permission check.
func (o *Orchestrator) RunAs(ctx context.Context, host Host, id Identity, op Operation) Outcome {
	o.state.Update(func(s State) State {
		s.Busy = true
		s.Phase = PhaseCheckingPermission
		s.StatusText = "Checking permissions..."
		s.Error = ""
		return s
	})

	grant, err := o.authorizer.RequestAccess(ctx, host, id)
	if err != nil {
		return o.fail(op, "Permission check failed", err)
	}

	switch grant.Kind {
	case GrantGranted:
		return o.transfer(ctx, op, grant)
	case GrantNeedsResolution:
		if grant.Resolution == nil {
			return o.fail(op, "Permission check failed", errors.New("resolution required but no handle was provided"))
		}
		return o.suspend(id, op, *grant.Resolution)
	case GrantDenied:
		return o.fail(op, "Permission check failed", ErrPermissionDenied)
	default:
		return o.fail(op, "Permission check failed", fmt.Errorf("unexpected grant kind: %s", grant.Kind))
	}
}

// ResumeAfterResolution continues the suspended operation once the host has
// presented the resolution handle. A declined consent fails with
// ErrPermissionDenied and is not retried.
func (o *Orchestrator) ResumeAfterResolution(ctx context.Context, host Host, granted bool) Outcome {
	flow := o.suspended
	if flow == nil {
		return o.fail(OperationNone, "Resume failed", ErrNoPendingResolution)
	}
	o.suspended = nil

	o.state.Update(func(s State) State {
		s.PendingResolution = nil
		s.PendingOperation = OperationNone
		return s
	})

	if !granted {
		o.logger.Warn("user declined storage consent", "operation", flow.operation.String(), "account", flow.identity.String())
		return o.fail(flow.operation, "", ErrPermissionDenied)
	}

	o.logger.Info("resuming after consent", "operation", flow.operation.String(), "account", flow.identity.String())
	return o.RunAs(ctx, host, flow.identity, flow.operation)
}

// AbandonResolution ends the suspended operation with a failure carrying
// cause. Hosts call it when the consent screen could not be presented or
// its answer could not be read.
func (o *Orchestrator) AbandonResolution(cause error) Outcome {
	flow := o.suspended
	if flow == nil {
		return o.fail(OperationNone, "Resume failed", ErrNoPendingResolution)
	}
	o.suspended = nil
	o.logger.Warn("storage consent abandoned", "operation", flow.operation.String(), "account", flow.identity.String(), "error", cause)
	return o.fail(flow.operation, failureLabel(flow.operation), cause)
}

func (o *Orchestrator) suspend(id Identity, op Operation, h ResolutionHandle) Outcome {
	o.suspended = &suspendedFlow{
		identity:  id,
		operation: op,
		handle:    h,
		reason:    "storage consent required",
	}
	o.state.Set(State{
		Phase:             PhaseAwaitingUserResolution,
		StatusText:        "Permission required",
		PendingResolution: &h,
		PendingOperation:  op,
	})
	o.logger.Info("awaiting user resolution", "operation", op.String(), "account", id.String(), "reason", o.suspended.reason)
	return Outcome{Kind: OutcomeNeedsUserAction, Operation: op, Resolution: &h}
}

// transfer runs the data-moving part of op. Panics are converted into a
// failure outcome.
func (o *Orchestrator) transfer(ctx context.Context, op Operation, grant AccessGrant) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("transfer panicked", "operation", op.String(), "panic", r)
			out = o.fail(op, failureLabel(op), fmt.Errorf("unexpected failure: %v", r))
		}
	}()

	switch op {
	case OperationBackup:
		o.transferring("Backing up database...")
		if err := o.backup(ctx, grant); err != nil {
			return o.fail(op, failureLabel(op), err)
		}
		o.state.Set(State{Phase: PhaseSuccess, Success: true, StatusText: "Backup completed successfully"})
		return Outcome{Kind: OutcomeSuccess, Operation: op}

	case OperationRestore:
		o.transferring("Checking and restoring backup...")
		err := o.restore(ctx, grant)
		if errors.Is(err, ErrNotFound) {
			o.logger.Info("no remote backup to restore", "account", grant.Account.String())
			o.state.Set(State{Phase: PhaseNotFound, StatusText: "No backup found to restore"})
			return Outcome{Kind: OutcomeNotFound, Operation: op}
		}
		if err != nil {
			return o.fail(op, failureLabel(op), err)
		}
		o.state.Set(State{Phase: PhaseSuccess, Success: true, StatusText: "Restore completed successfully"})
		return Outcome{Kind: OutcomeSuccess, Operation: op, Restored: true}

	default:
		return o.fail(op, "Operation failed", fmt.Errorf("unknown operation: %s", op))
	}
}

func (o *Orchestrator) transferring(status string) {
	o.state.Update(func(s State) State {
		s.Busy = true
		s.Phase = PhaseTransferring
		s.StatusText = status
		s.PendingResolution = nil
		s.PendingOperation = OperationNone
		return s
	})
}

// fail publishes a failure state and returns the matching outcome.
// The error text is rendered verbatim after label.
func (o *Orchestrator) fail(op Operation, label string, err error) Outcome {
	msg := err.Error()
	if label != "" {
		msg = label + ": " + msg
	}
	o.logger.Error("operation failed", "operation", op.String(), "error", msg)
	o.state.Set(State{Phase: PhaseFailure, StatusText: "Failed", Error: msg})
	return Outcome{Kind: OutcomeFailure, Operation: op, Err: err}
}

// cleanup removes scratch paths. Failures are logged and never escalate.
func (o *Orchestrator) cleanup(paths ...string) {
	for _, p := range paths {
		if err := o.fsmgr.RemoveAll(p); err != nil {
			o.logger.Warn("cleanup failed", "path", p, "error", err)
		}
	}
}

func failureLabel(op Operation) string {
	switch op {
	case OperationBackup:
		return "Backup failed"
	case OperationRestore:
		return "Restore failed"
	default:
		return "Operation failed"
	}
}
