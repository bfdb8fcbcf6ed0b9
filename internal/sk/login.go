package sk

import (
	"context"
	"fmt"
)

// LoginStatus is where a login attempt ended.
type LoginStatus int

const (
	LoginRegistered LoginStatus = iota + 1
	LoginNotRegistered
	LoginNeedsUserAction
)

func (s LoginStatus) String() string {
	switch s {
	case LoginRegistered:
		return "registered"
	case LoginNotRegistered:
		return "not_registered"
	case LoginNeedsUserAction:
		return "needs_user_action"
	default:
		return "unknown"
	}
}

// LoginResult reports the login status and, for registered users, how the
// automatic restore went.
type LoginResult struct {
	Status   LoginStatus
	Identity Identity
	Restore  Outcome
}

// LoginService signs a user in and, when they already have a profile,
// restores their latest backup before remembering the session. A failed
// restore does not block the login.
type LoginService struct {
	identity     IdentityProvider
	profiles     ProfileStore
	sessions     SessionStore
	orchestrator *Orchestrator
	logger       Logger
}

// NewLoginService creates a LoginService.
func NewLoginService(identity IdentityProvider, profiles ProfileStore, sessions SessionStore, orchestrator *Orchestrator, logger Logger) *LoginService {
	return &LoginService{
		identity:     identity,
		profiles:     profiles,
		sessions:     sessions,
		orchestrator: orchestrator,
		logger:       loggerOrNop(logger),
	}
}

// Login signs in and, for a registered account, runs a restore.
// A LoginNeedsUserAction result is continued with CompleteLogin.
func (s *LoginService) Login(ctx context.Context, host Host) (LoginResult, error) {
	id, err := s.identity.SignIn(ctx, host)
	if err != nil {
		return LoginResult{}, fmt.Errorf("signing in: %w", err)
	}

	registered, err := s.profiles.IsRegistered(ctx, id.String())
	if err != nil {
		return LoginResult{}, fmt.Errorf("checking registration: %w", err)
	}
	if !registered {
		s.logger.Info("account not registered", "account", id.String())
		return LoginResult{Status: LoginNotRegistered, Identity: id}, nil
	}

	out := s.orchestrator.RunAs(ctx, host, id, OperationRestore)
	if out.Kind == OutcomeNeedsUserAction {
		return LoginResult{Status: LoginNeedsUserAction, Identity: id, Restore: out}, nil
	}
	return s.complete(ctx, id, out)
}

// CompleteLogin resumes the restore suspended by Login. A declined consent
// still completes the login.
func (s *LoginService) CompleteLogin(ctx context.Context, host Host, granted bool) (LoginResult, error) {
	handle, _, ok := s.orchestrator.Pending()
	if !ok {
		return LoginResult{}, ErrNoPendingResolution
	}

	out := s.orchestrator.ResumeAfterResolution(ctx, host, granted)
	if out.Kind == OutcomeNeedsUserAction {
		return LoginResult{Status: LoginNeedsUserAction, Identity: handle.Account, Restore: out}, nil
	}
	return s.complete(ctx, handle.Account, out)
}

// CompleteLoginWithoutConsent finishes a login whose consent step failed
// with cause. The restore is recorded as failed and the login completes.
func (s *LoginService) CompleteLoginWithoutConsent(ctx context.Context, cause error) (LoginResult, error) {
	handle, _, ok := s.orchestrator.Pending()
	if !ok {
		return LoginResult{}, ErrNoPendingResolution
	}
	return s.complete(ctx, handle.Account, s.orchestrator.AbandonResolution(cause))
}

func (s *LoginService) complete(ctx context.Context, id Identity, restore Outcome) (LoginResult, error) {
	switch restore.Kind {
	case OutcomeFailure:
		s.logger.Warn("restore during login failed", "account", id.String(), "error", restore.Err)
	case OutcomeSuccess, OutcomeNotFound:
		if err := s.profiles.UpdateDriveEmail(ctx, id.String(), id.String()); err != nil {
			s.logger.Warn("recording drive account failed", "account", id.String(), "error", err)
		}
	}

	if err := s.sessions.SaveIdentity(ctx, id); err != nil {
		return LoginResult{}, fmt.Errorf("saving session: %w", err)
	}
	s.logger.Info("logged in", "account", id.String(), "restore", restore.Kind.String())
	return LoginResult{Status: LoginRegistered, Identity: id, Restore: restore}, nil
}
