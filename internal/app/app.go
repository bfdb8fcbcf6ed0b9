package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"shopkeep-go/internal/archive"
	"shopkeep-go/internal/authz"
	"shopkeep-go/internal/config"
	"shopkeep-go/internal/database"
	"shopkeep-go/internal/fs"
	"shopkeep-go/internal/identity"
	"shopkeep-go/internal/profile"
	"shopkeep-go/internal/session"
	"shopkeep-go/internal/sk"
	"shopkeep-go/internal/staging"
	"shopkeep-go/internal/vault"
)

// App is the application layer between the CLI and the sk services.
// It constructs all dependencies from config, owns the database handle
// (re-acquiring it after a restore), records the operation history and
// closes everything on Close.
type App struct {
	cfg        *config.Config
	logger     sk.Logger
	clock      sk.Clock
	identity   sk.IdentityProvider
	authorizer authz.Authorizer
	db         *database.SQLiteDatabase
	sessions   session.Store
	profiles   profile.Store
	orch       *sk.Orchestrator
	login      *sk.LoginService
	profileSvc *sk.ProfileService
	op         *Operation
	account    sk.Identity
	logFile    *os.File
}

// Option customizes NewApp.
type Option func(*options)

type options struct {
	console io.Writer
	clock   sk.Clock
}

// WithConsole mirrors log lines to w. Pass nil to log to the file only.
func WithConsole(w io.Writer) Option {
	return func(o *options) { o.console = w }
}

// WithClock replaces the wall clock.
func WithClock(c sk.Clock) Option {
	return func(o *options) { o.clock = c }
}

// NewApp creates a fully wired App from the given config.
// operation names the CLI command being run (e.g. "backup", "login").
// The caller must call Close when done.
func NewApp(ctx context.Context, cfg *config.Config, operation string, opts ...Option) (*App, error) {
	o := options{console: os.Stderr, clock: sk.RealClock{}}
	for _, opt := range opts {
		opt(&o)
	}

	opID := o.clock.Now().UTC().Format("20060102T150405Z")
	slogger, logFile, err := newLogger(cfg.LogDir, opID, o.console)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	a := &App{
		cfg:     cfg,
		logger:  logger,
		clock:   o.clock,
		op:      NewOperation(operation),
		logFile: logFile,
	}
	if err := a.wire(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) wire(ctx context.Context) error {
	var err error

	if a.db, err = database.NewDatabaseFromConfig(a.cfg.Database, a.logger); err != nil {
		return fmt.Errorf("creating database: %w", err)
	}
	if err := a.db.Acquire(); err != nil {
		return fmt.Errorf("opening database: %w", err)
	}

	if a.sessions, err = session.NewStoreFromConfig(a.cfg.Session, a.clock); err != nil {
		return fmt.Errorf("creating session store: %w", err)
	}
	if a.profiles, err = profile.NewStoreFromConfig(ctx, a.cfg.Profile); err != nil {
		return fmt.Errorf("creating profile store: %w", err)
	}
	if a.identity, err = identity.NewProviderFromConfig(a.cfg, a.logger); err != nil {
		return fmt.Errorf("creating identity provider: %w", err)
	}
	if a.authorizer, err = authz.NewAuthorizerFromConfig(a.cfg, a.logger); err != nil {
		return fmt.Errorf("creating authorizer: %w", err)
	}

	v, err := vault.NewVaultFromConfig(ctx, a.cfg.Vault, a.logger)
	if err != nil {
		return fmt.Errorf("creating vault: %w", err)
	}
	sa, err := staging.NewStagingAreaFromConfig(a.cfg.Staging)
	if err != nil {
		return fmt.Errorf("creating staging area: %w", err)
	}

	signIn := recordingIdentity{IdentityProvider: a.identity, onSignIn: a.signedIn}
	a.orch = sk.NewOrchestrator(signIn, a.authorizer, v, a.db,
		archive.NewZipCodec(a.logger), sa, fs.NewOSFilesystemManager(), nil, a.logger)
	a.login = sk.NewLoginService(signIn, a.profiles, a.sessions, a.orch, a.logger)
	a.profileSvc = sk.NewProfileService(a.profiles, a.sessions, a.clock, a.logger)
	return nil
}

// States returns the orchestrator's state stream for the status view.
func (a *App) States() *sk.StateStream {
	return a.orch.States()
}

// Pending reports the operation waiting for the user, if any.
func (a *App) Pending() (sk.ResolutionHandle, sk.Operation, bool) {
	return a.orch.Pending()
}

// CurrentIdentity returns the remembered signed-in identity.
func (a *App) CurrentIdentity(ctx context.Context) (sk.Identity, error) {
	id, ok, err := a.sessions.Identity(ctx)
	if err != nil {
		return "", fmt.Errorf("reading session: %w", err)
	}
	if !ok {
		return "", sk.ErrNotSignedIn
	}
	return id, nil
}

// recordingIdentity reports every successful sign-in to onSignIn.
type recordingIdentity struct {
	sk.IdentityProvider
	onSignIn func(context.Context, sk.Identity)
}

var _ sk.IdentityProvider = recordingIdentity{}

func (r recordingIdentity) SignIn(ctx context.Context, host sk.Host) (sk.Identity, error) {
	id, err := r.IdentityProvider.SignIn(ctx, host)
	if err == nil {
		r.onSignIn(ctx, id)
	}
	return id, err
}

// signedIn starts the operation record under the account that actually
// signed in.
func (a *App) signedIn(ctx context.Context, id sk.Identity) {
	a.account = id
	if err := a.beginOperation(ctx, id); err != nil {
		a.logger.Warn("recording operation failed", "account", id.String(), "error", err)
	}
}

// beginOperation persists the operation so it shows up in the history
// even if the process dies mid-way.
func (a *App) beginOperation(ctx context.Context, account sk.Identity) error {
	if a.op.Persisted() {
		return nil
	}
	a.op.Account = account.String()
	id, err := a.sessions.StartOperation(ctx, a.op.Name, a.op.Account, a.clock.Now())
	if err != nil {
		return fmt.Errorf("recording operation: %w", err)
	}
	a.op.ID = id
	return nil
}

// Login signs in and restores the account's backup when it is registered.
func (a *App) Login(ctx context.Context, host sk.Host) (sk.LoginResult, error) {
	res, err := a.login.Login(ctx, host)
	return a.finishLogin(ctx, res, err)
}

// CompleteLogin presents the pending consent screen and finishes the login.
// The login completes even when the screen cannot be presented.
func (a *App) CompleteLogin(ctx context.Context, host sk.Host) (sk.LoginResult, error) {
	granted, err := a.resolvePending(ctx, host)
	if errors.Is(err, sk.ErrNoPendingResolution) {
		a.op.Fail(err)
		return sk.LoginResult{}, err
	}
	if err != nil {
		res, err := a.login.CompleteLoginWithoutConsent(ctx, err)
		return a.finishLogin(ctx, res, err)
	}
	res, err := a.login.CompleteLogin(ctx, host, granted)
	return a.finishLogin(ctx, res, err)
}

// finishLogin records the login once the account is known.
func (a *App) finishLogin(ctx context.Context, res sk.LoginResult, err error) (sk.LoginResult, error) {
	if berr := a.beginOperation(ctx, res.Identity); berr != nil {
		a.logger.Warn("recording login failed", "error", berr)
	}
	if err != nil {
		a.op.Fail(err)
		return res, err
	}
	if res.Restore.Operation == sk.OperationRestore {
		a.reacquire()
	}
	if res.Status == sk.LoginRegistered {
		a.op.RecordOutcome(res.Restore)
	} else {
		a.op.Detail = res.Status.String()
	}
	return res, nil
}

// Logout forgets the remembered identity.
func (a *App) Logout(ctx context.Context) error {
	if err := a.sessions.Clear(ctx); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	a.logger.Info("logged out")
	return nil
}

// Register signs in and registers a shop for that account.
func (a *App) Register(ctx context.Context, host sk.Host, form sk.RegistrationForm) (sk.UserProfile, error) {
	id, err := a.identity.SignIn(ctx, host)
	if err != nil {
		return sk.UserProfile{}, fmt.Errorf("signing in: %w", err)
	}
	return a.profileSvc.Register(ctx, id, form)
}

// Profile returns the signed-in account's shop profile.
func (a *App) Profile(ctx context.Context) (*sk.UserProfile, error) {
	id, err := a.CurrentIdentity(ctx)
	if err != nil {
		return nil, err
	}
	p, err := a.profileSvc.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("no profile for %s: %w", id, sk.ErrNotFound)
	}
	return p, nil
}

// Backup uploads the local database for the signed-in account.
func (a *App) Backup(ctx context.Context, host sk.Host) (sk.Outcome, error) {
	return a.run(ctx, host, a.orch.Backup)
}

// Restore replaces the local database with the account's backup.
func (a *App) Restore(ctx context.Context, host sk.Host) (sk.Outcome, error) {
	return a.run(ctx, host, a.orch.Restore)
}

func (a *App) run(ctx context.Context, host sk.Host, fn func(context.Context, sk.Host) sk.Outcome) (sk.Outcome, error) {
	id, err := a.CurrentIdentity(ctx)
	if err != nil {
		return sk.Outcome{}, err
	}
	a.account = ""
	out := fn(ctx, host)
	switch {
	case a.account == "":
		// Sign-in failed; the attempt is still recorded under the session.
		if err := a.beginOperation(ctx, id); err != nil {
			a.logger.Warn("recording operation failed", "account", id.String(), "error", err)
		}
	case a.account != id:
		a.logger.Warn("signed-in account differs from session", "session", id.String(), "signed_in", a.account.String())
	}
	return a.settle(out), nil
}

// Resume presents the pending consent screen and continues the suspended
// backup or restore with the user's answer. When the screen cannot be
// presented the suspended operation fails.
func (a *App) Resume(ctx context.Context, host sk.Host) (sk.Outcome, error) {
	granted, err := a.resolvePending(ctx, host)
	if errors.Is(err, sk.ErrNoPendingResolution) {
		a.op.Fail(err)
		return sk.Outcome{}, err
	}
	if err != nil {
		return a.settle(a.orch.AbandonResolution(err)), nil
	}
	return a.settle(a.orch.ResumeAfterResolution(ctx, host, granted)), nil
}

func (a *App) resolvePending(ctx context.Context, host sk.Host) (bool, error) {
	handle, _, ok := a.orch.Pending()
	if !ok {
		return false, sk.ErrNoPendingResolution
	}
	granted, err := a.authorizer.Resolve(ctx, host, handle)
	if err != nil {
		return false, fmt.Errorf("storage consent: %w", err)
	}
	return granted, nil
}

func (a *App) settle(out sk.Outcome) sk.Outcome {
	if out.Operation == sk.OperationRestore {
		a.reacquire()
	}
	if out.Kind != sk.OutcomeNeedsUserAction {
		a.op.RecordOutcome(out)
	}
	return out
}

// reacquire reopens the database after a restore released it.
func (a *App) reacquire() {
	if err := a.db.Acquire(); err != nil {
		a.logger.Error("re-opening database failed", "error", err)
	}
}

// AddName inserts a name into the local database.
func (a *App) AddName(ctx context.Context, name string) (*database.Name, error) {
	return a.db.AddName(ctx, name, a.clock.Now())
}

// ListNames returns the local names, newest first.
func (a *App) ListNames(ctx context.Context) ([]*database.Name, error) {
	return a.db.ListNames(ctx)
}

// History returns the most recent recorded operations.
func (a *App) History(ctx context.Context, limit int) ([]*session.Operation, error) {
	return a.sessions.ListOperations(ctx, limit)
}

// Close finalizes the operation record and closes all resources.
func (a *App) Close() error {
	var errs []error

	if a.op.Persisted() {
		if err := a.sessions.FinishOperation(context.Background(), a.op.ID, a.op.Status, a.op.Detail, a.clock.Now()); err != nil {
			errs = append(errs, fmt.Errorf("finishing operation: %w", err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing database: %w", err))
		}
	}
	if a.sessions != nil {
		if err := a.sessions.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing session store: %w", err))
		}
	}
	if a.profiles != nil {
		if err := a.profiles.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing profile store: %w", err))
		}
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return errors.Join(errs...)
}
