package sk

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Profile defaults for a newly registered shop.
const (
	UserTypeFree      = "free"
	StatusPending     = "pending"
	trialPeriodMonths = 6
)

// ErrIncompleteForm is returned when a registration field is blank.
var ErrIncompleteForm = errors.New("please fill all fields")

// UserProfile is the shop profile stored in the remote document store,
// keyed by the account email. Dates are epoch milliseconds.
type UserProfile struct {
	Email       string
	Name        string
	ShopName    string
	PhoneNumber string
	Address     string
	RegDate     int64
	UserType    string
	Status      string
	NextPayDate int64
	DriveEmail  string
}

// ProfileStore persists user profiles.
type ProfileStore interface {
	IsRegistered(ctx context.Context, email string) (bool, error)
	Register(ctx context.Context, p UserProfile) error
	// Get returns nil, nil when no profile exists for email.
	Get(ctx context.Context, email string) (*UserProfile, error)
	UpdateDriveEmail(ctx context.Context, email, driveEmail string) error
}

// RegistrationForm is what the user fills in when registering a shop.
type RegistrationForm struct {
	Name        string
	ShopName    string
	PhoneNumber string
	Address     string
}

func (f RegistrationForm) complete() bool {
	for _, v := range []string{f.Name, f.ShopName, f.PhoneNumber, f.Address} {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

// ProfileService registers shops and remembers the registered identity.
type ProfileService struct {
	store    ProfileStore
	sessions SessionStore
	clock    Clock
	logger   Logger
}

// NewProfileService creates a ProfileService. sessions may be nil.
func NewProfileService(store ProfileStore, sessions SessionStore, clock Clock, logger Logger) *ProfileService {
	if clock == nil {
		clock = RealClock{}
	}
	return &ProfileService{
		store:    store,
		sessions: sessions,
		clock:    clock,
		logger:   loggerOrNop(logger),
	}
}

// Register validates form and stores a new profile for id.
func (s *ProfileService) Register(ctx context.Context, id Identity, form RegistrationForm) (UserProfile, error) {
	if id == "" {
		return UserProfile{}, ErrNotSignedIn
	}
	if !form.complete() {
		return UserProfile{}, ErrIncompleteForm
	}

	now := s.clock.Now()
	p := UserProfile{
		Email:       id.String(),
		Name:        strings.TrimSpace(form.Name),
		ShopName:    strings.TrimSpace(form.ShopName),
		PhoneNumber: strings.TrimSpace(form.PhoneNumber),
		Address:     strings.TrimSpace(form.Address),
		RegDate:     now.UnixMilli(),
		UserType:    UserTypeFree,
		Status:      StatusPending,
		NextPayDate: addMonths(now, trialPeriodMonths).UnixMilli(),
	}

	if err := s.store.Register(ctx, p); err != nil {
		return UserProfile{}, fmt.Errorf("registering profile: %w", err)
	}
	s.logger.Info("profile registered", "account", p.Email, "shop", p.ShopName)

	if s.sessions != nil {
		if err := s.sessions.SaveIdentity(ctx, id); err != nil {
			return p, fmt.Errorf("saving session: %w", err)
		}
	}
	return p, nil
}

// Get returns the profile for id, or nil if it is not registered.
func (s *ProfileService) Get(ctx context.Context, id Identity) (*UserProfile, error) {
	p, err := s.store.Get(ctx, id.String())
	if err != nil {
		return nil, fmt.Errorf("getting profile: %w", err)
	}
	return p, nil
}

// addMonths adds n calendar months, clamping the day to the last day of
// the target month.
func addMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return first.AddDate(0, 0, d-1)
}
