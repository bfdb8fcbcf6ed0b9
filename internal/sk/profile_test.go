package sk_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"shopkeep-go/internal/profile"
	"shopkeep-go/internal/session"
	"shopkeep-go/internal/sk"
	"shopkeep-go/internal/testutil"
)

func validForm() sk.RegistrationForm {
	return sk.RegistrationForm{
		Name:        " Rahim ",
		ShopName:    "Corner Store",
		PhoneNumber: "+8801700000000",
		Address:     "12 Market Road",
	}
}

func TestProfileService_Register(t *testing.T) {
	ctx := context.Background()
	clock := testutil.FixedClock() // 2024-01-15 10:30:00 UTC
	store := profile.NewMemoryStore()
	sessions := session.NewMemoryStore()
	svc := sk.NewProfileService(store, sessions, clock, nil)

	got, err := svc.Register(ctx, account, validForm())
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	want := sk.UserProfile{
		Email:       account.String(),
		Name:        "Rahim",
		ShopName:    "Corner Store",
		PhoneNumber: "+8801700000000",
		Address:     "12 Market Road",
		RegDate:     clock.Now().UnixMilli(),
		UserType:    "free",
		Status:      "pending",
		NextPayDate: time.Date(2024, 7, 15, 10, 30, 0, 0, time.UTC).UnixMilli(),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("profile mismatch (-want +got):\n%s", diff)
	}

	stored, _ := svc.Get(ctx, account)
	if diff := cmp.Diff(&want, stored); diff != "" {
		t.Errorf("stored profile mismatch (-want +got):\n%s", diff)
	}
	if id, ok, _ := sessions.Identity(ctx); !ok || id != account {
		t.Errorf("session identity = %q, %v; want %q", id, ok, account)
	}
}

func TestProfileService_RegisterValidation(t *testing.T) {
	blank := func(mut func(*sk.RegistrationForm)) sk.RegistrationForm {
		f := validForm()
		mut(&f)
		return f
	}
	tests := []struct {
		name    string
		id      sk.Identity
		form    sk.RegistrationForm
		wantErr error
	}{
		{name: "not signed in", id: "", form: validForm(), wantErr: sk.ErrNotSignedIn},
		{name: "blank name", id: account, form: blank(func(f *sk.RegistrationForm) { f.Name = "  " }), wantErr: sk.ErrIncompleteForm},
		{name: "blank shop", id: account, form: blank(func(f *sk.RegistrationForm) { f.ShopName = "" }), wantErr: sk.ErrIncompleteForm},
		{name: "blank phone", id: account, form: blank(func(f *sk.RegistrationForm) { f.PhoneNumber = "" }), wantErr: sk.ErrIncompleteForm},
		{name: "blank address", id: account, form: blank(func(f *sk.RegistrationForm) { f.Address = "\t" }), wantErr: sk.ErrIncompleteForm},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := profile.NewMemoryStore()
			svc := sk.NewProfileService(store, nil, testutil.FixedClock(), nil)
			if _, err := svc.Register(context.Background(), tt.id, tt.form); !errors.Is(err, tt.wantErr) {
				t.Errorf("Register() error = %v, want %v", err, tt.wantErr)
			}
			if ok, _ := store.IsRegistered(context.Background(), account.String()); ok {
				t.Errorf("invalid form was stored")
			}
		})
	}
}

func TestProfileService_NextPayDateClampsDay(t *testing.T) {
	clock := testutil.NewStubClock(time.Date(2024, 8, 31, 9, 0, 0, 0, time.UTC))
	svc := sk.NewProfileService(profile.NewMemoryStore(), nil, clock, nil)

	p, err := svc.Register(context.Background(), account, validForm())
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	want := time.Date(2025, 2, 28, 9, 0, 0, 0, time.UTC).UnixMilli()
	if p.NextPayDate != want {
		t.Errorf("NextPayDate = %v, want %v", time.UnixMilli(p.NextPayDate).UTC(), time.UnixMilli(want).UTC())
	}
}
