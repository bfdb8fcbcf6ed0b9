package profile

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/go-cmp/cmp"
	"github.com/pressly/goose/v3"

	"shopkeep-go/internal/config"
	"shopkeep-go/internal/sk"
)

func sampleProfile(email string) sk.UserProfile {
	return sk.UserProfile{
		Email:       email,
		Name:        "Rahim",
		ShopName:    "Corner Store",
		PhoneNumber: "+8801700000000",
		Address:     "12 Market Road",
		RegDate:     1705314600000,
		UserType:    sk.UserTypeFree,
		Status:      sk.StatusPending,
		NextPayDate: 1721039400000,
	}
}

// exerciseStore checks the ProfileStore contract against s.
func exerciseStore(t *testing.T, s sk.ProfileStore, email string) {
	t.Helper()
	ctx := context.Background()

	ok, err := s.IsRegistered(ctx, email)
	if err != nil || ok {
		t.Fatalf("IsRegistered() before register = %v, %v", ok, err)
	}
	got, err := s.Get(ctx, email)
	if err != nil || got != nil {
		t.Fatalf("Get() before register = %v, %v; want nil, nil", got, err)
	}
	if err := s.UpdateDriveEmail(ctx, email, email); !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("UpdateDriveEmail() on missing profile error = %v, want ErrProfileNotFound", err)
	}

	want := sampleProfile(email)
	if err := s.Register(ctx, want); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if ok, _ := s.IsRegistered(ctx, email); !ok {
		t.Errorf("IsRegistered() after register = false")
	}

	if err := s.UpdateDriveEmail(ctx, email, email); err != nil {
		t.Fatalf("UpdateDriveEmail() error = %v", err)
	}
	want.DriveEmail = email

	got, err = s.Get(ctx, email)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if diff := cmp.Diff(&want, got); diff != "" {
		t.Errorf("profile mismatch (-want +got):\n%s", diff)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore(), "owner@example.com")

	if err := NewMemoryStore().Register(context.Background(), sk.UserProfile{}); err == nil {
		t.Error("Register() without email error = nil, want error")
	}
}

func TestFirestoreStore_Emulator(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	ctx := context.Background()
	s, err := OpenFirestoreStore(ctx, "shopkeep-test", "users_test")
	if err != nil {
		t.Fatalf("OpenFirestoreStore() error = %v", err)
	}
	defer s.Close()

	email := t.Name() + "@example.com"
	t.Cleanup(func() { s.doc(email).Delete(context.Background()) })
	exerciseStore(t, s, email)
}

func TestDocumentConversion(t *testing.T) {
	p := sampleProfile("owner@example.com")
	p.DriveEmail = "owner@example.com"
	if diff := cmp.Diff(&p, toDocument(p).profile()); diff != "" {
		t.Errorf("conversion mismatch (-want +got):\n%s", diff)
	}
}

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return NewPostgresStore(db), mock
}

var profileColumns = []string{
	"email", "name", "shop_name", "phone_number", "address",
	"reg_date", "user_type", "status", "next_pay_date", "drive_email",
}

func TestPostgresStore_Get(t *testing.T) {
	ctx := context.Background()
	q := `(?s)^SELECT\s+email,.*FROM\s+users\s+WHERE\s+email\s*=\s*\$1$`

	t.Run("found", func(t *testing.T) {
		s, mock := newMockStore(t)
		p := sampleProfile("owner@example.com")
		mock.ExpectQuery(q).WithArgs(p.Email).WillReturnRows(
			sqlmock.NewRows(profileColumns).AddRow(
				p.Email, p.Name, p.ShopName, p.PhoneNumber, p.Address,
				p.RegDate, p.UserType, p.Status, p.NextPayDate, ""))

		got, err := s.Get(ctx, p.Email)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if diff := cmp.Diff(&p, got); diff != "" {
			t.Errorf("profile mismatch (-want +got):\n%s", diff)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
	})

	t.Run("missing", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery(q).WithArgs("nobody@example.com").WillReturnError(sql.ErrNoRows)
		got, err := s.Get(ctx, "nobody@example.com")
		if err != nil || got != nil {
			t.Errorf("Get() = %v, %v; want nil, nil", got, err)
		}
	})

	t.Run("db error", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery(q).WillReturnError(errors.New("db down"))
		_, err := s.Get(ctx, "owner@example.com")
		if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
			t.Fatalf("expected wrapped db error, got %v", err)
		}
	})
}

func TestPostgresStore_IsRegistered(t *testing.T) {
	s, mock := newMockStore(t)
	q := `(?s)^SELECT\s+EXISTS\s*\(SELECT\s+1\s+FROM\s+users\s+WHERE\s+email\s*=\s*\$1\)$`
	mock.ExpectQuery(q).WithArgs("owner@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := s.IsRegistered(context.Background(), "owner@example.com")
	if err != nil || !ok {
		t.Errorf("IsRegistered() = %v, %v; want true", ok, err)
	}
}

func TestPostgresStore_Register(t *testing.T) {
	s, mock := newMockStore(t)
	p := sampleProfile("owner@example.com")
	q := `(?s)^INSERT\s+INTO\s+users\s*\(email,.*ON\s+CONFLICT\s+\(email\)\s+DO\s+UPDATE`
	mock.ExpectExec(q).
		WithArgs(p.Email, p.Name, p.ShopName, p.PhoneNumber, p.Address,
			p.RegDate, p.UserType, p.Status, p.NextPayDate, p.DriveEmail).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.Register(context.Background(), p); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPostgresStore_UpdateDriveEmail(t *testing.T) {
	q := `(?s)^UPDATE\s+users\s+SET\s+drive_email\s*=\s*\$2\s+WHERE\s+email\s*=\s*\$1$`

	tests := []struct {
		name     string
		affected int64
		wantErr  error
	}{
		{name: "updated", affected: 1},
		{name: "missing profile", affected: 0, wantErr: ErrProfileNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStore(t)
			mock.ExpectExec(q).WithArgs("owner@example.com", "drive@example.com").
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			err := s.UpdateDriveEmail(context.Background(), "owner@example.com", "drive@example.com")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("UpdateDriveEmail() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRunMigrations(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	orig := gooseUpContext
	defer func() { gooseUpContext = orig }()

	var gotDir string
	gooseUpContext = func(_ context.Context, _ *sql.DB, dir string, _ ...goose.OptionsFunc) error {
		gotDir = dir
		return nil
	}
	if err := RunMigrations(context.Background(), db); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}
	if gotDir != "." {
		t.Errorf("dir = %q, want %q", gotDir, ".")
	}

	gooseUpContext = func(context.Context, *sql.DB, string, ...goose.OptionsFunc) error {
		return errors.New("boom")
	}
	if err := RunMigrations(context.Background(), db); err == nil {
		t.Error("RunMigrations() error = nil, want error")
	}
}

func TestNewStoreFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.ProfileConfig
		wantErr bool
	}{
		{name: "memory", cfg: config.ProfileConfig{Type: "memory"}},
		{name: "firestore without project", cfg: config.ProfileConfig{Type: "firestore"}, wantErr: true},
		{name: "postgres without dsn", cfg: config.ProfileConfig{Type: "postgres"}, wantErr: true},
		{name: "unknown", cfg: config.ProfileConfig{Type: "mongo"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewStoreFromConfig(context.Background(), tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewStoreFromConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if s != nil {
				s.Close()
			}
		})
	}
}
