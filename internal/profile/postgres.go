package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"shopkeep-go/internal/profile/migrations"
	"shopkeep-go/internal/sk"
)

// gooseUpContext is swapped in tests.
var gooseUpContext = goose.UpContext

// PostgresStore keeps profiles in the users table of a postgres database.
type PostgresStore struct {
	db *sql.DB
}

var _ sk.ProfileStore = (*PostgresStore)(nil)

// NewPostgresStore wraps an open database. Migrations are not run.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgresStore connects with the pgx driver and applies migrations.
func OpenPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return NewPostgresStore(db), nil
}

// RunMigrations applies the embedded goose migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("running profile migrations: %w", err)
	}
	return nil
}

func (s *PostgresStore) IsRegistered(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

// Register inserts p, replacing an existing profile with the same email.
func (s *PostgresStore) Register(ctx context.Context, p sk.UserProfile) error {
	query :=
		`INSERT INTO users (email, name, shop_name, phone_number, address, reg_date, user_type, status, next_pay_date, drive_email)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (email) DO UPDATE SET
		   name = EXCLUDED.name,
		   shop_name = EXCLUDED.shop_name,
		   phone_number = EXCLUDED.phone_number,
		   address = EXCLUDED.address,
		   reg_date = EXCLUDED.reg_date,
		   user_type = EXCLUDED.user_type,
		   status = EXCLUDED.status,
		   next_pay_date = EXCLUDED.next_pay_date,
		   drive_email = EXCLUDED.drive_email`

	_, err := s.db.ExecContext(ctx, query,
		p.Email, p.Name, p.ShopName, p.PhoneNumber, p.Address,
		p.RegDate, p.UserType, p.Status, p.NextPayDate, p.DriveEmail)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, email string) (*sk.UserProfile, error) {
	query :=
		`SELECT email, name, shop_name, phone_number, address, reg_date, user_type, status, next_pay_date, drive_email
		 FROM users WHERE email = $1`

	var p sk.UserProfile
	err := s.db.QueryRowContext(ctx, query, email).Scan(
		&p.Email, &p.Name, &p.ShopName, &p.PhoneNumber, &p.Address,
		&p.RegDate, &p.UserType, &p.Status, &p.NextPayDate, &p.DriveEmail)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &p, nil
}

func (s *PostgresStore) UpdateDriveEmail(ctx context.Context, email, driveEmail string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET drive_email = $2 WHERE email = $1`, email, driveEmail)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, email)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
