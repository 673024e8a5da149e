package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/winklink/internal/common"
	"github.com/dmitrijs2005/winklink/internal/dbx"
	"github.com/dmitrijs2005/winklink/internal/server/models"
)

// SQLRepository implements Repository for PostgreSQL and SQLite. Queries use
// $N placeholders, which both drivers accept.
type SQLRepository struct {
	db dbx.DBTX
}

func NewSQLRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db}
}

func (r *SQLRepository) Insert(ctx context.Context, user *models.User) error {
	query :=
		`INSERT INTO users (uuid, serial_number, email, created_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.IdentityID, user.SerialNumber, user.Email, user.CreatedAt).Scan(&user.ID)

	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *SQLRepository) UpdateCredentials(ctx context.Context, identityID, ownerName, passwordHash string) error {
	query :=
		`UPDATE users SET device_owner = $1, password_hash = $2
		 WHERE uuid = $3
		 `

	res, err := r.db.ExecContext(ctx, query, nullable(ownerName), passwordHash, identityID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return requireAffected(res)
}

func (r *SQLRepository) UpdateDeviceName(ctx context.Context, identityID, deviceName string) error {
	query :=
		`UPDATE users SET device_name = $1
		 WHERE uuid = $2
		 `

	res, err := r.db.ExecContext(ctx, query, nullable(deviceName), identityID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return requireAffected(res)
}

func (r *SQLRepository) Exists(ctx context.Context, field Field, value string) (bool, error) {
	column, ok := field.Column()
	if !ok {
		return false, fmt.Errorf("%w: unknown field %q", common.ErrorValidation, field)
	}

	// column comes from the whitelist above, never from input.
	lhs := column
	if field == FieldIdentityID {
		// uuid is a native UUID column on postgres; a malformed value must
		// read as absent rather than fail the cast.
		lhs = `CAST(` + column + ` AS TEXT)`
	}
	query := `SELECT COUNT(*) FROM users WHERE ` + lhs + ` = $1`

	var n int64
	if err := r.db.QueryRowContext(ctx, query, value).Scan(&n); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	return n > 0, nil
}

func (r *SQLRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, "email", email)
}

func (r *SQLRepository) GetBySerialNumber(ctx context.Context, serialNumber string) (*models.User, error) {
	return r.getOne(ctx, "serial_number", serialNumber)
}

func (r *SQLRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *SQLRepository) getOne(ctx context.Context, column, value string) (*models.User, error) {
	query :=
		`SELECT id, uuid, serial_number, COALESCE(device_name, ''), COALESCE(device_owner, ''),
		        email, COALESCE(password_hash, ''), created_at
		 FROM users
		 WHERE ` + column + ` = $1
		 `

	u := &models.User{}
	err := r.db.QueryRowContext(ctx, query, value).Scan(
		&u.ID, &u.IdentityID, &u.SerialNumber, &u.DeviceName, &u.OwnerName,
		&u.Email, &u.PasswordHash, &u.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return u, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
