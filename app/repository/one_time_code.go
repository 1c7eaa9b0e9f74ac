package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/vibast-solutions/ms-go-blog-auth/app/entity"
)

// OneTimeCodeRepository keeps one row per email; the primary key on email
// rejects a second live code.
type OneTimeCodeRepository struct {
	db DBTX
}

func NewOneTimeCodeRepository(db DBTX) *OneTimeCodeRepository {
	return &OneTimeCodeRepository{db: db}
}

func (r *OneTimeCodeRepository) Create(ctx context.Context, code *entity.OneTimeCode) error {
	query := `
		INSERT INTO one_time_codes (email, code, created_at, expires_at)
		VALUES (?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		code.Email,
		code.Code,
		code.CreatedAt,
		code.ExpiresAt,
	)
	return mapDuplicate(err)
}

func (r *OneTimeCodeRepository) FindByEmail(ctx context.Context, email string) (*entity.OneTimeCode, error) {
	query := `
		SELECT email, code, created_at, expires_at
		FROM one_time_codes WHERE email = ?
	`
	code := &entity.OneTimeCode{}
	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&code.Email,
		&code.Code,
		&code.CreatedAt,
		&code.ExpiresAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return code, nil
}

func (r *OneTimeCodeRepository) DeleteByEmail(ctx context.Context, email string) error {
	query := `DELETE FROM one_time_codes WHERE email = ?`
	_, err := r.db.ExecContext(ctx, query, email)
	return err
}

func (r *OneTimeCodeRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM one_time_codes WHERE expires_at <= ?`
	result, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
