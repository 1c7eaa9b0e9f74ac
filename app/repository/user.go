package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-blog-auth/app/entity"
)

const userColumns = `id, email, display_name, password_hash, phone_number, avatar, gender, role, status, created_at, updated_at`

var userSortColumns = map[string]string{
	"createdAt":   "created_at",
	"updatedAt":   "updated_at",
	"displayName": "display_name",
	"email":       "email",
}

// UserListQuery pages through users. Search matches display names
// case-insensitively; Status and Role filter exactly when set.
type UserListQuery struct {
	Search     string
	Status     string
	Role       string
	SortBy     string
	Descending bool
	Page       int
	PageSize   int
}

// IsSortableUserField reports whether List can order by field.
func IsSortableUserField(field string) bool {
	_, ok := userSortColumns[field]
	return ok
}

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *entity.User) error {
	query := `
		INSERT INTO users (email, display_name, password_hash, phone_number, avatar, gender, role, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		user.Email,
		user.DisplayName,
		user.PasswordHash,
		user.PhoneNumber,
		user.Avatar,
		user.Gender,
		user.Role,
		user.Status,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return mapDuplicate(err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	user.ID = uint64(id)
	return nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users WHERE email = ?
	`
	return r.findOne(ctx, query, email)
}

func (r *UserRepository) FindByID(ctx context.Context, id uint64) (*entity.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users WHERE id = ?
	`
	return r.findOne(ctx, query, id)
}

// UpdateFields applies the non-nil fields of update. An empty string clears
// the nullable phone_number and gender columns.
func (r *UserRepository) UpdateFields(ctx context.Context, id uint64, update entity.UserUpdate) error {
	var (
		sets []string
		args []interface{}
	)

	if update.Email != nil {
		sets = append(sets, "email = ?")
		args = append(args, *update.Email)
	}
	if update.DisplayName != nil {
		sets = append(sets, "display_name = ?")
		args = append(args, *update.DisplayName)
	}
	if update.PasswordHash != nil {
		sets = append(sets, "password_hash = ?")
		args = append(args, *update.PasswordHash)
	}
	if update.PhoneNumber != nil {
		sets = append(sets, "phone_number = ?")
		args = append(args, nullableString(*update.PhoneNumber))
	}
	if update.Avatar != nil {
		sets = append(sets, "avatar = ?")
		args = append(args, *update.Avatar)
	}
	if update.Gender != nil {
		sets = append(sets, "gender = ?")
		args = append(args, nullableString(*update.Gender))
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now(), id)

	query := `UPDATE users SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, args...)
	return mapDuplicate(err)
}

func (r *UserRepository) SetStatus(ctx context.Context, id uint64, status string) (int64, error) {
	query := `UPDATE users SET status = ?, updated_at = ? WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query, status, time.Now(), id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *UserRepository) SetRole(ctx context.Context, id uint64, role string) (int64, error) {
	query := `UPDATE users SET role = ?, updated_at = ? WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query, role, time.Now(), id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *UserRepository) Delete(ctx context.Context, id uint64) (int64, error) {
	query := `DELETE FROM users WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total)
	return total, err
}

// List returns one page of users matching q together with the number of
// matching users across all pages.
func (r *UserRepository) List(ctx context.Context, q UserListQuery) ([]*entity.User, int64, error) {
	var (
		where []string
		args  []interface{}
	)

	if q.Search != "" {
		where = append(where, "LOWER(display_name) LIKE ?")
		args = append(args, "%"+escapeLike(strings.ToLower(q.Search))+"%")
	}
	if q.Status != "" {
		where = append(where, "status = ?")
		args = append(args, q.Status)
	}
	if q.Role != "" {
		where = append(where, "role = ?")
		args = append(args, q.Role)
	}

	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	column, ok := userSortColumns[q.SortBy]
	if !ok {
		column = "created_at"
	}
	direction := "ASC"
	if q.Descending {
		direction = "DESC"
	}

	query := `
		SELECT ` + userColumns + `
		FROM users WHERE ` + cond + `
		ORDER BY ` + column + ` ` + direction + `, id ` + direction + `
		LIMIT ? OFFSET ?
	`
	dataArgs := append(append([]interface{}{}, args...), q.PageSize, (q.Page-1)*q.PageSize)

	rows, err := r.db.QueryContext(ctx, query, dataArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := make([]*entity.User, 0, q.PageSize)
	for rows.Next() {
		user, err := scanUser(rows.Scan)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, user)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *UserRepository) findOne(ctx context.Context, query string, args ...interface{}) (*entity.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, query, args...).Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func scanUser(scan rowScanner) (*entity.User, error) {
	user := &entity.User{}
	err := scan(
		&user.ID,
		&user.Email,
		&user.DisplayName,
		&user.PasswordHash,
		&user.PhoneNumber,
		&user.Avatar,
		&user.Gender,
		&user.Role,
		&user.Status,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(value string) string {
	return likeEscaper.Replace(value)
}
