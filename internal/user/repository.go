// AngelaMos | 2026
// repository.go

package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/Hiranx/WorldCountries/internal/core"
)

type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetWithSecretByID(ctx context.Context, id string) (*User, error)
	GetWithSecretByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, id string, fields UpdateFields) (*User, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, params ListUsersParams) ([]User, int, error)

	ListFavorites(ctx context.Context, id string) ([]Favorite, error)
	AddFavorite(ctx context.Context, id string, fav Favorite) ([]Favorite, error)
	RemoveFavorite(ctx context.Context, id, country string) ([]Favorite, error)
}

const (
	userColumns       = `id, email, name, role, token_version, created_at, updated_at`
	userSecretColumns = userColumns + `, password_hash`

	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgInvalidTextRepr     = "22P02"
)

// sqlRepository serves both Postgres and SQLite. Queries are written with
// '?' placeholders and rebound for the driver in use.
type sqlRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &sqlRepository{db: db}
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func (r *sqlRepository) Create(ctx context.Context, user *User) error {
	ts := now()
	user.CreatedAt = ts
	user.UpdatedAt = ts

	query := r.db.Rebind(`
		INSERT INTO users (id, email, password_hash, name, role, token_version,
		                   created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.Name,
		user.Role,
		user.TokenVersion,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("create user: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create user: %w", err)
	}

	user.Favorites = []Favorite{}
	return nil
}

func (r *sqlRepository) GetByID(ctx context.Context, id string) (*User, error) {
	return r.getWithFavorites(ctx, "get user", "id", id)
}

func (r *sqlRepository) GetByEmail(
	ctx context.Context,
	email string,
) (*User, error) {
	return r.getWithFavorites(ctx, "get user by email", "email", email)
}

func (r *sqlRepository) GetWithSecretByID(
	ctx context.Context,
	id string,
) (*User, error) {
	user, err := r.getUser(ctx, r.db, userSecretColumns, "id", id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (r *sqlRepository) GetWithSecretByEmail(
	ctx context.Context,
	email string,
) (*User, error) {
	user, err := r.getUser(ctx, r.db, userSecretColumns, "email", email)
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return user, nil
}

func (r *sqlRepository) getWithFavorites(
	ctx context.Context,
	op, column, value string,
) (*User, error) {
	user, err := r.getUser(ctx, r.db, userColumns, column, value)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user.Favorites, err = r.listFavorites(ctx, r.db, user.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

func (r *sqlRepository) getUser(
	ctx context.Context,
	q core.DBTX,
	columns, column, value string,
) (*User, error) {
	query := r.db.Rebind(fmt.Sprintf(
		"SELECT %s FROM users WHERE %s = ?",
		columns,
		column,
	))

	var user User
	err := q.GetContext(ctx, &user, query, value)
	if errors.Is(err, sql.ErrNoRows) || isInvalidIDError(err) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &user, nil
}

func (r *sqlRepository) Update(
	ctx context.Context,
	id string,
	fields UpdateFields,
) (*User, error) {
	sets := []string{"updated_at = ?"}
	args := []any{now()}

	if fields.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *fields.Name)
	}
	if fields.Email != nil {
		sets = append(sets, "email = ?")
		args = append(args, *fields.Email)
	}
	if fields.PasswordHash != nil {
		sets = append(sets, "password_hash = ?")
		args = append(args, *fields.PasswordHash)
	}
	if fields.Role != nil {
		sets = append(sets, "role = ?")
		args = append(args, *fields.Role)
	}
	if fields.BumpTokenVersion {
		sets = append(sets, "token_version = token_version + 1")
	}
	args = append(args, id)

	query := r.db.Rebind(fmt.Sprintf(
		"UPDATE users SET %s WHERE id = ?",
		strings.Join(sets, ", "),
	))

	var updated *User
	err := core.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			if isDuplicateKeyError(err) {
				return core.ErrDuplicateKey
			}
			if isInvalidIDError(err) {
				return core.ErrNotFound
			}
			return err
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return core.ErrNotFound
		}

		updated, err = r.getUser(ctx, tx, userColumns, "id", id)
		if err != nil {
			return err
		}

		updated.Favorites, err = r.listFavorites(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	return updated, nil
}

func (r *sqlRepository) Delete(ctx context.Context, id string) error {
	err := core.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(
			ctx,
			r.db.Rebind(`DELETE FROM favorites WHERE user_id = ?`),
			id,
		); err != nil {
			if isInvalidIDError(err) {
				return core.ErrNotFound
			}
			return err
		}

		result, err := tx.ExecContext(
			ctx,
			r.db.Rebind(`DELETE FROM users WHERE id = ?`),
			id,
		)
		if err != nil {
			return err
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return core.ErrNotFound
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	return nil
}

func (r *sqlRepository) List(
	ctx context.Context,
	params ListUsersParams,
) ([]User, int, error) {
	params.Normalize()

	conditions := []string{"1 = 1"}
	var args []any

	if params.Search != "" {
		pattern := "%" + escapeLike(strings.ToLower(params.Search)) + "%"
		conditions = append(conditions,
			`(LOWER(email) LIKE ? ESCAPE '\' OR LOWER(name) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}

	if params.Role != "" {
		conditions = append(conditions, "role = ?")
		args = append(args, params.Role)
	}

	whereClause := strings.Join(conditions, " AND ")

	countQuery := r.db.Rebind(fmt.Sprintf(
		"SELECT COUNT(*) FROM users WHERE %s",
		whereClause,
	))
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	query := r.db.Rebind(fmt.Sprintf(`
		SELECT %s
		FROM users
		WHERE %s
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?`,
		userColumns, whereClause))

	args = append(args, params.PageSize, params.Offset())

	users := []User{}
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	return users, total, nil
}

func (r *sqlRepository) ListFavorites(
	ctx context.Context,
	id string,
) ([]Favorite, error) {
	if err := r.ensureUser(ctx, r.db, id); err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}

	favorites, err := r.listFavorites(ctx, r.db, id)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}

	return favorites, nil
}

// AddFavorite inserts fav unless the user already has that country. The
// (user_id, country) unique key makes concurrent adds converge on one row.
func (r *sqlRepository) AddFavorite(
	ctx context.Context,
	id string,
	fav Favorite,
) ([]Favorite, error) {
	if fav.AddedAt.IsZero() {
		fav.AddedAt = now()
	}

	query := r.db.Rebind(`
		INSERT INTO favorites (user_id, country, flag, added_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, country) DO NOTHING`)

	var favorites []Favorite
	err := core.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := r.ensureUser(ctx, tx, id); err != nil {
			return err
		}

		if _, err := tx.ExecContext(
			ctx, query, id, fav.Country, fav.Flag, fav.AddedAt,
		); err != nil {
			if isForeignKeyError(err) {
				return core.ErrNotFound
			}
			return err
		}

		var err error
		favorites, err = r.listFavorites(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("add favorite: %w", err)
	}

	return favorites, nil
}

func (r *sqlRepository) RemoveFavorite(
	ctx context.Context,
	id, country string,
) ([]Favorite, error) {
	query := r.db.Rebind(
		`DELETE FROM favorites WHERE user_id = ? AND country = ?`,
	)

	var favorites []Favorite
	err := core.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := r.ensureUser(ctx, tx, id); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, query, id, country); err != nil {
			return err
		}

		var err error
		favorites, err = r.listFavorites(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("remove favorite: %w", err)
	}

	return favorites, nil
}

func (r *sqlRepository) ensureUser(
	ctx context.Context,
	q core.DBTX,
	id string,
) error {
	var count int
	err := q.GetContext(
		ctx,
		&count,
		r.db.Rebind(`SELECT COUNT(*) FROM users WHERE id = ?`),
		id,
	)
	if isInvalidIDError(err) {
		return core.ErrNotFound
	}
	if err != nil {
		return err
	}
	if count == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *sqlRepository) listFavorites(
	ctx context.Context,
	q core.DBTX,
	id string,
) ([]Favorite, error) {
	query := r.db.Rebind(`
		SELECT country, flag, added_at
		FROM favorites
		WHERE user_id = ?
		ORDER BY id`)

	favorites := []Favorite{}
	if err := q.SelectContext(ctx, &favorites, query, id); err != nil {
		return nil, err
	}

	return favorites, nil
}

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		case sqlite3.SQLITE_CONSTRAINT:
			return strings.Contains(liteErr.Error(), "UNIQUE")
		}
	}

	return false
}

func isForeignKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgForeignKeyViolation
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return true
		case sqlite3.SQLITE_CONSTRAINT:
			return strings.Contains(liteErr.Error(), "FOREIGN KEY")
		}
	}

	return false
}

// isInvalidIDError matches Postgres rejecting a non-UUID id.
func isInvalidIDError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgInvalidTextRepr
	}
	return false
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "%", "\\%")
	s = strings.ReplaceAll(s, "_", "\\_")
	return s
}
