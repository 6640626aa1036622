package pgx

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/lborres/storefront/core"
)

const userColumns = `id::text, name, email, password_hash, is_admin, is_seller, country, age, created_at, updated_at`

func scanUser(row pgx.Row) (*core.User, error) {
	user := &core.User{}
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.IsAdmin, &user.IsSeller,
		&user.Country, &user.Age, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (a *Adapter) CreateUser(ctx context.Context, user *core.User) error {
	id := uuid.NewString()
	now := time.Now().UTC()

	q := `INSERT INTO users (id, name, email, password_hash, is_admin, is_seller, country, age, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`
	_, err := a.pool.Exec(ctx, q, id, user.Name, user.Email, user.PasswordHash, user.IsAdmin, user.IsSeller,
		user.Country, user.Age, now)
	if err != nil {
		if isUniqueViolation(err) {
			return core.ErrUserExists
		}
		return err
	}

	user.ID = id
	user.CreatedAt, user.UpdatedAt = now, now
	return nil
}

func (a *Adapter) GetUserByID(ctx context.Context, id string) (*core.User, error) {
	id, err := parseID(id)
	if err != nil {
		return nil, err
	}

	user, err := scanUser(a.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, core.ErrUserNotFound)
	}
	return user, nil
}

func (a *Adapter) GetUserByEmail(ctx context.Context, email string) (*core.User, error) {
	user, err := scanUser(a.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		return nil, notFound(err, core.ErrUserNotFound)
	}
	return user, nil
}

func (a *Adapter) ListUsers(ctx context.Context) ([]*core.User, error) {
	rows, err := a.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []*core.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (a *Adapter) UpdateUser(ctx context.Context, user *core.User) error {
	id, err := parseID(user.ID)
	if err != nil {
		return err
	}

	q := `UPDATE users SET name = $1, email = $2, password_hash = $3, is_admin = $4, is_seller = $5,
		country = $6, age = $7, updated_at = now() WHERE id = $8 RETURNING updated_at`
	var updatedAt time.Time
	err = a.pool.QueryRow(ctx, q, user.Name, user.Email, user.PasswordHash, user.IsAdmin, user.IsSeller,
		user.Country, user.Age, id).Scan(&updatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return core.ErrUserExists
		}
		return notFound(err, core.ErrUserNotFound)
	}
	user.UpdatedAt = updatedAt
	return nil
}

func (a *Adapter) DeleteUser(ctx context.Context, id string) error {
	id, err := parseID(id)
	if err != nil {
		return err
	}

	tag, err := a.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrUserNotFound
	}
	return nil
}

func (a *Adapter) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := a.pool.QueryRow(ctx, `SELECT count(*) FROM users`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
