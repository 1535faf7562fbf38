package sqlxrepos

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/fyp/core"
	"github.com/trezcool/fyp/core/user"
)

const userColumns = "user_id, name, email, is_active, roles, password_hash, created_at, updated_at, last_login"

type userRepository struct {
	db core.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db core.DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) trapErr(err error, msg string) error {
	if uniqueViolation(err, "users_email_key") {
		return user.ErrEmailExists
	}
	return trapNoRowsErr(err, user.ErrNotFound, msg)
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := `INSERT INTO users (name, email, is_active, roles, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + userColumns

	var created user.User
	err := repo.db.GetContext(ctx, &created, q,
		usr.Name, usr.Email, usr.IsActive, usr.Roles, usr.PasswordHash, usr.CreatedAt.UTC(), usr.UpdatedAt.UTC())
	if err != nil {
		return user.User{}, repo.trapErr(err, "inserting user")
	}
	return created, nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id int64) (user.User, error) {
	var usr user.User
	err := repo.db.GetContext(ctx, &usr, "SELECT "+userColumns+" FROM users WHERE user_id = $1", id)
	if err != nil {
		return user.User{}, repo.trapErr(err, "finding user by ID")
	}
	return usr, nil
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	var usr user.User
	err := repo.db.GetContext(ctx, &usr, "SELECT "+userColumns+" FROM users WHERE LOWER(email) = LOWER($1)", email)
	if err != nil {
		return user.User{}, repo.trapErr(err, "finding user by email")
	}
	return usr, nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	var (
		where []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter != nil {
		// users with Name or Email matching the search keyword
		if filter.Search != "" {
			p := arg("%" + filter.Search + "%")
			where = append(where, "(name ILIKE "+p+" OR email ILIKE "+p+")")
		}
		// users holding any of the roles
		if len(filter.Roles) > 0 {
			where = append(where, "roles && "+arg(user.Roles(filter.Roles))+"::TEXT[]")
		}
		if filter.IsActive != nil {
			where = append(where, "is_active = "+arg(*filter.IsActive))
		}
	}

	q := "SELECT " + userColumns + " FROM users"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	if len(ordering) == 0 {
		q += " ORDER BY created_at DESC, user_id DESC"
	} else {
		q += orderBy("", ordering, "user_id ASC")
	}

	users := make([]user.User, 0)
	if err := repo.db.SelectContext(ctx, &users, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return users, nil
}

func (repo *userRepository) EmailExists(ctx context.Context, email string, excludedID int64) (bool, error) {
	var exists bool
	err := repo.db.GetContext(ctx, &exists,
		"SELECT EXISTS (SELECT 1 FROM users WHERE LOWER(email) = LOWER($1) AND user_id <> $2)", email, excludedID)
	if err != nil {
		return false, errors.Wrap(err, "checking email uniqueness")
	}
	return exists, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := `UPDATE users SET name = $2, email = $3, roles = $4,
			password_hash = COALESCE($5, password_hash), updated_at = $6
		WHERE user_id = $1
		RETURNING ` + userColumns

	var hash interface{}
	if usr.PasswordHash != nil {
		hash = usr.PasswordHash
	}
	var updated user.User
	err := repo.db.GetContext(ctx, &updated, q, usr.ID, usr.Name, usr.Email, usr.Roles, hash, usr.UpdatedAt.UTC())
	if err != nil {
		return user.User{}, repo.trapErr(err, "updating user")
	}
	return updated, nil
}

func (repo *userRepository) SetUserActive(ctx context.Context, id int64, active bool) (user.User, error) {
	var usr user.User
	err := repo.db.GetContext(ctx, &usr,
		"UPDATE users SET is_active = $2, updated_at = NOW() WHERE user_id = $1 RETURNING "+userColumns, id, active)
	if err != nil {
		return user.User{}, repo.trapErr(err, "updating user status")
	}
	return usr, nil
}

func (repo *userRepository) SetLastLogin(ctx context.Context, id int64, at time.Time) (user.User, error) {
	var usr user.User
	err := repo.db.GetContext(ctx, &usr,
		"UPDATE users SET last_login = $2 WHERE user_id = $1 RETURNING "+userColumns, id, at.UTC())
	if err != nil {
		return user.User{}, repo.trapErr(err, "updating last login")
	}
	return usr, nil
}
