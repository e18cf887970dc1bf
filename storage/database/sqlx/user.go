package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/teleapo/core"
	"github.com/trezcool/teleapo/core/user"
)

type userRepository struct {
	repository
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db core.DBExecutor) *userRepository {
	return &userRepository{repository{db: db}}
}

// nullable maps empty strings to NULL.
func nullable(s *string) interface{} {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}

func (repo userRepository) UpsertUser(ctx context.Context, uu user.UpsertUser, exec ...core.DBExecutor) (user.User, error) {
	now := time.Now().UTC()
	cols := []string{"open_id", "last_signed_in", "created_at", "updated_at"}
	args := []interface{}{uu.OpenID, uu.LastSignedIn.UTC(), now, now}
	updates := []string{"last_signed_in = EXCLUDED.last_signed_in", "updated_at = EXCLUDED.updated_at"}

	optional := []struct {
		col string
		val *string
	}{
		{"name", uu.Name},
		{"email", uu.Email},
		{"login_method", uu.LoginMethod},
	}
	for _, opt := range optional {
		if opt.val == nil {
			continue
		}
		cols = append(cols, opt.col)
		args = append(args, nullable(opt.val))
		updates = append(updates, opt.col+" = EXCLUDED."+opt.col)
	}
	if uu.Role != nil {
		cols = append(cols, "role")
		args = append(args, *uu.Role)
		updates = append(updates, "role = EXCLUDED.role")
	}

	q := "INSERT INTO users (" + strings.Join(cols, ", ") + ") VALUES (?" + strings.Repeat(", ?", len(cols)-1) + ")" +
		" ON CONFLICT (open_id) DO UPDATE SET " + strings.Join(updates, ", ") + " RETURNING *"

	exe := repo.getExec(exec)
	var usr user.User
	if err := sqlx.GetContext(ctx, exe, &usr, exe.Rebind(q), args...); err != nil {
		return user.User{}, errors.Wrap(err, "upserting user")
	}
	return usr, nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	var conds clauses
	switch {
	case filter.ID != 0:
		conds.add("id = ?", filter.ID)
	case filter.OpenID != "":
		conds.add("open_id = ?", filter.OpenID)
	default:
		return user.User{}, user.ErrNotFound
	}

	exe := repo.getExec(exec)
	var usr user.User
	if err := sqlx.GetContext(ctx, exe, &usr, exe.Rebind("SELECT * FROM users"+conds.where()+" LIMIT 1"), conds.args...); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user")
	}
	return usr, nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]user.User, error) {
	var conds clauses
	if !filter.IsEmpty() {
		if len(filter.Roles) > 0 {
			conds.add("role IN (?)", filter.Roles)
		}
		if len(filter.ExcludeRoles) > 0 {
			conds.add("role NOT IN (?)", filter.ExcludeRoles)
		}
	}

	exe := repo.getExec(exec)
	q, args, err := expand(exe, "SELECT * FROM users"+conds.where()+core.OrderBy(ordering...), conds.args)
	if err != nil {
		return nil, errors.Wrap(err, "building users query")
	}
	users := make([]user.User, 0)
	if err := sqlx.SelectContext(ctx, exe, &users, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return users, nil
}

func (repo userRepository) UpdateUserRole(ctx context.Context, id int, role string, exec ...core.DBExecutor) error {
	exe := repo.getExec(exec)
	res, err := exe.ExecContext(ctx, exe.Rebind("UPDATE users SET role = ?, updated_at = ? WHERE id = ?"), role, time.Now().UTC(), id)
	if err != nil {
		return errors.Wrap(err, "updating user role")
	}
	return checkAffected(res, user.ErrNotFound)
}

func (repo userRepository) UpdateGoogleTokens(ctx context.Context, id int, tokens user.GoogleTokens, exec ...core.DBExecutor) error {
	exe := repo.getExec(exec)
	q := "UPDATE users SET google_access_token = ?, google_refresh_token = ?, google_calendar_id = ?, updated_at = ? WHERE id = ?"
	res, err := exe.ExecContext(ctx, exe.Rebind(q),
		tokens.AccessToken, tokens.RefreshToken, tokens.CalendarID, time.Now().UTC(), id)
	if err != nil {
		return errors.Wrap(err, "updating google tokens")
	}
	return checkAffected(res, user.ErrNotFound)
}
