package inmemdb

import (
	"context"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/teleapo/core"
	"github.com/trezcool/teleapo/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

func userField(u user.User, field string) (time.Time, bool) {
	switch field {
	case "updated_at":
		return u.UpdatedAt, true
	case "last_signed_in":
		return u.LastSignedIn, true
	default:
		return u.CreatedAt, true
	}
}

func userID(u user.User) int { return u.ID }

// nullString maps empty strings to NULL.
func nullString(s string) null.String {
	return null.NewString(s, s != "")
}

func (repo *userRepository) findByOpenID(openID string) *user.User {
	for _, u := range repo.db.users {
		if u.OpenID == openID {
			return u
		}
	}
	return nil
}

func (repo *userRepository) UpsertUser(_ context.Context, uu user.UpsertUser, _ ...core.DBExecutor) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	now := time.Now().UTC()
	usr := repo.findByOpenID(uu.OpenID)
	if usr == nil {
		usr = &user.User{
			ID:        repo.db.nextID("users"),
			OpenID:    uu.OpenID,
			Role:      user.RoleAgent,
			CreatedAt: now,
		}
		repo.db.users[usr.ID] = usr
	}
	if uu.Name != nil {
		usr.Name = nullString(*uu.Name)
	}
	if uu.Email != nil {
		usr.Email = nullString(*uu.Email)
	}
	if uu.LoginMethod != nil {
		usr.LoginMethod = nullString(*uu.LoginMethod)
	}
	if uu.Role != nil {
		usr.Role = *uu.Role
	}
	usr.LastSignedIn = uu.LastSignedIn.UTC()
	usr.UpdatedAt = now
	return *usr, nil
}

func (repo *userRepository) GetUser(_ context.Context, filter user.GetFilter, _ ...core.DBExecutor) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var usr *user.User
	switch {
	case filter.ID != 0:
		usr = repo.db.users[filter.ID]
	case filter.OpenID != "":
		usr = repo.findByOpenID(filter.OpenID)
	}
	if usr == nil {
		return user.User{}, user.ErrNotFound
	}
	return *usr, nil
}

func (repo *userRepository) QueryUsers(_ context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	users := make([]user.User, 0, len(repo.db.users))
	for _, u := range repo.db.users {
		if filter.Matches(*u) {
			users = append(users, *u)
		}
	}
	sortBy(users, ordering, userField, userID)
	return users, nil
}

func (repo *userRepository) UpdateUserRole(_ context.Context, id int, role string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	usr, ok := repo.db.users[id]
	if !ok {
		return user.ErrNotFound
	}
	usr.Role = role
	usr.UpdatedAt = time.Now().UTC()
	return nil
}

func (repo *userRepository) UpdateGoogleTokens(_ context.Context, id int, tokens user.GoogleTokens, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	usr, ok := repo.db.users[id]
	if !ok {
		return user.ErrNotFound
	}
	usr.GoogleAccessToken = tokens.AccessToken
	usr.GoogleRefreshToken = tokens.RefreshToken
	usr.GoogleCalendarID = tokens.CalendarID
	usr.UpdatedAt = time.Now().UTC()
	return nil
}
