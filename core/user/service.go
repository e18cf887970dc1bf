package user

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/teleapo/core"
)

var (
	// errors
	ErrNotFound = core.NewNotFoundError("User not found")
	ErrNoOpenID = errors.New("openId is required")
	errNoIDP    = errors.New("identity provider not configured")
)

type (
	Repository interface {
		// UpsertUser inserts the user or updates the row with the same OpenID.
		UpsertUser(ctx context.Context, uu UpsertUser, exec ...core.DBExecutor) (User, error)
		GetUser(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (User, error)
		QueryUsers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]User, error)
		UpdateUserRole(ctx context.Context, id int, role string, exec ...core.DBExecutor) error
		UpdateGoogleTokens(ctx context.Context, id int, tokens GoogleTokens, exec ...core.DBExecutor) error
	}

	// Cache stores users by OpenID between requests.
	Cache interface {
		Get(ctx context.Context, openID string) (User, bool, error)
		Set(ctx context.Context, usr User) error
		Delete(ctx context.Context, openID string) error
	}

	// IdentityProvider resolves a session token into the identity it was issued for.
	IdentityProvider interface {
		GetUserInfoWithJWT(ctx context.Context, token string) (Identity, error)
	}

	Service struct {
		repo        Repository
		cache       Cache
		idp         IdentityProvider
		logger      core.Logger
		ownerOpenID string
	}
)

func NewService(repo Repository, cache Cache, idp IdentityProvider, logger core.Logger, ownerOpenID string) *Service {
	if cache == nil {
		cache = NopCache{}
	}
	return &Service{
		repo:        repo,
		cache:       cache,
		idp:         idp,
		logger:      logger,
		ownerOpenID: ownerOpenID,
	}
}

var createdAtDesc = []core.DBOrdering{{Field: "created_at"}}

func (svc *Service) Upsert(ctx context.Context, uu UpsertUser) (User, error) {
	if uu.OpenID == "" {
		return User{}, core.NewValidationError(ErrNoOpenID, core.FieldError{Field: "openId", Error: ErrNoOpenID.Error()})
	}
	if uu.Role == nil && svc.ownerOpenID != "" && uu.OpenID == svc.ownerOpenID {
		admin := RoleAdmin
		uu.Role = &admin
	}
	if uu.LastSignedIn.IsZero() {
		uu.LastSignedIn = time.Now().UTC()
	}

	usr, err := svc.repo.UpsertUser(ctx, uu)
	if err != nil {
		return User{}, err
	}
	svc.cacheUser(ctx, usr)
	return usr, nil
}

// SyncIdentity upserts the user described by an identity provider response.
func (svc *Service) SyncIdentity(ctx context.Context, id Identity, signedIn time.Time) (User, error) {
	return svc.Upsert(ctx, UpsertUser{
		OpenID:       id.OpenID,
		Name:         &id.Name,
		Email:        &id.Email,
		LoginMethod:  &id.LoginMethod,
		LastSignedIn: signedIn,
	})
}

// Authenticate resolves the user a verified session was issued for.
// Unknown users are fetched from the identity provider and created. lastSignedIn is refreshed on every call.
func (svc *Service) Authenticate(ctx context.Context, openID, sessionToken string) (User, error) {
	now := time.Now().UTC()

	_, err := svc.GetByOpenID(ctx, openID)
	switch {
	case err == nil:
		return svc.Upsert(ctx, UpsertUser{OpenID: openID, LastSignedIn: now})
	case core.IsNotFound(err):
		if svc.idp == nil {
			return User{}, errNoIDP
		}
		id, err := svc.idp.GetUserInfoWithJWT(ctx, sessionToken)
		if err != nil {
			return User{}, errors.Wrap(err, "syncing user from identity provider")
		}
		if id.OpenID == "" {
			id.OpenID = openID
		}
		return svc.SyncIdentity(ctx, id, now)
	default:
		return User{}, err
	}
}

func (svc *Service) GetByOpenID(ctx context.Context, openID string) (User, error) {
	if usr, ok, err := svc.cache.Get(ctx, openID); err != nil {
		svc.logWarn("user cache read failed", err)
	} else if ok {
		return usr, nil
	}

	usr, err := svc.repo.GetUser(ctx, GetFilter{OpenID: openID})
	if err != nil {
		return User{}, err
	}
	svc.cacheUser(ctx, usr)
	return usr, nil
}

func (svc *Service) GetByID(ctx context.Context, id int) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *Service) QueryAll(ctx context.Context) ([]User, error) {
	return svc.repo.QueryUsers(ctx, nil, createdAtDesc)
}

// QueryOperators returns every user that may work leads.
func (svc *Service) QueryOperators(ctx context.Context) ([]User, error) {
	return svc.repo.QueryUsers(ctx, &QueryFilter{ExcludeRoles: []string{RoleViewer}}, createdAtDesc)
}

func (svc *Service) UpdateRole(ctx context.Context, ur UpdateRole) error {
	usr, err := svc.repo.GetUser(ctx, GetFilter{ID: ur.UserID})
	if err != nil {
		return err
	}
	if err := svc.repo.UpdateUserRole(ctx, usr.ID, ur.Role); err != nil {
		return err
	}
	svc.uncacheUser(ctx, usr.OpenID)
	return nil
}

func (svc *Service) SetGoogleTokens(ctx context.Context, userID int, tokens GoogleTokens) error {
	usr, err := svc.repo.GetUser(ctx, GetFilter{ID: userID})
	if err != nil {
		return err
	}
	if err := svc.repo.UpdateGoogleTokens(ctx, usr.ID, tokens); err != nil {
		return err
	}
	svc.uncacheUser(ctx, usr.OpenID)
	return nil
}

func (svc *Service) ClearGoogleTokens(ctx context.Context, userID int) error {
	return svc.SetGoogleTokens(ctx, userID, GoogleTokens{})
}

func (svc *Service) cacheUser(ctx context.Context, usr User) {
	if err := svc.cache.Set(ctx, usr); err != nil {
		svc.logWarn("user cache write failed", err)
	}
}

func (svc *Service) uncacheUser(ctx context.Context, openID string) {
	if err := svc.cache.Delete(ctx, openID); err != nil {
		svc.logWarn("user cache delete failed", err)
	}
}

func (svc *Service) logWarn(msg string, err error) {
	if svc.logger != nil {
		svc.logger.Warn(msg, err)
	}
}

// NopCache is used when no cache is configured.
type NopCache struct{}

func (NopCache) Get(context.Context, string) (User, bool, error) { return User{}, false, nil }
func (NopCache) Set(context.Context, User) error                 { return nil }
func (NopCache) Delete(context.Context, string) error            { return nil }
