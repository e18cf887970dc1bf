package user

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// IdentityProviderMock returns the identities registered by session token.
type IdentityProviderMock struct {
	mu         sync.Mutex
	Identities map[string]Identity
	Calls      int
}

func NewIdentityProviderMock() *IdentityProviderMock {
	return &IdentityProviderMock{Identities: make(map[string]Identity)}
}

func (idp *IdentityProviderMock) GetUserInfoWithJWT(_ context.Context, token string) (Identity, error) {
	idp.mu.Lock()
	defer idp.mu.Unlock()

	idp.Calls++
	id, ok := idp.Identities[token]
	if !ok {
		return Identity{}, errors.New("unknown session token")
	}
	return id, nil
}

// CacheMock is an in-process Cache.
type CacheMock struct {
	mu    sync.Mutex
	Users map[string]User
}

func NewCacheMock() *CacheMock {
	return &CacheMock{Users: make(map[string]User)}
}

func (c *CacheMock) Get(_ context.Context, openID string) (User, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	usr, ok := c.Users[openID]
	return usr, ok, nil
}

func (c *CacheMock) Set(_ context.Context, usr User) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Users[usr.OpenID] = usr
	return nil
}

func (c *CacheMock) Delete(_ context.Context, openID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.Users, openID)
	return nil
}
