// Package session issues and verifies the signed session tokens stored in the session cookie.
package session

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"
)

const CookieName = "app_session_id"

var (
	// errors
	ErrInvalidSession = errors.New("invalid session")
	errMissingSecret  = errors.New("session secret is not configured")
)

// Claims represents the session claims transmitted via the session cookie.
type Claims struct {
	jwt.StandardClaims
	OpenID string `json:"openId"`
	AppID  string `json:"appId"`
	Name   string `json:"name"`
}

// Valid rejects sessions missing any of the identifying claims.
func (c Claims) Valid() error {
	if err := c.StandardClaims.Valid(); err != nil {
		return err
	}
	if c.OpenID == "" || c.AppID == "" || c.Name == "" {
		return ErrInvalidSession
	}
	return nil
}

type Manager struct {
	secret []byte
	appID  string
	maxAge time.Duration
}

func NewManager(secret, appID string, maxAge time.Duration) *Manager {
	return &Manager{secret: []byte(secret), appID: appID, maxAge: maxAge}
}

func (m *Manager) MaxAge() time.Duration {
	return m.maxAge
}

// Create signs a session token for the user. expiresIn defaults to the manager max age.
func (m *Manager) Create(openID, name string, expiresIn ...time.Duration) (string, error) {
	if len(m.secret) == 0 {
		return "", errMissingSecret
	}
	exp := m.maxAge
	if len(expiresIn) > 0 {
		exp = expiresIn[0]
	}

	now := time.Now()
	claims := Claims{
		StandardClaims: jwt.StandardClaims{
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(exp).Unix(),
		},
		OpenID: openID,
		AppID:  m.appID,
		Name:   name,
	}
	ss, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", errors.Wrap(err, "signing session token")
	}
	return ss, nil
}

// Verify parses a session token and returns its claims.
func (m *Manager) Verify(token string) (Claims, error) {
	if token == "" {
		return Claims{}, ErrInvalidSession
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return Claims{}, errors.Wrap(ErrInvalidSession, err.Error())
	}
	return claims, nil
}
