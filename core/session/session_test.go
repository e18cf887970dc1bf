package session

import (
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_CreateVerify(t *testing.T) {
	mgr := NewManager("secret", "app-id", time.Hour)

	token, err := mgr.Create("open-1", "Jane")
	require.NoError(t, err)

	claims, err := mgr.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "open-1", claims.OpenID)
	assert.Equal(t, "app-id", claims.AppID)
	assert.Equal(t, "Jane", claims.Name)
	assert.InDelta(t, time.Now().Add(time.Hour).Unix(), claims.ExpiresAt, 5)
}

func TestManager_Verify(t *testing.T) {
	mgr := NewManager("secret", "app-id", time.Hour)

	valid, _ := mgr.Create("open-1", "Jane")
	expired, _ := mgr.Create("open-1", "Jane", -time.Minute)
	noName, _ := mgr.Create("open-1", "")
	otherKey, _ := NewManager("other", "app-id", time.Hour).Create("open-1", "Jane")
	unsigned, _ := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{OpenID: "open-1", AppID: "app-id", Name: "Jane"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	otherAlg, _ := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{OpenID: "open-1", AppID: "app-id", Name: "Jane"}).
		SignedString([]byte("secret"))

	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{name: "empty", token: "", wantErr: true},
		{name: "garbage", token: "not.a.token", wantErr: true},
		{name: "expired", token: expired, wantErr: true},
		{name: "missing claim", token: noName, wantErr: true},
		{name: "wrong key", token: otherKey, wantErr: true},
		{name: "none alg", token: unsigned, wantErr: true},
		{name: "HS512", token: otherAlg, wantErr: true},
		{name: "valid", token: valid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := mgr.Verify(tt.token)
			if tt.wantErr {
				assert.Equal(t, ErrInvalidSession, errors.Cause(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestManager_CreateWithoutSecret(t *testing.T) {
	_, err := NewManager("", "app-id", time.Hour).Create("open-1", "Jane")
	assert.Error(t, err)
}
