package placessvc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testutil "github.com/trezcool/teleapo/tests"
)

func TestService_Get(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/places/ChIJ123", r.URL.Path)
		assert.Equal(t, "places-key", r.URL.Query().Get("key"))
		assert.Equal(t, fields, r.URL.Query().Get("fields"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"displayName":{"text":"ACME"},"rating":4.5}`))
	}))
	defer srv.Close()

	conf := testutil.NewConfig()
	conf.Google.PlacesURL = srv.URL + "/"
	conf.Google.PlacesAPIKey = "places-key"

	res, err := NewService(conf).Get(context.Background(), "ChIJ123")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.JSONEq(t, `{"displayName":{"text":"ACME"},"rating":4.5}`, string(res.Body))
}

func TestService_GetErrors(t *testing.T) {
	conf := testutil.NewConfig()
	svc := NewService(conf)

	_, err := svc.Get(context.Background(), " ")
	assert.Equal(t, ErrMissingPlaceID, err)
	_, err = svc.Get(context.Background(), "ChIJ123")
	assert.Equal(t, ErrNotConfigured, err)
}
