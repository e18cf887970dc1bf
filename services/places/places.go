// Package placessvc looks up places on the Google Places API.
package placessvc

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/trezcool/teleapo/core"
)

const fields = "displayName,formattedAddress,rating,userRatingCount"

var (
	// errors
	ErrMissingPlaceID = errors.New("missing placeId")
	ErrNotConfigured  = errors.New("GOOGLE_PLACES_API_KEY is not configured")
)

// Response is the raw Places API reply, forwarded as is.
type Response struct {
	StatusCode int
	Body       []byte
}

type Service struct {
	baseURL string
	apiKey  string
	client  *rest.Client
}

func NewService(conf *core.Config) *Service {
	return &Service{
		baseURL: strings.TrimSuffix(conf.Google.PlacesURL, "/"),
		apiKey:  conf.Google.PlacesAPIKey,
		client:  &rest.Client{HTTPClient: http.DefaultClient},
	}
}

// Get fetches the place details.
func (svc *Service) Get(ctx context.Context, placeID string) (Response, error) {
	placeID = strings.TrimSpace(placeID)
	if placeID == "" {
		return Response{}, ErrMissingPlaceID
	}
	if svc.apiKey == "" {
		return Response{}, ErrNotConfigured
	}

	res, err := svc.client.SendWithContext(ctx, rest.Request{
		Method:      rest.Get,
		BaseURL:     svc.baseURL + "/places/" + url.PathEscape(placeID),
		QueryParams: map[string]string{"key": svc.apiKey, "fields": fields},
	})
	if err != nil {
		return Response{}, errors.Wrap(err, "fetching place")
	}
	return Response{StatusCode: res.StatusCode, Body: []byte(res.Body)}, nil
}
