package api

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	apperrors "github.com/jrsteele09/go-reserve-client/internal/errors"
)

// Import answers "저장 완료: 27건" ("saved: 27")
var savedCountPattern = regexp.MustCompile(`(\d+)\s*건`)

// ImportRestaurants asks the backend to pull restaurants matching keyword from
// the map provider. It returns the backend's summary message.
func (c *Client) ImportRestaurants(ctx context.Context, keyword string) (string, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return "", apperrors.Wrapf(apperrors.ErrInvalidInput, "[api ImportRestaurants] keyword is required")
	}
	return c.doText(ctx, http.MethodPost, RouteAdminRestaurantImport, url.Values{"keyword": {keyword}}, nil)
}

// ParseSavedCount extracts the number of saved restaurants from an import
// summary. ok is false when the message carries no count.
func ParseSavedCount(message string) (count int, ok bool) {
	m := savedCountPattern.FindStringSubmatch(message)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

type AdminRestaurantQuery struct {
	Keyword string
	PageParams
}

func (c *Client) ListAdminRestaurants(ctx context.Context, q AdminRestaurantQuery) (*Page[Restaurant], error) {
	v := url.Values{}
	if q.Keyword != "" {
		v.Set("keyword", q.Keyword)
	}
	q.PageParams.apply(v)

	var page Page[Restaurant]
	if err := c.doJSON(ctx, http.MethodGet, RouteAdminRestaurants, v, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) DeleteAdminRestaurant(ctx context.Context, id int64) error {
	return c.doJSON(ctx, http.MethodDelete, withID(RouteAdminRestaurant, id), nil, nil, nil)
}
