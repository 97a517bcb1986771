package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultMaxPeople applies when a restaurant does not state its own limit
	DefaultMaxPeople = 6

	// CategoryAll asks the backend not to filter by category
	CategoryAll = "ALL"
)

type Restaurant struct {
	ID                      int64    `json:"id"`
	Name                    string   `json:"name"`
	Address                 string   `json:"address"`
	Category                string   `json:"category,omitempty"`
	Region                  string   `json:"region,omitempty"`
	PriceRange              string   `json:"priceRange,omitempty"`
	Description             string   `json:"description,omitempty"`
	OpeningHours            string   `json:"openingHours,omitempty"`
	Phone                   string   `json:"phone,omitempty"`
	ImageURL                string   `json:"imageUrl,omitempty"`
	ImageURLs               []string `json:"imageUrls,omitempty"`
	Rating                  *float64 `json:"rating,omitempty"`
	MaxPeoplePerReservation *int     `json:"maxPeoplePerReservation,omitempty"`
	Latitude                float64  `json:"lat,omitempty"`
	Longitude               float64  `json:"lng,omitempty"`
	Distance                *float64 `json:"distance,omitempty"` // km, nearby search only
}

// MaxPeople returns the party size limit for one reservation
func (r *Restaurant) MaxPeople() int {
	if r == nil || r.MaxPeoplePerReservation == nil || *r.MaxPeoplePerReservation < 1 {
		return DefaultMaxPeople
	}
	return *r.MaxPeoplePerReservation
}

// Image returns the first gallery image, falling back to the single image URL
func (r *Restaurant) Image() string {
	if len(r.ImageURLs) > 0 && r.ImageURLs[0] != "" {
		return r.ImageURLs[0]
	}
	return r.ImageURL
}

type RestaurantQuery struct {
	Keyword  string
	Category string
	PageParams
}

func (q RestaurantQuery) values() url.Values {
	v := url.Values{}
	if k := strings.TrimSpace(q.Keyword); k != "" {
		v.Set("keyword", k)
	}
	if q.Category != "" {
		v.Set("category", q.Category)
	}
	q.PageParams.apply(v)
	return v
}

type NearbyQuery struct {
	Lat      float64
	Lng      float64
	RadiusKm float64
	RestaurantQuery
}

func (q NearbyQuery) values() url.Values {
	v := q.RestaurantQuery.values()
	v.Set("lat", strconv.FormatFloat(q.Lat, 'f', -1, 64))
	v.Set("lng", strconv.FormatFloat(q.Lng, 'f', -1, 64))
	if q.RadiusKm > 0 {
		v.Set("radiusKm", strconv.FormatFloat(q.RadiusKm, 'f', -1, 64))
	}
	return v
}

func (c *Client) ListRestaurants(ctx context.Context, q RestaurantQuery) (*Page[Restaurant], error) {
	var page Page[Restaurant]
	if err := c.doJSON(ctx, http.MethodGet, RouteRestaurants, q.values(), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// NearbyRestaurants lists restaurants within RadiusKm of a point, nearest first
func (c *Client) NearbyRestaurants(ctx context.Context, q NearbyQuery) (*Page[Restaurant], error) {
	var page Page[Restaurant]
	if err := c.doJSON(ctx, http.MethodGet, RouteRestaurantsNearby, q.values(), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) GetRestaurant(ctx context.Context, id int64) (*Restaurant, error) {
	var r Restaurant
	if err := c.doJSON(ctx, http.MethodGet, withID(RouteRestaurant, id), nil, nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
