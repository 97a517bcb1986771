package devserver

import (
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/jrsteele09/go-reserve-client/api"
	"github.com/jrsteele09/go-reserve-client/internal/utils"
)

const (
	defaultRadiusKm = 3.0
	earthRadiusKm   = 6371.0
)

// matchRestaurant builds the keyword/category filter. "ALL" or an empty
// category does not filter.
func matchRestaurant(keyword, category string) func(*api.Restaurant) bool {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	category = strings.TrimSpace(category)
	return func(r *api.Restaurant) bool {
		if category != "" && category != api.CategoryAll && r.Category != category {
			return false
		}
		if keyword == "" {
			return true
		}
		for _, field := range []string{r.Name, r.Address, r.Category, r.Description} {
			if strings.Contains(strings.ToLower(field), keyword) {
				return true
			}
		}
		return false
	}
}

func (s *Server) ListRestaurantsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page, size := pageParams(r)
		list := s.restaurants.list(matchRestaurant(q.Get("keyword"), q.Get("category")))
		writeJSON(w, api.Paginate(list, page, size), http.StatusOK)
	}
}

// NearbyRestaurantsHandler lists restaurants within radiusKm of lat/lng,
// nearest first, each with its distance
func (s *Server) NearbyRestaurantsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
		lng, errLng := strconv.ParseFloat(q.Get("lng"), 64)
		if errLat != nil || errLng != nil {
			writeValidationError(w, "lat and lng are required", map[string]string{"lat": "required", "lng": "required"})
			return
		}
		radius := defaultRadiusKm
		if v := q.Get("radiusKm"); v != "" {
			parsed, err := strconv.ParseFloat(v, 64)
			if err != nil || parsed <= 0 {
				writeValidationError(w, "radiusKm must be positive", map[string]string{"radiusKm": "must be positive"})
				return
			}
			radius = parsed
		}

		match := matchRestaurant(q.Get("keyword"), q.Get("category"))
		var nearby []api.Restaurant
		for _, rest := range s.restaurants.list(match) {
			if rest.Latitude == 0 && rest.Longitude == 0 {
				continue
			}
			d := distanceKm(lat, lng, rest.Latitude, rest.Longitude)
			if d <= radius {
				rest.Distance = utils.Ptr(math.Round(d*100) / 100)
				nearby = append(nearby, rest)
			}
		}
		sort.SliceStable(nearby, func(i, j int) bool {
			return utils.Value(nearby[i].Distance) < utils.Value(nearby[j].Distance)
		})

		page, size := pageParams(r)
		writeJSON(w, api.Paginate(nearby, page, size), http.StatusOK)
	}
}

func (s *Server) GetRestaurantHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			writeJSONError(w, "Invalid restaurant id", http.StatusBadRequest)
			return
		}
		rest, ok := s.restaurants.get(id)
		if !ok {
			writeJSONError(w, "Restaurant not found", http.StatusNotFound)
			return
		}
		writeJSON(w, rest, http.StatusOK)
	}
}

// distanceKm is the haversine great circle distance
func distanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}
