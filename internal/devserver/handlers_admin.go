package devserver

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-reserve-client/api"
	"github.com/jrsteele09/go-reserve-client/internal/utils"
	"github.com/rs/zerolog/log"
)

// importBatch is how many places the fake map provider returns per keyword
const importBatch = 3

// ImportRestaurantsHandler stands in for the map provider import. Each keyword
// yields the same few places, so importing twice saves nothing the second time.
func (s *Server) ImportRestaurantsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		keyword := strings.TrimSpace(r.URL.Query().Get("keyword"))
		if keyword == "" {
			writeJSONError(w, "keyword is required", http.StatusBadRequest)
			return
		}

		saved := 0
		for i := 1; i <= importBatch; i++ {
			_, created := s.restaurants.add(api.Restaurant{
				Name:     fmt.Sprintf("%s %d호점", keyword, i),
				Address:  fmt.Sprintf("서울 중구 %s로 %d", keyword, i*10),
				Category: "한식",
				Region:   "서울",
				Phone:    fmt.Sprintf("02-000-%04d", i),
				Rating:   utils.Ptr(4.0),
			})
			if created {
				saved++
			}
		}
		log.Info().Str("keyword", keyword).Int("saved", saved).Msg("Restaurants imported")
		writeText(w, fmt.Sprintf("저장 완료: %d건", saved), http.StatusOK)
	}
}

func (s *Server) AdminListRestaurantsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, size := pageParams(r)
		list := s.restaurants.list(matchRestaurant(r.URL.Query().Get("keyword"), ""))
		writeJSON(w, api.Paginate(list, page, size), http.StatusOK)
	}
}

// AdminDeleteRestaurantHandler removes a restaurant and its reservations
func (s *Server) AdminDeleteRestaurantHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			writeJSONError(w, "Invalid restaurant id", http.StatusBadRequest)
			return
		}
		if !s.restaurants.delete(id) {
			writeJSONError(w, "Restaurant not found", http.StatusNotFound)
			return
		}
		s.reservations.deleteByRestaurant(id)
		w.WriteHeader(http.StatusNoContent)
	}
}
