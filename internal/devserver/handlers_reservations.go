package devserver

import (
	"fmt"
	"net/http"
	"time"

	"github.com/jrsteele09/go-reserve-client/api"
	"github.com/jrsteele09/go-reserve-client/members"
	"github.com/jrsteele09/go-reserve-client/token/jwt"
	"github.com/rs/zerolog/log"
)

// SeatsPerSlot is how many guests one restaurant takes for a single date and time
const SeatsPerSlot = 20

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

func nowString() string {
	return NowTimeFunc().Format("2006-01-02T15:04:05")
}

func (s *Server) AvailabilityHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req api.AvailabilityRequest
		if err := readJSON(r, &req); err != nil {
			writeJSONError(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		rest, ok := s.restaurants.get(req.RestaurantID)
		if !ok {
			writeJSONError(w, "Restaurant not found", http.StatusNotFound)
			return
		}

		slot := api.ReservationRequest{ReservationDate: req.Date, ReservationTime: req.Time, PeopleCount: req.PeopleCount}
		if err := slot.Validate(rest.MaxPeople(), NowTimeFunc()); err != nil {
			writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}

		left := s.reservations.seatsLeft(rest.ID, req.Date, req.Time, SeatsPerSlot, 0)
		if req.PeopleCount > left {
			writeJSON(w, api.Availability{
				Available: false,
				Message:   fmt.Sprintf("Only %d seats left on %s at %s", max(left, 0), req.Date, req.Time),
			}, http.StatusOK)
			return
		}
		writeJSON(w, api.Availability{Available: true}, http.StatusOK)
	}
}

func (s *Server) CreateReservationHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req api.ReservationRequest
		if err := readJSON(r, &req); err != nil {
			writeJSONError(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		rest, ok := s.restaurants.get(req.RestaurantID)
		if !ok {
			writeJSONError(w, "Restaurant not found", http.StatusNotFound)
			return
		}
		if err := req.Validate(rest.MaxPeople(), NowTimeFunc()); err != nil {
			writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}

		res, _, ok := s.reservations.book(storedReservation{
			Reservation: api.Reservation{
				RestaurantID:    rest.ID,
				RestaurantName:  rest.Name,
				ReservationDate: req.ReservationDate,
				ReservationTime: req.ReservationTime + ":00",
				PeopleCount:     req.PeopleCount,
				CreatedAt:       nowString(),
			},
			MemberID: memberIDFrom(r),
		}, SeatsPerSlot)
		if !ok {
			writeJSONError(w, "The time slot is fully booked", http.StatusConflict)
			return
		}
		log.Info().Int64("reservation_id", res.ReservationID).Int64("restaurant_id", rest.ID).Msg("Reservation created")
		writeJSON(w, res, http.StatusCreated)
	}
}

func (s *Server) MyReservationsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, size := pageParams(r)
		writeJSON(w, api.Paginate(s.reservations.byMember(memberIDFrom(r)), page, size), http.StatusOK)
	}
}

// ownedReservation loads reservation {id} for its owner or an admin
func (s *Server) ownedReservation(w http.ResponseWriter, r *http.Request) (storedReservation, bool) {
	id, ok := pathID(r)
	if !ok {
		writeJSONError(w, "Invalid reservation id", http.StatusBadRequest)
		return storedReservation{}, false
	}
	res, ok := s.reservations.get(id)
	if !ok {
		writeJSONError(w, "Reservation not found", http.StatusNotFound)
		return storedReservation{}, false
	}
	claims, _ := r.Context().Value(ContextKeyClaims).(*jwt.Claims)
	isAdmin := claims != nil && members.Role(claims.Role) == members.RoleAdmin
	if res.MemberID != memberIDFrom(r) && !isAdmin {
		writeJSONError(w, "Not your reservation", http.StatusForbidden)
		return storedReservation{}, false
	}
	return res, true
}

func (s *Server) UpdateReservationHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, ok := s.ownedReservation(w, r)
		if !ok {
			return
		}
		var req api.ReservationRequest
		if err := readJSON(r, &req); err != nil {
			writeJSONError(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		rest, ok := s.restaurants.get(res.RestaurantID)
		if !ok {
			writeJSONError(w, "Restaurant not found", http.StatusNotFound)
			return
		}
		if err := req.Validate(rest.MaxPeople(), NowTimeFunc()); err != nil {
			writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		if !s.reservations.reschedule(res.ReservationID, req.ReservationDate, req.ReservationTime, req.PeopleCount, SeatsPerSlot) {
			writeJSONError(w, "The time slot is fully booked", http.StatusConflict)
			return
		}
		updated, _ := s.reservations.get(res.ReservationID)
		writeJSON(w, updated.Reservation, http.StatusOK)
	}
}

func (s *Server) CancelReservationHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, ok := s.ownedReservation(w, r)
		if !ok {
			return
		}
		s.reservations.delete(res.ReservationID)
		log.Info().Int64("reservation_id", res.ReservationID).Msg("Reservation cancelled")
		w.WriteHeader(http.StatusNoContent)
	}
}
