package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	apperrors "github.com/jrsteele09/go-reserve-client/internal/errors"
	"github.com/jrsteele09/go-reserve-client/internal/validation"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"

	DefaultReservationTime = "11:30"
)

// Reservation is one entry of the signed in member's reservation list
type Reservation struct {
	ReservationID   int64  `json:"reservationId"`
	RestaurantID    int64  `json:"restaurantId"`
	RestaurantName  string `json:"restaurantName"`
	ReservationDate string `json:"reservationDate"`
	ReservationTime string `json:"reservationTime"` // HH:MM or HH:MM:SS
	PeopleCount     int    `json:"peopleCount"`
	CreatedAt       string `json:"createdAt,omitempty"`
}

// Time returns the reservation time as HH:MM
func (r Reservation) Time() string {
	if len(r.ReservationTime) > 5 {
		return r.ReservationTime[:5]
	}
	return r.ReservationTime
}

// At returns when the reservation takes place in loc. ok is false when the
// date or time cannot be parsed.
func (r Reservation) At(loc *time.Location) (at time.Time, ok bool) {
	if r.ReservationDate == "" || r.ReservationTime == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(DateLayout+" "+TimeLayout, r.ReservationDate+" "+r.Time(), loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// SplitUpcoming separates reservations still ahead of now, soonest first, from
// past ones, most recent first. Reservations with an unreadable date count as
// upcoming.
func SplitUpcoming(list []Reservation, now time.Time) (upcoming, past []Reservation) {
	loc := now.Location()
	for _, r := range list {
		if at, ok := r.At(loc); ok && at.Before(now) {
			past = append(past, r)
		} else {
			upcoming = append(upcoming, r)
		}
	}

	sort.SliceStable(upcoming, func(i, j int) bool {
		a, _ := upcoming[i].At(loc)
		b, _ := upcoming[j].At(loc)
		return a.Before(b)
	})
	sort.SliceStable(past, func(i, j int) bool {
		a, _ := past[i].At(loc)
		b, _ := past[j].At(loc)
		return a.After(b)
	})
	return upcoming, past
}

type AvailabilityRequest struct {
	RestaurantID int64  `json:"restaurantId"`
	Date         string `json:"date"`
	Time         string `json:"time"`
	PeopleCount  int    `json:"peopleCount"`
}

type Availability struct {
	Available bool   `json:"available"`
	Message   string `json:"message,omitempty"`
}

// ReservationRequest creates a reservation, or edits one when RestaurantID is zero
type ReservationRequest struct {
	RestaurantID    int64  `json:"restaurantId,omitempty"`
	ReservationDate string `json:"reservationDate" validate:"required,datetime=2006-01-02"`
	ReservationTime string `json:"reservationTime" validate:"required,datetime=15:04"`
	PeopleCount     int    `json:"peopleCount" validate:"gte=1"`
}

// Validate applies the checks made before anything is sent: a date that is not
// in the past, a time, and a party of one up to maxPeople.
func (r ReservationRequest) Validate(maxPeople int, now time.Time) error {
	if err := validation.Struct(r); err != nil {
		return err
	}
	return validateSlot(r.ReservationDate, r.PeopleCount, maxPeople, now)
}

func (r ReservationRequest) availability() AvailabilityRequest {
	return AvailabilityRequest{
		RestaurantID: r.RestaurantID,
		Date:         r.ReservationDate,
		Time:         r.ReservationTime,
		PeopleCount:  r.PeopleCount,
	}
}

func validateSlot(date string, people, maxPeople int, now time.Time) error {
	day, err := time.ParseInLocation(DateLayout, date, now.Location())
	if err != nil {
		return apperrors.Wrapf(apperrors.ErrInvalidInput, "date %q is not YYYY-MM-DD", date)
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if day.Before(today) {
		return apperrors.Wrapf(apperrors.ErrInvalidInput, "date %s is in the past", date)
	}
	if maxPeople < 1 {
		maxPeople = DefaultMaxPeople
	}
	if people > maxPeople {
		return apperrors.Wrapf(apperrors.ErrInvalidInput, "at most %d people per reservation", maxPeople)
	}
	return nil
}

func (c *Client) CheckAvailability(ctx context.Context, req AvailabilityRequest) (*Availability, error) {
	var a Availability
	if err := c.doJSON(ctx, http.MethodPost, RouteReservationsAvailability, nil, req, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *Client) CreateReservation(ctx context.Context, req ReservationRequest) (*Reservation, error) {
	if req.RestaurantID == 0 {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidInput, "[api CreateReservation] restaurant is required")
	}
	var r Reservation
	if err := c.doJSON(ctx, http.MethodPost, RouteReservations, nil, req, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Reserve checks availability and books the slot when it is free. An
// unavailable slot returns the backend's message wrapped in ErrConflict.
func (c *Client) Reserve(ctx context.Context, restaurant *Restaurant, req ReservationRequest, now time.Time) (*Reservation, error) {
	req.RestaurantID = restaurant.ID
	if err := req.Validate(restaurant.MaxPeople(), now); err != nil {
		return nil, err
	}

	availability, err := c.CheckAvailability(ctx, req.availability())
	if err != nil {
		return nil, err
	}
	if !availability.Available {
		msg := availability.Message
		if msg == "" {
			msg = "slot is not available"
		}
		return nil, fmt.Errorf("%w: %s", apperrors.ErrConflict, msg)
	}
	return c.CreateReservation(ctx, req)
}

// MyReservations lists the signed in member's reservations
func (c *Client) MyReservations(ctx context.Context, p PageParams) (*Page[Reservation], error) {
	q := url.Values{}
	p.apply(q)

	var page Page[Reservation]
	if err := c.doJSON(ctx, http.MethodGet, RouteReservationsMe, q, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// UpdateReservation changes date, time and party size of reservation id
func (c *Client) UpdateReservation(ctx context.Context, id int64, req ReservationRequest) error {
	req.RestaurantID = 0
	return c.doJSON(ctx, http.MethodPatch, withID(RouteReservation, id), nil, req, nil)
}

func (c *Client) CancelReservation(ctx context.Context, id int64) error {
	return c.doJSON(ctx, http.MethodDelete, withID(RouteReservation, id), nil, nil, nil)
}
