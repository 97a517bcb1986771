package devserver

import (
	"sort"
	"strings"
	"sync"

	"github.com/jrsteele09/go-reserve-client/api"
	"github.com/jrsteele09/go-reserve-client/members"
)

type account struct {
	members.Member
	PasswordHash string
}

type accountRepo struct {
	mu       sync.RWMutex
	nextID   int64
	accounts map[int64]*account
}

func newAccountRepo() *accountRepo {
	return &accountRepo{accounts: make(map[int64]*account)}
}

// create stores acc under a new ID. It reports false when the email is taken.
func (r *accountRepo) create(acc account) (members.Member, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.accounts {
		if strings.EqualFold(existing.Email, acc.Email) {
			return members.Member{}, false
		}
	}
	r.nextID++
	acc.ID = r.nextID
	r.accounts[acc.ID] = &acc
	return acc.Member, true
}

func (r *accountRepo) get(id int64) (account, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acc, ok := r.accounts[id]
	if !ok {
		return account{}, false
	}
	return *acc, true
}

func (r *accountRepo) byEmail(email string) (account, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, acc := range r.accounts {
		if strings.EqualFold(acc.Email, email) {
			return *acc, true
		}
	}
	return account{}, false
}

// update applies fn to the stored member and returns the result
func (r *accountRepo) update(id int64, fn func(*members.Member)) (members.Member, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.accounts[id]
	if !ok {
		return members.Member{}, false
	}
	fn(&acc.Member)
	return acc.Member, true
}

// list returns members ordered by ID, filtered by keep when it is not nil
func (r *accountRepo) list(keep func(*members.Member) bool) []members.Member {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]members.Member, 0, len(r.accounts))
	for _, acc := range r.accounts {
		if keep == nil || keep(&acc.Member) {
			out = append(out, acc.Member)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type restaurantRepo struct {
	mu          sync.RWMutex
	nextID      int64
	restaurants map[int64]api.Restaurant
}

func newRestaurantRepo() *restaurantRepo {
	return &restaurantRepo{restaurants: make(map[int64]api.Restaurant)}
}

// add stores r unless a restaurant with the same name and address exists
func (repo *restaurantRepo) add(r api.Restaurant) (api.Restaurant, bool) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	for _, existing := range repo.restaurants {
		if existing.Name == r.Name && existing.Address == r.Address {
			return existing, false
		}
	}
	repo.nextID++
	r.ID = repo.nextID
	repo.restaurants[r.ID] = r
	return r, true
}

func (repo *restaurantRepo) get(id int64) (api.Restaurant, bool) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()
	r, ok := repo.restaurants[id]
	return r, ok
}

func (repo *restaurantRepo) delete(id int64) bool {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if _, ok := repo.restaurants[id]; !ok {
		return false
	}
	delete(repo.restaurants, id)
	return true
}

func (repo *restaurantRepo) list(keep func(*api.Restaurant) bool) []api.Restaurant {
	repo.mu.RLock()
	defer repo.mu.RUnlock()
	out := make([]api.Restaurant, 0, len(repo.restaurants))
	for _, r := range repo.restaurants {
		if keep == nil || keep(&r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type storedReservation struct {
	api.Reservation
	MemberID int64
}

type reservationRepo struct {
	mu           sync.RWMutex
	nextID       int64
	reservations map[int64]*storedReservation
}

func newReservationRepo() *reservationRepo {
	return &reservationRepo{reservations: make(map[int64]*storedReservation)}
}

// book stores res when the slot still has room for its party. It returns the
// seats left in the slot when it does not.
func (repo *reservationRepo) book(res storedReservation, capacity int) (api.Reservation, int, bool) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	left := capacity - repo.seatsTakenLocked(res.RestaurantID, res.ReservationDate, res.Time(), 0)
	if res.PeopleCount > left {
		return api.Reservation{}, left, false
	}
	repo.nextID++
	res.ReservationID = repo.nextID
	repo.reservations[res.ReservationID] = &res
	return res.Reservation, left - res.PeopleCount, true
}

// seatsLeft is capacity minus the seats booked for the slot, not counting
// reservation skip
func (repo *reservationRepo) seatsLeft(restaurantID int64, date, clock string, capacity int, skip int64) int {
	repo.mu.RLock()
	defer repo.mu.RUnlock()
	return capacity - repo.seatsTakenLocked(restaurantID, date, clock, skip)
}

func (repo *reservationRepo) seatsTakenLocked(restaurantID int64, date, clock string, skip int64) int {
	taken := 0
	for id, r := range repo.reservations {
		if id == skip || r.RestaurantID != restaurantID {
			continue
		}
		if r.ReservationDate == date && r.Time() == clock {
			taken += r.PeopleCount
		}
	}
	return taken
}

func (repo *reservationRepo) get(id int64) (storedReservation, bool) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()
	r, ok := repo.reservations[id]
	if !ok {
		return storedReservation{}, false
	}
	return *r, true
}

// reschedule moves reservation id to a new slot when the slot has room
func (repo *reservationRepo) reschedule(id int64, date, clock string, people, capacity int) bool {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	r, ok := repo.reservations[id]
	if !ok {
		return false
	}
	if people > capacity-repo.seatsTakenLocked(r.RestaurantID, date, clock, id) {
		return false
	}
	r.ReservationDate = date
	r.ReservationTime = clock + ":00"
	r.PeopleCount = people
	return true
}

func (repo *reservationRepo) delete(id int64) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	delete(repo.reservations, id)
}

// byMember returns the member's reservations, most recent slot first
func (repo *reservationRepo) byMember(memberID int64) []api.Reservation {
	repo.mu.RLock()
	defer repo.mu.RUnlock()
	out := make([]api.Reservation, 0)
	for _, r := range repo.reservations {
		if r.MemberID == memberID {
			out = append(out, r.Reservation)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ReservationDate != out[j].ReservationDate {
			return out[i].ReservationDate > out[j].ReservationDate
		}
		if out[i].Time() != out[j].Time() {
			return out[i].Time() > out[j].Time()
		}
		return out[i].ReservationID > out[j].ReservationID
	})
	return out
}

func (repo *reservationRepo) deleteByRestaurant(restaurantID int64) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	for id, r := range repo.reservations {
		if r.RestaurantID == restaurantID {
			delete(repo.reservations, id)
		}
	}
}
