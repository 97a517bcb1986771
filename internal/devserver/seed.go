package devserver

import (
	"fmt"

	"github.com/jrsteele09/go-reserve-client/api"
	"github.com/jrsteele09/go-reserve-client/internal/utils"
	"github.com/jrsteele09/go-reserve-client/members"
	"github.com/rs/zerolog/log"
)

var seedRestaurants = []api.Restaurant{
	{
		Name: "을지로 국밥", Address: "서울 중구 을지로 101", Category: "한식", Region: "서울",
		PriceRange: "10000-15000", OpeningHours: "10:00-21:00", Phone: "02-111-1111",
		Rating: utils.Ptr(4.5), Latitude: 37.5660, Longitude: 126.9910,
	},
	{
		Name: "명동 스시", Address: "서울 중구 명동길 12", Category: "일식", Region: "서울",
		PriceRange: "30000-60000", OpeningHours: "11:30-22:00", Phone: "02-222-2222",
		Rating: utils.Ptr(4.7), MaxPeoplePerReservation: utils.Ptr(4), Latitude: 37.5636, Longitude: 126.9826,
	},
	{
		Name: "해운대 횟집", Address: "부산 해운대구 해운대해변로 30", Category: "한식", Region: "부산",
		PriceRange: "40000-80000", OpeningHours: "12:00-23:00", Phone: "051-333-3333",
		Rating: utils.Ptr(4.2), Latitude: 35.1587, Longitude: 129.1604,
	},
	{
		Name: "판교 파스타", Address: "경기 성남시 분당구 판교역로 4", Category: "양식", Region: "경기",
		PriceRange: "18000-30000", OpeningHours: "11:00-21:30", Phone: "031-444-4444",
		Rating: utils.Ptr(4.0), MaxPeoplePerReservation: utils.Ptr(8), Latitude: 37.3947, Longitude: 127.1112,
	},
	{
		Name: "제주 흑돼지", Address: "제주 제주시 연동 77", Category: "한식", Region: "제주",
		PriceRange: "25000-45000", OpeningHours: "16:00-24:00", Phone: "064-555-5555",
		Latitude: 33.4890, Longitude: 126.4983,
	},
	{
		Name: "종로 딤섬", Address: "서울 종로구 종로 55", Category: "중식", Region: "서울",
		PriceRange: "15000-30000", OpeningHours: "11:00-21:00", Phone: "02-666-6666",
		Rating: utils.Ptr(3.9), Latitude: 37.5704, Longitude: 126.9921,
	},
}

// seed creates the admin account and the sample restaurants
func (s *Server) seed(adminEmail, adminPassword string) error {
	hash, err := members.HashPassword(adminPassword)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	admin, ok := s.accounts.create(account{
		Member: members.Member{
			Email:     adminEmail,
			Name:      "Administrator",
			Role:      members.RoleAdmin,
			Status:    members.StatusActive,
			CreatedAt: nowString(),
		},
		PasswordHash: hash,
	})
	if !ok {
		return fmt.Errorf("admin %s already exists", adminEmail)
	}

	for _, r := range seedRestaurants {
		s.restaurants.add(r)
	}
	log.Debug().Int64("admin_id", admin.ID).Int("restaurants", len(seedRestaurants)).Msg("Seeded development data")
	return nil
}
