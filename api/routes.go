package api

// Backend paths
const (
	RouteAuthLogin   = "/api/auth/login"
	RouteAuthSignup  = "/api/auth/signup"
	RouteAuthReissue = "/api/auth/reissue"
	RouteAuthLogout  = "/api/auth/logout"

	RouteMembers          = "/api/members"
	RouteMembersMe        = "/api/members/me"
	RouteMembersWithdrawn = "/api/members/withdrawn"
	RouteMember           = "/api/members/{id}"
	RouteMemberRestore    = "/api/members/{id}/restore"

	RouteRestaurants       = "/api/restaurants"
	RouteRestaurantsNearby = "/api/restaurants/nearby"
	RouteRestaurant        = "/api/restaurants/{id}"

	RouteReservations             = "/api/reservations"
	RouteReservationsMe           = "/api/reservations/me"
	RouteReservationsAvailability = "/api/reservations/availability"
	RouteReservation              = "/api/reservations/{id}"

	RouteAdminRestaurants      = "/api/admin/restaurants"
	RouteAdminRestaurantImport = "/api/admin/restaurants/import"
	RouteAdminRestaurant       = "/api/admin/restaurants/{id}"
)
