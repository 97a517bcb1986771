package devserver

import (
	"net/http"

	"github.com/jrsteele09/go-reserve-client/api"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const RouteMetrics = "/metrics"

func (s *Server) initRoutes(reg *prometheus.Registry) {
	// Auth
	s.RegisterRouteHandler("POST "+api.RouteAuthLogin, ChainMiddleware(s.LoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+api.RouteAuthSignup, ChainMiddleware(s.SignupHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+api.RouteAuthReissue, ChainMiddleware(s.ReissueHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+api.RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware()...))

	// Members
	s.RegisterRouteHandler("GET "+api.RouteMembersMe, ChainMiddleware(s.MeHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("PUT "+api.RouteMembersMe, ChainMiddleware(s.UpdateMeHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("DELETE "+api.RouteMembersMe, ChainMiddleware(s.WithdrawMeHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("GET "+api.RouteMembers, ChainMiddleware(s.ListMembersHandler(), s.APIMiddleware(s.RequireAuth(), s.RequireAdmin())...))
	s.RegisterRouteHandler("GET "+api.RouteMembersWithdrawn, ChainMiddleware(s.ListWithdrawnMembersHandler(), s.APIMiddleware(s.RequireAuth(), s.RequireAdmin())...))
	s.RegisterRouteHandler("GET "+api.RouteMember, ChainMiddleware(s.GetMemberHandler(), s.APIMiddleware(s.RequireAuth(), s.RequireAdmin())...))
	s.RegisterRouteHandler("POST "+api.RouteMemberRestore, ChainMiddleware(s.RestoreMemberHandler(), s.APIMiddleware(s.RequireAuth(), s.RequireAdmin())...))

	// Restaurants are public
	s.RegisterRouteHandler("GET "+api.RouteRestaurants, ChainMiddleware(s.ListRestaurantsHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+api.RouteRestaurantsNearby, ChainMiddleware(s.NearbyRestaurantsHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+api.RouteRestaurant, ChainMiddleware(s.GetRestaurantHandler(), s.APIMiddleware()...))

	// Reservations
	s.RegisterRouteHandler("POST "+api.RouteReservationsAvailability, ChainMiddleware(s.AvailabilityHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("POST "+api.RouteReservations, ChainMiddleware(s.CreateReservationHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("GET "+api.RouteReservationsMe, ChainMiddleware(s.MyReservationsHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("PATCH "+api.RouteReservation, ChainMiddleware(s.UpdateReservationHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("DELETE "+api.RouteReservation, ChainMiddleware(s.CancelReservationHandler(), s.APIMiddleware(s.RequireAuth())...))

	// Admin
	s.RegisterRouteHandler("POST "+api.RouteAdminRestaurantImport, ChainMiddleware(s.ImportRestaurantsHandler(), s.APIMiddleware(s.RequireAuth(), s.RequireAdmin())...))
	s.RegisterRouteHandler("GET "+api.RouteAdminRestaurants, ChainMiddleware(s.AdminListRestaurantsHandler(), s.APIMiddleware(s.RequireAuth(), s.RequireAdmin())...))
	s.RegisterRouteHandler("DELETE "+api.RouteAdminRestaurant, ChainMiddleware(s.AdminDeleteRestaurantHandler(), s.APIMiddleware(s.RequireAuth(), s.RequireAdmin())...))

	s.RegisterRouteHandler("GET "+RouteMetrics, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	s.RegisterRouteFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, "No handler for "+r.Method+" "+r.URL.Path, http.StatusNotFound)
	})
}
