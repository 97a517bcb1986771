// Package devserver is an in-memory stand-in for the reservation backend. It
// serves the same REST surface with real HS256 access tokens and opaque
// refresh tokens, which is enough to run the CLI and the end to end tests
// without the Spring service.
package devserver

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/go-reserve-client/internal/config"
	"github.com/jrsteele09/go-reserve-client/members"
	"github.com/jrsteele09/go-reserve-client/token/jwt"
	"github.com/jrsteele09/go-reserve-client/token/refresh"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

const issuer = "reserve-devserver"

type Config interface {
	config.EnvConfig
	config.DevServerConfig
}

type Server struct {
	env     string
	mux     *http.ServeMux
	routes  []string
	metrics *metrics

	tokens     *jwt.Creator
	refresh    *refresh.Manager
	accessTTL  time.Duration
	refreshTTL time.Duration

	accounts     *accountRepo
	restaurants  *restaurantRepo
	reservations *reservationRepo
}

// New builds a server seeded with an admin account and sample restaurants.
// A nil reg gives the server a private metrics registry.
func New(c Config, reg *prometheus.Registry) (*Server, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	s := &Server{
		env:          c.GetEnv(),
		mux:          http.NewServeMux(),
		metrics:      newMetrics(reg),
		tokens:       jwt.NewCreator(c.GetJWTSecret(), issuer),
		refresh:      refresh.NewManager(refresh.NewInMemoryRepo(), c.GetRefreshTokenTTL()),
		accessTTL:    c.GetAccessTokenTTL(),
		refreshTTL:   c.GetRefreshTokenTTL(),
		accounts:     newAccountRepo(),
		restaurants:  newRestaurantRepo(),
		reservations: newReservationRepo(),
	}

	if err := s.seed(c.GetAdminEmail(), c.GetAdminPassword()); err != nil {
		return nil, fmt.Errorf("[devserver New] failed to seed data: %w", err)
	}

	s.initRoutes(reg)
	s.logRoutes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

// IssueAccessToken signs an access token for member valid for ttl. A negative
// ttl gives an expired token.
func (s *Server) IssueAccessToken(member *members.Member, ttl time.Duration) (string, error) {
	return s.tokens.CreateAccessToken(member, ttl)
}

// RevokeRefreshTokens invalidates every refresh token of memberID
func (s *Server) RevokeRefreshTokens(memberID int64) error {
	return s.refresh.RevokeMember(memberID)
}

// MemberByEmail returns a copy of the member registered with email
func (s *Server) MemberByEmail(email string) (*members.Member, bool) {
	acc, ok := s.accounts.byEmail(email)
	if !ok {
		return nil, false
	}
	m := acc.Member
	return &m, true
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	color, ok := methodColors[method]
	if !ok {
		color = Gray
	}
	log.Debug().Msgf("[%s] %s", color+paddedMethod+ResetColor, path)
}
