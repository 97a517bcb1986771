package devserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-reserve-client/api"
	"github.com/jrsteele09/go-reserve-client/internal/validation"
	"github.com/jrsteele09/go-reserve-client/members"
	"github.com/rs/zerolog/log"
)

func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req api.LoginRequest
		if err := readJSON(r, &req); err != nil {
			writeJSONError(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		acc, ok := s.accounts.byEmail(strings.TrimSpace(req.Email))
		if !ok || !members.CheckPasswordHash(req.Password, acc.PasswordHash) {
			s.metrics.login(false)
			writeJSONError(w, "Invalid email or password", http.StatusUnauthorized)
			return
		}
		if acc.IsWithdrawn() {
			s.metrics.login(false)
			writeJSONError(w, "This account has been withdrawn", http.StatusUnauthorized)
			return
		}

		pair, err := s.issuePair(&acc.Member)
		if err != nil {
			log.Error().Err(err).Msg("Failed to issue tokens")
			writeJSONError(w, "Failed to issue tokens", http.StatusInternalServerError)
			return
		}
		s.metrics.login(true)
		log.Info().Int64("member_id", acc.ID).Msg("Member logged in")
		writeJSON(w, pair, http.StatusOK)
	}
}

func (s *Server) issuePair(member *members.Member) (*api.TokenPair, error) {
	access, err := s.tokens.CreateAccessToken(member, s.accessTTL)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.refresh.Create(member.ID)
	if err != nil {
		return nil, err
	}
	return &api.TokenPair{AccessToken: access, RefreshToken: refreshToken}, nil
}

func (s *Server) SignupHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req api.SignupRequest
		if err := readJSON(r, &req); err != nil {
			writeJSONError(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		fieldErrors := validateSignup(&req)
		if len(fieldErrors) > 0 {
			writeValidationError(w, "Validation failed", fieldErrors)
			return
		}

		hash, err := members.HashPassword(req.Password)
		if err != nil {
			writeJSONError(w, "Failed to hash password", http.StatusInternalServerError)
			return
		}

		member, ok := s.accounts.create(account{
			Member: members.Member{
				Email:     req.Email,
				Name:      req.Name,
				Role:      members.RoleUser,
				Status:    members.StatusActive,
				CreatedAt: nowString(),
			},
			PasswordHash: hash,
		})
		if !ok {
			writeJSONError(w, "Email is already registered", http.StatusConflict)
			return
		}
		log.Info().Int64("member_id", member.ID).Msg("Member signed up")
		writeJSON(w, member, http.StatusCreated)
	}
}

// validateSignup trims req in place and returns the messages per invalid field
func validateSignup(req *api.SignupRequest) map[string]string {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)

	var verr *validation.Error
	if err := validation.Struct(req); errors.As(err, &verr) {
		return verr.Fields()
	}
	return nil
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// ReissueHandler trades a refresh token for a new access token. The refresh
// token itself is not rotated.
func (s *Server) ReissueHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refreshRequest
		if err := readJSON(r, &req); err != nil || req.RefreshToken == "" {
			writeJSONError(w, "Refresh token is required", http.StatusBadRequest)
			return
		}

		stored, err := s.refresh.Validate(req.RefreshToken)
		if err != nil {
			s.metrics.reissue(false)
			writeJSONError(w, "Invalid or expired refresh token", http.StatusUnauthorized)
			return
		}
		acc, ok := s.accounts.get(stored.MemberID)
		if !ok || acc.IsWithdrawn() {
			s.metrics.reissue(false)
			_ = s.refresh.Delete(req.RefreshToken)
			writeJSONError(w, "Invalid or expired refresh token", http.StatusUnauthorized)
			return
		}

		access, err := s.tokens.CreateAccessToken(&acc.Member, s.accessTTL)
		if err != nil {
			writeJSONError(w, "Failed to issue token", http.StatusInternalServerError)
			return
		}
		s.metrics.reissue(true)
		writeJSON(w, map[string]string{"accessToken": access}, http.StatusOK)
	}
}

// LogoutHandler revokes the refresh token. Unknown tokens are not an error.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refreshRequest
		if err := readJSON(r, &req); err != nil {
			writeJSONError(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if req.RefreshToken != "" {
			_ = s.refresh.Delete(req.RefreshToken)
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
