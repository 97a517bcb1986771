package devserver

import (
	"net/http"
	"strings"

	"github.com/jrsteele09/go-reserve-client/api"
	"github.com/jrsteele09/go-reserve-client/members"
	"github.com/rs/zerolog/log"
)

// currentMember loads the member behind the access token. A deleted or
// withdrawn member is answered with 401.
func (s *Server) currentMember(w http.ResponseWriter, r *http.Request) (account, bool) {
	acc, ok := s.accounts.get(memberIDFrom(r))
	if !ok || acc.IsWithdrawn() {
		writeJSONError(w, "Member not found", http.StatusUnauthorized)
		return account{}, false
	}
	return acc, true
}

func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		acc, ok := s.currentMember(w, r)
		if !ok {
			return
		}
		writeJSON(w, acc.Member, http.StatusOK)
	}
}

func (s *Server) UpdateMeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		acc, ok := s.currentMember(w, r)
		if !ok {
			return
		}

		var req api.UpdateMeRequest
		if err := readJSON(r, &req); err != nil {
			writeJSONError(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		name := strings.TrimSpace(req.Name)
		if name == "" {
			writeValidationError(w, "Validation failed", map[string]string{"name": "Name is required"})
			return
		}

		member, _ := s.accounts.update(acc.ID, func(m *members.Member) { m.Name = name })
		writeJSON(w, member, http.StatusOK)
	}
}

func (s *Server) WithdrawMeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		acc, ok := s.currentMember(w, r)
		if !ok {
			return
		}
		s.accounts.update(acc.ID, func(m *members.Member) { m.Status = members.StatusWithdrawn })
		if err := s.refresh.RevokeMember(acc.ID); err != nil {
			log.Warn().Err(err).Int64("member_id", acc.ID).Msg("Failed to revoke refresh tokens")
		}
		log.Info().Int64("member_id", acc.ID).Msg("Member withdrew")
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) ListMembersHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list := s.accounts.list(func(m *members.Member) bool { return !m.IsWithdrawn() })
		writeJSON(w, members.Filter(list, r.URL.Query().Get("keyword")), http.StatusOK)
	}
}

func (s *Server) ListWithdrawnMembersHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, s.accounts.list((*members.Member).IsWithdrawn), http.StatusOK)
	}
}

func (s *Server) GetMemberHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			writeJSONError(w, "Invalid member id", http.StatusBadRequest)
			return
		}
		acc, ok := s.accounts.get(id)
		if !ok {
			writeJSONError(w, "Member not found", http.StatusNotFound)
			return
		}
		writeJSON(w, acc.Member, http.StatusOK)
	}
}

func (s *Server) RestoreMemberHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			writeJSONError(w, "Invalid member id", http.StatusBadRequest)
			return
		}
		acc, ok := s.accounts.get(id)
		if !ok {
			writeJSONError(w, "Member not found", http.StatusNotFound)
			return
		}
		if !acc.IsWithdrawn() {
			writeJSONError(w, "Member is not withdrawn", http.StatusConflict)
			return
		}
		member, _ := s.accounts.update(id, func(m *members.Member) { m.Status = members.StatusActive })
		writeJSON(w, member, http.StatusOK)
	}
}
