package server

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/sewain/backend/internal/rental"
	"github.com/sewain/backend/internal/repository"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := s.reports.Dashboard(r.Context())
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, dashboard)
}

func (s *Server) handleRangeReport(w http.ResponseWriter, r *http.Request) {
	rows, err := s.reports.RangeReport(r.Context(), r.URL.Query().Get("range"))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.authSvc.ListUsers(r.Context())
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	resp := make([]userResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, toUserResponse(u))
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeactivateUser(w http.ResponseWriter, r *http.Request) {
	if err := s.authSvc.Deactivate(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "user deactivated"})
}

func (s *Server) handleForceLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.authSvc.ForceLogout(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "sessions revoked"})
}

func (s *Server) handleDeleteUserReport(w http.ResponseWriter, r *http.Request) {
	if err := s.userReports.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		if errors.Is(err, repository.ErrObjectNotFound) {
			s.respondServiceError(w, r, rental.NotFoundf("report not found"))
			return
		}
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "report deleted"})
}

func (s *Server) handleListUserReports(w http.ResponseWriter, r *http.Request) {
	reports, err := s.userReports.GetAll(r.Context())
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	if reports == nil {
		reports = []*repository.ReportWithNames{}
	}
	respondJSON(w, http.StatusOK, reports)
}
