package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/sewain/backend/internal/attachment"
	"github.com/sewain/backend/internal/auth"
	"github.com/sewain/backend/internal/rental"
	"github.com/sewain/backend/internal/repository"
)

type userResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
}

func toUserResponse(u *repository.User) userResponse {
	return userResponse{
		ID:       u.ID,
		Name:     u.Name,
		Email:    u.Email,
		Role:     u.Role,
		IsActive: u.IsActive,
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name            string `json:"name"`
		Email           string `json:"email"`
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirm_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ConfirmPassword != "" && req.ConfirmPassword != req.Password {
		respondError(w, http.StatusBadRequest, "passwords do not match")
		return
	}

	user, err := s.authSvc.Register(r.Context(), auth.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toUserResponse(user))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, user, err := s.authSvc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  toUserResponse(user),
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		respondError(w, http.StatusUnauthorized, "missing bearer token")
		return
	}
	rotated, err := s.authSvc.Refresh(r.Context(), token)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"token": rotated})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.authSvc.Logout(r.Context(), bearerToken(r)); err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	profile, err := s.authSvc.GetProfile(r.Context(), p.UserID)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

// handleUpdateProfile accepts multipart so the profile photo can ride along
// with the text fields.
func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxOrderFormSize)
	if err := r.ParseMultipartForm(maxOrderFormSize); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	var in auth.ProfileUpdateInput
	if v := r.FormValue("phone"); v != "" {
		in.Phone = &v
	}
	if v := r.FormValue("gender"); v != "" {
		in.Gender = &v
	}
	if v := r.FormValue("address"); v != "" {
		in.Address = &v
	}
	if v := r.FormValue("birthdate"); v != "" {
		birthdate, err := time.Parse("2006-01-02", v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid birthdate, use YYYY-MM-DD")
			return
		}
		in.Birthdate = &birthdate
	}
	if ref, err := s.storeUpload(r, "photo", attachment.KindImage); err != nil {
		s.respondServiceError(w, r, err)
		return
	} else if ref != "" {
		in.Photo = &ref
	}

	profile, err := s.authSvc.UpdateProfile(r.Context(), p.UserID, in)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())

	var req struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.authSvc.ChangePassword(r.Context(), p.UserID, req.OldPassword, req.NewPassword); err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}

func (s *Server) handleReportUser(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())

	var req struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Reason == "" {
		s.respondServiceError(w, r, rental.Invalidf("reason is required"))
		return
	}
	reportedID := mux.Vars(r)["id"]
	if reportedID == p.UserID {
		s.respondServiceError(w, r, rental.Invalidf("cannot report yourself"))
		return
	}

	report := &repository.Report{
		ID:             uuid.NewString(),
		ReporterID:     p.UserID,
		ReportedUserID: reportedID,
		Reason:         req.Reason,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.userReports.Create(r.Context(), report); err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, report)
}
