package handler

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/pesio-ai/be-plt-grc/internal/apperrors"
	"github.com/pesio-ai/be-plt-grc/internal/domain"
	"github.com/pesio-ai/be-plt-grc/internal/service"
)

type loginRequest struct {
	Login     string `json:"login"`
	Password  string `json:"password"`
	CompanyID string `json:"companyId"`
}

type loginResponse struct {
	AccessToken        string       `json:"accessToken"`
	RefreshToken       string       `json:"refreshToken"`
	ExpiresIn          int64        `json:"expiresIn"`
	SessionID          string       `json:"sessionId"`
	CompanyID          string       `json:"companyId"`
	MustChangePassword bool         `json:"mustChangePassword"`
	User               *domain.User `json:"user"`
}

// Login handles login HTTP requests
func (h *HTTPHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	resp, err := h.svc.Auth.Login(r.Context(), &service.LoginRequest{
		Login:     req.Login,
		Password:  req.Password,
		CompanyID: req.CompanyID,
	})
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken:        resp.AccessToken,
		RefreshToken:       resp.RefreshToken,
		ExpiresIn:          resp.ExpiresIn,
		SessionID:          resp.Session.ID,
		CompanyID:          resp.Session.CompanyID,
		MustChangePassword: resp.User.MustChangePassword,
		User:               resp.User,
	})
}

// RefreshToken handles refresh token HTTP requests
func (h *HTTPHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	pair, err := h.svc.Auth.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

// Logout handles logout HTTP requests
func (h *HTTPHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Auth.Logout(r.Context(), SessionFrom(r.Context())); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

func (h *HTTPHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if err := h.svc.Auth.ChangePassword(r.Context(), SessionFrom(r.Context()), req.CurrentPassword, req.NewPassword); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the acting user and their effective permissions
func (h *HTTPHandler) Me(w http.ResponseWriter, r *http.Request) {
	sess := SessionFrom(r.Context())
	perms, err := h.svc.Roles.EffectivePermissions(sess)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user":        sess.Actor(),
		"companyId":   sess.CompanyID,
		"permissions": perms,
	})
}

func (h *HTTPHandler) CheckPermission(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	decision, err := h.svc.Roles.CheckPermission(SessionFrom(r.Context()),
		domain.Module(q.Get("module")), domain.Action(q.Get("action")))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, decision)
}

type riskScoreResponse struct {
	Score    int                  `json:"score"`
	Band     domain.RiskBand      `json:"band"`
	Findings []domain.RiskFinding `json:"findings"`
}

// ComputeRiskScore scores an ad-hoc questionnaire without storing anything
func (h *HTTPHandler) ComputeRiskScore(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Responses map[string]string `json:"responses"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	score := domain.ComputeRiskScore(req.Responses)
	writeJSON(w, http.StatusOK, riskScoreResponse{
		Score:    score,
		Band:     domain.BandFor(score),
		Findings: domain.ExplainRiskScore(req.Responses),
	})
}

// ListUsers handles list users HTTP requests
func (h *HTTPHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.Users.ListUsers(r.Context(), SessionFrom(r.Context()))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"users": users,
		"total": len(users),
	})
}

type createUserRequest struct {
	Username    string             `json:"username"`
	Email       string             `json:"email"`
	Password    string             `json:"password"`
	Role        domain.Role        `json:"role"`
	Permissions domain.Permissions `json:"permissions"`
}

// CreateUser handles create user HTTP requests
func (h *HTTPHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	resp, err := h.svc.Users.CreateUser(r.Context(), SessionFrom(r.Context()), &service.CreateUserRequest{
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		Role:        req.Role,
		Permissions: req.Permissions,
	})
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	out := map[string]interface{}{"user": resp.User}
	if resp.TemporaryPassword != "" {
		out["temporaryPassword"] = resp.TemporaryPassword
	}
	writeJSON(w, http.StatusCreated, out)
}

func (h *HTTPHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	user, err := h.svc.Users.GetUser(r.Context(), SessionFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *HTTPHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email       *string            `json:"email"`
		Role        *domain.Role       `json:"role"`
		Permissions domain.Permissions `json:"permissions"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	id, err := pathParam(r, "id")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	user, err := h.svc.Users.UpdateUser(r.Context(), SessionFrom(r.Context()), &service.UpdateUserRequest{
		ID:          id,
		Email:       req.Email,
		Role:        req.Role,
		Permissions: req.Permissions,
	})
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *HTTPHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if err := h.svc.Users.DeleteUser(r.Context(), SessionFrom(r.Context()), id); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	plain, err := h.svc.Users.ResetPassword(r.Context(), SessionFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"temporaryPassword": plain})
}

func (h *HTTPHandler) GetUserPermissions(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	perms, err := h.svc.Roles.GetUserPermissions(r.Context(), SessionFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, perms)
}

// pathParam returns a required, unescaped URL parameter. chi matches on the
// raw path when the client escaped reserved characters.
func pathParam(r *http.Request, name string) (string, error) {
	v, err := url.PathUnescape(chi.URLParam(r, name))
	if err != nil {
		return "", apperrors.Validation("invalid " + name)
	}
	if v == "" {
		return "", apperrors.Validation(name + " is required")
	}
	return v, nil
}
