package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/honeynil/TrustPay/internal/handler/respond"
	"github.com/honeynil/TrustPay/internal/models"
)

type registerRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

type payLinkResponse struct {
	TrustpayLink string `json:"trustpayLink"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := h.decode(w, r, &req); err != nil {
		respond.Error(w, err)
		return
	}

	profile, err := h.users.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, profile)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := h.decode(w, r, &req); err != nil {
		respond.Error(w, err)
		return
	}

	token, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, loginResponse{Message: "Login successful", Token: token})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := caller(w, r)
	if !ok {
		return
	}
	if err := h.users.Logout(r.Context(), claims); err != nil {
		respond.Error(w, err)
		return
	}
	respond.Message(w, http.StatusOK, "Logged out successfully")
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := caller(w, r)
	if !ok {
		return
	}
	profile, err := h.users.GetProfile(r.Context(), claims.UserID)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, profile)
}

// LookupUser resolves another user's public profile from their pay-link.
func (h *Handler) LookupUser(w http.ResponseWriter, r *http.Request) {
	if _, ok := caller(w, r); !ok {
		return
	}
	profile, err := h.users.LookupByLink(r.Context(), mux.Vars(r)["trustpayLink"])
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, profile)
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := caller(w, r)
	if !ok {
		return
	}
	var req models.ProfileUpdate
	if err := h.decode(w, r, &req); err != nil {
		respond.Error(w, err)
		return
	}

	profile, err := h.users.UpdateProfile(r.Context(), claims.UserID, req)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, profile)
}

func (h *Handler) GetPayLink(w http.ResponseWriter, r *http.Request) {
	claims, ok := caller(w, r)
	if !ok {
		return
	}
	link, err := h.users.GetPayLink(r.Context(), claims.UserID)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, payLinkResponse{TrustpayLink: link})
}
