package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/pribylovaa/go-social-client/internal/backend/errors"
	"github.com/pribylovaa/go-social-client/internal/backend/http/middleware"
	"github.com/pribylovaa/go-social-client/internal/backend/models"
	"github.com/pribylovaa/go-social-client/internal/backend/service"
)

type updateProfileRequest struct {
	DisplayName *string `json:"displayName"`
	Bio         *string `json:"bio"`
	AvatarURL   *string `json:"avatarUrl"`
}

func (h *Handlers) Profile(w http.ResponseWriter, r *http.Request) {
	viewer := middleware.UserIDFrom(r.Context())

	p, err := h.Svc.Profile(r.Context(), chi.URLParam(r, "username"), viewer)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeData(w, http.StatusOK, map[string]userDTO{"user": toUserDTO(p, p.User.ID == viewer)})
}

func (h *Handlers) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var in updateProfileRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, service.ErrInvalidArgument)
		return
	}

	p, err := h.Svc.UpdateProfile(r.Context(), middleware.UserIDFrom(r.Context()), models.ProfileUpdate{
		DisplayName: in.DisplayName,
		Bio:         in.Bio,
		AvatarURL:   in.AvatarURL,
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeData(w, http.StatusOK, map[string]userDTO{"user": toUserDTO(p, true)})
}

func (h *Handlers) Follow(w http.ResponseWriter, r *http.Request) {
	p, err := h.Svc.Follow(r.Context(), middleware.UserIDFrom(r.Context()), chi.URLParam(r, "username"))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeData(w, http.StatusOK, map[string]userDTO{"user": toUserDTO(p, false)})
}

func (h *Handlers) Unfollow(w http.ResponseWriter, r *http.Request) {
	p, err := h.Svc.Unfollow(r.Context(), middleware.UserIDFrom(r.Context()), chi.URLParam(r, "username"))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeData(w, http.StatusOK, map[string]userDTO{"user": toUserDTO(p, false)})
}
