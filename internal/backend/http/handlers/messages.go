package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	apierrors "github.com/pribylovaa/go-social-client/internal/backend/errors"
	"github.com/pribylovaa/go-social-client/internal/backend/http/middleware"
	"github.com/pribylovaa/go-social-client/internal/backend/service"
)

type sendMessageRequest struct {
	Text string `json:"text"`
}

func (h *Handlers) Notifications(w http.ResponseWriter, r *http.Request) {
	list, err := h.Svc.Notifications(r.Context(), middleware.UserIDFrom(r.Context()))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	out := make([]notificationDTO, 0, len(list))
	unread := 0
	for i := range list {
		if !list[i].Notification.Read {
			unread++
		}
		out = append(out, toNotificationDTO(&list[i]))
	}

	writeData(w, http.StatusOK, map[string]any{"notifications": out, "unread": unread})
}

func (h *Handlers) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if err := h.Svc.MarkNotificationRead(r.Context(), middleware.UserIDFrom(r.Context()), id); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeData(w, http.StatusOK, map[string]bool{"read": true})
}

func (h *Handlers) Conversations(w http.ResponseWriter, r *http.Request) {
	uid := middleware.UserIDFrom(r.Context())

	convs, err := h.Svc.Conversations(r.Context(), uid)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	me, err := h.Svc.UserByID(r.Context(), uid)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	out := make([]conversationDTO, 0, len(convs))
	for i := range convs {
		c := &convs[i]
		names := map[uuid.UUID]string{me.ID: me.Username, c.Peer.ID: c.Peer.Username}
		out = append(out, conversationDTO{
			User:        toAuthorDTO(&c.Peer),
			LastMessage: toMessageDTO(&c.Last, names),
		})
	}

	writeData(w, http.StatusOK, map[string]any{"conversations": out})
}

func (h *Handlers) Thread(w http.ResponseWriter, r *http.Request) {
	uid := middleware.UserIDFrom(r.Context())

	peer, msgs, err := h.Svc.Thread(r.Context(), uid, chi.URLParam(r, "username"))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	me, err := h.Svc.UserByID(r.Context(), uid)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	names := map[uuid.UUID]string{me.ID: me.Username, peer.ID: peer.Username}
	out := make([]messageDTO, 0, len(msgs))
	for i := range msgs {
		out = append(out, toMessageDTO(&msgs[i], names))
	}

	writeData(w, http.StatusOK, map[string]any{"user": toAuthorDTO(peer), "messages": out})
}

func (h *Handlers) SendMessage(w http.ResponseWriter, r *http.Request) {
	var in sendMessageRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, service.ErrInvalidArgument)
		return
	}

	uid := middleware.UserIDFrom(r.Context())
	username := chi.URLParam(r, "username")

	msg, err := h.Svc.SendMessage(r.Context(), uid, username, in.Text)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	me, err := h.Svc.UserByID(r.Context(), uid)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	names := map[uuid.UUID]string{me.ID: me.Username, msg.ToID: username}
	writeData(w, http.StatusCreated, map[string]messageDTO{"message": toMessageDTO(msg, names)})
}
