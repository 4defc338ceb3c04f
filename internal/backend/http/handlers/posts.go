package handlers

import (
	"io"
	"net/http"
	"strconv"

	apierrors "github.com/pribylovaa/go-social-client/internal/backend/errors"
	"github.com/pribylovaa/go-social-client/internal/backend/http/middleware"
	"github.com/pribylovaa/go-social-client/internal/backend/service"
)

type createPostRequest struct {
	Content  string `json:"content"`
	MediaURL string `json:"mediaUrl"`
}

type feedResponse struct {
	Posts []postDTO `json:"posts"`
	Page  int       `json:"page"`
	Limit int       `json:"limit"`
	Total int       `json:"total"`
}

func (h *Handlers) Feed(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 1)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", service.DefaultPageLimit)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > service.MaxPageLimit {
		limit = service.DefaultPageLimit
	}

	items, total, err := h.Svc.Feed(r.Context(), middleware.UserIDFrom(r.Context()), r.URL.Query().Get("author"), page, limit)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	out := feedResponse{Posts: make([]postDTO, 0, len(items)), Page: page, Limit: limit, Total: total}
	for i := range items {
		out.Posts = append(out.Posts, toPostDTO(&items[i]))
	}

	writeData(w, http.StatusOK, out)
}

func (h *Handlers) Post(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	it, err := h.Svc.Post(r.Context(), middleware.UserIDFrom(r.Context()), id)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeData(w, http.StatusOK, map[string]postDTO{"post": toPostDTO(it)})
}

func (h *Handlers) CreatePost(w http.ResponseWriter, r *http.Request) {
	var in createPostRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, service.ErrInvalidArgument)
		return
	}

	it, err := h.Svc.CreatePost(r.Context(), middleware.UserIDFrom(r.Context()), in.Content, in.MediaURL)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeData(w, http.StatusCreated, map[string]postDTO{"post": toPostDTO(it)})
}

func (h *Handlers) DeletePost(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if err := h.Svc.DeletePost(r.Context(), middleware.UserIDFrom(r.Context()), id); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeData(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (h *Handlers) Like(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	it, err := h.Svc.Like(r.Context(), middleware.UserIDFrom(r.Context()), id)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeData(w, http.StatusOK, map[string]postDTO{"post": toPostDTO(it)})
}

func (h *Handlers) Unlike(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	it, err := h.Svc.Unlike(r.Context(), middleware.UserIDFrom(r.Context()), id)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeData(w, http.StatusOK, map[string]postDTO{"post": toPostDTO(it)})
}

// UploadMedia принимает multipart/form-data с файлом в поле "file".
func (h *Handlers) UploadMedia(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, service.MaxMediaSize+1<<20)

	file, hdr, err := r.FormFile("file")
	if err != nil {
		apierrors.WriteError(w, r, service.ErrInvalidArgument)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, service.MaxMediaSize+1))
	if err != nil {
		apierrors.WriteError(w, r, service.ErrInvalidArgument)
		return
	}

	m, err := h.Svc.UploadMedia(r.Context(), middleware.UserIDFrom(r.Context()), hdr.Filename, hdr.Header.Get("Content-Type"), data)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeData(w, http.StatusCreated, map[string]mediaDTO{"media": toMediaDTO(m)})
}

// Media отдаёт сырые байты файла.
func (h *Handlers) Media(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	m, err := h.Svc.Media(r.Context(), id)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", m.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(m.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(m.Data)
}
