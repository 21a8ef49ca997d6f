package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/saiyamvora13/vesabooks/internal/pkg/httputil"
	"github.com/saiyamvora13/vesabooks/internal/service/storybook"
)

// GenerateStorybook creates a new storybook from a prompt. Generation is
// synchronous; the book is persisted in "generating" state first so a
// failed run is still visible to the owner.
func (h *Handlers) GenerateStorybook(w http.ResponseWriter, r *http.Request) {
	var req storybook.GenerateRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	book, err := h.storybooks.Generate(r.Context(), userID(r.Context()), req)
	if err != nil {
		serviceError(w, err)
		return
	}
	httputil.Created(w, book)
}

// ListStorybooks returns the caller's storybooks, newest first.
func (h *Handlers) ListStorybooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.storybooks.ListMine(r.Context(), userID(r.Context()))
	if err != nil {
		serviceError(w, err)
		return
	}
	httputil.OK(w, map[string]interface{}{"items": books})
}

// GetStorybook returns one storybook if the caller owns it or it is public.
func (h *Handlers) GetStorybook(w http.ResponseWriter, r *http.Request) {
	book, err := h.storybooks.Get(r.Context(), userID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		serviceError(w, err)
		return
	}
	httputil.OK(w, book)
}

// UpdateStorybook edits the owner-editable fields.
func (h *Handlers) UpdateStorybook(w http.ResponseWriter, r *http.Request) {
	var req storybook.UpdateRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	book, err := h.storybooks.Update(r.Context(), userID(r.Context()), chi.URLParam(r, "id"), req)
	if err != nil {
		serviceError(w, err)
		return
	}
	httputil.OK(w, book)
}

// DeleteStorybook removes a storybook the caller owns.
func (h *Handlers) DeleteStorybook(w http.ResponseWriter, r *http.Request) {
	if err := h.storybooks.Delete(r.Context(), userID(r.Context()), chi.URLParam(r, "id")); err != nil {
		serviceError(w, err)
		return
	}
	httputil.NoContent(w)
}

// SetStorybookVisibility toggles gallery visibility.
func (h *Handlers) SetStorybookVisibility(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IsPublic bool `json:"is_public"`
	}
	if !httputil.Decode(w, r, &req) {
		return
	}
	if err := h.storybooks.SetPublic(r.Context(), userID(r.Context()), chi.URLParam(r, "id"), req.IsPublic); err != nil {
		serviceError(w, err)
		return
	}
	httputil.OK(w, map[string]bool{"is_public": req.IsPublic})
}

// ShareStorybook returns a compressed share token encoding the full story.
func (h *Handlers) ShareStorybook(w http.ResponseWriter, r *http.Request) {
	token, err := h.storybooks.ShareToken(r.Context(), userID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		serviceError(w, err)
		return
	}
	httputil.OK(w, map[string]string{"token": token})
}

// ResolveShareToken decodes a share token back into story content.
// No authentication: share links are bearer URLs.
func (h *Handlers) ResolveShareToken(w http.ResponseWriter, r *http.Request) {
	payload, err := h.storybooks.DecodeShareToken(chi.URLParam(r, "token"))
	if err != nil {
		httputil.BadRequest(w, "invalid share token")
		return
	}
	httputil.OK(w, payload)
}

// GetGallery returns public completed storybooks, paginated.
func (h *Handlers) GetGallery(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r, 20, 100)
	books, total, err := h.storybooks.Gallery(r.Context(), limit, offset)
	if err != nil {
		serviceError(w, err)
		return
	}
	httputil.OK(w, pagedResponse{Items: books, Total: total, Limit: limit, Offset: offset})
}
