package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/club-portal/internal/auth"
	"github.com/ariefcatur/club-portal/internal/messages"
)

type MessagesHandler struct {
	Messages *messages.Service
}

type sendReq struct {
	ToID    string `json:"to_id"`
	Subject string `json:"subject"`
	Content string `json:"content"`
}

func (h *MessagesHandler) RegisterMember(r chi.Router) {
	r.Get("/messages", h.inbox)
	r.Post("/messages", h.send)
	r.Get("/messages/unread", h.unread)
	r.Post("/messages/{id}/read", h.markRead)
}

func (h *MessagesHandler) RegisterStaff(r chi.Router) {
	r.Get("/conversations/{memberID}", h.conversation)
}

func (h *MessagesHandler) inbox(w http.ResponseWriter, r *http.Request) {
	list, err := h.Messages.Inbox(r.Context(), auth.Actor(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(list))
}

func (h *MessagesHandler) send(w http.ResponseWriter, r *http.Request) {
	var req sendReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	m, err := h.Messages.Send(r.Context(), auth.Actor(r.Context()), req.ToID, req.Subject, req.Content)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (h *MessagesHandler) unread(w http.ResponseWriter, r *http.Request) {
	n, err := h.Messages.Unread(r.Context(), auth.Actor(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"unread": n})
}

func (h *MessagesHandler) markRead(w http.ResponseWriter, r *http.Request) {
	if err := h.Messages.MarkRead(r.Context(), auth.Actor(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *MessagesHandler) conversation(w http.ResponseWriter, r *http.Request) {
	list, err := h.Messages.Conversation(r.Context(), auth.Actor(r.Context()), chi.URLParam(r, "memberID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(list))
}
