package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/club-portal/internal/auth"
	"github.com/ariefcatur/club-portal/internal/logging"
	"github.com/ariefcatur/club-portal/internal/strains"
)

type StrainsHandler struct {
	Strains *strains.Service
}

// RegisterMember and RegisterStaff share handlers; the service filters
// hidden strains for members.
func (h *StrainsHandler) RegisterMember(r chi.Router) {
	r.Get("/strains", h.list)
	r.Get("/strains/{id}", h.get)
}

func (h *StrainsHandler) RegisterStaff(r chi.Router) {
	r.Get("/strains", h.list)
	r.Get("/strains/{id}", h.get)
	r.Post("/strains", h.create)
	r.Patch("/strains/{id}", h.update)
	r.Delete("/strains/{id}", h.delete)
}

func (h *StrainsHandler) list(w http.ResponseWriter, r *http.Request) {
	list, err := h.Strains.List(r.Context(), auth.Actor(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(list))
}

func (h *StrainsHandler) get(w http.ResponseWriter, r *http.Request) {
	s, err := h.Strains.Get(r.Context(), auth.Actor(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *StrainsHandler) create(w http.ResponseWriter, r *http.Request) {
	var in strains.Strain
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	s, err := h.Strains.Create(r.Context(), auth.Actor(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	logging.FromContext(r.Context()).Info("strain created", "strain_id", s.ID, "name", s.Name)
	writeJSON(w, http.StatusCreated, s)
}

func (h *StrainsHandler) update(w http.ResponseWriter, r *http.Request) {
	var p strains.Patch
	if err := decodeJSON(r, &p); err != nil {
		writeError(w, r, err)
		return
	}
	s, err := h.Strains.Update(r.Context(), auth.Actor(r.Context()), chi.URLParam(r, "id"), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *StrainsHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Strains.Delete(r.Context(), auth.Actor(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
