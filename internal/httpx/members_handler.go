package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/club-portal/internal/auth"
	"github.com/ariefcatur/club-portal/internal/domain"
	"github.com/ariefcatur/club-portal/internal/logging"
	"github.com/ariefcatur/club-portal/internal/members"
	"github.com/ariefcatur/club-portal/internal/orders"
)

const historyLen = 5

type MembersHandler struct {
	Members *members.Service
	Orders  *orders.Service
}

type memberProfile struct {
	members.Member
	RecentOrders []orders.Order `json:"recent_orders"`
}

func (h *MembersHandler) RegisterMember(r chi.Router) {
	r.Get("/profile", h.profile)
	r.Get("/staff", h.staffDirectory)
}

func (h *MembersHandler) RegisterStaff(r chi.Router) {
	r.Get("/members/search", h.search)
	r.Post("/members", h.create)
	r.Get("/members/{id}", h.memberProfile)
}

func (h *MembersHandler) RegisterAdmin(r chi.Router) {
	r.Get("/members", h.list)
	r.Patch("/members/{id}/role", h.updateRole)
	r.Put("/members/{id}/allowance", h.setAllowance)
	r.Delete("/members/{id}", h.delete)
	r.Get("/stats", h.stats)
}

func (h *MembersHandler) withHistory(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()
	m, err := h.Members.Get(ctx, auth.Actor(ctx), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	recent, err := h.Orders.MemberOrders(ctx, m.ID, historyLen)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, memberProfile{Member: m, RecentOrders: nonNil(recent)})
}

func (h *MembersHandler) profile(w http.ResponseWriter, r *http.Request) {
	h.withHistory(w, r, auth.Actor(r.Context()).ID)
}

func (h *MembersHandler) memberProfile(w http.ResponseWriter, r *http.Request) {
	h.withHistory(w, r, chi.URLParam(r, "id"))
}

func (h *MembersHandler) staffDirectory(w http.ResponseWriter, r *http.Request) {
	list, err := h.Members.StaffDirectory(r.Context(), auth.Actor(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	// members only need to know whom to write to
	out := make([]map[string]string, 0, len(list))
	for _, m := range list {
		out = append(out, map[string]string{"id": m.ID, "full_name": m.FullName, "role": string(m.Role)})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *MembersHandler) search(w http.ResponseWriter, r *http.Request) {
	list, err := h.Members.Search(r.Context(), auth.Actor(r.Context()), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(list))
}

func (h *MembersHandler) create(w http.ResponseWriter, r *http.Request) {
	var in members.NewMember
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	m, err := h.Members.Create(r.Context(), auth.Actor(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	logging.FromContext(r.Context()).Info("member created", "member_id", m.ID, "member_role", m.Role)
	writeJSON(w, http.StatusCreated, m)
}

func (h *MembersHandler) list(w http.ResponseWriter, r *http.Request) {
	list, err := h.Members.List(r.Context(), auth.Actor(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(list))
}

type roleReq struct {
	Role domain.Role `json:"role"`
}

func (h *MembersHandler) updateRole(w http.ResponseWriter, r *http.Request) {
	var req roleReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	m, err := h.Members.UpdateRole(r.Context(), auth.Actor(r.Context()), chi.URLParam(r, "id"), req.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}
	logging.FromContext(r.Context()).Info("member role changed", "member_id", m.ID, "member_role", m.Role)
	writeJSON(w, http.StatusOK, m)
}

type allowanceReq struct {
	Remaining decimal.Decimal `json:"monthly_limit_remaining"`
}

func (h *MembersHandler) setAllowance(w http.ResponseWriter, r *http.Request) {
	var req allowanceReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	m, err := h.Members.SetRemainingAllowance(r.Context(), auth.Actor(r.Context()), chi.URLParam(r, "id"), req.Remaining)
	if err != nil {
		writeError(w, r, err)
		return
	}
	logging.FromContext(r.Context()).Info("allowance adjusted", "member_id", m.ID, "remaining", m.Remaining.String())
	writeJSON(w, http.StatusOK, m)
}

func (h *MembersHandler) delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Members.Delete(r.Context(), auth.Actor(r.Context()), id); err != nil {
		writeError(w, r, err)
		return
	}
	logging.FromContext(r.Context()).Info("member deleted", "member_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *MembersHandler) stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.Members.Stats(r.Context(), auth.Actor(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
