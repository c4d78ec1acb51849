package httpx

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/club-portal/internal/auth"
	"github.com/ariefcatur/club-portal/internal/report"
)

type ReportsHandler struct {
	Reports *report.Service
}

func (h *ReportsHandler) RegisterStaff(r chi.Router) {
	r.Get("/overview", h.overview)
	r.Get("/reports/inventory.xlsx", h.inventory)
}

func (h *ReportsHandler) overview(w http.ResponseWriter, r *http.Request) {
	ov, err := h.Reports.Overview(r.Context(), auth.Actor(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ov)
}

func (h *ReportsHandler) inventory(w http.ResponseWriter, r *http.Request) {
	// buffer so a failure can still become a JSON error
	var buf bytes.Buffer
	if err := h.Reports.InventoryXLSX(r.Context(), auth.Actor(r.Context()), &buf); err != nil {
		writeError(w, r, err)
		return
	}
	name := fmt.Sprintf("inventory_%s.xlsx", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
