package httpx

import (
	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/club-portal/internal/auth"
	"github.com/ariefcatur/club-portal/internal/domain"
)

// API mounts the authenticated routes:
//
//	/api/me/*     any member
//	/api/staff/*  staff, admin, master_admin
//	/api/admin/*  admin, master_admin
type API struct {
	Auth     *auth.Middleware
	Orders   *OrdersHandler
	Members  *MembersHandler
	Strains  *StrainsHandler
	Messages *MessagesHandler
	Reports  *ReportsHandler
}

func (a *API) Register(r chi.Router) {
	if a.Auth.Fail == nil {
		a.Auth.Fail = writeError
	}
	r.Route("/api", func(r chi.Router) {
		r.Use(a.Auth.Authenticate)

		r.Route("/me", func(r chi.Router) {
			r.Use(a.Auth.Require())
			a.Orders.RegisterMember(r)
			a.Members.RegisterMember(r)
			a.Strains.RegisterMember(r)
			a.Messages.RegisterMember(r)
		})
		r.Route("/staff", func(r chi.Router) {
			r.Use(a.Auth.Require(domain.StaffRoles...))
			a.Orders.RegisterStaff(r)
			a.Members.RegisterStaff(r)
			a.Strains.RegisterStaff(r)
			a.Messages.RegisterStaff(r)
			a.Reports.RegisterStaff(r)
		})
		r.Route("/admin", func(r chi.Router) {
			r.Use(a.Auth.Require(domain.AdminRoles...))
			a.Members.RegisterAdmin(r)
		})
	})
}
