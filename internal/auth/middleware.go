package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/ariefcatur/club-portal/internal/domain"
	"github.com/ariefcatur/club-portal/internal/logging"
	"github.com/ariefcatur/club-portal/internal/members"
)

type Identity struct {
	Subject string
	Email   string
	Role    domain.Role
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}

// Actor is the zero Actor for unauthenticated requests, which every guard
// rejects.
func Actor(ctx context.Context) domain.Actor {
	id, _ := IdentityFrom(ctx)
	return domain.Actor{ID: id.Subject, Role: id.Role}
}

// Profiles provisions the member row on first login and reports its role.
type Profiles interface {
	EnsureProfile(ctx context.Context, id, email, fullName string) (members.Member, bool, error)
}

type Middleware struct {
	Verifier *Verifier
	Profiles Profiles
	// Fail writes the error response.
	Fail func(w http.ResponseWriter, r *http.Request, err error)
}

// Authenticate verifies the bearer token and stores the caller's Identity.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			m.Fail(w, r, ErrUnauthenticated)
			return
		}
		c, err := m.Verifier.Verify(strings.TrimSpace(raw))
		if err != nil {
			m.Fail(w, r, err)
			return
		}
		p, created, err := m.Profiles.EnsureProfile(r.Context(), c.Subject, c.Email, c.Name)
		if err != nil {
			m.Fail(w, r, err)
			return
		}
		log := logging.FromContext(r.Context()).With("user_id", p.ID, "role", p.Role)
		if created {
			log.Info("member profile created")
		}
		ctx := WithIdentity(r.Context(), Identity{Subject: p.ID, Email: p.Email, Role: p.Role})
		ctx = logging.IntoContext(ctx, log)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Require admits only callers holding one of roles; no roles means any
// authenticated caller.
func (m *Middleware) Require(roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := domain.Authorize(Actor(r.Context()), roles...); err != nil {
				m.Fail(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
