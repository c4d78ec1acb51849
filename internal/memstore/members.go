package memstore

import (
	"context"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/club-portal/internal/domain"
	"github.com/ariefcatur/club-portal/internal/members"
)

func byName(a, b members.Member) int { return strings.Compare(a.FullName, b.FullName) }

func (s *Store) GetMember(_ context.Context, id string) (m members.Member, err error) {
	s.read(func(st *state) {
		var ok bool
		if m, ok = st.members[id]; !ok {
			err = domain.ErrMemberNotFound
		}
	})
	return
}

func (s *Store) InsertMember(_ context.Context, m members.Member) (err error) {
	s.read(func(st *state) {
		if _, dup := st.members[m.ID]; dup {
			err = domain.ErrConflict
			return
		}
		for _, other := range st.members {
			if strings.EqualFold(other.Email, m.Email) {
				err = domain.ErrConflict
				return
			}
		}
		st.members[m.ID] = m
	})
	return
}

func (s *Store) SearchMembers(_ context.Context, q string, limit int) ([]members.Member, error) {
	q = strings.ToLower(q)
	var out []members.Member
	s.read(func(st *state) {
		for _, m := range st.members {
			if strings.Contains(strings.ToLower(m.FullName), q) ||
				strings.Contains(strings.ToLower(m.ResidenceID), q) {
				out = append(out, m)
			}
		}
	})
	slices.SortFunc(out, byName)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) ListMembers(ctx context.Context) ([]members.Member, error) {
	return s.ListMembersByRole(ctx)
}

// ListMembersByRole with no roles lists everyone.
func (s *Store) ListMembersByRole(_ context.Context, roles ...domain.Role) ([]members.Member, error) {
	var out []members.Member
	s.read(func(st *state) {
		for _, m := range st.members {
			if len(roles) == 0 || slices.Contains(roles, m.Role) {
				out = append(out, m)
			}
		}
	})
	slices.SortFunc(out, byName)
	return out, nil
}

func (s *Store) update(id string, fn func(*members.Member)) (m members.Member, err error) {
	s.read(func(st *state) {
		var ok bool
		if m, ok = st.members[id]; !ok {
			err = domain.ErrMemberNotFound
			return
		}
		fn(&m)
		st.members[id] = m
	})
	return
}

func (s *Store) UpdateMemberRole(_ context.Context, id string, role domain.Role) (members.Member, error) {
	return s.update(id, func(m *members.Member) { m.Role = role })
}

func (s *Store) SetMemberAllowance(_ context.Context, id string, remaining decimal.Decimal) (members.Member, error) {
	return s.update(id, func(m *members.Member) { m.Remaining = remaining })
}

// DeleteMember cascades to the member's orders and messages.
func (s *Store) DeleteMember(_ context.Context, id string) (err error) {
	s.read(func(st *state) {
		if _, ok := st.members[id]; !ok {
			err = domain.ErrMemberNotFound
			return
		}
		delete(st.members, id)
		for oid, o := range st.orders {
			if o.MemberID == id {
				delete(st.orders, oid)
			}
		}
		for mid, msg := range st.messages {
			if msg.FromID == id || msg.ToID == id {
				delete(st.messages, mid)
			}
		}
	})
	return
}

func (s *Store) CountMembersByRole(_ context.Context) (map[domain.Role]int, error) {
	out := map[domain.Role]int{}
	s.read(func(st *state) {
		for _, m := range st.members {
			out[m.Role]++
		}
	})
	return out, nil
}
