package memstore

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/ariefcatur/club-portal/internal/domain"
	"github.com/ariefcatur/club-portal/internal/strains"
)

func (s *Store) GetStrain(_ context.Context, id string) (p strains.Strain, err error) {
	s.read(func(st *state) {
		var ok bool
		if p, ok = st.strains[id]; !ok {
			err = domain.ErrProductNotFound
		}
	})
	return
}

func (s *Store) ListStrains(_ context.Context, visibleOnly bool) ([]strains.Strain, error) {
	var out []strains.Strain
	s.read(func(st *state) {
		for _, p := range st.strains {
			if visibleOnly && !p.IsVisible {
				continue
			}
			out = append(out, p)
		}
	})
	slices.SortFunc(out, func(a, b strains.Strain) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

func (s *Store) InsertStrain(_ context.Context, p strains.Strain) (err error) {
	s.read(func(st *state) {
		if _, dup := st.strains[p.ID]; dup {
			err = domain.ErrConflict
			return
		}
		st.strains[p.ID] = p
	})
	return
}

func (s *Store) UpdateStrain(_ context.Context, id string, patch strains.Patch, at time.Time) (p strains.Strain, err error) {
	s.read(func(st *state) {
		cur, ok := st.strains[id]
		if !ok {
			err = domain.ErrProductNotFound
			return
		}
		p = patch.Apply(cur)
		p.UpdatedAt = at
		st.strains[id] = p
	})
	return
}

func (s *Store) DeleteStrain(_ context.Context, id string) (err error) {
	s.read(func(st *state) {
		if _, ok := st.strains[id]; !ok {
			err = domain.ErrProductNotFound
			return
		}
		for _, o := range st.orders {
			if o.ProductID == id {
				err = domain.Conflict("strain has orders; hide it instead of deleting")
				return
			}
		}
		delete(st.strains, id)
	})
	return
}
