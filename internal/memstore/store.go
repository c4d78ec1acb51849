// Package memstore is an in-process implementation of every repository
// interface, used by tests. One mutex serializes access, so transactions
// are trivially isolated.
package memstore

import (
	"context"
	"maps"
	"sync"

	"github.com/ariefcatur/club-portal/internal/members"
	"github.com/ariefcatur/club-portal/internal/messages"
	"github.com/ariefcatur/club-portal/internal/orders"
	"github.com/ariefcatur/club-portal/internal/strains"
)

type state struct {
	members  map[string]members.Member
	strains  map[string]strains.Strain
	orders   map[string]orders.Order
	messages map[string]messages.Message
}

func (s *state) clone() *state {
	return &state{
		members:  maps.Clone(s.members),
		strains:  maps.Clone(s.strains),
		orders:   maps.Clone(s.orders),
		messages: maps.Clone(s.messages),
	}
}

type Store struct {
	mu sync.Mutex
	st *state

	// Fail, when set, is consulted before each write made inside a
	// transaction; a non-nil result aborts the transaction with that error.
	Fail func(op string) error
}

func New() *Store {
	return &Store{st: &state{
		members:  map[string]members.Member{},
		strains:  map[string]strains.Strain{},
		orders:   map[string]orders.Order{},
		messages: map[string]messages.Message{},
	}}
}

var (
	_ orders.Store   = (*Store)(nil)
	_ members.Store  = (*Store)(nil)
	_ strains.Store  = (*Store)(nil)
	_ messages.Store = (*Store)(nil)
)

// WithTx runs fn against a private copy of the data and swaps it in only
// when fn succeeds.
func (s *Store) WithTx(ctx context.Context, fn func(orders.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	if err := fn(&tx{st: work, fail: s.Fail}); err != nil {
		return err
	}
	s.st = work
	return nil
}

// read runs fn under the lock.
func (s *Store) read(fn func(st *state)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.st)
}

// PutMember and PutStrain seed fixtures, bypassing validation.
func (s *Store) PutMember(m members.Member) {
	s.read(func(st *state) { st.members[m.ID] = m })
}

func (s *Store) PutStrain(p strains.Strain) {
	s.read(func(st *state) { st.strains[p.ID] = p })
}
