package memstore

import (
	"context"
	"slices"

	"github.com/ariefcatur/club-portal/internal/domain"
	"github.com/ariefcatur/club-portal/internal/messages"
)

func (s *Store) InsertMessage(_ context.Context, m messages.Message) (err error) {
	s.read(func(st *state) {
		if _, ok := st.members[m.ToID]; !ok {
			err = domain.ErrMemberNotFound
			return
		}
		st.messages[m.ID] = m
	})
	return
}

func (s *Store) GetMessage(_ context.Context, id string) (m messages.Message, err error) {
	s.read(func(st *state) {
		var ok bool
		if m, ok = st.messages[id]; !ok {
			err = domain.ErrMessageNotFound
		}
	})
	return
}

func (s *Store) filterMessages(keep func(messages.Message) bool) []messages.Message {
	var out []messages.Message
	s.read(func(st *state) {
		for _, m := range st.messages {
			if keep(m) {
				out = append(out, m)
			}
		}
	})
	slices.SortFunc(out, func(a, b messages.Message) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out
}

func (s *Store) ListMessagesFor(_ context.Context, userID string) ([]messages.Message, error) {
	out := s.filterMessages(func(m messages.Message) bool { return m.FromID == userID || m.ToID == userID })
	slices.Reverse(out)
	return out, nil
}

func (s *Store) ListConversation(_ context.Context, a, b string) ([]messages.Message, error) {
	return s.filterMessages(func(m messages.Message) bool {
		return (m.FromID == a && m.ToID == b) || (m.FromID == b && m.ToID == a)
	}), nil
}

func (s *Store) MarkMessageRead(_ context.Context, id string) (err error) {
	s.read(func(st *state) {
		m, ok := st.messages[id]
		if !ok {
			err = domain.ErrMessageNotFound
			return
		}
		m.Read = true
		st.messages[id] = m
	})
	return
}

func (s *Store) CountUnread(_ context.Context, userID string) (int, error) {
	return len(s.filterMessages(func(m messages.Message) bool { return m.ToID == userID && !m.Read })), nil
}
