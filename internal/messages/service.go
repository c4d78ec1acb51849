// Package messages is the member/staff inbox.
package messages

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ariefcatur/club-portal/internal/domain"
)

const maxContent = 4000

type Store interface {
	// InsertMessage fails with domain.ErrMemberNotFound for an unknown recipient.
	InsertMessage(ctx context.Context, m Message) error
	GetMessage(ctx context.Context, id string) (Message, error)
	// ListMessagesFor returns messages sent or received by userID, newest first.
	ListMessagesFor(ctx context.Context, userID string) ([]Message, error)
	// ListConversation returns messages between a and b, oldest first.
	ListConversation(ctx context.Context, a, b string) ([]Message, error)
	MarkMessageRead(ctx context.Context, id string) error
	CountUnread(ctx context.Context, userID string) (int, error)
}

type Service struct {
	Store Store
	Now   func() time.Time
}

func NewService(s Store) *Service {
	return &Service{Store: s, Now: func() time.Time { return time.Now().UTC() }}
}

func (s *Service) Send(ctx context.Context, actor domain.Actor, to, subject, content string) (Message, error) {
	if err := domain.Authorize(actor); err != nil {
		return Message{}, err
	}
	to = strings.TrimSpace(to)
	content = strings.TrimSpace(content)
	if to == "" || content == "" {
		return Message{}, domain.Invalid("recipient and content are required")
	}
	if len(content) > maxContent {
		return Message{}, domain.Invalid("message is longer than %d characters", maxContent)
	}
	m := Message{
		ID:        uuid.NewString(),
		FromID:    actor.ID,
		ToID:      to,
		Subject:   strings.TrimSpace(subject),
		Content:   content,
		CreatedAt: s.Now(),
	}
	if err := s.Store.InsertMessage(ctx, m); err != nil {
		return Message{}, err
	}
	return m, nil
}

func (s *Service) Inbox(ctx context.Context, actor domain.Actor) ([]Message, error) {
	if err := domain.Authorize(actor); err != nil {
		return nil, err
	}
	return s.Store.ListMessagesFor(ctx, actor.ID)
}

// Conversation is the staff view of one member's thread with the actor.
func (s *Service) Conversation(ctx context.Context, actor domain.Actor, memberID string) ([]Message, error) {
	if err := domain.Authorize(actor, domain.StaffRoles...); err != nil {
		return nil, err
	}
	return s.Store.ListConversation(ctx, actor.ID, memberID)
}

// MarkRead is allowed to the recipient only.
func (s *Service) MarkRead(ctx context.Context, actor domain.Actor, id string) error {
	if err := domain.Authorize(actor); err != nil {
		return err
	}
	m, err := s.Store.GetMessage(ctx, id)
	if err != nil {
		return err
	}
	if m.ToID != actor.ID {
		return domain.ErrMessageNotFound
	}
	if m.Read {
		return nil
	}
	return s.Store.MarkMessageRead(ctx, id)
}

func (s *Service) Unread(ctx context.Context, actor domain.Actor) (int, error) {
	if err := domain.Authorize(actor); err != nil {
		return 0, err
	}
	return s.Store.CountUnread(ctx, actor.ID)
}
