// Package notify turns order status events into inbox messages for the
// member who placed the order.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/ariefcatur/club-portal/internal/domain"
	kafkax "github.com/ariefcatur/club-portal/internal/kafka"
	"github.com/ariefcatur/club-portal/internal/messages"
	"github.com/ariefcatur/club-portal/internal/orders"
	"github.com/ariefcatur/club-portal/internal/strains"
)

// Deduper remembers processed event ids. redisx.Dedup implements it.
type Deduper interface {
	FirstSeen(ctx context.Context, id string) (bool, error)
	Forget(ctx context.Context, id string) error
}

type Sender interface {
	Send(ctx context.Context, actor domain.Actor, to, subject, content string) (messages.Message, error)
}

type Catalog interface {
	GetStrain(ctx context.Context, id string) (strains.Strain, error)
}

type Service struct {
	Dedup    Deduper
	Messages Sender
	Strains  Catalog
	// SenderID is the staff account the messages are sent from.
	SenderID string
	Log      *slog.Logger
}

// HandleStatusChanged is installed as the consumer handler for
// orders.TopicOrderStatusChanged.
func (s *Service) HandleStatusChanged(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		// a poison message would block the partition forever
		s.Log.Warn("dropping undecodable event", "offset", m.Offset, "err", err)
		return nil
	}
	if env.EventType != orders.EventOrderStatusChanged {
		return nil
	}

	first, err := s.Dedup.FirstSeen(ctx, env.EventID)
	if err != nil {
		return err
	}
	if !first {
		s.Log.Debug("duplicate event", "event_id", env.EventID)
		return nil
	}

	if err := s.handle(ctx, env); err != nil {
		if ferr := s.Dedup.Forget(ctx, env.EventID); ferr != nil {
			s.Log.Error("forget dedup key", "event_id", env.EventID, "err", ferr)
		}
		return err
	}
	return nil
}

func (s *Service) handle(ctx context.Context, env orders.Envelope) error {
	p, err := kafkax.UnwrapPayload[orders.OrderStatusChangedPayload](env.Payload)
	if err != nil {
		s.Log.Warn("dropping event with bad payload", "event_id", env.EventID, "err", err)
		return nil
	}
	subject, content, ok := s.compose(ctx, p)
	if !ok {
		return nil
	}
	actor := domain.Actor{ID: s.SenderID, Role: domain.RoleStaff}
	msg, err := s.Messages.Send(ctx, actor, p.MemberID, subject, content)
	if domain.IsNotFound(err) {
		// member deleted since the event was produced
		s.Log.Info("member gone, skipping notification", "order_id", p.OrderID, "member_id", p.MemberID)
		return nil
	}
	if err != nil {
		return err
	}
	s.Log.Info("member notified", "order_id", p.OrderID, "status", p.To, "message_id", msg.ID, "trace_id", env.TraceID)
	return nil
}

func (s *Service) compose(ctx context.Context, p orders.OrderStatusChangedPayload) (subject, content string, ok bool) {
	what := domain.FormatGrams(p.QuantityGrams)
	if st, err := s.Strains.GetStrain(ctx, p.ProductID); err == nil {
		what += " of " + st.Name
	}

	switch p.To {
	case orders.StatusReady:
		return "Your order is ready",
			fmt.Sprintf("Your order of %s is ready for pickup.", what), true
	case orders.StatusCancelled:
		content = fmt.Sprintf("Your order of %s was cancelled.", what)
		if p.RefundedGrams.IsPositive() {
			content += fmt.Sprintf(" %s has been returned to your monthly allowance.", domain.FormatGrams(p.RefundedGrams))
		}
		return "Your order was cancelled", content, true
	}
	return "", "", false
}
