package messages_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/club-portal/internal/domain"
	"github.com/ariefcatur/club-portal/internal/members"
	"github.com/ariefcatur/club-portal/internal/memstore"
	"github.com/ariefcatur/club-portal/internal/messages"
)

var (
	staff  = domain.Actor{ID: "s-1", Role: domain.RoleStaff}
	member = domain.Actor{ID: "m-1", Role: domain.RoleMember}
	other  = domain.Actor{ID: "m-2", Role: domain.RoleMember}
)

func newService(t *testing.T) *messages.Service {
	t.Helper()
	st := memstore.New()
	for _, a := range []domain.Actor{staff, member, other} {
		st.PutMember(members.Member{ID: a.ID, Email: a.ID + "@club.test", FullName: a.ID, Role: a.Role})
	}
	svc := messages.NewService(st)
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.Now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	return svc
}

func TestSendAndRead(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	q, err := svc.Send(ctx, member, staff.ID, "Opening hours", "Are you open on Sunday?")
	require.NoError(t, err)
	assert.Equal(t, member.ID, q.FromID)
	assert.False(t, q.Read)

	a, err := svc.Send(ctx, staff, member.ID, "", "Yes, from noon.")
	require.NoError(t, err)

	n, err := svc.Unread(ctx, member)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	inbox, err := svc.Inbox(ctx, member)
	require.NoError(t, err)
	require.Len(t, inbox, 2)
	assert.Equal(t, a.ID, inbox[0].ID, "newest first")

	conv, err := svc.Conversation(ctx, staff, member.ID)
	require.NoError(t, err)
	require.Len(t, conv, 2)
	assert.Equal(t, q.ID, conv[0].ID, "oldest first")

	// only the recipient can mark a message read
	assert.ErrorIs(t, svc.MarkRead(ctx, staff, a.ID), domain.ErrMessageNotFound)
	assert.ErrorIs(t, svc.MarkRead(ctx, other, a.ID), domain.ErrMessageNotFound)
	require.NoError(t, svc.MarkRead(ctx, member, a.ID))
	require.NoError(t, svc.MarkRead(ctx, member, a.ID))

	n, err = svc.Unread(ctx, member)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSend_Validation(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.Send(ctx, member, "", "", "hi")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = svc.Send(ctx, member, staff.ID, "subject only", "   ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = svc.Send(ctx, member, "ghost", "", "hi")
	assert.ErrorIs(t, err, domain.ErrMemberNotFound)
	_, err = svc.Send(ctx, domain.Actor{}, staff.ID, "", "hi")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestConversation_StaffOnly(t *testing.T) {
	svc := newService(t)

	_, err := svc.Conversation(context.Background(), member, other.ID)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}
