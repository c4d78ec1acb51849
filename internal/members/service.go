// Package members manages member profiles: first-login provisioning, staff
// lookup and the admin account screens.
package members

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/club-portal/internal/domain"
)

const searchLimit = 10

type Store interface {
	GetMember(ctx context.Context, id string) (Member, error)
	InsertMember(ctx context.Context, m Member) error
	SearchMembers(ctx context.Context, q string, limit int) ([]Member, error)
	ListMembers(ctx context.Context) ([]Member, error)
	ListMembersByRole(ctx context.Context, roles ...domain.Role) ([]Member, error)
	UpdateMemberRole(ctx context.Context, id string, role domain.Role) (Member, error)
	SetMemberAllowance(ctx context.Context, id string, remaining decimal.Decimal) (Member, error)
	DeleteMember(ctx context.Context, id string) error
	CountMembersByRole(ctx context.Context) (map[domain.Role]int, error)
}

type Service struct {
	Store Store
	Now   func() time.Time
}

func NewService(s Store) *Service {
	return &Service{Store: s, Now: func() time.Time { return time.Now().UTC() }}
}

// EnsureProfile returns the caller's profile, creating it on first login
// with the member role and the default monthly allowance.
func (s *Service) EnsureProfile(ctx context.Context, id, email, fullName string) (Member, bool, error) {
	if id == "" {
		return Member{}, false, domain.Invalid("missing subject")
	}
	m, err := s.Store.GetMember(ctx, id)
	if err == nil {
		return m, false, nil
	}
	if !errors.Is(err, domain.ErrMemberNotFound) {
		return Member{}, false, err
	}
	if fullName == "" {
		fullName, _, _ = strings.Cut(email, "@")
	}
	if fullName == "" {
		fullName = "Unknown"
	}
	m = Member{
		ID:           id,
		Email:        email,
		FullName:     fullName,
		Role:         domain.RoleMember,
		MonthlyLimit: domain.DefaultMonthlyLimit,
		Remaining:    domain.DefaultMonthlyLimit,
		CreatedAt:    s.Now(),
	}
	if err := s.Store.InsertMember(ctx, m); err != nil {
		// lost a race with a concurrent first request
		if errors.Is(err, domain.ErrConflict) {
			m, err = s.Store.GetMember(ctx, id)
			return m, false, err
		}
		return Member{}, false, err
	}
	return m, true, nil
}

// Get returns a profile to its owner or to staff.
func (s *Service) Get(ctx context.Context, actor domain.Actor, id string) (Member, error) {
	if actor.ID != id {
		if err := domain.Authorize(actor, domain.StaffRoles...); err != nil {
			return Member{}, err
		}
	}
	return s.Store.GetMember(ctx, id)
}

func (s *Service) Search(ctx context.Context, actor domain.Actor, q string) ([]Member, error) {
	if err := domain.Authorize(actor, domain.StaffRoles...); err != nil {
		return nil, err
	}
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, domain.Invalid("search query cannot be empty")
	}
	return s.Store.SearchMembers(ctx, q, searchLimit)
}

// Create registers an account. Staff may only create members; granting a
// back-office role needs the same rights as UpdateRole.
func (s *Service) Create(ctx context.Context, actor domain.Actor, in NewMember) (Member, error) {
	if err := domain.Authorize(actor, domain.StaffRoles...); err != nil {
		return Member{}, err
	}
	if in.Role == "" {
		in.Role = domain.RoleMember
	}
	if err := canGrant(actor, in.Role); err != nil {
		return Member{}, err
	}
	in.Email = strings.TrimSpace(in.Email)
	in.FullName = strings.TrimSpace(in.FullName)
	if in.Email == "" || !strings.Contains(in.Email, "@") {
		return Member{}, domain.Invalid("a valid email is required")
	}
	if in.FullName == "" {
		return Member{}, domain.Invalid("full name is required")
	}
	limit := in.MonthlyLimit
	if limit.IsZero() {
		limit = domain.DefaultMonthlyLimit
	}
	if limit.IsNegative() {
		return Member{}, domain.Invalid("monthly limit cannot be negative")
	}
	if !domain.ExactGrams(limit) {
		return Member{}, domain.Invalid("monthly limit cannot have more than %d decimal places", domain.GramsScale)
	}
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	m := Member{
		ID:               in.ID,
		Email:            in.Email,
		FullName:         in.FullName,
		ResidenceID:      strings.TrimSpace(in.ResidenceID),
		Role:             in.Role,
		MonthlyLimit:     limit,
		Remaining:        limit,
		MembershipExpiry: in.MembershipExpiry,
		CreatedAt:        s.Now(),
	}
	if err := s.Store.InsertMember(ctx, m); err != nil {
		return Member{}, err
	}
	return m, nil
}

func (s *Service) List(ctx context.Context, actor domain.Actor) ([]Member, error) {
	if err := domain.Authorize(actor, domain.AdminRoles...); err != nil {
		return nil, err
	}
	return s.Store.ListMembers(ctx)
}

// StaffDirectory lists the people a member can message.
func (s *Service) StaffDirectory(ctx context.Context, actor domain.Actor) ([]Member, error) {
	if err := domain.Authorize(actor); err != nil {
		return nil, err
	}
	return s.Store.ListMembersByRole(ctx, domain.StaffRoles...)
}

func (s *Service) UpdateRole(ctx context.Context, actor domain.Actor, id string, role domain.Role) (Member, error) {
	if err := domain.Authorize(actor, domain.AdminRoles...); err != nil {
		return Member{}, err
	}
	if err := canGrant(actor, role); err != nil {
		return Member{}, err
	}
	if id == actor.ID {
		return Member{}, domain.Invalid("cannot change your own role")
	}
	target, err := s.Store.GetMember(ctx, id)
	if err != nil {
		return Member{}, err
	}
	// only a master admin may demote another admin
	if err := canGrant(actor, target.Role); err != nil {
		return Member{}, err
	}
	return s.Store.UpdateMemberRole(ctx, id, role)
}

// SetRemainingAllowance is the admin's manual adjustment of the monthly
// counter. It is an absolute write, never read-modify-write.
func (s *Service) SetRemainingAllowance(ctx context.Context, actor domain.Actor, id string, remaining decimal.Decimal) (Member, error) {
	if err := domain.Authorize(actor, domain.AdminRoles...); err != nil {
		return Member{}, err
	}
	if remaining.IsNegative() {
		return Member{}, domain.Invalid("allowance cannot be negative")
	}
	if !domain.ExactGrams(remaining) {
		return Member{}, domain.Invalid("allowance cannot have more than %d decimal places", domain.GramsScale)
	}
	return s.Store.SetMemberAllowance(ctx, id, remaining)
}

func (s *Service) Delete(ctx context.Context, actor domain.Actor, id string) error {
	if err := domain.Authorize(actor, domain.AdminRoles...); err != nil {
		return err
	}
	if id == actor.ID {
		return domain.Invalid("cannot delete your own account")
	}
	target, err := s.Store.GetMember(ctx, id)
	if err != nil {
		return err
	}
	if err := canGrant(actor, target.Role); err != nil {
		return err
	}
	return s.Store.DeleteMember(ctx, id)
}

func (s *Service) Stats(ctx context.Context, actor domain.Actor) (Stats, error) {
	if err := domain.Authorize(actor, domain.AdminRoles...); err != nil {
		return Stats{}, err
	}
	counts, err := s.Store.CountMembersByRole(ctx)
	if err != nil {
		return Stats{}, err
	}
	st := Stats{
		Members:      counts[domain.RoleMember],
		Staff:        counts[domain.RoleStaff],
		Admins:       counts[domain.RoleAdmin],
		MasterAdmins: counts[domain.RoleMasterAdmin],
	}
	for _, n := range counts {
		st.Total += n
	}
	return st, nil
}

// canGrant: staff and admins may hand out member/staff, only a master admin
// may hand out admin or master_admin.
func canGrant(actor domain.Actor, role domain.Role) error {
	if !role.Valid() {
		return domain.Invalid("unknown role %q", role)
	}
	switch role {
	case domain.RoleMember:
		return nil
	case domain.RoleStaff:
		return domain.Authorize(actor, domain.AdminRoles...)
	default:
		return domain.Authorize(actor, domain.MasterRoles...)
	}
}
