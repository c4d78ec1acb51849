package members

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/club-portal/internal/domain"
)

type Member struct {
	ID               string          `json:"id"`
	Email            string          `json:"email"`
	FullName         string          `json:"full_name"`
	ResidenceID      string          `json:"residence_id_number,omitempty"`
	Role             domain.Role     `json:"role"`
	MonthlyLimit     decimal.Decimal `json:"monthly_limit"`
	Remaining        decimal.Decimal `json:"monthly_limit_remaining"`
	MembershipExpiry *time.Time      `json:"membership_expiry,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

type NewMember struct {
	// ID is the identity-provider subject when the account already exists;
	// empty means a fresh id is generated.
	ID               string          `json:"id,omitempty"`
	Email            string          `json:"email"`
	FullName         string          `json:"full_name"`
	ResidenceID      string          `json:"residence_id_number,omitempty"`
	Role             domain.Role     `json:"role,omitempty"`
	MonthlyLimit     decimal.Decimal `json:"monthly_limit"`
	MembershipExpiry *time.Time      `json:"membership_expiry,omitempty"`
}

type Stats struct {
	Total        int `json:"total"`
	Members      int `json:"members"`
	Staff        int `json:"staff"`
	Admins       int `json:"admins"`
	MasterAdmins int `json:"master_admins"`
}
