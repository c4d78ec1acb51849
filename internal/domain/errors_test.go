package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCode(t *testing.T) {
	cases := []struct {
		err  error
		code string
	}{
		{&QuantityError{Requested: Grams(0)}, "invalid_quantity"},
		{&CeilingError{Requested: Grams(8), Ceiling: MaxOrderGrams}, "exceeds_order_ceiling"},
		{&AllowanceError{Requested: Grams(6), Remaining: Grams(5)}, "exceeds_monthly_allowance"},
		{&StockError{ProductID: "p", Requested: Grams(4), Available: Grams(3)}, "insufficient_stock"},
		{&TransitionError{From: "completed", To: "ready"}, "invalid_status_transition"},
		{fmt.Errorf("lookup: %w", ErrOrderNotFound), "order_not_found"},
		{Invalid("name is required"), "invalid_input"},
		{errors.New("boom"), ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.code, Code(tc.err), tc.err.Error())
	}
}

func TestTxFailed(t *testing.T) {
	assert.NoError(t, TxFailed("op", nil))

	rule := &StockError{ProductID: "p", Available: Grams(1)}
	assert.Same(t, rule, TxFailed("place order", rule))

	cause := errors.New("connection refused")
	err := TxFailed("place order", cause)
	assert.ErrorIs(t, err, ErrTransactionFailed)
	assert.ErrorIs(t, err, cause)
	assert.True(t, IsRetryable(err))
	assert.False(t, IsRuleViolation(err))
	assert.Equal(t, "transaction_failed", Code(err))
}

func TestMessages(t *testing.T) {
	assert.Equal(t, "quantity exceeds your remaining monthly allowance of 2.5g",
		(&AllowanceError{Requested: Grams(3), Remaining: Grams(2.5)}).Error())
	assert.Equal(t, "only 3g of Amnesia available in stock",
		(&StockError{ProductID: "p", Name: "Amnesia", Available: Grams(3)}).Error())
	assert.Equal(t, "quantity cannot exceed 7g per order",
		(&CeilingError{Requested: Grams(8), Ceiling: MaxOrderGrams}).Error())
	assert.Equal(t, "quantity must be a positive number", (&QuantityError{Requested: Grams(-1)}).Error())
	assert.Equal(t, "quantity cannot have more than 2 decimal places", (&QuantityError{Requested: Grams(1.005)}).Error())
}

func TestExactGrams(t *testing.T) {
	assert.True(t, ExactGrams(Grams(7)))
	assert.True(t, ExactGrams(Grams(1.01)))
	assert.False(t, ExactGrams(Grams(1.005)))
	assert.False(t, ExactGrams(Grams(0.001)))
}

func TestClassification(t *testing.T) {
	assert.True(t, IsRuleViolation(&QuantityError{}))
	assert.True(t, IsRuleViolation(&InsufficientAllowanceError{}))
	assert.False(t, IsRuleViolation(ErrMemberNotFound))
	assert.True(t, IsNotFound(ErrMessageNotFound))
	assert.False(t, IsNotFound(&TransitionError{}))
}

func TestAuthorize(t *testing.T) {
	assert.ErrorIs(t, Authorize(Actor{}), ErrUnauthorized)
	assert.NoError(t, Authorize(Actor{ID: "m", Role: RoleMember}))

	err := Authorize(Actor{ID: "m", Role: RoleMember}, StaffRoles...)
	var ue *UnauthorizedError
	assert.ErrorAs(t, err, &ue)
	assert.Equal(t, RoleMember, ue.Role)

	for _, r := range StaffRoles {
		assert.NoError(t, Authorize(Actor{ID: "s", Role: r}, StaffRoles...))
	}
	assert.Error(t, Authorize(Actor{ID: "s", Role: RoleStaff}, AdminRoles...))
	assert.NoError(t, Authorize(Actor{ID: "a", Role: RoleMasterAdmin}, MasterRoles...))
	assert.False(t, Role("owner").Valid())
}
