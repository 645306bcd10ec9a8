package session_test

import (
	"testing"

	"github.com/niksmo/levelup-shop/internal/core/session"
	"github.com/stretchr/testify/assert"
)

func TestSessionSignIn(t *testing.T) {
	s := session.New()

	uid, ok := s.UserID()
	assert.False(t, ok)
	assert.Zero(t, uid)
	assert.Equal(t, -1, s.SafeUserID())
	assert.Equal(t, session.RoleCustomer, s.Role())

	s.SignIn(7, "ignacio@duoc.cl", true, session.RoleCustomer)

	uid, ok = s.UserID()
	assert.True(t, ok)
	assert.Equal(t, 7, uid)
	assert.Equal(t, 7, s.SafeUserID())
	assert.Equal(t, "ignacio@duoc.cl", s.UserName())
	assert.True(t, s.IsLoyaltyMember())
}

func TestSessionClear(t *testing.T) {
	s := session.New()
	s.SignIn(7, "ignacio@duoc.cl", true, session.RoleSeller)
	s.SetSellerID(3)

	s.Clear()

	_, ok := s.UserID()
	assert.False(t, ok)
	assert.Equal(t, -1, s.SafeUserID())
	assert.Empty(t, s.UserName())
	assert.False(t, s.IsLoyaltyMember())
	assert.Equal(t, session.RoleCustomer, s.Role())
	assert.Zero(t, s.SellerID())
	assert.Zero(t, s.DiscountPercent())
}

func TestSessionDiscountPercent(t *testing.T) {

	t.Run("SignedOut", func(t *testing.T) {
		s := session.New()
		assert.Zero(t, s.DiscountPercent())
	})

	t.Run("LoyaltyMember", func(t *testing.T) {
		s := session.New()
		s.SignIn(7, "ignacio@duoc.cl", true, session.RoleCustomer)
		assert.Equal(t, session.LoyaltyDiscountPercent, s.DiscountPercent())
	})

	t.Run("RegularMember", func(t *testing.T) {
		s := session.New()
		s.SignIn(8, "maria@gmail.com", false, session.RoleCustomer)
		assert.Zero(t, s.DiscountPercent())
	})
}

func TestSessionSellerID(t *testing.T) {
	s := session.New()
	s.SignIn(9, "seller@levelup.cl", false, session.RoleSeller)
	s.SetSellerID(42)

	assert.Equal(t, session.RoleSeller, s.Role())
	assert.EqualValues(t, 42, s.SellerID())
}
