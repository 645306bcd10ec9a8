// Package session holds the identity currently driving cart
// observation and writes. The holder is an injected value with an
// explicit lifecycle: populated on sign-in, cleared on logout.
package session

import "sync"

type Role string

const (
	RoleCustomer   Role = "customer"
	RoleSeller     Role = "seller"
	RoleSupervisor Role = "supervisor"
)

// LoyaltyDiscountPercent applies to loyalty members on every cart.
const LoyaltyDiscountPercent = 20

// GuestID is the session id used when nobody is signed in.
const GuestID = 0

type Session struct {
	mu       sync.RWMutex
	userID   int
	userName string
	loyalty  bool
	role     Role
	sellerID int64
	signedIn bool
}

func New() *Session {
	return &Session{role: RoleCustomer}
}

func (s *Session) SignIn(userID int, userName string, loyalty bool, role Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = userID
	s.userName = userName
	s.loyalty = loyalty
	s.role = role
	s.signedIn = true
}

// SetSellerID binds the seller-facing panel to a seller account.
func (s *Session) SetSellerID(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sellerID = id
}

// Clear resets the holder to the signed-out state.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = 0
	s.userName = ""
	s.loyalty = false
	s.role = RoleCustomer
	s.sellerID = 0
	s.signedIn = false
}

func (s *Session) UserID() (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID, s.signedIn
}

// SafeUserID returns -1 when nobody is signed in.
func (s *Session) SafeUserID() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.signedIn {
		return -1
	}
	return s.userID
}

func (s *Session) UserName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userName
}

func (s *Session) IsLoyaltyMember() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loyalty
}

func (s *Session) Role() Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.role
}

func (s *Session) SellerID() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sellerID
}

// DiscountPercent is the cart discount granted by the session:
// the loyalty rate for members, otherwise zero.
func (s *Session) DiscountPercent() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.signedIn && s.loyalty {
		return LoyaltyDiscountPercent
	}
	return 0
}
