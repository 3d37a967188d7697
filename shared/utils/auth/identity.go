package utils

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"meetdesk-backend/shared/database/models"
)

// Capability names an action guarded by RequireCapability
type Capability string

const (
	CapCustomersWrite  Capability = "customers:write"
	CapCustomersDelete Capability = "customers:delete"
	CapMeetingsWrite   Capability = "meetings:write"
	CapMeetingsReadAll Capability = "meetings:read_all"
	CapSlotsWrite      Capability = "slots:write"
	CapPaymentsWrite   Capability = "payments:write"
	CapUsersManage     Capability = "users:manage"
)

// IdentityKind tags which principal an Identity wraps
type IdentityKind string

const (
	KindStaff    IdentityKind = "staff"
	KindCustomer IdentityKind = "customer"
)

var staffCapabilities = []Capability{
	CapCustomersWrite,
	CapMeetingsWrite,
	CapSlotsWrite,
	CapPaymentsWrite,
}

var roleCapabilities = map[string]map[Capability]bool{
	models.RoleAdmin: capabilitySet(append([]Capability{
		CapCustomersDelete,
		CapMeetingsReadAll,
		CapUsersManage,
	}, staffCapabilities...)...),
	models.RoleManager: capabilitySet(staffCapabilities...),
	models.RoleAgent:   capabilitySet(staffCapabilities...),
}

var customerCapabilities = capabilitySet(CapPaymentsWrite)

func capabilitySet(caps ...Capability) map[Capability]bool {
	set := make(map[Capability]bool, len(caps))
	for _, c := range caps {
		set[c] = true
	}
	return set
}

// Identity is the authenticated principal of a request. Exactly one of
// User and Customer is set, matching Kind.
type Identity struct {
	Kind     IdentityKind
	User     *models.User
	Customer *models.Customer
}

// StaffIdentity wraps a staff user
func StaffIdentity(user *models.User) *Identity {
	return &Identity{Kind: KindStaff, User: user}
}

// CustomerIdentity wraps a customer
func CustomerIdentity(customer *models.Customer) *Identity {
	return &Identity{Kind: KindCustomer, Customer: customer}
}

func (i *Identity) IsStaff() bool {
	return i != nil && i.Kind == KindStaff && i.User != nil
}

func (i *Identity) IsCustomer() bool {
	return i != nil && i.Kind == KindCustomer && i.Customer != nil
}

// ID returns the principal's id
func (i *Identity) ID() uuid.UUID {
	switch {
	case i.IsStaff():
		return i.User.ID
	case i.IsCustomer():
		return i.Customer.ID
	}
	return uuid.Nil
}

// Can reports whether the principal holds capability c
func (i *Identity) Can(c Capability) bool {
	switch {
	case i.IsStaff():
		return roleCapabilities[i.User.Role][c]
	case i.IsCustomer():
		return customerCapabilities[c]
	}
	return false
}

const identityContextKey = "identity"

// SetIdentity stores the identity on the gin context
func SetIdentity(c *gin.Context, identity *Identity) {
	c.Set(identityContextKey, identity)
}

// GetIdentity returns the identity set by the auth middleware
func GetIdentity(c *gin.Context) (*Identity, bool) {
	value, exists := c.Get(identityContextKey)
	if !exists {
		return nil, false
	}
	identity, ok := value.(*Identity)
	return identity, ok && identity != nil
}
