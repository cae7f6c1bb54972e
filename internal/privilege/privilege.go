// Package privilege answers "how trusted is this user" for the bot.
//
// The owner comes from configuration; developers, sudo users and support
// users are staff roles persisted in the store.
package privilege

import (
	"context"
	"log"
)

// Level is a privilege level. Higher values are more trusted.
type Level int

const (
	None Level = iota
	Support
	Sudo
	Developer
	Owner
)

// Staff role names as persisted.
const (
	RoleDeveloper = "developer"
	RoleSudo      = "sudo"
	RoleSupport   = "support"
)

func (l Level) String() string {
	switch l {
	case Owner:
		return "owner"
	case Developer:
		return RoleDeveloper
	case Sudo:
		return RoleSudo
	case Support:
		return RoleSupport
	default:
		return "none"
	}
}

// AtLeast reports whether l is at or above min.
func (l Level) AtLeast(min Level) bool { return l >= min }

// Privileged reports whether l is any staff level.
func (l Level) Privileged() bool { return l >= Support }

// FromRole maps a persisted role name to a level.
func FromRole(role string) Level {
	switch role {
	case RoleDeveloper:
		return Developer
	case RoleSudo:
		return Sudo
	case RoleSupport:
		return Support
	default:
		return None
	}
}

// RoleStore looks up persisted staff roles. An empty role means none.
type RoleStore interface {
	StaffRole(ctx context.Context, userID int64) (string, error)
}

// Checker resolves privilege levels.
type Checker struct {
	ownerID int64
	roles   RoleStore
}

// NewChecker creates a checker. roles may be nil, in which case only the owner is privileged.
func NewChecker(ownerID int64, roles RoleStore) *Checker {
	return &Checker{ownerID: ownerID, roles: roles}
}

// OwnerID returns the configured owner.
func (c *Checker) OwnerID() int64 { return c.ownerID }

// IsOwner reports whether userID is the configured owner.
func (c *Checker) IsOwner(userID int64) bool {
	return c.ownerID != 0 && userID == c.ownerID
}

// Level returns the privilege level of userID. Store errors degrade to None.
func (c *Checker) Level(ctx context.Context, userID int64) Level {
	if userID == 0 {
		return None
	}
	if c.IsOwner(userID) {
		return Owner
	}
	if c.roles == nil {
		return None
	}
	role, err := c.roles.StaffRole(ctx, userID)
	if err != nil {
		log.Printf("[Privilege] ⚠️ role lookup for %d failed: %v", userID, err)
		return None
	}
	return FromRole(role)
}

// IsPrivileged reports whether userID holds any staff level.
func (c *Checker) IsPrivileged(ctx context.Context, userID int64) bool {
	return c.Level(ctx, userID).Privileged()
}
