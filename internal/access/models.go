// Package access holds the role registry and the pure RBAC gate that every
// enrollment mutation consults before touching a record.
package access

import (
	"time"

	id "cinregistry/pkg/domain"
	dErrors "cinregistry/pkg/domain-errors"
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleStaff  Role = "staff"
	RoleViewer Role = "viewer"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleStaff, RoleViewer:
		return true
	}
	return false
}

// ParseRole validates a role name arriving from outside the process.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.IsValid() {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown role %q", s)
	}
	return r, nil
}

type Capability string

const (
	CapRead        Capability = "read"
	CapMutateOwn   Capability = "mutate-own"
	CapMutateAny   Capability = "mutate-any"
	CapManageRoles Capability = "manage-roles"
)

// DenyReason is the stable code returned with a denied Decision.
type DenyReason string

const (
	ReasonUnknownActor     DenyReason = "unknown-actor"
	ReasonRoleInsufficient DenyReason = "role-insufficient"
	ReasonNotOwner         DenyReason = "not-owner"
)

type Decision struct {
	Allowed bool
	Reason  DenyReason
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason DenyReason) Decision { return Decision{Reason: reason} }

// Assignment is one row of the role table.
type Assignment struct {
	UserID     id.UserID
	Role       Role
	AssignedBy id.UserID
	UpdatedAt  time.Time
}
