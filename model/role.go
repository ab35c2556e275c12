package model

import (
	"fmt"
	"strings"
)

// Role is an actor role that may be allowed to act at a stage.
type Role string

const (
	RoleRequester          Role = "REQUESTER"
	RoleSiteAdmin          Role = "SITE_ADMIN"
	RoleCompanyAdmin       Role = "COMPANY_ADMIN"
	RoleProcurementOfficer Role = "PROCUREMENT_OFFICER"
	RoleFinanceApprover    Role = "FINANCE_APPROVER"
	RoleVendor             Role = "VENDOR"
	RoleSuperAdmin         Role = "SUPER_ADMIN"
)

// AllRoles returns every known role.
func AllRoles() []Role {
	return []Role{
		RoleRequester,
		RoleSiteAdmin,
		RoleCompanyAdmin,
		RoleProcurementOfficer,
		RoleFinanceApprover,
		RoleVendor,
		RoleSuperAdmin,
	}
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleRequester, RoleSiteAdmin, RoleCompanyAdmin, RoleProcurementOfficer,
		RoleFinanceApprover, RoleVendor, RoleSuperAdmin:
		return true
	}
	return false
}

// ParseRole converts text into a Role, ignoring case and surrounding spaces.
func ParseRole(text string) (Role, error) {
	role := Role(strings.ToUpper(strings.TrimSpace(text)))
	if !role.Valid() {
		return "", fmt.Errorf("unknown role %q", text)
	}
	return role, nil
}

// RoleSet is an unordered collection of roles.
type RoleSet []Role

// Contains reports whether role is a member of the set.
func (s RoleSet) Contains(role Role) bool {
	for _, candidate := range s {
		if candidate == role {
			return true
		}
	}
	return false
}

// Union returns the members of s followed by members of other not yet seen.
func (s RoleSet) Union(other ...Role) RoleSet {
	ret := make(RoleSet, 0, len(s)+len(other))
	seen := make(map[Role]bool, len(s)+len(other))
	for _, set := range [][]Role{s, other} {
		for _, role := range set {
			if seen[role] {
				continue
			}
			seen[role] = true
			ret = append(ret, role)
		}
	}
	return ret
}
