// Package auth implements role resolution and permission checks for every
// mutating entry point. Lookups are fail-closed: a permission with no table
// entry denies all roles.
package auth

import (
	"strings"

	"github.com/intinc/interact-engine/internal/models"
)

// Role is a caller's effective role, computed once per request from raw user
// attributes and never persisted.
type Role string

// Effective roles, strongest first.
const (
	RoleOwner       Role = "owner"
	RoleAdmin       Role = "admin"
	RoleOps         Role = "ops"
	RoleHR          Role = "hr"
	RoleTeamLead    Role = "team_lead"
	RoleEmployee    Role = "employee"
	RoleFacilitator Role = "facilitator"
	RoleParticipant Role = "participant"
)

// Permission is a named capability. Callers use the exported constants, so a
// misspelled permission is a compile error rather than a silent deny.
type Permission string

// Permissions gating the engine's entry points.
const (
	PermInviteUsers   Permission = "users.invite"
	PermViewAllUsers  Permission = "users.view_all"
	PermManageRoles   Permission = "roles.manage"
	PermManageRules   Permission = "rules.manage"
	PermExecuteRules  Permission = "rules.execute"
	PermAdjustPoints  Permission = "points.adjust"
	PermManageBadges  Permission = "badges.manage"
	PermViewAuditLog  Permission = "audit.view"
	PermViewAnalytics Permission = "analytics.view"
)

// permissionRoles maps each permission to the roles allowed to use it.
// Absence of an entry means nobody is allowed.
var permissionRoles = map[Permission][]Role{
	PermInviteUsers:   {RoleOwner, RoleAdmin, RoleHR},
	PermViewAllUsers:  {RoleOwner, RoleAdmin, RoleHR},
	PermManageRoles:   {RoleOwner},
	PermManageRules:   {RoleOwner, RoleAdmin},
	PermExecuteRules:  {RoleOwner, RoleAdmin},
	PermAdjustPoints:  {RoleOwner, RoleAdmin},
	PermManageBadges:  {RoleOwner, RoleAdmin, RoleOps},
	PermViewAuditLog:  {RoleOwner, RoleAdmin},
	PermViewAnalytics: {RoleOwner, RoleAdmin, RoleOps, RoleHR, RoleTeamLead},
}

// Allows reports whether the permission admits the given role.
func (p Permission) Allows(role Role) bool {
	for _, allowed := range permissionRoles[p] {
		if allowed == role {
			return true
		}
	}
	return false
}

// ResolveRole computes a user's effective role. Priority: owner allow-list,
// then the explicit role field, then the user_type field, then participant.
func ResolveRole(user *models.User, ownerEmails []string) Role {
	if user == nil {
		return RoleParticipant
	}
	for _, email := range ownerEmails {
		if strings.EqualFold(email, user.Email) {
			return RoleOwner
		}
	}

	switch user.Role {
	case "admin":
		return RoleAdmin
	case "ops":
		return RoleOps
	case "hr":
		return RoleHR
	case "team_lead":
		return RoleTeamLead
	case "employee":
		return RoleEmployee
	}

	if user.UserType == "facilitator" {
		return RoleFacilitator
	}
	return RoleParticipant
}
