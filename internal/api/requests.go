// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

// Request bodies with go-playground/validator tags. Validation here is a
// shape check only; deep semantic validation (operator arity, attribute
// kinds, password policy) happens in the domain packages and surfaces
// through the same error envelope.
package api

import (
	"github.com/tomtom215/aegis/internal/authz"
)

// RegisterRequest is the body for POST /auth/register.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Username string `json:"username" validate:"required,min=1"`
	Password string `json:"password" validate:"required,min=1"`
}

// RefreshRequest is the body for POST /auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// MFAVerifyRequest is the body for POST /auth/mfa/verify. Code accepts a
// TOTP code or a backup code.
type MFAVerifyRequest struct {
	SessionID string `json:"session_id" validate:"required,uuid"`
	Code      string `json:"code" validate:"required,min=6,max=32"`
}

// MFAConfirmRequest is the body for POST /auth/mfa/confirm.
type MFAConfirmRequest struct {
	Code string `json:"code" validate:"required,min=6,max=32"`
}

// ForgotPasswordRequest is the body for POST /auth/password/forgot.
// Username accepts a username or an email address.
type ForgotPasswordRequest struct {
	Username string `json:"username" validate:"required,min=1,max=256"`
}

// ResetPasswordRequest is the body for POST /auth/password/reset.
type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// ChangePasswordRequest is the body for POST /auth/password/change.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=128"`
}

// VerifyEmailRequest is the body for POST /auth/email/verify.
type VerifyEmailRequest struct {
	Token string `json:"token" validate:"required"`
}

// CheckRequest is the body for POST /authz/check. SubjectID defaults to
// the authenticated caller; naming another subject or overriding the
// trust level requires the simulate permission.
type CheckRequest struct {
	SubjectID    string `json:"subject_id" validate:"omitempty,max=128"`
	SubjectTrust string `json:"subject_trust" validate:"omitempty,oneof=none password mfa"`
	Action       string `json:"action" validate:"required,max=128"`
	ResourceType string `json:"resource_type" validate:"required,max=128"`
	ResourceID   string `json:"resource_id" validate:"omitempty,max=256"`

	// ResourceAttributes and EnvironmentAttributes are coerced against
	// the attribute registry's declared kinds before evaluation.
	ResourceAttributes    map[string]interface{} `json:"resource_attributes"`
	EnvironmentAttributes map[string]interface{} `json:"environment_attributes"`
}

// RoleRequest is the body for POST /admin/roles and PUT /admin/roles/{id}.
type RoleRequest struct {
	ID          string   `json:"id" validate:"required,rolename,max=64"`
	Name        string   `json:"name" validate:"required,max=128"`
	Permissions []string `json:"permissions" validate:"omitempty,dive,rolename"`
	Parents     []string `json:"parents" validate:"omitempty,dive,rolename"`
}

// UpdateRoleRequest is the body for PUT /admin/roles/{id}; the id comes
// from the path.
type UpdateRoleRequest struct {
	Name        string   `json:"name" validate:"required,max=128"`
	Permissions []string `json:"permissions" validate:"omitempty,dive,rolename"`
	Parents     []string `json:"parents" validate:"omitempty,dive,rolename"`
}

// RoleParentRequest is the body for POST /admin/roles/{id}/parents.
type RoleParentRequest struct {
	ParentID string `json:"parent_id" validate:"required,rolename"`
}

// RolePermissionRequest is the body for POST /admin/roles/{id}/permissions.
type RolePermissionRequest struct {
	PermissionID string `json:"permission_id" validate:"required,rolename"`
}

// PermissionRequest is the body for POST /admin/permissions and
// PUT /admin/permissions/{id}.
type PermissionRequest struct {
	ID           string `json:"id" validate:"required,rolename,max=64"`
	ResourceType string `json:"resource_type" validate:"required,max=128"`
	Action       string `json:"action" validate:"required,max=128"`
	Scope        string `json:"scope" validate:"omitempty,oneof=all own"`
}

// UpdatePermissionRequest is the body for PUT /admin/permissions/{id};
// the id comes from the path.
type UpdatePermissionRequest struct {
	ResourceType string `json:"resource_type" validate:"required,max=128"`
	Action       string `json:"action" validate:"required,max=128"`
	Scope        string `json:"scope" validate:"omitempty,oneof=all own"`
}

// PolicyRequest is the body for POST /admin/policies and
// PUT /admin/policies/{id}. Rules and groups are validated semantically
// (operator set, operand arity, declared attribute kinds) by the policy
// store on upsert.
type PolicyRequest struct {
	ID           string            `json:"id" validate:"omitempty,max=64"`
	Name         string            `json:"name" validate:"required,max=128"`
	Effect       string            `json:"effect" validate:"required,oneof=allow deny"`
	ResourceType string            `json:"resource_type" validate:"omitempty,max=128"`
	Priority     int               `json:"priority" validate:"min=0,max=1000"`
	Rules        []authz.Rule      `json:"rules"`
	Groups       []authz.RuleGroup `json:"groups"`

	// Active defaults to true when omitted.
	Active *bool `json:"active"`
}

// PolicyActiveRequest is the body for PUT /admin/policies/{id}/active.
type PolicyActiveRequest struct {
	Active bool `json:"active"`
}

// AttributeDefinitionRequest is the body for POST /admin/attributes.
type AttributeDefinitionRequest struct {
	Path        string `json:"path" validate:"required,attrpath"`
	Kind        string `json:"kind" validate:"required,oneof=string number bool ip time"`
	Description string `json:"description" validate:"omitempty,max=512"`
}

// CreateUserRequest is the body for POST /admin/users.
type CreateUserRequest struct {
	Username    string   `json:"username" validate:"required,min=3,max=64"`
	Email       string   `json:"email" validate:"required,email"`
	Password    string   `json:"password" validate:"required,min=8,max=128"`
	Roles       []string `json:"roles" validate:"omitempty,dive,rolename"`
	Permissions []string `json:"permissions" validate:"omitempty,dive,rolename"`

	// Attributes are coerced against declared kinds.
	Attributes map[string]interface{} `json:"attributes"`
}

// UpdateUserRequest is the body for PUT /admin/users/{id}. Nil fields
// are left unchanged; a present empty list clears the corresponding set.
// Username and email are registry index fields and cannot be changed
// here.
type UpdateUserRequest struct {
	Roles       *[]string `json:"roles" validate:"omitempty,dive,rolename"`
	Permissions *[]string `json:"permissions" validate:"omitempty,dive,rolename"`

	// Attributes are merged into the user's attribute map after
	// coercion; a null value removes the attribute.
	Attributes map[string]interface{} `json:"attributes"`
}

// SetUserStatusRequest is the body for PUT /admin/users/{id}/status.
type SetUserStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending_verification active inactive locked"`
}
