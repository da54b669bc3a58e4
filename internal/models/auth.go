package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin    UserRole = "ADMIN"
	RoleRegistry UserRole = "REGISTRY"
	RoleFinance  UserRole = "FINANCE"
	RoleLibrary  UserRole = "LIBRARY"
	RoleAcademic UserRole = "ACADEMIC"
	RoleStudent  UserRole = "STUDENT"
)

// Department returns the clearing department a role responds for.
func (r UserRole) Department() (Department, bool) {
	switch r {
	case RoleFinance:
		return DepartmentFinance, true
	case RoleLibrary:
		return DepartmentLibrary, true
	case RoleAcademic:
		return DepartmentAcademic, true
	}
	return "", false
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID string   `json:"user_id"`
	Role   UserRole `json:"role"`
	Email  string   `json:"email"`
	Name   string   `json:"name"`
	StdNo  *int64   `json:"std_no,omitempty"`
	jwt.RegisteredClaims
}

// AuditContext derives the audit identity from the token.
func (c *JWTClaims) AuditContext() *AuditContext {
	if c == nil {
		return nil
	}
	return &AuditContext{ActorID: c.UserID, Role: c.Role}
}
