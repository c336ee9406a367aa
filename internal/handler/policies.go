package handler

import (
	"agrisite-api/internal/auth"
	"agrisite-api/internal/service"
)

// allMethods is the action pattern granting every verb the API routes.
const allMethods = "^(GET|POST|PUT|DELETE)$"

// DefaultPolicies derives the casbin rules for the API from the resources it serves.
// Guests may read public content and post to guest-writable resources, signed-in
// users may read their account, and admins may do anything below /api.
func DefaultPolicies(resources []service.Info) [][]string {
	policies := [][]string{
		{auth.RoleGuest, "/api/register", "POST"},
		{auth.RoleGuest, "/api/login", "POST"},
		{auth.RoleUser, "/api/user", "GET"},
		{auth.RoleUser, "/api/user/:id", "GET"},
		{auth.RoleAdmin, "/api/*", allMethods},
	}

	for _, info := range resources {
		base := "/api" + info.Path
		if !info.PrivateRead {
			policies = append(policies, []string{auth.RoleGuest, base, "GET"})
			if !info.Singleton {
				policies = append(policies, []string{auth.RoleGuest, base + "/:id", "GET"})
			}
		}
		if info.PublicCreate {
			policies = append(policies, []string{auth.RoleGuest, base, "POST"})
		}
	}
	return policies
}
