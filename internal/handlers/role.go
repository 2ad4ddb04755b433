package handlers

import (
	"net/http"

	"dance-ops/internal/middleware"
	"dance-ops/internal/models"
)

// IsModerator returns true if the current user has the moderator role.
func IsModerator(r *http.Request) bool {
	return middleware.GetUserRole(r) == models.RoleModerator
}

// IsAdmin returns true if the current user has the admin role.
func IsAdmin(r *http.Request) bool {
	return middleware.GetUserRole(r) == models.RoleAdmin
}

func userEmail(r *http.Request) string {
	return middleware.GetUserEmail(r)
}
