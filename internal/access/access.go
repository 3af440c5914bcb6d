// Package access holds the permission predicates shared by middleware and services.
// Every predicate is a pure function of the actor as loaded for the current request;
// a nil actor is an anonymous caller.
package access

import (
	"net/http"

	"github.com/Baaaki/yamdb/internal/models"
)

// IsSafeMethod reports whether method only reads state.
func IsSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// IsAdminOrSuper gates account management and catalog writes.
func IsAdminOrSuper(actor *models.Account) bool {
	if actor == nil {
		return false
	}
	return actor.Role == models.RoleAdmin || actor.IsStaff
}

// IsModerator reports whether actor may edit content authored by others.
func IsModerator(actor *models.Account) bool {
	if actor == nil {
		return false
	}
	return actor.IsSuperuser || actor.IsStaff ||
		actor.Role == models.RoleAdmin || actor.Role == models.RoleModerator
}

// CanModifyObject decides access to a review or comment written by authorID.
// Reads are always allowed; writes need the author or a moderator-level actor.
func CanModifyObject(actor *models.Account, method string, authorID uint) bool {
	if IsSafeMethod(method) {
		return true
	}
	if actor == nil {
		return false
	}
	return IsModerator(actor) || actor.ID == authorID
}
