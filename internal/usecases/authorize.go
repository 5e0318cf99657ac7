package usecases

import "llamachat/internal/entities"

// Authorize is the role gate: the caller must be signed in, active, and ranked at least required.
func Authorize(user *entities.User, required entities.Role) error {
	if user == nil || !user.IsActive {
		return ErrUnauthenticated
	}
	if !user.HasRole(required) {
		return ErrAccessDenied
	}
	return nil
}
