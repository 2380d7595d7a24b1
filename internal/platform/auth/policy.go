package auth

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
)

// Every mutating handler goes through RequireUser and then scopes its store
// call to the returned UID, or through RequireSelf when the path names the
// user directly. A caller who does not own the target gets the same 404 as
// a missing document.

// RequireUser returns the authenticated caller or a 401.
func RequireUser(ctx context.Context) (*User, error) {
	user := UserFromContext(ctx)
	if user == nil || user.UID == "" {
		return nil, huma.Error401Unauthorized("authentication required")
	}
	return user, nil
}

// RequireSelf authorizes actions on the profile keyed by userID.
func RequireSelf(ctx context.Context, userID, notFoundMsg string) (*User, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	if !Owns(user, userID) {
		return nil, huma.Error404NotFound(notFoundMsg)
	}
	return user, nil
}

// Owns reports whether user owns a document whose userId is ownerID.
func Owns(user *User, ownerID string) bool {
	return user != nil && ownerID != "" && user.UID == ownerID
}
