package users

import (
	"time"

	"usersvc/cmd/identity"
)

// View is the public shape of a user. It never carries the password hash.
type View struct {
	ID        string
	Username  string
	Email     string
	Role      identity.Role
	CreatedAt time.Time
}

func toView(u identity.User) View {
	return View{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

func toUpdateInput(u identity.User) UpdateInput {
	return UpdateInput{Username: u.Username, Email: u.Email}
}

// LoginResult is a freshly issued bearer token.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      View
}
