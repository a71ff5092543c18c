package users

import (
	"strings"

	"usersvc/cmd/identity"
	"usersvc/cmd/internal/validation"
)

const (
	UsernameMinLen = 3
	UsernameMaxLen = 100
	EmailMaxLen    = 200
	PasswordMinLen = 6
	PasswordMaxLen = 256
)

const MsgInvalidEmail = "invalid email format"

var (
	usernameRules = []validation.Rule{
		validation.Required("Username is required."),
		validation.MinLen(UsernameMinLen, "Username must have at least 3 characters."),
		validation.MaxLen(UsernameMaxLen, "Username must have at most 100 characters."),
	}
	emailRules = []validation.Rule{
		validation.Required("Email is required."),
		validation.Email(MsgInvalidEmail),
		validation.MaxLen(EmailMaxLen, "Email must have at most 200 characters."),
	}
	passwordRules = []validation.Rule{
		validation.Required("Password is required."),
		validation.MinLen(PasswordMinLen, "Password must have at least 6 characters."),
		validation.MaxLen(PasswordMaxLen, "Password must have at most 256 characters."),
	}
	newPasswordRules = []validation.Rule{
		validation.Required("New password is required."),
		validation.MinLen(PasswordMinLen, "New password must have at least 6 characters."),
		validation.MaxLen(PasswordMaxLen, "New password must have at most 256 characters."),
	}
)

// CreateInput is a registration request.
type CreateInput struct {
	Username string
	Email    string
	Password string
}

func (in CreateInput) normalized() CreateInput {
	in.Username = identity.NormalizeUsername(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	return in
}

func validateCreate(in CreateInput) validation.Errors {
	return validation.Check(
		validation.Field{Name: "username", Value: in.Username, Rules: usernameRules},
		validation.Field{Name: "email", Value: in.Email, Rules: emailRules},
		validation.Field{Name: "password", Value: in.Password, Rules: passwordRules},
	)
}

// UpdateInput is the full-update representation of a user. Patches are
// applied to it before it is validated and persisted.
type UpdateInput struct {
	Username string
	Email    string
}

func (in UpdateInput) normalized() UpdateInput {
	in.Username = identity.NormalizeUsername(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	return in
}

func validateUpdate(in UpdateInput) validation.Errors {
	return validation.Check(
		validation.Field{Name: "username", Value: in.Username, Rules: usernameRules},
		validation.Field{Name: "email", Value: in.Email, Rules: emailRules},
	)
}

// LoginInput carries credentials. Password length is not checked here so that
// accounts created under older limits can still sign in.
type LoginInput struct {
	Email    string
	Password string
}

func validateLogin(in LoginInput) validation.Errors {
	return validation.Check(
		validation.Field{Name: "email", Value: in.Email, Rules: []validation.Rule{
			validation.Required("Email is required."),
			validation.Email(MsgInvalidEmail),
		}},
		validation.Field{Name: "password", Value: in.Password, Rules: []validation.Rule{
			validation.Required("Password is required."),
		}},
	)
}

type ChangePasswordInput struct {
	CurrentPassword string
	NewPassword     string
}

func validateChangePassword(in ChangePasswordInput) validation.Errors {
	return validation.Check(
		validation.Field{Name: "current_password", Value: in.CurrentPassword, Rules: []validation.Rule{
			validation.Required("Current password is required."),
		}},
		validation.Field{Name: "new_password", Value: in.NewPassword, Rules: newPasswordRules},
	)
}
