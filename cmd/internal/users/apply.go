package users

import (
	"errors"

	"usersvc/cmd/internal/patch"
	"usersvc/cmd/internal/validation"
)

// applyPatch runs ops against a copy of cur and re-validates the result with
// the full-update rules. Any violation rejects the whole patch.
func applyPatch(cur UpdateInput, ops []patch.Operation) (UpdateInput, validation.Errors) {
	doc, err := patch.Apply(patch.Document{
		"username": cur.Username,
		"email":    cur.Email,
	}, ops, PatchFields...)
	if err != nil {
		var errs validation.Errors
		if errors.As(err, &errs) {
			return UpdateInput{}, errs
		}
		return UpdateInput{}, validation.Errors{{Field: "patch", Message: err.Error()}}
	}

	next := UpdateInput{Username: doc["username"], Email: doc["email"]}.normalized()
	if errs := validateUpdate(next); len(errs) > 0 {
		return UpdateInput{}, errs
	}
	return next, nil
}
