// Package users implements the identity use cases: registration,
// authentication, full and partial profile updates, password changes,
// lookup, listing and deletion.
//
// Every request is validated before it touches the store. Validation failures
// are returned as validation.Errors; the remaining failures use the identity
// error taxonomy (NotFound, Conflict, InvalidCredentials, StoreUnavailable).
package users
