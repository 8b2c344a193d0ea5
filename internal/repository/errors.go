// Package repository defines error types that are reused across multiple
// repositories. These sentinel values let higher layers such as the auth
// service and handlers distinguish failure scenarios without inspecting
// driver-specific errors.
package repository

import "errors"

// ErrEmailExists is returned when an insert hits the unique index on
// users.email. Handlers translate this into an HTTP 409 response.
var ErrEmailExists = errors.New("email already exists")

// ErrNotFound is returned when a lookup matches no row. It covers missing
// users and tickets alike; handlers translate it into an HTTP 404 response.
var ErrNotFound = errors.New("not found")
