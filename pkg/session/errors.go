package session

import "errors"

// ErrNotFound is returned when a session id cannot be found in a store.
var ErrNotFound = errors.New("session not found")

// ErrNoTree is returned when navigation is attempted on a session whose
// activity tree has not been attached after loading.
var ErrNoTree = errors.New("session has no activity tree attached")
