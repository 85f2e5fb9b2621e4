/*
Package randx provides generation of unguessable identifiers: the opaque
reconnection token values handed to clients.
*/
package randx

import (
	"github.com/google/uuid"
)

// Token generates a new opaque reconnection token value.
// The value is random and unguessable; the server only ever stores an
// encrypted form of it.
func Token() string {
	return uuid.New().String()
}

// IsValidToken reports whether the given string has the shape of a token
// this server could have issued. It is a cheap pre-check before scanning
// the token store.
func IsValidToken(raw string) bool {
	_, err := uuid.Parse(raw)
	return err == nil
}
