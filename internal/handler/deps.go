/*
Package handler drives the per-connection protocol state machine. It is the
composition root wiring the authenticator, the session/token manager, and
the room registry to one network connection.
*/
package handler

import (
	"tlschat/internal/app/auth"
	"tlschat/internal/app/chat"
	"tlschat/internal/app/token"
	"tlschat/internal/pkg/limiter"
)

// Deps bundles the shared components every connection handler needs.
// All components are constructed once at startup and passed by handle;
// nothing is reached through package-level state.
type Deps struct {
	Auth     *auth.Authenticator
	Sessions *token.Manager
	Rooms    *chat.Registry
	Limiter  *limiter.Keyed
}
