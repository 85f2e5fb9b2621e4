/*
Package errs provides custom error types and application-level error code constants.

These error codes identify specific business or system errors both inside the
server and in the reason phrases sent to clients.
*/
package errs

// 1xxx: Protocol Errors (malformed or unexpected client input)
const (
	// ErrInvalidChoice indicates the client answered a menu prompt with an unknown option.
	ErrInvalidChoice = 1001

	// ErrEmptyRoomName indicates the client submitted a blank room name.
	ErrEmptyRoomName = 1002

	// ErrRateLimitExceeded indicates the client is sending messages faster than allowed.
	ErrRateLimitExceeded = 1003
)

// 2xxx: Authentication and Session Errors
const (
	// ErrInvalidCredentials indicates a login attempt with a wrong username or password.
	ErrInvalidCredentials = 2001

	// ErrUserAlreadyExists indicates a registration attempt with a taken username.
	ErrUserAlreadyExists = 2002

	// ErrTokenInvalid indicates a reconnection token that is unknown or expired.
	ErrTokenInvalid = 2003
)

// 3xxx: Room Errors
const (
	// ErrRoomExists indicates an attempt to create a room whose name is already taken.
	ErrRoomExists = 3001

	// ErrRoomNotFound indicates an operation on a room that does not exist.
	ErrRoomNotFound = 3002

	// ErrRoomCreateFailed indicates room creation could not be completed.
	ErrRoomCreateFailed = 3003
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified internal server error.
	ErrUnknown = 5000

	// ErrStorageFailed indicates a durable write or read could not be completed.
	ErrStorageFailed = 5001

	// ErrAIUnavailable indicates the inference endpoint could not produce a reply.
	ErrAIUnavailable = 5002
)
