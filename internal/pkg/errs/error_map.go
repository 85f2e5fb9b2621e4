/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError template used to
standardize reason phrases across the wire protocol and internal error handling.
*/
package errs

// errorMap stores the CustomError template for every application error code.
var errorMap = map[int]CustomError{
	// 1xxx: Protocol Errors
	ErrInvalidChoice:     {Code: ErrInvalidChoice, Message: "Invalid choice"},
	ErrEmptyRoomName:     {Code: ErrEmptyRoomName, Message: "Room name cannot be empty"},
	ErrRateLimitExceeded: {Code: ErrRateLimitExceeded, Message: "You are sending messages too quickly. Please slow down."},

	// 2xxx: Authentication and Session Errors
	ErrInvalidCredentials: {Code: ErrInvalidCredentials, Message: "Invalid credentials"},
	ErrUserAlreadyExists:  {Code: ErrUserAlreadyExists, Message: "Username already exists"},
	ErrTokenInvalid:       {Code: ErrTokenInvalid, Message: "Invalid or expired token"},

	// 3xxx: Room Errors
	ErrRoomExists:       {Code: ErrRoomExists, Message: "Room %s already exists"},
	ErrRoomNotFound:     {Code: ErrRoomNotFound, Message: "Room %s not found"},
	ErrRoomCreateFailed: {Code: ErrRoomCreateFailed, Message: "Room creation failed"},

	// 5xxx: Internal System Errors
	ErrUnknown:       {Code: ErrUnknown, Message: "Something went wrong. Please try again."},
	ErrStorageFailed: {Code: ErrStorageFailed, Message: "Could not save your data. Please try again."},
	ErrAIUnavailable: {Code: ErrAIUnavailable, Message: "The AI responder is unavailable right now."},
}
