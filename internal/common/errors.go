package common

import "errors"

// Callers match these kinds with errors.Is; services wrap them with an oops
// code and context (operation, field, step) before returning.
var (

	// repository specific errors
	ErrorNotFound = errors.New("not found")

	// request specific errors
	ErrorValidation = errors.New("validation error")
	ErrorConflict   = errors.New("already exists")

	// auth specific errors
	ErrorInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken         = errors.New("invalid token")
	ErrTokenExpired         = errors.New("token expired")

	// infrastructure errors
	ErrorStorage = errors.New("storage error")
	ErrorHashing = errors.New("hashing error")
	ErrorSigning = errors.New("signing error")
)
