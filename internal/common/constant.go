// Package common contains shared constants, sentinel errors and small helpers
// used across WinkLink components.
package common

// MaxSerialNumberLength is the longest serial number, in characters, a device
// may be registered with.
const MaxSerialNumberLength = 12

// AuthorizationHeaderName carries the bearer session token on HTTP requests.
const AuthorizationHeaderName = "Authorization"
