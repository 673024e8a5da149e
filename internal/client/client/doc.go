// Package client talks to the WinkLink HTTP API.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic API contract (see the Client interface): Health,
//     Register, Login and LookupDevice.
//  2. A concrete HTTP implementation (see HTTPClient) that encodes requests,
//     decodes the JSON envelopes and maps status codes to sentinel errors.
//
// # Error Handling
//
// Server answers are exposed as sentinel errors that callers can match with
// errors.Is: ErrUnavailable, ErrBadRequest, ErrUnauthorized, ErrNotFound,
// ErrConflict, ErrServer. The server's message travels in an *APIError.
//
// Read-only calls (Health, LookupDevice) are retried with exponential
// backoff while the server is unreachable; Register and Login are sent once.
package client
