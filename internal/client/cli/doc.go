// Package cli provides the WinkLink command-line client.
//
// Commands:
//   - register: register a device to a new owner account
//   - login: sign in and print a session token
//   - device: show who owns a device
//   - health: check that the server answers
//
// Values not given as flags are prompted for; passwords are always read from
// the terminal without echo.
package cli
