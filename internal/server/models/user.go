// Package models holds the records persisted by the server.
package models

import "time"

// User is one registered device and its owner. ID is storage-internal;
// IdentityID is the public identifier minted at registration.
type User struct {
	ID           int64
	IdentityID   string
	SerialNumber string
	DeviceName   string
	OwnerName    string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Device is the public view of a registered device.
type Device struct {
	OwnerName  string `json:"device_owner"`
	DeviceName string `json:"device_name"`
}

func (u *User) Device() *Device {
	return &Device{OwnerName: u.OwnerName, DeviceName: u.DeviceName}
}
