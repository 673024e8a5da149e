package client

import (
	"context"
	"time"
)

type Client interface {
	Health(ctx context.Context) (string, error)
	Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error)
	Login(ctx context.Context, email string, password []byte) (*LoginResponse, error)
	LookupDevice(ctx context.Context, serialNumber string) (*Device, error)
}

type RegisterRequest struct {
	SerialNumber string `json:"serial_number"`
	Email        string `json:"email"`
	Username     string `json:"username"`
	Password     string `json:"password"`
	DeviceName   string `json:"device_name,omitempty"`
}

type RegisterResponse struct {
	Message    string `json:"-"`
	IdentityID string `json:"identity_id"`
}

type LoginResponse struct {
	SubjectID string    `json:"subject_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Device struct {
	OwnerName  string `json:"device_owner"`
	DeviceName string `json:"device_name"`
}
