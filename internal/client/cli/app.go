package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/winklink/internal/client/client"
	"github.com/dmitrijs2005/winklink/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

type App struct {
	client client.Client
	reader *bufio.Reader
	out    io.Writer
}

func NewApp(c client.Client, in io.Reader, out io.Writer) *App {
	return &App{client: c, reader: bufio.NewReader(in), out: out}
}

// RegisterInput holds the values given as flags; empty ones are prompted for.
type RegisterInput struct {
	SerialNumber string
	Email        string
	Username     string
	DeviceName   string
}

// Register prompts for missing details and registers the device.
// The password is wiped before returning.
func (a *App) Register(ctx context.Context, in RegisterInput) error {
	var err error
	if in.SerialNumber, err = a.ask(in.SerialNumber, "Enter device serial number"); err != nil {
		return err
	}
	if in.Email, err = a.ask(in.Email, "Enter email"); err != nil {
		return err
	}
	if in.Username, err = a.ask(in.Username, "Enter user name"); err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	resp, err := a.client.Register(ctx, client.RegisterRequest{
		SerialNumber: in.SerialNumber,
		Email:        in.Email,
		Username:     in.Username,
		Password:     string(password),
		DeviceName:   in.DeviceName,
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, resp.Message)
	fmt.Fprintf(a.out, "Identity: %s\n", resp.IdentityID)
	return nil
}

// Login prompts for missing credentials and prints the session token.
func (a *App) Login(ctx context.Context, email string) error {
	email, err := a.ask(email, "Enter email")
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	resp, err := a.client.Login(ctx, email, password)
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Login successful")
	fmt.Fprintf(a.out, "Subject: %s\n", resp.SubjectID)
	fmt.Fprintf(a.out, "Expires: %s\n", resp.ExpiresAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(a.out, "Token: %s\n", resp.Token)
	return nil
}

// Device prints the owner and name of the device with the given serial number.
func (a *App) Device(ctx context.Context, serialNumber string) error {
	d, err := a.client.LookupDevice(ctx, serialNumber)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Owner: %s\n", d.OwnerName)
	if d.DeviceName != "" {
		fmt.Fprintf(a.out, "Name: %s\n", d.DeviceName)
	}
	return nil
}

func (a *App) Health(ctx context.Context) error {
	msg, err := a.client.Health(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, msg)
	return nil
}

func (a *App) ask(value, prompt string) (string, error) {
	if value != "" {
		return value, nil
	}
	return getSimpleText(a.reader, prompt, a.out)
}
