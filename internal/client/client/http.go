package client

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/winklink/internal/netx"
	"github.com/sethvargo/go-retry"
)

const (
	defaultTimeout = 10 * time.Second
	retryBase      = 200 * time.Millisecond
)

type envelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type registerEnvelope struct {
	envelope
	RegisterResponse
}

type loginEnvelope struct {
	envelope
	LoginResponse
}

type deviceEnvelope struct {
	envelope
	Device
}

type HTTPClient struct {
	baseURL string
	http    *http.Client
	retries uint64
	backoff time.Duration
}

// NewHTTPClient returns a client for the API at baseURL, e.g.
// "http://localhost:8000". A zero timeout uses 10s.
func NewHTTPClient(baseURL string, timeout time.Duration, retries uint64) *HTTPClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		retries: retries,
		backoff: retryBase,
	}
}

func (c *HTTPClient) Health(ctx context.Context) (string, error) {
	var resp envelope
	err := c.idempotent(ctx, func(ctx context.Context) error {
		return c.call(ctx, http.MethodGet, "/api/healthchecker", nil, &resp, &resp)
	})
	if err != nil {
		return "", err
	}
	return resp.Message, nil
}

func (c *HTTPClient) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	var resp registerEnvelope
	if err := c.call(ctx, http.MethodPost, "/api/register", req, &resp, &resp.envelope); err != nil {
		return nil, err
	}
	resp.RegisterResponse.Message = resp.envelope.Message
	return &resp.RegisterResponse, nil
}

func (c *HTTPClient) Login(ctx context.Context, email string, password []byte) (*LoginResponse, error) {
	req := struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}{Email: email, Password: string(password)}

	var resp loginEnvelope
	if err := c.call(ctx, http.MethodPost, "/api/login", req, &resp, &resp.envelope); err != nil {
		return nil, err
	}
	return &resp.LoginResponse, nil
}

func (c *HTTPClient) LookupDevice(ctx context.Context, serialNumber string) (*Device, error) {
	var resp deviceEnvelope
	err := c.idempotent(ctx, func(ctx context.Context) error {
		resp = deviceEnvelope{}
		return c.call(ctx, http.MethodGet, "/api/device/"+url.PathEscape(serialNumber), nil, &resp, &resp.envelope)
	})
	if err != nil {
		return nil, err
	}
	return &resp.Device, nil
}

// call performs one request. out receives the body; env must point into out
// so error answers can be read from it.
func (c *HTTPClient) call(ctx context.Context, method, path string, in, out any, env *envelope) error {
	code, err := netx.DoJSON(ctx, c.http, method, c.baseURL+path, in, out)
	if err != nil {
		if code == 0 {
			return errors.Join(ErrUnavailable, err)
		}
		return &APIError{StatusCode: code, Message: err.Error(), kind: kindForStatus(code)}
	}
	if code >= 200 && code < 300 {
		return nil
	}
	return &APIError{StatusCode: code, Message: env.Message, kind: kindForStatus(code)}
}

// idempotent retries fn while the server is unreachable or answers 5xx.
func (c *HTTPClient) idempotent(ctx context.Context, fn func(context.Context) error) error {
	b := retry.WithMaxRetries(c.retries, retry.NewExponential(c.backoff))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		err := fn(ctx)
		if errors.Is(err, ErrUnavailable) {
			return retry.RetryableError(err)
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode >= http.StatusInternalServerError {
			return retry.RetryableError(err)
		}
		return err
	})
}

func kindForStatus(code int) error {
	switch {
	case code == http.StatusBadRequest, code == http.StatusRequestEntityTooLarge:
		return ErrBadRequest
	case code == http.StatusUnauthorized:
		return ErrUnauthorized
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusConflict:
		return ErrConflict
	case code >= http.StatusInternalServerError:
		return ErrServer
	default:
		return nil
	}
}
