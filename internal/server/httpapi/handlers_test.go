package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/winklink/internal/common"
	"github.com/dmitrijs2005/winklink/internal/logging"
	"github.com/dmitrijs2005/winklink/internal/server/models"
	"github.com/dmitrijs2005/winklink/internal/server/observability"
	"github.com/dmitrijs2005/winklink/internal/server/services"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUsers struct {
	registerReq services.RegisterRequest
	registerOut *services.Registration
	registerErr error

	lookupSerial string
	lookupOut    *models.Device
	lookupErr    error

	loginEmail, loginPassword string
	loginOut                  *services.LoginResult
	loginErr                  error

	panicOnLogin bool
}

func (f *fakeUsers) Register(_ context.Context, req services.RegisterRequest) (*services.Registration, error) {
	f.registerReq = req
	return f.registerOut, f.registerErr
}

func (f *fakeUsers) LookupDevice(_ context.Context, serial string) (*models.Device, error) {
	f.lookupSerial = serial
	return f.lookupOut, f.lookupErr
}

func (f *fakeUsers) Login(_ context.Context, email, password string) (*services.LoginResult, error) {
	if f.panicOnLogin {
		panic("login exploded")
	}
	f.loginEmail, f.loginPassword = email, password
	return f.loginOut, f.loginErr
}

func newTestServer(us UserService) (*Server, *observability.Metrics) {
	m := observability.NewMetrics()
	return NewServer("127.0.0.1:0", logging.Nop{}, us, m, []string{"http://localhost:3000"}, time.Second), m
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func conflictOn(field string) error {
	return oops.With("field", field).Wrap(fmt.Errorf("%w: %s", common.ErrorConflict, field))
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(&fakeUsers{})

	rec := do(t, s.Handler(), http.MethodGet, "/api/healthchecker", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, map[string]any{"status": "success", "message": "WinkLink Simple API"}, decode(t, rec))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRegister_Created(t *testing.T) {
	fake := &fakeUsers{registerOut: &services.Registration{
		Created:    true,
		IdentityID: "9b2f3c1e-1111-4222-8333-444455556666",
		OwnerName:  "alice",
		CreatedAt:  time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC),
	}}
	s, _ := newTestServer(fake)

	rec := do(t, s.Handler(), http.MethodPost, "/api/register",
		`{"serial_number":"SN-001","email":"alice@example.com","username":"alice","password":"hunter2","device_name":"Living Room"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, map[string]any{
		"status":      "success",
		"message":     "User alice has been created at 2024-03-04 05:06:07 [utc]",
		"identity_id": "9b2f3c1e-1111-4222-8333-444455556666",
	}, decode(t, rec))
	assert.Equal(t, services.RegisterRequest{
		SerialNumber: "SN-001",
		Email:        "alice@example.com",
		OwnerName:    "alice",
		Password:     "hunter2",
		DeviceName:   "Living Room",
	}, fake.registerReq)
}

func TestRegister_Errors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    int
		status  string
		message string
	}{
		{"serial conflict", conflictOn("serial_number"), http.StatusConflict, "fail", "Serial number already exists"},
		{"email conflict", conflictOn("email"), http.StatusConflict, "fail", "Email already exists"},
		{"username conflict", conflictOn("owner_name"), http.StatusConflict, "fail", "Username already exists"},
		{"identity conflict", conflictOn("identity_id"), http.StatusConflict, "fail", "Record already exists"},
		{"validation", fmt.Errorf("%w: serial number longer than 12 characters", common.ErrorValidation), http.StatusBadRequest, "fail", "validation error: serial number longer than 12 characters"},
		{"storage", fmt.Errorf("%w: pq: relation users does not exist", common.ErrorStorage), http.StatusInternalServerError, "error", "internal error"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "error", "internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(&fakeUsers{registerErr: tt.err})

			rec := do(t, s.Handler(), http.MethodPost, "/api/register",
				`{"serial_number":"SN-001","email":"a@b.c","username":"a","password":"p"}`)

			require.Equal(t, tt.code, rec.Code)
			assert.Equal(t, map[string]any{"status": tt.status, "message": tt.message}, decode(t, rec))
		})
	}
}

func TestRegister_BadBodies(t *testing.T) {
	tests := []struct {
		name string
		body string
		code int
	}{
		{"empty", "", http.StatusBadRequest},
		{"not json", "serial=1", http.StatusBadRequest},
		{"two objects", `{"email":"a"}{"email":"b"}`, http.StatusBadRequest},
		{"too large", `{"device_name":"` + strings.Repeat("x", maxRequestBodySize) + `"}`, http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeUsers{}
			s, _ := newTestServer(fake)

			rec := do(t, s.Handler(), http.MethodPost, "/api/register", tt.body)

			require.Equal(t, tt.code, rec.Code)
			assert.Equal(t, "fail", decode(t, rec)["status"])
			assert.Empty(t, fake.registerReq.SerialNumber, "service must not be called")
		})
	}
}

func TestLookupDevice(t *testing.T) {
	fake := &fakeUsers{lookupOut: &models.Device{OwnerName: "alice", DeviceName: "Living Room"}}
	s, _ := newTestServer(fake)

	rec := do(t, s.Handler(), http.MethodGet, "/api/device/SN-001", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"device_owner": "alice", "device_name": "Living Room"}, decode(t, rec))
	assert.Equal(t, "SN-001", fake.lookupSerial)
}

func TestLookupDevice_Errors(t *testing.T) {
	s, _ := newTestServer(&fakeUsers{lookupErr: fmt.Errorf("wrapped: %w", common.ErrorNotFound)})
	rec := do(t, s.Handler(), http.MethodGet, "/api/device/SN-404", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "fail", decode(t, rec)["status"])

	s, _ = newTestServer(&fakeUsers{lookupErr: fmt.Errorf("%w: connection refused", common.ErrorStorage)})
	rec = do(t, s.Handler(), http.MethodGet, "/api/device/SN-001", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestLogin(t *testing.T) {
	expires := time.Date(2024, 3, 5, 5, 6, 7, 0, time.UTC)
	fake := &fakeUsers{loginOut: &services.LoginResult{SubjectID: "id-1", Token: "tok", ExpiresAt: expires}}
	s, _ := newTestServer(fake)

	rec := do(t, s.Handler(), http.MethodPost, "/api/login", `{"email":"alice@example.com","password":"hunter2"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{
		"status":     "success",
		"subject_id": "id-1",
		"token":      "tok",
		"expires_at": "2024-03-05T05:06:07Z",
	}, decode(t, rec))
	assert.Equal(t, "alice@example.com", fake.loginEmail)
	assert.Equal(t, "hunter2", fake.loginPassword)
}

func TestLogin_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{"invalid", common.ErrorInvalidCredentials, http.StatusUnauthorized, "invalid email or password"},
		{"validation", fmt.Errorf("%w: email is required", common.ErrorValidation), http.StatusBadRequest, "validation error: email is required"},
		{"signing", fmt.Errorf("%w: empty signing key", common.ErrorSigning), http.StatusInternalServerError, "internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(&fakeUsers{loginErr: tt.err})

			rec := do(t, s.Handler(), http.MethodPost, "/api/login", `{"email":"a","password":"b"}`)

			require.Equal(t, tt.code, rec.Code)
			assert.Equal(t, tt.msg, decode(t, rec)["message"])
		})
	}
}

func TestRecovery(t *testing.T) {
	s, _ := newTestServer(&fakeUsers{panicOnLogin: true})

	rec := do(t, s.Handler(), http.MethodPost, "/api/login", `{"email":"a","password":"b"}`)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "error", decode(t, rec)["status"])
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(&fakeUsers{})
	h := s.Handler()

	rec := do(t, h, http.MethodGet, "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/register", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRequestID_Propagated(t *testing.T) {
	s, _ := newTestServer(&fakeUsers{})

	req := httptest.NewRequest(http.MethodGet, "/api/healthchecker", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
}

func TestCORS(t *testing.T) {
	s, _ := newTestServer(&fakeUsers{})
	h := s.Handler()

	req := httptest.NewRequest(http.MethodOptions, "/api/register", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")

	req = httptest.NewRequest(http.MethodGet, "/api/healthchecker", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsRecordedPerRoute(t *testing.T) {
	s, m := newTestServer(&fakeUsers{lookupOut: &models.Device{}})
	h := s.Handler()

	do(t, h, http.MethodGet, "/api/device/SN-1", "")
	do(t, h, http.MethodGet, "/api/device/SN-2", "")

	got := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/api/device/{serial_number}", "200"))
	assert.InDelta(t, 2, got, 0)

	rec := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "winklink_http_requests_total")
}
