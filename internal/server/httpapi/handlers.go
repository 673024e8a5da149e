package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dmitrijs2005/winklink/internal/server/services"
	"github.com/go-chi/chi/v5"
)

const healthMessage = "WinkLink Simple API"

type registerRequest struct {
	SerialNumber string `json:"serial_number"`
	Email        string `json:"email"`
	Username     string `json:"username"`
	Password     string `json:"password"`
	DeviceName   string `json:"device_name"`
}

type registerResponse struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	IdentityID string `json:"identity_id"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Status    string    `json:"status"`
	SubjectID string    `json:"subject_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, Response{Status: statusSuccess, Message: healthMessage})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	reg, err := s.users.Register(r.Context(), services.RegisterRequest{
		SerialNumber: req.SerialNumber,
		Email:        req.Email,
		OwnerName:    req.Username,
		Password:     req.Password,
		DeviceName:   req.DeviceName,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, registerResponse{
		Status:     statusSuccess,
		Message:    fmt.Sprintf("User %s has been created at %s [utc]", reg.OwnerName, reg.CreatedAt.UTC().Format(time.DateTime)),
		IdentityID: reg.IdentityID,
	})
}

func (s *Server) handleLookupDevice(w http.ResponseWriter, r *http.Request) {
	device, err := s.users.LookupDevice(r.Context(), chi.URLParam(r, "serial_number"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, device)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := s.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Status:    statusSuccess,
		SubjectID: res.SubjectID,
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
	})
}

// decodeJSON reads a single JSON object into v, answering 400 or 413 itself
// when the body is unusable.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)

	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeFail(w, http.StatusRequestEntityTooLarge, "request body too large")
		case errors.Is(err, io.EOF):
			writeFail(w, http.StatusBadRequest, "request body is empty")
		default:
			writeFail(w, http.StatusBadRequest, "invalid JSON body")
		}
		return false
	}

	if dec.More() {
		writeFail(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}

	return true
}
