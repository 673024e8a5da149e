// Package services contains server-side business logic. UserService
// registers devices in a single transaction, answers existence and device
// lookups, and authenticates owners into session tokens.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/winklink/internal/common"
	"github.com/dmitrijs2005/winklink/internal/cryptox"
	"github.com/dmitrijs2005/winklink/internal/dbx"
	"github.com/dmitrijs2005/winklink/internal/logging"
	"github.com/dmitrijs2005/winklink/internal/server/auth"
	"github.com/dmitrijs2005/winklink/internal/server/config"
	"github.com/dmitrijs2005/winklink/internal/server/models"
	"github.com/dmitrijs2005/winklink/internal/server/notify"
	"github.com/dmitrijs2005/winklink/internal/server/observability"
	"github.com/dmitrijs2005/winklink/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/winklink/internal/server/repositories/users"
	"github.com/google/uuid"
	"github.com/samber/oops"
)

// dummyPassword seeds the hash verified for unknown emails so that failed
// logins cost the same whether or not the account exists.
const dummyPassword = "winklink-timing-parity"

const notifyTimeout = 5 * time.Second

// Recorder receives per-operation outcomes.
type Recorder interface {
	RecordRegistration(result string, d time.Duration)
	RecordLogin(result string)
}

type nopRecorder struct{}

func (nopRecorder) RecordRegistration(string, time.Duration) {}
func (nopRecorder) RecordLogin(string)                       {}

// RegisterRequest carries the registration input. DeviceName is optional.
type RegisterRequest struct {
	SerialNumber string
	Email        string
	OwnerName    string
	Password     string
	DeviceName   string
}

// Registration describes a committed registration.
type Registration struct {
	Created    bool
	IdentityID string
	OwnerName  string
	CreatedAt  time.Time
}

// LoginResult is a freshly issued session.
type LoginResult struct {
	SubjectID string
	Token     string
	ExpiresAt time.Time
}

type UserService struct {
	db          *sql.DB
	tx          *dbx.Transactor
	repomanager repomanager.RepositoryManager
	hasher      cryptox.PasswordHasher
	issuer      *auth.Issuer
	notifier    notify.Notifier
	metrics     Recorder
	log         logging.Logger
	now         func() time.Time
	newID       func() string
	dummyHash   string
}

// Option customises a UserService.
type Option func(*UserService)

func WithLogger(l logging.Logger) Option { return func(s *UserService) { s.log = l } }

func WithNotifier(n notify.Notifier) Option { return func(s *UserService) { s.notifier = n } }

func WithMetrics(r Recorder) Option { return func(s *UserService) { s.metrics = r } }

func WithHasher(h cryptox.PasswordHasher) Option { return func(s *UserService) { s.hasher = h } }

// NewUserService constructs a UserService over the pool db. Hashing cost,
// token lifetime and signing key, and the transaction timeout come from cfg.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, opts ...Option) (*UserService, error) {
	s := &UserService{
		db:          db,
		repomanager: m,
		hasher: cryptox.NewArgon2idHasher(cryptox.Params{
			Time:    cfg.Argon2Time,
			Memory:  cfg.Argon2Memory,
			Threads: cfg.Argon2Threads,
		}),
		issuer:   auth.NewIssuer([]byte(cfg.SecretKey), cfg.TokenTTL),
		notifier: notify.Nop{},
		metrics:  nopRecorder{},
		log:      logging.Nop{},
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.log = s.log.With("component", "user_service")
	s.tx = dbx.NewTransactor(db, cfg.TxTimeout, s.log)

	dummy, err := s.hasher.Hash(dummyPassword)
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}
	s.dummyHash = dummy

	return s, nil
}

// Register validates req, rejects values already taken, then writes the
// record in three steps inside one transaction: identity and contact,
// credentials, device name. Nothing is visible unless all three commit.
func (s *UserService) Register(ctx context.Context, req RegisterRequest) (reg *Registration, err error) {
	start := s.now()
	defer func() {
		s.metrics.RecordRegistration(registrationResult(err), s.now().Sub(start))
	}()

	if err := validateRegister(req); err != nil {
		return nil, err
	}

	repo := s.repomanager.Users(s.db)
	checks := []struct {
		field users.Field
		value string
	}{
		{users.FieldSerialNumber, req.SerialNumber},
		{users.FieldEmail, req.Email},
		{users.FieldOwnerName, req.OwnerName},
	}
	for _, c := range checks {
		exists, err := repo.Exists(ctx, c.field, c.value)
		if err != nil {
			return nil, s.storageError(ctx, "register", err)
		}
		if exists {
			s.log.Info(ctx, "registration rejected", "field", string(c.field))
			return nil, conflictError(c.field)
		}
	}

	user := &models.User{
		IdentityID:   s.newID(),
		SerialNumber: req.SerialNumber,
		Email:        req.Email,
		CreatedAt:    s.now().UTC(),
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		txRepo := s.repomanager.Users(tx)

		// step 1: identity and contact
		if utf8.RuneCountInString(user.SerialNumber) > common.MaxSerialNumberLength {
			return oops.Code("VALIDATION_FAILED").
				With("operation", "register", "field", string(users.FieldSerialNumber), "step", 1).
				Wrap(fmt.Errorf("%w: serial number longer than %d characters", common.ErrorValidation, common.MaxSerialNumberLength))
		}
		if err := txRepo.Insert(ctx, user); err != nil {
			return stepError(1, err)
		}

		// step 2: credentials
		hash, err := s.hasher.Hash(req.Password)
		if err != nil {
			return oops.Code("REGISTER_FAILED").
				With("operation", "register", "step", 2).
				Wrap(err)
		}
		if err := txRepo.UpdateCredentials(ctx, user.IdentityID, req.OwnerName, hash); err != nil {
			return stepError(2, err)
		}

		// step 3: device
		if err := txRepo.UpdateDeviceName(ctx, user.IdentityID, req.DeviceName); err != nil {
			return stepError(3, err)
		}

		return nil
	})
	if err != nil {
		err = classifyTxError(err)
		if errors.Is(err, common.ErrorConflict) || errors.Is(err, common.ErrorValidation) {
			s.log.Info(ctx, "registration rejected", logging.ErrorAttrs(err)...)
		} else {
			s.log.Error(ctx, "registration failed", logging.ErrorAttrs(err)...)
		}
		return nil, err
	}

	s.log.Info(ctx, "device registered",
		"identity_id", user.IdentityID,
		"serial_number", user.SerialNumber,
	)
	s.notifyRegistered(ctx, user, req.DeviceName)

	return &Registration{
		Created:    true,
		IdentityID: user.IdentityID,
		OwnerName:  req.OwnerName,
		CreatedAt:  user.CreatedAt,
	}, nil
}

func (s *UserService) notifyRegistered(ctx context.Context, user *models.User, deviceName string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	err := s.notifier.DeviceRegistered(ctx, notify.DeviceRegistered{
		IdentityID:   user.IdentityID,
		SerialNumber: user.SerialNumber,
		DeviceName:   deviceName,
		RegisteredAt: user.CreatedAt,
	})
	if err != nil {
		s.log.Warn(ctx, "device event not published", "identity_id", user.IdentityID, "error", err)
	}
}

// Exists reports whether a committed user has value in field. The answer is
// advisory: a concurrent registration may take the value right after.
func (s *UserService) Exists(ctx context.Context, field users.Field, value string) (bool, error) {
	if _, ok := field.Column(); !ok {
		return false, oops.Code("VALIDATION_FAILED").
			With("operation", "exists", "field", string(field)).
			Wrap(fmt.Errorf("%w: unknown field %q", common.ErrorValidation, field))
	}

	exists, err := s.repomanager.Users(s.db).Exists(ctx, field, value)
	if err != nil {
		return false, s.storageError(ctx, "exists", err)
	}
	return exists, nil
}

// LookupDevice returns the owner and name of the device with serialNumber.
func (s *UserService) LookupDevice(ctx context.Context, serialNumber string) (*models.Device, error) {
	if strings.TrimSpace(serialNumber) == "" {
		return nil, validationError("lookup_device", users.FieldSerialNumber)
	}

	user, err := s.repomanager.Users(s.db).GetBySerialNumber(ctx, serialNumber)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, oops.Code("NOT_FOUND").
				With("operation", "lookup_device").
				Wrap(err)
		}
		return nil, s.storageError(ctx, "lookup_device", err)
	}

	return user.Device(), nil
}

// Login verifies password against the account registered with email and
// issues a session token for its identity.
func (s *UserService) Login(ctx context.Context, email, password string) (res *LoginResult, err error) {
	defer func() {
		s.metrics.RecordLogin(loginResult(err))
	}()

	if email == "" {
		return nil, validationError("login", users.FieldEmail)
	}
	if password == "" {
		return nil, validationError("login", "password")
	}

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.hasher.Verify(password, s.dummyHash)
			return nil, invalidCredentials()
		}
		return nil, s.storageError(ctx, "login", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		s.log.Info(ctx, "login rejected", "identity_id", user.IdentityID)
		return nil, invalidCredentials()
	}

	token, err := s.issuer.Issue(user.IdentityID)
	if err != nil {
		s.log.Error(ctx, "token issue failed", logging.ErrorAttrs(err)...)
		return nil, err
	}

	return &LoginResult{
		SubjectID: user.IdentityID,
		Token:     token.Value,
		ExpiresAt: token.ExpiresAt,
	}, nil
}

func validateRegister(req RegisterRequest) error {
	required := []struct {
		field users.Field
		value string
	}{
		{users.FieldSerialNumber, req.SerialNumber},
		{users.FieldEmail, req.Email},
		{users.FieldOwnerName, req.OwnerName},
		{"password", req.Password},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return validationError("register", r.field)
		}
	}
	return nil
}

func validationError(operation string, field users.Field) error {
	return oops.Code("VALIDATION_FAILED").
		With("operation", operation, "field", string(field)).
		Wrap(fmt.Errorf("%w: %s is required", common.ErrorValidation, field))
}

func conflictError(field users.Field) error {
	return oops.Code("CONFLICT").
		With("operation", "register", "field", string(field)).
		Wrap(fmt.Errorf("%w: %s", common.ErrorConflict, field))
}

func invalidCredentials() error {
	return oops.Code("INVALID_CREDENTIALS").
		With("operation", "login").
		Wrap(common.ErrorInvalidCredentials)
}

func (s *UserService) storageError(ctx context.Context, operation string, err error) error {
	wrapped := oops.Code("STORAGE_FAILED").
		With("operation", operation).
		Wrap(fmt.Errorf("%w: %w", common.ErrorStorage, err))
	s.log.Error(ctx, "storage failure", logging.ErrorAttrs(wrapped)...)
	return wrapped
}

// stepError tags a failed write with its step, turning unique violations
// into conflicts on the offending field.
func stepError(step int, err error) error {
	if column, ok := dbx.UniqueViolation(err, users.UniqueColumns...); ok {
		field, _ := users.FieldForColumn(column)
		return oops.Code("CONFLICT").
			With("operation", "register", "field", string(field), "step", step).
			Wrap(fmt.Errorf("%w: %s", common.ErrorConflict, field))
	}
	return oops.Code("REGISTER_FAILED").
		With("operation", "register", "step", step).
		Wrap(fmt.Errorf("%w: %w", common.ErrorStorage, err))
}

// classifyTxError maps errors raised outside the steps (begin, commit,
// timeout) onto the same kinds the steps use.
func classifyTxError(err error) error {
	for _, kind := range []error{common.ErrorValidation, common.ErrorConflict, common.ErrorStorage, common.ErrorHashing} {
		if errors.Is(err, kind) {
			return err
		}
	}
	if column, ok := dbx.UniqueViolation(err, users.UniqueColumns...); ok {
		field, _ := users.FieldForColumn(column)
		return oops.Code("CONFLICT").
			With("operation", "register", "field", string(field)).
			Wrap(fmt.Errorf("%w: %s", common.ErrorConflict, field))
	}
	return oops.Code("REGISTER_FAILED").
		With("operation", "register").
		Wrap(fmt.Errorf("%w: %w", common.ErrorStorage, err))
}

// ErrorField returns the field an error was tagged with, if any.
func ErrorField(err error) string {
	if oopsErr, ok := oops.AsOops(err); ok {
		if f, ok := oopsErr.Context()["field"].(string); ok {
			return f
		}
	}
	return ""
}

func registrationResult(err error) string {
	switch {
	case err == nil:
		return observability.ResultSuccess
	case errors.Is(err, common.ErrorConflict):
		return observability.ResultConflict
	case errors.Is(err, common.ErrorValidation):
		return observability.ResultValidation
	default:
		return observability.ResultError
	}
}

func loginResult(err error) string {
	switch {
	case err == nil:
		return observability.ResultSuccess
	case errors.Is(err, common.ErrorInvalidCredentials):
		return observability.ResultInvalid
	case errors.Is(err, common.ErrorValidation):
		return observability.ResultValidation
	default:
		return observability.ResultError
	}
}
