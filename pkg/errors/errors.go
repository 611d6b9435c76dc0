package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
)

// Error is the API error contract: a stable code, a client-safe message and
// the HTTP status. The cause is kept for logs only.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return "<nil>"
	case e.Err != nil:
		return e.Message + ": " + e.Err.Error()
	default:
		return e.Message
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrInactiveAccount    = New("ACCOUNT_INACTIVE", http.StatusForbidden, "account is inactive")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrUnavailable        = New("SERVICE_UNAVAILABLE", http.StatusServiceUnavailable, "service unavailable")
	ErrDuplicateKey       = New("DUPLICATE_KEY", http.StatusBadRequest, "duplicate key in batch")
	ErrTagTypeMismatch    = New("TAG_TYPE_MISMATCH", http.StatusBadRequest, "tag value does not match tag type")
	ErrUnknownReference   = New("UNKNOWN_REFERENCE", http.StatusBadRequest, "referenced record does not exist")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// Invalid wraps a payload validation failure. Struct validator failures are
// converted to FieldErrors keyed by JSON path, e.g. "passes[1].endDueDate".
func Invalid(err error, message string) *Error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(FieldErrors, 0, len(verrs))
		for _, fe := range verrs {
			fields.Add(fieldPath(fe.Namespace()), ruleMessage(fe))
		}
		err = fields
	}
	return Wrap(err, ErrValidation.Code, ErrValidation.Status, message)
}

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	var fields FieldErrors
	if errors.As(err, &fields) {
		return Wrap(fields, ErrValidation.Code, ErrValidation.Status, ErrValidation.Message)
	}
	var we *WalletError
	if errors.As(err, &we) {
		return Wrap(we, we.GetError(), http.StatusBadGateway, we.Error())
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return Wrap(err, ErrConflict.Code, ErrConflict.Status, "record already exists")
		case pqForeignKeyViolation:
			return Wrap(err, ErrUnknownReference.Code, ErrUnknownReference.Status, ErrUnknownReference.Message)
		}
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// fieldPath drops the root struct name and lower-cases the first letter of
// each segment: "UpdateDueRequest.Passes[1].EndDueDate" -> "passes[1].endDueDate".
func fieldPath(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, part := range parts {
		if part == "" {
			continue
		}
		parts[i] = strings.ToLower(part[:1]) + part[1:]
	}
	return strings.Join(parts, ".")
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if", "required_with", "required_without":
		return "is required"
	case "email":
		return "must be a valid email"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "min", "gte":
		return "must be at least " + fe.Param()
	case "max", "lte":
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "dive", "unique":
		return "contains invalid entries"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
