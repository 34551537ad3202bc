package common

import (
	"errors"

	"github.com/lib/pq"
	"go.mongodb.org/mongo-driver/mongo"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// HTTP status codes used by the API
const (
	StatusOK = 200

	StatusBadRequest      = 400
	StatusNotFound        = 404
	StatusConflict        = 409
	StatusTooManyRequests = 429

	StatusInternalServerError = 500
	StatusServiceUnavailable  = 503
)

// Response messages
const (
	MsgSuccess         = "Success"
	MsgBadRequest      = "Bad request"
	MsgNotFound        = "Resource not found"
	MsgConflict        = "Resource already exists"
	MsgTooManyRequests = "Too many requests, please retry later"
	MsgInternalError   = "Internal server error"
	MsgDatabaseError   = "Storage operation failed"
	MsgInvalidFormat   = "Invalid data format"
)

// ErrorCode identifies an error class in API responses.
type ErrorCode struct {
	Code        string // e.g. VAL_001
	Category    string
	SubCategory string
	Description string
}

var (
	// System Errors (SYS_xxx)
	ErrCodeInternalServer = ErrorCode{
		Code:        "SYS_001",
		Category:    "System",
		SubCategory: "Internal",
		Description: "Internal system error",
	}

	// Validation Errors (VAL_xxx)
	ErrCodeValidationInput = ErrorCode{
		Code:        "VAL_001",
		Category:    "Validation",
		SubCategory: "Input",
		Description: "Invalid argument",
	}

	ErrCodeValidationFormat = ErrorCode{
		Code:        "VAL_002",
		Category:    "Validation",
		SubCategory: "Format",
		Description: "Malformed input data",
	}

	ErrCodeValidationNull = ErrorCode{
		Code:        "VAL_003",
		Category:    "Validation",
		SubCategory: "Null",
		Description: "Required argument is missing",
	}

	// Database Errors (DB_xxx)
	ErrCodeDatabase = ErrorCode{
		Code:        "DB",
		Category:    "Database",
		SubCategory: "General",
		Description: "Generic storage error",
	}

	ErrCodeDatabaseConnection = ErrorCode{
		Code:        "DB_001",
		Category:    "Database",
		SubCategory: "Connection",
		Description: "Storage connection error",
	}

	ErrCodeDatabaseQuery = ErrorCode{
		Code:        "DB_002",
		Category:    "Database",
		SubCategory: "Query",
		Description: "Storage query error",
	}

	// Business Logic Errors (BIZ_xxx)
	ErrCodeBusinessOperation = ErrorCode{
		Code:        "BIZ_002",
		Category:    "Business",
		SubCategory: "Operation",
		Description: "Operation could not be completed",
	}
)

// Error is the error type rendered by the HTTP layer.
type Error struct {
	Code       ErrorCode
	Message    string
	StatusCode int
	Details    any
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches on error code and message so sentinels survive wrapping.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code.Code == t.Code.Code && e.Message == t.Message
}

// NewError builds an *Error.
func NewError(code ErrorCode, message string, statusCode int, details any) error {
	return &Error{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Details:    details,
	}
}

// InvalidArgument reports a bad caller-supplied value. param names the offending argument.
func InvalidArgument(param, message string) error {
	return NewError(ErrCodeValidationInput, message, StatusBadRequest, param)
}

// NullArgument reports a missing request object.
func NullArgument(param string) error {
	return NewError(ErrCodeValidationNull, "Value cannot be null. (Parameter '"+param+"')", StatusBadRequest, param)
}

// IsInvalidArgument reports whether err is an InvalidArgument error.
func IsInvalidArgument(err error) bool {
	return hasCode(err, ErrCodeValidationInput)
}

// IsNullArgument reports whether err is a NullArgument error.
func IsNullArgument(err error) bool {
	return hasCode(err, ErrCodeValidationNull)
}

// ArgumentName returns the parameter carried by an InvalidArgument or NullArgument error.
func ArgumentName(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	name, _ := e.Details.(string)
	return name
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	return errors.As(err, &e) && e.Code.Code == code.Code
}

var (
	ErrRequiredField = NewError(ErrCodeValidationInput, "Required field is missing", StatusBadRequest, nil)

	ErrNotFound   = NewError(ErrCodeDatabaseQuery, "Document not found", StatusNotFound, nil)
	ErrDuplicate  = NewError(ErrCodeDatabaseQuery, MsgConflict, StatusConflict, nil)
	ErrConnection = NewError(ErrCodeDatabaseConnection, "Storage connection error", StatusServiceUnavailable, nil)
)

// ConvertStoreError maps a driver error onto the API error taxonomy.
// Errors that are already *Error are returned untouched.
func ConvertStoreError(err error) error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return err
	}

	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) || errors.Is(err, mongo.ErrClientDisconnected) {
		return ErrConnection
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "23":
			if pqErr.Code == "23505" {
				return ErrDuplicate
			}
			return NewError(ErrCodeDatabaseQuery, pqErr.Message, StatusBadRequest, nil)
		case "08":
			return ErrConnection
		}
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
			return ErrDuplicate
		}
	}

	return NewError(ErrCodeDatabase, MsgDatabaseError, StatusInternalServerError, nil)
}
