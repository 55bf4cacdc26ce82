package errors

import "fmt"

// Application error types organized by category for better error handling

type ErrorType int

// Domain/Business Logic Errors - errors related to business rules and validation
const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeValidation
	ErrorTypeNotFound

	// Infrastructure Errors - errors related to external systems and storage
	ErrorTypeDatabase
	ErrorTypeHTTPRequest
	ErrorTypeUnexpectedResponse
	ErrorTypeJSONParse

	// System/Configuration Errors - errors related to system setup and configuration
	ErrorTypeConfiguration
)

// String returns the string representation of error type
func (e ErrorType) String() string {
	switch e {
	case ErrorTypeValidation:
		return "VALIDATION_ERROR"
	case ErrorTypeNotFound:
		return "NOT_FOUND_ERROR"
	case ErrorTypeDatabase:
		return "DATABASE_ERROR"
	case ErrorTypeHTTPRequest:
		return "HTTP_REQUEST_ERROR"
	case ErrorTypeUnexpectedResponse:
		return "UNEXPECTED_RESPONSE_ERROR"
	case ErrorTypeJSONParse:
		return "JSON_PARSE_ERROR"
	case ErrorTypeConfiguration:
		return "CONFIGURATION_ERROR"
	default:
		return "UNKNOWN_ERROR"
	}
}

const (
	ValidationError         = ErrorTypeValidation
	NotFoundError           = ErrorTypeNotFound
	DatabaseError           = ErrorTypeDatabase
	HTTPRequestError        = ErrorTypeHTTPRequest
	UnexpectedResponseError = ErrorTypeUnexpectedResponse
	JSONParseError          = ErrorTypeJSONParse
	ConfigurationError      = ErrorTypeConfiguration
)

type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type.String(), e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type.String(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(errorType ErrorType, message string) *AppError {
	return &AppError{
		Type:    errorType,
		Message: message,
	}
}

func Wrap(errorType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
	}
}

// Domain/Business Logic Error Constructors
func NewValidationError(message string) *AppError {
	return New(ValidationError, message)
}

func NewNotFoundError(message string) *AppError {
	return New(NotFoundError, message)
}

// Infrastructure Error Constructors
func NewDatabaseError(message string, cause error) *AppError {
	return Wrap(DatabaseError, message, cause)
}

func NewHTTPRequestError(message string, cause error) *AppError {
	return Wrap(HTTPRequestError, message, cause)
}

func NewUnexpectedResponseError(message string) *AppError {
	return New(UnexpectedResponseError, message)
}

func NewJSONParseError(message string, cause error) *AppError {
	return Wrap(JSONParseError, message, cause)
}

// System/Configuration Error Constructors
func NewConfigurationError(message string, cause error) *AppError {
	return Wrap(ConfigurationError, message, cause)
}

// Helper functions for error type checking
func IsValidationError(err error) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Type == ValidationError
	}
	return false
}

func IsNotFoundError(err error) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Type == NotFoundError
	}
	return false
}

func IsDatabaseError(err error) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Type == DatabaseError
	}
	return false
}

func IsHTTPRequestError(err error) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Type == HTTPRequestError
	}
	return false
}

func IsUnexpectedResponseError(err error) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Type == UnexpectedResponseError
	}
	return false
}

func IsJSONParseError(err error) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Type == JSONParseError
	}
	return false
}

func IsConfigurationError(err error) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Type == ConfigurationError
	}
	return false
}
