package ocr

import (
	"errors"
	"fmt"
)

// ErrorType classifies processing failures.
type ErrorType string

const (
	TypeUnsupportedFileType ErrorType = "unsupported_file_type"
	TypeUnreadableImage     ErrorType = "unreadable_image"
	TypeExternalService     ErrorType = "external_service"
	// TypeServiceUnavailable is an external service failure caused by a timeout.
	TypeServiceUnavailable ErrorType = "service_unavailable"
	TypeEmptyOCRResult     ErrorType = "empty_ocr_result"
	TypeResultNotFound     ErrorType = "result_not_found"
)

// GenericMessage is shown to users for failures whose detail must not leak.
const GenericMessage = "An error occurred during processing. Please try again."

// Error is a processing error with a type, a user-facing message and an optional cause.
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same type. A service_unavailable error also
// matches external_service.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Type == e.Type {
		return true
	}
	return t.Type == TypeExternalService && e.Type == TypeServiceUnavailable
}

// Sentinels for errors.Is.
var (
	ErrUnsupportedFileType = &Error{Type: TypeUnsupportedFileType}
	ErrUnreadableImage     = &Error{Type: TypeUnreadableImage}
	ErrExternalService     = &Error{Type: TypeExternalService}
	ErrServiceUnavailable  = &Error{Type: TypeServiceUnavailable}
	ErrEmptyOCRResult      = &Error{Type: TypeEmptyOCRResult}
	ErrResultNotFound      = &Error{Type: TypeResultNotFound}
)

// NewError creates a processing error.
func NewError(errType ErrorType, message string, err error) *Error {
	return &Error{Type: errType, Message: message, Err: err}
}

// IsValidation reports whether err was raised before any external call.
func IsValidation(err error) bool {
	return errors.Is(err, ErrUnsupportedFileType) || errors.Is(err, ErrUnreadableImage)
}

// UserMessage returns the message to show for err. Validation errors and
// empty results keep their message; everything else becomes GenericMessage.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		switch e.Type {
		case TypeUnsupportedFileType, TypeUnreadableImage, TypeEmptyOCRResult, TypeResultNotFound:
			return e.Message
		}
	}
	return GenericMessage
}
