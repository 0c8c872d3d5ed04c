package utils

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrorCodeValidationError   ErrorCode = "VALIDATION_ERROR"
	ErrorCodeInvalidLinkFormat ErrorCode = "INVALID_LINK_FORMAT"
	ErrorCodeExtractionFailed  ErrorCode = "EXTRACTION_FAILED"
	ErrorCodeFormatUnavailable ErrorCode = "FORMAT_UNAVAILABLE"
	ErrorCodeUpstreamFailed    ErrorCode = "UPSTREAM_FAILED"
	ErrorCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
	ErrorCodeInternalError     ErrorCode = "INTERNAL_ERROR"
)

type AppError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	StatusCode int                    `json:"-"`
	cause      error
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.cause
}

func NewError(code ErrorCode, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Details:    make(map[string]interface{}),
	}
}

func NewErrorWithDetails(code ErrorCode, message string, statusCode int, details map[string]interface{}) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Details:    details,
	}
}

// AsAppError unwraps err into an *AppError, if it is one.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Common error constructors
func NewValidationError(message string, details map[string]interface{}) *AppError {
	return NewErrorWithDetails(ErrorCodeValidationError, message, http.StatusBadRequest, details)
}

func NewInvalidLinkError(link string) *AppError {
	return NewErrorWithDetails(
		ErrorCodeInvalidLinkFormat,
		"Invalid YouTube URL",
		http.StatusBadRequest,
		map[string]interface{}{
			"expected_format": "https://www.youtube.com/watch?v=VIDEO_ID",
			"provided":        link,
		},
	)
}

// NewExtractionError keeps the cause's message visible to the caller.
func NewExtractionError(err error) *AppError {
	appErr := NewError(
		ErrorCodeExtractionFailed,
		fmt.Sprintf("Failed to get video info: %v", err),
		http.StatusInternalServerError,
	)
	appErr.cause = err
	return appErr
}

func NewFormatUnavailableError(formatID string) *AppError {
	return NewErrorWithDetails(
		ErrorCodeFormatUnavailable,
		"Invalid format ID",
		http.StatusBadRequest,
		map[string]interface{}{
			"format_id": formatID,
		},
	)
}

// NewUpstreamError forwards statusCode when it is a real HTTP error status.
func NewUpstreamError(statusCode int, err error) *AppError {
	if statusCode < 400 || statusCode > 599 {
		statusCode = http.StatusInternalServerError
	}
	appErr := NewError(
		ErrorCodeUpstreamFailed,
		fmt.Sprintf("Failed to create download stream: %v", err),
		statusCode,
	)
	appErr.cause = err
	return appErr
}

func NewRateLimitError() *AppError {
	return NewError(
		ErrorCodeRateLimitExceeded,
		"Too many requests",
		http.StatusTooManyRequests,
	)
}

func NewInternalError() *AppError {
	return NewError(
		ErrorCodeInternalError,
		"An unexpected error occurred",
		http.StatusInternalServerError,
	)
}
