// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"syscall"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrorType represents different types of errors for handling strategies
type ErrorType int

const (
	ErrorTypeUnknown            ErrorType = iota
	ErrorTypeTransient                    // Temporary network issues
	ErrorTypePermanent                    // Invalid credentials, permissions
	ErrorTypeTimeout                      // Request timeouts
	ErrorTypeRateLimit                    // API rate limiting
	ErrorTypeQuotaExceeded                // Project quota exhausted
	ErrorTypeServiceUnavailable           // Service downtime
	ErrorTypeInvalidInput                 // Bad input data
	ErrorTypeResourceNotFound             // Missing resources
)

// ClassifiedError wraps an error with type information
type ClassifiedError struct {
	Original  error
	Type      ErrorType
	Message   string
	Retryable bool
}

func (e *ClassifiedError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Original == nil {
		return e.Type.String()
	}
	return e.Original.Error()
}

func (e *ClassifiedError) Unwrap() error {
	return e.Original
}

// IsRetryable returns whether this error should be retried
func (e *ClassifiedError) IsRetryable() bool {
	return e.Retryable
}

// HTTPStatusError reports a non-2xx response from a download endpoint.
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// ClassifyError categorizes an error for appropriate handling
func ClassifyError(err error) *ClassifiedError {
	if err == nil {
		return nil
	}

	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified
	}

	if errors.Is(err, context.Canceled) {
		return newClassified(err, ErrorTypePermanent, false, "Operation canceled")
	}

	var httpErr *HTTPStatusError
	if errors.As(err, &httpErr) {
		return classifyHTTPStatus(err, httpErr.StatusCode)
	}

	if st, ok := status.FromError(err); ok && st.Code() != codes.Unknown {
		return classifyGRPCStatus(err, st.Code())
	}

	if isNetworkError(err) {
		return newClassified(err, ErrorTypeTransient, true, "Network error")
	}

	if isTimeoutError(err) {
		return newClassified(err, ErrorTypeTimeout, true, "Timeout error")
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "rate limit") || strings.Contains(errStr, "too many requests"):
		return newClassified(err, ErrorTypeRateLimit, true, "Rate limit exceeded")

	case strings.Contains(errStr, "service unavailable") || strings.Contains(errStr, "internal server error"):
		return newClassified(err, ErrorTypeServiceUnavailable, true, "Service unavailable")

	case strings.Contains(errStr, "quota exceeded"):
		return newClassified(err, ErrorTypeQuotaExceeded, false, "Quota exceeded")

	case strings.Contains(errStr, "unauthorized") || strings.Contains(errStr, "forbidden") ||
		strings.Contains(errStr, "invalid credentials") || strings.Contains(errStr, "permission denied"):
		return newClassified(err, ErrorTypePermanent, false, "Authentication/authorization error")

	case strings.Contains(errStr, "not found") || strings.Contains(errStr, "no such file"):
		return newClassified(err, ErrorTypeResourceNotFound, false, "Resource not found")

	case strings.Contains(errStr, "invalid") || strings.Contains(errStr, "malformed") ||
		strings.Contains(errStr, "bad request"):
		return newClassified(err, ErrorTypeInvalidInput, false, "Invalid input")
	}

	return newClassified(err, ErrorTypeUnknown, false, "Unknown error")
}

func newClassified(err error, t ErrorType, retryable bool, prefix string) *ClassifiedError {
	return &ClassifiedError{
		Original:  err,
		Type:      t,
		Message:   fmt.Sprintf("%s: %v", prefix, err),
		Retryable: retryable,
	}
}

// classifyGRPCStatus maps vision API status codes onto error types
func classifyGRPCStatus(err error, code codes.Code) *ClassifiedError {
	switch code {
	case codes.Unavailable:
		return newClassified(err, ErrorTypeServiceUnavailable, true, "Service unavailable")
	case codes.ResourceExhausted:
		return newClassified(err, ErrorTypeRateLimit, true, "Rate limit exceeded")
	case codes.DeadlineExceeded:
		return newClassified(err, ErrorTypeTimeout, true, "Timeout error")
	case codes.Aborted, codes.Internal:
		return newClassified(err, ErrorTypeTransient, true, "Transient service error")
	case codes.Unauthenticated, codes.PermissionDenied:
		return newClassified(err, ErrorTypePermanent, false, "Authentication/authorization error")
	case codes.InvalidArgument, codes.FailedPrecondition, codes.OutOfRange:
		return newClassified(err, ErrorTypeInvalidInput, false, "Invalid input")
	case codes.NotFound:
		return newClassified(err, ErrorTypeResourceNotFound, false, "Resource not found")
	case codes.Canceled:
		return newClassified(err, ErrorTypePermanent, false, "Operation canceled")
	default:
		return newClassified(err, ErrorTypeUnknown, false, "Unknown error")
	}
}

// classifyHTTPStatus maps download response codes onto error types
func classifyHTTPStatus(err error, statusCode int) *ClassifiedError {
	switch {
	case statusCode == http.StatusTooManyRequests:
		return newClassified(err, ErrorTypeRateLimit, true, "Rate limit exceeded")
	case statusCode == http.StatusRequestTimeout || statusCode == http.StatusGatewayTimeout:
		return newClassified(err, ErrorTypeTimeout, true, "Timeout error")
	case statusCode >= 500:
		return newClassified(err, ErrorTypeServiceUnavailable, true, "Service unavailable")
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return newClassified(err, ErrorTypePermanent, false, "Authentication/authorization error")
	case statusCode == http.StatusNotFound || statusCode == http.StatusGone:
		return newClassified(err, ErrorTypeResourceNotFound, false, "Resource not found")
	default:
		return newClassified(err, ErrorTypeInvalidInput, false, "Invalid input")
	}
}

// isNetworkError checks if an error is network-related
func isNetworkError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTemporary || dnsErr.IsTimeout
	}

	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH)
}

// isTimeoutError checks if an error is timeout-related
func isTimeoutError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded")
}

// NewTransientError creates a new transient error
func NewTransientError(message string, cause error) *ClassifiedError {
	return &ClassifiedError{
		Original:  cause,
		Type:      ErrorTypeTransient,
		Message:   message,
		Retryable: true,
	}
}

// NewPermanentError creates a new permanent error
func NewPermanentError(message string, cause error) *ClassifiedError {
	return &ClassifiedError{
		Original:  cause,
		Type:      ErrorTypePermanent,
		Message:   message,
		Retryable: false,
	}
}
