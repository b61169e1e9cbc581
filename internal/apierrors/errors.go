// Package apierrors defines typed outcomes returned by the identity services.
// Every rejection is an *APIError carrying a Kind and the gRPC code it is
// rendered with, so callers match outcomes with errors.Is against the
// package-level sentinels.
package apierrors

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"google.golang.org/grpc/codes"
)

// Kind classifies an APIError.
type Kind string

const (
	KindValidation            Kind = "validation"
	KindInvalidCredentials    Kind = "invalid_credentials"
	KindAccountLocked         Kind = "account_locked"
	KindAlreadyExists         Kind = "already_exists"
	KindInvalidOrExpiredOtp   Kind = "invalid_or_expired_otp"
	KindNoPendingRegistration Kind = "no_pending_registration"
	KindUnauthorized          Kind = "unauthorized"
	KindSecondFactorRequired  Kind = "second_factor_required"
	KindTransient             Kind = "transient"
	KindInternal              Kind = "internal"
)

// APIError is a typed, user-facing error.
type APIError struct {
	Err               error
	Fields            map[string]string
	Kind              Kind
	Message           string
	GRPCCode          codes.Code
	RetryAfterMinutes int
}

// Error implements error.
func (e *APIError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}

	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}

	return fmt.Sprintf("%s (%s)", e.Message, strings.Join(parts, "; "))
}

// Unwrap returns the underlying cause, if any.
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an APIError of the same kind.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons.
var (
	ErrValidation            = &APIError{Kind: KindValidation}
	ErrInvalidCredentials    = &APIError{Kind: KindInvalidCredentials}
	ErrAccountLocked         = &APIError{Kind: KindAccountLocked}
	ErrAlreadyExists         = &APIError{Kind: KindAlreadyExists}
	ErrInvalidOrExpiredOtp   = &APIError{Kind: KindInvalidOrExpiredOtp}
	ErrNoPendingRegistration = &APIError{Kind: KindNoPendingRegistration}
	ErrUnauthorized          = &APIError{Kind: KindUnauthorized}
	ErrSecondFactorRequired  = &APIError{Kind: KindSecondFactorRequired}
	ErrTransient             = &APIError{Kind: KindTransient}
	ErrInternal              = &APIError{Kind: KindInternal}
)

func NewErrValidation(fields map[string]string) *APIError {
	return &APIError{
		Kind:     KindValidation,
		GRPCCode: codes.InvalidArgument,
		Message:  "validation failed",
		Fields:   fields,
	}
}

// NewErrInvalidArgument reports a single malformed argument.
func NewErrInvalidArgument(field, message string) *APIError {
	return NewErrValidation(map[string]string{field: message})
}

func NewErrInvalidCredentials() *APIError {
	return &APIError{
		Kind:     KindInvalidCredentials,
		GRPCCode: codes.Unauthenticated,
		Message:  "Invalid email or password",
	}
}

func NewErrAccountLocked(remainingMinutes int) *APIError {
	return &APIError{
		Kind:              KindAccountLocked,
		GRPCCode:          codes.PermissionDenied,
		Message:           fmt.Sprintf("Account is locked. Try again in %d minutes.", remainingMinutes),
		RetryAfterMinutes: remainingMinutes,
	}
}

func NewErrAlreadyExists() *APIError {
	return &APIError{
		Kind:     KindAlreadyExists,
		GRPCCode: codes.AlreadyExists,
		Message:  "User with the given email already exists.",
	}
}

func NewErrInvalidOrExpiredOtp() *APIError {
	return &APIError{
		Kind:     KindInvalidOrExpiredOtp,
		GRPCCode: codes.InvalidArgument,
		Message:  "Invalid or expired OTP.",
	}
}

func NewErrNoPendingRegistration() *APIError {
	return &APIError{
		Kind:     KindNoPendingRegistration,
		GRPCCode: codes.NotFound,
		Message:  "No pending registration found for the provided email.",
	}
}

func NewErrUnauthorized(message string) *APIError {
	return &APIError{
		Kind:     KindUnauthorized,
		GRPCCode: codes.Unauthenticated,
		Message:  message,
	}
}

func NewErrSecondFactorRequired() *APIError {
	return &APIError{
		Kind:     KindSecondFactorRequired,
		GRPCCode: codes.Unauthenticated,
		Message:  "Two-factor code is required",
	}
}

// NewErrTransient reports a retryable infrastructure failure.
func NewErrTransient(message string, err error) *APIError {
	return &APIError{
		Kind:     KindTransient,
		GRPCCode: codes.Unavailable,
		Message:  message,
		Err:      err,
	}
}

func NewErrInternal(err error) *APIError {
	return &APIError{
		Kind:     KindInternal,
		GRPCCode: codes.Internal,
		Message:  "internal server error",
		Err:      err,
	}
}

// As extracts an *APIError from the error chain.
func As(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsContextError reports whether err comes from request cancellation or a deadline.
func IsContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
