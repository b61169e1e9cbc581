package handler

import (
	"context"
	"errors"
	"sort"
	"time"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/protoadapt"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/dtroode/identity-server/internal/apierrors"
)

const errorDomain = "identity-server"

// handleError converts service errors into gRPC statuses. Typed errors carry
// an ErrorInfo with their kind, field violations for validation failures and
// a RetryInfo for locked accounts.
func handleError(err error) error {
	if apiErr, ok := apierrors.As(err); ok {
		return apiStatus(apiErr).Err()
	}

	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request canceled")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "request deadline exceeded")
	default:
		return status.Error(codes.Internal, "internal server error")
	}
}

func apiStatus(apiErr *apierrors.APIError) *status.Status {
	code := apiErr.GRPCCode
	if code == codes.OK {
		code = codes.Internal
	}

	st := status.New(code, apiErr.Message)

	details := []protoadapt.MessageV1{
		&errdetails.ErrorInfo{Reason: string(apiErr.Kind), Domain: errorDomain},
	}

	if len(apiErr.Fields) > 0 {
		fields := make([]string, 0, len(apiErr.Fields))
		for f := range apiErr.Fields {
			fields = append(fields, f)
		}
		sort.Strings(fields)

		violations := make([]*errdetails.BadRequest_FieldViolation, 0, len(fields))
		for _, f := range fields {
			violations = append(violations, &errdetails.BadRequest_FieldViolation{
				Field:       f,
				Description: apiErr.Fields[f],
			})
		}
		details = append(details, &errdetails.BadRequest{FieldViolations: violations})
	}

	if apiErr.RetryAfterMinutes > 0 {
		details = append(details, &errdetails.RetryInfo{
			RetryDelay: durationpb.New(time.Duration(apiErr.RetryAfterMinutes) * time.Minute),
		})
	}

	withDetails, err := st.WithDetails(details...)
	if err != nil {
		return st
	}
	return withDetails
}
