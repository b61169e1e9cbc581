// Package identity describes the identity.v1.Identity gRPC service. Requests
// and responses are google.protobuf.Struct messages with camelCase fields, so
// the service needs no generated code.
package identity

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified service name.
const ServiceName = "identity.v1.Identity"

// Method names.
const (
	MethodRegister         = "Register"
	MethodValidateOtp      = "ValidateOtp"
	MethodResendOtp        = "ResendOtp"
	MethodLogin            = "Login"
	MethodRefreshToken     = "RefreshToken"
	MethodLogout           = "Logout"
	MethodHealth           = "Health"
	MethodSetupTwoFactor   = "SetupTwoFactor"
	MethodConfirmTwoFactor = "ConfirmTwoFactor"
	MethodDisableTwoFactor = "DisableTwoFactor"
)

// FullMethod returns the /service/method path of a method.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// IdentityServer is the server API for the identity service.
type IdentityServer interface {
	Register(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ValidateOtp(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ResendOtp(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Login(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RefreshToken(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Logout(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Health(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetupTwoFactor(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ConfirmTwoFactor(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DisableTwoFactor(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(IdentityServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

// ServiceDesc is the grpc.ServiceDesc for the identity service.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*IdentityServer)(nil),
	Methods: []grpc.MethodDesc{
		method(MethodRegister, IdentityServer.Register),
		method(MethodValidateOtp, IdentityServer.ValidateOtp),
		method(MethodResendOtp, IdentityServer.ResendOtp),
		method(MethodLogin, IdentityServer.Login),
		method(MethodRefreshToken, IdentityServer.RefreshToken),
		method(MethodLogout, IdentityServer.Logout),
		method(MethodHealth, IdentityServer.Health),
		method(MethodSetupTwoFactor, IdentityServer.SetupTwoFactor),
		method(MethodConfirmTwoFactor, IdentityServer.ConfirmTwoFactor),
		method(MethodDisableTwoFactor, IdentityServer.DisableTwoFactor),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "identity/v1/identity.proto",
}

// RegisterIdentityServer registers srv on s.
func RegisterIdentityServer(s grpc.ServiceRegistrar, srv IdentityServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func method(name string, call unaryCall) grpc.MethodDesc {
	fullMethod := FullMethod(name)

	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(IdentityServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: fullMethod,
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(IdentityServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// Client calls the identity service over a client connection.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Call invokes method with in and returns the response message.
func (c *Client) Call(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Decode copies the fields of in into dst using dst's json tags.
func Decode(in *structpb.Struct, dst any) error {
	if in == nil {
		in = &structpb.Struct{}
	}

	data, err := protojson.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to decode message: %w", err)
	}
	return nil
}

// Encode builds a message from a json-tagged value.
func Encode(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}

	out := &structpb.Struct{}
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("failed to build message: %w", err)
	}
	return out, nil
}
