// Package securityrpc describes the refinery.security.v1.SecurityService
// gRPC contract. Messages are protobuf well-known types, so the service
// descriptor and client stub are declared here instead of generated.
//
// Login takes a Struct with "username" and "password" and returns a Struct
// with "token", "expires_at" (RFC3339) and "user". ListBlockedOrigins returns
// a Struct whose "origins" field lists the active blocks. UnblockOrigin takes
// a Struct with "origin".
package securityrpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

const ServiceName = "refinery.security.v1.SecurityService"

const (
	MethodLogin              = "/" + ServiceName + "/Login"
	MethodPing               = "/" + ServiceName + "/Ping"
	MethodListBlockedOrigins = "/" + ServiceName + "/ListBlockedOrigins"
	MethodUnblockOrigin      = "/" + ServiceName + "/UnblockOrigin"
)

// SecurityServiceServer is implemented by the server side.
type SecurityServiceServer interface {
	Login(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	Ping(ctx context.Context, in *emptypb.Empty) (*timestamppb.Timestamp, error)
	ListBlockedOrigins(ctx context.Context, in *emptypb.Empty) (*structpb.Struct, error)
	UnblockOrigin(ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error)
}

func RegisterSecurityServiceServer(s grpc.ServiceRegistrar, srv SecurityServiceServer) {
	s.RegisterService(&serviceDesc, srv)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SecurityServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Login",
			Handler: unary(MethodLogin, func(s SecurityServiceServer, ctx context.Context, in *structpb.Struct) (any, error) {
				return s.Login(ctx, in)
			}),
		},
		{
			MethodName: "Ping",
			Handler: unary(MethodPing, func(s SecurityServiceServer, ctx context.Context, in *emptypb.Empty) (any, error) {
				return s.Ping(ctx, in)
			}),
		},
		{
			MethodName: "ListBlockedOrigins",
			Handler: unary(MethodListBlockedOrigins, func(s SecurityServiceServer, ctx context.Context, in *emptypb.Empty) (any, error) {
				return s.ListBlockedOrigins(ctx, in)
			}),
		},
		{
			MethodName: "UnblockOrigin",
			Handler: unary(MethodUnblockOrigin, func(s SecurityServiceServer, ctx context.Context, in *structpb.Struct) (any, error) {
				return s.UnblockOrigin(ctx, in)
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "refinery/security/v1/security.proto",
}

// unary builds a method handler that decodes the request into a fresh Req
// and runs call through the server interceptor chain.
func unary[Req any, PReq interface {
	*Req
}](method string, call func(SecurityServiceServer, context.Context, PReq) (any, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := PReq(new(Req))
		if err := dec(in); err != nil {
			return nil, err
		}
		s := srv.(SecurityServiceServer)
		if interceptor == nil {
			return call(s, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(s, ctx, req.(PReq))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// SecurityServiceClient is the client stub.
type SecurityServiceClient interface {
	Login(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Ping(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*timestamppb.Timestamp, error)
	ListBlockedOrigins(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	UnblockOrigin(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error)
}

type securityServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewSecurityServiceClient(cc grpc.ClientConnInterface) SecurityServiceClient {
	return &securityServiceClient{cc: cc}
}

func (c *securityServiceClient) Login(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, MethodLogin, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *securityServiceClient) Ping(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*timestamppb.Timestamp, error) {
	out := new(timestamppb.Timestamp)
	if err := c.cc.Invoke(ctx, MethodPing, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *securityServiceClient) ListBlockedOrigins(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, MethodListBlockedOrigins, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *securityServiceClient) UnblockOrigin(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, MethodUnblockOrigin, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
