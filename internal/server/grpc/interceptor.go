package grpc

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/refinery/internal/common"
	"github.com/dmitrijs2005/refinery/internal/securityrpc"
	"github.com/dmitrijs2005/refinery/internal/server/guard"
	"github.com/dmitrijs2005/refinery/internal/server/rbac"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// methodPermissions lists the token-protected methods. Login runs the
// pipeline itself; any other method is only admitted.
var methodPermissions = map[string]string{
	securityrpc.MethodListBlockedOrigins: rbac.PermSecurityRead,
	securityrpc.MethodUnblockOrigin:      rbac.PermSecurityManage,
}

func (s *GRPCServer) pipelineInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if info.FullMethod == securityrpc.MethodLogin {
		return handler(ctx, req)
	}

	origin := originFrom(ctx)
	payload := payloadOf(req)

	permission, protected := methodPermissions[info.FullMethod]
	if !protected {
		if err := s.pipeline.Admit(ctx, origin, payload); err != nil {
			return nil, statusOf(err)
		}
		return handler(ctx, req)
	}

	claims, err := s.pipeline.Authorize(ctx, guard.Request{
		Origin:     origin,
		Token:      tokenFrom(ctx),
		Permission: permission,
		Payload:    payload,
	})
	if err != nil {
		return nil, statusOf(err)
	}

	return handler(guard.WithClaims(ctx, claims), req)
}

// statusOf converts a pipeline denial into a gRPC status.
func statusOf(err error) error {
	d := guard.AsDenial(err)
	var code codes.Code
	switch d.Status {
	case http.StatusUnauthorized:
		code = codes.Unauthenticated
	case http.StatusForbidden:
		code = codes.PermissionDenied
	case http.StatusLocked, http.StatusTooManyRequests:
		code = codes.ResourceExhausted
	case http.StatusServiceUnavailable:
		code = codes.Unavailable
	default:
		code = codes.Internal
	}
	return status.Error(code, d.Message)
}

func originFrom(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return ""
	}
	addr := p.Addr.String()
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

// tokenFrom reads a bearer token from the authorization metadata key,
// falling back to access_token.
func tokenFrom(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if values := md.Get(common.AuthorizationHeaderName); len(values) > 0 {
		h := values[0]
		if len(h) > len(common.BearerPrefix) && strings.EqualFold(h[:len(common.BearerPrefix)], common.BearerPrefix) {
			return strings.TrimSpace(h[len(common.BearerPrefix):])
		}
		return ""
	}
	if values := md.Get(common.AccessTokenHeaderName); len(values) > 0 {
		return strings.TrimSpace(values[0])
	}
	return ""
}

func payloadOf(req any) map[string]any {
	if s, ok := req.(*structpb.Struct); ok && s != nil {
		return s.AsMap()
	}
	return nil
}
