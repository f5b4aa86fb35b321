package client

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/refinery/internal/common"
	"github.com/dmitrijs2005/refinery/internal/securityrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Session is the result of a successful login.
type Session struct {
	Token     string
	ExpiresAt time.Time
	Username  string
	Role      string
}

// BlockedOrigin is one active block as reported by the server. BlockedUntil
// is zero for permanent blocks.
type BlockedOrigin struct {
	Origin       string
	Permanent    bool
	BlockedUntil time.Time
	Reason       string
	Actor        string
}

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      securityrpc.SecurityServiceClient
	accessToken string
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if s.accessToken != "" && method != securityrpc.MethodLogin {
		ctx = withAccessToken(ctx, s.accessToken)
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

func NewGRPCClient(endpointURL string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL}

	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(endpointURL, opts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.client = securityrpc.NewSecurityServiceClient(conn)
	return c, nil
}

// SetToken sets the session token sent with protected calls.
func (s *GRPCClient) SetToken(token string) {
	s.accessToken = token
}

func (s *GRPCClient) Login(ctx context.Context, userName string, password []byte) (*Session, error) {
	req, err := structpb.NewStruct(map[string]any{
		"username": userName,
		"password": string(password),
	})
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Login(ctx, req)
	if err != nil {
		return nil, s.mapError(err)
	}

	fields := resp.GetFields()
	session := &Session{Token: fields["token"].GetStringValue()}
	if exp := fields["expires_at"].GetStringValue(); exp != "" {
		if t, err := time.Parse(time.RFC3339, exp); err == nil {
			session.ExpiresAt = t
		}
	}
	if user := fields["user"].GetStructValue(); user != nil {
		session.Username = user.GetFields()["username"].GetStringValue()
		session.Role = user.GetFields()["role"].GetStringValue()
	}

	s.accessToken = session.Token
	return session, nil
}

// Ping returns the server clock.
func (s *GRPCClient) Ping(ctx context.Context) (time.Time, error) {
	resp, err := s.client.Ping(ctx, &emptypb.Empty{})
	if err != nil {
		return time.Time{}, s.mapError(err)
	}
	return resp.AsTime(), nil
}

func (s *GRPCClient) ListBlockedOrigins(ctx context.Context) ([]BlockedOrigin, error) {
	resp, err := s.client.ListBlockedOrigins(ctx, &emptypb.Empty{})
	if err != nil {
		return nil, s.mapError(err)
	}

	values := resp.GetFields()["origins"].GetListValue().GetValues()
	out := make([]BlockedOrigin, 0, len(values))
	for _, v := range values {
		f := v.GetStructValue().GetFields()
		b := BlockedOrigin{
			Origin:    f["origin"].GetStringValue(),
			Permanent: f["permanent"].GetBoolValue(),
			Reason:    f["reason"].GetStringValue(),
			Actor:     f["actor"].GetStringValue(),
		}
		if until := f["blocked_until"].GetStringValue(); until != "" {
			if t, err := time.Parse(time.RFC3339, until); err == nil {
				b.BlockedUntil = t
			}
		}
		out = append(out, b)
	}
	return out, nil
}

func (s *GRPCClient) UnblockOrigin(ctx context.Context, origin string) error {
	req, err := structpb.NewStruct(map[string]any{"origin": origin})
	if err != nil {
		return err
	}
	if _, err := s.client.UnblockOrigin(ctx, req); err != nil {
		return s.mapError(err)
	}
	return nil
}

func (s *GRPCClient) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated:
		return fmt.Errorf("%w: %s", ErrUnauthorized, st.Message())
	case codes.PermissionDenied:
		return fmt.Errorf("%w: %s", ErrForbidden, st.Message())
	case codes.ResourceExhausted:
		return fmt.Errorf("%w: %s", ErrLocked, st.Message())
	case codes.NotFound:
		return ErrNotFound
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
