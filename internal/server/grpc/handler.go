package grpc

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/refinery/internal/common"
	"github.com/dmitrijs2005/refinery/internal/server/guard"
	"github.com/dmitrijs2005/refinery/internal/server/services"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

func (s *GRPCServer) Login(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.AsMap()
	username, _ := fields["username"].(string)
	password, _ := fields["password"].(string)

	res, err := s.pipeline.Login(ctx, guard.LoginRequest{
		Origin:   originFrom(ctx),
		Username: username,
		Password: password,
		Payload:  fields,
	})
	if err != nil {
		return nil, statusOf(err)
	}

	out, err := structpb.NewStruct(map[string]any{
		"token":      res.Token,
		"expires_at": res.Claims.ExpiresAt.Time.UTC().Format(time.RFC3339),
		"user": map[string]any{
			"id":       res.User.ID,
			"username": res.User.UserName,
			"role":     res.User.Role,
		},
	})
	if err != nil {
		s.logger.Error(ctx, "encoding login response", "error", err)
		return nil, status.Error(codes.Internal, guard.MsgInternal)
	}
	return out, nil
}

func (s *GRPCServer) Ping(ctx context.Context, _ *emptypb.Empty) (*timestamppb.Timestamp, error) {
	return timestamppb.New(s.clock.Now()), nil
}

func (s *GRPCServer) ListBlockedOrigins(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	items, err := s.ledger.ListBlocked(ctx)
	if err != nil {
		return nil, s.serviceError(ctx, err)
	}

	origins := make([]any, 0, len(items))
	for _, b := range items {
		entry := map[string]any{
			"origin":     b.Origin,
			"permanent":  b.Permanent,
			"reason":     b.Reason,
			"actor":      b.Actor,
			"created_at": b.CreatedAt.UTC().Format(time.RFC3339),
		}
		if !b.Permanent {
			entry["blocked_until"] = b.BlockedUntil.UTC().Format(time.RFC3339)
		}
		origins = append(origins, entry)
	}

	out, err := structpb.NewStruct(map[string]any{"origins": origins})
	if err != nil {
		return nil, s.serviceError(ctx, err)
	}
	return out, nil
}

func (s *GRPCServer) UnblockOrigin(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	origin, _ := req.AsMap()["origin"].(string)

	actor := services.Actor{Origin: originFrom(ctx)}
	if c := guard.ClaimsFrom(ctx); c != nil {
		actor.Name = c.Username
	}

	if err := s.ledger.Unblock(ctx, actor, origin); err != nil {
		return nil, s.serviceError(ctx, err)
	}
	return &emptypb.Empty{}, nil
}

func (s *GRPCServer) serviceError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, common.ErrorValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, "not found")
	default:
		s.logger.Error(ctx, "request failed", "error", err)
		return status.Error(codes.Internal, guard.MsgInternal)
	}
}
