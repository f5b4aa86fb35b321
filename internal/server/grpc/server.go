package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/refinery/internal/logging"
	"github.com/dmitrijs2005/refinery/internal/securityrpc"
	"github.com/dmitrijs2005/refinery/internal/server/guard"
	"github.com/dmitrijs2005/refinery/internal/server/services"
	"github.com/dmitrijs2005/refinery/internal/timex"
	"google.golang.org/grpc"
)

type GRPCServer struct {
	address  string
	pipeline *guard.Pipeline
	ledger   *services.LedgerService
	clock    timex.Clock
	logger   logging.Logger
}

func NewGRPCServer(a string, l logging.Logger, p *guard.Pipeline, ledger *services.LedgerService, clock timex.Clock) *GRPCServer {
	return &GRPCServer{
		address:  a,
		logger:   l.With("module", "grpc_server"),
		pipeline: p,
		ledger:   ledger,
		clock:    clock,
	}
}

// NewServer returns a gRPC server with the pipeline interceptor installed
// and the security service registered.
func (s *GRPCServer) NewServer(opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.ChainUnaryInterceptor(s.pipelineInterceptor))
	srv := grpc.NewServer(opts...)
	securityrpc.RegisterSecurityServiceServer(srv, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := s.NewServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", s.address)

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
