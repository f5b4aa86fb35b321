package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/dmitrijs2005/refinery/internal/logging"
	"github.com/dmitrijs2005/refinery/internal/securityrpc"
	"github.com/dmitrijs2005/refinery/internal/server/abac"
	"github.com/dmitrijs2005/refinery/internal/server/auth"
	"github.com/dmitrijs2005/refinery/internal/server/guard"
	"github.com/dmitrijs2005/refinery/internal/server/rbac"
	"github.com/dmitrijs2005/refinery/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/refinery/internal/server/services"
	"github.com/dmitrijs2005/refinery/internal/server/threat"
	"github.com/dmitrijs2005/refinery/internal/timex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// wednesday 2024-05-15 10:00 UTC
var wed10 = time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC)

type env struct {
	clock  *timex.ManualClock
	ledger *services.LedgerService
	server *GRPCServer
	client securityrpc.SecurityServiceClient
}

func newEnv(t *testing.T) *env {
	t.Helper()
	log := logging.Discard()
	rm := repomanager.NewMemoryRepositoryManager()
	e := &env{clock: timex.NewManualClock(wed10)}

	audit := services.NewAuditService(nil, rm, e.clock, log)
	e.ledger = services.NewLedgerService(nil, rm, audit, e.clock, services.LedgerSettings{
		Threshold:   3,
		Window:      30 * time.Second,
		OriginBlock: 15 * time.Minute,
		AccountLock: 10 * time.Minute,
		AttackBlock: 5 * time.Minute,
	}, log)
	users := services.NewUserService(nil, rm, log)
	for name, role := range map[string]string{"operator": rbac.RoleOperator, "sec": rbac.RoleSecurity} {
		_, err := users.Create(context.Background(), name, name+"-pass", role)
		require.NoError(t, err)
	}

	pipeline := guard.New(guard.Deps{
		Scanner:  threat.NewScanner(),
		Ledger:   e.ledger,
		Users:    users,
		Tokens:   auth.NewTokenService([]byte("test-secret"), e.clock),
		Catalog:  rbac.DefaultCatalog(),
		Policies: abac.NewEvaluator(),
		Audit:    audit,
		Clock:    e.clock,
		FailOpen: true,
		Log:      log,
	})
	e.server = NewGRPCServer("", log, pipeline, e.ledger, e.clock)

	lis := bufconn.Listen(1 << 20)
	srv := e.server.NewServer()
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	e.client = securityrpc.NewSecurityServiceClient(conn)
	return e
}

func credentials(t *testing.T, username, password string) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(map[string]any{"username": username, "password": password})
	require.NoError(t, err)
	return s
}

func (e *env) login(t *testing.T, name string) context.Context {
	t.Helper()
	resp, err := e.client.Login(context.Background(), credentials(t, name, name+"-pass"))
	require.NoError(t, err)
	token := resp.AsMap()["token"].(string)
	return metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+token)
}

func requireCode(t *testing.T, err error, code codes.Code, msg string) {
	t.Helper()
	require.Error(t, err)
	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, code, st.Code())
	if msg != "" {
		assert.Equal(t, msg, st.Message())
	}
}

func TestPing(t *testing.T) {
	e := newEnv(t)
	ts, err := e.client.Ping(context.Background(), &emptypb.Empty{})
	require.NoError(t, err)
	assert.True(t, wed10.Equal(ts.AsTime()))
}

func TestLogin(t *testing.T) {
	e := newEnv(t)

	resp, err := e.client.Login(context.Background(), credentials(t, "operator", "operator-pass"))
	require.NoError(t, err)
	m := resp.AsMap()
	assert.NotEmpty(t, m["token"])
	assert.Equal(t, "2024-05-15T11:00:00Z", m["expires_at"])
	user := m["user"].(map[string]any)
	assert.Equal(t, "operator", user["username"])
	assert.Equal(t, rbac.RoleOperator, user["role"])

	_, err = e.client.Login(context.Background(), credentials(t, "operator", "wrong"))
	requireCode(t, err, codes.Unauthenticated, guard.MsgBadCredentials)
}

func TestLogin_LockedAccount(t *testing.T) {
	e := newEnv(t)
	_, err := e.ledger.Lock(context.Background(), services.Actor{Name: "sec"}, "operator", "review", time.Hour, 0)
	require.NoError(t, err)

	_, err = e.client.Login(context.Background(), credentials(t, "operator", "operator-pass"))
	requireCode(t, err, codes.ResourceExhausted, guard.MsgAccountLocked)
}

func TestLogin_InjectionBlocksOrigin(t *testing.T) {
	e := newEnv(t)

	_, err := e.client.Login(context.Background(), credentials(t, "admin' --", "x"))
	requireCode(t, err, codes.PermissionDenied, guard.MsgSecurityCheck)

	_, err = e.client.Ping(context.Background(), &emptypb.Empty{})
	requireCode(t, err, codes.PermissionDenied, guard.MsgOriginBlocked)
}

func TestListBlockedOrigins(t *testing.T) {
	e := newEnv(t)
	_, err := e.ledger.Block(context.Background(), services.Actor{Name: "sec"}, services.BlockSpec{
		Origin: "203.0.113.9", Reason: "manual review", Permanent: true,
	})
	require.NoError(t, err)

	_, err = e.client.ListBlockedOrigins(context.Background(), &emptypb.Empty{})
	requireCode(t, err, codes.Unauthenticated, guard.MsgAuthRequired)

	_, err = e.client.ListBlockedOrigins(e.login(t, "operator"), &emptypb.Empty{})
	requireCode(t, err, codes.PermissionDenied, guard.MsgInsufficient)

	resp, err := e.client.ListBlockedOrigins(e.login(t, "sec"), &emptypb.Empty{})
	require.NoError(t, err)
	origins := resp.AsMap()["origins"].([]any)
	require.Len(t, origins, 1)
	entry := origins[0].(map[string]any)
	assert.Equal(t, "203.0.113.9", entry["origin"])
	assert.Equal(t, true, entry["permanent"])
	assert.NotContains(t, entry, "blocked_until")
}

func TestUnblockOrigin(t *testing.T) {
	e := newEnv(t)
	_, err := e.ledger.Block(context.Background(), services.Actor{Name: "sec"}, services.BlockSpec{
		Origin: "203.0.113.9", Reason: "manual review", Duration: time.Hour,
	})
	require.NoError(t, err)

	ctx := e.login(t, "sec")
	req, err := structpb.NewStruct(map[string]any{"origin": "203.0.113.9"})
	require.NoError(t, err)

	_, err = e.client.UnblockOrigin(ctx, req)
	require.NoError(t, err)

	blocked, err := e.ledger.IsBlocked(context.Background(), "203.0.113.9")
	require.NoError(t, err)
	assert.False(t, blocked)

	_, err = e.client.UnblockOrigin(ctx, req)
	requireCode(t, err, codes.NotFound, "")
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	srv := NewGRPCServer("127.0.0.1:0", logging.Discard(), nil, nil, timex.SystemClock{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx)
	}()

	select {
	case err := <-done:
		t.Fatalf("server exited too early: %v", err)
	case <-time.After(150 * time.Millisecond):
	}

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop within timeout after context cancel")
	}
}

func TestRun_ReturnsErrorOnBadAddress(t *testing.T) {
	t.Parallel()

	srv := NewGRPCServer("127.0.0.1:99999", logging.Discard(), nil, nil, timex.SystemClock{})
	require.Error(t, srv.Run(context.Background()))
}
