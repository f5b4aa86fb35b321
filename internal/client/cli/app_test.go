package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/refinery/internal/client/client"
	"github.com/dmitrijs2005/refinery/internal/client/config"
	"github.com/dmitrijs2005/refinery/internal/cryptox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	loginUser string
	loginPass []byte
	session   *client.Session
	loginErr  error

	pingTime time.Time
	pingErr  error

	blocked []client.BlockedOrigin
	listErr error

	unblocked  string
	unblockErr error

	closed bool
}

func (f *fakeAPI) Login(_ context.Context, user string, pass []byte) (*client.Session, error) {
	f.loginUser, f.loginPass = user, append([]byte(nil), pass...)
	return f.session, f.loginErr
}

func (f *fakeAPI) Ping(context.Context) (time.Time, error) { return f.pingTime, f.pingErr }

func (f *fakeAPI) ListBlockedOrigins(context.Context) ([]client.BlockedOrigin, error) {
	return f.blocked, f.listErr
}

func (f *fakeAPI) UnblockOrigin(_ context.Context, origin string) error {
	f.unblocked = origin
	return f.unblockErr
}

func (f *fakeAPI) SetToken(string) {}

func (f *fakeAPI) Close() error {
	f.closed = true
	return nil
}

func stubInputs(t *testing.T, username string, password []byte) {
	t.Helper()
	origST, origGP := getSimpleText, getPassword
	getSimpleText = func(_ *bufio.Reader, _ string, _ io.Writer) (string, error) { return username, nil }
	getPassword = func(_ io.Writer) ([]byte, error) { return append([]byte(nil), password...), nil }
	t.Cleanup(func() {
		getSimpleText = origST
		getPassword = origGP
	})
}

func newTestApp(api *fakeAPI) (*App, *bytes.Buffer) {
	var out bytes.Buffer
	return &App{
		config: &config.Config{Timeout: time.Second},
		api:    api,
		reader: bufio.NewReader(strings.NewReader("")),
		out:    &out,
	}, &out
}

func TestRun_Usage(t *testing.T) {
	api := &fakeAPI{}
	app, out := newTestApp(api)

	assert.Equal(t, 2, app.Run(context.Background(), nil))
	assert.Contains(t, out.String(), "Usage:")
	assert.True(t, api.closed)

	app, out = newTestApp(&fakeAPI{})
	assert.Equal(t, 2, app.Run(context.Background(), []string{"dance"}))
	assert.Contains(t, out.String(), "Unknown command: dance")
}

func TestHashPassword(t *testing.T) {
	stubInputs(t, "", []byte("operator-pass"))
	app, out := newTestApp(&fakeAPI{})

	require.Equal(t, 0, app.Run(context.Background(), []string{"hash-password"}))
	hash := strings.TrimSpace(out.String())
	assert.True(t, cryptox.CheckPassword(hash, []byte("operator-pass")))
}

func TestHashPassword_Empty(t *testing.T) {
	stubInputs(t, "", nil)
	app, out := newTestApp(&fakeAPI{})

	assert.Equal(t, 1, app.Run(context.Background(), []string{"hash-password"}))
	assert.Contains(t, out.String(), "empty password")
}

func TestGenSecret(t *testing.T) {
	app, out := newTestApp(&fakeAPI{})

	require.Equal(t, 0, app.Run(context.Background(), []string{"gen-secret"}))
	assert.Len(t, strings.TrimSpace(out.String()), 2*secretBytes)
}

func TestLogin(t *testing.T) {
	stubInputs(t, "prompted", []byte("pw"))
	api := &fakeAPI{session: &client.Session{Token: "tok", Username: "sec", Role: "Bezbednost", ExpiresAt: time.Now().Add(time.Hour)}}
	app, out := newTestApp(api)

	require.Equal(t, 0, app.Run(context.Background(), []string{"login", "sec"}))
	assert.Equal(t, "sec", api.loginUser)
	assert.Equal(t, []byte("pw"), api.loginPass)
	assert.Contains(t, out.String(), "export REFINERY_TOKEN=tok")

	api = &fakeAPI{session: &client.Session{Token: "tok"}}
	app, _ = newTestApp(api)
	require.Equal(t, 0, app.Run(context.Background(), []string{"login"}))
	assert.Equal(t, "prompted", api.loginUser)
}

func TestLogin_Error(t *testing.T) {
	stubInputs(t, "sec", []byte("bad"))
	app, out := newTestApp(&fakeAPI{loginErr: client.ErrUnauthorized})

	assert.Equal(t, 1, app.Run(context.Background(), []string{"login"}))
	assert.Contains(t, out.String(), "unauthorized")
}

func TestPing(t *testing.T) {
	app, out := newTestApp(&fakeAPI{pingTime: time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC)})
	require.Equal(t, 0, app.Run(context.Background(), []string{"ping"}))
	assert.Contains(t, out.String(), "server time 2024-05-15T10:00:00Z")

	app, _ = newTestApp(&fakeAPI{pingErr: client.ErrUnavailable})
	assert.Equal(t, 1, app.Run(context.Background(), []string{"ping"}))
}

func TestBlocked(t *testing.T) {
	api := &fakeAPI{blocked: []client.BlockedOrigin{
		{Origin: "10.0.0.1", Permanent: true, Actor: "system", Reason: "brute force detected"},
	}}
	app, out := newTestApp(api)
	require.Equal(t, 0, app.Run(context.Background(), []string{"blocked"}))
	assert.Contains(t, out.String(), "10.0.0.1")
	assert.Contains(t, out.String(), "permanent")

	app, out = newTestApp(&fakeAPI{})
	require.Equal(t, 0, app.Run(context.Background(), []string{"blocked", "list"}))
	assert.Contains(t, out.String(), "No blocked origins")

	api = &fakeAPI{}
	app, out = newTestApp(api)
	require.Equal(t, 0, app.Run(context.Background(), []string{"blocked", "unblock", "10.0.0.1"}))
	assert.Equal(t, "10.0.0.1", api.unblocked)
	assert.Contains(t, out.String(), "10.0.0.1 unblocked")

	app, _ = newTestApp(&fakeAPI{})
	assert.Equal(t, 1, app.Run(context.Background(), []string{"blocked", "unblock"}))

	app, _ = newTestApp(&fakeAPI{unblockErr: errors.New("boom")})
	assert.Equal(t, 1, app.Run(context.Background(), []string{"blocked", "unblock", "10.0.0.1"}))

	app, _ = newTestApp(&fakeAPI{})
	assert.Equal(t, 1, app.Run(context.Background(), []string{"blocked", "purge"}))
}

func TestCommandArgs(t *testing.T) {
	tests := []struct {
		args []string
		want []string
	}{
		{nil, nil},
		{[]string{"ping"}, []string{"ping"}},
		{[]string{"-a", "host:1", "-w", "5", "blocked", "unblock", "10.0.0.1"}, []string{"blocked", "unblock", "10.0.0.1"}},
		{[]string{"-a=host:1", "login", "sec"}, []string{"login", "sec"}},
		{[]string{"-c", "ctl.json"}, nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CommandArgs(tt.args), "%v", tt.args)
	}
}
