package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withArgs(t *testing.T, args ...string) {
	t.Helper()
	orig := os.Args
	os.Args = append([]string{"refineryctl"}, args...)
	t.Cleanup(func() { os.Args = orig })
}

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "127.0.0.1:50051", c.ServerEndpointAddr)
	assert.Equal(t, 10*time.Second, c.Timeout)
}

func TestLoadConfig_Precedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ctl.json")
	require.NoError(t, os.WriteFile(path,
		[]byte(`{"server_endpoint_addr":"file:1","timeout":"3s","token":"file-token"}`), 0o600))

	t.Setenv(TokenEnv, "env-token")
	withArgs(t, "-c", path, "-a", "flag:2", "ping")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	want := &Config{ServerEndpointAddr: "flag:2", Timeout: 3 * time.Second, Token: "env-token"}
	assert.Empty(t, cmp.Diff(want, cfg))
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		withArgs(t, "-c", filepath.Join(t.TempDir(), "nope.json"))
		_, err := LoadConfig()
		require.Error(t, err)
	})

	t.Run("bad json", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(path, []byte(`{ nope`), 0o600))
		withArgs(t, "-c", path)
		_, err := LoadConfig()
		require.Error(t, err)
	})

	t.Run("bad timeout", func(t *testing.T) {
		withArgs(t, "-w", "abc")
		_, err := LoadConfig()
		require.Error(t, err)
	})
}
