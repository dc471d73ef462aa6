package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadServer_EnvDefaultsAndFlagOverride(t *testing.T) {
	env := envMap(map[string]string{
		"JWT_KEY":                "secret",
		"ACCESS_TTL":             "30m",
		"ALLOWED_ORIGINS":        "app.example.com, localhost:*",
		"REVEAL_ADMIN_USERNAMES": "true",
	})
	c, err := LoadServer([]string{"-addr", ":9000"}, env)
	require.NoError(t, err)
	require.Equal(t, ":9000", c.Addr)
	require.Equal(t, "secret", c.JWTKey)
	require.Equal(t, 30*time.Minute, c.AccessTTL)
	require.Equal(t, 12*time.Hour, c.AdminTTL)
	require.Equal(t, []string{"app.example.com", "localhost:*"}, c.AllowedOrigins)
	require.True(t, c.RevealAdminUsernames)
	require.False(t, c.FederatedEnabled())
}

func TestLoadServer_Validation(t *testing.T) {
	_, err := LoadServer(nil, envMap(nil))
	require.ErrorContains(t, err, "jwt")

	base := map[string]string{"JWT_KEY": "k"}
	_, err = LoadServer([]string{"-tls-cert", "c.pem"}, envMap(base))
	require.ErrorContains(t, err, "tls")

	_, err = LoadServer([]string{"-limiter", "etcd"}, envMap(base))
	require.ErrorContains(t, err, "limiter")

	_, err = LoadServer([]string{"-admin-bootstrap", "alice"}, envMap(base))
	require.Error(t, err)

	c, err := LoadServer([]string{"-admin-bootstrap", "alice:pw:with:colons"}, envMap(base))
	require.NoError(t, err)
	u, p, ok := c.BootstrapCredentials()
	require.True(t, ok)
	require.Equal(t, "alice", u)
	require.Equal(t, "pw:with:colons", p)
}

func TestLoadClient(t *testing.T) {
	c, rest, err := LoadClient([]string{"-server", "https://desk.example.com/", "deliveries", "list"},
		envMap(map[string]string{"XDG_CONFIG_HOME": "/tmp/xdg"}))
	require.NoError(t, err)
	require.Equal(t, "https://desk.example.com", c.ServerURL)
	require.Equal(t, filepath.Join("/tmp/xdg", "estatedesk"), c.StateDir)
	require.Equal(t, []string{"deliveries", "list"}, rest)
}

func TestLoadDotEnv_DoesNotOverrideEnvironment(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("ESTATEDESK_TEST_A=file\nESTATEDESK_TEST_B=file\n"), 0o600))
	t.Chdir(dir)
	t.Setenv("ESTATEDESK_TEST_A", "env")
	t.Setenv("ESTATEDESK_TEST_B", "")
	require.NoError(t, os.Unsetenv("ESTATEDESK_TEST_B"))

	LoadDotEnv()
	require.Equal(t, "env", os.Getenv("ESTATEDESK_TEST_A"))
	require.Equal(t, "file", os.Getenv("ESTATEDESK_TEST_B"))
	require.NoError(t, os.Unsetenv("ESTATEDESK_TEST_B"))
}
