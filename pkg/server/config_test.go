package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chatboat.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
listen_addr: ":2000"
ws_addr: ":2001"
db_path: /tmp/users.db
outbox_size: 8
shutdown_grace: 2s
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":2000", cfg.ListenAddr)
	assert.Equal(t, ":2001", cfg.WSAddr)
	assert.Equal(t, "/tmp/users.db", cfg.DBPath)
	assert.Equal(t, 8, cfg.OutboxSize)
	assert.Equal(t, 2*time.Second, cfg.ShutdownGrace)
	// Not named in the file, so the default survives.
	assert.Equal(t, DefaultConfig().MetricsAddr, cfg.MetricsAddr)
}

func TestLoadConfigPartialKeepsDefaults(t *testing.T) {
	path := writeConfig(t, "listen_addr: \":3000\"\n")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	def := DefaultConfig()
	assert.Equal(t, ":3000", cfg.ListenAddr)
	assert.Equal(t, def.OutboxSize, cfg.OutboxSize)
	assert.Equal(t, def.ShutdownGrace, cfg.ShutdownGrace)
	assert.Equal(t, def.DBPath, cfg.DBPath)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"empty listen addr", "listen_addr: \"\"\n"},
		{"zero outbox", "outbox_size: 0\n"},
		{"negative grace", "shutdown_grace: -1s\n"},
		{"unparsable grace", "shutdown_grace: soon\n"},
		{"not yaml", "listen_addr: [unterminated\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tc.content))
			require.Error(t, err)
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, DefaultConfig().validate())
}
