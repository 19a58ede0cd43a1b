package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lwmacct/251216-go-pkg-wire/pkg/address"
	"github.com/lwmacct/251216-go-pkg-wire/pkg/transport"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)

	sys, err := cfg.SystemPath()
	require.NoError(t, err)
	assert.Equal(t, "tcp://127.0.0.1:7000", sys.String())
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.yaml")
	data := []byte(`
node:
  protocol: ws
  host: "::1"
  port: 7100
transport:
  dial_timeout: 3s
log:
  level: debug
  format: json
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "ws", cfg.Node.Protocol)
	assert.Equal(t, 3*time.Second, cfg.Transport.DialTimeout)
	assert.Equal(t, transport.DefaultMaxFrameSize, cfg.Transport.MaxFrameSize, "unset keys keep defaults")

	sys, err := cfg.SystemPath()
	require.NoError(t, err)
	assert.Equal(t, address.ProtocolWS, sys.Protocol)
	assert.Equal(t, address.FamilyIPv6, sys.Host.Family())
	assert.Equal(t, uint16(7100), sys.Port)
}

func TestLoadJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.json")
	data, err := json.Marshal(map[string]any{
		"node": map[string]any{"host": "node-a.internal", "port": 7200},
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	sys, err := cfg.SystemPath()
	require.NoError(t, err)
	assert.Equal(t, address.FamilyDomain, sys.Host.Family())
	assert.Equal(t, "tcp://node-a.internal:7200", sys.String())
}

func TestOverrides(t *testing.T) {
	cfg, err := LoadYAML([]byte("node:\n  port: 7300\n"), map[string]any{
		"node.port":     "7301",
		"node.protocol": "local",
	})
	require.NoError(t, err)
	assert.Equal(t, 7301, cfg.Node.Port)

	tr, err := cfg.NewTransport(nil)
	require.NoError(t, err)
	_, ok := tr.(*transport.InMemory)
	assert.True(t, ok)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]any
	}{
		{"unknown protocol", map[string]any{"node.protocol": "quic"}},
		{"udp", map[string]any{"node.protocol": "udp"}},
		{"port range", map[string]any{"node.port": 70000}},
		{"empty host", map[string]any{"node.host": ""}},
		{"bad domain", map[string]any{"node.host": "-bad-"}},
		{"negative frame", map[string]any{"transport.max_frame_size": -1}},
		{"log level", map[string]any{"log.level": "loud"}},
		{"log format", map[string]any{"log.format": "xml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load("", tt.overrides)
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	assert.Error(t, err)
}

func TestNewTransport(t *testing.T) {
	for proto, want := range map[string]any{
		"tcp": &transport.TCP{},
		"ws":  &transport.WebSocket{},
	} {
		cfg, err := Load("", map[string]any{"node.protocol": proto})
		require.NoError(t, err)
		tr, err := cfg.NewTransport(nil)
		require.NoError(t, err)
		assert.IsType(t, want, tr, proto)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := LogConfig{Level: "warn", Format: "json"}.NewLogger(&buf)
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown", "k", 1)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	buf.Reset()
	logger, err = LogConfig{}.NewLogger(&buf)
	require.NoError(t, err)
	logger.Info("plain")
	assert.Contains(t, buf.String(), "msg=plain")
}
