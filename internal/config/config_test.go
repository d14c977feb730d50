package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(Options{})
	require.NoError(t, err)

	assert.Equal(t, DefaultDomain, cfg.Domain)
	assert.Equal(t, DefaultSTUN, cfg.STUNServer)
	assert.Equal(t, "wss://"+DefaultDomain+"/ws", cfg.WebSocketURL)
	assert.Equal(t, "https://"+DefaultDomain+"/api", cfg.APIBaseURL)
	assert.False(t, cfg.Insecure)
}

func TestLoad_EnvironmentOverridesDefaults(t *testing.T) {
	t.Setenv("WATCHPARTY_DOMAIN", "party.example.com")
	t.Setenv("STUN_SERVER", "stun:stun.example.com:3478")
	t.Setenv("TURN_SERVER", "turn:relay.example.com")
	t.Setenv("TURN_USERNAME", "user")
	t.Setenv("TURN_PASSWORD", "secret")

	cfg, err := Load(Options{})
	require.NoError(t, err)

	assert.Equal(t, "party.example.com", cfg.Domain)
	assert.Equal(t, "stun:stun.example.com:3478", cfg.STUNServer)
	assert.Equal(t, "turn:relay.example.com", cfg.TURNServer)

	user, pass := cfg.GetTURNCredentials()
	assert.Equal(t, "user", user)
	assert.Equal(t, "secret", pass)
}

func TestLoad_FlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("WATCHPARTY_DOMAIN", "env.example.com")
	t.Setenv("STUN_SERVER", "stun:env.example.com:3478")

	cfg, err := Load(Options{
		Domain:     "flag.example.com",
		STUNServer: "stun:flag.example.com:3478",
	})
	require.NoError(t, err)

	assert.Equal(t, "flag.example.com", cfg.Domain)
	assert.Equal(t, "stun:flag.example.com:3478", cfg.STUNServer)
}

func TestLoad_InsecureSwitchesSchemes(t *testing.T) {
	cfg, err := Load(Options{Domain: "localhost:8080", Insecure: true})
	require.NoError(t, err)

	assert.Equal(t, "ws://localhost:8080/ws", cfg.WebSocketURL)
	assert.Equal(t, "http://localhost:8080/api", cfg.APIBaseURL)
}

func TestLoad_InsecureFromEnvironment(t *testing.T) {
	t.Setenv("WATCHPARTY_INSECURE", "1")

	cfg, err := Load(Options{Domain: "localhost:8080"})
	require.NoError(t, err)

	assert.True(t, cfg.Insecure)
	assert.Equal(t, "ws://localhost:8080/ws", cfg.WebSocketURL)
}

func TestTURNServerExpansion(t *testing.T) {
	cfg, err := Load(Options{TURNServer: "turn:relay.example.com"})
	require.NoError(t, err)

	urls := cfg.GetTURNServers()
	require.Len(t, urls, 3)
	assert.Contains(t, urls[0], "transport=udp")
	assert.Contains(t, urls[1], "transport=tcp")
	assert.Contains(t, urls[2], "turns:")

	empty, err := Load(Options{})
	require.NoError(t, err)
	assert.Nil(t, empty.GetTURNServers())
}
