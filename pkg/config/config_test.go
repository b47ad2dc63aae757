package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cfoust/strafe/pkg/movement"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, dir, name, contents string) string {
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestProcess(t *testing.T) {
	config, err := Process([]string{})
	require.NoError(t, err)
	assert.Equal(t, 25565, config.Server.Port)
	assert.Equal(t, 64, config.Server.TickRate)
	assert.Equal(t, uint32(1), config.Server.ProtocolID)
	assert.Equal(t, "strafe:events", config.Server.Redis.Channel)
	assert.Equal(t, movement.DefaultConfig(), config.Movement)
	assert.Equal(t, "127.0.0.1:25565", config.Client.Server)

	dir := t.TempDir()

	// yaml config
	{
		path := write(t, dir, "config.yaml", `
server:
  ingress:
    web:
      port: 1234
`)
		config, err := Process([]string{path})
		require.NoError(t, err)
		assert.Equal(t, 1234, config.Server.Ingress.Web.Port)
		// Everything else comes from the schema.
		assert.Equal(t, 16, config.Server.MaxClients)
		assert.Equal(t, movement.DefaultConfig(), config.Movement)
	}

	// json config
	{
		path := write(t, dir, "config.json", `{
  "server": {
    "conditioner": {
      "latencyMs": 100,
      "loss": 0.05
    }
  }
}`)
		config, err := Process([]string{path})
		require.NoError(t, err)
		assert.Equal(t, 100, config.Server.Conditioner.LatencyMs)
		assert.InDelta(t, 0.05, config.Server.Conditioner.Loss, 1e-9)
	}

	// multiple files
	{
		first := write(t, dir, "config1.yaml", `
movement:
  walkSpeed: 7
`)
		second := write(t, dir, "config2.yaml", `
client:
  clientId: 42
`)
		config, err := Process([]string{first, second})
		require.NoError(t, err)
		assert.Equal(t, float32(7), config.Movement.WalkSpeed)
		assert.Equal(t, uint64(42), config.Client.ClientID)
	}
}

func TestInvalidConfig(t *testing.T) {
	dir := t.TempDir()

	for name, contents := range map[string]string{
		"port.yaml":    "server:\n  port: 70000\n",
		"key.yaml":     "server:\n  key: nothex\n",
		"unknown.yaml": "server:\n  colour: red\n",
		"loss.yaml":    "server:\n  conditioner:\n    loss: 2\n",
		// Crouching taller than standing passes the schema but not the
		// controller.
		"crouch.yaml": "movement:\n  crouchHeight: 4\n",
	} {
		_, err := Process([]string{write(t, dir, name, contents)})
		assert.Error(t, err, name)
	}

	_, err := Process([]string{filepath.Join(dir, "missing.yaml")})
	assert.Error(t, err)

	_, err = Process([]string{write(t, dir, "config.toml", "")})
	assert.Error(t, err)
}

func TestServerHelpers(t *testing.T) {
	config, err := Process(nil)
	require.NoError(t, err)

	key, err := config.Server.ParseKey()
	require.NoError(t, err)
	assert.Equal(t, [32]byte{}, [32]byte(key))

	level, err := config.Server.LoadLevel()
	require.NoError(t, err)
	assert.Equal(t, "range", level.Name)
}
