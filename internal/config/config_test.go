package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thingforge/thingforge/internal/fault"
	"github.com/thingforge/thingforge/internal/obd"
	"github.com/thingforge/thingforge/internal/thing"
)

func TestLoad_WithValidConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfg := `{
		"logLevel": "debug",
		"remote": { "address": "0.0.0.0:9000" },
		"storage": { "postgres": { "host": "10.0.0.1", "port": "5433" } }
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(cfg), 0644))

	s, err := Load(dir)
	require.NoError(t, err)
	assert.True(t, s.Loaded())

	assert.Equal(t, "debug", s.LogLevel())
	assert.Equal(t, "0.0.0.0:9000", s.Remote().Address)
	assert.Equal(t, "10.0.0.1", s.Storage().Postgres.Host)
	assert.Equal(t, "5433", s.Storage().Postgres.Port)
	assert.Equal(t, "postgres", s.Storage().Postgres.Username)
}

func TestLoad_DefaultValues(t *testing.T) {
	s, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.False(t, s.Loaded())

	assert.Equal(t, "info", s.LogLevel())
	assert.Equal(t, "./logs", s.LogsDir())
	assert.Equal(t, "text", s.LogFormat())
	assert.Equal(t, 256, s.SubscriberBuffer())
	assert.Equal(t, 5*time.Second, s.StatusInterval())
	assert.Equal(t, filepath.Join("logs", "status.json"), s.StatusFile())
	assert.Equal(t, "127.0.0.1:7171", s.Remote().Address)
	assert.Equal(t, "", s.Remote().Secret)
	assert.Equal(t, false, s.Graylog().Enabled)
	assert.Equal(t, "localhost:12201", s.Graylog().Address)

	sc := s.Storage()
	assert.Equal(t, "memory", sc.Type)
	assert.Equal(t, "./catalogs", sc.Memory.OutputDir)
	assert.Equal(t, true, sc.Memory.CompressOutput)
	assert.Equal(t, "", sc.SQLite.Path)
	assert.Equal(t, "thingforge", sc.Postgres.Database)

	gen, err := s.Generation()
	require.NoError(t, err)
	assert.Equal(t, obd.Latest, gen)

	durations, err := s.Durations()
	require.NoError(t, err)
	assert.Equal(t, thing.StandardDefaults(), durations)
}

func TestLoad_Malformed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(`{"logLevel":`), 0644))

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestDurations(t *testing.T) {
	dir := t.TempDir()
	cfg := `{"durations": {"outfit": {"minimum": 200, "maximum": 400}}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(cfg), 0644))

	s, err := Load(dir)
	require.NoError(t, err)
	d, err := s.Durations()
	require.NoError(t, err)
	assert.Equal(t, thing.FrameDuration{Minimum: 200, Maximum: 400}, d[thing.Outfit])
	assert.Equal(t, thing.FixedDuration(500), d[thing.Item])

	s.Set("durations.effect.minimum", 900)
	_, err = s.Durations()
	assert.ErrorIs(t, err, fault.ErrValidation)
}

func TestGeneration_Invalid(t *testing.T) {
	s := Defaults()
	s.Set("obdGeneration", 4)
	_, err := s.Generation()
	assert.ErrorIs(t, err, fault.ErrValidation)

	s.Set("obdGeneration", 200)
	gen, err := s.Generation()
	require.NoError(t, err)
	assert.Equal(t, obd.V2, gen)
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	s, err := Load(dir)
	require.NoError(t, err)
	s.Set("remote.secret", "hunter2")
	s.Set("storage.type", "sqlite")
	require.NoError(t, s.Save())
	assert.FileExists(t, filepath.Join(dir, FileName))

	reloaded, err := Load(dir)
	require.NoError(t, err)
	assert.True(t, reloaded.Loaded())
	assert.Equal(t, "hunter2", reloaded.Remote().Secret)
	assert.Equal(t, "sqlite", reloaded.Storage().Type)
	assert.Equal(t, "info", reloaded.LogLevel())
}

func TestGetters(t *testing.T) {
	s := Defaults()
	s.Set("testKey", "testValue")
	s.Set("testInt", 42)
	s.Set("testBool", true)
	assert.Equal(t, "testValue", s.GetString("testKey"))
	assert.Equal(t, 42, s.GetInt("testInt"))
	assert.Equal(t, true, s.GetBool("testBool"))

	s.Set("subscriberBuffer", 0)
	assert.Equal(t, 1, s.SubscriberBuffer())
}
