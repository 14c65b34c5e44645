// Package config holds the editor settings: a JSON file read with viper
// into a Settings value that is passed to whoever needs it.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"github.com/thingforge/thingforge/internal/obd"
	"github.com/thingforge/thingforge/internal/storage"
	"github.com/thingforge/thingforge/internal/storage/memory"
	"github.com/thingforge/thingforge/internal/storage/postgres"
	sqlitestorage "github.com/thingforge/thingforge/internal/storage/sqlite"
	"github.com/thingforge/thingforge/internal/thing"
)

// FileName is the settings file looked up in the config directory.
const FileName = "thingforge.cfg.json"

// RemoteConfig holds the websocket transport settings.
type RemoteConfig struct {
	Address string
	Secret  string
}

// GraylogConfig holds the optional GELF log sink settings.
type GraylogConfig struct {
	Enabled bool
	Address string
}

// Settings wraps a viper instance seeded with defaults.
type Settings struct {
	v      *viper.Viper
	dir    string
	loaded bool
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logLevel", "info")
	v.SetDefault("logsDir", "./logs")
	v.SetDefault("logFormat", "text")

	for c, d := range thing.StandardDefaults() {
		v.SetDefault("durations."+c.String()+".minimum", d.Minimum)
		v.SetDefault("durations."+c.String()+".maximum", d.Maximum)
	}

	v.SetDefault("statusInterval", "5s")

	v.SetDefault("subscriberBuffer", 256)
	v.SetDefault("obdGeneration", int(obd.Latest))

	v.SetDefault("remote.address", "127.0.0.1:7171")
	v.SetDefault("remote.secret", "")

	v.SetDefault("storage.type", "memory")
	v.SetDefault("storage.memory.outputDir", "./catalogs")
	v.SetDefault("storage.memory.compressOutput", true)
	v.SetDefault("storage.sqlite.path", "")
	v.SetDefault("storage.sqlite.dumpPath", "./catalogs/catalog.db")
	v.SetDefault("storage.postgres.host", "localhost")
	v.SetDefault("storage.postgres.port", "5432")
	v.SetDefault("storage.postgres.username", "postgres")
	v.SetDefault("storage.postgres.password", "postgres")
	v.SetDefault("storage.postgres.database", "thingforge")
	v.SetDefault("storage.postgres.sslmode", "disable")

	v.SetDefault("graylog.enabled", false)
	v.SetDefault("graylog.address", "localhost:12201")
}

// Defaults returns settings that read no file.
func Defaults() *Settings {
	v := viper.New()
	setDefaults(v)
	return &Settings{v: v}
}

// Load reads FileName from configDir over the defaults. A missing file
// leaves the defaults in place.
func Load(configDir string) (*Settings, error) {
	s := Defaults()
	s.dir = configDir

	s.v.SetConfigName(FileName)
	s.v.AddConfigPath(configDir)
	s.v.SetConfigType("json")

	if err := s.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return s, nil
		}
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	s.loaded = true
	return s, nil
}

// Loaded reports whether a settings file was read.
func (s *Settings) Loaded() bool { return s.loaded }

// Path is where Save writes.
func (s *Settings) Path() string {
	return filepath.Join(s.dir, FileName)
}

// Save writes every setting, defaults included, to Path.
func (s *Settings) Save() error {
	if err := s.v.WriteConfigAs(s.Path()); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	s.loaded = true
	return nil
}

// Set overrides one key.
func (s *Settings) Set(key string, value any) { s.v.Set(key, value) }

// GetString returns a string config value.
func (s *Settings) GetString(key string) string { return s.v.GetString(key) }

// GetInt returns an int config value.
func (s *Settings) GetInt(key string) int { return s.v.GetInt(key) }

// GetBool returns a bool config value.
func (s *Settings) GetBool(key string) bool { return s.v.GetBool(key) }

func (s *Settings) LogLevel() string  { return s.v.GetString("logLevel") }
func (s *Settings) LogsDir() string   { return s.v.GetString("logsDir") }
func (s *Settings) LogFormat() string { return s.v.GetString("logFormat") }

// StatusFile is where a running server reports its state.
func (s *Settings) StatusFile() string {
	return filepath.Join(s.LogsDir(), "status.json")
}

// StatusInterval is how often the status file is rewritten.
func (s *Settings) StatusInterval() time.Duration {
	if d := s.v.GetDuration("statusInterval"); d > 0 {
		return d
	}
	return 5 * time.Second
}

// SubscriberBuffer is the notification buffer of each bus subscriber.
func (s *Settings) SubscriberBuffer() int {
	if n := s.v.GetInt("subscriberBuffer"); n > 0 {
		return n
	}
	return 1
}

// Durations returns the default frame duration of every category.
func (s *Settings) Durations() (thing.Defaults, error) {
	out := make(thing.Defaults, 4)
	for _, c := range thing.Categories() {
		key := "durations." + c.String()
		d, err := thing.NewFrameDuration(s.v.GetUint32(key+".minimum"), s.v.GetUint32(key+".maximum"))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		out[c] = d
	}
	return out, nil
}

// Generation is the container generation used when an export names none.
func (s *Settings) Generation() (obd.Generation, error) {
	return obd.ParseGeneration(s.v.GetInt("obdGeneration"))
}

// Remote returns the websocket transport settings.
func (s *Settings) Remote() RemoteConfig {
	return RemoteConfig{
		Address: s.v.GetString("remote.address"),
		Secret:  s.v.GetString("remote.secret"),
	}
}

// Graylog returns the GELF sink settings.
func (s *Settings) Graylog() GraylogConfig {
	return GraylogConfig{
		Enabled: s.v.GetBool("graylog.enabled"),
		Address: s.v.GetString("graylog.address"),
	}
}

// Storage returns the catalog backend settings.
func (s *Settings) Storage() storage.Config {
	return storage.Config{
		Type: s.v.GetString("storage.type"),
		Memory: memory.Config{
			OutputDir:      s.v.GetString("storage.memory.outputDir"),
			CompressOutput: s.v.GetBool("storage.memory.compressOutput"),
		},
		SQLite: sqlitestorage.Config{
			Path:     s.v.GetString("storage.sqlite.path"),
			DumpPath: s.v.GetString("storage.sqlite.dumpPath"),
		},
		Postgres: postgres.Config{
			Host:     s.v.GetString("storage.postgres.host"),
			Port:     s.v.GetString("storage.postgres.port"),
			Username: s.v.GetString("storage.postgres.username"),
			Password: s.v.GetString("storage.postgres.password"),
			Database: s.v.GetString("storage.postgres.database"),
			SSLMode:  s.v.GetString("storage.postgres.sslmode"),
		},
	}
}
