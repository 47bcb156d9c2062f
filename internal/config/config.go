package config

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"
	"gopkg.in/yaml.v3"

	"github.com/lawnchairsociety/villagegen/internal/database"
	"github.com/lawnchairsociety/villagegen/internal/wfc"
)

// Config holds every setting read from village.yaml.
type Config struct {
	Village  VillageConfig  `yaml:"village"`
	Render   RenderConfig   `yaml:"render"`
	Playback PlaybackConfig `yaml:"playback"`
	Journal  JournalConfig  `yaml:"journal"`

	// Tiles maps a role name (e.g. "horizontal", "corner_up_left", "house") to the
	// tile kind placed for it. Roles left out use their own name as the kind.
	Tiles map[string]string `yaml:"tiles"`

	// HouseVariants are the concrete houses a generic house is drawn as.
	// Empty means every house is drawn as the house tile kind itself.
	HouseVariants []string `yaml:"house_variants"`
}

// VillageConfig holds the generation parameters.
type VillageConfig struct {
	Width       int    `yaml:"width"`
	Height      int    `yaml:"height"`
	Complexity  string `yaml:"complexity"`
	MaxAttempts int    `yaml:"max_attempts"`

	// Seed fixes the random stream. When unset, SeedPhrase is hashed instead,
	// and when both are unset the current time is used.
	Seed       *int64 `yaml:"seed"`
	SeedPhrase string `yaml:"seed_phrase"`
}

// RenderConfig holds output settings for the command line tool.
type RenderConfig struct {
	// Format is "text" or "yaml".
	Format string `yaml:"format"`

	// Glyphs overrides the character drawn for a role, keyed by role name.
	Glyphs map[string]string `yaml:"glyphs"`

	// Legend prints the glyph legend under text output.
	Legend bool `yaml:"legend"`
}

// PlaybackConfig holds settings for the playback server.
type PlaybackConfig struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen"`

	// StepDelay is the pause between streamed placements.
	StepDelay time.Duration `yaml:"step_delay"`

	// AllowedOrigins is a list of origins allowed to connect via WebSocket.
	// Empty list enforces same-origin policy.
	// Use "*" to allow all origins.
	AllowedOrigins []string `yaml:"allowed_origins"`

	// MaxCells bounds width*height of a requested village.
	MaxCells int `yaml:"max_cells"`

	// MaxMessageSize is the maximum WebSocket message size in bytes.
	MaxMessageSize int64 `yaml:"max_message_size"`

	// MaxStreams bounds concurrent WebSocket streams (0 = unlimited).
	MaxStreams int `yaml:"max_streams"`

	// MaxStreamsPerIP bounds concurrent WebSocket streams from one IP (0 = unlimited).
	MaxStreamsPerIP int `yaml:"max_streams_per_ip"`

	// TrustProxy takes the client IP from X-Forwarded-For / X-Real-IP.
	// Only enable behind a reverse proxy that sets those headers.
	TrustProxy bool `yaml:"trust_proxy"`
}

// JournalConfig holds settings for the run journal.
type JournalConfig struct {
	Enabled    bool           `yaml:"enabled"`
	Driver     string         `yaml:"driver"`
	SQLitePath string         `yaml:"sqlite_path"`
	Postgres   PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL connection settings for the journal.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

// DefaultConfig returns a Config with working defaults.
func DefaultConfig() *Config {
	return &Config{
		Village: VillageConfig{
			Width:       20,
			Height:      12,
			Complexity:  wfc.EightTiles.String(),
			MaxAttempts: wfc.DefaultMaxAttempts,
		},
		Render: RenderConfig{
			Format: "text",
			Legend: true,
		},
		Playback: PlaybackConfig{
			Listen:          ":8080",
			StepDelay:       50 * time.Millisecond,
			AllowedOrigins:  []string{}, // Same-origin only by default
			MaxCells:        4096,
			MaxMessageSize:  4096,
			MaxStreams:      64,
			MaxStreamsPerIP: 4,
		},
		Journal: JournalConfig{
			Enabled:    true,
			Driver:     "sqlite",
			SQLitePath: "data/villages.db",
			Postgres: PostgresConfig{
				Host:    "localhost",
				Port:    5432,
				SSLMode: "disable",
			},
		},
	}
}

// LoadConfig loads configuration from a YAML file.
// If the file doesn't exist, returns the default config.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil // Use defaults if file doesn't exist
		}
		return config, err
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return DefaultConfig(), fmt.Errorf("parse %s: %w", path, err)
	}

	return config, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Village.Width < 3 || c.Village.Height < 3 {
		errs = append(errs, fmt.Errorf("village size %dx%d is below 3x3", c.Village.Width, c.Village.Height))
	}
	if c.Village.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("max_attempts must be positive, got %d", c.Village.MaxAttempts))
	}
	if _, err := wfc.ParseComplexity(c.Village.Complexity); err != nil {
		errs = append(errs, err)
	}
	for role := range c.Tiles {
		if _, ok := wfc.ParseRole(role); !ok {
			errs = append(errs, fmt.Errorf("tiles: unknown role %q", role))
		}
	}
	for role := range c.Render.Glyphs {
		if _, ok := wfc.ParseRole(role); !ok {
			errs = append(errs, fmt.Errorf("render.glyphs: unknown role %q", role))
		}
	}
	for _, v := range c.HouseVariants {
		if v == "" {
			errs = append(errs, errors.New("house_variants: empty variant"))
			break
		}
	}
	switch c.Render.Format {
	case "text", "yaml":
	default:
		errs = append(errs, fmt.Errorf("render.format must be text or yaml, got %q", c.Render.Format))
	}
	if c.Playback.StepDelay < 0 {
		errs = append(errs, fmt.Errorf("playback.step_delay must not be negative, got %s", c.Playback.StepDelay))
	}
	if c.Playback.MaxCells < 9 {
		errs = append(errs, fmt.Errorf("playback.max_cells must allow at least a 3x3 village, got %d", c.Playback.MaxCells))
	}
	if c.Playback.MaxStreams < 0 || c.Playback.MaxStreamsPerIP < 0 {
		errs = append(errs, errors.New("playback stream limits must not be negative"))
	}
	if c.Journal.Enabled {
		switch c.Journal.Driver {
		case "sqlite":
			if c.Journal.SQLitePath == "" {
				errs = append(errs, errors.New("journal.sqlite_path is required for the sqlite driver"))
			}
		case "postgres":
			if c.Journal.Postgres.Database == "" {
				errs = append(errs, errors.New("journal.postgres.database is required for the postgres driver"))
			}
		default:
			errs = append(errs, fmt.Errorf("journal.driver must be sqlite or postgres, got %q", c.Journal.Driver))
		}
	}

	return errors.Join(errs...)
}

// Complexity returns the configured catalog complexity.
func (c *Config) Complexity() (wfc.Complexity, error) {
	return wfc.ParseComplexity(c.Village.Complexity)
}

// Bindings returns the tile kind of every role the complexity needs.
func (c *Config) Bindings(complexity wfc.Complexity) map[wfc.Role]wfc.TileKind {
	roles := wfc.CatalogRoles(complexity)
	bindings := make(map[wfc.Role]wfc.TileKind, len(roles))
	for _, role := range roles {
		kind := role.String()
		if override, ok := c.Tiles[kind]; ok {
			kind = override
		}
		bindings[role] = wfc.TileKind(kind)
	}
	return bindings
}

// Catalog builds the tile catalog described by the config.
func (c *Config) Catalog() (*wfc.Catalog, error) {
	complexity, err := c.Complexity()
	if err != nil {
		return nil, err
	}
	return wfc.BuildCatalog(complexity, c.Bindings(complexity))
}

// ResolveSeed returns the explicit seed, else the hash of the seed phrase,
// else a time-based seed.
func (v *VillageConfig) ResolveSeed() int64 {
	if v.Seed != nil {
		return *v.Seed
	}
	if v.SeedPhrase != "" {
		return SeedFromPhrase(v.SeedPhrase)
	}
	return time.Now().UnixNano()
}

// SeedFromPhrase hashes a phrase into a seed. The same phrase always gives the same seed.
func SeedFromPhrase(phrase string) int64 {
	sum := blake2b.Sum256([]byte(phrase))
	return int64(binary.BigEndian.Uint64(sum[:8]))
}

// Database converts the journal settings into a database configuration.
func (j JournalConfig) Database() database.Config {
	pg := database.DefaultPostgresConfig()
	if j.Postgres.Host != "" {
		pg.Host = j.Postgres.Host
	}
	if j.Postgres.Port != 0 {
		pg.Port = j.Postgres.Port
	}
	if j.Postgres.SSLMode != "" {
		pg.SSLMode = j.Postgres.SSLMode
	}
	pg.User = j.Postgres.User
	pg.Password = j.Postgres.Password
	pg.Database = j.Postgres.Database

	return database.Config{
		Driver:     j.Driver,
		SQLitePath: j.SQLitePath,
		Postgres:   pg,
	}
}

// IsOriginAllowed checks if the given origin is allowed based on the config.
// Returns true if:
// - AllowedOrigins contains "*" (allow all)
// - AllowedOrigins contains the exact origin
// - AllowedOrigins is empty and origin matches the request host (same-origin)
func (c *PlaybackConfig) IsOriginAllowed(origin, requestHost string) bool {
	if len(c.AllowedOrigins) == 0 {
		return isSameOrigin(origin, requestHost)
	}

	for _, allowed := range c.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}

	return false
}

// isSameOrigin checks if the origin matches the request host.
func isSameOrigin(origin, requestHost string) bool {
	if origin == "" {
		return true // No origin header means a non-browser client
	}

	// "http://localhost:3000" -> "localhost:3000"
	originHost := origin
	if idx := strings.Index(origin, "://"); idx != -1 {
		originHost = origin[idx+3:]
	}
	originHost = strings.TrimSuffix(originHost, "/")

	return originHost == requestHost
}
