package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"meetingindex.app/internal/core/meeting"
	"meetingindex.app/pkg/errors"
	"meetingindex.app/pkg/validation"
)

const (
	maxPortNumber    = 65535
	maxRedisDB       = 15
	maxCacheTTLDays  = 365
	minRateLimitSecs = 1
)

// Config represents the application configuration structure
type Config struct {
	Server   ServerConfig   `split_words:"true"`
	Data     DataConfig     `split_words:"true"`
	Geocoder GeocoderConfig `split_words:"true"`
	Sources  SourcesConfig  `split_words:"true"`
}

type ServerConfig struct {
	Address string `envconfig:"SERVER_ADDRESS" default:"127.0.0.1"`
	Port    int    `envconfig:"SERVER_PORT" default:"8080"`
}

// DataConfig locates the directory holding the meeting index and the
// geocode cache database files
type DataConfig struct {
	Dir string `envconfig:"DATA_DIR" default:"data"`
}

func (d DataConfig) MeetingsDBPath() string {
	return filepath.Join(d.Dir, "meetings.db")
}

func (d DataConfig) PositionsDBPath() string {
	return filepath.Join(d.Dir, "positions.db")
}

// CacheType represents the geocode cache backend to use
type CacheType int

const (
	CacheTypeUnknown CacheType = iota
	CacheTypeSqlite
	CacheTypeRedis
)

// String returns the string representation of cache type
func (c CacheType) String() string {
	switch c {
	case CacheTypeSqlite:
		return "sqlite"
	case CacheTypeRedis:
		return "redis"
	default:
		return "unknown"
	}
}

// IsValid checks if the cache type is valid
func (c CacheType) IsValid() bool {
	return c == CacheTypeSqlite || c == CacheTypeRedis
}

// CacheTypeFromString converts string to CacheType enum
func CacheTypeFromString(s string) CacheType {
	switch s {
	case "sqlite":
		return CacheTypeSqlite
	case "redis":
		return CacheTypeRedis
	default:
		return CacheTypeUnknown
	}
}

// UnmarshalText implements encoding.TextUnmarshaler for envconfig
func (c *CacheType) UnmarshalText(text []byte) error {
	*c = CacheTypeFromString(string(text))
	return nil
}

// MarshalText implements encoding.TextMarshaler for envconfig
func (c CacheType) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

type GeocoderConfig struct {
	BaseURL          string      `envconfig:"GEOCODER_BASE_URL" default:"https://positionstack.com/geo_api.php"`
	RateLimitSeconds int         `envconfig:"GEOCODER_RATE_LIMIT_SECONDS" default:"2"`
	CacheTTLDays     int         `envconfig:"GEOCODER_CACHE_TTL_DAYS" default:"30"`
	CacheType        CacheType   `envconfig:"GEOCODER_CACHE_TYPE" default:"sqlite"`
	Redis            RedisConfig `split_words:"true"`
}

type RedisConfig struct {
	Addr         string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password     string `envconfig:"REDIS_PASSWORD" default:""`
	DB           int    `envconfig:"REDIS_DB" default:"0"`
	DialTimeout  int    `envconfig:"REDIS_DIAL_TIMEOUT" default:"5"`
	ReadTimeout  int    `envconfig:"REDIS_READ_TIMEOUT" default:"3"`
	WriteTimeout int    `envconfig:"REDIS_WRITE_TIMEOUT" default:"3"`
}

// TSMLSite is one configured TSML-family WordPress site
type TSMLSite struct {
	Org         meeting.Organization
	MeetingsURL string
}

type SourcesConfig struct {
	// TSMLSites holds "Organization=URL" pairs
	TSMLSites          []string `envconfig:"TSML_SITES" default:"AnonymousAlcoholics=https://alcoholics-anonymous.eu/meetings/?tsml-day=6&tsml-view=map,DebtorsAnonymous=https://debtorsanonymous.org/meetings/?tsml-day=any"`
	NAHollandURL       string   `envconfig:"NA_HOLLAND_URL" default:"https://www.na-holland.nl/api/v1/meetings"`
	BMLTRootServersURL string   `envconfig:"BMLT_ROOT_SERVERS_URL" default:"https://tomato.bmltenabled.org/main_server/api/v1/rootservers/"`
	QueueCapacity      int      `envconfig:"FETCH_QUEUE_CAPACITY" default:"1024"`
}

// TSMLSitePairs parses the configured "Organization=URL" pairs
func (s SourcesConfig) TSMLSitePairs() ([]TSMLSite, error) {
	sites := make([]TSMLSite, 0, len(s.TSMLSites))
	for _, pair := range s.TSMLSites {
		name, url, found := strings.Cut(pair, "=")
		if !found {
			return nil, errors.NewConfigurationError(
				fmt.Sprintf("TSML_SITES entry %q is not an Organization=URL pair", pair), nil)
		}

		name, ok := validation.TrimAndValidate(name)
		if !ok {
			return nil, errors.NewConfigurationError(
				fmt.Sprintf("TSML_SITES entry %q has an empty organization", pair), nil)
		}
		url, ok = validation.TrimAndValidate(url)
		if !ok {
			return nil, errors.NewConfigurationError(
				fmt.Sprintf("TSML_SITES entry %q has an empty URL", pair), nil)
		}

		org, err := meeting.ParseOrganization(name)
		if err != nil {
			return nil, errors.NewConfigurationError(
				fmt.Sprintf("TSML_SITES entry %q names an unknown organization", pair), err)
		}

		sites = append(sites, TSMLSite{Org: org, MeetingsURL: url})
	}
	return sites, nil
}

func LoadConfig() (*Config, error) {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return nil, errors.NewConfigurationError("error processing config", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Data.Validate(); err != nil {
		return err
	}
	if err := c.Geocoder.Validate(); err != nil {
		return err
	}
	if err := c.Sources.Validate(); err != nil {
		return err
	}
	return nil
}

func (s *ServerConfig) Validate() error {
	if !validation.IsNotEmpty(s.Address) {
		return errors.NewConfigurationError("SERVER_ADDRESS cannot be empty", nil)
	}
	if s.Port < 1 || s.Port > maxPortNumber {
		return errors.NewConfigurationError("SERVER_PORT must be between 1 and 65535", nil)
	}
	return nil
}

func (d *DataConfig) Validate() error {
	if d.Dir == "" {
		return errors.NewConfigurationError("DATA_DIR cannot be empty", nil)
	}
	return nil
}

func (g *GeocoderConfig) Validate() error {
	if g.BaseURL == "" {
		return errors.NewConfigurationError("GEOCODER_BASE_URL cannot be empty", nil)
	}
	if !strings.HasPrefix(g.BaseURL, "http://") && !strings.HasPrefix(g.BaseURL, "https://") {
		return errors.NewConfigurationError("GEOCODER_BASE_URL must start with http:// or https://", nil)
	}
	if g.RateLimitSeconds < minRateLimitSecs {
		return errors.NewConfigurationError("GEOCODER_RATE_LIMIT_SECONDS must be at least 1", nil)
	}
	if g.CacheTTLDays < 1 || g.CacheTTLDays > maxCacheTTLDays {
		return errors.NewConfigurationError("GEOCODER_CACHE_TTL_DAYS must be between 1 and 365", nil)
	}
	if !g.CacheType.IsValid() {
		return errors.NewConfigurationError("GEOCODER_CACHE_TYPE must be one of: sqlite, redis", nil)
	}
	if g.CacheType == CacheTypeRedis {
		return g.Redis.Validate()
	}
	return nil
}

func (r *RedisConfig) Validate() error {
	if r.Addr == "" {
		return errors.NewConfigurationError("REDIS_ADDR cannot be empty when using Redis cache", nil)
	}
	if r.DB < 0 || r.DB > maxRedisDB {
		return errors.NewConfigurationError("REDIS_DB must be between 0 and 15", nil)
	}
	if r.DialTimeout < 1 {
		return errors.NewConfigurationError("REDIS_DIAL_TIMEOUT must be at least 1 second", nil)
	}
	if r.ReadTimeout < 1 {
		return errors.NewConfigurationError("REDIS_READ_TIMEOUT must be at least 1 second", nil)
	}
	if r.WriteTimeout < 1 {
		return errors.NewConfigurationError("REDIS_WRITE_TIMEOUT must be at least 1 second", nil)
	}
	return nil
}

func (s *SourcesConfig) Validate() error {
	if _, err := s.TSMLSitePairs(); err != nil {
		return err
	}
	if s.NAHollandURL == "" {
		return errors.NewConfigurationError("NA_HOLLAND_URL cannot be empty", nil)
	}
	if s.BMLTRootServersURL == "" {
		return errors.NewConfigurationError("BMLT_ROOT_SERVERS_URL cannot be empty", nil)
	}
	if s.QueueCapacity < 1 {
		return errors.NewConfigurationError("FETCH_QUEUE_CAPACITY must be at least 1", nil)
	}
	return nil
}
