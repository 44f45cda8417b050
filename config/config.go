package config

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	KeyStorageDriver     = "storage.driver"
	KeySQLitePath        = "storage.sqlite_path"
	KeyMongoURI          = "storage.mongo.uri"
	KeyMongoDatabase     = "storage.mongo.database"
	KeyMongoCollection   = "storage.mongo.collection"
	KeyBatchGroupLimit   = "batch.group_limit"
	KeyImportLocation    = "import.location"
	KeyImportBackfill    = "import.backfill_after_import"
	KeyReportCacheTTL    = "report.cache_ttl"
	KeyLogLevel          = "log.level"
	KeyServeAddr         = "serve.addr"
	DefaultConfigName    = ".clubhours"
	DefaultSQLitePath    = "clubhours.db"
	DefaultServeAddr     = "127.0.0.1:8080"
	DefaultMongoDatabase = "clubhours"
)

type Config struct {
	Storage StorageConfig `mapstructure:"storage"`
	Batch   BatchConfig   `mapstructure:"batch"`
	Import  ImportConfig  `mapstructure:"import"`
	Report  ReportConfig  `mapstructure:"report"`
	Log     LogConfig     `mapstructure:"log"`
	Serve   ServeConfig   `mapstructure:"serve"`
}

type StorageConfig struct {
	Driver     string      `mapstructure:"driver" validate:"required,oneof=sqlite mongo memory"`
	SQLitePath string      `mapstructure:"sqlite_path" validate:"required_if=Driver sqlite"`
	Mongo      MongoConfig `mapstructure:"mongo"`
}

type MongoConfig struct {
	URI        string `mapstructure:"uri" validate:"omitempty,uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

type BatchConfig struct {
	GroupLimit int `mapstructure:"group_limit" validate:"min=1,max=500"`
}

type ImportConfig struct {
	// Location is an IANA zone name used to compare calendar days and to read
	// timestamps without an offset. Empty or "Local" uses the host zone.
	Location string `mapstructure:"location"`

	BackfillAfterImport bool `mapstructure:"backfill_after_import"`
}

type ReportConfig struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl" validate:"min=0"`
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"omitempty,oneof=trace debug info warn warning error"`
}

type ServeConfig struct {
	Addr string `mapstructure:"addr" validate:"required,hostname_port"`
}

// SetDefaults sets default values if not provided
func SetDefaults() {
	setDefaults(viper.GetViper())
}

// LoadAndValidate loads config from Viper and validates it
func LoadAndValidate() (*Config, error) {
	return loadAndValidateFromViper(viper.GetViper())
}

// ValidateYAMLContent validates configuration from raw YAML content.
func ValidateYAMLContent(content []byte) (*Config, error) {
	local := viper.New()
	setDefaults(local)
	local.SetConfigType("yaml")
	if err := local.ReadConfig(bytes.NewReader(content)); err != nil {
		return nil, fmt.Errorf("read config content: %w", err)
	}
	return loadAndValidateFromViper(local)
}

// ExampleYAML returns the default configuration template.
func ExampleYAML() string {
	return `# clubhours configuration
storage:
  driver: "sqlite"          # sqlite | mongo | memory
  sqlite_path: "clubhours.db"
  mongo:
    uri: "mongodb://localhost:27017/?replicaSet=rs0"
    database: "clubhours"
    collection: "logs"

batch:
  group_limit: 400

import:
  location: "Local"         # IANA zone for calendar-day matching
  backfill_after_import: false

report:
  cache_ttl: "10m"

log:
  level: "info"

serve:
  addr: "127.0.0.1:8080"
`
}

// Location resolves the configured import zone.
func (c Config) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.Import.Location)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load import location %q: %w", name, err)
	}
	return loc, nil
}

func loadAndValidateFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.Storage.Driver = strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	if err := validateMongo(cfg.Storage); err != nil {
		return nil, err
	}
	if _, err := cfg.Location(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyStorageDriver, "sqlite")
	v.SetDefault(KeySQLitePath, DefaultSQLitePath)
	v.SetDefault(KeyMongoDatabase, DefaultMongoDatabase)
	v.SetDefault(KeyMongoCollection, "logs")
	v.SetDefault(KeyBatchGroupLimit, 400)
	v.SetDefault(KeyImportLocation, "Local")
	v.SetDefault(KeyImportBackfill, false)
	v.SetDefault(KeyReportCacheTTL, 10*time.Minute)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyServeAddr, DefaultServeAddr)
}

func validateMongo(storage StorageConfig) error {
	if storage.Driver != "mongo" {
		return nil
	}
	missing := make([]string, 0, 3)
	if strings.TrimSpace(storage.Mongo.URI) == "" {
		missing = append(missing, "uri")
	}
	if strings.TrimSpace(storage.Mongo.Database) == "" {
		missing = append(missing, "database")
	}
	if strings.TrimSpace(storage.Mongo.Collection) == "" {
		missing = append(missing, "collection")
	}
	if len(missing) > 0 {
		return fmt.Errorf("validation failed: storage.mongo requires %s", strings.Join(missing, ", "))
	}
	return nil
}
