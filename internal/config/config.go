// Package config loads the landing configuration from a YAML file and
// QUICKELT_* environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"quickelt/internal/model"
)

// ConfigError reports an invalid or unreadable configuration.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config: %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("config: %v", e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

type Config struct {
	Landing     LandingConfig  `mapstructure:"landing"`
	Retry       RetryConfig    `mapstructure:"retry"`
	Logging     LoggingConfig  `mapstructure:"logging"`
	Server      ServerConfig   `mapstructure:"server"`
	Catalog     CatalogConfig  `mapstructure:"catalog"`
	Concurrency int            `mapstructure:"concurrency" validate:"gte=1"`
	Sources     []SourceConfig `mapstructure:"sources" validate:"dive"`
}

// LandingConfig locates the bronze layer on disk.
type LandingConfig struct {
	BronzeRoot   string `mapstructure:"bronze_root" validate:"required"`
	MetadataRoot string `mapstructure:"metadata_root" validate:"required"`
	UniqueSuffix bool   `mapstructure:"unique_suffix"`
}

type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts" validate:"gte=1"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

// ServerConfig configures the optional admin API.
type ServerConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Host       string `mapstructure:"host"`
	Port       string `mapstructure:"port"`
	Mode       string `mapstructure:"mode"`
	EnableAuth bool   `mapstructure:"enable_auth"`
	JWTSecret  string `mapstructure:"jwt_secret"`
}

// CatalogConfig configures the source catalog database.
type CatalogConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// SourceConfig declares one source to land. Only the section matching
// Kind is read.
type SourceConfig struct {
	Name      string        `mapstructure:"name" validate:"required"`
	Kind      string        `mapstructure:"kind" validate:"oneof=api csv database sharepoint objectstore scrape"`
	Origin    string        `mapstructure:"origin" validate:"required"`
	Framework string        `mapstructure:"framework" validate:"required"`
	Format    string        `mapstructure:"format" validate:"oneof=csv parquet avro"`
	Strict    bool          `mapstructure:"strict"`
	Enabled   bool          `mapstructure:"enabled"`
	Contract  []FieldConfig `mapstructure:"contract" validate:"min=1,dive"`

	API         APISourceConfig         `mapstructure:"api"`
	CSV         CSVSourceConfig         `mapstructure:"csv"`
	Database    DatabaseSourceConfig    `mapstructure:"database"`
	SharePoint  SharePointSourceConfig  `mapstructure:"sharepoint"`
	ObjectStore ObjectStoreSourceConfig `mapstructure:"objectstore"`
	Scrape      ScrapeSourceConfig      `mapstructure:"scrape"`
}

type FieldConfig struct {
	Name     string `mapstructure:"name" validate:"required"`
	Type     string `mapstructure:"type" validate:"oneof=integer float string boolean timestamp"`
	Optional bool   `mapstructure:"optional"`
}

type APISourceConfig struct {
	URL               string        `mapstructure:"url"`
	Token             string        `mapstructure:"token"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
}

type CSVSourceConfig struct {
	Path      string `mapstructure:"path"`
	Delimiter string `mapstructure:"delimiter"`
}

type DatabaseSourceConfig struct {
	Type     string `mapstructure:"type"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	SSL      bool   `mapstructure:"ssl"`
	Query    string `mapstructure:"query"`
}

type SharePointSourceConfig struct {
	TenantID     string `mapstructure:"tenant_id"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	Hostname     string `mapstructure:"hostname"`
	SitePath     string `mapstructure:"site_path"`
	FilePath     string `mapstructure:"file_path"`
}

type ObjectStoreSourceConfig struct {
	Backend   string `mapstructure:"backend"` // s3, minio or azure
	Prefix    string `mapstructure:"prefix"`
	Suffix    string `mapstructure:"suffix"`
	Format    string `mapstructure:"format"`
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Container string `mapstructure:"container"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	RoleARN   string `mapstructure:"role_arn"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	SASToken  string `mapstructure:"sas_token"`
	Account   string `mapstructure:"account"`
}

type ScrapeSourceConfig struct {
	URL       string        `mapstructure:"url"`
	UserAgent string        `mapstructure:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// Load reads the configuration from the given file. When path is empty
// it searches ./configs and the working directory for config.yaml.
// Defaults and QUICKELT_* environment variables fill in gaps.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	setDefaults(v)

	v.SetEnvPrefix("QUICKELT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, &ConfigError{Err: fmt.Errorf("error reading config file: %w", err)}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, &ConfigError{Err: fmt.Errorf("error unmarshaling config: %w", err)}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks the struct tags and a few cross-field rules the tags
// cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			return &ConfigError{
				Field: errs[0].Namespace(),
				Err:   fmt.Errorf("failed on %q", errs[0].Tag()),
			}
		}
		return &ConfigError{Err: err}
	}

	seen := make(map[string]bool, len(c.Sources))
	for _, src := range c.Sources {
		if seen[src.Name] {
			return &ConfigError{Field: "sources", Err: fmt.Errorf("duplicate source name %q", src.Name)}
		}
		seen[src.Name] = true
	}
	return nil
}

// ToContract builds the typed contract declared for this source.
func (s *SourceConfig) ToContract() (*model.Contract, error) {
	fields := make([]model.Field, 0, len(s.Contract))
	for _, f := range s.Contract {
		fields = append(fields, model.Field{
			Name:     f.Name,
			Type:     model.FieldType(f.Type),
			Optional: f.Optional,
		})
	}
	contract, err := model.NewContract(s.Name, fields)
	if err != nil {
		return nil, &ConfigError{Field: "sources." + s.Name + ".contract", Err: err}
	}
	return contract, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("landing.bronze_root", "./data/bronze")
	v.SetDefault("landing.metadata_root", "./data/metadata")
	v.SetDefault("landing.unique_suffix", false)

	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.base_delay", "500ms")
	v.SetDefault("retry.max_delay", "10s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("server.enabled", false)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.enable_auth", false)

	v.SetDefault("catalog.enabled", false)
	v.SetDefault("catalog.host", "localhost")
	v.SetDefault("catalog.port", "3306")
	v.SetDefault("catalog.database", "quickelt")
	v.SetDefault("catalog.username", "quickelt")

	v.SetDefault("concurrency", 4)
}
