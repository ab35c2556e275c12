package procureflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/viant/afs"
	"github.com/viant/procureflow/internal/envexpr"
	"github.com/viant/procureflow/service/logistics"
	"gopkg.in/yaml.v3"
)

// Store kinds.
const (
	StoreMemory   = "memory"
	StoreFS       = "fs"
	StorePostgres = "postgres"
)

// Config is a serialisable representation of the engine configuration. It
// can be populated from YAML, JSON or environment variables through viper.
type Config struct {
	Engine    EngineConfig      `json:"engine" yaml:"engine" mapstructure:"engine"`
	Bulk      BulkConfig        `json:"bulk" yaml:"bulk" mapstructure:"bulk"`
	FanOut    FanOutConfig      `json:"fanOut" yaml:"fanOut" mapstructure:"fanOut"`
	Store     StoreConfig       `json:"store" yaml:"store" mapstructure:"store"`
	Logistics *logistics.Config `json:"logistics" yaml:"logistics" mapstructure:"logistics"`
	Tracing   TracingConfig     `json:"tracing" yaml:"tracing" mapstructure:"tracing"`
}

// EngineConfig controls the post-commit event outbox.
type EngineConfig struct {
	EventBuffer int           `json:"eventBuffer" yaml:"eventBuffer" mapstructure:"eventBuffer"`
	MaxRetries  int           `json:"maxRetries" yaml:"maxRetries" mapstructure:"maxRetries"`
	RetryDelay  time.Duration `json:"retryDelay" yaml:"retryDelay" mapstructure:"retryDelay"`
	// DispatchActor is the id stamped on fulfillment updates made by the logistics dispatcher.
	DispatchActor string `json:"dispatchActor" yaml:"dispatchActor" mapstructure:"dispatchActor"`
}

type BulkConfig struct {
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers"`
}

type FanOutConfig struct {
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers"`
	// Tenants lists tenants with fan-out enabled; "*" enables all.
	Tenants []string `json:"tenants" yaml:"tenants" mapstructure:"tenants"`
}

type StoreConfig struct {
	Kind string `json:"kind" yaml:"kind" mapstructure:"kind"`
	// URL is the base location of the fs store.
	URL string `json:"url" yaml:"url" mapstructure:"url"`
	// DSN is the PostgreSQL connection string.
	DSN string `json:"dsn" yaml:"dsn" mapstructure:"dsn"`
}

type TracingConfig struct {
	Enabled        bool   `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	ServiceName    string `json:"serviceName" yaml:"serviceName" mapstructure:"serviceName"`
	ServiceVersion string `json:"serviceVersion" yaml:"serviceVersion" mapstructure:"serviceVersion"`
	OutputFile     string `json:"outputFile" yaml:"outputFile" mapstructure:"outputFile"`
}

// DefaultConfig returns a Config populated with the package defaults.
// Callers may modify the returned struct before passing it to WithConfig.
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			EventBuffer:   1024,
			MaxRetries:    3,
			RetryDelay:    time.Second,
			DispatchActor: "logistics",
		},
		Bulk:      BulkConfig{Workers: 8},
		FanOut:    FanOutConfig{Workers: 4},
		Store:     StoreConfig{Kind: StoreMemory},
		Logistics: logistics.DefaultConfig(),
		Tracing:   TracingConfig{ServiceName: "procureflow", ServiceVersion: "0.1.0"},
	}
}

// Validate returns aggregated error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	var errs []error
	if c.Engine.EventBuffer <= 0 {
		errs = append(errs, fmt.Errorf("engine.eventBuffer must be > 0"))
	}
	if c.Engine.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("engine.maxRetries must be >= 0"))
	}
	if c.Bulk.Workers <= 0 {
		errs = append(errs, fmt.Errorf("bulk.workers must be > 0"))
	}
	if c.FanOut.Workers <= 0 {
		errs = append(errs, fmt.Errorf("fanOut.workers must be > 0"))
	}
	switch c.Store.Kind {
	case StoreMemory:
	case StoreFS:
		if c.Store.URL == "" {
			errs = append(errs, fmt.Errorf("store.url is required for %s store", StoreFS))
		}
	case StorePostgres:
		if c.Store.DSN == "" {
			errs = append(errs, fmt.Errorf("store.dsn is required for %s store", StorePostgres))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported store.kind %q", c.Store.Kind))
	}
	return errors.Join(errs...)
}

// LoadConfig reads a YAML configuration from URL over the defaults.
func LoadConfig(ctx context.Context, URL string) (*Config, error) {
	data, err := afs.New().DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", URL, err)
	}
	ret := DefaultConfig()
	if err = yaml.Unmarshal([]byte(envexpr.Expand(string(data))), ret); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", URL, err)
	}
	if err = ret.Validate(); err != nil {
		return nil, err
	}
	return ret, nil
}
