/*
 * Copyright (c) 2025, WSO2 LLC. (http://www.wso2.com).
 *
 * WSO2 LLC. licenses this file to you under the Apache License,
 * Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied.  See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */

// Package config provides structures and functions for loading and managing server configurations.
package config

import (
	"os"
	"path/filepath"

	yaml "gopkg.in/yaml.v3"

	"github.com/asgardeo/waypoint/internal/system/log"
)

// ServerConfig holds the server configuration details.
type ServerConfig struct {
	Hostname string `yaml:"hostname"`
	Port     int    `yaml:"port"`
	// PublicURL is the externally reachable base URL used to build worker callback URLs.
	PublicURL string `yaml:"public_url"`
	HTTPOnly  bool   `yaml:"http_only"`
}

// SecurityConfig holds the TLS certificate and key of the server.
type SecurityConfig struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// DataSource holds the individual database connection details.
type DataSource struct {
	Type            string `yaml:"type"`
	Hostname        string `yaml:"hostname"`
	Port            int    `yaml:"port"`
	Name            string `yaml:"name"`
	Username        string `yaml:"username"`
	Password        string `yaml:"password"`
	SSLMode         string `yaml:"sslmode"`
	Path            string `yaml:"path"`
	Options         string `yaml:"options"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime"`
}

// DatabaseConfig holds the different database configuration details.
type DatabaseConfig struct {
	Runtime DataSource `yaml:"runtime"`
}

// FlowConfig holds the configuration details for flow definitions and the edge walker.
type FlowConfig struct {
	GraphDirectory string `yaml:"graph_directory"`
	MaxWalkDepth   int    `yaml:"max_walk_depth"`
}

// WebhookConfig holds the configuration for outbound worker webhooks.
type WebhookConfig struct {
	// Timeout is the outbound request timeout in seconds.
	Timeout int `yaml:"timeout"`
	// CallbackSecret enables signed callback URLs when set.
	CallbackSecret string `yaml:"callback_secret"`
}

// StoreConfig holds the optimistic update retry settings.
type StoreConfig struct {
	MaxRetries int `yaml:"max_retries"`
	// MaxElapsedTime is the upper bound for conflict retries in milliseconds.
	MaxElapsedTime int `yaml:"max_elapsed_time"`
}

// IngestWebhook maps an external source and slug to a workflow entry point.
type IngestWebhook struct {
	Source        string            `yaml:"source"`
	Slug          string            `yaml:"slug"`
	WorkflowID    string            `yaml:"workflow_id"`
	EntryEdgeID   string            `yaml:"entry_edge_id"`
	EntityMapping map[string]string `yaml:"entity_mapping"`
}

// IngestConfig holds the ingestion gateway configuration.
type IngestConfig struct {
	Webhooks []IngestWebhook `yaml:"webhooks"`
}

// NATSConfig holds the NATS connection details for event publishing.
type NATSConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Name          string `yaml:"name"`
	SubjectPrefix string `yaml:"subject_prefix"`
	MaxReconnects int    `yaml:"max_reconnects"`
	// ReconnectWait is the wait between reconnect attempts in seconds.
	ReconnectWait int    `yaml:"reconnect_wait"`
	Token         string `yaml:"token"`
}

// MessagingConfig holds the event publishing configuration.
type MessagingConfig struct {
	NATS NATSConfig `yaml:"nats"`
}

// TracingConfig holds the OpenTelemetry tracing configuration.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	ServiceName  string  `yaml:"service_name"`
	Environment  string  `yaml:"environment"`
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	SampleRatio  float64 `yaml:"sample_ratio"`
}

// CacheProperty holds the configuration for an individual cache.
type CacheProperty struct {
	Disabled bool `yaml:"disabled"`
	Size     int  `yaml:"size"`
	// TTL is the entry lifetime in seconds.
	TTL int `yaml:"ttl"`
}

// CacheConfig holds the cache configuration details.
type CacheConfig struct {
	Disabled          bool          `yaml:"disabled"`
	ConditionPrograms CacheProperty `yaml:"condition_programs"`
}

// CORSConfig holds the configuration details for cross-origin requests.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Config holds the complete configuration details of the server.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Security  SecurityConfig  `yaml:"security"`
	CORS      CORSConfig      `yaml:"cors"`
	Database  DatabaseConfig  `yaml:"database"`
	Flow      FlowConfig      `yaml:"flow"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Store     StoreConfig     `yaml:"store"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Messaging MessagingConfig `yaml:"messaging"`
	Tracing   TracingConfig   `yaml:"tracing"`
	Cache     CacheConfig     `yaml:"cache"`
}

// LoadConfig loads the configurations from the specified YAML file.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	path = filepath.Clean(path)

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if ferr := file.Close(); ferr != nil {
			log.GetLogger().Error("Failed to close config file", log.Error(ferr))
		}
	}()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// applyDefaults fills the zero valued settings that have a sensible default.
func applyDefaults(cfg *Config) {
	if cfg.Flow.MaxWalkDepth <= 0 {
		cfg.Flow.MaxWalkDepth = 64
	}
	if cfg.Webhook.Timeout <= 0 {
		cfg.Webhook.Timeout = 30
	}
	if cfg.Store.MaxRetries <= 0 {
		cfg.Store.MaxRetries = 10
	}
	if cfg.Store.MaxElapsedTime <= 0 {
		cfg.Store.MaxElapsedTime = 5000
	}
	if cfg.Messaging.NATS.SubjectPrefix == "" {
		cfg.Messaging.NATS.SubjectPrefix = "waypoint"
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = "waypoint"
	}
	if cfg.Tracing.SampleRatio <= 0 {
		cfg.Tracing.SampleRatio = 1.0
	}
}
