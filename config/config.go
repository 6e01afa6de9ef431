// Copyright 2015 Comcast Cable Communications Management, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// End Copyright

// Package config binds the ECSS_-prefixed environment variables
// described in SPEC_FULL.md section 6, following the teacher's
// examples/go-client/configuration/EnvConfig.go pattern, and overlays
// an optional YAML file on top.
package config

import (
	"fmt"
	"os"
	"regexp"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config is the fully resolved process configuration: environment
// defaults overlaid by an optional CONFIG_FILE YAML document.
type Config struct {
	EcsCluster string `envconfig:"ECS_CLUSTER" required:"true"`
	Name       string `envconfig:"NAME" default:"ecs-scheduler"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"INFO"`
	LogFolder string `envconfig:"LOG_FOLDER"`

	SqliteFile string `envconfig:"SQLITE_FILE"`

	S3Bucket string `envconfig:"S3_BUCKET"`
	S3Prefix string `envconfig:"S3_PREFIX"`

	DynamoDBTable string `envconfig:"DYNAMODB_TABLE"`

	ElasticsearchIndex string   `envconfig:"ELASTICSEARCH_INDEX"`
	ElasticsearchHosts []string `envconfig:"ELASTICSEARCH_HOSTS"`

	ConfigFile string `envconfig:"CONFIG_FILE"`

	Addr           string `envconfig:"ADDR" default:":8080"`
	ShutdownGrace  int    `envconfig:"SHUTDOWN_GRACE_SECONDS" default:"30"`
	SingleWriterOK bool   `envconfig:"SINGLE_WRITER" default:"false"`
	LockFile       string `envconfig:"LOCK_FILE" default:"/var/run/ecs-scheduler.lock"`
}

// yamlOverlay is the shape of a CONFIG_FILE document: the top-level
// key names the backend being configured, per SPEC_FULL.md section 6.
type yamlOverlay struct {
	Sqlite *struct {
		File string `yaml:"file"`
	} `yaml:"sqlite"`
	S3 *struct {
		Bucket string `yaml:"bucket"`
		Prefix string `yaml:"prefix"`
	} `yaml:"s3"`
	Dynamodb *struct {
		Table string `yaml:"table"`
	} `yaml:"dynamodb"`
	Elasticsearch *struct {
		Index string   `yaml:"index"`
		Hosts []string `yaml:"hosts"`
	} `yaml:"elasticsearch"`
}

// Load reads ECSS_-prefixed environment variables into a Config, then,
// if ECSS_CONFIG_FILE is set, overlays the named backend's YAML
// parameters on top — the YAML file wins over the env-derived values,
// per SPEC_FULL.md's "cyclic config merge" design note. This merge is
// an explicit precedence function over two structs, never shared
// mutable state.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("ECSS", &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	expandPlaceholders(&cfg)

	if cfg.ConfigFile != "" {
		if err := overlayYAML(&cfg, cfg.ConfigFile); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

// placeholderPattern matches {NAME}-style tokens, not the stdlib's
// $NAME/${NAME} syntax, per SPEC_FULL.md section 6.
var placeholderPattern = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

func expandValue(s string) string {
	return placeholderPattern.ReplaceAllStringFunc(s, func(tok string) string {
		name := tok[1 : len(tok)-1]
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		return tok
	})
}

// expandPlaceholders substitutes {NAME}-style tokens against the
// process environment, per SPEC_FULL.md section 6.
func expandPlaceholders(cfg *Config) {
	cfg.EcsCluster = expandValue(cfg.EcsCluster)
	cfg.Name = expandValue(cfg.Name)
	cfg.LogLevel = expandValue(cfg.LogLevel)
	cfg.LogFolder = expandValue(cfg.LogFolder)
	cfg.SqliteFile = expandValue(cfg.SqliteFile)
	cfg.S3Bucket = expandValue(cfg.S3Bucket)
	cfg.S3Prefix = expandValue(cfg.S3Prefix)
	cfg.DynamoDBTable = expandValue(cfg.DynamoDBTable)
	cfg.ElasticsearchIndex = expandValue(cfg.ElasticsearchIndex)
	for i, h := range cfg.ElasticsearchHosts {
		cfg.ElasticsearchHosts[i] = expandValue(h)
	}
	cfg.ConfigFile = expandValue(cfg.ConfigFile)
	cfg.Addr = expandValue(cfg.Addr)
	cfg.LockFile = expandValue(cfg.LockFile)
}

func overlayYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config file: %w", err)
	}
	var overlay yamlOverlay
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("config file: %w", err)
	}

	if overlay.Sqlite != nil && overlay.Sqlite.File != "" {
		cfg.SqliteFile = overlay.Sqlite.File
	}
	if overlay.S3 != nil {
		if overlay.S3.Bucket != "" {
			cfg.S3Bucket = overlay.S3.Bucket
		}
		if overlay.S3.Prefix != "" {
			cfg.S3Prefix = overlay.S3.Prefix
		}
	}
	if overlay.Dynamodb != nil && overlay.Dynamodb.Table != "" {
		cfg.DynamoDBTable = overlay.Dynamodb.Table
	}
	if overlay.Elasticsearch != nil {
		if overlay.Elasticsearch.Index != "" {
			cfg.ElasticsearchIndex = overlay.Elasticsearch.Index
		}
		if len(overlay.Elasticsearch.Hosts) > 0 {
			cfg.ElasticsearchHosts = overlay.Elasticsearch.Hosts
		}
	}
	return nil
}
