package sourcedb

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// dataSourceConfigSchema is the document shape the external configuration
// service is expected to return (spec.md §4.A). LoadStaticConfigProviderFromYAML
// validates every entry against it before the warmer ever sees it, the
// same defense-in-depth role gojsonschema plays wherever this pack
// validates a config document shape rather than trusting struct tags alone.
const dataSourceConfigSchema = `{
  "type": "object",
  "required": ["schema", "table", "columnMapping"],
  "properties": {
    "schema": {"type": "string", "minLength": 1},
    "table": {"type": "string", "minLength": 1},
    "columnMapping": {
      "type": "object",
      "required": ["timePeriodField"],
      "properties": {
        "timePeriodField": {"type": "string", "minLength": 1}
      }
    }
  }
}`

// StaticConfigProvider answers GetDataSourceConfig from an in-memory map
// loaded once from a YAML file, standing in for the external configuration
// service spec.md places out of scope (§4.A). Grounded on the teacher's
// file-backed config loading (src/config/config.go reads YAML/viper-style
// structured config at startup); here the shape is a flat map keyed by
// data source ID rather than one global config object.
type StaticConfigProvider struct {
	sources map[int64]DataSourceConfig
}

type staticConfigFile struct {
	DataSources map[string]DataSourceConfig `yaml:"dataSources"`
}

// NewStaticConfigProvider wraps an already-built map.
func NewStaticConfigProvider(sources map[int64]DataSourceConfig) *StaticConfigProvider {
	return &StaticConfigProvider{sources: sources}
}

// LoadStaticConfigProviderFromYAML reads a YAML file of the shape:
//
//	dataSources:
//	  "1":
//	    schema: analytics
//	    table: fact_visits
//	    columnMapping:
//	      timePeriodField: period_start
func LoadStaticConfigProviderFromYAML(path string) (*StaticConfigProvider, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sourcedb: read config %q: %w", path, err)
	}
	var parsed staticConfigFile
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("sourcedb: parse config %q: %w", path, err)
	}

	schemaLoader := gojsonschema.NewStringLoader(dataSourceConfigSchema)

	sources := make(map[int64]DataSourceConfig, len(parsed.DataSources))
	for key, cfg := range parsed.DataSources {
		var id int64
		if _, err := fmt.Sscanf(key, "%d", &id); err != nil {
			return nil, fmt.Errorf("sourcedb: config %q: non-numeric data source key %q", path, key)
		}
		if err := validateDataSourceConfig(schemaLoader, cfg); err != nil {
			return nil, fmt.Errorf("sourcedb: config %q: data source %q: %w", path, key, err)
		}
		sources[id] = cfg
	}
	return &StaticConfigProvider{sources: sources}, nil
}

func validateDataSourceConfig(schemaLoader gojsonschema.JSONLoader, cfg DataSourceConfig) error {
	payload, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal for schema check: %w", err)
	}
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("invalid data source config: %s", strings.Join(msgs, "; "))
	}
	return nil
}

// GetDataSourceConfig implements ConfigProvider.
func (p *StaticConfigProvider) GetDataSourceConfig(ctx context.Context, dataSourceID int64) (DataSourceConfig, error) {
	cfg, ok := p.sources[dataSourceID]
	if !ok {
		return DataSourceConfig{}, fmt.Errorf("sourcedb: no config for data source %d", dataSourceID)
	}
	return cfg, nil
}
