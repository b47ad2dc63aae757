// Package config loads the server and client configuration. Files are
// unified with an embedded cue schema that supplies defaults and rejects
// anything out of range.
package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cfoust/strafe/pkg/physics/arena"
	"github.com/cfoust/strafe/pkg/protocol"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	J "cuelang.org/go/encoding/json"
	"cuelang.org/go/encoding/yaml"
)

//go:embed schema.cue
var schemaFile string

//go:embed default.yaml
var DEFAULT []byte

func build(ctx *cue.Context, path string, data []byte) (cue.Value, error) {
	switch filepath.Ext(path) {
	case ".json":
		expr, err := J.Extract(path, data)
		if err != nil {
			return cue.Value{}, err
		}
		value := ctx.BuildExpr(expr)
		return value, value.Err()
	case ".yaml", ".yml":
		file, err := yaml.Extract(path, data)
		if err != nil {
			return cue.Value{}, err
		}
		value := ctx.BuildFile(file)
		return value, value.Err()
	}

	return cue.Value{}, fmt.Errorf("not in a valid format")
}

// Process reads the provided configuration files in order and unifies them
// with the schema. Later files may only add to earlier ones. With no files
// the default configuration is used.
func Process(configPaths []string) (*Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaFile)
	if err := schema.Err(); err != nil {
		return nil, err
	}

	if len(configPaths) == 0 {
		value, err := build(ctx, "<default>.yaml", DEFAULT)
		if err != nil {
			return nil, err
		}

		schema = schema.Unify(value)
		if err := schema.Err(); err != nil {
			return nil, fmt.Errorf("invalid default config file: %v", err)
		}
	}

	for _, path := range configPaths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("could not read config file %s: %v", path, err)
		}

		value, err := build(ctx, path, data)
		if err != nil {
			return nil, fmt.Errorf("could not process config file %s: %v", path, err)
		}

		schema = schema.Unify(value)
		if err := schema.Err(); err != nil {
			return nil, fmt.Errorf("could not merge config file %s: %v", path, err)
		}

		if err := schema.Validate(); err != nil {
			return nil, fmt.Errorf("config file %s is not valid: %v", path, err)
		}
	}

	if err := schema.Validate(); err != nil {
		return nil, err
	}

	data, err := schema.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("could not aggregate config: %v", err)
	}

	config := Config{}
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	if err := config.Movement.Validate(); err != nil {
		return nil, fmt.Errorf("invalid movement config: %w", err)
	}

	return &config, nil
}

func (s *ServerSettings) ParseKey() (protocol.Key, error) {
	return protocol.ParseKey(s.Key)
}

// LoadLevel returns the configured level, or the built-in one.
func (s *ServerSettings) LoadLevel() (*arena.Level, error) {
	if s.Level == "" {
		level := arena.DefaultLevel
		return &level, nil
	}
	return arena.LoadLevel(s.Level)
}
