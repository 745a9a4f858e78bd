// Package config loads the settings of a reqsvc client from YAML or TOML
// files and environment variables.
//
//	endpoint: https://en.wiktionary.org
//	timeout: 10s
//	headers:
//	  Accept: text/html
//	aliases:
//	  section: GET /:section
//	query_aliases:
//	  search: GET /w
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/broady/reqsvc"
	"github.com/go-playground/validator/v10"
	"github.com/golobby/cast"
	"gopkg.in/yaml.v3"
)

// DefaultEnvPrefix is the prefix of the environment variables read by ApplyEnv.
const DefaultEnvPrefix = "REQSVC"

var validate = validator.New()

// Config holds the client settings.
type Config struct {
	Endpoint     string            `yaml:"endpoint" toml:"endpoint" env:"ENDPOINT"`
	Timeout      time.Duration     `yaml:"timeout" toml:"timeout" env:"TIMEOUT" validate:"gte=0"`
	UserAgent    string            `yaml:"user_agent" toml:"user_agent" env:"USER_AGENT"`
	RequestID    bool              `yaml:"request_id" toml:"request_id" env:"REQUEST_ID"`
	LogLevel     string            `yaml:"log_level" toml:"log_level" env:"LOG_LEVEL" validate:"omitempty,oneof=debug info warn error"`
	Headers      map[string]string `yaml:"headers" toml:"headers"`
	Aliases      map[string]string `yaml:"aliases" toml:"aliases" validate:"dive,required"`
	QueryAliases map[string]string `yaml:"query_aliases" toml:"query_aliases" validate:"dive,required"`
}

// Load reads the file at path. The format is chosen by extension:
// .yaml/.yml or .toml.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &Config{}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse yaml config: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse toml config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}
	return cfg, nil
}

// ApplyEnv overrides the fields tagged with env from variables named
// PREFIX_NAME, e.g. REQSVC_ENDPOINT. Unset or empty variables are ignored.
func (c *Config) ApplyEnv(prefix string) error {
	if prefix == "" {
		prefix = DefaultEnvPrefix
	}
	rv := reflect.ValueOf(c).Elem()
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		name := rt.Field(i).Tag.Get("env")
		if name == "" {
			continue
		}
		envName := prefix + "_" + name
		value := os.Getenv(envName)
		if value == "" {
			continue
		}
		if err := setField(rv.Field(i), value); err != nil {
			return fmt.Errorf("%s: %w", envName, err)
		}
	}
	return nil
}

var durationType = reflect.TypeOf(time.Duration(0))

// setField converts and sets a field value
func setField(field reflect.Value, value string) error {
	if field.Type() == durationType {
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		field.SetInt(int64(d))
		return nil
	}
	converted, err := cast.FromType(value, field.Type())
	if err != nil {
		return fmt.Errorf("cannot convert value to type %v: %w", field.Type(), err)
	}
	field.Set(reflect.ValueOf(converted))
	return nil
}

// Validate checks the field constraints and the alias targets.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	var errs []error
	for name, target := range c.QueryAliases {
		if _, ok := c.Aliases[name]; ok {
			errs = append(errs, fmt.Errorf("alias %q is declared twice", name))
		}
		if strings.TrimSpace(target) == "" {
			errs = append(errs, fmt.Errorf("query alias %q has an empty target", name))
		}
	}
	return errors.Join(errs...)
}

// AliasMap returns the aliases as a reqsvc.AliasMap.
func (c *Config) AliasMap() reqsvc.AliasMap {
	return toAliasMap(c.Aliases)
}

// QueryAliasMap returns the query aliases as a reqsvc.AliasMap.
func (c *Config) QueryAliasMap() reqsvc.AliasMap {
	return toAliasMap(c.QueryAliases)
}

func toAliasMap(m map[string]string) reqsvc.AliasMap {
	out := make(reqsvc.AliasMap, len(m))
	for name, target := range m {
		out[name] = reqsvc.Target(target)
	}
	return out
}
