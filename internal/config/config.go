package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"

	"github.com/goccy/go-json"
	"github.com/goccy/go-yaml"
	"github.com/mitchellh/mapstructure"

	"github.com/karupanerura/arithmetic-repl/internal/expression"
)

type Format string

const (
	TextFormat Format = "text"
	JSONFormat Format = "json"
)

func (f Format) Validate() error {
	switch f {
	case TextFormat, JSONFormat:
		return nil
	default:
		return fmt.Errorf("unknown format: %q", f)
	}
}

type Config struct {
	Format           Format `mapstructure:"format"`
	Prompt           string `mapstructure:"prompt"`
	MaxDepth         int    `mapstructure:"maxDepth"`
	Debug            bool   `mapstructure:"debug"`
	Listen           string `mapstructure:"listen"`
	BatchConcurrency int    `mapstructure:"batchConcurrency"`
	HistorySize      int    `mapstructure:"historySize"`
}

func Default() *Config {
	return &Config{
		Format:           TextFormat,
		Prompt:           "> ",
		MaxDepth:         expression.DefaultMaxDepth,
		BatchConcurrency: 8,
		HistorySize:      1000,
	}
}

func (c *Config) Validate() error {
	if err := c.Format.Validate(); err != nil {
		return err
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("maxDepth must not be negative: %d", c.MaxDepth)
	}
	if c.BatchConcurrency < 1 {
		return fmt.Errorf("batchConcurrency must be positive: %d", c.BatchConcurrency)
	}
	return nil
}

// NewParser builds a parser for c. Debug only turns logging on; when it is false the
// ARITHMETIC_REPL_DEBUG environment variable still applies.
func (c *Config) NewParser() *expression.Parser {
	opts := []expression.ParserOption{expression.WithMaxDepth(c.MaxDepth)}
	if c.Debug {
		opts = append(opts, expression.WithDebug(true))
	}
	return expression.NewParser(opts...)
}

// LoadFile reads a YAML or JSON file over the defaults.
func LoadFile(filePath string) (*Config, error) {
	var parse func(io.Reader) (*Config, error)
	switch filepath.Ext(filePath) {
	case ".json":
		parse = ParseJSON
	case ".yaml", ".yml":
		parse = ParseYAML
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", filePath)
	}

	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("os.Open(%q): %w", filePath, err)
	}
	defer f.Close()

	return parse(f)
}

func ParseYAML(r io.Reader) (*Config, error) {
	yamlBytes, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("io.ReadAll: %w", err)
	}

	jsonBytes, err := yaml.YAMLToJSON(yamlBytes)
	if err != nil {
		return nil, fmt.Errorf("yaml.YAMLToJSON: %w", err)
	}

	return ParseJSON(bytes.NewReader(jsonBytes))
}

func ParseJSON(r io.Reader) (*Config, error) {
	jsonDecoder := json.NewDecoder(r)
	jsonDecoder.UseNumber()

	var raw map[string]any
	if err := jsonDecoder.Decode(&raw); err != nil {
		return nil, fmt.Errorf("json.Decode: %w", err)
	}

	c := Default()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:  decodeIntegerHook,
		ErrorUnused: true,
		Result:      c,
	})
	if err != nil {
		return nil, fmt.Errorf("mapstructure.NewDecoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("mapstructure.Decode: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

type jsonNumber interface {
	Int64() (int64, error)
	String() string
}

// decodeIntegerHook rejects numbers with a fraction or exponent for integer fields.
func decodeIntegerHook(from reflect.Kind, to reflect.Kind, data any) (any, error) {
	n, ok := data.(jsonNumber)
	if !ok || to != reflect.Int {
		return data, nil
	}

	v, err := n.Int64()
	if err != nil {
		return nil, fmt.Errorf("%s is not an integer", n.String())
	}
	return v, nil
}
